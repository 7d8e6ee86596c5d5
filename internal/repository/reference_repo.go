package repository

import (
	"context"

	"gorm.io/gorm"

	"campus-timetable/backend/internal/model"
)

// ReferenceRepository 班级 / 科目 / 教师只读查询接口。
// 其他机构的记录按不存在处理。
type ReferenceRepository interface {
	GetClass(ctx context.Context, institutionID, id string) (*model.Class, error)
	GetSubject(ctx context.Context, institutionID, id string) (*model.Subject, error)
	GetTeacher(ctx context.Context, institutionID, id string) (*model.Teacher, error)
}

type referenceRepo struct {
	db *gorm.DB
}

// NewReferenceRepo 创建 ReferenceRepository 实例
func NewReferenceRepo(db *gorm.DB) ReferenceRepository {
	return &referenceRepo{db: db}
}

func (r *referenceRepo) GetClass(ctx context.Context, institutionID, id string) (*model.Class, error) {
	var c model.Class
	if err := r.db.WithContext(ctx).
		Where("class_id = ? AND institution_id = ?", id, institutionID).
		First(&c).Error; err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *referenceRepo) GetSubject(ctx context.Context, institutionID, id string) (*model.Subject, error) {
	var s model.Subject
	if err := r.db.WithContext(ctx).
		Where("subject_id = ? AND institution_id = ?", id, institutionID).
		First(&s).Error; err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *referenceRepo) GetTeacher(ctx context.Context, institutionID, id string) (*model.Teacher, error) {
	var t model.Teacher
	if err := r.db.WithContext(ctx).
		Where("teacher_id = ? AND institution_id = ?", id, institutionID).
		First(&t).Error; err != nil {
		return nil, err
	}
	return &t, nil
}
