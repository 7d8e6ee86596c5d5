package repository

import (
	"context"

	"gorm.io/gorm"

	"campus-timetable/backend/internal/model"
	pkgerrors "campus-timetable/backend/pkg/errors"
)

// TimetableFilter 课表列表筛选条件
type TimetableFilter struct {
	AcademicYearID string
	TermID         string
	TimetableType  string
	Status         string
}

// TimetableCombo 唯一草稿判定用的组合键：(机构, 学年, 学期, 类型)
type TimetableCombo struct {
	InstitutionID  string
	AcademicYearID string
	TermID         *string
	TimetableType  string
}

// TimetableRepository 课表数据访问接口
type TimetableRepository interface {
	Create(ctx context.Context, tt *model.Timetable) error
	GetByID(ctx context.Context, institutionID, id string) (*model.Timetable, error)
	List(ctx context.Context, institutionID string, filter TimetableFilter, offset, limit int) ([]model.Timetable, int64, error)
	FindByStatus(ctx context.Context, combo TimetableCombo, status string) ([]model.Timetable, error)
	ListPublished(ctx context.Context, institutionID string) ([]model.Timetable, error)
	Update(ctx context.Context, tt *model.Timetable) error
}

type timetableRepo struct {
	db *gorm.DB
}

// NewTimetableRepo 创建 TimetableRepository 实例
func NewTimetableRepo(db *gorm.DB) TimetableRepository {
	return &timetableRepo{db: db}
}

func (r *timetableRepo) Create(ctx context.Context, tt *model.Timetable) error {
	return translateUnique(r.db.WithContext(ctx).Create(tt).Error)
}

func (r *timetableRepo) GetByID(ctx context.Context, institutionID, id string) (*model.Timetable, error) {
	var tt model.Timetable
	err := r.db.WithContext(ctx).
		Where("timetable_id = ? AND institution_id = ?", id, institutionID).
		First(&tt).Error
	if err != nil {
		return nil, err
	}
	return &tt, nil
}

func (r *timetableRepo) List(ctx context.Context, institutionID string, filter TimetableFilter, offset, limit int) ([]model.Timetable, int64, error) {
	var list []model.Timetable
	var total int64

	db := r.db.WithContext(ctx).Model(&model.Timetable{}).
		Where("institution_id = ?", institutionID)
	if filter.AcademicYearID != "" {
		db = db.Where("academic_year_id = ?", filter.AcademicYearID)
	}
	if filter.TermID != "" {
		db = db.Where("term_id = ?", filter.TermID)
	}
	if filter.TimetableType != "" {
		db = db.Where("timetable_type = ?", filter.TimetableType)
	}
	if filter.Status != "" {
		db = db.Where("status = ?", filter.Status)
	}

	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := db.Offset(offset).Limit(limit).
		Order("created_at DESC").
		Find(&list).Error
	return list, total, err
}

func (r *timetableRepo) FindByStatus(ctx context.Context, combo TimetableCombo, status string) ([]model.Timetable, error) {
	var list []model.Timetable
	db := r.db.WithContext(ctx).
		Where("institution_id = ? AND academic_year_id = ? AND timetable_type = ? AND status = ?",
			combo.InstitutionID, combo.AcademicYearID, combo.TimetableType, status)
	if combo.TermID != nil {
		db = db.Where("term_id = ?", *combo.TermID)
	} else {
		db = db.Where("term_id IS NULL")
	}
	err := db.Order("created_at ASC").Find(&list).Error
	return list, err
}

func (r *timetableRepo) ListPublished(ctx context.Context, institutionID string) ([]model.Timetable, error) {
	var list []model.Timetable
	err := r.db.WithContext(ctx).
		Where("institution_id = ? AND status = ?", institutionID, model.TimetableStatusPublished).
		Order("created_at ASC").
		Find(&list).Error
	return list, err
}

func (r *timetableRepo) Update(ctx context.Context, tt *model.Timetable) error {
	oldVersion := tt.Version
	result := r.db.WithContext(ctx).
		Model(tt).
		Where("timetable_id = ? AND version = ?", tt.TimetableID, oldVersion).
		Updates(map[string]interface{}{
			"name":           tt.Name,
			"status":         tt.Status,
			"effective_from": tt.EffectiveFrom,
			"effective_to":   tt.EffectiveTo,
			"published_at":   tt.PublishedAt,
			"published_by":   tt.PublishedBy,
			"updated_by":     tt.UpdatedBy,
			"version":        oldVersion + 1,
		})
	if result.Error != nil {
		return translateUnique(result.Error)
	}
	if result.RowsAffected == 0 {
		return pkgerrors.ErrOptimisticLock
	}
	tt.Version = oldVersion + 1
	return nil
}
