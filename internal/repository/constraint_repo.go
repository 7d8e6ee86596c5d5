package repository

import (
	"context"

	"gorm.io/gorm"

	"campus-timetable/backend/internal/model"
	pkgerrors "campus-timetable/backend/pkg/errors"
)

// ConstraintRepository 排课规则数据访问接口
type ConstraintRepository interface {
	Create(ctx context.Context, c *model.Constraint) error
	GetByID(ctx context.Context, institutionID, id string) (*model.Constraint, error)
	List(ctx context.Context, institutionID string, activeOnly bool) ([]model.Constraint, error)
	Update(ctx context.Context, c *model.Constraint) error
	Delete(ctx context.Context, id string, deletedBy string) error
}

type constraintRepo struct {
	db *gorm.DB
}

// NewConstraintRepo 创建 ConstraintRepository 实例
func NewConstraintRepo(db *gorm.DB) ConstraintRepository {
	return &constraintRepo{db: db}
}

func (r *constraintRepo) Create(ctx context.Context, c *model.Constraint) error {
	return r.db.WithContext(ctx).Create(c).Error
}

func (r *constraintRepo) GetByID(ctx context.Context, institutionID, id string) (*model.Constraint, error) {
	var c model.Constraint
	err := r.db.WithContext(ctx).
		Where("constraint_id = ? AND institution_id = ?", id, institutionID).
		First(&c).Error
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// List 按优先级从高到低、创建时间从早到晚排序
func (r *constraintRepo) List(ctx context.Context, institutionID string, activeOnly bool) ([]model.Constraint, error) {
	var list []model.Constraint
	db := r.db.WithContext(ctx).Where("institution_id = ?", institutionID)
	if activeOnly {
		db = db.Where("is_active = ?", true)
	}
	err := db.Order("priority DESC, created_at ASC").Find(&list).Error
	return list, err
}

func (r *constraintRepo) Update(ctx context.Context, c *model.Constraint) error {
	oldVersion := c.Version
	result := r.db.WithContext(ctx).
		Model(c).
		Where("constraint_id = ? AND version = ?", c.ConstraintID, oldVersion).
		Updates(map[string]interface{}{
			"name":       c.Name,
			"config":     c.Config,
			"priority":   c.Priority,
			"is_active":  c.IsActive,
			"updated_by": c.UpdatedBy,
			"version":    oldVersion + 1,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return pkgerrors.ErrOptimisticLock
	}
	c.Version = oldVersion + 1
	return nil
}

func (r *constraintRepo) Delete(ctx context.Context, id string, deletedBy string) error {
	return r.db.WithContext(ctx).
		Model(&model.Constraint{}).
		Where("constraint_id = ?", id).
		Updates(map[string]interface{}{
			"deleted_by": deletedBy,
			"deleted_at": gorm.Expr("NOW()"),
		}).Error
}
