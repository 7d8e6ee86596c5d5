package repository

import (
	"context"

	"gorm.io/gorm"

	"campus-timetable/backend/internal/model"
	pkgerrors "campus-timetable/backend/pkg/errors"
)

// TimeSlotRepository 作息时间段数据访问接口
type TimeSlotRepository interface {
	Create(ctx context.Context, slot *model.TimeSlot) error
	GetByID(ctx context.Context, institutionID, id string) (*model.TimeSlot, error)
	Lock(ctx context.Context, institutionID, id string, mode LockMode) (*model.TimeSlot, error)
	List(ctx context.Context, institutionID string, includeInactive bool) ([]model.TimeSlot, error)
	SequenceTaken(ctx context.Context, institutionID string, sequence int, excludeID string) (bool, error)
	Update(ctx context.Context, slot *model.TimeSlot) error
	Delete(ctx context.Context, id string, deletedBy string) error
}

type timeSlotRepo struct {
	db *gorm.DB
}

// NewTimeSlotRepo 创建 TimeSlotRepository 实例
func NewTimeSlotRepo(db *gorm.DB) TimeSlotRepository {
	return &timeSlotRepo{db: db}
}

func (r *timeSlotRepo) Create(ctx context.Context, slot *model.TimeSlot) error {
	return translateUnique(r.db.WithContext(ctx).Create(slot).Error)
}

func (r *timeSlotRepo) GetByID(ctx context.Context, institutionID, id string) (*model.TimeSlot, error) {
	var slot model.TimeSlot
	err := r.db.WithContext(ctx).
		Where("time_slot_id = ? AND institution_id = ?", id, institutionID).
		First(&slot).Error
	if err != nil {
		return nil, err
	}
	return &slot, nil
}

// Lock 加行锁读取时间段。已软删除的行读不到。
func (r *timeSlotRepo) Lock(ctx context.Context, institutionID, id string, mode LockMode) (*model.TimeSlot, error) {
	var slot model.TimeSlot
	err := r.db.WithContext(ctx).
		Clauses(mode.clause()).
		Where("time_slot_id = ? AND institution_id = ?", id, institutionID).
		First(&slot).Error
	if err != nil {
		return nil, err
	}
	return &slot, nil
}

func (r *timeSlotRepo) List(ctx context.Context, institutionID string, includeInactive bool) ([]model.TimeSlot, error) {
	var slots []model.TimeSlot
	db := r.db.WithContext(ctx).Where("institution_id = ?", institutionID)
	if !includeInactive {
		db = db.Where("is_active = ?", true)
	}
	err := db.Order("sequence_order ASC").Find(&slots).Error
	return slots, err
}

func (r *timeSlotRepo) SequenceTaken(ctx context.Context, institutionID string, sequence int, excludeID string) (bool, error) {
	var count int64
	db := r.db.WithContext(ctx).Model(&model.TimeSlot{}).
		Where("institution_id = ? AND sequence_order = ?", institutionID, sequence)
	if excludeID != "" {
		db = db.Where("time_slot_id <> ?", excludeID)
	}
	if err := db.Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *timeSlotRepo) Update(ctx context.Context, slot *model.TimeSlot) error {
	oldVersion := slot.Version
	result := r.db.WithContext(ctx).
		Model(slot).
		Where("time_slot_id = ? AND version = ?", slot.TimeSlotID, oldVersion).
		Updates(map[string]interface{}{
			"name":           slot.Name,
			"slot_type":      slot.SlotType,
			"start_time":     slot.StartTime,
			"end_time":       slot.EndTime,
			"sequence_order": slot.SequenceOrder,
			"applies_to":     slot.AppliesTo,
			"is_active":      slot.IsActive,
			"updated_by":     slot.UpdatedBy,
			"version":        oldVersion + 1,
		})
	if result.Error != nil {
		return translateUnique(result.Error)
	}
	if result.RowsAffected == 0 {
		return pkgerrors.ErrOptimisticLock
	}
	slot.Version = oldVersion + 1
	return nil
}

func (r *timeSlotRepo) Delete(ctx context.Context, id string, deletedBy string) error {
	return r.db.WithContext(ctx).
		Model(&model.TimeSlot{}).
		Where("time_slot_id = ?", id).
		Updates(map[string]interface{}{
			"deleted_by": deletedBy,
			"deleted_at": gorm.Expr("NOW()"),
		}).Error
}
