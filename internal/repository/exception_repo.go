package repository

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"campus-timetable/backend/internal/model"
)

// ExceptionRepository 单日例外数据访问接口
type ExceptionRepository interface {
	Create(ctx context.Context, exc *model.TimetableException) error
	GetByID(ctx context.Context, id string) (*model.TimetableException, error)
	ListByEntry(ctx context.Context, entryID string) ([]model.TimetableException, error)
	CountByEntry(ctx context.Context, entryID string) (int64, error)
	ListByTimetable(ctx context.Context, timetableID string, from, to *time.Time) ([]model.TimetableException, error)
	ListByBucketDate(ctx context.Context, bucket Bucket, date time.Time) ([]model.TimetableException, error)
	Delete(ctx context.Context, id string) error
	DeleteByEntry(ctx context.Context, entryID string) error
	DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error)
	LockDateSlot(ctx context.Context, bucket Bucket, date time.Time) error
}

type exceptionRepo struct {
	db *gorm.DB
}

// NewExceptionRepo 创建 ExceptionRepository 实例
func NewExceptionRepo(db *gorm.DB) ExceptionRepository {
	return &exceptionRepo{db: db}
}

func (r *exceptionRepo) Create(ctx context.Context, exc *model.TimetableException) error {
	return translateUnique(r.db.WithContext(ctx).
		Omit("Entry", "SubstituteTeacher", "SubstituteRoom").
		Create(exc).Error)
}

func (r *exceptionRepo) GetByID(ctx context.Context, id string) (*model.TimetableException, error) {
	var exc model.TimetableException
	err := r.db.WithContext(ctx).
		Preload("Entry").
		Preload("SubstituteTeacher").
		Preload("SubstituteRoom", func(tx *gorm.DB) *gorm.DB { return tx.Unscoped() }).
		Where("exception_id = ?", id).
		First(&exc).Error
	if err != nil {
		return nil, err
	}
	return &exc, nil
}

func (r *exceptionRepo) ListByEntry(ctx context.Context, entryID string) ([]model.TimetableException, error) {
	var list []model.TimetableException
	err := r.db.WithContext(ctx).
		Preload("SubstituteTeacher").
		Preload("SubstituteRoom", func(tx *gorm.DB) *gorm.DB { return tx.Unscoped() }).
		Where("timetable_entry_id = ?", entryID).
		Order("exception_date ASC").
		Find(&list).Error
	return list, err
}

func (r *exceptionRepo) CountByEntry(ctx context.Context, entryID string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.TimetableException{}).
		Where("timetable_entry_id = ?", entryID).
		Count(&count).Error
	return count, err
}

func (r *exceptionRepo) ListByTimetable(ctx context.Context, timetableID string, from, to *time.Time) ([]model.TimetableException, error) {
	var list []model.TimetableException
	db := r.db.WithContext(ctx).
		Preload("SubstituteTeacher").
		Preload("SubstituteRoom", func(tx *gorm.DB) *gorm.DB { return tx.Unscoped() }).
		Joins("JOIN timetable_entries te ON te.timetable_entry_id = timetable_exceptions.timetable_entry_id").
		Where("te.timetable_id = ?", timetableID)
	if from != nil {
		db = db.Where("timetable_exceptions.exception_date >= ?", *from)
	}
	if to != nil {
		db = db.Where("timetable_exceptions.exception_date <= ?", *to)
	}
	err := db.Order("timetable_exceptions.exception_date ASC, timetable_exceptions.created_at ASC").
		Find(&list).Error
	return list, err
}

func (r *exceptionRepo) ListByBucketDate(ctx context.Context, bucket Bucket, date time.Time) ([]model.TimetableException, error) {
	var list []model.TimetableException
	err := r.db.WithContext(ctx).
		Preload("SubstituteTeacher").
		Joins("JOIN timetable_entries te ON te.timetable_entry_id = timetable_exceptions.timetable_entry_id").
		Where("te.timetable_id = ? AND te.day_of_week = ? AND te.time_slot_id = ? AND timetable_exceptions.exception_date = ?",
			bucket.TimetableID, bucket.DayOfWeek, bucket.TimeSlotID, date).
		Find(&list).Error
	return list, err
}

func (r *exceptionRepo) Delete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).
		Where("exception_id = ?", id).
		Delete(&model.TimetableException{}).Error
}

func (r *exceptionRepo) DeleteByEntry(ctx context.Context, entryID string) error {
	return r.db.WithContext(ctx).
		Where("timetable_entry_id = ?", entryID).
		Delete(&model.TimetableException{}).Error
}

func (r *exceptionRepo) DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("exception_date < ?", cutoff).
		Delete(&model.TimetableException{})
	return result.RowsAffected, result.Error
}

// LockDateSlot 获取 (课表, 日期, 时间段) 的事务级咨询锁，事务结束自动释放。
// 必须在 Repository.Transaction 内调用。
func (r *exceptionRepo) LockDateSlot(ctx context.Context, bucket Bucket, date time.Time) error {
	key := fmt.Sprintf("exception:%s:%s:%s", bucket.TimetableID, date.Format("2006-01-02"), bucket.TimeSlotID)
	return r.db.WithContext(ctx).Exec("SELECT pg_advisory_xact_lock(hashtextextended(?, 0))", key).Error
}
