package repository

import (
	"context"

	"gorm.io/gorm"

	"campus-timetable/backend/internal/model"
	pkgerrors "campus-timetable/backend/pkg/errors"
)

// EntryFilter 排课列表筛选条件，零值字段不参与筛选
type EntryFilter struct {
	ClassID   string
	TeacherID string
	RoomID    string
	DayOfWeek int
}

// Bucket 冲突判定的最小单元：(课表, 星期, 时间段)
type Bucket struct {
	TimetableID string
	DayOfWeek   int
	TimeSlotID  string
}

// EntryRepository 排课明细数据访问接口
type EntryRepository interface {
	Create(ctx context.Context, entry *model.TimetableEntry) error
	GetByID(ctx context.Context, id string) (*model.TimetableEntry, error)
	Lock(ctx context.Context, id string, mode LockMode) (*model.TimetableEntry, error)
	ListByTimetable(ctx context.Context, timetableID string, filter EntryFilter) ([]model.TimetableEntry, error)
	ListByBucket(ctx context.Context, bucket Bucket) ([]model.TimetableEntry, error)
	FindTeacherOccupant(ctx context.Context, bucket Bucket, teacherID, excludeID string) (*model.TimetableEntry, error)
	FindRoomOccupant(ctx context.Context, bucket Bucket, roomID, excludeID string) (*model.TimetableEntry, error)
	CountTeacherDay(ctx context.Context, timetableID string, day int, teacherID, excludeID string) (int64, error)
	CountClassSubjectDay(ctx context.Context, timetableID string, day int, classID, subjectID, excludeID string) (int64, error)
	CountBySlot(ctx context.Context, slotID string) (int64, error)
	CountBySlotDays(ctx context.Context, slotID string, days []int) (int64, error)
	CountByRoom(ctx context.Context, roomID string) (int64, error)
	Update(ctx context.Context, entry *model.TimetableEntry) error
	Delete(ctx context.Context, id string) error
}

type entryRepo struct {
	db *gorm.DB
}

// NewEntryRepo 创建 EntryRepository 实例
func NewEntryRepo(db *gorm.DB) EntryRepository {
	return &entryRepo{db: db}
}

// withNames 预加载展示所需的名称。
// 教室、时间段使用 Unscoped，已软删除的记录仍可显示名称。
func withNames(db *gorm.DB) *gorm.DB {
	return db.
		Preload("Class").
		Preload("Subject").
		Preload("Teacher").
		Preload("Room", func(tx *gorm.DB) *gorm.DB { return tx.Unscoped() }).
		Preload("TimeSlot", func(tx *gorm.DB) *gorm.DB { return tx.Unscoped() })
}

func (r *entryRepo) Create(ctx context.Context, entry *model.TimetableEntry) error {
	return translateUnique(r.db.WithContext(ctx).Omit("Class", "Subject", "Teacher", "Room", "TimeSlot").Create(entry).Error)
}

func (r *entryRepo) GetByID(ctx context.Context, id string) (*model.TimetableEntry, error) {
	var entry model.TimetableEntry
	err := withNames(r.db.WithContext(ctx)).
		Where("timetable_entry_id = ?", id).
		First(&entry).Error
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

// Lock 加行锁读取排课，不预加载关联
func (r *entryRepo) Lock(ctx context.Context, id string, mode LockMode) (*model.TimetableEntry, error) {
	var entry model.TimetableEntry
	err := r.db.WithContext(ctx).
		Clauses(mode.clause()).
		Where("timetable_entry_id = ?", id).
		First(&entry).Error
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

func (r *entryRepo) ListByTimetable(ctx context.Context, timetableID string, filter EntryFilter) ([]model.TimetableEntry, error) {
	var entries []model.TimetableEntry
	db := withNames(r.db.WithContext(ctx)).
		Joins("JOIN time_slots ts ON ts.time_slot_id = timetable_entries.time_slot_id").
		Where("timetable_entries.timetable_id = ?", timetableID)

	if filter.ClassID != "" {
		db = db.Where("timetable_entries.class_id = ?", filter.ClassID)
	}
	if filter.TeacherID != "" {
		db = db.Where("timetable_entries.teacher_id = ?", filter.TeacherID)
	}
	if filter.RoomID != "" {
		db = db.Where("timetable_entries.room_id = ?", filter.RoomID)
	}
	if filter.DayOfWeek != 0 {
		db = db.Where("timetable_entries.day_of_week = ?", filter.DayOfWeek)
	}

	err := db.Order("timetable_entries.day_of_week ASC, ts.sequence_order ASC").
		Find(&entries).Error
	return entries, err
}

func (r *entryRepo) ListByBucket(ctx context.Context, bucket Bucket) ([]model.TimetableEntry, error) {
	var entries []model.TimetableEntry
	err := withNames(r.db.WithContext(ctx)).
		Where("timetable_id = ? AND day_of_week = ? AND time_slot_id = ?",
			bucket.TimetableID, bucket.DayOfWeek, bucket.TimeSlotID).
		Order("created_at ASC").
		Find(&entries).Error
	return entries, err
}

func (r *entryRepo) FindTeacherOccupant(ctx context.Context, bucket Bucket, teacherID, excludeID string) (*model.TimetableEntry, error) {
	var entry model.TimetableEntry
	db := r.db.WithContext(ctx).
		Preload("Class").Preload("Subject").
		Where("timetable_id = ? AND day_of_week = ? AND time_slot_id = ? AND teacher_id = ?",
			bucket.TimetableID, bucket.DayOfWeek, bucket.TimeSlotID, teacherID)
	if excludeID != "" {
		db = db.Where("timetable_entry_id <> ?", excludeID)
	}
	if err := db.First(&entry).Error; err != nil {
		return nil, err
	}
	return &entry, nil
}

func (r *entryRepo) FindRoomOccupant(ctx context.Context, bucket Bucket, roomID, excludeID string) (*model.TimetableEntry, error) {
	var entry model.TimetableEntry
	db := r.db.WithContext(ctx).
		Preload("Class").Preload("Teacher").
		Where("timetable_id = ? AND day_of_week = ? AND time_slot_id = ? AND room_id = ?",
			bucket.TimetableID, bucket.DayOfWeek, bucket.TimeSlotID, roomID)
	if excludeID != "" {
		db = db.Where("timetable_entry_id <> ?", excludeID)
	}
	if err := db.First(&entry).Error; err != nil {
		return nil, err
	}
	return &entry, nil
}

func (r *entryRepo) CountTeacherDay(ctx context.Context, timetableID string, day int, teacherID, excludeID string) (int64, error) {
	var count int64
	db := r.db.WithContext(ctx).Model(&model.TimetableEntry{}).
		Where("timetable_id = ? AND day_of_week = ? AND teacher_id = ?", timetableID, day, teacherID)
	if excludeID != "" {
		db = db.Where("timetable_entry_id <> ?", excludeID)
	}
	err := db.Count(&count).Error
	return count, err
}

func (r *entryRepo) CountClassSubjectDay(ctx context.Context, timetableID string, day int, classID, subjectID, excludeID string) (int64, error) {
	var count int64
	db := r.db.WithContext(ctx).Model(&model.TimetableEntry{}).
		Where("timetable_id = ? AND day_of_week = ? AND class_id = ? AND subject_id = ?",
			timetableID, day, classID, subjectID)
	if excludeID != "" {
		db = db.Where("timetable_entry_id <> ?", excludeID)
	}
	err := db.Count(&count).Error
	return count, err
}

func (r *entryRepo) CountBySlot(ctx context.Context, slotID string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.TimetableEntry{}).
		Where("time_slot_id = ?", slotID).
		Count(&count).Error
	return count, err
}

// CountBySlotDays 统计该时间段在指定星期上的排课数
func (r *entryRepo) CountBySlotDays(ctx context.Context, slotID string, days []int) (int64, error) {
	if len(days) == 0 {
		return 0, nil
	}
	var count int64
	err := r.db.WithContext(ctx).Model(&model.TimetableEntry{}).
		Where("time_slot_id = ? AND day_of_week IN ?", slotID, days).
		Count(&count).Error
	return count, err
}

func (r *entryRepo) CountByRoom(ctx context.Context, roomID string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.TimetableEntry{}).
		Where("room_id = ?", roomID).
		Count(&count).Error
	return count, err
}

func (r *entryRepo) Update(ctx context.Context, entry *model.TimetableEntry) error {
	oldVersion := entry.Version
	result := r.db.WithContext(ctx).
		Model(&model.TimetableEntry{}).
		Where("timetable_entry_id = ? AND version = ?", entry.EntryID, oldVersion).
		Updates(map[string]interface{}{
			"class_id":         entry.ClassID,
			"subject_id":       entry.SubjectID,
			"teacher_id":       entry.TeacherID,
			"room_id":          entry.RoomID,
			"time_slot_id":     entry.TimeSlotID,
			"day_of_week":      entry.DayOfWeek,
			"is_double_period": entry.IsDoublePeriod,
			"notes":            entry.Notes,
			"updated_by":       entry.UpdatedBy,
			"version":          oldVersion + 1,
		})
	if result.Error != nil {
		return translateUnique(result.Error)
	}
	if result.RowsAffected == 0 {
		return pkgerrors.ErrOptimisticLock
	}
	entry.Version = oldVersion + 1
	return nil
}

func (r *entryRepo) Delete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).
		Where("timetable_entry_id = ?", id).
		Delete(&model.TimetableEntry{}).Error
}
