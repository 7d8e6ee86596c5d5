package repository

import (
	"context"

	"gorm.io/gorm"

	"campus-timetable/backend/internal/model"
	pkgerrors "campus-timetable/backend/pkg/errors"
)

// RoomRepository 教室数据访问接口
type RoomRepository interface {
	Create(ctx context.Context, room *model.Room) error
	GetByID(ctx context.Context, institutionID, id string) (*model.Room, error)
	Lock(ctx context.Context, institutionID, id string, mode LockMode) (*model.Room, error)
	List(ctx context.Context, institutionID string, includeInactive bool) ([]model.Room, error)
	NameTaken(ctx context.Context, institutionID, name, excludeID string) (bool, error)
	Update(ctx context.Context, room *model.Room) error
	Delete(ctx context.Context, id string, deletedBy string) error
}

type roomRepo struct {
	db *gorm.DB
}

// NewRoomRepo 创建 RoomRepository 实例
func NewRoomRepo(db *gorm.DB) RoomRepository {
	return &roomRepo{db: db}
}

func (r *roomRepo) Create(ctx context.Context, room *model.Room) error {
	return translateUnique(r.db.WithContext(ctx).Create(room).Error)
}

func (r *roomRepo) GetByID(ctx context.Context, institutionID, id string) (*model.Room, error) {
	var room model.Room
	err := r.db.WithContext(ctx).
		Where("room_id = ? AND institution_id = ?", id, institutionID).
		First(&room).Error
	if err != nil {
		return nil, err
	}
	return &room, nil
}

// Lock 加行锁读取教室。已软删除的行读不到。
func (r *roomRepo) Lock(ctx context.Context, institutionID, id string, mode LockMode) (*model.Room, error) {
	var room model.Room
	err := r.db.WithContext(ctx).
		Clauses(mode.clause()).
		Where("room_id = ? AND institution_id = ?", id, institutionID).
		First(&room).Error
	if err != nil {
		return nil, err
	}
	return &room, nil
}

func (r *roomRepo) List(ctx context.Context, institutionID string, includeInactive bool) ([]model.Room, error) {
	var rooms []model.Room
	db := r.db.WithContext(ctx).Where("institution_id = ?", institutionID)
	if !includeInactive {
		db = db.Where("is_active = ?", true)
	}
	err := db.Order("building ASC, floor ASC, name ASC").Find(&rooms).Error
	return rooms, err
}

func (r *roomRepo) NameTaken(ctx context.Context, institutionID, name, excludeID string) (bool, error) {
	var count int64
	db := r.db.WithContext(ctx).Model(&model.Room{}).
		Where("institution_id = ? AND name = ?", institutionID, name)
	if excludeID != "" {
		db = db.Where("room_id <> ?", excludeID)
	}
	if err := db.Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *roomRepo) Update(ctx context.Context, room *model.Room) error {
	oldVersion := room.Version
	result := r.db.WithContext(ctx).
		Model(room).
		Where("room_id = ? AND version = ?", room.RoomID, oldVersion).
		Updates(map[string]interface{}{
			"name":       room.Name,
			"building":   room.Building,
			"floor":      room.Floor,
			"capacity":   room.Capacity,
			"room_type":  room.RoomType,
			"facilities": room.Facilities,
			"is_active":  room.IsActive,
			"updated_by": room.UpdatedBy,
			"version":    oldVersion + 1,
		})
	if result.Error != nil {
		return translateUnique(result.Error)
	}
	if result.RowsAffected == 0 {
		return pkgerrors.ErrOptimisticLock
	}
	room.Version = oldVersion + 1
	return nil
}

func (r *roomRepo) Delete(ctx context.Context, id string, deletedBy string) error {
	return r.db.WithContext(ctx).
		Model(&model.Room{}).
		Where("room_id = ?", id).
		Updates(map[string]interface{}{
			"deleted_by": deletedBy,
			"deleted_at": gorm.Expr("NOW()"),
		}).Error
}
