package repository

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
)

// 迁移脚本中声明的唯一约束 / 唯一索引名
const (
	ConstraintEntryTeacherSlot   = "uq_entries_teacher_slot"
	ConstraintEntryRoomSlot      = "uq_entries_room_slot"
	ConstraintTimeSlotSequence   = "uq_time_slots_sequence"
	ConstraintRoomName           = "uq_rooms_name"
	ConstraintTimetableDraft     = "uq_timetables_draft"
	ConstraintExceptionEntryDate = "uq_exceptions_entry_date"
)

// pgUniqueViolation PostgreSQL unique_violation 错误码
const pgUniqueViolation = "23505"

// DuplicateError 写入被唯一约束拒绝
type DuplicateError struct {
	Constraint string
	Err        error
}

func (e *DuplicateError) Error() string {
	return fmt.Sprintf("违反唯一约束 %s", e.Constraint)
}

func (e *DuplicateError) Unwrap() error { return e.Err }

// AsDuplicate 提取 DuplicateError
func AsDuplicate(err error) (*DuplicateError, bool) {
	var de *DuplicateError
	if errors.As(err, &de) {
		return de, true
	}
	return nil, false
}

// translateUnique 将驱动层唯一约束错误转换为 DuplicateError，其余错误原样返回
func translateUnique(err error) error {
	if err == nil {
		return nil
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
		return &DuplicateError{Constraint: pgErr.ConstraintName, Err: err}
	}
	return err
}
