package errors

import (
	"errors"
	"fmt"
)

// ── 错误类别 ──
//
// 各业务模块的哨兵错误都挂在以下类别之一上，
// Handler 层只按类别映射 HTTP 状态码，不关心具体模块。

var (
	// ErrValidation 输入不合法（时间倒置、枚举越界等），不可自动重试
	ErrValidation = errors.New("参数校验失败")
	// ErrNotFound 记录不存在或已被删除/修改，调用方应刷新后重试
	ErrNotFound = errors.New("记录不存在")
	// ErrForbidden 无权限，对外不暴露任何细节
	ErrForbidden = errors.New("无权限访问")
)

// ErrOptimisticLock 乐观锁冲突：记录已被其他操作修改
var ErrOptimisticLock = NotFound("数据已被其他操作修改，请刷新后重试")

// kindError 带类别的业务错误
type kindError struct {
	kind error
	msg  string
}

func (e *kindError) Error() string { return e.msg }
func (e *kindError) Unwrap() error { return e.kind }

// Validation 创建一个校验类业务错误
func Validation(msg string) error { return &kindError{kind: ErrValidation, msg: msg} }

// NotFound 创建一个不存在类业务错误
func NotFound(msg string) error { return &kindError{kind: ErrNotFound, msg: msg} }

// Forbidden 创建一个无权限类业务错误
func Forbidden(msg string) error { return &kindError{kind: ErrForbidden, msg: msg} }

// Validationf 在已有校验错误上追加上下文，保留 errors.Is 链
func Validationf(base error, format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", base, fmt.Sprintf(format, args...))
}

// ── 冲突 ──

// TeacherClashDetail 教师冲突详情：占用该时段的另一条排课
type TeacherClashDetail struct {
	EntryID     string `json:"entry_id"`
	ClassName   string `json:"class_name"`
	SubjectName string `json:"subject_name"`
}

// RoomClashDetail 教室冲突详情：占用该教室的另一条排课
type RoomClashDetail struct {
	EntryID     string `json:"entry_id"`
	ClassName   string `json:"class_name"`
	TeacherName string `json:"teacher_name"`
}

// ClashResult 冲突检测结果
type ClashResult struct {
	HasTeacherClash    bool                `json:"has_teacher_clash"`
	TeacherClashDetail *TeacherClashDetail `json:"teacher_clash_detail,omitempty"`
	HasRoomClash       bool                `json:"has_room_clash"`
	RoomClashDetail    *RoomClashDetail    `json:"room_clash_detail,omitempty"`
}

// HasClash 是否存在任一冲突
func (r *ClashResult) HasClash() bool {
	return r != nil && (r.HasTeacherClash || r.HasRoomClash)
}

// ClashError 教师或教室重复占用。
// 预检发现与存储层唯一约束拒绝返回同一形状，调用方无法也无需区分。
type ClashError struct {
	Result ClashResult
}

func (e *ClashError) Error() string {
	switch {
	case e.Result.HasTeacherClash && e.Result.HasRoomClash:
		return "教师与教室在该时段均已被占用"
	case e.Result.HasRoomClash:
		return "教室在该时段已被占用"
	default:
		return "教师在该时段已有课程"
	}
}

// NewClashError 由检测结果构造冲突错误
func NewClashError(result ClashResult) *ClashError {
	return &ClashError{Result: result}
}

// ── 占用中 ──

// InUseError 删除被仍在引用的记录拦截
type InUseError struct {
	Resource string
	Count    int64
}

func (e *InUseError) Error() string {
	return fmt.Sprintf("%s仍被 %d 条排课引用，无法删除", e.Resource, e.Count)
}

// AsClash 提取 ClashError
func AsClash(err error) (*ClashError, bool) {
	var ce *ClashError
	if errors.As(err, &ce) {
		return ce, true
	}
	return nil, false
}

// AsInUse 提取 InUseError
func AsInUse(err error) (*InUseError, bool) {
	var ie *InUseError
	if errors.As(err, &ie) {
		return ie, true
	}
	return nil, false
}
