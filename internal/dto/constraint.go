package dto

import "encoding/json"

// ── 排课规则模块 DTO ──

// CreateConstraintRequest 创建规则请求，config 结构随 constraint_type 变化
type CreateConstraintRequest struct {
	ConstraintType string          `json:"constraint_type" binding:"required"`
	Name           string          `json:"name"            binding:"required,min=1,max=100"`
	Config         json.RawMessage `json:"config"          binding:"required"`
	Priority       int             `json:"priority"`
	IsActive       *bool           `json:"is_active"`
}

// UpdateConstraintRequest 更新规则请求，nil 字段保持不变（类型不可修改）
type UpdateConstraintRequest struct {
	Name     *string         `json:"name"      binding:"omitempty,min=1,max=100"`
	Config   json.RawMessage `json:"config"`
	Priority *int            `json:"priority"`
	IsActive *bool           `json:"is_active"`
}

// ConstraintListRequest 规则列表查询参数
type ConstraintListRequest struct {
	ActiveOnly bool `form:"active_only"`
}

// ConstraintResponse 规则信息响应
type ConstraintResponse struct {
	ID             string          `json:"id"`
	ConstraintType string          `json:"constraint_type"`
	Name           string          `json:"name"`
	Config         json.RawMessage `json:"config"`
	Priority       int             `json:"priority"`
	IsActive       bool            `json:"is_active"`
	Version        int             `json:"version"`
	CreatedAt      string          `json:"created_at"`
	UpdatedAt      string          `json:"updated_at"`
}

// ConstraintViolation 违反的软性规则（仅警告）
type ConstraintViolation struct {
	ConstraintID string `json:"constraint_id"`
	Name         string `json:"name"`
	Type         string `json:"type"`
	Priority     int    `json:"priority"`
	Message      string `json:"message"`
}

// EvaluateConstraintsRequest 对拟排课程评估软性规则
type EvaluateConstraintsRequest struct {
	ClassID        string  `json:"class_id"         binding:"required,uuid"`
	SubjectID      string  `json:"subject_id"       binding:"required,uuid"`
	TeacherID      string  `json:"teacher_id"       binding:"required,uuid"`
	RoomID         *string `json:"room_id"          binding:"omitempty,uuid"`
	TimeSlotID     string  `json:"time_slot_id"     binding:"required,uuid"`
	DayOfWeek      int     `json:"day_of_week"      binding:"required,min=1,max=7"`
	ExcludeEntryID *string `json:"exclude_entry_id" binding:"omitempty,uuid"`
}
