package dto

// ── 作息时间段模块 DTO ──

// CreateTimeSlotRequest 创建时间段请求
type CreateTimeSlotRequest struct {
	Name          string `json:"name"           binding:"required,min=1,max=50"`
	SlotType      string `json:"slot_type"      binding:"required"`
	StartTime     string `json:"start_time"     binding:"required,hhmm"` // "08:00"
	EndTime       string `json:"end_time"       binding:"required,hhmm"` // "08:45"
	SequenceOrder int    `json:"sequence_order" binding:"required,min=1"`
	AppliesTo     []int  `json:"applies_to"` // 空表示每天
}

// UpdateTimeSlotRequest 更新时间段请求，nil 字段保持不变
type UpdateTimeSlotRequest struct {
	Name          *string `json:"name"           binding:"omitempty,min=1,max=50"`
	SlotType      *string `json:"slot_type"`
	StartTime     *string `json:"start_time"     binding:"omitempty,hhmm"`
	EndTime       *string `json:"end_time"       binding:"omitempty,hhmm"`
	SequenceOrder *int    `json:"sequence_order" binding:"omitempty,min=1"`
	AppliesTo     *[]int  `json:"applies_to"`
	IsActive      *bool   `json:"is_active"`
}

// TimeSlotListRequest 时间段列表查询参数
type TimeSlotListRequest struct {
	IncludeInactive bool `form:"include_inactive"`
}

// TimeSlotResponse 时间段信息响应
type TimeSlotResponse struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	SlotType      string `json:"slot_type"`
	StartTime     string `json:"start_time"`
	EndTime       string `json:"end_time"`
	SequenceOrder int    `json:"sequence_order"`
	AppliesTo     []int  `json:"applies_to"`
	IsActive      bool   `json:"is_active"`
	Version       int    `json:"version"`
	CreatedAt     string `json:"created_at"`
	UpdatedAt     string `json:"updated_at"`
}
