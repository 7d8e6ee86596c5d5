package dto

// ── 排课模块 DTO ──

// CreateEntryRequest 新增排课请求
type CreateEntryRequest struct {
	ClassID        string  `json:"class_id"         binding:"required,uuid"`
	SubjectID      string  `json:"subject_id"       binding:"required,uuid"`
	TeacherID      string  `json:"teacher_id"       binding:"required,uuid"`
	RoomID         *string `json:"room_id"          binding:"omitempty,uuid"`
	TimeSlotID     string  `json:"time_slot_id"     binding:"required,uuid"`
	DayOfWeek      int     `json:"day_of_week"`
	IsDoublePeriod bool    `json:"is_double_period"`
	Notes          *string `json:"notes"            binding:"omitempty,max=500"`
}

// UpdateEntryRequest 修改排课请求，nil 字段保持不变。
// RemoveRoom 为 true 时清空教室；Version 不为空时必须与当前版本一致。
type UpdateEntryRequest struct {
	ClassID        *string `json:"class_id"         binding:"omitempty,uuid"`
	SubjectID      *string `json:"subject_id"       binding:"omitempty,uuid"`
	TeacherID      *string `json:"teacher_id"       binding:"omitempty,uuid"`
	RoomID         *string `json:"room_id"          binding:"omitempty,uuid"`
	RemoveRoom     bool    `json:"remove_room"`
	TimeSlotID     *string `json:"time_slot_id"     binding:"omitempty,uuid"`
	DayOfWeek      *int    `json:"day_of_week"`
	IsDoublePeriod *bool   `json:"is_double_period"`
	Notes          *string `json:"notes"            binding:"omitempty,max=500"`
	Version        *int    `json:"version"`
}

// EntryListRequest 排课列表筛选参数
type EntryListRequest struct {
	ClassID   string `form:"class_id"    binding:"omitempty,uuid"`
	TeacherID string `form:"teacher_id"  binding:"omitempty,uuid"`
	RoomID    string `form:"room_id"     binding:"omitempty,uuid"`
	DayOfWeek int    `form:"day_of_week" binding:"omitempty,min=1,max=7"`
}

// EntryResponse 排课信息响应（含名称，供前端直接展示）
type EntryResponse struct {
	ID             string    `json:"id"`
	TimetableID    string    `json:"timetable_id"`
	Class          NamedRef  `json:"class"`
	Subject        NamedRef  `json:"subject"`
	Teacher        NamedRef  `json:"teacher"`
	Room           *NamedRef `json:"room,omitempty"`
	TimeSlot       SlotBrief `json:"time_slot"`
	DayOfWeek      int       `json:"day_of_week"`
	IsDoublePeriod bool      `json:"is_double_period"`
	Notes          *string   `json:"notes,omitempty"`
	Version        int       `json:"version"`
	CreatedAt      string    `json:"created_at"`
	UpdatedAt      string    `json:"updated_at"`
}

// SlotBrief 时间段简要信息（嵌入排课响应）
type SlotBrief struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	StartTime     string `json:"start_time"`
	EndTime       string `json:"end_time"`
	SequenceOrder int    `json:"sequence_order"`
}

// EntryWriteResponse 新增 / 修改排课的结果：写入后的排课 + 软性规则警告
type EntryWriteResponse struct {
	Entry    EntryResponse         `json:"entry"`
	Warnings []ConstraintViolation `json:"warnings"`
}

// ClashCheckRequest 冲突预检请求
type ClashCheckRequest struct {
	TeacherID      *string `json:"teacher_id"       binding:"omitempty,uuid"`
	RoomID         *string `json:"room_id"          binding:"omitempty,uuid"`
	DayOfWeek      int     `json:"day_of_week"`
	TimeSlotID     string  `json:"time_slot_id"     binding:"required,uuid"`
	ExcludeEntryID *string `json:"exclude_entry_id" binding:"omitempty,uuid"`
}
