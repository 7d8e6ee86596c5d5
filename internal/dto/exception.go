package dto

// ── 单日例外模块 DTO ──

// CreateExceptionRequest 新增例外请求
type CreateExceptionRequest struct {
	ExceptionDate       string  `json:"exception_date"        binding:"required,isodate"`
	ExceptionType       string  `json:"exception_type"        binding:"required"`
	SubstituteTeacherID *string `json:"substitute_teacher_id" binding:"omitempty,uuid"`
	SubstituteRoomID    *string `json:"substitute_room_id"    binding:"omitempty,uuid"`
	Reason              string  `json:"reason"                binding:"omitempty,max=500"`
}

// ExceptionRangeRequest 按日期区间查询例外
type ExceptionRangeRequest struct {
	From string `form:"from" binding:"omitempty,isodate"`
	To   string `form:"to"   binding:"omitempty,isodate"`
}

// ExceptionResponse 例外信息响应
type ExceptionResponse struct {
	ID                string    `json:"id"`
	EntryID           string    `json:"entry_id"`
	ExceptionDate     string    `json:"exception_date"`
	ExceptionType     string    `json:"exception_type"`
	SubstituteTeacher *NamedRef `json:"substitute_teacher,omitempty"`
	SubstituteRoom    *NamedRef `json:"substitute_room,omitempty"`
	Reason            string    `json:"reason"`
	CreatedAt         string    `json:"created_at"`
}

// CalendarRequest 日历订阅的日期区间
type CalendarRequest struct {
	From string `form:"from" binding:"required,isodate"`
	To   string `form:"to"   binding:"required,isodate"`
}
