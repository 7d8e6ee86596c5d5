package dto

// ── 课表模块 DTO ──

// CreateTimetableRequest 创建课表请求（初始状态为草稿）
type CreateTimetableRequest struct {
	AcademicYearID string  `json:"academic_year_id" binding:"required,uuid"`
	TermID         *string `json:"term_id"          binding:"omitempty,uuid"`
	Name           string  `json:"name"             binding:"required,min=1,max=100"`
	TimetableType  string  `json:"timetable_type"`
	EffectiveFrom  *string `json:"effective_from"   binding:"omitempty,isodate"`
	EffectiveTo    *string `json:"effective_to"     binding:"omitempty,isodate"`
}

// UpdateTimetableRequest 更新课表请求（仅草稿可改）
type UpdateTimetableRequest struct {
	Name          *string `json:"name"           binding:"omitempty,min=1,max=100"`
	EffectiveFrom *string `json:"effective_from" binding:"omitempty,isodate"`
	EffectiveTo   *string `json:"effective_to"   binding:"omitempty,isodate"`
	Version       *int    `json:"version"`
}

// TimetableListRequest 课表列表查询参数
type TimetableListRequest struct {
	PaginationRequest
	AcademicYearID string `form:"academic_year_id" binding:"omitempty,uuid"`
	TermID         string `form:"term_id"          binding:"omitempty,uuid"`
	TimetableType  string `form:"timetable_type"`
	Status         string `form:"status"           binding:"omitempty,oneof=draft published archived"`
}

// TimetableResponse 课表信息响应
type TimetableResponse struct {
	ID             string  `json:"id"`
	AcademicYearID string  `json:"academic_year_id"`
	TermID         *string `json:"term_id,omitempty"`
	Name           string  `json:"name"`
	TimetableType  string  `json:"timetable_type"`
	Status         string  `json:"status"`
	EffectiveFrom  *string `json:"effective_from,omitempty"`
	EffectiveTo    *string `json:"effective_to,omitempty"`
	PublishedAt    *string `json:"published_at,omitempty"`
	PublishedBy    *string `json:"published_by,omitempty"`
	Version        int     `json:"version"`
	CreatedAt      string  `json:"created_at"`
	UpdatedAt      string  `json:"updated_at"`
}
