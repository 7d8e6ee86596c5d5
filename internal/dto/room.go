package dto

// ── 教室模块 DTO ──

// CreateRoomRequest 创建教室请求
type CreateRoomRequest struct {
	Name       string   `json:"name"       binding:"required,min=1,max=100"`
	Building   string   `json:"building"   binding:"omitempty,max=100"`
	Floor      int      `json:"floor"`
	Capacity   int      `json:"capacity"`
	RoomType   string   `json:"room_type"`
	Facilities []string `json:"facilities" binding:"omitempty,dive,min=1,max=50"`
}

// UpdateRoomRequest 更新教室请求，nil 字段保持不变
type UpdateRoomRequest struct {
	Name       *string   `json:"name"       binding:"omitempty,min=1,max=100"`
	Building   *string   `json:"building"   binding:"omitempty,max=100"`
	Floor      *int      `json:"floor"`
	Capacity   *int      `json:"capacity"`
	RoomType   *string   `json:"room_type"`
	Facilities *[]string `json:"facilities"`
	IsActive   *bool     `json:"is_active"`
}

// RoomListRequest 教室列表查询参数
type RoomListRequest struct {
	IncludeInactive bool `form:"include_inactive"`
}

// RoomResponse 教室信息响应
type RoomResponse struct {
	ID         string   `json:"id"`
	Name       string   `json:"name"`
	Building   string   `json:"building,omitempty"`
	Floor      int      `json:"floor"`
	Capacity   int      `json:"capacity"`
	RoomType   string   `json:"room_type"`
	Facilities []string `json:"facilities"`
	IsActive   bool     `json:"is_active"`
	Version    int      `json:"version"`
	CreatedAt  string   `json:"created_at"`
	UpdatedAt  string   `json:"updated_at"`
}
