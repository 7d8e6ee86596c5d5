package model

import "gorm.io/datatypes"

// Room 教室表 — 对应 rooms
type Room struct {
	RoomID        string                      `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"room_id"`
	InstitutionID string                      `gorm:"type:uuid;not null"                             json:"institution_id"`
	Name          string                      `gorm:"type:varchar(100);not null"                     json:"name"`
	Building      string                      `gorm:"type:varchar(100)"                              json:"building,omitempty"`
	Floor         int                         `gorm:"not null;default:0"                             json:"floor"`
	Capacity      int                         `gorm:"not null;default:0"                             json:"capacity"`
	RoomType      string                      `gorm:"type:varchar(20);not null;default:'classroom'"  json:"room_type"`
	Facilities    datatypes.JSONSlice[string] `gorm:"type:jsonb;not null;default:'[]'"               json:"facilities"`
	IsActive      bool                        `gorm:"not null;default:true"                          json:"is_active"`
	VersionedModel
}

// TableName 指定表名
func (Room) TableName() string { return "rooms" }
