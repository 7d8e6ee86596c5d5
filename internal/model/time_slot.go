package model

// TimeSlot 作息时间段表 — 对应 time_slots
type TimeSlot struct {
	TimeSlotID    string   `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"time_slot_id"`
	InstitutionID string   `gorm:"type:uuid;not null"                             json:"institution_id"`
	Name          string   `gorm:"type:varchar(50);not null"                      json:"name"`
	SlotType      string   `gorm:"type:varchar(20);not null;default:'lesson'"     json:"slot_type"` // lesson | break | lunch | assembly | prep
	StartTime     string   `gorm:"type:time;not null"                             json:"start_time"`
	EndTime       string   `gorm:"type:time;not null"                             json:"end_time"`
	SequenceOrder int      `gorm:"not null"                                       json:"sequence_order"`
	AppliesTo     IntArray `gorm:"type:int[];not null;default:'{}'"               json:"applies_to"` // 空数组表示每天
	IsActive      bool     `gorm:"not null;default:true"                          json:"is_active"`
	VersionedModel
}

// TableName 指定表名
func (TimeSlot) TableName() string { return "time_slots" }

// AppliesOn 该时间段在指定星期（1-7）是否生效
func (s *TimeSlot) AppliesOn(day int) bool {
	return len(s.AppliesTo) == 0 || s.AppliesTo.Has(day)
}

// ClockHHMM 将数据库返回的 "08:00:00" 截断为 "08:00"
func ClockHHMM(v string) string {
	if len(v) > 5 {
		return v[:5]
	}
	return v
}
