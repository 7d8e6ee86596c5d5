package model

import "time"

// Timetable 课表 — 对应 timetables
type Timetable struct {
	TimetableID    string     `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"timetable_id"`
	InstitutionID  string     `gorm:"type:uuid;not null"                             json:"institution_id"`
	AcademicYearID string     `gorm:"type:uuid;not null"                             json:"academic_year_id"`
	TermID         *string    `gorm:"type:uuid"                                      json:"term_id,omitempty"`
	Name           string     `gorm:"type:varchar(100);not null"                     json:"name"`
	TimetableType  string     `gorm:"type:varchar(20);not null;default:'main'"       json:"timetable_type"` // main | boarding_evening | saturday | exam
	Status         string     `gorm:"type:varchar(20);not null;default:'draft'"      json:"status"`         // draft | published | archived
	EffectiveFrom  *time.Time `gorm:"type:date"                                      json:"effective_from,omitempty"`
	EffectiveTo    *time.Time `gorm:"type:date"                                      json:"effective_to,omitempty"`
	PublishedAt    *time.Time `json:"published_at,omitempty"`
	PublishedBy    *string    `gorm:"type:uuid" json:"published_by,omitempty"`
	RevisionModel
}

func (Timetable) TableName() string { return "timetables" }

// Covers 日期是否落在课表生效区间内（未设置边界视为不限）
func (t *Timetable) Covers(date time.Time) bool {
	if t.EffectiveFrom != nil && date.Before(*t.EffectiveFrom) {
		return false
	}
	if t.EffectiveTo != nil && date.After(*t.EffectiveTo) {
		return false
	}
	return true
}

// TimetableEntry 排课明细 — 对应 timetable_entries
type TimetableEntry struct {
	EntryID        string  `gorm:"column:timetable_entry_id;type:uuid;primaryKey;default:gen_random_uuid()" json:"timetable_entry_id"`
	TimetableID    string  `gorm:"type:uuid;not null"                                                       json:"timetable_id"`
	ClassID        string  `gorm:"type:uuid;not null"                                                       json:"class_id"`
	SubjectID      string  `gorm:"type:uuid;not null"                                                       json:"subject_id"`
	TeacherID      string  `gorm:"type:uuid;not null"                                                       json:"teacher_id"`
	RoomID         *string `gorm:"type:uuid"                                                                json:"room_id,omitempty"`
	TimeSlotID     string  `gorm:"type:uuid;not null"                                                       json:"time_slot_id"`
	DayOfWeek      int     `gorm:"type:smallint;not null"                                                   json:"day_of_week"` // 1-7，ISO 星期
	IsDoublePeriod bool    `gorm:"not null;default:false"                                                   json:"is_double_period"`
	Notes          *string `gorm:"type:varchar(500)"                                                        json:"notes,omitempty"`
	RevisionModel

	// 关联
	Class    *Class    `gorm:"foreignKey:ClassID;references:ClassID"       json:"class,omitempty"`
	Subject  *Subject  `gorm:"foreignKey:SubjectID;references:SubjectID"   json:"subject,omitempty"`
	Teacher  *Teacher  `gorm:"foreignKey:TeacherID;references:TeacherID"   json:"teacher,omitempty"`
	Room     *Room     `gorm:"foreignKey:RoomID;references:RoomID"         json:"room,omitempty"`
	TimeSlot *TimeSlot `gorm:"foreignKey:TimeSlotID;references:TimeSlotID" json:"time_slot,omitempty"`
}

func (TimetableEntry) TableName() string { return "timetable_entries" }

// SameRoom 是否与给定教室相同（均为空视为不同，空教室不参与冲突）
func (e *TimetableEntry) SameRoom(roomID *string) bool {
	return e.RoomID != nil && roomID != nil && *e.RoomID == *roomID
}
