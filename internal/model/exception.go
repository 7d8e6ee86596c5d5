package model

import "time"

// TimetableException 单日例外（代课 / 停课 / 换教室）— 对应 timetable_exceptions。
// 原排课记录从不被修改，撤销例外即删除本记录。
type TimetableException struct {
	ExceptionID         string    `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"exception_id"`
	TimetableEntryID    string    `gorm:"type:uuid;not null"                             json:"timetable_entry_id"`
	ExceptionDate       time.Time `gorm:"type:date;not null"                             json:"exception_date"`
	ExceptionType       string    `gorm:"type:varchar(20);not null"                      json:"exception_type"` // substitution | cancellation | room_change
	SubstituteTeacherID *string   `gorm:"type:uuid"                                      json:"substitute_teacher_id,omitempty"`
	SubstituteRoomID    *string   `gorm:"type:uuid"                                      json:"substitute_room_id,omitempty"`
	Reason              string    `gorm:"type:varchar(500);not null;default:''"          json:"reason"`
	BaseModel

	// 关联
	Entry             *TimetableEntry `gorm:"foreignKey:TimetableEntryID;references:EntryID" json:"entry,omitempty"`
	SubstituteTeacher *Teacher        `gorm:"foreignKey:SubstituteTeacherID;references:TeacherID" json:"substitute_teacher,omitempty"`
	SubstituteRoom    *Room           `gorm:"foreignKey:SubstituteRoomID;references:RoomID" json:"substitute_room,omitempty"`
}

func (TimetableException) TableName() string { return "timetable_exceptions" }

// Occupant 某条排课在指定日期的实际占用：教师与教室。
// Cancelled 为 true 时该排课当天不占用任何资源。
type Occupant struct {
	Entry     *TimetableEntry
	TeacherID string
	RoomID    *string
	Cancelled bool
	Exception *TimetableException
}

// ApplyException 将当天的例外叠加到排课上，得到实际占用
func ApplyException(entry *TimetableEntry, exc *TimetableException) Occupant {
	occ := Occupant{Entry: entry, TeacherID: entry.TeacherID, RoomID: entry.RoomID, Exception: exc}
	if exc == nil {
		return occ
	}
	switch exc.ExceptionType {
	case ExceptionTypeCancellation:
		occ.Cancelled = true
	case ExceptionTypeSubstitution:
		if exc.SubstituteTeacherID != nil {
			occ.TeacherID = *exc.SubstituteTeacherID
		}
		if exc.SubstituteRoomID != nil {
			occ.RoomID = exc.SubstituteRoomID
		}
	case ExceptionTypeRoomChange:
		if exc.SubstituteRoomID != nil {
			occ.RoomID = exc.SubstituteRoomID
		}
	}
	return occ
}
