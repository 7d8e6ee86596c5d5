package model

// ── 枚举取值 ──
//
// 与迁移脚本中的 CHECK 约束保持一致。

// 时间段类型
const (
	SlotTypeLesson   = "lesson"
	SlotTypeBreak    = "break"
	SlotTypeLunch    = "lunch"
	SlotTypeAssembly = "assembly"
	SlotTypePrep     = "prep"
)

// 教室类型
const (
	RoomTypeClassroom  = "classroom"
	RoomTypeLaboratory = "laboratory"
	RoomTypeHall       = "hall"
	RoomTypeLibrary    = "library"
	RoomTypeSports     = "sports"
	RoomTypeVirtual    = "virtual"
	RoomTypeOther      = "other"
)

// 课表类型
const (
	TimetableTypeMain            = "main"
	TimetableTypeBoardingEvening = "boarding_evening"
	TimetableTypeSaturday        = "saturday"
	TimetableTypeExam            = "exam"
)

// 课表状态
const (
	TimetableStatusDraft     = "draft"
	TimetableStatusPublished = "published"
	TimetableStatusArchived  = "archived"
)

// 例外类型
const (
	ExceptionTypeSubstitution = "substitution"
	ExceptionTypeCancellation = "cancellation"
	ExceptionTypeRoomChange   = "room_change"
)

// 规则类型
const (
	ConstraintTypeTeacher = "teacher"
	ConstraintTypeSubject = "subject"
	ConstraintTypeRoom    = "room"
	ConstraintTypeGeneral = "general"
)

var (
	validSlotTypes = map[string]bool{
		SlotTypeLesson: true, SlotTypeBreak: true, SlotTypeLunch: true,
		SlotTypeAssembly: true, SlotTypePrep: true,
	}
	validRoomTypes = map[string]bool{
		RoomTypeClassroom: true, RoomTypeLaboratory: true, RoomTypeHall: true,
		RoomTypeLibrary: true, RoomTypeSports: true, RoomTypeVirtual: true, RoomTypeOther: true,
	}
	validTimetableTypes = map[string]bool{
		TimetableTypeMain: true, TimetableTypeBoardingEvening: true,
		TimetableTypeSaturday: true, TimetableTypeExam: true,
	}
	validExceptionTypes = map[string]bool{
		ExceptionTypeSubstitution: true, ExceptionTypeCancellation: true, ExceptionTypeRoomChange: true,
	}
	validConstraintTypes = map[string]bool{
		ConstraintTypeTeacher: true, ConstraintTypeSubject: true,
		ConstraintTypeRoom: true, ConstraintTypeGeneral: true,
	}
)

// IsValidSlotType 时间段类型是否合法
func IsValidSlotType(t string) bool { return validSlotTypes[t] }

// IsValidRoomType 教室类型是否合法
func IsValidRoomType(t string) bool { return validRoomTypes[t] }

// IsValidTimetableType 课表类型是否合法
func IsValidTimetableType(t string) bool { return validTimetableTypes[t] }

// IsValidExceptionType 例外类型是否合法
func IsValidExceptionType(t string) bool { return validExceptionTypes[t] }

// IsValidConstraintType 规则类型是否合法
func IsValidConstraintType(t string) bool { return validConstraintTypes[t] }

// IsTeachingSlot 只有 lesson 类型的时间段可以排课展示为课程格
func IsTeachingSlot(t string) bool { return t == SlotTypeLesson }
