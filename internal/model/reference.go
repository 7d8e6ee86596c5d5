package model

import "time"

// 班级、科目、教师由外部教务系统维护，本服务只读。

// Class 班级表 — 对应 classes
type Class struct {
	ClassID       string    `gorm:"type:uuid;primaryKey" json:"class_id"`
	InstitutionID string    `gorm:"type:uuid;not null"   json:"institution_id"`
	Name          string    `gorm:"type:varchar(100)"    json:"name"`
	CreatedAt     time.Time `json:"created_at"`
}

func (Class) TableName() string { return "classes" }

// Subject 科目表 — 对应 subjects
type Subject struct {
	SubjectID     string    `gorm:"type:uuid;primaryKey" json:"subject_id"`
	InstitutionID string    `gorm:"type:uuid;not null"   json:"institution_id"`
	Name          string    `gorm:"type:varchar(100)"    json:"name"`
	CreatedAt     time.Time `json:"created_at"`
}

func (Subject) TableName() string { return "subjects" }

// Teacher 教师表 — 对应 teachers
type Teacher struct {
	TeacherID     string    `gorm:"type:uuid;primaryKey" json:"teacher_id"`
	InstitutionID string    `gorm:"type:uuid;not null"   json:"institution_id"`
	Name          string    `gorm:"type:varchar(100)"    json:"name"`
	CreatedAt     time.Time `json:"created_at"`
}

func (Teacher) TableName() string { return "teachers" }
