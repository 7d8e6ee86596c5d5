package model

import "gorm.io/datatypes"

// Constraint 软性排课规则 — 对应 scheduling_constraints。
// 违反规则只产生警告，从不阻止保存。
type Constraint struct {
	ConstraintID   string         `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"constraint_id"`
	InstitutionID  string         `gorm:"type:uuid;not null"                             json:"institution_id"`
	ConstraintType string         `gorm:"type:varchar(20);not null"                      json:"constraint_type"` // teacher | subject | room | general
	Name           string         `gorm:"type:varchar(100);not null"                     json:"name"`
	Config         datatypes.JSON `gorm:"type:jsonb;not null;default:'{}'"               json:"config"`
	Priority       int            `gorm:"not null;default:0"                             json:"priority"`
	IsActive       bool           `gorm:"not null;default:true"                          json:"is_active"`
	VersionedModel
}

func (Constraint) TableName() string { return "scheduling_constraints" }
