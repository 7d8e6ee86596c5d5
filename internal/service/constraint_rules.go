package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"campus-timetable/backend/internal/dto"
	"campus-timetable/backend/internal/model"
	"campus-timetable/backend/internal/repository"
)

// proposal 待评估的排课（新增或修改后的形态）
type proposal struct {
	TimetableID string
	ClassID     string
	SubjectID   string
	TeacherID   string
	RoomID      *string
	TimeSlotID  string
	DayOfWeek   int
	ExcludeID   string
}

// rule 各类规则配置的统一行为。
// check 返回违反说明，未违反时返回空切片。
type rule interface {
	check(ctx context.Context, repo *repository.Repository, p proposal) ([]string, error)
}

// ── 规则配置 ──

type teacherRule struct {
	TeacherID          string   `json:"teacher_id"           validate:"required"`
	UnavailableDays    []int    `json:"unavailable_days"     validate:"omitempty,dive,min=1,max=7"`
	UnavailableSlotIDs []string `json:"unavailable_slot_ids" validate:"omitempty,dive,required"`
	MaxPeriodsPerDay   int      `json:"max_periods_per_day"  validate:"min=0"`
}

type subjectRule struct {
	SubjectID         string   `json:"subject_id"          validate:"required"`
	AllowedDays       []int    `json:"allowed_days"        validate:"omitempty,dive,min=1,max=7"`
	DisallowedSlotIDs []string `json:"disallowed_slot_ids" validate:"omitempty,dive,required"`
	MaxPeriodsPerDay  int      `json:"max_periods_per_day" validate:"min=0"`
}

type roomRule struct {
	RoomID             string   `json:"room_id"              validate:"required"`
	AllowedSubjectIDs  []string `json:"allowed_subject_ids"  validate:"omitempty,dive,required"`
	UnavailableDays    []int    `json:"unavailable_days"     validate:"omitempty,dive,min=1,max=7"`
	UnavailableSlotIDs []string `json:"unavailable_slot_ids" validate:"omitempty,dive,required"`
}

type generalRule struct {
	DisallowedDays    []int    `json:"disallowed_days"     validate:"omitempty,dive,min=1,max=7"`
	DisallowedSlotIDs []string `json:"disallowed_slot_ids" validate:"omitempty,dive,required"`
}

var ruleValidate = validator.New()

// parseRule 按规则类型解析配置，未知字段与越界取值均视为非法
func parseRule(constraintType string, raw []byte) (rule, error) {
	var r rule
	switch constraintType {
	case model.ConstraintTypeTeacher:
		r = &teacherRule{}
	case model.ConstraintTypeSubject:
		r = &subjectRule{}
	case model.ConstraintTypeRoom:
		r = &roomRule{}
	case model.ConstraintTypeGeneral:
		r = &generalRule{}
	default:
		return nil, ErrInvalidConstraintType
	}

	if len(bytes.TrimSpace(raw)) == 0 {
		raw = []byte("{}")
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(r); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidConstraintConfig, err.Error())
	}
	if err := ruleValidate.Struct(r); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidConstraintConfig, err.Error())
	}
	return r, nil
}

// matchDaySlot 同时给出星期与时间段时需两者都命中；只给出其一时命中该项即可
func matchDaySlot(days []int, slotIDs []string, day int, slotID string) bool {
	if len(days) == 0 && len(slotIDs) == 0 {
		return false
	}
	dayHit := len(days) == 0 || containsInt(days, day)
	slotHit := len(slotIDs) == 0 || containsString(slotIDs, slotID)
	return dayHit && slotHit
}

func (r *teacherRule) check(ctx context.Context, repo *repository.Repository, p proposal) ([]string, error) {
	if p.TeacherID != r.TeacherID {
		return nil, nil
	}
	var msgs []string
	if matchDaySlot(r.UnavailableDays, r.UnavailableSlotIDs, p.DayOfWeek, p.TimeSlotID) {
		msgs = append(msgs, "教师在该时段不可排课")
	}
	if r.MaxPeriodsPerDay > 0 {
		n, err := repo.Entry.CountTeacherDay(ctx, p.TimetableID, p.DayOfWeek, p.TeacherID, p.ExcludeID)
		if err != nil {
			return nil, err
		}
		if n+1 > int64(r.MaxPeriodsPerDay) {
			msgs = append(msgs, fmt.Sprintf("教师当天课时 %d 超过上限 %d", n+1, r.MaxPeriodsPerDay))
		}
	}
	return msgs, nil
}

func (r *subjectRule) check(ctx context.Context, repo *repository.Repository, p proposal) ([]string, error) {
	if p.SubjectID != r.SubjectID {
		return nil, nil
	}
	var msgs []string
	if len(r.AllowedDays) > 0 && !containsInt(r.AllowedDays, p.DayOfWeek) {
		msgs = append(msgs, "该科目不允许在当天排课")
	}
	if containsString(r.DisallowedSlotIDs, p.TimeSlotID) {
		msgs = append(msgs, "该科目不允许排在此时间段")
	}
	if r.MaxPeriodsPerDay > 0 {
		n, err := repo.Entry.CountClassSubjectDay(ctx, p.TimetableID, p.DayOfWeek, p.ClassID, p.SubjectID, p.ExcludeID)
		if err != nil {
			return nil, err
		}
		if n+1 > int64(r.MaxPeriodsPerDay) {
			msgs = append(msgs, fmt.Sprintf("班级该科目当天课时 %d 超过上限 %d", n+1, r.MaxPeriodsPerDay))
		}
	}
	return msgs, nil
}

func (r *roomRule) check(_ context.Context, _ *repository.Repository, p proposal) ([]string, error) {
	if p.RoomID == nil || *p.RoomID != r.RoomID {
		return nil, nil
	}
	var msgs []string
	if len(r.AllowedSubjectIDs) > 0 && !containsString(r.AllowedSubjectIDs, p.SubjectID) {
		msgs = append(msgs, "该教室不允许安排此科目")
	}
	if matchDaySlot(r.UnavailableDays, r.UnavailableSlotIDs, p.DayOfWeek, p.TimeSlotID) {
		msgs = append(msgs, "教室在该时段不可用")
	}
	return msgs, nil
}

func (r *generalRule) check(_ context.Context, _ *repository.Repository, p proposal) ([]string, error) {
	if matchDaySlot(r.DisallowedDays, r.DisallowedSlotIDs, p.DayOfWeek, p.TimeSlotID) {
		return []string{"该时段不允许排课"}, nil
	}
	return nil, nil
}

// evaluateConstraints 按 priority DESC, created_at ASC 依次评估启用的规则，返回全部违反项。
// 配置无法解析的规则跳过，不影响其他规则。
func evaluateConstraints(ctx context.Context, repo *repository.Repository, institutionID string, p proposal) ([]dto.ConstraintViolation, error) {
	constraints, err := repo.Constraint.List(ctx, institutionID, true)
	if err != nil {
		return nil, err
	}

	violations := make([]dto.ConstraintViolation, 0)
	for i := range constraints {
		c := &constraints[i]
		r, err := parseRule(c.ConstraintType, c.Config)
		if err != nil {
			continue
		}
		msgs, err := r.check(ctx, repo, p)
		if err != nil {
			return nil, err
		}
		if len(msgs) == 0 {
			continue
		}
		violations = append(violations, dto.ConstraintViolation{
			ConstraintID: c.ConstraintID,
			Name:         c.Name,
			Type:         c.ConstraintType,
			Priority:     c.Priority,
			Message:      strings.Join(msgs, "；"),
		})
	}
	return violations, nil
}

func containsInt(list []int, v int) bool {
	for _, x := range list {
		if x == v {
			return true
		}
	}
	return false
}

func containsString(list []string, v string) bool {
	for _, x := range list {
		if x == v {
			return true
		}
	}
	return false
}
