package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	ics "github.com/arran4/golang-ical"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"campus-timetable/backend/config"
	"campus-timetable/backend/internal/dto"
	"campus-timetable/backend/internal/model"
	"campus-timetable/backend/internal/repository"
	pkgerrors "campus-timetable/backend/pkg/errors"
)

// ── 日历订阅模块业务错误 ──

var (
	ErrTeacherNotFound    = pkgerrors.NotFound("教师不存在")
	ErrCalendarRangeLimit = pkgerrors.Validation("日历区间超过允许的最大天数")
)

const calendarProductID = "-//campus-timetable//timetable calendar//ZH"

// CalendarService 教师 / 教室日历订阅（iCalendar）
//
// 只包含已发布课表，在指定区间内逐日展开，叠加当天的例外：
// 停课不输出，代课与换教室按替换后的教师与教室归属。
type CalendarService interface {
	TeacherCalendar(ctx context.Context, actor Actor, teacherID string, req *dto.CalendarRequest) (string, error)
	RoomCalendar(ctx context.Context, actor Actor, roomID string, req *dto.CalendarRequest) (string, error)
}

type calendarService struct {
	repo         *repository.Repository
	loc          *time.Location
	maxRangeDays int
	logger       *zap.Logger
}

// NewCalendarService 创建 CalendarService 实例
func NewCalendarService(cfg *config.CalendarConfig, repo *repository.Repository, logger *zap.Logger) CalendarService {
	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		logger.Warn("日历时区无效，使用 UTC", zap.String("timezone", cfg.Timezone), zap.Error(err))
		loc = time.UTC
	}
	return &calendarService{repo: repo, loc: loc, maxRangeDays: cfg.MaxRangeDays, logger: logger}
}

// calendarLesson 某日某节的实际课程
type calendarLesson struct {
	date  time.Time
	occ   model.Occupant
	entry *model.TimetableEntry
}

func (s *calendarService) TeacherCalendar(ctx context.Context, actor Actor, teacherID string, req *dto.CalendarRequest) (string, error) {
	teacher, err := s.repo.Reference.GetTeacher(ctx, actor.InstitutionID, teacherID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", ErrTeacherNotFound
		}
		s.logger.Error("查询教师失败", zap.String("teacher_id", teacherID), zap.Error(err))
		return "", err
	}

	lessons, err := s.expand(ctx, actor, req, func(occ model.Occupant) bool {
		return occ.TeacherID == teacherID
	})
	if err != nil {
		return "", err
	}
	return s.render(teacher.Name+" 课表", lessons), nil
}

func (s *calendarService) RoomCalendar(ctx context.Context, actor Actor, roomID string, req *dto.CalendarRequest) (string, error) {
	room, err := s.repo.Room.GetByID(ctx, actor.InstitutionID, roomID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", ErrRoomNotFound
		}
		s.logger.Error("查询教室失败", zap.String("room_id", roomID), zap.Error(err))
		return "", err
	}

	lessons, err := s.expand(ctx, actor, req, func(occ model.Occupant) bool {
		return occ.RoomID != nil && *occ.RoomID == roomID
	})
	if err != nil {
		return "", err
	}
	return s.render(room.Name+" 使用安排", lessons), nil
}

// expand 在区间内逐日展开已发布课表，保留满足 match 的实际占用
func (s *calendarService) expand(ctx context.Context, actor Actor, req *dto.CalendarRequest, match func(model.Occupant) bool) ([]calendarLesson, error) {
	from, err := parseDate(req.From)
	if err != nil {
		return nil, err
	}
	to, err := parseDate(req.To)
	if err != nil {
		return nil, err
	}
	if from.After(to) {
		return nil, ErrInvalidDateRange
	}
	if int(to.Sub(from).Hours()/24)+1 > s.maxRangeDays {
		return nil, ErrCalendarRangeLimit
	}

	timetables, err := s.repo.Timetable.ListPublished(ctx, actor.InstitutionID)
	if err != nil {
		s.logger.Error("查询已发布课表失败", zap.Error(err))
		return nil, err
	}

	var lessons []calendarLesson
	for i := range timetables {
		tt := &timetables[i]
		entries, err := s.repo.Entry.ListByTimetable(ctx, tt.TimetableID, repository.EntryFilter{})
		if err != nil {
			s.logger.Error("查询排课失败", zap.String("timetable_id", tt.TimetableID), zap.Error(err))
			return nil, err
		}
		exceptions, err := s.repo.Exception.ListByTimetable(ctx, tt.TimetableID, &from, &to)
		if err != nil {
			s.logger.Error("查询例外失败", zap.String("timetable_id", tt.TimetableID), zap.Error(err))
			return nil, err
		}
		byKey := make(map[string]*model.TimetableException, len(exceptions))
		for j := range exceptions {
			exc := &exceptions[j]
			byKey[exc.TimetableEntryID+"|"+exc.ExceptionDate.Format(dto.DateLayout)] = exc
		}

		for d := from; !d.After(to); d = d.AddDate(0, 0, 1) {
			if !tt.Covers(d) {
				continue
			}
			day := isoWeekday(d)
			for k := range entries {
				e := &entries[k]
				if e.DayOfWeek != day {
					continue
				}
				occ := model.ApplyException(e, byKey[e.EntryID+"|"+d.Format(dto.DateLayout)])
				if occ.Cancelled || !match(occ) {
					continue
				}
				lessons = append(lessons, calendarLesson{date: d, occ: occ, entry: e})
			}
		}
	}
	return lessons, nil
}

// render 生成 iCalendar 文本，每节课一个 VEVENT
func (s *calendarService) render(name string, lessons []calendarLesson) string {
	cal := ics.NewCalendar()
	cal.SetMethod(ics.MethodPublish)
	cal.SetProductId(calendarProductID)
	cal.SetXWRCalName(name)
	cal.SetXWRTimezone(s.loc.String())

	stamp := time.Now().UTC()
	for _, l := range lessons {
		if l.entry.TimeSlot == nil {
			continue
		}
		start, err := s.clockOn(l.date, l.entry.TimeSlot.StartTime)
		if err != nil {
			continue
		}
		end, err := s.clockOn(l.date, l.entry.TimeSlot.EndTime)
		if err != nil {
			continue
		}

		uid := fmt.Sprintf("%s-%s@campus-timetable", l.entry.EntryID, l.date.Format("20060102"))
		event := cal.AddEvent(uid)
		event.SetDtStampTime(stamp)
		event.SetStartAt(start)
		event.SetEndAt(end)
		event.SetSummary(fmt.Sprintf("%s · %s", subjectName(l.entry), className(l.entry)))
		if room := lessonRoomName(l); room != "" {
			event.SetLocation(room)
		}
		event.SetDescription(lessonDescription(l))
	}
	return cal.Serialize()
}

// clockOn 将日期与 "HH:MM[:SS]" 组合为日历时区下的时间
func (s *calendarService) clockOn(date time.Time, clock string) (time.Time, error) {
	return time.ParseInLocation("2006-01-02 15:04", date.Format(dto.DateLayout)+" "+model.ClockHHMM(clock), s.loc)
}

func lessonRoomName(l calendarLesson) string {
	if l.occ.RoomID == nil {
		return ""
	}
	if exc := l.occ.Exception; exc != nil && exc.SubstituteRoom != nil && *l.occ.RoomID == exc.SubstituteRoom.RoomID {
		return exc.SubstituteRoom.Name
	}
	if l.entry.Room != nil {
		return l.entry.Room.Name
	}
	return ""
}

func lessonDescription(l calendarLesson) string {
	var b strings.Builder
	b.WriteString("教师：")
	if exc := l.occ.Exception; exc != nil && exc.SubstituteTeacher != nil && l.occ.TeacherID != l.entry.TeacherID {
		b.WriteString(exc.SubstituteTeacher.Name)
		b.WriteString("（代 ")
		b.WriteString(teacherName(l.entry))
		b.WriteString("）")
	} else {
		b.WriteString(teacherName(l.entry))
	}
	if exc := l.occ.Exception; exc != nil && exc.Reason != "" {
		b.WriteString("\n调整原因：")
		b.WriteString(exc.Reason)
	}
	return b.String()
}
