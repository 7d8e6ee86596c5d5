package service

import (
	"context"
	"errors"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"campus-timetable/backend/internal/dto"
	"campus-timetable/backend/internal/model"
	"campus-timetable/backend/internal/repository"
	pkgerrors "campus-timetable/backend/pkg/errors"
	"campus-timetable/backend/pkg/metrics"
)

// ── 冲突检测模块业务错误 ──

var (
	ErrInvalidDayOfWeek = pkgerrors.Validation("星期必须在 1-7 之间")
)

// ClashService 冲突预检业务接口。
// 只读：同一输入重复调用结果一致，且对 (A, B) 与 (B, A) 的判定对称。
type ClashService interface {
	Check(ctx context.Context, actor Actor, timetableID string, req *dto.ClashCheckRequest) (*pkgerrors.ClashResult, error)
}

type clashService struct {
	repo    *repository.Repository
	metrics metrics.Recorder
	logger  *zap.Logger
}

// NewClashService 创建 ClashService 实例
func NewClashService(repo *repository.Repository, rec metrics.Recorder, logger *zap.Logger) ClashService {
	return &clashService{repo: repo, metrics: rec, logger: logger}
}

// Check 仅在课表或时间段不存在时返回 NotFound，无冲突不视为错误
func (s *clashService) Check(ctx context.Context, actor Actor, timetableID string, req *dto.ClashCheckRequest) (*pkgerrors.ClashResult, error) {
	if _, err := loadTimetable(ctx, s.repo, actor, timetableID); err != nil {
		return nil, err
	}
	if _, err := s.repo.TimeSlot.GetByID(ctx, actor.InstitutionID, req.TimeSlotID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTimeSlotNotFound
		}
		return nil, err
	}
	if req.DayOfWeek < 1 || req.DayOfWeek > 7 {
		return nil, ErrInvalidDayOfWeek
	}

	bucket := repository.Bucket{TimetableID: timetableID, DayOfWeek: req.DayOfWeek, TimeSlotID: req.TimeSlotID}
	exclude := ""
	if req.ExcludeEntryID != nil {
		exclude = *req.ExcludeEntryID
	}

	result, err := detectClash(ctx, s.repo, bucket, req.TeacherID, req.RoomID, exclude)
	if err != nil {
		s.logger.Error("冲突检测失败", zap.String("timetable_id", timetableID), zap.Error(err))
		return nil, err
	}
	s.metrics.ClashChecked(result.HasClash())
	return &result, nil
}

// detectClash 在 (课表, 星期, 时间段) 内分别查询教师与教室占用。
// 两个查询互相独立，各自只在对应 ID 给出时执行。
func detectClash(ctx context.Context, repo *repository.Repository, bucket repository.Bucket, teacherID, roomID *string, excludeID string) (pkgerrors.ClashResult, error) {
	var result pkgerrors.ClashResult

	if teacherID != nil && *teacherID != "" {
		occ, err := repo.Entry.FindTeacherOccupant(ctx, bucket, *teacherID, excludeID)
		switch {
		case err == nil:
			result.HasTeacherClash = true
			result.TeacherClashDetail = &pkgerrors.TeacherClashDetail{
				EntryID:     occ.EntryID,
				ClassName:   className(occ),
				SubjectName: subjectName(occ),
			}
		case !errors.Is(err, gorm.ErrRecordNotFound):
			return result, err
		}
	}

	if roomID != nil && *roomID != "" {
		occ, err := repo.Entry.FindRoomOccupant(ctx, bucket, *roomID, excludeID)
		switch {
		case err == nil:
			result.HasRoomClash = true
			result.RoomClashDetail = &pkgerrors.RoomClashDetail{
				EntryID:     occ.EntryID,
				ClassName:   className(occ),
				TeacherName: teacherName(occ),
			}
		case !errors.Is(err, gorm.ErrRecordNotFound):
			return result, err
		}
	}

	return result, nil
}

func className(e *model.TimetableEntry) string {
	if e.Class != nil {
		return e.Class.Name
	}
	return ""
}

func subjectName(e *model.TimetableEntry) string {
	if e.Subject != nil {
		return e.Subject.Name
	}
	return ""
}

func teacherName(e *model.TimetableEntry) string {
	if e.Teacher != nil {
		return e.Teacher.Name
	}
	return ""
}
