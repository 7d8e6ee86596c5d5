package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"campus-timetable/backend/internal/dto"
	"campus-timetable/backend/internal/model"
	"campus-timetable/backend/internal/repository"
	pkgerrors "campus-timetable/backend/pkg/errors"
	"campus-timetable/backend/pkg/metrics"
)

// ── 单日例外模块业务错误 ──

var (
	ErrExceptionNotFound     = pkgerrors.NotFound("例外记录不存在")
	ErrInvalidExceptionType  = pkgerrors.Validation("无效的例外类型")
	ErrExceptionWeekday      = pkgerrors.Validation("例外日期的星期与排课不一致")
	ErrExceptionOutOfRange   = pkgerrors.Validation("例外日期不在课表生效区间内")
	ErrSubstituteRequired    = pkgerrors.Validation("代课必须指定代课教师")
	ErrSubstituteSameTeacher = pkgerrors.Validation("代课教师不能与原任课教师相同")
	ErrRoomChangeRequired    = pkgerrors.Validation("换教室必须指定新教室")
	ErrRoomChangeSameRoom    = pkgerrors.Validation("新教室不能与原教室相同")
	ErrRoomChangeWithTeacher = pkgerrors.Validation("换教室不能指定代课教师")
	ErrCancellationOverrides = pkgerrors.Validation("停课不能指定代课教师或教室")
	ErrDuplicateException    = pkgerrors.Validation("该排课在当天已存在例外")
	ErrInvalidDateRange      = pkgerrors.Validation("开始日期不能晚于结束日期")
)

// ExceptionService 单日例外业务接口。原排课从不被修改。
type ExceptionService interface {
	Create(ctx context.Context, actor Actor, entryID string, req *dto.CreateExceptionRequest) (*dto.ExceptionResponse, error)
	ListForEntry(ctx context.Context, actor Actor, entryID string) ([]dto.ExceptionResponse, error)
	ListForTimetable(ctx context.Context, actor Actor, timetableID string, req *dto.ExceptionRangeRequest) ([]dto.ExceptionResponse, error)
	Revert(ctx context.Context, actor Actor, id string) error
}

type exceptionService struct {
	repo    *repository.Repository
	metrics metrics.Recorder
	logger  *zap.Logger
}

// NewExceptionService 创建 ExceptionService 实例
func NewExceptionService(repo *repository.Repository, rec metrics.Recorder, logger *zap.Logger) ExceptionService {
	return &exceptionService{repo: repo, metrics: rec, logger: logger}
}

// ────────────────────── Create ──────────────────────

func (s *exceptionService) Create(ctx context.Context, actor Actor, entryID string, req *dto.CreateExceptionRequest) (*dto.ExceptionResponse, error) {
	if err := requireEditor(actor); err != nil {
		return nil, err
	}
	entry, err := loadEntry(ctx, s.repo, actor, entryID)
	if err != nil {
		return nil, err
	}
	tt, err := loadEditableTimetable(ctx, s.repo, actor, entry.TimetableID)
	if err != nil {
		return nil, err
	}

	date, err := parseDate(req.ExceptionDate)
	if err != nil {
		return nil, err
	}
	if isoWeekday(date) != entry.DayOfWeek {
		return nil, ErrExceptionWeekday
	}
	if !tt.Covers(date) {
		return nil, ErrExceptionOutOfRange
	}

	exc := &model.TimetableException{
		TimetableEntryID:    entry.EntryID,
		ExceptionDate:       date,
		ExceptionType:       req.ExceptionType,
		SubstituteTeacherID: req.SubstituteTeacherID,
		SubstituteRoomID:    req.SubstituteRoomID,
		Reason:              req.Reason,
	}
	if err := validateOverrides(entry, exc); err != nil {
		return nil, err
	}
	if err := s.validateRefs(ctx, actor, exc); err != nil {
		return nil, err
	}
	exc.CreatedBy = &actor.UserID
	exc.UpdatedBy = &actor.UserID

	bucket := bucketOf(entry)
	err = s.repo.Transaction(ctx, func(tx *repository.Repository) error {
		// 共享锁阻止排课在例外写入前被移动到其他星期或时间段
		current, err := tx.Entry.Lock(ctx, entry.EntryID, repository.LockShare)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrEntryNotFound
			}
			return err
		}
		if current.Version != entry.Version {
			return pkgerrors.ErrOptimisticLock
		}
		if err := tx.Exception.LockDateSlot(ctx, bucket, date); err != nil {
			return err
		}
		sameDay, err := tx.Exception.ListByBucketDate(ctx, bucket, date)
		if err != nil {
			return err
		}
		for i := range sameDay {
			if sameDay[i].TimetableEntryID == entry.EntryID {
				return ErrDuplicateException
			}
		}
		if err := s.dateClash(ctx, tx, entry, exc, sameDay); err != nil {
			return err
		}
		return tx.Exception.Create(ctx, exc)
	})
	if err != nil {
		if dup, ok := repository.AsDuplicate(err); ok && dup.Constraint == repository.ConstraintExceptionEntryDate {
			return nil, ErrDuplicateException
		}
		if !isBusinessError(err) {
			s.logger.Error("创建例外失败", zap.String("entry_id", entryID), zap.Error(err))
		}
		return nil, err
	}

	saved, err := s.repo.Exception.GetByID(ctx, exc.ExceptionID)
	if err != nil {
		s.logger.Error("回读例外失败", zap.String("id", exc.ExceptionID), zap.Error(err))
		return nil, err
	}
	return toExceptionResponse(saved), nil
}

// ────────────────────── ListForEntry ──────────────────────

func (s *exceptionService) ListForEntry(ctx context.Context, actor Actor, entryID string) ([]dto.ExceptionResponse, error) {
	if _, err := loadEntry(ctx, s.repo, actor, entryID); err != nil {
		return nil, err
	}
	list, err := s.repo.Exception.ListByEntry(ctx, entryID)
	if err != nil {
		s.logger.Error("列出例外失败", zap.String("entry_id", entryID), zap.Error(err))
		return nil, err
	}
	return toExceptionResponses(list), nil
}

// ────────────────────── ListForTimetable ──────────────────────

func (s *exceptionService) ListForTimetable(ctx context.Context, actor Actor, timetableID string, req *dto.ExceptionRangeRequest) ([]dto.ExceptionResponse, error) {
	if _, err := loadTimetable(ctx, s.repo, actor, timetableID); err != nil {
		return nil, err
	}

	var from, to *time.Time
	if req.From != "" {
		d, err := parseDate(req.From)
		if err != nil {
			return nil, err
		}
		from = &d
	}
	if req.To != "" {
		d, err := parseDate(req.To)
		if err != nil {
			return nil, err
		}
		to = &d
	}
	if from != nil && to != nil && from.After(*to) {
		return nil, ErrInvalidDateRange
	}

	list, err := s.repo.Exception.ListByTimetable(ctx, timetableID, from, to)
	if err != nil {
		s.logger.Error("列出课表例外失败", zap.String("timetable_id", timetableID), zap.Error(err))
		return nil, err
	}
	return toExceptionResponses(list), nil
}

// ────────────────────── Revert ──────────────────────

// Revert 删除例外，该日恢复为原排课
func (s *exceptionService) Revert(ctx context.Context, actor Actor, id string) error {
	if err := requireEditor(actor); err != nil {
		return err
	}
	exc, err := s.repo.Exception.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrExceptionNotFound
		}
		s.logger.Error("查询例外失败", zap.String("id", id), zap.Error(err))
		return err
	}
	if _, err := loadEntry(ctx, s.repo, actor, exc.TimetableEntryID); err != nil {
		if errors.Is(err, ErrEntryNotFound) {
			return ErrExceptionNotFound
		}
		return err
	}

	if err := s.repo.Exception.Delete(ctx, id); err != nil {
		s.logger.Error("撤销例外失败", zap.String("id", id), zap.Error(err))
		return err
	}
	return nil
}

// ── 内部辅助方法 ──

// validateOverrides 按例外类型校验代课教师与教室
func validateOverrides(entry *model.TimetableEntry, exc *model.TimetableException) error {
	switch exc.ExceptionType {
	case model.ExceptionTypeSubstitution:
		if exc.SubstituteTeacherID == nil {
			return ErrSubstituteRequired
		}
		if *exc.SubstituteTeacherID == entry.TeacherID {
			return ErrSubstituteSameTeacher
		}
	case model.ExceptionTypeRoomChange:
		if exc.SubstituteTeacherID != nil {
			return ErrRoomChangeWithTeacher
		}
		if exc.SubstituteRoomID == nil {
			return ErrRoomChangeRequired
		}
		if entry.SameRoom(exc.SubstituteRoomID) {
			return ErrRoomChangeSameRoom
		}
	case model.ExceptionTypeCancellation:
		if exc.SubstituteTeacherID != nil || exc.SubstituteRoomID != nil {
			return ErrCancellationOverrides
		}
	default:
		return ErrInvalidExceptionType
	}
	return nil
}

func (s *exceptionService) validateRefs(ctx context.Context, actor Actor, exc *model.TimetableException) error {
	if exc.SubstituteTeacherID != nil {
		if _, err := s.repo.Reference.GetTeacher(ctx, actor.InstitutionID, *exc.SubstituteTeacherID); err != nil {
			return refError(err, ErrRefTeacherMissing)
		}
	}
	if exc.SubstituteRoomID != nil {
		room, err := s.repo.Room.GetByID(ctx, actor.InstitutionID, *exc.SubstituteRoomID)
		if err != nil {
			return refError(err, ErrRefRoomNotFound)
		}
		if !room.IsActive {
			return ErrRoomInactive
		}
	}
	return nil
}

// dateClash 检查代课教师 / 新教室在当天同一时间段是否被其他排课占用。
// 其他排课按各自当天的例外调整：停课不占用，代课与换教室以替换后的资源为准。
func (s *exceptionService) dateClash(ctx context.Context, tx *repository.Repository, entry *model.TimetableEntry, exc *model.TimetableException, sameDay []model.TimetableException) error {
	if exc.SubstituteTeacherID == nil && exc.SubstituteRoomID == nil {
		return nil
	}

	others, err := tx.Entry.ListByBucket(ctx, bucketOf(entry))
	if err != nil {
		return err
	}
	byEntry := make(map[string]*model.TimetableException, len(sameDay))
	for i := range sameDay {
		byEntry[sameDay[i].TimetableEntryID] = &sameDay[i]
	}

	var result pkgerrors.ClashResult
	for i := range others {
		other := &others[i]
		if other.EntryID == entry.EntryID {
			continue
		}
		occ := model.ApplyException(other, byEntry[other.EntryID])
		if occ.Cancelled {
			continue
		}
		if !result.HasTeacherClash && exc.SubstituteTeacherID != nil && occ.TeacherID == *exc.SubstituteTeacherID {
			result.HasTeacherClash = true
			result.TeacherClashDetail = &pkgerrors.TeacherClashDetail{
				EntryID:     other.EntryID,
				ClassName:   className(other),
				SubjectName: subjectName(other),
			}
		}
		if !result.HasRoomClash && exc.SubstituteRoomID != nil && occ.RoomID != nil && *occ.RoomID == *exc.SubstituteRoomID {
			result.HasRoomClash = true
			result.RoomClashDetail = &pkgerrors.RoomClashDetail{
				EntryID:     other.EntryID,
				ClassName:   className(other),
				TeacherName: occupantTeacherName(occ),
			}
		}
	}

	s.metrics.ClashChecked(result.HasClash())
	if result.HasClash() {
		s.metrics.ClashRejected(metrics.StagePrecheck, clashResource(result))
		return pkgerrors.NewClashError(result)
	}
	return nil
}

func occupantTeacherName(occ model.Occupant) string {
	if occ.Exception != nil && occ.Exception.SubstituteTeacher != nil && occ.TeacherID != occ.Entry.TeacherID {
		return occ.Exception.SubstituteTeacher.Name
	}
	return teacherName(occ.Entry)
}

// isoWeekday 返回 ISO 星期（周一为 1，周日为 7）
func isoWeekday(t time.Time) int {
	wd := int(t.Weekday())
	if wd == 0 {
		return 7
	}
	return wd
}

// isBusinessError 业务错误无需记录错误日志
func isBusinessError(err error) bool {
	if _, ok := pkgerrors.AsClash(err); ok {
		return true
	}
	if _, ok := pkgerrors.AsInUse(err); ok {
		return true
	}
	return errors.Is(err, pkgerrors.ErrValidation) ||
		errors.Is(err, pkgerrors.ErrNotFound) ||
		errors.Is(err, pkgerrors.ErrForbidden)
}

func toExceptionResponses(list []model.TimetableException) []dto.ExceptionResponse {
	result := make([]dto.ExceptionResponse, 0, len(list))
	for i := range list {
		result = append(result, *toExceptionResponse(&list[i]))
	}
	return result
}

func toExceptionResponse(exc *model.TimetableException) *dto.ExceptionResponse {
	resp := &dto.ExceptionResponse{
		ID:            exc.ExceptionID,
		EntryID:       exc.TimetableEntryID,
		ExceptionDate: exc.ExceptionDate.Format(dto.DateLayout),
		ExceptionType: exc.ExceptionType,
		Reason:        exc.Reason,
		CreatedAt:     exc.CreatedAt.Format(dto.TimeLayout),
	}
	if exc.SubstituteTeacherID != nil {
		ref := dto.NamedRef{ID: *exc.SubstituteTeacherID}
		if exc.SubstituteTeacher != nil {
			ref.Name = exc.SubstituteTeacher.Name
		}
		resp.SubstituteTeacher = &ref
	}
	if exc.SubstituteRoomID != nil {
		ref := dto.NamedRef{ID: *exc.SubstituteRoomID}
		if exc.SubstituteRoom != nil {
			ref.Name = exc.SubstituteRoom.Name
		}
		resp.SubstituteRoom = &ref
	}
	return resp
}
