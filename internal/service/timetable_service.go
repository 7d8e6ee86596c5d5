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
)

// ── 课表模块业务错误 ──

var (
	ErrTimetableNotFound     = pkgerrors.NotFound("课表不存在")
	ErrTimetableArchived     = pkgerrors.Validation("课表已归档，不可修改")
	ErrTimetableNotDraft     = pkgerrors.Validation("仅草稿状态的课表可执行该操作")
	ErrTimetableDraftExists  = pkgerrors.Validation("同一学年、学期、类型下已存在草稿课表")
	ErrInvalidTimetableType  = pkgerrors.Validation("无效的课表类型")
	ErrInvalidEffectiveRange = pkgerrors.Validation("生效开始日期不能晚于结束日期")
	ErrInvalidDate           = pkgerrors.Validation("日期格式必须为 YYYY-MM-DD")
)

// TimetableService 课表生命周期业务接口
type TimetableService interface {
	Create(ctx context.Context, actor Actor, req *dto.CreateTimetableRequest) (*dto.TimetableResponse, error)
	Get(ctx context.Context, actor Actor, id string) (*dto.TimetableResponse, error)
	List(ctx context.Context, actor Actor, req *dto.TimetableListRequest) ([]dto.TimetableResponse, int64, error)
	Update(ctx context.Context, actor Actor, id string, req *dto.UpdateTimetableRequest) (*dto.TimetableResponse, error)
	Publish(ctx context.Context, actor Actor, id string) (*dto.TimetableResponse, error)
	Archive(ctx context.Context, actor Actor, id string) (*dto.TimetableResponse, error)
}

type timetableService struct {
	repo   *repository.Repository
	logger *zap.Logger
}

// NewTimetableService 创建 TimetableService 实例
func NewTimetableService(repo *repository.Repository, logger *zap.Logger) TimetableService {
	return &timetableService{repo: repo, logger: logger}
}

// ────────────────────── Create ──────────────────────

func (s *timetableService) Create(ctx context.Context, actor Actor, req *dto.CreateTimetableRequest) (*dto.TimetableResponse, error) {
	if err := requireEditor(actor); err != nil {
		return nil, err
	}

	ttType := req.TimetableType
	if ttType == "" {
		ttType = model.TimetableTypeMain
	}
	if !model.IsValidTimetableType(ttType) {
		return nil, ErrInvalidTimetableType
	}

	from, to, err := parseEffectiveRange(req.EffectiveFrom, req.EffectiveTo)
	if err != nil {
		return nil, err
	}

	combo := repository.TimetableCombo{
		InstitutionID:  actor.InstitutionID,
		AcademicYearID: req.AcademicYearID,
		TermID:         req.TermID,
		TimetableType:  ttType,
	}
	drafts, err := s.repo.Timetable.FindByStatus(ctx, combo, model.TimetableStatusDraft)
	if err != nil {
		s.logger.Error("查询草稿课表失败", zap.Error(err))
		return nil, err
	}
	if len(drafts) > 0 {
		return nil, ErrTimetableDraftExists
	}

	tt := &model.Timetable{
		InstitutionID:  actor.InstitutionID,
		AcademicYearID: req.AcademicYearID,
		TermID:         req.TermID,
		Name:           req.Name,
		TimetableType:  ttType,
		Status:         model.TimetableStatusDraft,
		EffectiveFrom:  from,
		EffectiveTo:    to,
	}
	tt.CreatedBy = &actor.UserID
	tt.UpdatedBy = &actor.UserID

	if err := s.repo.Timetable.Create(ctx, tt); err != nil {
		if dup, ok := repository.AsDuplicate(err); ok && dup.Constraint == repository.ConstraintTimetableDraft {
			return nil, ErrTimetableDraftExists
		}
		s.logger.Error("创建课表失败", zap.Error(err))
		return nil, err
	}

	return toTimetableResponse(tt), nil
}

// ────────────────────── Get / List ──────────────────────

func (s *timetableService) Get(ctx context.Context, actor Actor, id string) (*dto.TimetableResponse, error) {
	tt, err := loadTimetable(ctx, s.repo, actor, id)
	if err != nil {
		if !errors.Is(err, ErrTimetableNotFound) {
			s.logger.Error("查询课表失败", zap.String("id", id), zap.Error(err))
		}
		return nil, err
	}
	return toTimetableResponse(tt), nil
}

func (s *timetableService) List(ctx context.Context, actor Actor, req *dto.TimetableListRequest) ([]dto.TimetableResponse, int64, error) {
	filter := repository.TimetableFilter{
		AcademicYearID: req.AcademicYearID,
		TermID:         req.TermID,
		TimetableType:  req.TimetableType,
		Status:         req.Status,
	}
	list, total, err := s.repo.Timetable.List(ctx, actor.InstitutionID, filter, req.GetOffset(), req.GetPageSize())
	if err != nil {
		s.logger.Error("列出课表失败", zap.Error(err))
		return nil, 0, err
	}

	result := make([]dto.TimetableResponse, 0, len(list))
	for i := range list {
		result = append(result, *toTimetableResponse(&list[i]))
	}
	return result, total, nil
}

// ────────────────────── Update ──────────────────────

func (s *timetableService) Update(ctx context.Context, actor Actor, id string, req *dto.UpdateTimetableRequest) (*dto.TimetableResponse, error) {
	if err := requireEditor(actor); err != nil {
		return nil, err
	}
	tt, err := loadTimetable(ctx, s.repo, actor, id)
	if err != nil {
		return nil, err
	}
	if tt.Status != model.TimetableStatusDraft {
		return nil, ErrTimetableNotDraft
	}
	if req.Version != nil && *req.Version != tt.Version {
		return nil, pkgerrors.ErrOptimisticLock
	}

	if req.Name != nil {
		tt.Name = *req.Name
	}
	if req.EffectiveFrom != nil || req.EffectiveTo != nil {
		fromStr, toStr := formatDatePtr(tt.EffectiveFrom), formatDatePtr(tt.EffectiveTo)
		if req.EffectiveFrom != nil {
			fromStr = req.EffectiveFrom
		}
		if req.EffectiveTo != nil {
			toStr = req.EffectiveTo
		}
		from, to, err := parseEffectiveRange(fromStr, toStr)
		if err != nil {
			return nil, err
		}
		tt.EffectiveFrom, tt.EffectiveTo = from, to
	}
	tt.UpdatedBy = &actor.UserID

	if err := s.repo.Timetable.Update(ctx, tt); err != nil {
		if !errors.Is(err, pkgerrors.ErrOptimisticLock) {
			s.logger.Error("更新课表失败", zap.String("id", id), zap.Error(err))
		}
		return nil, err
	}
	return toTimetableResponse(tt), nil
}

// ────────────────────── Publish ──────────────────────

// Publish 草稿 → 已发布，同组合下原已发布课表自动归档
func (s *timetableService) Publish(ctx context.Context, actor Actor, id string) (*dto.TimetableResponse, error) {
	if err := requireEditor(actor); err != nil {
		return nil, err
	}
	tt, err := loadTimetable(ctx, s.repo, actor, id)
	if err != nil {
		return nil, err
	}
	if tt.Status != model.TimetableStatusDraft {
		return nil, ErrTimetableNotDraft
	}

	combo := repository.TimetableCombo{
		InstitutionID:  tt.InstitutionID,
		AcademicYearID: tt.AcademicYearID,
		TermID:         tt.TermID,
		TimetableType:  tt.TimetableType,
	}

	err = s.repo.Transaction(ctx, func(tx *repository.Repository) error {
		published, err := tx.Timetable.FindByStatus(ctx, combo, model.TimetableStatusPublished)
		if err != nil {
			return err
		}
		for i := range published {
			prev := &published[i]
			prev.Status = model.TimetableStatusArchived
			prev.UpdatedBy = &actor.UserID
			if err := tx.Timetable.Update(ctx, prev); err != nil {
				return err
			}
		}

		now := time.Now()
		tt.Status = model.TimetableStatusPublished
		tt.PublishedAt = &now
		tt.PublishedBy = &actor.UserID
		tt.UpdatedBy = &actor.UserID
		return tx.Timetable.Update(ctx, tt)
	})
	if err != nil {
		if !errors.Is(err, pkgerrors.ErrOptimisticLock) {
			s.logger.Error("发布课表失败", zap.String("id", id), zap.Error(err))
		}
		return nil, err
	}

	s.logger.Info("课表已发布", zap.String("id", id), zap.String("by", actor.UserID))
	return toTimetableResponse(tt), nil
}

// ────────────────────── Archive ──────────────────────

func (s *timetableService) Archive(ctx context.Context, actor Actor, id string) (*dto.TimetableResponse, error) {
	if err := requireEditor(actor); err != nil {
		return nil, err
	}
	tt, err := loadTimetable(ctx, s.repo, actor, id)
	if err != nil {
		return nil, err
	}
	if tt.Status == model.TimetableStatusArchived {
		return nil, ErrTimetableArchived
	}

	tt.Status = model.TimetableStatusArchived
	tt.UpdatedBy = &actor.UserID
	if err := s.repo.Timetable.Update(ctx, tt); err != nil {
		if !errors.Is(err, pkgerrors.ErrOptimisticLock) {
			s.logger.Error("归档课表失败", zap.String("id", id), zap.Error(err))
		}
		return nil, err
	}
	return toTimetableResponse(tt), nil
}

// ── 内部辅助方法 ──

// loadTimetable 按调用方机构加载课表，其他机构的课表视为不存在
func loadTimetable(ctx context.Context, repo *repository.Repository, actor Actor, id string) (*model.Timetable, error) {
	tt, err := repo.Timetable.GetByID(ctx, actor.InstitutionID, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTimetableNotFound
		}
		return nil, err
	}
	return tt, nil
}

// loadEditableTimetable 加载课表并确认未归档
func loadEditableTimetable(ctx context.Context, repo *repository.Repository, actor Actor, id string) (*model.Timetable, error) {
	tt, err := loadTimetable(ctx, repo, actor, id)
	if err != nil {
		return nil, err
	}
	if tt.Status == model.TimetableStatusArchived {
		return nil, ErrTimetableArchived
	}
	return tt, nil
}

func parseDate(s string) (time.Time, error) {
	d, err := time.Parse(dto.DateLayout, s)
	if err != nil {
		return time.Time{}, ErrInvalidDate
	}
	return d, nil
}

func parseEffectiveRange(from, to *string) (*time.Time, *time.Time, error) {
	var fromT, toT *time.Time
	if from != nil && *from != "" {
		d, err := parseDate(*from)
		if err != nil {
			return nil, nil, err
		}
		fromT = &d
	}
	if to != nil && *to != "" {
		d, err := parseDate(*to)
		if err != nil {
			return nil, nil, err
		}
		toT = &d
	}
	if fromT != nil && toT != nil && fromT.After(*toT) {
		return nil, nil, ErrInvalidEffectiveRange
	}
	return fromT, toT, nil
}

func formatDatePtr(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.Format(dto.DateLayout)
	return &s
}

func toTimetableResponse(tt *model.Timetable) *dto.TimetableResponse {
	resp := &dto.TimetableResponse{
		ID:             tt.TimetableID,
		AcademicYearID: tt.AcademicYearID,
		TermID:         tt.TermID,
		Name:           tt.Name,
		TimetableType:  tt.TimetableType,
		Status:         tt.Status,
		EffectiveFrom:  formatDatePtr(tt.EffectiveFrom),
		EffectiveTo:    formatDatePtr(tt.EffectiveTo),
		PublishedBy:    tt.PublishedBy,
		Version:        tt.Version,
		CreatedAt:      tt.CreatedAt.Format(dto.TimeLayout),
		UpdatedAt:      tt.UpdatedAt.Format(dto.TimeLayout),
	}
	if tt.PublishedAt != nil {
		resp.PublishedAt = strPtr(tt.PublishedAt.Format(dto.TimeLayout))
	}
	return resp
}
