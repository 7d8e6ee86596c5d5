package service

import (
	"context"
	"encoding/json"
	"errors"

	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"campus-timetable/backend/internal/dto"
	"campus-timetable/backend/internal/model"
	"campus-timetable/backend/internal/repository"
	pkgerrors "campus-timetable/backend/pkg/errors"
	"campus-timetable/backend/pkg/metrics"
)

// ── 排课规则模块业务错误 ──

var (
	ErrConstraintNotFound      = pkgerrors.NotFound("排课规则不存在")
	ErrInvalidConstraintType   = pkgerrors.Validation("无效的规则类型")
	ErrInvalidConstraintConfig = pkgerrors.Validation("规则配置不合法")
)

// ConstraintService 软性排课规则业务接口
type ConstraintService interface {
	List(ctx context.Context, actor Actor, req *dto.ConstraintListRequest) ([]dto.ConstraintResponse, error)
	Get(ctx context.Context, actor Actor, id string) (*dto.ConstraintResponse, error)
	Create(ctx context.Context, actor Actor, req *dto.CreateConstraintRequest) (*dto.ConstraintResponse, error)
	Update(ctx context.Context, actor Actor, id string, req *dto.UpdateConstraintRequest) (*dto.ConstraintResponse, error)
	Delete(ctx context.Context, actor Actor, id string) error
	// Evaluate 对拟排课程评估规则，只读，不产生任何写入
	Evaluate(ctx context.Context, actor Actor, timetableID string, req *dto.EvaluateConstraintsRequest) ([]dto.ConstraintViolation, error)
}

type constraintService struct {
	repo    *repository.Repository
	metrics metrics.Recorder
	logger  *zap.Logger
}

// NewConstraintService 创建 ConstraintService 实例
func NewConstraintService(repo *repository.Repository, rec metrics.Recorder, logger *zap.Logger) ConstraintService {
	return &constraintService{repo: repo, metrics: rec, logger: logger}
}

// ────────────────────── List ──────────────────────

func (s *constraintService) List(ctx context.Context, actor Actor, req *dto.ConstraintListRequest) ([]dto.ConstraintResponse, error) {
	list, err := s.repo.Constraint.List(ctx, actor.InstitutionID, req.ActiveOnly)
	if err != nil {
		s.logger.Error("列出排课规则失败", zap.Error(err))
		return nil, err
	}

	result := make([]dto.ConstraintResponse, 0, len(list))
	for i := range list {
		result = append(result, *toConstraintResponse(&list[i]))
	}
	return result, nil
}

// ────────────────────── Get ──────────────────────

func (s *constraintService) Get(ctx context.Context, actor Actor, id string) (*dto.ConstraintResponse, error) {
	c, err := s.load(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	return toConstraintResponse(c), nil
}

// ────────────────────── Create ──────────────────────

func (s *constraintService) Create(ctx context.Context, actor Actor, req *dto.CreateConstraintRequest) (*dto.ConstraintResponse, error) {
	if err := requireEditor(actor); err != nil {
		return nil, err
	}
	if _, err := parseRule(req.ConstraintType, req.Config); err != nil {
		return nil, err
	}

	c := &model.Constraint{
		InstitutionID:  actor.InstitutionID,
		ConstraintType: req.ConstraintType,
		Name:           req.Name,
		Config:         datatypes.JSON(req.Config),
		Priority:       req.Priority,
		IsActive:       true,
	}
	c.CreatedBy = &actor.UserID
	c.UpdatedBy = &actor.UserID

	if err := s.repo.Constraint.Create(ctx, c); err != nil {
		s.logger.Error("创建排课规则失败", zap.Error(err))
		return nil, err
	}

	// is_active 默认值为 true，创建即停用需要再写一次
	if req.IsActive != nil && !*req.IsActive {
		c.IsActive = false
		if err := s.repo.Constraint.Update(ctx, c); err != nil {
			s.logger.Error("停用排课规则失败", zap.String("id", c.ConstraintID), zap.Error(err))
			return nil, err
		}
	}

	return toConstraintResponse(c), nil
}

// ────────────────────── Update ──────────────────────

func (s *constraintService) Update(ctx context.Context, actor Actor, id string, req *dto.UpdateConstraintRequest) (*dto.ConstraintResponse, error) {
	if err := requireEditor(actor); err != nil {
		return nil, err
	}
	c, err := s.load(ctx, actor, id)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		c.Name = *req.Name
	}
	if len(req.Config) > 0 {
		if _, err := parseRule(c.ConstraintType, req.Config); err != nil {
			return nil, err
		}
		c.Config = datatypes.JSON(req.Config)
	}
	if req.Priority != nil {
		c.Priority = *req.Priority
	}
	if req.IsActive != nil {
		c.IsActive = *req.IsActive
	}
	c.UpdatedBy = &actor.UserID

	if err := s.repo.Constraint.Update(ctx, c); err != nil {
		if !errors.Is(err, pkgerrors.ErrOptimisticLock) {
			s.logger.Error("更新排课规则失败", zap.String("id", id), zap.Error(err))
		}
		return nil, err
	}
	return toConstraintResponse(c), nil
}

// ────────────────────── Delete ──────────────────────

func (s *constraintService) Delete(ctx context.Context, actor Actor, id string) error {
	if err := requireEditor(actor); err != nil {
		return err
	}
	if _, err := s.load(ctx, actor, id); err != nil {
		return err
	}
	if err := s.repo.Constraint.Delete(ctx, id, actor.UserID); err != nil {
		s.logger.Error("删除排课规则失败", zap.String("id", id), zap.Error(err))
		return err
	}
	return nil
}

// ────────────────────── Evaluate ──────────────────────

func (s *constraintService) Evaluate(ctx context.Context, actor Actor, timetableID string, req *dto.EvaluateConstraintsRequest) ([]dto.ConstraintViolation, error) {
	if _, err := loadTimetable(ctx, s.repo, actor, timetableID); err != nil {
		return nil, err
	}
	if req.DayOfWeek < 1 || req.DayOfWeek > 7 {
		return nil, ErrInvalidDayOfWeek
	}

	p := proposal{
		TimetableID: timetableID,
		ClassID:     req.ClassID,
		SubjectID:   req.SubjectID,
		TeacherID:   req.TeacherID,
		RoomID:      req.RoomID,
		TimeSlotID:  req.TimeSlotID,
		DayOfWeek:   req.DayOfWeek,
	}
	if req.ExcludeEntryID != nil {
		p.ExcludeID = *req.ExcludeEntryID
	}

	violations, err := evaluateConstraints(ctx, s.repo, actor.InstitutionID, p)
	if err != nil {
		s.logger.Error("评估排课规则失败", zap.String("timetable_id", timetableID), zap.Error(err))
		return nil, err
	}
	return violations, nil
}

// ── 内部辅助方法 ──

func (s *constraintService) load(ctx context.Context, actor Actor, id string) (*model.Constraint, error) {
	c, err := s.repo.Constraint.GetByID(ctx, actor.InstitutionID, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrConstraintNotFound
		}
		s.logger.Error("查询排课规则失败", zap.String("id", id), zap.Error(err))
		return nil, err
	}
	return c, nil
}

func toConstraintResponse(c *model.Constraint) *dto.ConstraintResponse {
	config := json.RawMessage(c.Config)
	if len(config) == 0 {
		config = json.RawMessage("{}")
	}
	return &dto.ConstraintResponse{
		ID:             c.ConstraintID,
		ConstraintType: c.ConstraintType,
		Name:           c.Name,
		Config:         config,
		Priority:       c.Priority,
		IsActive:       c.IsActive,
		Version:        c.Version,
		CreatedAt:      c.CreatedAt.Format(dto.TimeLayout),
		UpdatedAt:      c.UpdatedAt.Format(dto.TimeLayout),
	}
}
