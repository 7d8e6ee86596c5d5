package service

import (
	"context"
	"errors"
	"sort"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"campus-timetable/backend/internal/dto"
	"campus-timetable/backend/internal/model"
	"campus-timetable/backend/internal/repository"
	pkgerrors "campus-timetable/backend/pkg/errors"
)

// ── 作息时间段模块业务错误 ──

var (
	ErrTimeSlotNotFound  = pkgerrors.NotFound("时间段不存在")
	ErrInvalidSlotType   = pkgerrors.Validation("无效的时间段类型")
	ErrInvalidClock      = pkgerrors.Validation("时间格式必须为 HH:MM")
	ErrInvalidTimeRange  = pkgerrors.Validation("开始时间必须早于结束时间")
	ErrInvalidAppliesTo  = pkgerrors.Validation("适用星期必须在 1-7 之间")
	ErrInvalidSequence   = pkgerrors.Validation("节次序号必须大于 0")
	ErrDuplicateSequence = pkgerrors.Validation("本机构已存在相同节次序号的时间段")
	ErrSlotInUseChange   = pkgerrors.Validation("时间段仍被排课引用，不能停用或移除已排课的适用星期")
)

// TimeSlotService 作息时间段业务接口
type TimeSlotService interface {
	List(ctx context.Context, actor Actor, req *dto.TimeSlotListRequest) ([]dto.TimeSlotResponse, error)
	Get(ctx context.Context, actor Actor, id string) (*dto.TimeSlotResponse, error)
	Create(ctx context.Context, actor Actor, req *dto.CreateTimeSlotRequest) (*dto.TimeSlotResponse, error)
	Update(ctx context.Context, actor Actor, id string, req *dto.UpdateTimeSlotRequest) (*dto.TimeSlotResponse, error)
	Delete(ctx context.Context, actor Actor, id string) error
	Usage(ctx context.Context, actor Actor, id string) (*dto.UsageResponse, error)
}

type timeSlotService struct {
	repo   *repository.Repository
	logger *zap.Logger
}

// NewTimeSlotService 创建 TimeSlotService 实例
func NewTimeSlotService(repo *repository.Repository, logger *zap.Logger) TimeSlotService {
	return &timeSlotService{repo: repo, logger: logger}
}

// ────────────────────── List ──────────────────────

func (s *timeSlotService) List(ctx context.Context, actor Actor, req *dto.TimeSlotListRequest) ([]dto.TimeSlotResponse, error) {
	slots, err := s.repo.TimeSlot.List(ctx, actor.InstitutionID, req.IncludeInactive)
	if err != nil {
		s.logger.Error("列出时间段失败", zap.Error(err))
		return nil, err
	}

	result := make([]dto.TimeSlotResponse, 0, len(slots))
	for i := range slots {
		result = append(result, *toTimeSlotResponse(&slots[i]))
	}
	return result, nil
}

// ────────────────────── Get ──────────────────────

func (s *timeSlotService) Get(ctx context.Context, actor Actor, id string) (*dto.TimeSlotResponse, error) {
	slot, err := s.load(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	return toTimeSlotResponse(slot), nil
}

// ────────────────────── Create ──────────────────────

func (s *timeSlotService) Create(ctx context.Context, actor Actor, req *dto.CreateTimeSlotRequest) (*dto.TimeSlotResponse, error) {
	if err := requireEditor(actor); err != nil {
		return nil, err
	}

	slot := &model.TimeSlot{
		InstitutionID: actor.InstitutionID,
		Name:          req.Name,
		SlotType:      req.SlotType,
		StartTime:     req.StartTime,
		EndTime:       req.EndTime,
		SequenceOrder: req.SequenceOrder,
		AppliesTo:     model.IntArray(req.AppliesTo),
		IsActive:      true,
	}
	if err := s.validate(ctx, slot); err != nil {
		return nil, err
	}
	slot.CreatedBy = &actor.UserID
	slot.UpdatedBy = &actor.UserID

	if err := s.repo.TimeSlot.Create(ctx, slot); err != nil {
		if dup, ok := repository.AsDuplicate(err); ok && dup.Constraint == repository.ConstraintTimeSlotSequence {
			return nil, ErrDuplicateSequence
		}
		s.logger.Error("创建时间段失败", zap.Error(err))
		return nil, err
	}

	return toTimeSlotResponse(slot), nil
}

// ────────────────────── Update ──────────────────────

func (s *timeSlotService) Update(ctx context.Context, actor Actor, id string, req *dto.UpdateTimeSlotRequest) (*dto.TimeSlotResponse, error) {
	if err := requireEditor(actor); err != nil {
		return nil, err
	}
	slot, err := s.load(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	before := activeDays(slot)

	if req.Name != nil {
		slot.Name = *req.Name
	}
	if req.SlotType != nil {
		slot.SlotType = *req.SlotType
	}
	if req.StartTime != nil {
		slot.StartTime = *req.StartTime
	}
	if req.EndTime != nil {
		slot.EndTime = *req.EndTime
	}
	if req.SequenceOrder != nil {
		slot.SequenceOrder = *req.SequenceOrder
	}
	if req.AppliesTo != nil {
		slot.AppliesTo = model.IntArray(*req.AppliesTo)
	}
	if req.IsActive != nil {
		slot.IsActive = *req.IsActive
	}

	if err := s.validate(ctx, slot); err != nil {
		return nil, err
	}
	slot.UpdatedBy = &actor.UserID
	dropped := subtractDays(before, activeDays(slot))

	err = s.repo.Transaction(ctx, func(tx *repository.Repository) error {
		if len(dropped) > 0 {
			count, err := s.lockAndCount(ctx, tx, actor, id, dropped)
			if err != nil {
				return err
			}
			if count > 0 {
				return ErrSlotInUseChange
			}
		}
		return tx.TimeSlot.Update(ctx, slot)
	})
	if err != nil {
		if dup, ok := repository.AsDuplicate(err); ok && dup.Constraint == repository.ConstraintTimeSlotSequence {
			return nil, ErrDuplicateSequence
		}
		if !isBusinessError(err) {
			s.logger.Error("更新时间段失败", zap.String("id", id), zap.Error(err))
		}
		return nil, err
	}

	return toTimeSlotResponse(slot), nil
}

// ────────────────────── Delete ──────────────────────

// Delete 软删除；仍被排课引用时拒绝并返回引用次数
func (s *timeSlotService) Delete(ctx context.Context, actor Actor, id string) error {
	if err := requireEditor(actor); err != nil {
		return err
	}
	if _, err := s.load(ctx, actor, id); err != nil {
		return err
	}

	err := s.repo.Transaction(ctx, func(tx *repository.Repository) error {
		count, err := s.lockAndCount(ctx, tx, actor, id, allWeekdays)
		if err != nil {
			return err
		}
		if count > 0 {
			return &pkgerrors.InUseError{Resource: "时间段", Count: count}
		}
		return tx.TimeSlot.Delete(ctx, id, actor.UserID)
	})
	if err != nil {
		if !isBusinessError(err) {
			s.logger.Error("删除时间段失败", zap.String("id", id), zap.Error(err))
		}
		return err
	}
	return nil
}

// ────────────────────── Usage ──────────────────────

func (s *timeSlotService) Usage(ctx context.Context, actor Actor, id string) (*dto.UsageResponse, error) {
	if _, err := s.load(ctx, actor, id); err != nil {
		return nil, err
	}
	count, err := s.repo.Entry.CountBySlot(ctx, id)
	if err != nil {
		s.logger.Error("统计时间段引用失败", zap.String("id", id), zap.Error(err))
		return nil, err
	}
	return &dto.UsageResponse{ID: id, UsageCount: count}, nil
}

// ── 内部辅助方法 ──

func (s *timeSlotService) load(ctx context.Context, actor Actor, id string) (*model.TimeSlot, error) {
	slot, err := s.repo.TimeSlot.GetByID(ctx, actor.InstitutionID, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTimeSlotNotFound
		}
		s.logger.Error("查询时间段失败", zap.String("id", id), zap.Error(err))
		return nil, err
	}
	slot.StartTime = model.ClockHHMM(slot.StartTime)
	slot.EndTime = model.ClockHHMM(slot.EndTime)
	return slot, nil
}

// lockAndCount 以排他锁锁定时间段后统计指定星期上的排课。
// 排课写入持有同一行的共享锁，统计结果在事务提交前不会过期。
func (s *timeSlotService) lockAndCount(ctx context.Context, tx *repository.Repository, actor Actor, id string, days []int) (int64, error) {
	if _, err := tx.TimeSlot.Lock(ctx, actor.InstitutionID, id, repository.LockUpdate); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, ErrTimeSlotNotFound
		}
		return 0, err
	}
	return tx.Entry.CountBySlotDays(ctx, id, days)
}

var allWeekdays = []int{1, 2, 3, 4, 5, 6, 7}

// activeDays 时间段实际可排课的星期；停用时为空，applies_to 为空表示全周
func activeDays(slot *model.TimeSlot) []int {
	if !slot.IsActive {
		return nil
	}
	if len(slot.AppliesTo) == 0 {
		return allWeekdays
	}
	return []int(slot.AppliesTo)
}

// subtractDays 返回 a 中不在 b 中的星期
func subtractDays(a, b []int) []int {
	keep := make(map[int]bool, len(b))
	for _, d := range b {
		keep[d] = true
	}
	var out []int
	for _, d := range a {
		if !keep[d] {
			out = append(out, d)
		}
	}
	return out
}

// validate 校验并规范化时间段字段，applies_to 去重排序
func (s *timeSlotService) validate(ctx context.Context, slot *model.TimeSlot) error {
	if !model.IsValidSlotType(slot.SlotType) {
		return ErrInvalidSlotType
	}
	if !dto.IsClock(slot.StartTime) || !dto.IsClock(slot.EndTime) {
		return ErrInvalidClock
	}
	// 同为 HH:MM 时字典序即时间先后
	if slot.StartTime >= slot.EndTime {
		return ErrInvalidTimeRange
	}
	if slot.SequenceOrder < 1 {
		return ErrInvalidSequence
	}

	days, err := normalizeWeekdays(slot.AppliesTo)
	if err != nil {
		return err
	}
	slot.AppliesTo = days

	taken, err := s.repo.TimeSlot.SequenceTaken(ctx, slot.InstitutionID, slot.SequenceOrder, slot.TimeSlotID)
	if err != nil {
		s.logger.Error("校验节次序号失败", zap.Error(err))
		return err
	}
	if taken {
		return ErrDuplicateSequence
	}
	return nil
}

func normalizeWeekdays(in []int) (model.IntArray, error) {
	seen := make(map[int]bool, len(in))
	out := make(model.IntArray, 0, len(in))
	for _, d := range in {
		if d < 1 || d > 7 {
			return nil, ErrInvalidAppliesTo
		}
		if !seen[d] {
			seen[d] = true
			out = append(out, d)
		}
	}
	sort.Ints(out)
	return out, nil
}

func toTimeSlotResponse(slot *model.TimeSlot) *dto.TimeSlotResponse {
	days := []int(slot.AppliesTo)
	if days == nil {
		days = []int{}
	}
	return &dto.TimeSlotResponse{
		ID:            slot.TimeSlotID,
		Name:          slot.Name,
		SlotType:      slot.SlotType,
		StartTime:     model.ClockHHMM(slot.StartTime),
		EndTime:       model.ClockHHMM(slot.EndTime),
		SequenceOrder: slot.SequenceOrder,
		AppliesTo:     days,
		IsActive:      slot.IsActive,
		Version:       slot.Version,
		CreatedAt:     slot.CreatedAt.Format(dto.TimeLayout),
		UpdatedAt:     slot.UpdatedAt.Format(dto.TimeLayout),
	}
}
