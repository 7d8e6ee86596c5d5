package service

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"campus-timetable/backend/internal/dto"
	"campus-timetable/backend/internal/model"
	"campus-timetable/backend/internal/repository"
	pkgerrors "campus-timetable/backend/pkg/errors"
)

// ── 教室模块业务错误 ──

var (
	ErrRoomNotFound      = pkgerrors.NotFound("教室不存在")
	ErrInvalidRoomType   = pkgerrors.Validation("无效的教室类型")
	ErrNegativeCapacity  = pkgerrors.Validation("容量不能为负数")
	ErrDuplicateRoomName = pkgerrors.Validation("本机构已存在同名教室")
	ErrRoomInUseChange   = pkgerrors.Validation("教室仍被排课引用，不能停用")
)

// RoomService 教室业务接口
type RoomService interface {
	List(ctx context.Context, actor Actor, req *dto.RoomListRequest) ([]dto.RoomResponse, error)
	Get(ctx context.Context, actor Actor, id string) (*dto.RoomResponse, error)
	Create(ctx context.Context, actor Actor, req *dto.CreateRoomRequest) (*dto.RoomResponse, error)
	Update(ctx context.Context, actor Actor, id string, req *dto.UpdateRoomRequest) (*dto.RoomResponse, error)
	Delete(ctx context.Context, actor Actor, id string) error
	Usage(ctx context.Context, actor Actor, id string) (*dto.UsageResponse, error)
}

type roomService struct {
	repo   *repository.Repository
	logger *zap.Logger
}

// NewRoomService 创建 RoomService 实例
func NewRoomService(repo *repository.Repository, logger *zap.Logger) RoomService {
	return &roomService{repo: repo, logger: logger}
}

// ────────────────────── List ──────────────────────

func (s *roomService) List(ctx context.Context, actor Actor, req *dto.RoomListRequest) ([]dto.RoomResponse, error) {
	rooms, err := s.repo.Room.List(ctx, actor.InstitutionID, req.IncludeInactive)
	if err != nil {
		s.logger.Error("列出教室失败", zap.Error(err))
		return nil, err
	}

	result := make([]dto.RoomResponse, 0, len(rooms))
	for i := range rooms {
		result = append(result, *toRoomResponse(&rooms[i]))
	}
	return result, nil
}

// ────────────────────── Get ──────────────────────

func (s *roomService) Get(ctx context.Context, actor Actor, id string) (*dto.RoomResponse, error) {
	room, err := s.load(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	return toRoomResponse(room), nil
}

// ────────────────────── Create ──────────────────────

func (s *roomService) Create(ctx context.Context, actor Actor, req *dto.CreateRoomRequest) (*dto.RoomResponse, error) {
	if err := requireEditor(actor); err != nil {
		return nil, err
	}

	roomType := req.RoomType
	if roomType == "" {
		roomType = model.RoomTypeClassroom
	}
	room := &model.Room{
		InstitutionID: actor.InstitutionID,
		Name:          strings.TrimSpace(req.Name),
		Building:      strings.TrimSpace(req.Building),
		Floor:         req.Floor,
		Capacity:      req.Capacity,
		RoomType:      roomType,
		Facilities:    normalizeFacilities(req.Facilities),
		IsActive:      true,
	}
	if err := s.validate(ctx, room); err != nil {
		return nil, err
	}
	room.CreatedBy = &actor.UserID
	room.UpdatedBy = &actor.UserID

	if err := s.repo.Room.Create(ctx, room); err != nil {
		if dup, ok := repository.AsDuplicate(err); ok && dup.Constraint == repository.ConstraintRoomName {
			return nil, ErrDuplicateRoomName
		}
		s.logger.Error("创建教室失败", zap.Error(err))
		return nil, err
	}

	return toRoomResponse(room), nil
}

// ────────────────────── Update ──────────────────────

func (s *roomService) Update(ctx context.Context, actor Actor, id string, req *dto.UpdateRoomRequest) (*dto.RoomResponse, error) {
	if err := requireEditor(actor); err != nil {
		return nil, err
	}
	room, err := s.load(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	wasActive := room.IsActive

	if req.Name != nil {
		room.Name = strings.TrimSpace(*req.Name)
	}
	if req.Building != nil {
		room.Building = strings.TrimSpace(*req.Building)
	}
	if req.Floor != nil {
		room.Floor = *req.Floor
	}
	if req.Capacity != nil {
		room.Capacity = *req.Capacity
	}
	if req.RoomType != nil {
		room.RoomType = *req.RoomType
	}
	if req.Facilities != nil {
		room.Facilities = normalizeFacilities(*req.Facilities)
	}
	if req.IsActive != nil {
		room.IsActive = *req.IsActive
	}

	if err := s.validate(ctx, room); err != nil {
		return nil, err
	}
	room.UpdatedBy = &actor.UserID

	err = s.repo.Transaction(ctx, func(tx *repository.Repository) error {
		if wasActive && !room.IsActive {
			count, err := s.lockAndCount(ctx, tx, actor, id)
			if err != nil {
				return err
			}
			if count > 0 {
				return ErrRoomInUseChange
			}
		}
		return tx.Room.Update(ctx, room)
	})
	if err != nil {
		if dup, ok := repository.AsDuplicate(err); ok && dup.Constraint == repository.ConstraintRoomName {
			return nil, ErrDuplicateRoomName
		}
		if !isBusinessError(err) {
			s.logger.Error("更新教室失败", zap.String("id", id), zap.Error(err))
		}
		return nil, err
	}

	return toRoomResponse(room), nil
}

// ────────────────────── Delete ──────────────────────

// Delete 软删除；仍被排课引用时拒绝并返回引用次数
func (s *roomService) Delete(ctx context.Context, actor Actor, id string) error {
	if err := requireEditor(actor); err != nil {
		return err
	}
	if _, err := s.load(ctx, actor, id); err != nil {
		return err
	}

	err := s.repo.Transaction(ctx, func(tx *repository.Repository) error {
		count, err := s.lockAndCount(ctx, tx, actor, id)
		if err != nil {
			return err
		}
		if count > 0 {
			return &pkgerrors.InUseError{Resource: "教室", Count: count}
		}
		return tx.Room.Delete(ctx, id, actor.UserID)
	})
	if err != nil {
		if !isBusinessError(err) {
			s.logger.Error("删除教室失败", zap.String("id", id), zap.Error(err))
		}
		return err
	}
	return nil
}

// lockAndCount 以排他锁锁定教室后统计引用它的排课
func (s *roomService) lockAndCount(ctx context.Context, tx *repository.Repository, actor Actor, id string) (int64, error) {
	if _, err := tx.Room.Lock(ctx, actor.InstitutionID, id, repository.LockUpdate); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, ErrRoomNotFound
		}
		return 0, err
	}
	return tx.Entry.CountByRoom(ctx, id)
}

// ────────────────────── Usage ──────────────────────

func (s *roomService) Usage(ctx context.Context, actor Actor, id string) (*dto.UsageResponse, error) {
	if _, err := s.load(ctx, actor, id); err != nil {
		return nil, err
	}
	count, err := s.repo.Entry.CountByRoom(ctx, id)
	if err != nil {
		s.logger.Error("统计教室引用失败", zap.String("id", id), zap.Error(err))
		return nil, err
	}
	return &dto.UsageResponse{ID: id, UsageCount: count}, nil
}

// ── 内部辅助方法 ──

func (s *roomService) load(ctx context.Context, actor Actor, id string) (*model.Room, error) {
	room, err := s.repo.Room.GetByID(ctx, actor.InstitutionID, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRoomNotFound
		}
		s.logger.Error("查询教室失败", zap.String("id", id), zap.Error(err))
		return nil, err
	}
	return room, nil
}

func (s *roomService) validate(ctx context.Context, room *model.Room) error {
	if !model.IsValidRoomType(room.RoomType) {
		return ErrInvalidRoomType
	}
	if room.Capacity < 0 {
		return ErrNegativeCapacity
	}
	taken, err := s.repo.Room.NameTaken(ctx, room.InstitutionID, room.Name, room.RoomID)
	if err != nil {
		s.logger.Error("校验教室名称失败", zap.Error(err))
		return err
	}
	if taken {
		return ErrDuplicateRoomName
	}
	return nil
}

// normalizeFacilities 去除空白与重复标签，保持原有顺序
func normalizeFacilities(in []string) datatypes.JSONSlice[string] {
	seen := make(map[string]bool, len(in))
	out := make([]string, 0, len(in))
	for _, f := range in {
		f = strings.TrimSpace(f)
		if f == "" || seen[f] {
			continue
		}
		seen[f] = true
		out = append(out, f)
	}
	return datatypes.JSONSlice[string](out)
}

func toRoomResponse(room *model.Room) *dto.RoomResponse {
	facilities := []string(room.Facilities)
	if facilities == nil {
		facilities = []string{}
	}
	return &dto.RoomResponse{
		ID:         room.RoomID,
		Name:       room.Name,
		Building:   room.Building,
		Floor:      room.Floor,
		Capacity:   room.Capacity,
		RoomType:   room.RoomType,
		Facilities: facilities,
		IsActive:   room.IsActive,
		Version:    room.Version,
		CreatedAt:  room.CreatedAt.Format(dto.TimeLayout),
		UpdatedAt:  room.UpdatedAt.Format(dto.TimeLayout),
	}
}
