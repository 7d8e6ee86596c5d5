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

// ── 排课模块业务错误 ──

var (
	ErrEntryNotFound      = pkgerrors.NotFound("排课记录不存在")
	ErrSlotInactive       = pkgerrors.Validation("时间段已停用")
	ErrSlotNotOnDay       = pkgerrors.Validation("该时间段不适用于所选星期")
	ErrRoomInactive       = pkgerrors.Validation("教室已停用")
	ErrRefSlotNotFound    = pkgerrors.Validation("关联的时间段不存在")
	ErrRefRoomNotFound    = pkgerrors.Validation("关联的教室不存在")
	ErrRefClassNotFound   = pkgerrors.Validation("关联的班级不存在")
	ErrRefSubjectMissing  = pkgerrors.Validation("关联的科目不存在")
	ErrRefTeacherMissing  = pkgerrors.Validation("关联的教师不存在")
	ErrEntryHasExceptions = pkgerrors.Validation("该排课存在单日例外，请先撤销例外再调整星期或时间段")
)

// EntryService 排课明细业务接口
type EntryService interface {
	Create(ctx context.Context, actor Actor, timetableID string, req *dto.CreateEntryRequest) (*dto.EntryWriteResponse, error)
	Update(ctx context.Context, actor Actor, id string, req *dto.UpdateEntryRequest) (*dto.EntryWriteResponse, error)
	Delete(ctx context.Context, actor Actor, id string) error
	Get(ctx context.Context, actor Actor, id string) (*dto.EntryResponse, error)
	ListForTimetable(ctx context.Context, actor Actor, timetableID string, req *dto.EntryListRequest) ([]dto.EntryResponse, error)
}

type entryService struct {
	repo    *repository.Repository
	metrics metrics.Recorder
	logger  *zap.Logger
}

// NewEntryService 创建 EntryService 实例
func NewEntryService(repo *repository.Repository, rec metrics.Recorder, logger *zap.Logger) EntryService {
	return &entryService{repo: repo, metrics: rec, logger: logger}
}

// ────────────────────── Create ──────────────────────

// Create 校验顺序：权限 → 课表 → 字段 → 冲突预检 → 写入 → 规则警告
func (s *entryService) Create(ctx context.Context, actor Actor, timetableID string, req *dto.CreateEntryRequest) (*dto.EntryWriteResponse, error) {
	if err := requireEditor(actor); err != nil {
		return nil, err
	}
	if _, err := loadEditableTimetable(ctx, s.repo, actor, timetableID); err != nil {
		return nil, err
	}

	entry := &model.TimetableEntry{
		TimetableID:    timetableID,
		ClassID:        req.ClassID,
		SubjectID:      req.SubjectID,
		TeacherID:      req.TeacherID,
		RoomID:         req.RoomID,
		TimeSlotID:     req.TimeSlotID,
		DayOfWeek:      req.DayOfWeek,
		IsDoublePeriod: req.IsDoublePeriod,
		Notes:          req.Notes,
	}
	if err := s.validate(ctx, actor, entry); err != nil {
		return nil, err
	}
	if err := s.precheck(ctx, entry); err != nil {
		return nil, err
	}

	entry.CreatedBy = &actor.UserID
	entry.UpdatedBy = &actor.UserID
	err := s.repo.Transaction(ctx, func(tx *repository.Repository) error {
		if err := lockReferences(ctx, tx, actor, entry); err != nil {
			return err
		}
		return tx.Entry.Create(ctx, entry)
	})
	if err != nil {
		return nil, s.storageError(ctx, entry, err)
	}

	return s.written(ctx, actor, entry)
}

// ────────────────────── Update ──────────────────────

func (s *entryService) Update(ctx context.Context, actor Actor, id string, req *dto.UpdateEntryRequest) (*dto.EntryWriteResponse, error) {
	if err := requireEditor(actor); err != nil {
		return nil, err
	}
	entry, err := s.load(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if _, err := loadEditableTimetable(ctx, s.repo, actor, entry.TimetableID); err != nil {
		return nil, err
	}
	if req.Version != nil && *req.Version != entry.Version {
		return nil, pkgerrors.ErrOptimisticLock
	}
	// 例外日期按原星期与时间段登记，移动后将不再生效
	moved := (req.DayOfWeek != nil && *req.DayOfWeek != entry.DayOfWeek) ||
		(req.TimeSlotID != nil && *req.TimeSlotID != entry.TimeSlotID)

	if req.ClassID != nil {
		entry.ClassID = *req.ClassID
	}
	if req.SubjectID != nil {
		entry.SubjectID = *req.SubjectID
	}
	if req.TeacherID != nil {
		entry.TeacherID = *req.TeacherID
	}
	if req.RemoveRoom {
		entry.RoomID = nil
	} else if req.RoomID != nil {
		entry.RoomID = req.RoomID
	}
	if req.TimeSlotID != nil {
		entry.TimeSlotID = *req.TimeSlotID
	}
	if req.DayOfWeek != nil {
		entry.DayOfWeek = *req.DayOfWeek
	}
	if req.IsDoublePeriod != nil {
		entry.IsDoublePeriod = *req.IsDoublePeriod
	}
	if req.Notes != nil {
		entry.Notes = req.Notes
	}
	// 关联对象以 ID 为准，避免旧的预加载数据被误写
	entry.Class, entry.Subject, entry.Teacher, entry.Room, entry.TimeSlot = nil, nil, nil, nil, nil

	if err := s.validate(ctx, actor, entry); err != nil {
		return nil, err
	}
	if err := s.precheck(ctx, entry); err != nil {
		return nil, err
	}

	entry.UpdatedBy = &actor.UserID
	err = s.repo.Transaction(ctx, func(tx *repository.Repository) error {
		// 排他锁与例外创建时的共享锁互斥
		current, err := tx.Entry.Lock(ctx, entry.EntryID, repository.LockUpdate)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrEntryNotFound
			}
			return err
		}
		if current.Version != entry.Version {
			return pkgerrors.ErrOptimisticLock
		}
		if moved {
			n, err := tx.Exception.CountByEntry(ctx, entry.EntryID)
			if err != nil {
				return err
			}
			if n > 0 {
				return ErrEntryHasExceptions
			}
		}
		if err := lockReferences(ctx, tx, actor, entry); err != nil {
			return err
		}
		return tx.Entry.Update(ctx, entry)
	})
	if err != nil {
		return nil, s.storageError(ctx, entry, err)
	}

	return s.written(ctx, actor, entry)
}

// ────────────────────── Delete ──────────────────────

// Delete 在同一事务内删除排课及其全部例外
func (s *entryService) Delete(ctx context.Context, actor Actor, id string) error {
	if err := requireEditor(actor); err != nil {
		return err
	}
	entry, err := s.load(ctx, actor, id)
	if err != nil {
		return err
	}
	if _, err := loadEditableTimetable(ctx, s.repo, actor, entry.TimetableID); err != nil {
		return err
	}

	err = s.repo.Transaction(ctx, func(tx *repository.Repository) error {
		if err := tx.Exception.DeleteByEntry(ctx, id); err != nil {
			return err
		}
		return tx.Entry.Delete(ctx, id)
	})
	if err != nil {
		s.logger.Error("删除排课失败", zap.String("id", id), zap.Error(err))
		return err
	}
	return nil
}

// ────────────────────── Get ──────────────────────

func (s *entryService) Get(ctx context.Context, actor Actor, id string) (*dto.EntryResponse, error) {
	entry, err := s.load(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	return toEntryResponse(entry), nil
}

// ────────────────────── ListForTimetable ──────────────────────

func (s *entryService) ListForTimetable(ctx context.Context, actor Actor, timetableID string, req *dto.EntryListRequest) ([]dto.EntryResponse, error) {
	if _, err := loadTimetable(ctx, s.repo, actor, timetableID); err != nil {
		return nil, err
	}

	filter := repository.EntryFilter{
		ClassID:   req.ClassID,
		TeacherID: req.TeacherID,
		RoomID:    req.RoomID,
		DayOfWeek: req.DayOfWeek,
	}
	entries, err := s.repo.Entry.ListByTimetable(ctx, timetableID, filter)
	if err != nil {
		s.logger.Error("列出排课失败", zap.String("timetable_id", timetableID), zap.Error(err))
		return nil, err
	}

	result := make([]dto.EntryResponse, 0, len(entries))
	for i := range entries {
		result = append(result, *toEntryResponse(&entries[i]))
	}
	return result, nil
}

// ── 内部辅助方法 ──

func (s *entryService) load(ctx context.Context, actor Actor, id string) (*model.TimetableEntry, error) {
	entry, err := loadEntry(ctx, s.repo, actor, id)
	if err != nil && !errors.Is(err, ErrEntryNotFound) {
		s.logger.Error("查询排课失败", zap.String("id", id), zap.Error(err))
	}
	return entry, err
}

// loadEntry 加载排课并确认其所属课表属于调用方机构
func loadEntry(ctx context.Context, repo *repository.Repository, actor Actor, id string) (*model.TimetableEntry, error) {
	entry, err := repo.Entry.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrEntryNotFound
		}
		return nil, err
	}
	if _, err := loadTimetable(ctx, repo, actor, entry.TimetableID); err != nil {
		if errors.Is(err, ErrTimetableNotFound) {
			return nil, ErrEntryNotFound
		}
		return nil, err
	}
	return entry, nil
}

// validate 校验星期、时间段、教室与班级/科目/教师引用
func (s *entryService) validate(ctx context.Context, actor Actor, entry *model.TimetableEntry) error {
	if entry.DayOfWeek < 1 || entry.DayOfWeek > 7 {
		return ErrInvalidDayOfWeek
	}

	slot, err := s.repo.TimeSlot.GetByID(ctx, actor.InstitutionID, entry.TimeSlotID)
	if err != nil {
		return refError(err, ErrRefSlotNotFound)
	}
	if !slot.IsActive {
		return ErrSlotInactive
	}
	if !slot.AppliesOn(entry.DayOfWeek) {
		return ErrSlotNotOnDay
	}

	if entry.RoomID != nil {
		room, err := s.repo.Room.GetByID(ctx, actor.InstitutionID, *entry.RoomID)
		if err != nil {
			return refError(err, ErrRefRoomNotFound)
		}
		if !room.IsActive {
			return ErrRoomInactive
		}
	}

	if _, err := s.repo.Reference.GetClass(ctx, actor.InstitutionID, entry.ClassID); err != nil {
		return refError(err, ErrRefClassNotFound)
	}
	if _, err := s.repo.Reference.GetSubject(ctx, actor.InstitutionID, entry.SubjectID); err != nil {
		return refError(err, ErrRefSubjectMissing)
	}
	if _, err := s.repo.Reference.GetTeacher(ctx, actor.InstitutionID, entry.TeacherID); err != nil {
		return refError(err, ErrRefTeacherMissing)
	}
	return nil
}

// lockReferences 在写入事务内以共享锁重读时间段与教室。
// 删除、停用时间段或教室需要排他锁，二者互斥，不会留下指向已删除记录的排课。
func lockReferences(ctx context.Context, tx *repository.Repository, actor Actor, entry *model.TimetableEntry) error {
	slot, err := tx.TimeSlot.Lock(ctx, actor.InstitutionID, entry.TimeSlotID, repository.LockShare)
	if err != nil {
		return refError(err, ErrRefSlotNotFound)
	}
	if !slot.IsActive {
		return ErrSlotInactive
	}
	if !slot.AppliesOn(entry.DayOfWeek) {
		return ErrSlotNotOnDay
	}
	if entry.RoomID == nil {
		return nil
	}
	room, err := tx.Room.Lock(ctx, actor.InstitutionID, *entry.RoomID, repository.LockShare)
	if err != nil {
		return refError(err, ErrRefRoomNotFound)
	}
	if !room.IsActive {
		return ErrRoomInactive
	}
	return nil
}

// precheck 写入前的冲突预检，修改时排除自身
func (s *entryService) precheck(ctx context.Context, entry *model.TimetableEntry) error {
	result, err := detectClash(ctx, s.repo, bucketOf(entry), &entry.TeacherID, entry.RoomID, entry.EntryID)
	if err != nil {
		s.logger.Error("冲突预检失败", zap.Error(err))
		return err
	}
	s.metrics.ClashChecked(result.HasClash())
	if result.HasClash() {
		s.metrics.ClashRejected(metrics.StagePrecheck, clashResource(result))
		return pkgerrors.NewClashError(result)
	}
	return nil
}

// storageError 将唯一约束冲突转换为与预检相同形状的 ClashError。
// 详情为尽力回读，读不到时仍置对应标记。
func (s *entryService) storageError(ctx context.Context, entry *model.TimetableEntry, err error) error {
	dup, ok := repository.AsDuplicate(err)
	if !ok {
		if !isBusinessError(err) {
			s.logger.Error("保存排课失败", zap.String("timetable_id", entry.TimetableID), zap.Error(err))
		}
		return err
	}

	result, derr := detectClash(ctx, s.repo, bucketOf(entry), &entry.TeacherID, entry.RoomID, entry.EntryID)
	if derr != nil {
		s.logger.Warn("回读冲突详情失败", zap.Error(derr))
		result = pkgerrors.ClashResult{}
	}
	switch dup.Constraint {
	case repository.ConstraintEntryTeacherSlot:
		result.HasTeacherClash = true
	case repository.ConstraintEntryRoomSlot:
		result.HasRoomClash = true
	}
	if !result.HasClash() {
		s.logger.Error("保存排课违反未知唯一约束", zap.String("constraint", dup.Constraint), zap.Error(err))
		return err
	}
	s.metrics.ClashRejected(metrics.StageStorage, clashResource(result))
	return pkgerrors.NewClashError(result)
}

// written 回读写入后的排课并附加规则警告。规则评估失败只记录日志。
func (s *entryService) written(ctx context.Context, actor Actor, entry *model.TimetableEntry) (*dto.EntryWriteResponse, error) {
	saved, err := s.repo.Entry.GetByID(ctx, entry.EntryID)
	if err != nil {
		s.logger.Error("回读排课失败", zap.String("id", entry.EntryID), zap.Error(err))
		return nil, err
	}

	warnings, err := evaluateConstraints(ctx, s.repo, actor.InstitutionID, proposal{
		TimetableID: saved.TimetableID,
		ClassID:     saved.ClassID,
		SubjectID:   saved.SubjectID,
		TeacherID:   saved.TeacherID,
		RoomID:      saved.RoomID,
		TimeSlotID:  saved.TimeSlotID,
		DayOfWeek:   saved.DayOfWeek,
		ExcludeID:   saved.EntryID,
	})
	if err != nil {
		s.logger.Warn("评估排课规则失败", zap.String("id", saved.EntryID), zap.Error(err))
		warnings = []dto.ConstraintViolation{}
	}
	for _, w := range warnings {
		s.metrics.ConstraintViolated(w.Type)
	}

	return &dto.EntryWriteResponse{Entry: *toEntryResponse(saved), Warnings: warnings}, nil
}

func bucketOf(entry *model.TimetableEntry) repository.Bucket {
	return repository.Bucket{TimetableID: entry.TimetableID, DayOfWeek: entry.DayOfWeek, TimeSlotID: entry.TimeSlotID}
}

func clashResource(r pkgerrors.ClashResult) string {
	switch {
	case r.HasTeacherClash && r.HasRoomClash:
		return "both"
	case r.HasRoomClash:
		return "room"
	default:
		return "teacher"
	}
}

// refError 请求体中的关联记录不存在属于参数错误
func refError(err, missing error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return missing
	}
	return err
}

func toEntryResponse(e *model.TimetableEntry) *dto.EntryResponse {
	resp := &dto.EntryResponse{
		ID:             e.EntryID,
		TimetableID:    e.TimetableID,
		Class:          dto.NamedRef{ID: e.ClassID, Name: className(e)},
		Subject:        dto.NamedRef{ID: e.SubjectID, Name: subjectName(e)},
		Teacher:        dto.NamedRef{ID: e.TeacherID, Name: teacherName(e)},
		TimeSlot:       dto.SlotBrief{ID: e.TimeSlotID},
		DayOfWeek:      e.DayOfWeek,
		IsDoublePeriod: e.IsDoublePeriod,
		Notes:          e.Notes,
		Version:        e.Version,
		CreatedAt:      e.CreatedAt.Format(dto.TimeLayout),
		UpdatedAt:      e.UpdatedAt.Format(dto.TimeLayout),
	}
	if e.RoomID != nil {
		ref := dto.NamedRef{ID: *e.RoomID}
		if e.Room != nil {
			ref.Name = e.Room.Name
		}
		resp.Room = &ref
	}
	if e.TimeSlot != nil {
		resp.TimeSlot.Name = e.TimeSlot.Name
		resp.TimeSlot.StartTime = model.ClockHHMM(e.TimeSlot.StartTime)
		resp.TimeSlot.EndTime = model.ClockHHMM(e.TimeSlot.EndTime)
		resp.TimeSlot.SequenceOrder = e.TimeSlot.SequenceOrder
	}
	return resp
}
