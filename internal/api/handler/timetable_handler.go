package handler

import (
	"github.com/gin-gonic/gin"

	"campus-timetable/backend/internal/dto"
	"campus-timetable/backend/internal/service"
	"campus-timetable/backend/pkg/response"
)

// TimetableHandler 课表生命周期与冲突预检 HTTP 处理器
type TimetableHandler struct {
	timetableSvc service.TimetableService
	clashSvc     service.ClashService
}

// NewTimetableHandler 创建 TimetableHandler
func NewTimetableHandler(timetableSvc service.TimetableService, clashSvc service.ClashService) *TimetableHandler {
	return &TimetableHandler{timetableSvc: timetableSvc, clashSvc: clashSvc}
}

// ListTimetables 获取课表列表
// GET /api/v1/timetables
func (h *TimetableHandler) ListTimetables(c *gin.Context) {
	var req dto.TimetableListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		bindFailed(c, err)
		return
	}
	actor, ok := MustGetActor(c)
	if !ok {
		return
	}

	list, total, err := h.timetableSvc.List(c.Request.Context(), actor, &req)
	if err != nil {
		writeError(c, err)
		return
	}

	response.OKPage(c, list, total, req.GetPage(), req.GetPageSize())
}

// GetTimetable 获取课表详情
// GET /api/v1/timetables/:id
func (h *TimetableHandler) GetTimetable(c *gin.Context) {
	actor, ok := MustGetActor(c)
	if !ok {
		return
	}
	id, ok := MustGetPathID(c, service.ErrTimetableNotFound)
	if !ok {
		return
	}

	tt, err := h.timetableSvc.Get(c.Request.Context(), actor, id)
	if err != nil {
		writeError(c, err)
		return
	}

	response.OK(c, tt)
}

// CreateTimetable 创建草稿课表
// POST /api/v1/timetables
func (h *TimetableHandler) CreateTimetable(c *gin.Context) {
	var req dto.CreateTimetableRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindFailed(c, err)
		return
	}
	actor, ok := MustGetActor(c)
	if !ok {
		return
	}

	tt, err := h.timetableSvc.Create(c.Request.Context(), actor, &req)
	if err != nil {
		writeError(c, err)
		return
	}

	response.Created(c, tt)
}

// UpdateTimetable 更新草稿课表
// PUT /api/v1/timetables/:id
func (h *TimetableHandler) UpdateTimetable(c *gin.Context) {
	var req dto.UpdateTimetableRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindFailed(c, err)
		return
	}
	actor, ok := MustGetActor(c)
	if !ok {
		return
	}
	id, ok := MustGetPathID(c, service.ErrTimetableNotFound)
	if !ok {
		return
	}

	tt, err := h.timetableSvc.Update(c.Request.Context(), actor, id, &req)
	if err != nil {
		writeError(c, err)
		return
	}

	response.OK(c, tt)
}

// PublishTimetable 发布课表
// POST /api/v1/timetables/:id/publish
func (h *TimetableHandler) PublishTimetable(c *gin.Context) {
	actor, ok := MustGetActor(c)
	if !ok {
		return
	}
	id, ok := MustGetPathID(c, service.ErrTimetableNotFound)
	if !ok {
		return
	}

	tt, err := h.timetableSvc.Publish(c.Request.Context(), actor, id)
	if err != nil {
		writeError(c, err)
		return
	}

	response.OK(c, tt)
}

// ArchiveTimetable 归档课表
// POST /api/v1/timetables/:id/archive
func (h *TimetableHandler) ArchiveTimetable(c *gin.Context) {
	actor, ok := MustGetActor(c)
	if !ok {
		return
	}
	id, ok := MustGetPathID(c, service.ErrTimetableNotFound)
	if !ok {
		return
	}

	tt, err := h.timetableSvc.Archive(c.Request.Context(), actor, id)
	if err != nil {
		writeError(c, err)
		return
	}

	response.OK(c, tt)
}

// CheckClash 冲突预检，只读
// POST /api/v1/timetables/:id/clash-check
func (h *TimetableHandler) CheckClash(c *gin.Context) {
	var req dto.ClashCheckRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindFailed(c, err)
		return
	}
	actor, ok := MustGetActor(c)
	if !ok {
		return
	}
	id, ok := MustGetPathID(c, service.ErrTimetableNotFound)
	if !ok {
		return
	}

	result, err := h.clashSvc.Check(c.Request.Context(), actor, id, &req)
	if err != nil {
		writeError(c, err)
		return
	}

	response.OK(c, result)
}
