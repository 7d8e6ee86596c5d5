package handler

import (
	"github.com/gin-gonic/gin"

	"campus-timetable/backend/internal/dto"
	"campus-timetable/backend/internal/service"
	"campus-timetable/backend/pkg/response"
)

// EntryHandler 排课明细 HTTP 处理器
type EntryHandler struct {
	entrySvc service.EntryService
}

// NewEntryHandler 创建 EntryHandler
func NewEntryHandler(entrySvc service.EntryService) *EntryHandler {
	return &EntryHandler{entrySvc: entrySvc}
}

// ListEntries 获取课表下的排课
// GET /api/v1/timetables/:id/entries
func (h *EntryHandler) ListEntries(c *gin.Context) {
	var req dto.EntryListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
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

	list, err := h.entrySvc.ListForTimetable(c.Request.Context(), actor, id, &req)
	if err != nil {
		writeError(c, err)
		return
	}

	response.OK(c, gin.H{"list": list})
}

// CreateEntry 新增排课
// POST /api/v1/timetables/:id/entries
func (h *EntryHandler) CreateEntry(c *gin.Context) {
	var req dto.CreateEntryRequest
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

	result, err := h.entrySvc.Create(c.Request.Context(), actor, id, &req)
	if err != nil {
		writeError(c, err)
		return
	}

	response.Created(c, result)
}

// GetEntry 获取排课详情
// GET /api/v1/entries/:id
func (h *EntryHandler) GetEntry(c *gin.Context) {
	actor, ok := MustGetActor(c)
	if !ok {
		return
	}
	id, ok := MustGetPathID(c, service.ErrEntryNotFound)
	if !ok {
		return
	}

	entry, err := h.entrySvc.Get(c.Request.Context(), actor, id)
	if err != nil {
		writeError(c, err)
		return
	}

	response.OK(c, entry)
}

// UpdateEntry 调整排课
// PUT /api/v1/entries/:id
func (h *EntryHandler) UpdateEntry(c *gin.Context) {
	var req dto.UpdateEntryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindFailed(c, err)
		return
	}
	actor, ok := MustGetActor(c)
	if !ok {
		return
	}
	id, ok := MustGetPathID(c, service.ErrEntryNotFound)
	if !ok {
		return
	}

	result, err := h.entrySvc.Update(c.Request.Context(), actor, id, &req)
	if err != nil {
		writeError(c, err)
		return
	}

	response.OK(c, result)
}

// DeleteEntry 删除排课（连同其例外）
// DELETE /api/v1/entries/:id
func (h *EntryHandler) DeleteEntry(c *gin.Context) {
	actor, ok := MustGetActor(c)
	if !ok {
		return
	}
	id, ok := MustGetPathID(c, service.ErrEntryNotFound)
	if !ok {
		return
	}

	if err := h.entrySvc.Delete(c.Request.Context(), actor, id); err != nil {
		writeError(c, err)
		return
	}

	response.OK(c, nil)
}
