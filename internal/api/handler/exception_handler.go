package handler

import (
	"github.com/gin-gonic/gin"

	"campus-timetable/backend/internal/dto"
	"campus-timetable/backend/internal/service"
	"campus-timetable/backend/pkg/response"
)

// ExceptionHandler 单日例外 HTTP 处理器
type ExceptionHandler struct {
	exceptionSvc service.ExceptionService
}

// NewExceptionHandler 创建 ExceptionHandler
func NewExceptionHandler(exceptionSvc service.ExceptionService) *ExceptionHandler {
	return &ExceptionHandler{exceptionSvc: exceptionSvc}
}

// CreateException 为某条排课登记单日例外
// POST /api/v1/entries/:id/exceptions
func (h *ExceptionHandler) CreateException(c *gin.Context) {
	var req dto.CreateExceptionRequest
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

	exc, err := h.exceptionSvc.Create(c.Request.Context(), actor, id, &req)
	if err != nil {
		writeError(c, err)
		return
	}

	response.Created(c, exc)
}

// ListEntryExceptions 获取某条排课的全部例外
// GET /api/v1/entries/:id/exceptions
func (h *ExceptionHandler) ListEntryExceptions(c *gin.Context) {
	actor, ok := MustGetActor(c)
	if !ok {
		return
	}
	id, ok := MustGetPathID(c, service.ErrEntryNotFound)
	if !ok {
		return
	}

	list, err := h.exceptionSvc.ListForEntry(c.Request.Context(), actor, id)
	if err != nil {
		writeError(c, err)
		return
	}

	response.OK(c, gin.H{"list": list})
}

// ListTimetableExceptions 按日期区间获取课表的例外
// GET /api/v1/timetables/:id/exceptions?from=&to=
func (h *ExceptionHandler) ListTimetableExceptions(c *gin.Context) {
	var req dto.ExceptionRangeRequest
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

	list, err := h.exceptionSvc.ListForTimetable(c.Request.Context(), actor, id, &req)
	if err != nil {
		writeError(c, err)
		return
	}

	response.OK(c, gin.H{"list": list})
}

// RevertException 撤销例外
// DELETE /api/v1/exceptions/:id
func (h *ExceptionHandler) RevertException(c *gin.Context) {
	actor, ok := MustGetActor(c)
	if !ok {
		return
	}
	id, ok := MustGetPathID(c, service.ErrExceptionNotFound)
	if !ok {
		return
	}

	if err := h.exceptionSvc.Revert(c.Request.Context(), actor, id); err != nil {
		writeError(c, err)
		return
	}

	response.OK(c, nil)
}
