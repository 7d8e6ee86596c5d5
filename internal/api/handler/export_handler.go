package handler

import (
	"github.com/gin-gonic/gin"

	"campus-timetable/backend/internal/service"
	"campus-timetable/backend/pkg/response"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// ExportHandler 导出模块 HTTP 处理器
type ExportHandler struct {
	exportSvc service.ExportService
}

// NewExportHandler 创建 ExportHandler
func NewExportHandler(exportSvc service.ExportService) *ExportHandler {
	return &ExportHandler{exportSvc: exportSvc}
}

// ExportTimetable 导出课表
// GET /api/v1/timetables/:id/export?class_id=xxx
func (h *ExportHandler) ExportTimetable(c *gin.Context) {
	actor, ok := MustGetActor(c)
	if !ok {
		return
	}
	id, ok := MustGetPathID(c, service.ErrTimetableNotFound)
	if !ok {
		return
	}

	buf, filename, err := h.exportSvc.ExportTimetable(c.Request.Context(), actor, id, c.Query("class_id"))
	if err != nil {
		writeError(c, err)
		return
	}

	response.Attachment(c, xlsxContentType, filename, buf.Bytes())
}
