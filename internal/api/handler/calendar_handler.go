package handler

import (
	"context"
	"strings"

	"github.com/gin-gonic/gin"

	"campus-timetable/backend/internal/dto"
	"campus-timetable/backend/internal/service"
	"campus-timetable/backend/pkg/response"
)

const icsContentType = "text/calendar; charset=utf-8"

// CalendarHandler 日历订阅 HTTP 处理器
type CalendarHandler struct {
	calendarSvc service.CalendarService
}

// NewCalendarHandler 创建 CalendarHandler
func NewCalendarHandler(calendarSvc service.CalendarService) *CalendarHandler {
	return &CalendarHandler{calendarSvc: calendarSvc}
}

// TeacherCalendar 教师课表日历
// GET /api/v1/calendars/teachers/:id.ics?from=&to=
func (h *CalendarHandler) TeacherCalendar(c *gin.Context) {
	h.serve(c, h.calendarSvc.TeacherCalendar, service.ErrTeacherNotFound)
}

// RoomCalendar 教室使用日历
// GET /api/v1/calendars/rooms/:id.ics?from=&to=
func (h *CalendarHandler) RoomCalendar(c *gin.Context) {
	h.serve(c, h.calendarSvc.RoomCalendar, service.ErrRoomNotFound)
}

type calendarFunc func(ctx context.Context, actor service.Actor, id string, req *dto.CalendarRequest) (string, error)

func (h *CalendarHandler) serve(c *gin.Context, fn calendarFunc, notFound error) {
	var req dto.CalendarRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		bindFailed(c, err)
		return
	}
	actor, ok := MustGetActor(c)
	if !ok {
		return
	}

	// gin 路由参数不能带后缀，:id 匹配 "<id>.ics"
	id, ok := mustParseID(c, strings.TrimSuffix(c.Param("id"), ".ics"), notFound)
	if !ok {
		return
	}
	body, err := fn(c.Request.Context(), actor, id, &req)
	if err != nil {
		writeError(c, err)
		return
	}

	response.Attachment(c, icsContentType, id+".ics", []byte(body))
}
