package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"campus-timetable/backend/internal/service"
	"campus-timetable/backend/pkg/response"
)

// 由 JWTAuth 中间件注入的上下文键
const (
	CtxUserID           = "user_id"
	CtxInstitutionID    = "institution_id"
	CtxRole             = "role"
	CtxCanEditTimetable = "can_edit_timetable"
)

// MustGetUserID 从 Gin 上下文中安全提取 user_id。
// 如果 JWT 中间件未正确注入 user_id，返回 false 并写入 401 响应。
// 调用方应在 ok=false 时直接 return。
func MustGetUserID(c *gin.Context) (string, bool) {
	s := c.GetString(CtxUserID)
	if s == "" {
		response.Unauthorized(c, CodeUnauthorized, "未认证")
		return "", false
	}
	return s, true
}

// MustGetActor 从 Gin 上下文中组装调用方身份
func MustGetActor(c *gin.Context) (service.Actor, bool) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return service.Actor{}, false
	}
	inst := c.GetString(CtxInstitutionID)
	if inst == "" {
		response.Unauthorized(c, CodeUnauthorized, "未认证")
		return service.Actor{}, false
	}
	return service.Actor{
		UserID:        userID,
		InstitutionID: inst,
		CanEdit:       c.GetBool(CtxCanEditTimetable),
	}, true
}

// MustGetPathID 读取路径参数 :id。
// 非 UUID 的标识不可能对应任何记录，按 notFound 写入 404 响应。
func MustGetPathID(c *gin.Context, notFound error) (string, bool) {
	return mustParseID(c, c.Param("id"), notFound)
}

func mustParseID(c *gin.Context, raw string, notFound error) (string, bool) {
	if _, err := uuid.Parse(raw); err != nil {
		writeError(c, notFound)
		return "", false
	}
	return raw, true
}
