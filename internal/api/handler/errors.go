package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	pkgerrors "campus-timetable/backend/pkg/errors"
	"campus-timetable/backend/pkg/response"
)

// 业务错误码
const (
	CodeInvalidParam = 10001
	CodeUnauthorized = 10002
	CodeForbidden    = 10003
	CodeValidation   = 20001
	CodeNotFound     = 20004
	CodeClash        = 20009
	CodeInUse        = 20010
)

// writeError 按错误类别写出统一响应。
// 非业务错误只返回通用 500，原始错误挂到 gin.Context 由日志中间件记录。
func writeError(c *gin.Context, err error) {
	if clash, ok := pkgerrors.AsClash(err); ok {
		response.Conflict(c, CodeClash, clash.Error(), clash.Result)
		return
	}
	if inUse, ok := pkgerrors.AsInUse(err); ok {
		response.Conflict(c, CodeInUse, inUse.Error(), gin.H{"usage_count": inUse.Count})
		return
	}

	switch {
	case errors.Is(err, pkgerrors.ErrForbidden):
		response.Forbidden(c, CodeForbidden, "无权限访问")
	case errors.Is(err, pkgerrors.ErrValidation):
		response.BadRequest(c, CodeValidation, err.Error())
	case errors.Is(err, pkgerrors.ErrNotFound):
		response.NotFound(c, CodeNotFound, err.Error())
	default:
		_ = c.Error(err)
		response.InternalError(c)
	}
}

// bindFailed 请求体 / 查询参数绑定失败
func bindFailed(c *gin.Context, err error) {
	var maxErr *http.MaxBytesError
	if errors.As(err, &maxErr) {
		_ = c.Error(err)
		response.Error(c, http.StatusRequestEntityTooLarge, 10005, "请求体过大")
		return
	}
	response.ErrorWithDetails(c, http.StatusBadRequest, CodeInvalidParam, "参数校验失败", err.Error())
}
