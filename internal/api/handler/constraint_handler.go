package handler

import (
	"github.com/gin-gonic/gin"

	"campus-timetable/backend/internal/dto"
	"campus-timetable/backend/internal/service"
	"campus-timetable/backend/pkg/response"
)

// ConstraintHandler 软性排课规则 HTTP 处理器
type ConstraintHandler struct {
	constraintSvc service.ConstraintService
}

// NewConstraintHandler 创建 ConstraintHandler
func NewConstraintHandler(constraintSvc service.ConstraintService) *ConstraintHandler {
	return &ConstraintHandler{constraintSvc: constraintSvc}
}

// ListConstraints 获取规则列表（按优先级降序）
// GET /api/v1/constraints
func (h *ConstraintHandler) ListConstraints(c *gin.Context) {
	var req dto.ConstraintListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		bindFailed(c, err)
		return
	}
	actor, ok := MustGetActor(c)
	if !ok {
		return
	}

	list, err := h.constraintSvc.List(c.Request.Context(), actor, &req)
	if err != nil {
		writeError(c, err)
		return
	}

	response.OK(c, gin.H{"list": list})
}

// GetConstraint 获取规则详情
// GET /api/v1/constraints/:id
func (h *ConstraintHandler) GetConstraint(c *gin.Context) {
	actor, ok := MustGetActor(c)
	if !ok {
		return
	}
	id, ok := MustGetPathID(c, service.ErrConstraintNotFound)
	if !ok {
		return
	}

	rule, err := h.constraintSvc.Get(c.Request.Context(), actor, id)
	if err != nil {
		writeError(c, err)
		return
	}

	response.OK(c, rule)
}

// CreateConstraint 创建规则
// POST /api/v1/constraints
func (h *ConstraintHandler) CreateConstraint(c *gin.Context) {
	var req dto.CreateConstraintRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindFailed(c, err)
		return
	}
	actor, ok := MustGetActor(c)
	if !ok {
		return
	}

	rule, err := h.constraintSvc.Create(c.Request.Context(), actor, &req)
	if err != nil {
		writeError(c, err)
		return
	}

	response.Created(c, rule)
}

// UpdateConstraint 更新规则
// PUT /api/v1/constraints/:id
func (h *ConstraintHandler) UpdateConstraint(c *gin.Context) {
	var req dto.UpdateConstraintRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindFailed(c, err)
		return
	}
	actor, ok := MustGetActor(c)
	if !ok {
		return
	}
	id, ok := MustGetPathID(c, service.ErrConstraintNotFound)
	if !ok {
		return
	}

	rule, err := h.constraintSvc.Update(c.Request.Context(), actor, id, &req)
	if err != nil {
		writeError(c, err)
		return
	}

	response.OK(c, rule)
}

// DeleteConstraint 删除规则
// DELETE /api/v1/constraints/:id
func (h *ConstraintHandler) DeleteConstraint(c *gin.Context) {
	actor, ok := MustGetActor(c)
	if !ok {
		return
	}
	id, ok := MustGetPathID(c, service.ErrConstraintNotFound)
	if !ok {
		return
	}

	if err := h.constraintSvc.Delete(c.Request.Context(), actor, id); err != nil {
		writeError(c, err)
		return
	}

	response.OK(c, nil)
}

// EvaluateConstraints 对拟排课程评估规则，只返回警告
// POST /api/v1/timetables/:id/constraints/evaluate
func (h *ConstraintHandler) EvaluateConstraints(c *gin.Context) {
	var req dto.EvaluateConstraintsRequest
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

	violations, err := h.constraintSvc.Evaluate(c.Request.Context(), actor, id, &req)
	if err != nil {
		writeError(c, err)
		return
	}

	response.OK(c, gin.H{"violations": violations})
}
