package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/mosa54/control-center/internal/dto"
	"github.com/mosa54/control-center/internal/service"
	"github.com/mosa54/control-center/pkg/response"
)

// CheckInHandler 应召模块 HTTP 处理器
type CheckInHandler struct {
	checkInSvc service.CheckInService
}

// NewCheckInHandler 创建 CheckInHandler
func NewCheckInHandler(checkInSvc service.CheckInService) *CheckInHandler {
	return &CheckInHandler{checkInSvc: checkInSvc}
}

// ListCheckIns 应召记录列表
// GET /api/v1/checkins
func (h *CheckInHandler) ListCheckIns(c *gin.Context) {
	list, err := h.checkInSvc.List(c.Request.Context())
	if err != nil {
		response.FromError(c, err)
		return
	}

	response.OK(c, list)
}

// CheckIn 应召
// POST /api/v1/checkins
func (h *CheckInHandler) CheckIn(c *gin.Context) {
	var req dto.CheckInRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, response.CodeValidation, "参数校验失败")
		return
	}

	rec, err := h.checkInSvc.CheckIn(c.Request.Context(), &req)
	if err != nil {
		response.FromError(c, err)
		return
	}

	response.Created(c, rec)
}

// CheckOut 取消应召（幂等）
// DELETE /api/v1/checkins/:employee_id
func (h *CheckInHandler) CheckOut(c *gin.Context) {
	id, ok := MustGetEmployeeID(c)
	if !ok {
		return
	}

	if err := h.checkInSvc.CheckOut(c.Request.Context(), id); err != nil {
		response.FromError(c, err)
		return
	}

	response.OK(c, nil)
}

// ChangeDepartment 调整编成部
// PATCH /api/v1/checkins/:employee_id
func (h *CheckInHandler) ChangeDepartment(c *gin.Context) {
	id, ok := MustGetEmployeeID(c)
	if !ok {
		return
	}

	var req dto.ChangeDeptRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, response.CodeValidation, "参数校验失败")
		return
	}

	if err := h.checkInSvc.ChangeDepartment(c.Request.Context(), id, &req); err != nil {
		response.FromError(c, err)
		return
	}

	response.OK(c, nil)
}

// ResetAll 清空全部应召记录
// DELETE /api/v1/checkins
func (h *CheckInHandler) ResetAll(c *gin.Context) {
	if err := h.checkInSvc.ResetAll(c.Request.Context()); err != nil {
		response.FromError(c, err)
		return
	}

	response.OK(c, nil)
}

// Dashboard 仪表盘
// GET /api/v1/dashboard
func (h *CheckInHandler) Dashboard(c *gin.Context) {
	board, err := h.checkInSvc.Dashboard(c.Request.Context())
	if err != nil {
		response.FromError(c, err)
		return
	}

	response.OK(c, board)
}

// GetMission 人员当前任务
// GET /api/v1/employees/:employee_id/mission
func (h *CheckInHandler) GetMission(c *gin.Context) {
	id, ok := MustGetEmployeeID(c)
	if !ok {
		return
	}

	mission, err := h.checkInSvc.Mission(c.Request.Context(), id)
	if err != nil {
		response.FromError(c, err)
		return
	}

	response.OK(c, mission)
}
