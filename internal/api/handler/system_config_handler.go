package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mosa54/control-center/internal/dto"
	"github.com/mosa54/control-center/internal/model"
	"github.com/mosa54/control-center/internal/roster"
	"github.com/mosa54/control-center/internal/service"
	"github.com/mosa54/control-center/pkg/response"
)

// SettingsHandler 会话设置与名册 HTTP 处理器
type SettingsHandler struct {
	settingsSvc service.SettingsService
}

// NewSettingsHandler 创建 SettingsHandler
func NewSettingsHandler(settingsSvc service.SettingsService) *SettingsHandler {
	return &SettingsHandler{settingsSvc: settingsSvc}
}

// GetSettings 获取会话设置
// GET /api/v1/settings
func (h *SettingsHandler) GetSettings(c *gin.Context) {
	cfg, err := h.settingsSvc.Get(c.Request.Context())
	if err != nil {
		h.handleSettingsError(c, err)
		return
	}

	response.OK(c, cfg)
}

// UpdateSettings 部分更新会话设置
// PATCH /api/v1/settings
func (h *SettingsHandler) UpdateSettings(c *gin.Context) {
	var req dto.UpdateSettingsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, response.CodeValidation, "参数校验失败")
		return
	}

	cfg, err := h.settingsSvc.Update(c.Request.Context(), &req)
	if err != nil {
		h.handleSettingsError(c, err)
		return
	}

	response.OK(c, cfg)
}

// GetCatalog 获取名册
// GET /api/v1/catalog
func (h *SettingsHandler) GetCatalog(c *gin.Context) {
	catalog, err := h.settingsSvc.GetCatalog(c.Request.Context())
	if err != nil {
		h.handleSettingsError(c, err)
		return
	}

	response.OK(c, catalog)
}

// ReplaceCatalog 以 JSON 名册整体替换
// PUT /api/v1/catalog
func (h *SettingsHandler) ReplaceCatalog(c *gin.Context) {
	var catalog model.Catalog
	if err := c.ShouldBindJSON(&catalog); err != nil {
		response.BadRequest(c, response.CodeValidation, "名册格式无效")
		return
	}

	result, err := h.settingsSvc.ReplaceCatalog(c.Request.Context(), &catalog)
	if err != nil {
		h.handleSettingsError(c, err)
		return
	}

	response.OK(c, result)
}

// ImportRoster 上传 .xlsx 名册
// POST /api/v1/catalog/import (multipart/form-data, field: file)
func (h *SettingsHandler) ImportRoster(c *gin.Context) {
	fh, err := c.FormFile("file")
	if err != nil {
		response.BadRequest(c, response.CodeValidation, "请上传名册文件")
		return
	}
	if fh.Size > roster.MaxWorkbookSize {
		response.Error(c, http.StatusRequestEntityTooLarge, response.CodeValidation, "名册文件过大")
		return
	}

	f, err := fh.Open()
	if err != nil {
		response.BadRequest(c, response.CodeValidation, "无法读取上传文件")
		return
	}
	defer f.Close()

	result, err := h.settingsSvc.ImportRoster(c.Request.Context(), f, fh.Size)
	if err != nil {
		h.handleSettingsError(c, err)
		return
	}

	response.OK(c, result)
}

// handleSettingsError 统一处理会话设置模块业务错误
func (h *SettingsHandler) handleSettingsError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrWorkbookTooLarge):
		response.Error(c, http.StatusRequestEntityTooLarge, response.CodeValidation, "名册文件过大")
	default:
		response.FromError(c, err)
	}
}
