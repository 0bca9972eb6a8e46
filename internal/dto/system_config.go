package dto

import "github.com/mosa54/control-center/internal/model"

// ── 会话设置模块 DTO ──

// UpdateSettingsRequest 更新会话设置请求（部分更新）
type UpdateSettingsRequest struct {
	Mode    *model.SessionMode `json:"mode"    binding:"omitempty,oneof=drill emergency"`
	Summary *string            `json:"summary"`
}

// SettingsResponse 会话设置响应
type SettingsResponse struct {
	Mode      model.SessionMode `json:"mode"`
	Summary   string            `json:"summary"`
	UpdatedAt string            `json:"updated_at"`
}

// ImportRosterResponse 名册导入结果
type ImportRosterResponse struct {
	Employees  int    `json:"employees"`
	Missions   int    `json:"missions"`
	Supplies   int    `json:"supplies"`
	UploadedAt string `json:"uploaded_at"`
}
