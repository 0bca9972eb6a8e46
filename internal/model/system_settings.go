package model

import "time"

// SessionMode 召集类型
type SessionMode string

const (
	SessionModeDrill     SessionMode = "drill"     // 训练
	SessionModeEmergency SessionMode = "emergency" // 实际紧急召集
)

// Valid 是否为合法的召集类型
func (m SessionMode) Valid() bool {
	return m == SessionModeDrill || m == SessionModeEmergency
}

// SummaryMaxLen 会话概要最大字符数
const SummaryMaxLen = 200

// SettingsID 会话设置单行主键
const SettingsID = 1

// SystemSettings 会话设置表 — 对应 system_settings（单行）
type SystemSettings struct {
	ID      int         `gorm:"primaryKey;default:1"                        json:"-"`
	Mode    SessionMode `gorm:"type:varchar(20);not null;default:'drill'"   json:"mode"`
	Summary string      `gorm:"type:varchar(200);not null;default:''"       json:"summary"`
	Catalog JSONB       `json:"-"`
	BaseModel
}

// TableName 指定表名
func (SystemSettings) TableName() string { return "system_settings" }

// SessionConfig 全局会话配置
type SessionConfig struct {
	Mode      SessionMode `json:"mode"`
	Summary   string      `json:"summary"`
	UpdatedAt time.Time   `json:"updated_at"`
}

// DefaultSessionConfig 不存在设置时使用的默认值
func DefaultSessionConfig() SessionConfig {
	return SessionConfig{Mode: SessionModeDrill}
}

// ConfigPatch 会话设置的部分更新，nil 字段不修改
type ConfigPatch struct {
	Mode    *SessionMode `json:"mode,omitempty"`
	Summary *string      `json:"summary,omitempty"`
	Catalog *Catalog     `json:"catalog,omitempty"`
}

// Empty 是否没有任何字段需要更新
func (p *ConfigPatch) Empty() bool {
	return p.Mode == nil && p.Summary == nil && p.Catalog == nil
}

// TruncateSummary 按字符截断到 SummaryMaxLen
func TruncateSummary(s string) string {
	r := []rune(s)
	if len(r) <= SummaryMaxLen {
		return s
	}
	return string(r[:SummaryMaxLen])
}
