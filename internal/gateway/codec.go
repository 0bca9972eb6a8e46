package gateway

import (
	"encoding/json"
	"fmt"

	"github.com/mosa54/control-center/internal/model"
	"github.com/mosa54/control-center/internal/roster"
	apperrors "github.com/mosa54/control-center/pkg/errors"
)

// decodeCatalog 空内容视为尚未上传
func decodeCatalog(data []byte) (*model.Catalog, error) {
	if len(data) == 0 || string(data) == "null" {
		return &model.Catalog{}, nil
	}
	var c model.Catalog
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("%w: 名册 JSON 无法解析: %v", apperrors.ErrCorrupted, err)
	}
	return &c, nil
}

// normalizePatch 写入前校验与清洗：模式必须合法，概要截断，名册经边界清洗
func normalizePatch(p model.ConfigPatch) (model.ConfigPatch, error) {
	out := model.ConfigPatch{}
	if p.Mode != nil {
		if !p.Mode.Valid() {
			return out, apperrors.Validationf("未知的召集类型: %q", string(*p.Mode))
		}
		m := *p.Mode
		out.Mode = &m
	}
	if p.Summary != nil {
		s := model.TruncateSummary(*p.Summary)
		out.Summary = &s
	}
	if p.Catalog != nil {
		c, err := roster.Sanitize(p.Catalog)
		if err != nil {
			return out, err
		}
		out.Catalog = c
	}
	return out, nil
}

// patchFields 转为列更新
func patchFields(p model.ConfigPatch) (map[string]interface{}, error) {
	fields := make(map[string]interface{})
	if p.Mode != nil {
		fields["mode"] = *p.Mode
	}
	if p.Summary != nil {
		fields["summary"] = *p.Summary
	}
	if p.Catalog != nil {
		data, err := json.Marshal(p.Catalog)
		if err != nil {
			return nil, fmt.Errorf("序列化名册失败: %w", err)
		}
		fields["catalog"] = model.JSONB(data)
	}
	return fields, nil
}
