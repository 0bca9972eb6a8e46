package roster

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/mosa54/control-center/internal/model"
)

// LoadSeedFile 读取 YAML 格式的默认名册
// 共享存储尚无名册时由服务端写入
func LoadSeedFile(path string) (*model.Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("读取默认名册失败: %w", err)
	}
	return ParseSeed(data)
}

// ParseSeed 解析 YAML 名册内容
func ParseSeed(data []byte) (*model.Catalog, error) {
	var c model.Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("解析默认名册失败: %w", err)
	}
	return Sanitize(&c)
}
