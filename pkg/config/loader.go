package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Load 加载配置文件（对外导出）
// 文件不存在时返回默认配置
func Load(path string) (*EngineConfig, error) {
	cfg := &EngineConfig{}

	data, err := os.ReadFile(path)
	if err != nil {
		cfg.ApplyDefaults()
		return cfg, nil
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("解析配置文件失败: %w", err)
	}

	cfg.ApplyDefaults()
	return cfg, nil
}
