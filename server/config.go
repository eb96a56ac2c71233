package server

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"menusync/menu"
)

// Config 服务配置（config.yaml），缺省字段取默认值
type Config struct {
	Addr              string        `yaml:"addr"`
	TickRateHz        int           `yaml:"tick_rate_hz"`
	MaxActionsPerTick int           `yaml:"max_actions_per_tick"`
	Log               LogConfig     `yaml:"log"`
	Journal           JournalConfig `yaml:"journal"`
	Network           NetworkConfig `yaml:"network"`
	Tank              TankConfig    `yaml:"tank"`
	// HideableSemantics 允许客户端隐藏的槽位语义
	HideableSemantics []string `yaml:"hideable_semantics"`
}

type LogConfig struct {
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
}

// JournalConfig 转移日志目录，为空则不记录
type JournalConfig struct {
	Dir string `yaml:"dir"`
}

type NetworkConfig struct {
	Capacity int64 `yaml:"capacity"`
}

type TankConfig struct {
	Capacity int64 `yaml:"capacity"`
}

// DefaultConfig 默认配置：20 TPS，每个会话每 Tick 最多 32 个动作
func DefaultConfig() Config {
	return Config{
		Addr:              ":8080",
		TickRateHz:        20,
		MaxActionsPerTick: 32,
		Log: LogConfig{
			File:       "app.log",
			MaxSizeMB:  10,
			MaxBackups: 3,
			MaxAgeDays: 7,
		},
		Network:           NetworkConfig{Capacity: 1_000_000},
		Tank:              TankConfig{Capacity: 16_000},
		HideableSemantics: []string{menu.SemanticUpgrade.ID(), menu.SemanticToolbox.ID()},
	}
}

// LoadConfig 读取 yaml 配置；path 为空时直接返回默认配置
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return cfg, fmt.Errorf("%s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Validate 检查取值范围
func (c Config) Validate() error {
	if c.TickRateHz <= 0 || c.TickRateHz > 1000 {
		return fmt.Errorf("tick_rate_hz out of range: %d", c.TickRateHz)
	}
	if c.MaxActionsPerTick <= 0 {
		return errors.New("max_actions_per_tick must be positive")
	}
	if c.Tank.Capacity <= 0 {
		return errors.New("tank.capacity must be positive")
	}
	for _, id := range c.HideableSemantics {
		if _, ok := menu.SemanticByID(id); !ok {
			return fmt.Errorf("unknown slot semantic in hideable_semantics: %q", id)
		}
	}
	return nil
}
