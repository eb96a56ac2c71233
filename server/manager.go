package server

import "sync"

var (
	defaultWorld *World
	once         sync.Once
)

// InitWorld 用配置创建全局世界并开始 Tick；只有第一次调用生效
func InitWorld(cfg Config, journal *Journal) *World {
	once.Do(func() {
		defaultWorld = NewWorld(cfg, journal)
		defaultWorld.Start()
	})
	return defaultWorld
}

// GetWorld 单例世界；未初始化时使用默认配置
func GetWorld() *World {
	return InitWorld(DefaultConfig(), nil)
}
