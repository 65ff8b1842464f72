package database

import (
	"fmt"
	"sync"
)

// statusManager 线程安全地维护Redis的健康状态。
// 权重排行、权重明细和去重快速否决缓存都以这里的状态为准：
// 不健康期间所有缓存读写被跳过，SQLite独立承担全部请求。
type statusManager struct {
	mu             sync.RWMutex
	isRedisHealthy bool
	lastKnownRunID string
}

var globalStatus = &statusManager{
	isRedisHealthy: true, // 启动流程会先做一次阻塞检查，默认可用
}

// IsRedisHealthy 返回当前Redis的健康状态。
func IsRedisHealthy() bool {
	globalStatus.mu.RLock()
	defer globalStatus.mu.RUnlock()
	return globalStatus.isRedisHealthy
}

// SetInitialRunID 在启动阶段记录首次观察到的Redis run_id，
// 此后run_id的变化即视为Redis经历过重启、缓存内容已丢失。
func SetInitialRunID(runID string) {
	globalStatus.mu.Lock()
	defer globalStatus.mu.Unlock()
	globalStatus.lastKnownRunID = runID
}

// UpdateStatus 更新健康状态。状态翻转时打印一次日志。
func UpdateStatus(isHealthy bool, newRunID string) {
	globalStatus.mu.Lock()
	defer globalStatus.mu.Unlock()

	if globalStatus.isRedisHealthy != isHealthy {
		globalStatus.isRedisHealthy = isHealthy
		if isHealthy {
			fmt.Println("健康检查: Redis已恢复，权重与去重缓存重新启用")
		} else {
			fmt.Println("健康检查警告: Redis不可用，降级为仅SQLite服务")
		}
	}

	// run_id只在健康状态下推进，避免把故障期间的陈旧值当作基准
	if isHealthy {
		globalStatus.lastKnownRunID = newRunID
	}
}

// GetLastKnownRunID 返回最近一次确认健康时的Redis run_id。
func GetLastKnownRunID() string {
	globalStatus.mu.RLock()
	defer globalStatus.mu.RUnlock()
	return globalStatus.lastKnownRunID
}
