package lifecycle

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// Handle 是分发给单个后台任务（健康检查、权重巡检等）的生命周期句柄。
// 任务通过它监听停机信号，并在退出前上报完成。
type Handle struct {
	ctx context.Context
	// Close 通知管理器本任务已经退出。
	// 任务Goroutine应在入口处 defer handle.Close()。
	Close func()
}

// Ctx 返回句柄承载的上下文。
func (h *Handle) Ctx() context.Context {
	return h.ctx
}

// Done 返回一个channel，停机信号广播时关闭，供select监听。
func (h *Handle) Done() <-chan struct{} {
	return h.ctx.Done()
}

// Err 在Done()关闭后返回取消原因。
func (h *Handle) Err() error {
	return h.ctx.Err()
}

// Sleep 暂停指定时长；停机信号到来时提前返回错误。
// 后台循环的休眠一律走这里，保证停机不被长周期任务拖住。
func (h *Handle) Sleep(duration time.Duration) error {
	timer := time.NewTimer(duration)

	select {
	case <-h.Done():
		if !timer.Stop() {
			<-timer.C
		}
		return h.Err()
	case <-timer.C:
		return nil
	}
}

// Manager 协调一组后台任务的停机：向所有句柄广播信号，
// 并在限定时间内等待它们逐个上报退出。
type Manager struct {
	wg       sync.WaitGroup
	mu       sync.Mutex
	services map[string]bool

	ctx    context.Context
	cancel context.CancelFunc
}

// NewManager 创建一个新的生命周期管理器。
func NewManager() *Manager {
	m := &Manager{
		services: make(map[string]bool),
	}
	m.ctx, m.cancel = context.WithCancel(context.Background())
	return m
}

// NewServiceHandle 注册一个命名任务并返回其句柄。重名注册是错误。
func (m *Manager) NewServiceHandle(name string) (*Handle, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.services[name] {
		return nil, fmt.Errorf("生命周期管理器: 任务 '%s' 已被注册", name)
	}
	m.services[name] = true
	m.wg.Add(1)
	fmt.Printf("生命周期管理器: 任务 [%s] 已注册。\n", name)

	return &Handle{
		ctx: m.ctx,
		Close: func() {
			m.mu.Lock()
			defer m.mu.Unlock()
			if _, exists := m.services[name]; !exists {
				return
			}
			delete(m.services, name)
			m.wg.Done()
		},
	}, nil
}

// Shutdown 向所有已注册任务广播停机信号。
func (m *Manager) Shutdown() {
	fmt.Println("生命周期管理器: 广播停机信号...")
	m.cancel()
}

// WaitWithTimeout 等待所有任务退出，直到超时。
// 返回超时后仍未退出的任务名列表，全部退出时返回nil。
func (m *Manager) WaitWithTimeout(timeout time.Duration) []string {
	doneChan := make(chan struct{})
	go func() {
		m.wg.Wait()
		close(doneChan)
	}()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-doneChan:
		return nil
	case <-timer.C:
		m.mu.Lock()
		defer m.mu.Unlock()
		remaining := make([]string, 0, len(m.services))
		for name := range m.services {
			remaining = append(remaining, name)
		}
		return remaining
	}
}
