package shutdown

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/SlpAus/stream-raffle-backend/pkg/lifecycle"
)

const (
	httpShutdownTimeout = 15 * time.Second
	workerDrainTimeout  = 30 * time.Second
)

// Coordinator 负责编排应用程序的优雅停机流程：
// 先关闭HTTP入口放空在途请求，再广播停机信号等待后台任务退出。
type Coordinator struct {
	Manager *lifecycle.Manager
}

// NewCoordinator 创建一个新的停机协调器。
func NewCoordinator(mgr *lifecycle.Manager) *Coordinator {
	return &Coordinator{Manager: mgr}
}

// ListenForSignalsAndShutdown 启动信号监听并阻塞，直到停机流程完成。
func (c *Coordinator) ListenForSignalsAndShutdown(server *http.Server) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	// 阻塞直到接收到停机信号
	<-sigChan
	fmt.Println("\n收到关闭信号，开始优雅停机...")

	// 关闭HTTP服务器，允许正在进行的请求完成
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), httpShutdownTimeout)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		fmt.Printf("Gin服务器关闭错误: %v\n", err)
	} else {
		fmt.Println("Gin服务器已关闭。")
	}

	// 广播停机信号并等待后台任务退出
	fmt.Printf("等待后台任务退出 (最多 %v)...\n", workerDrainTimeout)
	c.Manager.Shutdown()

	if remaining := c.Manager.WaitWithTimeout(workerDrainTimeout); len(remaining) == 0 {
		fmt.Println("所有后台任务已退出。")
	} else {
		fmt.Printf("警告: 等待超时，以下任务未确认退出: %v\n", remaining)
	}

	fmt.Println("优雅停机完成。")
}
