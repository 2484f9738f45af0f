package filewatcher

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"amico-server/app/config"
	"amico-server/app/logger"
	"amico-server/app/service"
	"amico-server/app/utils/dataurl"

	"github.com/fsnotify/fsnotify"
)

// 收件目录里认为是图片的扩展名
var imageExtensions = []string{".png", ".jpg", ".jpeg", ".webp", ".gif"}

// InboxWatcher 收件目录监控器
//
// 往收件目录丢一张图片，就自动作为新角色的原始照片开始风格化。
// 只在流水线空闲时触发，处理过的图片移到 processed 子目录避免重复。
type InboxWatcher struct {
	config   *config.WatcherConfig
	pipeline *service.PipelineService
	watcher  *fsnotify.Watcher
	logger   *logger.Logger
	stopCh   chan struct{}
	wg       sync.WaitGroup
	watching bool
	mu       sync.Mutex
}

// NewInboxWatcher 创建收件目录监控器，未启用时返回 nil
func NewInboxWatcher(cfg *config.WatcherConfig, pipeline *service.PipelineService, log *logger.Logger) (*InboxWatcher, error) {
	if !cfg.Enabled {
		return nil, nil
	}
	if cfg.InboxDir == "" {
		return nil, fmt.Errorf("收件目录监控已启用但未配置目录")
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("创建文件监控器失败: %w", err)
	}

	return &InboxWatcher{
		config:   cfg,
		pipeline: pipeline,
		watcher:  watcher,
		logger:   log,
		stopCh:   make(chan struct{}),
	}, nil
}

// Start 启动监控
func (w *InboxWatcher) Start() error {
	if w == nil {
		return nil
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	if w.watching {
		return fmt.Errorf("收件目录监控已经在运行")
	}

	if err := os.MkdirAll(w.config.InboxDir, 0755); err != nil {
		return fmt.Errorf("创建收件目录失败: %w", err)
	}
	if err := os.MkdirAll(w.processedDir(), 0755); err != nil {
		return fmt.Errorf("创建已处理目录失败: %w", err)
	}

	if err := w.watcher.Add(w.config.InboxDir); err != nil {
		return fmt.Errorf("添加监控目录失败: %w", err)
	}

	w.watching = true
	w.wg.Add(1)
	go w.watchLoop()

	w.logger.Infof("收件目录监控已启动: %s", w.config.InboxDir)
	return nil
}

// Stop 停止监控
func (w *InboxWatcher) Stop() error {
	if w == nil {
		return nil
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.watching {
		return nil
	}

	close(w.stopCh)
	w.watcher.Close()
	w.wg.Wait()
	w.watching = false

	w.logger.Info("收件目录监控已停止")
	return nil
}

// watchLoop 监控事件循环
func (w *InboxWatcher) watchLoop() {
	defer w.wg.Done()

	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handleEvent(event)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Errorf("收件目录监控错误: %v", err)

		case <-w.stopCh:
			return
		}
	}
}

// handleEvent 处理文件系统事件
func (w *InboxWatcher) handleEvent(event fsnotify.Event) {
	if event.Op&fsnotify.Create == 0 {
		return
	}

	info, err := os.Stat(event.Name)
	if err != nil || info.IsDir() {
		return
	}
	if !isImageFile(event.Name) {
		return
	}

	// 逐张排队处理，不阻塞监控循环
	go func() {
		if err := w.processImage(event.Name); err != nil {
			w.logger.Errorf("处理收件图片失败: %s, 错误: %v", event.Name, err)
		}
	}()
}

// processImage 把收件图片送入风格化阶段
func (w *InboxWatcher) processImage(path string) error {
	if err := w.waitForFileReady(path); err != nil {
		return err
	}

	if stage := w.pipeline.CurrentStage(); stage != service.StageIdle {
		w.logger.Infof("流水线处于 %s 阶段，收件图片暂不处理: %s", stage, path)
		return nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("读取图片失败: %w", err)
	}

	mimeType := mimeTypeOf(path)
	w.logger.Infof("收件图片开始风格化: %s (%d 字节)", path, len(data))

	if _, err := w.pipeline.StylizeImage(context.Background(), dataurl.Encode(data, mimeType)); err != nil {
		return err
	}

	// 挪到已处理目录，避免重启后重复触发
	target := filepath.Join(w.processedDir(), filepath.Base(path))
	if err := os.Rename(path, target); err != nil {
		w.logger.Warnf("移动已处理图片失败: %s, 错误: %v", path, err)
	}
	return nil
}

// waitForFileReady 等待文件写入完成（大小连续两次检查不变）
func (w *InboxWatcher) waitForFileReady(path string) error {
	maxWait := 30 * time.Second
	checkInterval := 500 * time.Millisecond
	timeout := time.After(maxWait)

	var lastSize int64 = -1

	for {
		select {
		case <-timeout:
			return fmt.Errorf("等待文件就绪超时: %s", path)
		case <-time.After(checkInterval):
			info, err := os.Stat(path)
			if err != nil {
				return fmt.Errorf("获取文件信息失败: %w", err)
			}

			currentSize := info.Size()
			if currentSize == lastSize && currentSize > 0 {
				return nil
			}
			lastSize = currentSize
		}
	}
}

func (w *InboxWatcher) processedDir() string {
	return filepath.Join(w.config.InboxDir, "processed")
}

// isImageFile 按扩展名判断是否是图片
func isImageFile(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, allowed := range imageExtensions {
		if ext == allowed {
			return true
		}
	}
	return false
}

// mimeTypeOf 按扩展名推断 MIME 类型
func mimeTypeOf(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".webp":
		return "image/webp"
	case ".gif":
		return "image/gif"
	default:
		return "image/png"
	}
}
