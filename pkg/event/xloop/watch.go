package xloop

import (
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/omeyang/xwait/pkg/sync/xwaitobj"
)

const defaultDebounce = 100 * time.Millisecond

// WatchOption 配置 ConfigWatcher 的选项函数。
type WatchOption func(*watchOptions)

type watchOptions struct {
	debounce time.Duration
	logger   *slog.Logger
}

// WithDebounce 设置防抖时间，默认 100ms。
// 编辑器保存文件通常产生多个事件，防抖期内只 Set 一次。
func WithDebounce(d time.Duration) WatchOption {
	return func(o *watchOptions) {
		if d >= 0 {
			o.debounce = d
		}
	}
}

// WithWatchLogger 设置日志记录器，默认 slog.Default()。
func WithWatchLogger(logger *slog.Logger) WatchOption {
	return func(o *watchOptions) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// ConfigWatcher 监听配置文件变化，并在变化时 Set 指定的信号对象。
//
// 文件系统事件在后台 goroutine 上接收，重新加载由信号对象的处理函数在
// 循环 goroutine 上完成（通常调用 [LoadConfig] 与 [Loop.Reconfigure]）。
type ConfigWatcher struct {
	path     string
	obj      *xwaitobj.Object
	watcher  *fsnotify.Watcher
	debounce time.Duration
	logger   *slog.Logger

	mu      sync.Mutex
	timer   *time.Timer
	stopped bool
	done    chan struct{}
}

// WatchConfig 开始监听 path 并在变化时 Set obj。
//
// 监听的是文件所在目录，以便捕获编辑器"写临时文件再重命名"与
// K8s ConfigMap 符号链接替换。
func WatchConfig(path string, obj *xwaitobj.Object, opts ...WatchOption) (*ConfigWatcher, error) {
	if path == "" {
		return nil, errors.New("xloop: config path is empty")
	}
	if obj == nil {
		return nil, ErrNilObject
	}

	options := &watchOptions{debounce: defaultDebounce, logger: slog.Default()}
	for _, opt := range opts {
		if opt != nil {
			opt(options)
		}
	}

	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("xloop: failed to create watcher: %w", err)
	}
	dir := filepath.Dir(path)
	if err := fsWatcher.Add(dir); err != nil {
		closeErr := fsWatcher.Close()
		return nil, errors.Join(
			fmt.Errorf("xloop: failed to watch directory %s: %w", dir, err),
			closeErr,
		)
	}

	w := &ConfigWatcher{
		path:     path,
		obj:      obj,
		watcher:  fsWatcher,
		debounce: options.debounce,
		logger:   options.logger,
		done:     make(chan struct{}),
	}
	go w.run()
	return w, nil
}

// Stop 停止监听并等待后台 goroutine 退出。幂等。
func (w *ConfigWatcher) Stop() error {
	w.mu.Lock()
	if w.stopped {
		w.mu.Unlock()
		return nil
	}
	w.stopped = true
	if w.timer != nil {
		w.timer.Stop()
		w.timer = nil
	}
	w.mu.Unlock()

	err := w.watcher.Close()
	<-w.done
	return err
}

func (w *ConfigWatcher) run() {
	defer close(w.done)
	filename := filepath.Base(w.path)
	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Base(event.Name) != filename {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			w.schedule()

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn("xloop: config watch error",
				slog.String("path", w.path),
				slog.Any("error", err),
			)
		}
	}
}

func (w *ConfigWatcher) schedule() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.stopped {
		return
	}
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.debounce, w.notify)
}

func (w *ConfigWatcher) notify() {
	w.mu.Lock()
	stopped := w.stopped
	w.mu.Unlock()
	if stopped {
		return
	}
	if err := w.obj.Set(); err != nil {
		w.logger.Warn("xloop: notify config change failed",
			slog.String("path", w.path),
			slog.Any("error", err),
		)
		return
	}
	w.logger.Debug("xloop: config changed", slog.String("path", w.path))
}
