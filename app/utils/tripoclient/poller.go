package tripoclient

import (
	"context"
	"time"
)

// StatusFunc 单次状态查询
type StatusFunc func(ctx context.Context, taskID string) (*Task, error)

// ProgressFunc 进度回调，只用于展示，不影响控制流
type ProgressFunc func(taskID string, status Status, progress int)

// Poller 把外部队列的异步任务轮询成一次阻塞调用
//
// 第一次查询之前先睡一个间隔，避免刚提交就打状态接口。
// now / sleep 可注入，测试里用假时钟推进。
type Poller struct {
	Interval   time.Duration
	OnProgress ProgressFunc

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
}

// NewPoller 创建轮询器
func NewPoller(interval time.Duration) *Poller {
	return &Poller{
		Interval: interval,
		now:      time.Now,
		sleep:    sleepCtx,
	}
}

// WithClock 替换时钟与睡眠实现（测试用）
func (p *Poller) WithClock(now func() time.Time, sleep func(ctx context.Context, d time.Duration) error) *Poller {
	p.now = now
	p.sleep = sleep
	return p
}

// Poll 轮询直到终态或超出 maxWait
//
// success 立即返回；failed / cancelled 返回 TaskFailedError；
// 超出 maxWait 返回 TaskTimeoutError。本地放弃等待不会取消远端任务。
func (p *Poller) Poll(ctx context.Context, taskID string, getStatus StatusFunc, maxWait time.Duration) (*Task, error) {
	deadline := p.now().Add(maxWait)

	for p.now().Before(deadline) {
		if err := p.sleep(ctx, p.Interval); err != nil {
			return nil, err
		}

		task, err := getStatus(ctx, taskID)
		if err != nil {
			return nil, err
		}

		if p.OnProgress != nil {
			p.OnProgress(taskID, task.Status, task.Progress)
		}

		switch task.Status {
		case StatusSuccess:
			return task, nil
		case StatusFailed, StatusCancelled:
			return nil, &TaskFailedError{TaskID: taskID, Status: task.Status}
		}
		// queued / running / unknown → 继续等待
	}

	return nil, &TaskTimeoutError{TaskID: taskID, MaxWait: maxWait}
}

// sleepCtx 可被 context 打断的睡眠
func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
