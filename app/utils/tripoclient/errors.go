package tripoclient

import (
	"fmt"
	"time"
)

// UploadError 上传图片失败（非 2xx、code != 0 或响应缺少 image_token）
type UploadError struct {
	Code   int
	Detail string
}

func (e *UploadError) Error() string {
	return fmt.Sprintf("上传失败 (code %d): %s", e.Code, e.Detail)
}

// TaskCreationError 任务创建被上游拒绝，Detail 保留原始错误文本
// （配额不足、参数非法、内容审核等信息都在里面，必须透传给用户）
type TaskCreationError struct {
	Code   int
	Detail string
}

func (e *TaskCreationError) Error() string {
	return fmt.Sprintf("任务创建失败 (code %d): %s", e.Code, e.Detail)
}

// StatusQueryError 单次状态查询失败（网络或解析错误）
type StatusQueryError struct {
	TaskID string
	Err    error
}

func (e *StatusQueryError) Error() string {
	return fmt.Sprintf("状态查询失败 (task %s): %v", e.TaskID, e.Err)
}

func (e *StatusQueryError) Unwrap() error {
	return e.Err
}

// TaskFailedError 任务进入 failed / cancelled 终态
type TaskFailedError struct {
	TaskID string
	Status Status
}

func (e *TaskFailedError) Error() string {
	return fmt.Sprintf("任务 %s 失败 (%s)", e.TaskID, e.Status)
}

// TaskTimeoutError 轮询超出最长等待时间，远端任务仍在跑，只是本地不再等
type TaskTimeoutError struct {
	TaskID  string
	MaxWait time.Duration
}

func (e *TaskTimeoutError) Error() string {
	return fmt.Sprintf("任务 %s 超时（%s）", e.TaskID, e.MaxWait)
}

// NoModelURLError 成功的任务输出里找不到模型 URL，属于终态错误，不自动重试
type NoModelURLError struct {
	TaskID string
}

func (e *NoModelURLError) Error() string {
	return fmt.Sprintf("任务 %s 的输出中找不到模型 URL", e.TaskID)
}
