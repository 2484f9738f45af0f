package tripoclient

import (
	"encoding/json"
	"strings"
)

// Status 任务状态
type Status string

const (
	StatusQueued    Status = "queued"
	StatusRunning   Status = "running"
	StatusSuccess   Status = "success"
	StatusFailed    Status = "failed"
	StatusCancelled Status = "cancelled"
	StatusUnknown   Status = "unknown"
)

// Terminal 判断状态是否为终态
func (s Status) Terminal() bool {
	return s == StatusSuccess || s == StatusFailed || s == StatusCancelled
}

// 任务类型
const (
	TaskImageToModel    = "image_to_model"
	TaskTextToModel     = "text_to_model"
	TaskAnimateRig      = "animate_rig"
	TaskAnimateRetarget = "animate_retarget"
)

// AssetRef 任务输出里的资产引用
//
// 上游两种写法都出现过：裸字符串 "https://..." 或对象 {"url":"https://..."}，
// 在解析边界统一成一个类型，后面的代码只看 URL 字段。
type AssetRef struct {
	URL string
}

// UnmarshalJSON 同时接受字符串和 {url} 对象两种格式
func (r *AssetRef) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		r.URL = s
		return nil
	}
	var obj struct {
		URL string `json:"url"`
	}
	if err := json.Unmarshal(data, &obj); err == nil {
		r.URL = obj.URL
		return nil
	}
	// 无法识别的形状不报错，留空表示该槽位不可用
	r.URL = ""
	return nil
}

// Valid 是否携带可用的 http(s) 地址
func (r AssetRef) Valid() bool {
	return strings.HasPrefix(r.URL, "http")
}

// Task 外部队列中一个任务的快照，终态后不再变化
type Task struct {
	TaskID   string              `json:"task_id"`
	Status   Status              `json:"status"`
	Progress int                 `json:"progress"`
	Output   map[string]AssetRef `json:"output"`
}

// TaskParams 建任务请求体，按任务类型选填
type TaskParams struct {
	Type                string     `json:"type"`
	File                *FileInput `json:"file,omitempty"`
	Prompt              string     `json:"prompt,omitempty"`
	NegativePrompt      string     `json:"negative_prompt,omitempty"`
	OriginalModelTaskID string     `json:"original_model_task_id,omitempty"`
	RigType             string     `json:"rig_type,omitempty"`
	Animation           string     `json:"animation,omitempty"`
	TextureQuality      string     `json:"texture_quality,omitempty"`
	ModelSeed           int        `json:"model_seed,omitempty"`
}

// FileInput 以 file_token 引用已上传的图片
type FileInput struct {
	Type      string `json:"type"`
	FileToken string `json:"file_token"`
}

// envelope 上游统一响应壳：code != 0 即为错误
type envelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}
