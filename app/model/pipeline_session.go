package model

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// SessionSlotID 会话固定主键：全局只允许一条进行中的会话记录
const SessionSlotID uint = 1

// AnimRef 一条已生成的动画引用，Preset 形如 "idle"、"biped:agree"
type AnimRef struct {
	Preset string `json:"preset"`
	URL    string `json:"url"`
}

// AnimRefs 按生成顺序排列的动画列表，整体以 JSON 存入单列
type AnimRefs []AnimRef

// Value 实现 driver.Valuer
func (a AnimRefs) Value() (driver.Value, error) {
	if len(a) == 0 {
		return "[]", nil
	}
	data, err := json.Marshal(a)
	if err != nil {
		return nil, err
	}
	return string(data), nil
}

// Scan 实现 sql.Scanner
func (a *AnimRefs) Scan(value interface{}) error {
	if value == nil {
		*a = nil
		return nil
	}
	var data []byte
	switch v := value.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("无法将 %T 扫描为 AnimRefs", value)
	}
	if len(data) == 0 {
		*a = nil
		return nil
	}
	return json.Unmarshal(data, a)
}

// Get 按预设名查找动画 URL
func (a AnimRefs) Get(preset string) (string, bool) {
	for _, ref := range a {
		if ref.Preset == preset {
			return ref.URL, true
		}
	}
	return "", false
}

// Append 追加或覆盖一个预设，保持首次生成的顺序
func (a AnimRefs) Append(preset, url string) AnimRefs {
	for i, ref := range a {
		if ref.Preset == preset {
			a[i].URL = url
			return a
		}
	}
	return append(a, AnimRef{Preset: preset, URL: url})
}

// PipelineSession 创建流程的断点存档（单槽位）
//
// 每完成一个阶段就整体落库一次，进程重启后按字段从后往前推断恢复点：
// 有动画 → complete；有绑骨 → rigged；有模型 → modeled；有风格图 → styled。
type PipelineSession struct {
	ID               uint     `json:"-" gorm:"primarykey"`
	CharacterID      string   `json:"character_id" gorm:"size:64"` // 关联 Gallery 角色（保存后填写）
	UploadedImage    string   `json:"uploaded_image" gorm:"type:text"`    // 原始图片 data URL
	StyledImage      string   `json:"styled_image" gorm:"type:text"`      // 黏土风格图 data URL
	ModelTaskID      string   `json:"model_task_id" gorm:"size:64"`       // 阶段1：建模任务
	ModelURL         string   `json:"model_url" gorm:"type:text"`         // 阶段1：网格 GLB
	RigTaskID        string   `json:"rig_task_id" gorm:"size:64"`         // 阶段2：绑骨任务
	RiggedModelURL   string   `json:"rigged_model_url" gorm:"type:text"`  // 阶段2：绑骨 GLB
	AnimURLs         AnimRefs `json:"anim_urls" gorm:"type:text"`         // 阶段3：按生成顺序的动画
	CharacterName    string   `json:"character_name" gorm:"size:128"`
	CharacterGender  string   `json:"character_gender" gorm:"size:16"` // male / female
	CharacterProfile string   `json:"character_profile" gorm:"type:text"`
	SavedAt          time.Time `json:"saved_at"`
}

// TableName 指定表名
func (PipelineSession) TableName() string {
	return "pipeline_session"
}
