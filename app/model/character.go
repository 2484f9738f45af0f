package model

import (
	"time"
)

// Character 角色库中的一个桌面伙伴
//
// 缩略图以压缩后的 JPEG data URL 内嵌存储；模型本体不落在这张表，
// 二进制资产见 CachedAsset，过期后可凭 RigTaskID 重新生成动画。
type Character struct {
	RowID        uint      `json:"-" gorm:"primarykey"` // 自增行号，仅用于最新优先排序
	ID           string    `json:"id" gorm:"uniqueIndex;size:64;not null"`
	Name         string    `json:"name" gorm:"size:128"`
	Gender       string    `json:"gender" gorm:"size:16"` // male / female
	Profile      string    `json:"profile" gorm:"type:text"`
	Thumbnail    string    `json:"thumbnail" gorm:"type:text"` // 压缩后的 2D 缩略图 data URL
	ModelTaskID  string    `json:"model_task_id" gorm:"size:64"` // 建模任务 ID（重新获取模型用）
	RigTaskID    string    `json:"rig_task_id" gorm:"size:64"`   // 绑骨任务 ID（生成新动画用）
	LastModelURL string    `json:"last_model_url" gorm:"type:text"` // 最近一次 idle 动画 URL（可能过期，仅作缓存）
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// TableName 指定表名
func (Character) TableName() string {
	return "characters"
}
