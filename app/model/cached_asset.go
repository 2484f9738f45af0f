package model

import (
	"time"
)

// VariantIdle 默认动画变体名
const VariantIdle = "idle"

// CachedAsset 本地持久化的二进制资产，按 (角色ID, 变体) 唯一
//
// 签名 URL 过期后这里的字节仍然可用；同键写入为整行替换（last-write-wins）。
type CachedAsset struct {
	ID          uint      `json:"id" gorm:"primarykey"`
	EntityID    string    `json:"entity_id" gorm:"size:64;not null;index;uniqueIndex:idx_entity_variant"`
	Variant     string    `json:"variant" gorm:"size:64;not null;uniqueIndex:idx_entity_variant"`
	Bytes       []byte    `json:"-" gorm:"type:blob"`
	ContentType string    `json:"content_type" gorm:"size:128"`
	Size        int64     `json:"size"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// TableName 指定表名
func (CachedAsset) TableName() string {
	return "cached_assets"
}
