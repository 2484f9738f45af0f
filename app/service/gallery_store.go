package service

import (
	"errors"
	"strings"
	"time"

	"amico-server/app/logger"
	"amico-server/app/model"

	"golang.org/x/text/unicode/norm"
	"gorm.io/gorm"
)

// GalleryStore 角色图鉴的持久化存储
type GalleryStore struct {
	db     *gorm.DB
	logger *logger.Logger
}

// NewGalleryStore 创建图鉴存储
func NewGalleryStore(db *gorm.DB, log *logger.Logger) *GalleryStore {
	return &GalleryStore{db: db, logger: log}
}

// List 按入库顺序倒序返回所有角色（最新的在最前）
func (s *GalleryStore) List() ([]model.Character, error) {
	var chars []model.Character
	if err := s.db.Order("row_id DESC").Find(&chars).Error; err != nil {
		return nil, err
	}
	return chars, nil
}

// Get 按角色 ID 查询
func (s *GalleryStore) Get(id string) (*model.Character, error) {
	var ch model.Character
	err := s.db.Where("id = ?", id).First(&ch).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &ch, nil
}

// Upsert 按 ID 插入或覆盖角色记录
//
// 已存在的角色覆盖字段但保留入库位置，不存在的追加到最前。
func (s *GalleryStore) Upsert(ch *model.Character) error {
	ch.Name = normalizeName(ch.Name)
	return s.db.Transaction(func(tx *gorm.DB) error {
		var existing model.Character
		err := tx.Where("id = ?", ch.ID).First(&existing).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			ch.CreatedAt = time.Now()
			ch.UpdatedAt = ch.CreatedAt
			return tx.Create(ch).Error
		}
		if err != nil {
			return err
		}

		ch.RowID = existing.RowID
		ch.CreatedAt = existing.CreatedAt
		ch.UpdatedAt = time.Now()
		return tx.Save(ch).Error
	})
}

// UpdateLastModelURL 刷新角色最近一次可用的模型地址
func (s *GalleryStore) UpdateLastModelURL(id, url string) error {
	return s.db.Model(&model.Character{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"last_model_url": url,
			"updated_at":     time.Now(),
		}).Error
}

// Delete 删除角色记录，返回是否真的删了
func (s *GalleryStore) Delete(id string) (bool, error) {
	result := s.db.Where("id = ?", id).Delete(&model.Character{})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// normalizeName 统一角色名的 Unicode 形式并去掉首尾空白
func normalizeName(name string) string {
	return norm.NFC.String(strings.TrimSpace(name))
}
