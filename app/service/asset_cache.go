package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"amico-server/app/logger"
	"amico-server/app/model"
	"amico-server/app/utils/fetcher"

	gocache "github.com/patrickmn/go-cache"
	"gorm.io/gorm"
)

// CacheWriteError 资产落盘失败
//
// 缓存只是加速层，写入失败只记日志不打断流水线。
type CacheWriteError struct {
	EntityID string
	Variant  string
	Err      error
}

func (e *CacheWriteError) Error() string {
	return fmt.Sprintf("缓存资产 %s/%s 写入失败: %v", e.EntityID, e.Variant, e.Err)
}

func (e *CacheWriteError) Unwrap() error {
	return e.Err
}

// AssetCache 模型资产的本地二进制缓存
//
// 数据落在 SQLite 的 blob 列里，热数据再罩一层内存缓存，
// 避免渲染端反复拉取同一个 GLB 时每次都走数据库。
type AssetCache struct {
	db      *gorm.DB
	logger  *logger.Logger
	mem     *gocache.Cache
	fetch   *fetcher.Config
	maxSize int64
}

// NewAssetCache 创建资产缓存
func NewAssetCache(db *gorm.DB, log *logger.Logger, maxSize int64, memTTL time.Duration) *AssetCache {
	if maxSize <= 0 {
		maxSize = fetcher.DefaultConfig().MaxSize
	}
	if memTTL <= 0 {
		memTTL = 10 * time.Minute
	}
	cfg := fetcher.DefaultConfig()
	cfg.MaxSize = maxSize
	return &AssetCache{
		db:      db,
		logger:  log,
		mem:     gocache.New(memTTL, 2*memTTL),
		fetch:   cfg,
		maxSize: maxSize,
	}
}

func memKey(entityID, variant string) string {
	return entityID + "/" + variant
}

// CacheFromURL 下载远端资产并落盘
//
// 尽力而为：任何失败只记日志并返回 false，调用方不需要处理。
func (c *AssetCache) CacheFromURL(ctx context.Context, entityID, variant, url string) bool {
	result, err := fetcher.FetchBinary(ctx, url, c.fetch)
	if err != nil {
		c.logger.Warnf("缓存资产 %s/%s 下载失败: %v", entityID, variant, err)
		return false
	}

	if err := c.Put(entityID, variant, result.Bytes, result.ContentType); err != nil {
		c.logger.Warnf("%v", err)
		return false
	}

	c.logger.Infof("缓存资产 %s/%s 完成，大小 %d 字节，耗时 %s",
		entityID, variant, len(result.Bytes), result.Duration)
	return true
}

// Put 直接写入一份资产字节
func (c *AssetCache) Put(entityID, variant string, data []byte, contentType string) error {
	if int64(len(data)) > c.maxSize {
		return &CacheWriteError{
			EntityID: entityID,
			Variant:  variant,
			Err:      fmt.Errorf("资产大小 %d 超过上限 %d", len(data), c.maxSize),
		}
	}

	asset := model.CachedAsset{
		EntityID:    entityID,
		Variant:     variant,
		Bytes:       data,
		ContentType: contentType,
		Size:        int64(len(data)),
		UpdatedAt:   time.Now(),
	}

	err := c.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("entity_id = ? AND variant = ?", entityID, variant).
			Delete(&model.CachedAsset{}).Error; err != nil {
			return err
		}
		return tx.Create(&asset).Error
	})
	if err != nil {
		return &CacheWriteError{EntityID: entityID, Variant: variant, Err: err}
	}

	c.mem.Set(memKey(entityID, variant), &asset, gocache.DefaultExpiration)
	return nil
}

// Get 读出一份缓存资产，没有命中返回 nil
func (c *AssetCache) Get(entityID, variant string) (*model.CachedAsset, error) {
	if v, ok := c.mem.Get(memKey(entityID, variant)); ok {
		return v.(*model.CachedAsset), nil
	}

	var asset model.CachedAsset
	err := c.db.Where("entity_id = ? AND variant = ?", entityID, variant).First(&asset).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	c.mem.Set(memKey(entityID, variant), &asset, gocache.DefaultExpiration)
	return &asset, nil
}

// Has 只查询是否有缓存，不加载字节
func (c *AssetCache) Has(entityID, variant string) bool {
	if _, ok := c.mem.Get(memKey(entityID, variant)); ok {
		return true
	}
	var count int64
	if err := c.db.Model(&model.CachedAsset{}).
		Where("entity_id = ? AND variant = ?", entityID, variant).
		Count(&count).Error; err != nil {
		c.logger.Warnf("查询缓存资产 %s/%s 失败: %v", entityID, variant, err)
		return false
	}
	return count > 0
}

// Handle 返回缓存资产的本地访问路径，没有缓存时第二个返回值为 false
func (c *AssetCache) Handle(entityID, variant string) (string, bool) {
	if !c.Has(entityID, variant) {
		return "", false
	}
	return fmt.Sprintf("/api/assets/%s/%s", entityID, variant), true
}

// RemoveForEntity 删除某个实体名下的全部缓存资产，返回删除条数
func (c *AssetCache) RemoveForEntity(entityID string) (int64, error) {
	var variants []string
	if err := c.db.Model(&model.CachedAsset{}).
		Where("entity_id = ?", entityID).
		Pluck("variant", &variants).Error; err != nil {
		return 0, err
	}

	result := c.db.Where("entity_id = ?", entityID).Delete(&model.CachedAsset{})
	if result.Error != nil {
		return 0, result.Error
	}

	for _, v := range variants {
		c.mem.Delete(memKey(entityID, v))
	}
	return result.RowsAffected, nil
}

// EntityIDs 返回缓存里出现过的全部实体 ID（供清理任务比对）
func (c *AssetCache) EntityIDs() ([]string, error) {
	var ids []string
	err := c.db.Model(&model.CachedAsset{}).
		Distinct("entity_id").
		Pluck("entity_id", &ids).Error
	return ids, err
}
