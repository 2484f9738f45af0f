package service

import (
	"amico-server/app/logger"

	"github.com/robfig/cron/v3"
)

// CacheJanitor 定时清理孤儿缓存资产
//
// 角色删除时会同步清缓存，但进程中途崩溃可能留下没有主人的 blob，
// 这里按计划表兜底扫一遍。
type CacheJanitor struct {
	cache   *AssetCache
	gallery *GalleryStore
	logger  *logger.Logger
	cron    *cron.Cron
}

// NewCacheJanitor 创建清理任务
func NewCacheJanitor(cache *AssetCache, gallery *GalleryStore, log *logger.Logger) *CacheJanitor {
	return &CacheJanitor{
		cache:   cache,
		gallery: gallery,
		logger:  log,
		cron:    cron.New(),
	}
}

// Start 按 cron 表达式启动定时清理
func (j *CacheJanitor) Start(spec string) error {
	if _, err := j.cron.AddFunc(spec, j.Sweep); err != nil {
		return err
	}
	j.cron.Start()
	j.logger.Infof("缓存清理任务已启动: %s", spec)
	return nil
}

// Stop 停止定时清理
func (j *CacheJanitor) Stop() {
	j.cron.Stop()
}

// Sweep 扫描一轮：删除图鉴里已不存在的实体的缓存资产
func (j *CacheJanitor) Sweep() {
	entityIDs, err := j.cache.EntityIDs()
	if err != nil {
		j.logger.Errorf("缓存清理：读取实体列表失败: %v", err)
		return
	}
	if len(entityIDs) == 0 {
		return
	}

	chars, err := j.gallery.List()
	if err != nil {
		j.logger.Errorf("缓存清理：读取图鉴失败: %v", err)
		return
	}
	alive := make(map[string]struct{}, len(chars))
	for _, ch := range chars {
		alive[ch.ID] = struct{}{}
	}

	var removed int64
	for _, id := range entityIDs {
		if _, ok := alive[id]; ok {
			continue
		}
		n, err := j.cache.RemoveForEntity(id)
		if err != nil {
			j.logger.Warnf("缓存清理：删除实体 %s 失败: %v", id, err)
			continue
		}
		removed += n
	}

	if removed > 0 {
		j.logger.Infof("缓存清理完成，删除孤儿资产 %d 份", removed)
	}
}
