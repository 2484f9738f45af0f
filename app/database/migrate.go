package database

import "amico-server/app/model"

func AutoMigrate() error {
	// 自动迁移表结构
	return DB.AutoMigrate(
		&model.User{},
		&model.PipelineSession{},
		&model.Character{},
		&model.CachedAsset{},
	)
}
