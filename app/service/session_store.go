package service

import (
	"errors"
	"fmt"
	"time"

	"amico-server/app/logger"
	"amico-server/app/model"

	"gorm.io/gorm"
)

// SessionPersistError 断点存档写入失败
//
// 存档写不进去就不能向调用方报告阶段成功，否则崩溃后进度无法恢复，
// 所以这个错误会让当前阶段直接失败。
type SessionPersistError struct {
	Err error
}

func (e *SessionPersistError) Error() string {
	return fmt.Sprintf("会话存档失败: %v", e.Err)
}

func (e *SessionPersistError) Unwrap() error {
	return e.Err
}

// SessionPatch 合并式更新：为 nil 的字段保持原值
type SessionPatch struct {
	CharacterID      *string
	UploadedImage    *string
	StyledImage      *string
	ModelTaskID      *string
	ModelURL         *string
	RigTaskID        *string
	RiggedModelURL   *string
	AnimURLs         model.AnimRefs // 非 nil 时整体替换
	CharacterName    *string
	CharacterGender  *string
	CharacterProfile *string
}

// SessionStore 流水线断点存档（单槽位）
type SessionStore struct {
	db     *gorm.DB
	logger *logger.Logger
}

// NewSessionStore 创建会话存档
func NewSessionStore(db *gorm.DB, log *logger.Logger) *SessionStore {
	return &SessionStore{db: db, logger: log}
}

// Load 读出当前存档，没有存档返回 nil
func (s *SessionStore) Load() (*model.PipelineSession, error) {
	var sess model.PipelineSession
	err := s.db.First(&sess, model.SessionSlotID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &sess, nil
}

// Save 合并写入存档，写完即落盘
func (s *SessionStore) Save(patch *SessionPatch) error {
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var sess model.PipelineSession
		err := tx.First(&sess, model.SessionSlotID).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			sess = model.PipelineSession{ID: model.SessionSlotID}
		} else if err != nil {
			return err
		}

		applyPatch(&sess, patch)
		sess.SavedAt = time.Now()

		return tx.Save(&sess).Error
	})
	if err != nil {
		s.logger.Errorf("会话存档失败: %v", err)
		return &SessionPersistError{Err: err}
	}
	return nil
}

// Clear 清空存档（放弃当前流程或已交接给角色库）
func (s *SessionStore) Clear() error {
	err := s.db.Delete(&model.PipelineSession{}, model.SessionSlotID).Error
	if err != nil {
		s.logger.Errorf("清空会话存档失败: %v", err)
		return err
	}
	return nil
}

// applyPatch 把补丁合并进存档
func applyPatch(sess *model.PipelineSession, patch *SessionPatch) {
	if patch == nil {
		return
	}
	if patch.CharacterID != nil {
		sess.CharacterID = *patch.CharacterID
	}
	if patch.UploadedImage != nil {
		sess.UploadedImage = *patch.UploadedImage
	}
	if patch.StyledImage != nil {
		sess.StyledImage = *patch.StyledImage
	}
	if patch.ModelTaskID != nil {
		sess.ModelTaskID = *patch.ModelTaskID
	}
	if patch.ModelURL != nil {
		sess.ModelURL = *patch.ModelURL
	}
	if patch.RigTaskID != nil {
		sess.RigTaskID = *patch.RigTaskID
	}
	if patch.RiggedModelURL != nil {
		sess.RiggedModelURL = *patch.RiggedModelURL
	}
	if patch.AnimURLs != nil {
		sess.AnimURLs = patch.AnimURLs
	}
	if patch.CharacterName != nil {
		sess.CharacterName = *patch.CharacterName
	}
	if patch.CharacterGender != nil {
		sess.CharacterGender = *patch.CharacterGender
	}
	if patch.CharacterProfile != nil {
		sess.CharacterProfile = *patch.CharacterProfile
	}
}

// str 取字符串指针的便捷函数
func str(s string) *string {
	return &s
}
