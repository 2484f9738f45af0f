package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"amico-server/app/config"
	"amico-server/app/logger"
	"amico-server/app/model"
	"amico-server/app/utils/dataurl"
	"amico-server/app/utils/signedurl"
	"amico-server/app/utils/styleclient"
	"amico-server/app/utils/thumbnail"
	"amico-server/app/utils/tripoclient"

	"github.com/google/uuid"
)

// Stage 流水线阶段
type Stage string

const (
	StageIdle      Stage = "idle"
	StageStyling   Stage = "styling"
	StageStyled    Stage = "styled"
	StageModeling  Stage = "modeling"
	StageModeled   Stage = "modeled"
	StageRigging   Stage = "rigging"
	StageRigged    Stage = "rigged"
	StageAnimating Stage = "animating"
	StageComplete  Stage = "complete"
)

// PresetIdle 收尾阶段生成的默认站立动画
const PresetIdle = "idle"

// TaskAPI 3D 任务队列的最小接口（测试用假实现）
type TaskAPI interface {
	Upload(ctx context.Context, data []byte, mimeType string) (string, error)
	CreateTask(ctx context.Context, params tripoclient.TaskParams) (string, error)
	GetStatus(ctx context.Context, taskID string) (*tripoclient.Task, error)
}

// StyleAPI 2D 风格化的最小接口
type StyleAPI interface {
	StylizeImage(ctx context.Context, imageData []byte, mimeType string) (*styleclient.StyledImage, error)
	StylizeFromText(ctx context.Context, desc styleclient.CharacterDesc) (*styleclient.StyledImage, error)
}

// Progress 当前在途任务的进度快照，只用于展示
type Progress struct {
	TaskID  string `json:"task_id"`
	Status  string `json:"status"`
	Percent int    `json:"percent"`
}

// ModelResolution 图鉴角色模型地址的解析结果
type ModelResolution struct {
	URL    string `json:"url"`
	Source string `json:"source"` // cache / remote / regenerated / stale
}

// SessionView GET /session 的响应体
type SessionView struct {
	Stage    Stage                  `json:"stage"`
	Session  *model.PipelineSession `json:"session"`
	Progress *Progress              `json:"progress,omitempty"`
}

// PipelineService 创建流水线的编排器
//
// 串行状态机：idle → styled → modeled → rigged → complete，
// 同一时刻最多一个阶段在执行。每个阶段成功前先落存档，
// 失败则回退到上一个已确认的状态，已产出的结果不丢。
type PipelineService struct {
	cfg      *config.Config
	logger   *logger.Logger
	tasks    TaskAPI
	style    StyleAPI
	poller   *tripoclient.Poller
	sessions *SessionStore
	gallery  *GalleryStore
	cache    *AssetCache

	mu            sync.Mutex
	stage         Stage
	inFlight      bool
	pendingPreset string
	progress      *Progress
}

// NewPipelineService 创建编排器
func NewPipelineService(
	cfg *config.Config,
	log *logger.Logger,
	tasks TaskAPI,
	style StyleAPI,
	sessions *SessionStore,
	gallery *GalleryStore,
	cache *AssetCache,
) *PipelineService {
	s := &PipelineService{
		cfg:      cfg,
		logger:   log,
		tasks:    tasks,
		style:    style,
		sessions: sessions,
		gallery:  gallery,
		cache:    cache,
		stage:    StageIdle,
	}

	poller := tripoclient.NewPoller(cfg.Tripo.PollIntervalDuration())
	poller.OnProgress = func(taskID string, status tripoclient.Status, percent int) {
		s.setProgress(&Progress{TaskID: taskID, Status: string(status), Percent: percent})
		log.Debugf("任务 %s: %s %d%%", taskID, status, percent)
	}
	s.poller = poller
	return s
}

// SetPoller 替换轮询器（测试注入假时钟用）
func (s *PipelineService) SetPoller(p *tripoclient.Poller) {
	s.poller = p
}

// StageForSession 根据存档字段推断恢复点，从后往前匹配
func StageForSession(sess *model.PipelineSession) Stage {
	switch {
	case sess == nil:
		return StageIdle
	case len(sess.AnimURLs) > 0:
		return StageComplete
	case sess.RiggedModelURL != "":
		return StageRigged
	case sess.ModelURL != "":
		return StageModeled
	case sess.StyledImage != "":
		return StageStyled
	default:
		return StageIdle
	}
}

// Resume 启动时从存档恢复进度
func (s *PipelineService) Resume() error {
	sess, err := s.sessions.Load()
	if err != nil {
		return err
	}
	stage := StageForSession(sess)

	s.mu.Lock()
	s.stage = stage
	s.mu.Unlock()

	if stage != StageIdle {
		s.logger.Infof("检测到未完成的创建会话，恢复到 %s 阶段", stage)
	}
	return nil
}

// CurrentStage 当前阶段
func (s *PipelineService) CurrentStage() Stage {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stage
}

// Snapshot 会话 + 阶段 + 在途进度，供前端恢复界面
func (s *PipelineService) Snapshot() (*SessionView, error) {
	sess, err := s.sessions.Load()
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return &SessionView{Stage: s.stage, Session: sess, Progress: s.progress}, nil
}

// Reset 放弃当前会话，回到空闲
func (s *PipelineService) Reset() error {
	s.mu.Lock()
	if s.inFlight {
		current := s.stage
		s.mu.Unlock()
		return &StageBusyError{Current: current}
	}
	s.stage = StageIdle
	s.progress = nil
	s.mu.Unlock()

	return s.sessions.Clear()
}

// StylizeImage 阶段0：把上传的照片转成黏土风格图
//
// 已有风格图时再次调用即为重新生成，失败保留原有风格图。
func (s *PipelineService) StylizeImage(ctx context.Context, imageDataURL string) (string, error) {
	prev, err := s.begin(StageStyling, "风格化", StageIdle, StageStyled)
	if err != nil {
		return "", err
	}

	imageData, mimeType, err := dataurl.Decode(imageDataURL)
	if err != nil {
		s.finish(prev)
		return "", fmt.Errorf("图片数据无效: %w", err)
	}

	styled, err := s.style.StylizeImage(ctx, imageData, mimeType)
	if err != nil {
		s.finish(prev)
		return "", err
	}

	// 风格图换了，下游产物全部作废
	if err := s.sessions.Save(&SessionPatch{
		UploadedImage:  str(imageDataURL),
		StyledImage:    str(styled.DataURL),
		ModelTaskID:    str(""),
		ModelURL:       str(""),
		RigTaskID:      str(""),
		RiggedModelURL: str(""),
		AnimURLs:       model.AnimRefs{},
	}); err != nil {
		s.finish(prev)
		return "", err
	}

	s.finish(StageStyled)
	return styled.DataURL, nil
}

// StylizeFromText 阶段0的文字入口：根据角色设定直接生成风格图
func (s *PipelineService) StylizeFromText(ctx context.Context, desc styleclient.CharacterDesc) (string, error) {
	prev, err := s.begin(StageStyling, "风格化", StageIdle, StageStyled)
	if err != nil {
		return "", err
	}

	styled, err := s.style.StylizeFromText(ctx, desc)
	if err != nil {
		s.finish(prev)
		return "", err
	}

	if err := s.sessions.Save(&SessionPatch{
		UploadedImage:    str(""),
		StyledImage:      str(styled.DataURL),
		ModelTaskID:      str(""),
		ModelURL:         str(""),
		RigTaskID:        str(""),
		RiggedModelURL:   str(""),
		AnimURLs:         model.AnimRefs{},
		CharacterName:    str(desc.Name),
		CharacterGender:  str(desc.Gender),
		CharacterProfile: str(desc.Profile),
	}); err != nil {
		s.finish(prev)
		return "", err
	}

	s.finish(StageStyled)
	return styled.DataURL, nil
}

// GenerateModel 阶段1：风格图 → 带贴图的 3D 网格
func (s *PipelineService) GenerateModel(ctx context.Context) (string, error) {
	prev, err := s.begin(StageModeling, "建模", StageStyled, StageModeled)
	if err != nil {
		return "", err
	}

	sess, err := s.requireSession(prev)
	if err != nil {
		return "", err
	}
	if sess.StyledImage == "" {
		s.finish(prev)
		return "", &StageOrderError{Current: prev, Want: "建模"}
	}

	imageData, mimeType, err := dataurl.Decode(sess.StyledImage)
	if err != nil {
		s.finish(prev)
		return "", fmt.Errorf("风格图数据无效: %w", err)
	}

	token, err := s.tasks.Upload(ctx, imageData, mimeType)
	if err != nil {
		s.finish(prev)
		return "", err
	}

	taskID, err := s.tasks.CreateTask(ctx, tripoclient.TaskParams{
		Type:           tripoclient.TaskImageToModel,
		File:           &tripoclient.FileInput{Type: "jpg", FileToken: token},
		TextureQuality: "detailed",
		ModelSeed:      42,
	})
	if err != nil {
		s.finish(prev)
		return "", err
	}

	modelURL, err := s.waitForModel(ctx, taskID)
	if err != nil {
		s.finish(prev)
		return "", err
	}

	if err := s.sessions.Save(&SessionPatch{
		ModelTaskID:    str(taskID),
		ModelURL:       str(modelURL),
		RigTaskID:      str(""),
		RiggedModelURL: str(""),
		AnimURLs:       model.AnimRefs{},
	}); err != nil {
		s.finish(prev)
		return "", err
	}

	s.finish(StageModeled)
	return modelURL, nil
}

// GenerateRig 阶段2：给网格装双足骨架
func (s *PipelineService) GenerateRig(ctx context.Context) (string, error) {
	prev, err := s.begin(StageRigging, "绑骨", StageModeled, StageRigged)
	if err != nil {
		return "", err
	}

	sess, err := s.requireSession(prev)
	if err != nil {
		return "", err
	}
	if sess.ModelTaskID == "" {
		s.finish(prev)
		return "", &StageOrderError{Current: prev, Want: "绑骨"}
	}

	taskID, err := s.tasks.CreateTask(ctx, tripoclient.TaskParams{
		Type:                tripoclient.TaskAnimateRig,
		OriginalModelTaskID: sess.ModelTaskID,
		RigType:             "biped",
	})
	if err != nil {
		s.finish(prev)
		return "", err
	}

	riggedURL, err := s.waitForModel(ctx, taskID)
	if err != nil {
		s.finish(prev)
		return "", err
	}

	if err := s.sessions.Save(&SessionPatch{
		RigTaskID:      str(taskID),
		RiggedModelURL: str(riggedURL),
		AnimURLs:       model.AnimRefs{},
	}); err != nil {
		s.finish(prev)
		return "", err
	}

	s.finish(StageRigged)
	return riggedURL, nil
}

// GenerateAnimation 阶段3：重定向 idle 动画并收尾
//
// 成功后角色入图鉴、idle 资产进本地缓存、会话标记为 complete。
func (s *PipelineService) GenerateAnimation(ctx context.Context) (string, error) {
	prev, err := s.begin(StageAnimating, "动画", StageRigged, StageComplete)
	if err != nil {
		return "", err
	}

	sess, err := s.requireSession(prev)
	if err != nil {
		return "", err
	}
	if sess.RigTaskID == "" {
		s.finish(prev)
		return "", &StageOrderError{Current: prev, Want: "动画"}
	}

	animURL, err := s.retarget(ctx, sess.RigTaskID, PresetIdle)
	if err != nil {
		s.finish(prev)
		return "", err
	}

	characterID := sess.CharacterID
	if characterID == "" {
		characterID = uuid.NewString()
	}

	if err := s.gallery.Upsert(&model.Character{
		ID:           characterID,
		Name:         sess.CharacterName,
		Gender:       sess.CharacterGender,
		Profile:      sess.CharacterProfile,
		Thumbnail:    s.makeThumbnail(sess),
		ModelTaskID:  sess.ModelTaskID,
		RigTaskID:    sess.RigTaskID,
		LastModelURL: animURL,
	}); err != nil {
		s.finish(prev)
		return "", fmt.Errorf("角色入库失败: %w", err)
	}

	if err := s.sessions.Save(&SessionPatch{
		CharacterID: str(characterID),
		AnimURLs:    sess.AnimURLs.Append(PresetIdle, animURL),
	}); err != nil {
		s.finish(prev)
		return "", err
	}

	// 缓存失败不影响结果，渲染端届时走远端地址
	s.cache.CacheFromURL(ctx, characterID, model.VariantIdle, animURL)

	s.finish(StageComplete)
	return animURL, nil
}

// RequestPresetAnimation 按需生成额外的预设动画（complete 之后可用）
//
// 已生成过的预设直接返回存档里的地址，不重复建任务；
// 同一时刻只允许一个预设在生成。
func (s *PipelineService) RequestPresetAnimation(ctx context.Context, preset string) (string, error) {
	sess, err := s.sessions.Load()
	if err != nil {
		return "", err
	}
	if sess == nil || sess.RigTaskID == "" || len(sess.AnimURLs) == 0 {
		return "", &StageOrderError{Current: s.CurrentStage(), Want: "预设动画"}
	}

	if url, ok := sess.AnimURLs.Get(preset); ok {
		return url, nil
	}

	s.mu.Lock()
	if s.pendingPreset != "" {
		pending := s.pendingPreset
		s.mu.Unlock()
		return "", &PresetBusyError{Pending: pending}
	}
	s.pendingPreset = preset
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.pendingPreset = ""
		s.mu.Unlock()
	}()

	animURL, err := s.retarget(ctx, sess.RigTaskID, preset)
	if err != nil {
		return "", err
	}

	if err := s.sessions.Save(&SessionPatch{
		AnimURLs: sess.AnimURLs.Append(preset, animURL),
	}); err != nil {
		return "", err
	}

	if sess.CharacterID != "" {
		s.cache.CacheFromURL(ctx, sess.CharacterID, preset, animURL)
	}
	return animURL, nil
}

// ResolveCharacterModel 解析图鉴角色的可加载模型
//
// 顺序：本地缓存 → 未过期的远端地址 → 用绑骨任务重新出动画 → 过期地址兜底。
func (s *PipelineService) ResolveCharacterModel(ctx context.Context, characterID string) (*ModelResolution, error) {
	ch, err := s.gallery.Get(characterID)
	if err != nil {
		return nil, err
	}
	if ch == nil {
		return nil, &CharacterNotFoundError{ID: characterID}
	}

	if handle, ok := s.cache.Handle(characterID, model.VariantIdle); ok {
		return &ModelResolution{URL: handle, Source: "cache"}, nil
	}

	leeway := s.urlLeeway()
	if ch.LastModelURL != "" && !signedurl.IsExpired(ch.LastModelURL, leeway) {
		// 地址还能用，顺手补一份本地缓存
		go s.cache.CacheFromURL(context.Background(), characterID, model.VariantIdle, ch.LastModelURL)
		return &ModelResolution{URL: ch.LastModelURL, Source: "remote"}, nil
	}

	if ch.RigTaskID != "" {
		url, err := s.retarget(ctx, ch.RigTaskID, PresetIdle)
		if err == nil {
			if err := s.gallery.UpdateLastModelURL(characterID, url); err != nil {
				s.logger.Warnf("刷新角色 %s 模型地址失败: %v", characterID, err)
			}
			s.cache.CacheFromURL(ctx, characterID, model.VariantIdle, url)
			return &ModelResolution{URL: url, Source: "regenerated"}, nil
		}
		s.logger.Warnf("角色 %s 重新生成动画失败: %v", characterID, err)
	}

	if ch.LastModelURL != "" {
		// 最后手段：把疑似过期的地址交给渲染端试试
		return &ModelResolution{URL: ch.LastModelURL, Source: "stale"}, nil
	}
	return nil, fmt.Errorf("角色 %s 没有可用的模型地址", characterID)
}

// DeleteCharacter 删除角色并清掉名下缓存资产
func (s *PipelineService) DeleteCharacter(id string) error {
	found, err := s.gallery.Delete(id)
	if err != nil {
		return err
	}
	if !found {
		return &CharacterNotFoundError{ID: id}
	}
	if n, err := s.cache.RemoveForEntity(id); err != nil {
		s.logger.Warnf("清理角色 %s 缓存资产失败: %v", id, err)
	} else if n > 0 {
		s.logger.Infof("角色 %s 已删除，清理缓存资产 %d 份", id, n)
	}
	return nil
}

// begin 抢占阶段执行权并检查状态迁移是否合法
func (s *PipelineService) begin(active Stage, want string, allowed ...Stage) (Stage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.inFlight {
		return "", &StageBusyError{Current: s.stage}
	}
	prev := s.stage
	for _, a := range allowed {
		if prev == a {
			s.inFlight = true
			s.stage = active
			s.progress = nil
			return prev, nil
		}
	}
	return "", &StageOrderError{Current: prev, Want: want}
}

// finish 结束当前阶段，stage 为成功后的新状态或回退目标
func (s *PipelineService) finish(stage Stage) {
	s.mu.Lock()
	s.inFlight = false
	s.stage = stage
	s.progress = nil
	s.mu.Unlock()
}

func (s *PipelineService) setProgress(p *Progress) {
	s.mu.Lock()
	s.progress = p
	s.mu.Unlock()
}

// requireSession 读取存档，读不到视为阶段失败并回退
func (s *PipelineService) requireSession(prev Stage) (*model.PipelineSession, error) {
	sess, err := s.sessions.Load()
	if err != nil {
		s.finish(prev)
		return nil, err
	}
	if sess == nil {
		s.finish(prev)
		return nil, &StageOrderError{Current: prev, Want: "继续流程"}
	}
	return sess, nil
}

// waitForModel 轮询任务直到终态并取出模型地址
func (s *PipelineService) waitForModel(ctx context.Context, taskID string) (string, error) {
	task, err := s.poller.Poll(ctx, taskID, s.tasks.GetStatus, s.cfg.Tripo.StageTimeoutDuration())
	if err != nil {
		return "", err
	}
	return tripoclient.ExtractModelURL(task)
}

// retarget 提交一个预设动画重定向任务并等它出结果
func (s *PipelineService) retarget(ctx context.Context, rigTaskID, preset string) (string, error) {
	taskID, err := s.tasks.CreateTask(ctx, tripoclient.TaskParams{
		Type:                tripoclient.TaskAnimateRetarget,
		OriginalModelTaskID: rigTaskID,
		Animation:           "preset:" + preset,
	})
	if err != nil {
		return "", err
	}
	return s.waitForModel(ctx, taskID)
}

// makeThumbnail 生成图鉴缩略图，压缩失败退回首字母占位图
func (s *PipelineService) makeThumbnail(sess *model.PipelineSession) string {
	if sess.StyledImage != "" {
		thumb, err := thumbnail.Compress(sess.StyledImage, thumbnail.DefaultMaxSize, thumbnail.DefaultQuality)
		if err == nil {
			return thumb
		}
		s.logger.Warnf("缩略图压缩失败: %v", err)
	}
	name := sess.CharacterName
	if name == "" {
		name = "Amico"
	}
	return thumbnail.Placeholder(name, thumbnail.DefaultMaxSize)
}

func (s *PipelineService) urlLeeway() time.Duration {
	return time.Duration(s.cfg.Tripo.URLExpiryLeeway) * time.Second
}
