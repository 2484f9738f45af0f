package service

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"amico-server/app/config"
	"amico-server/app/logger"
	"amico-server/app/model"
	"amico-server/app/utils/dataurl"
	"amico-server/app/utils/styleclient"
	"amico-server/app/utils/tripoclient"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func testLogger() *logger.Logger {
	return logger.New(config.LogConfig{Level: "error", Output: "stdout"})
}

func testDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&model.PipelineSession{},
		&model.Character{},
		&model.CachedAsset{},
	))
	return db
}

func testConfig() *config.Config {
	return &config.Config{
		Tripo: config.TripoConfig{
			PollInterval:    1,
			StageTimeout:    300,
			URLExpiryLeeway: 60,
		},
		Cache: config.CacheConfig{
			MaxAssetSize: 100,
			MemoryTTL:    10,
		},
	}
}

// fakePoller 假时钟轮询器，sleep 即时返回
func fakePoller() *tripoclient.Poller {
	now := time.Unix(1700000000, 0)
	return tripoclient.NewPoller(time.Second).WithClock(
		func() time.Time { return now },
		func(_ context.Context, d time.Duration) error {
			now = now.Add(d)
			return nil
		},
	)
}

// fakeTasks 可编程的任务队列假实现
type fakeTasks struct {
	mu      sync.Mutex
	uploads int
	created []tripoclient.TaskParams

	uploadErr  error
	createErr  error
	failStatus tripoclient.Status // 非空时任务以该终态结束
	outputURL  string             // 成功任务输出的模型地址
	block      chan struct{}      // 非 nil 时 CreateTask 阻塞直到关闭
}

func newFakeTasks() *fakeTasks {
	return &fakeTasks{outputURL: "https://assets.example.com/out.glb"}
}

func (f *fakeTasks) Upload(_ context.Context, _ []byte, _ string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.uploadErr != nil {
		return "", f.uploadErr
	}
	f.uploads++
	return fmt.Sprintf("token-%d", f.uploads), nil
}

func (f *fakeTasks) CreateTask(_ context.Context, params tripoclient.TaskParams) (string, error) {
	if f.block != nil {
		<-f.block
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return "", f.createErr
	}
	f.created = append(f.created, params)
	return fmt.Sprintf("task-%d", len(f.created)), nil
}

func (f *fakeTasks) GetStatus(_ context.Context, taskID string) (*tripoclient.Task, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failStatus != "" {
		return &tripoclient.Task{TaskID: taskID, Status: f.failStatus}, nil
	}
	return &tripoclient.Task{
		TaskID:   taskID,
		Status:   tripoclient.StatusSuccess,
		Progress: 100,
		Output:   map[string]tripoclient.AssetRef{"model": {URL: f.outputURL}},
	}, nil
}

func (f *fakeTasks) createdCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.created)
}

func (f *fakeTasks) lastCreated() tripoclient.TaskParams {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.created[len(f.created)-1]
}

// fakeStyle 可编程的风格化假实现
type fakeStyle struct {
	err   error
	block chan struct{}
}

func styledDataURL() string {
	return dataurl.Encode([]byte("styled-image-bytes"), "image/png")
}

func (f *fakeStyle) result() *styleclient.StyledImage {
	return &styleclient.StyledImage{
		DataURL:  styledDataURL(),
		MimeType: "image/png",
	}
}

func (f *fakeStyle) StylizeImage(_ context.Context, _ []byte, _ string) (*styleclient.StyledImage, error) {
	if f.block != nil {
		<-f.block
	}
	if f.err != nil {
		return nil, f.err
	}
	return f.result(), nil
}

func (f *fakeStyle) StylizeFromText(_ context.Context, _ styleclient.CharacterDesc) (*styleclient.StyledImage, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.result(), nil
}

func testCharacterDesc() styleclient.CharacterDesc {
	return styleclient.CharacterDesc{
		Gender:  "female",
		Name:    "小糖",
		Profile: "爱吃甜食的元气少女",
	}
}

// testPipeline 装配一套完整的测试流水线
type testPipeline struct {
	svc      *PipelineService
	tasks    *fakeTasks
	style    *fakeStyle
	sessions *SessionStore
	gallery  *GalleryStore
	cache    *AssetCache
}

func newTestPipeline(t *testing.T) *testPipeline {
	t.Helper()
	db := testDB(t)
	log := testLogger()

	tasks := newFakeTasks()
	style := &fakeStyle{}
	sessions := NewSessionStore(db, log)
	gallery := NewGalleryStore(db, log)
	cache := NewAssetCache(db, log, 10*1024*1024, time.Minute)

	svc := NewPipelineService(testConfig(), log, tasks, style, sessions, gallery, cache)
	svc.SetPoller(fakePoller())

	return &testPipeline{
		svc:      svc,
		tasks:    tasks,
		style:    style,
		sessions: sessions,
		gallery:  gallery,
		cache:    cache,
	}
}

// runToStage 把流水线推进到指定阶段
func (p *testPipeline) runToStage(t *testing.T, target Stage) {
	t.Helper()
	ctx := context.Background()

	steps := []struct {
		stage Stage
		run   func() error
	}{
		{StageStyled, func() error { _, err := p.svc.StylizeImage(ctx, styledDataURL()); return err }},
		{StageModeled, func() error { _, err := p.svc.GenerateModel(ctx); return err }},
		{StageRigged, func() error { _, err := p.svc.GenerateRig(ctx); return err }},
		{StageComplete, func() error { _, err := p.svc.GenerateAnimation(ctx); return err }},
	}

	for _, step := range steps {
		require.NoError(t, step.run())
		if step.stage == target {
			return
		}
	}
}
