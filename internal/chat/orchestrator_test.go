package chat

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"imagechat/internal/client"
	"imagechat/internal/messaging"
	"imagechat/internal/storage"
	"imagechat/pkg/models"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeGenerator struct {
	mu       sync.Mutex
	requests []client.GenerateRequest
	response client.GenerateResponse
	err      error
	block    chan struct{}
	// onCall runs before the response is returned.
	onCall func()
}

func (g *fakeGenerator) Generate(ctx context.Context, req client.GenerateRequest) (client.GenerateResponse, error) {
	g.mu.Lock()
	g.requests = append(g.requests, req)
	block := g.block
	g.mu.Unlock()

	if block != nil {
		<-block
	}
	if g.onCall != nil {
		g.onCall()
	}
	return g.response, g.err
}

func (g *fakeGenerator) calls() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.requests)
}

type staticConfigs struct {
	cfg *models.ApiConfig
}

func (s staticConfigs) GetActive() (models.ApiConfig, bool) {
	if s.cfg == nil {
		return models.ApiConfig{}, false
	}
	return *s.cfg, true
}

type recordingArchive struct {
	mu     sync.Mutex
	images map[string][]string
}

func (a *recordingArchive) Archive(ctx context.Context, sessionID, messageID string, images []string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.images[sessionID+"/"+messageID] = images
	return nil
}

type testOrchestrator struct {
	*Orchestrator
	sessions  *SessionStore
	generator *fakeGenerator
	events    <-chan messaging.GenerationEvent
	archive   *recordingArchive
}

func newTestOrchestrator(t *testing.T, generator *fakeGenerator, active *models.ApiConfig) testOrchestrator {
	t.Helper()
	sessions, _, clock := newTestSessionStore(t)

	queue := messaging.NewInMemoryQueue()
	events, cancel := queue.Subscribe()
	t.Cleanup(cancel)

	archive := &recordingArchive{images: map[string][]string{}}

	o := NewOrchestrator(OrchestratorOptions{
		Sessions:  sessions,
		Configs:   staticConfigs{cfg: active},
		Remote:    generator,
		Publisher: queue,
		Archive:   archive,
		Clock:     clock,
	})
	return testOrchestrator{Orchestrator: o, sessions: sessions, generator: generator, events: events, archive: archive}
}

var activeConfig = &models.ApiConfig{ID: "cfg-1", Name: "AI绘图服务", IsActive: true}

func TestGenerateSuccess(t *testing.T) {
	generator := &fakeGenerator{response: client.GenerateResponse{Success: true, Images: []string{"https://img/a.png", "https://img/b.png"}}}
	o := newTestOrchestrator(t, generator, activeConfig)

	params := models.DefaultGenerationParameters()
	outcome, err := o.Generate(context.Background(), "a cat on a sofa", params, "")
	require.NoError(t, err)
	assert.False(t, outcome.Skipped)

	messages := o.sessions.Messages()
	require.Len(t, messages, 2)
	assert.Equal(t, models.MessageUser, messages[0].Type)
	assert.Equal(t, "a cat on a sofa", messages[0].Content)
	require.NotNil(t, messages[0].Parameters)
	assert.Equal(t, params, *messages[0].Parameters)

	assert.Equal(t, models.MessageAssistant, messages[1].Type)
	assert.Equal(t, SuccessContent, messages[1].Content)
	assert.Equal(t, []string{"https://img/a.png", "https://img/b.png"}, messages[1].Images)
	assert.Equal(t, messages[1], *outcome.Reply)

	require.Equal(t, 1, generator.calls())
	req := generator.requests[0]
	assert.Equal(t, "cfg-1", req.APIConfigID)
	assert.Equal(t, models.TextToImage, req.GenerationType)
	assert.Nil(t, req.InputImages)

	assert.Equal(t, messaging.GenerationStarted, (<-o.events).Type)
	completed := <-o.events
	assert.Equal(t, messaging.GenerationCompleted, completed.Type)
	assert.Equal(t, messages[1].ID, completed.MessageID)

	o.Wait()
	assert.Equal(t, messages[1].Images, o.archive.images[outcome.SessionID+"/"+messages[1].ID])
	assert.False(t, o.InFlight())
}

func TestGenerateFailureResponse(t *testing.T) {
	generator := &fakeGenerator{response: client.GenerateResponse{Success: false, Error: "quota exceeded"}}
	o := newTestOrchestrator(t, generator, activeConfig)

	outcome, err := o.Generate(context.Background(), "a dog", models.DefaultGenerationParameters(), "")
	require.ErrorIs(t, err, ErrGenerationFailed)
	assert.Contains(t, err.Error(), "quota exceeded")

	messages := o.sessions.Messages()
	require.Len(t, messages, 2)
	assert.Equal(t, models.MessageUser, messages[0].Type)
	assert.Equal(t, models.MessageAssistant, messages[1].Type)
	assert.Equal(t, "图片生成失败: quota exceeded", messages[1].Content)
	assert.Empty(t, messages[1].Images)
	assert.Equal(t, messages[1], *outcome.Reply)

	<-o.events
	failed := <-o.events
	assert.Equal(t, messaging.GenerationFailed, failed.Type)
	assert.Equal(t, "quota exceeded", failed.Error)

	o.Wait()
	assert.Empty(t, o.archive.images)
	assert.False(t, o.InFlight())
}

func TestGenerateFailureDetails(t *testing.T) {
	tests := []struct {
		name     string
		response client.GenerateResponse
		err      error
		content  string
		isRemote bool
	}{
		{
			name:     "NoDetail",
			response: client.GenerateResponse{Success: false},
			content:  "图片生成失败: 图片生成失败",
		},
		{
			name:     "SuccessWithoutImages",
			response: client.GenerateResponse{Success: true},
			content:  "图片生成失败: 图片生成失败",
		},
		{
			name:     "RemoteError",
			err:      &client.RemoteError{StatusCode: 404, Detail: "API配置不存在或未激活"},
			content:  "图片生成失败: API配置不存在或未激活",
			isRemote: true,
		},
		{
			name:    "TransportError",
			err:     errors.New("connection refused"),
			content: "图片生成失败: connection refused",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			o := newTestOrchestrator(t, &fakeGenerator{response: tc.response, err: tc.err}, activeConfig)

			_, err := o.Generate(context.Background(), "prompt", models.DefaultGenerationParameters(), "")
			require.ErrorIs(t, err, ErrGenerationFailed)
			assert.Equal(t, tc.isRemote, errors.Is(err, client.ErrRemote))

			messages := o.sessions.Messages()
			require.Len(t, messages, 2)
			assert.Equal(t, tc.content, messages[1].Content)
		})
	}
}

func TestGenerateSkips(t *testing.T) {
	t.Run("BlankPrompt", func(t *testing.T) {
		generator := &fakeGenerator{}
		o := newTestOrchestrator(t, generator, activeConfig)

		outcome, err := o.Generate(context.Background(), "   ", models.DefaultGenerationParameters(), "")
		require.NoError(t, err)
		assert.True(t, outcome.Skipped)
		assert.Equal(t, SkipEmptyPrompt, outcome.Reason)
		assert.Empty(t, o.sessions.Messages())
		assert.Equal(t, 0, generator.calls())
	})

	t.Run("NoConfig", func(t *testing.T) {
		generator := &fakeGenerator{}
		o := newTestOrchestrator(t, generator, nil)

		outcome, err := o.Generate(context.Background(), "a cat", models.DefaultGenerationParameters(), "")
		require.NoError(t, err)
		assert.True(t, outcome.Skipped)
		assert.Equal(t, SkipNoConfig, outcome.Reason)
		assert.Empty(t, o.sessions.Messages())
		assert.Equal(t, 0, generator.calls())
		assert.False(t, o.InFlight())
	})

	t.Run("ExplicitConfigWithoutActive", func(t *testing.T) {
		generator := &fakeGenerator{response: client.GenerateResponse{Success: true, Images: []string{"x.png"}}}
		o := newTestOrchestrator(t, generator, nil)

		outcome, err := o.Generate(context.Background(), "a cat", models.DefaultGenerationParameters(), "explicit")
		require.NoError(t, err)
		assert.False(t, outcome.Skipped)
		assert.Equal(t, "explicit", generator.requests[0].APIConfigID)
	})
}

func TestGenerateAtMostOneInFlight(t *testing.T) {
	block := make(chan struct{})
	generator := &fakeGenerator{
		response: client.GenerateResponse{Success: true, Images: []string{"x.png"}},
		block:    block,
	}
	o := newTestOrchestrator(t, generator, activeConfig)

	done := make(chan error, 1)
	go func() {
		_, err := o.Generate(context.Background(), "first", models.DefaultGenerationParameters(), "")
		done <- err
	}()

	require.Eventually(t, func() bool { return generator.calls() == 1 }, 5*time.Second, 10*time.Millisecond)
	assert.True(t, o.InFlight())

	outcome, err := o.Generate(context.Background(), "second", models.DefaultGenerationParameters(), "")
	require.NoError(t, err)
	assert.True(t, outcome.Skipped)
	assert.Equal(t, SkipInFlight, outcome.Reason)
	assert.Equal(t, 1, generator.calls())
	assert.Len(t, o.sessions.Messages(), 1)

	close(block)
	require.NoError(t, <-done)
	assert.False(t, o.InFlight())
	assert.Len(t, o.sessions.Messages(), 2)
}

func TestGeneratePassesInputImages(t *testing.T) {
	generator := &fakeGenerator{response: client.GenerateResponse{Success: true, Images: []string{"x.png"}}}
	o := newTestOrchestrator(t, generator, activeConfig)

	params := models.DefaultGenerationParameters()
	params.GenerationType = models.MultiImageFusion
	params.InputImages = []string{"a.png", "b.png"}

	_, err := o.Generate(context.Background(), "merge", params, "")
	require.NoError(t, err)

	req := generator.requests[0]
	assert.Equal(t, models.MultiImageFusion, req.GenerationType)
	assert.Equal(t, []string{"a.png", "b.png"}, req.InputImages)
	assert.Equal(t, params, req.Parameters)
}

func TestFailureRecordedWhenCallerCancels(t *testing.T) {
	path := filepath.Join(t.TempDir(), "imagechat.db")
	kv, err := storage.NewSQLiteKVStore(path)
	require.NoError(t, err)

	clock := clockwork.NewFakeClock()
	sessions := NewSessionStore(storage.NewJSONStore(kv), clock)
	sessions.Init(context.Background())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	o := NewOrchestrator(OrchestratorOptions{
		Sessions: sessions,
		Configs:  staticConfigs{cfg: activeConfig},
		Remote:   &fakeGenerator{err: context.Canceled, onCall: cancel},
		Clock:    clock,
	})

	_, err = o.Generate(ctx, "a cat", models.DefaultGenerationParameters(), "")
	require.ErrorIs(t, err, ErrGenerationFailed)
	require.Len(t, sessions.Messages(), 2)
	require.NoError(t, kv.Close())

	kv, err = storage.NewSQLiteKVStore(path)
	require.NoError(t, err)
	defer kv.Close()

	reloaded := NewSessionStore(storage.NewJSONStore(kv), clock)
	reloaded.Init(context.Background())

	messages := reloaded.Messages()
	require.Len(t, messages, 2)
	assert.Equal(t, "a cat", messages[0].Content)
	assert.Equal(t, FailurePrefix+": "+context.Canceled.Error(), messages[1].Content)
}
