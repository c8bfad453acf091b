package chat

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"

	"imagechat/internal/client"
	"imagechat/internal/messaging"
	"imagechat/pkg/models"

	"github.com/jonboulle/clockwork"
)

const (
	SuccessContent = "图片生成完成"
	FailurePrefix  = "图片生成失败"
)

var (
	ErrNoActiveConfig   = errors.New("no api config available")
	ErrGenerationFailed = errors.New("image generation failed")
)

type SkipReason string

const (
	SkipEmptyPrompt SkipReason = "empty_prompt"
	SkipInFlight    SkipReason = "generation_in_progress"
	SkipNoConfig    SkipReason = "no_active_config"
)

type Generator interface {
	Generate(ctx context.Context, req client.GenerateRequest) (client.GenerateResponse, error)
}

type ActiveConfigSource interface {
	GetActive() (models.ApiConfig, bool)
}

type ImageArchiver interface {
	Archive(ctx context.Context, sessionID, messageID string, images []string) error
}

// Outcome describes what one Generate call did. A skipped call appended
// nothing and made no remote call.
type Outcome struct {
	Skipped     bool            `json:"skipped"`
	Reason      SkipReason      `json:"reason,omitempty"`
	SessionID   string          `json:"session_id,omitempty"`
	UserMessage *models.Message `json:"user_message,omitempty"`
	Reply       *models.Message `json:"reply,omitempty"`
}

func skipped(reason SkipReason) Outcome {
	return Outcome{Skipped: true, Reason: reason}
}

// Orchestrator runs one generation turn at a time against the remote service.
type Orchestrator struct {
	sessions  *SessionStore
	configs   ActiveConfigSource
	remote    Generator
	publisher messaging.Publisher
	archive   ImageArchiver
	clock     clockwork.Clock

	inFlight atomic.Bool
	archives sync.WaitGroup

	// ctx bounds background archive uploads; Close cancels it.
	ctx       context.Context
	cancel    context.CancelFunc
	closeOnce sync.Once
}

type OrchestratorOptions struct {
	Sessions  *SessionStore
	Configs   ActiveConfigSource
	Remote    Generator
	Publisher messaging.Publisher
	// Archive is optional.
	Archive ImageArchiver
	Clock   clockwork.Clock
}

func NewOrchestrator(opts OrchestratorOptions) *Orchestrator {
	clock := opts.Clock
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Orchestrator{
		ctx:       ctx,
		cancel:    cancel,
		sessions:  opts.Sessions,
		configs:   opts.Configs,
		remote:    opts.Remote,
		publisher: opts.Publisher,
		archive:   opts.Archive,
		clock:     clock,
	}
}

func (o *Orchestrator) InFlight() bool {
	return o.inFlight.Load()
}

// Generate records the prompt as a user message, calls the service and
// records the result as an assistant message. Calls with a blank prompt,
// while another generation is running, or without any config are skipped.
// A failed generation is recorded and then returned as ErrGenerationFailed.
func (o *Orchestrator) Generate(ctx context.Context, prompt string, params models.GenerationParameters, configID string) (Outcome, error) {
	if strings.TrimSpace(prompt) == "" {
		return skipped(SkipEmptyPrompt), nil
	}

	if !o.inFlight.CompareAndSwap(false, true) {
		slog.Info("generation already in progress, ignoring request")
		return skipped(SkipInFlight), nil
	}
	defer o.inFlight.Store(false)

	if configID == "" {
		active, ok := o.configs.GetActive()
		if !ok {
			slog.Warn("generation skipped", "error", ErrNoActiveConfig)
			return skipped(SkipNoConfig), nil
		}
		configID = active.ID
	}

	current, ok := o.sessions.Current()
	if !ok {
		return Outcome{}, ErrNoSession
	}

	params = params.Clone()
	userMsg, err := o.sessions.AppendMessage(ctx, models.NewMessage{
		SessionID:  current.ID,
		Type:       models.MessageUser,
		Content:    prompt,
		Parameters: &params,
	})
	if err != nil {
		return Outcome{}, fmt.Errorf("error recording prompt: %w", err)
	}

	outcome := Outcome{SessionID: current.ID, UserMessage: &userMsg}

	genType := params.GenerationType
	if genType == "" {
		genType = models.TextToImage
	}

	o.publish(ctx, messaging.GenerationEvent{
		Type:           messaging.GenerationStarted,
		SessionID:      outcome.SessionID,
		MessageID:      userMsg.ID,
		ConfigID:       configID,
		Prompt:         prompt,
		GenerationType: genType,
	})

	res, callErr := o.remote.Generate(ctx, client.GenerateRequest{
		Prompt:         prompt,
		Parameters:     params,
		APIConfigID:    configID,
		GenerationType: genType,
		InputImages:    params.InputImages,
	})

	if callErr == nil && res.Success && len(res.Images) > 0 {
		reply, err := o.sessions.AppendMessage(ctx, models.NewMessage{
			SessionID: outcome.SessionID,
			Type:      models.MessageAssistant,
			Content:   SuccessContent,
			Images:    res.Images,
		})
		if err != nil {
			slog.Error("error recording generation result", "session_id", outcome.SessionID, "error", err)
		} else {
			outcome.Reply = &reply
			o.archiveImages(ctx, outcome.SessionID, reply.ID, reply.Images)
		}

		o.publish(ctx, messaging.GenerationEvent{
			Type:           messaging.GenerationCompleted,
			SessionID:      outcome.SessionID,
			MessageID:      reply.ID,
			ConfigID:       configID,
			Prompt:         prompt,
			GenerationType: genType,
			Images:         res.Images,
		})

		slog.Info("image generation completed", "session_id", outcome.SessionID, "images", len(res.Images))
		return outcome, nil
	}

	detail := failureDetail(res, callErr)
	reply, err := o.sessions.AppendMessage(ctx, models.NewMessage{
		SessionID: outcome.SessionID,
		Type:      models.MessageAssistant,
		Content:   FailurePrefix + ": " + detail,
	})
	if err != nil {
		slog.Error("error recording generation failure", "session_id", outcome.SessionID, "error", err)
	} else {
		outcome.Reply = &reply
	}

	o.publish(ctx, messaging.GenerationEvent{
		Type:           messaging.GenerationFailed,
		SessionID:      outcome.SessionID,
		MessageID:      reply.ID,
		ConfigID:       configID,
		Prompt:         prompt,
		GenerationType: genType,
		Error:          detail,
	})

	slog.Error("image generation failed", "session_id", outcome.SessionID, "detail", detail, "error", callErr)

	if callErr != nil {
		return outcome, fmt.Errorf("%w: %w", ErrGenerationFailed, callErr)
	}
	return outcome, fmt.Errorf("%w: %s", ErrGenerationFailed, detail)
}

// failureDetail is the reason shown to the user after a failed call.
func failureDetail(res client.GenerateResponse, err error) string {
	var detail string
	if err != nil {
		detail = err.Error()
	} else {
		detail = res.Error
	}
	if strings.TrimSpace(detail) == "" {
		return FailurePrefix
	}
	return detail
}

func (o *Orchestrator) publish(ctx context.Context, event messaging.GenerationEvent) {
	if o.publisher == nil {
		return
	}
	event.Timestamp = o.clock.Now().UTC()
	if err := o.publisher.PublishGenerationEvent(ctx, event); err != nil {
		slog.Warn("error publishing generation event", "type", event.Type, "error", err)
	}
}

func (o *Orchestrator) archiveImages(ctx context.Context, sessionID, messageID string, images []string) {
	if o.archive == nil {
		return
	}

	// Uploads outlive the request but not the orchestrator.
	ctx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	stop := context.AfterFunc(o.ctx, cancel)
	o.archives.Add(1)
	go func() {
		defer o.archives.Done()
		defer cancel()
		defer stop()
		if err := o.archive.Archive(ctx, sessionID, messageID, images); err != nil {
			slog.Warn("error archiving generated images", "session_id", sessionID, "message_id", messageID, "error", err)
		}
	}()
}

// Wait blocks until background archive uploads have finished.
func (o *Orchestrator) Wait() {
	o.archives.Wait()
}

// Close cancels any archive uploads still running and waits for them to
// return. It is safe to call more than once.
func (o *Orchestrator) Close() {
	o.closeOnce.Do(o.cancel)
	o.archives.Wait()
}
