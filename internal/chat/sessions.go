package chat

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"unicode/utf8"

	"imagechat/internal/storage"
	"imagechat/pkg/models"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
)

const (
	StorageKey   = "chatSessions"
	DefaultTitle = "新对话"

	titleLength = 30
)

var (
	ErrSessionNotFound = errors.New("chat session not found")
	ErrNoSession       = errors.New("no current chat session")
)

// SessionStore owns the conversation list and the current session. Every
// mutation persists the full list before returning.
type SessionStore struct {
	mu        sync.Mutex
	store     *storage.JSONStore
	clock     clockwork.Clock
	sessions  []models.ChatSession
	currentID string
}

func NewSessionStore(store *storage.JSONStore, clock clockwork.Clock) *SessionStore {
	return &SessionStore{store: store, clock: clock}
}

// Init restores the persisted sessions and makes the first one current. With
// nothing usable persisted it starts with a single empty session.
func (s *SessionStore) Init(ctx context.Context) {
	sessions, ok := storage.Load[[]models.ChatSession](ctx, s.store, StorageKey)

	s.mu.Lock()
	defer s.mu.Unlock()

	if ok && len(sessions) > 0 {
		s.sessions = sessions
		s.currentID = sessions[0].ID
		slog.Info("chat sessions loaded", "count", len(sessions))
		return
	}

	s.sessions = nil
	s.newSession(ctx)
}

func (s *SessionStore) CreateSession(ctx context.Context) models.ChatSession {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cloneSession(s.newSession(ctx))
}

// newSession must be called with mu held.
func (s *SessionStore) newSession(ctx context.Context) models.ChatSession {
	now := s.clock.Now().UTC()
	session := models.ChatSession{
		ID:        uuid.NewString(),
		Title:     DefaultTitle,
		Messages:  []models.Message{},
		CreatedAt: now,
		UpdatedAt: now,
	}

	s.sessions = slices.Insert(s.sessions, 0, session)
	s.currentID = session.ID
	s.persist(ctx)
	return session
}

// LoadSession makes the session with the given id current.
func (s *SessionStore) LoadSession(id string) (models.ChatSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.indexOf(id)
	if idx < 0 {
		slog.Warn("load of unknown chat session ignored", "session_id", id)
		return models.ChatSession{}, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}

	s.currentID = id
	return cloneSession(s.sessions[idx]), nil
}

func (s *SessionStore) DeleteSession(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.indexOf(id)
	if idx < 0 {
		slog.Warn("delete of unknown chat session ignored", "session_id", id)
		return fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}

	s.sessions = slices.Delete(s.sessions, idx, idx+1)

	if s.currentID == id {
		if len(s.sessions) > 0 {
			s.currentID = s.sessions[0].ID
		} else {
			s.newSession(ctx)
			return nil
		}
	}

	s.persist(ctx)
	return nil
}

// AppendMessage adds a message to the end of a session timeline, the
// current session unless msg names one. It is the only way a timeline grows.
func (s *SessionStore) AppendMessage(ctx context.Context, msg models.NewMessage) (models.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sessionID := msg.SessionID
	if sessionID == "" {
		sessionID = s.currentID
	}
	if sessionID == "" {
		return models.Message{}, ErrNoSession
	}

	idx := s.indexOf(sessionID)
	if idx < 0 {
		return models.Message{}, fmt.Errorf("%w: %s", ErrSessionNotFound, sessionID)
	}

	message := models.Message{
		ID:        uuid.NewString(),
		Type:      msg.Type,
		Content:   msg.Content,
		Images:    slices.Clone(msg.Images),
		Timestamp: s.clock.Now().UTC(),
	}
	if msg.Parameters != nil {
		params := msg.Parameters.Clone()
		message.Parameters = &params
	}

	session := &s.sessions[idx]
	if len(session.Messages) == 0 && msg.Type == models.MessageUser {
		session.Title = titleFromPrompt(msg.Content)
	}
	session.Messages = append(session.Messages, message)
	session.UpdatedAt = message.Timestamp

	s.persist(ctx)
	return cloneMessage(message), nil
}

func (s *SessionStore) Sessions() []models.ChatSession {
	s.mu.Lock()
	defer s.mu.Unlock()

	sessions := make([]models.ChatSession, 0, len(s.sessions))
	for _, session := range s.sessions {
		sessions = append(sessions, cloneSession(session))
	}
	return sessions
}

func (s *SessionStore) Current() (models.ChatSession, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.indexOf(s.currentID)
	if idx < 0 {
		return models.ChatSession{}, false
	}
	return cloneSession(s.sessions[idx]), true
}

func (s *SessionStore) Messages() []models.Message {
	current, ok := s.Current()
	if !ok {
		return []models.Message{}
	}
	return current.Messages
}

func (s *SessionStore) indexOf(id string) int {
	if id == "" {
		return -1
	}
	return slices.IndexFunc(s.sessions, func(session models.ChatSession) bool { return session.ID == id })
}

// persist saves the whole list even when ctx has been cancelled, so a turn
// whose caller went away is still recorded.
func (s *SessionStore) persist(ctx context.Context) {
	if err := s.store.Save(context.WithoutCancel(ctx), StorageKey, s.sessions); err != nil {
		slog.Error("error persisting chat sessions", "error", err)
	}
}

func titleFromPrompt(prompt string) string {
	if utf8.RuneCountInString(prompt) <= titleLength {
		return prompt
	}
	return string([]rune(prompt)[:titleLength]) + "..."
}

func cloneMessage(m models.Message) models.Message {
	m.Images = slices.Clone(m.Images)
	if m.Parameters != nil {
		params := m.Parameters.Clone()
		m.Parameters = &params
	}
	return m
}

func cloneSession(session models.ChatSession) models.ChatSession {
	messages := make([]models.Message, 0, len(session.Messages))
	for _, m := range session.Messages {
		messages = append(messages, cloneMessage(m))
	}
	session.Messages = messages
	return session
}
