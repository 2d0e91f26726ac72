package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"llmchatd/internal/manager"
	"llmchatd/internal/prompt"
	"llmchatd/pkg/types"
)

// Engine is the part of the session manager the chat service drives.
// *manager.Manager implements it.
type Engine interface {
	SelectModel(m types.Model) error
	Selected() (types.Model, bool)
	EnsureReady(ctx context.Context) error
	Generate(ctx context.Context, text string, history []types.Message) (*manager.Stream, error)
	EstimateRemainingTokens(ctx context.Context, candidate string, history []types.Message) (int, error)
	ResetConversationState(ctx context.Context) error
}

// Models resolves model ids. *registry.Registry implements it.
type Models interface {
	Get(id string) (types.Model, bool)
}

// ErrEmptyPrompt is returned by Send for blank input.
var ErrEmptyPrompt = errors.New("prompt is empty")

// Config wires a Service.
type Config struct {
	Store  Store
	Engine Engine
	Models Models
	Logger *zerolog.Logger
	// Now and NewID are overridable for tests.
	Now   func() time.Time
	NewID func() string
}

// Service manages conversations on top of the session manager. The engine
// session holds the context of one conversation at a time; switching to
// another conversation resets it.
type Service struct {
	store  Store
	engine Engine
	models Models
	log    zerolog.Logger
	now    func() time.Time
	newID  func() string

	// turnMu is held from binding the engine session to a conversation until
	// that conversation's generation has opened, so no other conversation can
	// rebind the session in between.
	turnMu sync.Mutex
	mu     sync.Mutex
	bound  string // conversation whose turns the engine session holds
}

func NewService(cfg Config) *Service {
	s := &Service{
		store:  cfg.Store,
		engine: cfg.Engine,
		models: cfg.Models,
		log:    zerolog.Nop(),
		now:    cfg.Now,
		newID:  cfg.NewID,
	}
	if cfg.Logger != nil {
		s.log = cfg.Logger.With().Str("component", "chat").Logger()
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.newID == nil {
		s.newID = uuid.NewString
	}
	return s
}

func (s *Service) timestamp() time.Time { return time.UnixMilli(s.now().UnixMilli()) }

// Create starts an empty conversation for modelID, or for the selected model
// when modelID is empty. A blank title gets an automatic one that is replaced
// by the first user message.
func (s *Service) Create(ctx context.Context, modelID, title string) (types.Conversation, error) {
	if modelID == "" {
		sel, ok := s.engine.Selected()
		if !ok {
			return types.Conversation{}, manager.ErrModelNotFound("(unspecified)")
		}
		modelID = sel.ID
	}
	if _, ok := s.models.Get(modelID); !ok {
		return types.Conversation{}, manager.ErrModelNotFound(modelID)
	}
	now := s.timestamp()
	if strings.TrimSpace(title) == "" {
		title = autoTitle(modelID, now)
	}
	c := types.Conversation{ID: s.newID(), Title: title, CreatedAt: now, ModelID: modelID}
	if err := s.store.Create(ctx, c); err != nil {
		return types.Conversation{}, err
	}
	s.log.Info().Str("chat", c.ID).Str("model", modelID).Msg("chat event=create")
	return c, nil
}

// List returns conversation summaries, most recently active first.
func (s *Service) List(ctx context.Context) ([]types.ChatSummary, error) {
	convs, err := s.store.List(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]types.ChatSummary, 0, len(convs))
	for _, c := range convs {
		out = append(out, types.ChatSummary{
			ID:           c.ID,
			Title:        c.Title,
			ModelID:      c.ModelID,
			Preview:      c.Preview(),
			LastActivity: c.LastActivity().UnixMilli(),
		})
	}
	return out, nil
}

func (s *Service) Get(ctx context.Context, id string) (types.Conversation, error) {
	return s.store.Get(ctx, id)
}

func (s *Service) Rename(ctx context.Context, id, title string) error {
	title = strings.TrimSpace(title)
	if title == "" {
		return errors.New("title is empty")
	}
	return s.store.Rename(ctx, id, title)
}

func (s *Service) Delete(ctx context.Context, id string) error {
	if err := s.store.Delete(ctx, id); err != nil {
		return err
	}
	s.unbind(id)
	return nil
}

func (s *Service) DeleteAll(ctx context.Context) error {
	if err := s.store.DeleteAll(ctx); err != nil {
		return err
	}
	s.unbind("")
	return nil
}

// unbind forgets the bound conversation if it is id, or always when id is
// empty.
func (s *Service) unbind(id string) {
	s.mu.Lock()
	if id == "" || s.bound == id {
		s.bound = ""
	}
	s.mu.Unlock()
}

// Clear empties the history of a conversation and resets the engine
// session when it holds that conversation.
func (s *Service) Clear(ctx context.Context, id string) error {
	c, err := s.store.Get(ctx, id)
	if err != nil {
		return err
	}
	c.Messages = nil
	if err := s.store.Save(ctx, c); err != nil {
		return err
	}
	s.turnMu.Lock()
	defer s.turnMu.Unlock()
	s.mu.Lock()
	bound := s.bound == id
	s.mu.Unlock()
	if !bound {
		return nil
	}
	if err := s.engine.ResetConversationState(ctx); err != nil && !manager.IsNotReady(err) {
		return fmt.Errorf("reset session: %w", err)
	}
	s.log.Info().Str("chat", id).Msg("chat event=clear")
	return nil
}

// prepare makes the engine ready for conversation c: selects and loads its
// model and resets the session when it holds another conversation. Caller
// holds turnMu.
func (s *Service) prepare(ctx context.Context, c types.Conversation) error {
	mdl, ok := s.models.Get(c.ModelID)
	if !ok {
		return manager.ErrModelNotFound(c.ModelID)
	}
	if err := s.engine.SelectModel(mdl); err != nil {
		return err
	}
	if err := s.engine.EnsureReady(ctx); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.bound == c.ID {
		return nil
	}
	if err := s.engine.ResetConversationState(ctx); err != nil {
		return fmt.Errorf("reset session: %w", err)
	}
	s.bound = c.ID
	return nil
}

// open binds the engine session to c and starts its generation.
func (s *Service) open(ctx context.Context, c types.Conversation, text string, history []types.Message) (*manager.Stream, error) {
	s.turnMu.Lock()
	defer s.turnMu.Unlock()
	if err := s.prepare(ctx, c); err != nil {
		return nil, err
	}
	return s.engine.Generate(ctx, text, history)
}

// Send appends the user text to conversation id, streams the reply through
// onDelta and persists the result. On a generation failure the partial reply
// is saved with its error and the returned error is a
// *manager.GenerationError. The conversation is saved even if ctx is
// cancelled mid-stream.
func (s *Service) Send(ctx context.Context, id, text string, onDelta func(manager.Delta)) (types.Conversation, error) {
	if strings.TrimSpace(text) == "" {
		return types.Conversation{}, ErrEmptyPrompt
	}
	c, err := s.store.Get(ctx, id)
	if err != nil {
		return types.Conversation{}, err
	}
	history := settled(c.Messages)
	stream, err := s.open(ctx, c, text, history)
	if err != nil {
		return c, err
	}
	mdl, _ := s.models.Get(c.ModelID)
	user := types.Message{ID: s.newID(), Text: text, Role: types.RoleUser, Timestamp: s.now().UnixMilli()}
	tr := NewTranscript(prompt.For(mdl), s.now, s.newID)
	for d := range stream.Events() {
		tr.Apply(d)
		if onDelta != nil {
			onDelta(d)
		}
	}
	genErr := stream.Wait()
	tr.Finish(genErr)

	c.Messages = append(append(c.Messages, user), tr.Messages()...)
	c.Title = retitle(c)
	if err := s.store.Save(context.WithoutCancel(ctx), c); err != nil {
		return c, fmt.Errorf("save conversation: %w", err)
	}
	ev := s.log.Info()
	if genErr != nil {
		ev = s.log.Warn().Err(genErr)
	}
	ev.Str("chat", c.ID).Int("messages", len(c.Messages)).Msg("chat event=send")
	return c, genErr
}

// Estimate reports the remaining context budget if draft were sent next in
// conversation id. It needs the conversation's model to be loaded.
func (s *Service) Estimate(ctx context.Context, id, draft string) (int, error) {
	c, err := s.store.Get(ctx, id)
	if err != nil {
		return 0, err
	}
	if sel, ok := s.engine.Selected(); !ok || sel.ID != c.ModelID {
		return 0, &manager.NotReadyError{State: manager.StateUnloaded, Reason: "conversation model is not selected"}
	}
	return s.engine.EstimateRemainingTokens(ctx, draft, settled(c.Messages))
}

// settled drops messages that are still loading or failed.
func settled(msgs []types.Message) []types.Message {
	out := make([]types.Message, 0, len(msgs))
	for _, m := range msgs {
		if m.Loading || m.Error != "" {
			continue
		}
		out = append(out, m)
	}
	return out
}
