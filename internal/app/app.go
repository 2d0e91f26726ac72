// Package app assembles the daemon from configuration: model catalog, file
// provider, session manager, conversation store and chat service. The HTTP
// layer and the terminal client both talk to an *App.
package app

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/rs/zerolog"

	"llmchatd/internal/chat"
	"llmchatd/internal/config"
	"llmchatd/internal/llm"
	"llmchatd/internal/manager"
	"llmchatd/internal/registry"
	"llmchatd/pkg/types"
)

// Options controls how New builds an App.
type Options struct {
	Config config.Config
	Logger *zerolog.Logger
	// Runtime overrides the inference runtime; nil uses the go-llama.cpp one.
	Runtime llm.Runtime
	// Store overrides the conversation store; nil opens Config.DBPath.
	Store chat.Store
}

// App is the assembled daemon.
type App struct {
	Models  *registry.Registry
	Files   registry.FileProvider
	Manager *manager.Manager
	Chats   *chat.Service

	store chat.Store
	log   zerolog.Logger
}

// New builds an App. The configured default model is selected but not
// loaded.
func New(ctx context.Context, opts Options) (*App, error) {
	cfg, err := opts.Config.ApplyDefaults()
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	log := zerolog.Nop()
	if opts.Logger != nil {
		log = *opts.Logger
	}

	sources := [][]types.Model{registry.Builtin(cfg.ModelsDir)}
	found, err := registry.LoadDir(cfg.ModelsDir)
	switch {
	case err == nil:
		sources = append(sources, found)
	case errors.Is(err, os.ErrNotExist):
		log.Debug().Str("dir", cfg.ModelsDir).Msg("app event=models_dir_missing")
	default:
		return nil, fmt.Errorf("scan models dir: %w", err)
	}
	if cfg.CatalogFile != "" {
		extra, err := registry.LoadFile(cfg.CatalogFile)
		if err != nil {
			return nil, fmt.Errorf("catalog file: %w", err)
		}
		sources = append(sources, extra)
	}
	reg := registry.New(sources...)
	files := registry.FileProvider{DownloadDir: cfg.DownloadDir}

	mcfg := manager.ManagerConfig{
		Runtime:   opts.Runtime,
		Files:     files,
		Threads:   cfg.Threads,
		GPULayers: cfg.GPULayers,
		Logger:    &log,
	}
	if mdl, ok := reg.Get(cfg.DefaultModel); ok {
		mcfg.Model = &mdl
	} else if cfg.DefaultModel != "" {
		log.Warn().Str("model", cfg.DefaultModel).Msg("app event=default_model_unknown")
	}
	mgr := manager.NewWithConfig(mcfg)

	store := opts.Store
	if store == nil {
		s, err := chat.OpenSQLite(ctx, cfg.DBPath)
		if err != nil {
			mgr.Shutdown()
			return nil, err
		}
		store = s
	}

	a := &App{
		Models:  reg,
		Files:   files,
		Manager: mgr,
		store:   store,
		log:     log,
	}
	a.Chats = chat.NewService(chat.Config{Store: store, Engine: mgr, Models: reg, Logger: &log})
	log.Info().Int("models", reg.Len()).Str("db", cfg.DBPath).Msg("app event=ready")
	return a, nil
}

// Close shuts the manager down and closes the store.
func (a *App) Close() error {
	a.Manager.Shutdown()
	return a.store.Close()
}

func (a *App) ListModels() []types.Model { return a.Models.List() }

// SelectedModel returns the selected model id, or "".
func (a *App) SelectedModel() string {
	if m, ok := a.Manager.Selected(); ok {
		return m.ID
	}
	return ""
}

func (a *App) lookup(id string) (types.Model, error) {
	m, ok := a.Models.Get(id)
	if !ok {
		return types.Model{}, manager.ErrModelNotFound(id)
	}
	return m, nil
}

// Select makes id the model loaded by the next Ensure.
func (a *App) Select(id string) error {
	m, err := a.lookup(id)
	if err != nil {
		return err
	}
	return a.Manager.SelectModel(m)
}

// Switch selects id and loads it in the background.
func (a *App) Switch(ctx context.Context, id string) (string, error) {
	m, err := a.lookup(id)
	if err != nil {
		return "", err
	}
	return a.Manager.Switch(ctx, m)
}

func (a *App) Ensure(ctx context.Context) error { return a.Manager.EnsureReady(ctx) }
func (a *App) Unload(ctx context.Context) error { return a.Manager.Unload(ctx) }
func (a *App) Status() types.StatusResponse    { return a.Manager.Status() }
func (a *App) Ready() bool                      { return a.Manager.Ready() }

// DeleteModelFile removes the downloaded weights of model id.
func (a *App) DeleteModelFile(id string) error {
	m, err := a.lookup(id)
	if err != nil {
		return err
	}
	if sel, ok := a.Manager.Selected(); ok && sel.ID == id {
		if err := a.Manager.Unload(context.Background()); err != nil {
			return err
		}
	}
	return a.Files.Delete(m)
}

func (a *App) ListChats(ctx context.Context) ([]types.ChatSummary, error) {
	return a.Chats.List(ctx)
}

func (a *App) CreateChat(ctx context.Context, modelID, title string) (types.Conversation, error) {
	return a.Chats.Create(ctx, modelID, title)
}

func (a *App) GetChat(ctx context.Context, id string) (types.Conversation, error) {
	return a.Chats.Get(ctx, id)
}

func (a *App) DeleteChat(ctx context.Context, id string) error { return a.Chats.Delete(ctx, id) }
func (a *App) DeleteAllChats(ctx context.Context) error         { return a.Chats.DeleteAll(ctx) }

func (a *App) RenameChat(ctx context.Context, id, title string) error {
	return a.Chats.Rename(ctx, id, title)
}

func (a *App) Send(ctx context.Context, id, text string, onDelta func(manager.Delta)) (types.Conversation, error) {
	return a.Chats.Send(ctx, id, text, onDelta)
}

func (a *App) Estimate(ctx context.Context, id, draft string) (int, error) {
	return a.Chats.Estimate(ctx, id, draft)
}

func (a *App) ResetChat(ctx context.Context, id string) error { return a.Chats.Clear(ctx, id) }
