// Package httpapi exposes the chat daemon over HTTP using chi. Replies to
// chat messages are streamed as NDJSON.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"llmchatd/internal/manager"
	"llmchatd/pkg/types"
)

// Service defines the methods required by the HTTP API layer.
// *app.App implements it.
type Service interface {
	ListModels() []types.Model
	SelectedModel() string
	Select(id string) error
	Switch(ctx context.Context, id string) (string, error)
	Ensure(ctx context.Context) error
	Unload(ctx context.Context) error
	Status() types.StatusResponse
	Ready() bool

	ListChats(ctx context.Context) ([]types.ChatSummary, error)
	CreateChat(ctx context.Context, modelID, title string) (types.Conversation, error)
	GetChat(ctx context.Context, id string) (types.Conversation, error)
	DeleteChat(ctx context.Context, id string) error
	DeleteAllChats(ctx context.Context) error
	RenameChat(ctx context.Context, id, title string) error
	Send(ctx context.Context, id, text string, onDelta func(manager.Delta)) (types.Conversation, error)
	Estimate(ctx context.Context, id, draft string) (int, error)
	ResetChat(ctx context.Context, id string) error
}

func NewMux(svc Service) http.Handler {
	r := chi.NewRouter()
	// Basic middlewares: request id, real ip, recoverer
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(MetricsMiddleware)
	if corsEnabled {
		r.Use(cors.Handler(corsOptions()))
	}
	// Security headers
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("X-Content-Type-Options", "nosniff")
			next.ServeHTTP(w, r)
		})
	})

	h := &handlers{svc: svc}
	r.Get("/models", h.listModels)
	r.Get("/status", h.status)
	r.Post("/select", h.selectModel)
	r.Post("/switch", h.switchModel)
	r.Post("/ensure", h.ensure)
	r.Post("/unload", h.unload)

	r.Route("/chats", func(r chi.Router) {
		r.Get("/", h.listChats)
		r.Post("/", h.createChat)
		r.Delete("/", h.deleteAllChats)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", h.getChat)
			r.Delete("/", h.deleteChat)
			r.Patch("/", h.renameChat)
			r.Post("/messages", h.send)
			r.Post("/estimate", h.estimate)
			r.Post("/reset", h.resetChat)
		})
	})

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	r.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		if svc.Ready() {
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte("ready"))
			return
		}
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte(svc.Status().State))
	})

	// Prometheus metrics endpoint
	r.Get("/metrics", promhttp.Handler().ServeHTTP)

	MountSwagger(r)
	return r
}

func corsOptions() cors.Options {
	opts := cors.Options{
		AllowedOrigins: corsAllowedOrigins,
		AllowedMethods: corsAllowedMethods,
		AllowedHeaders: corsAllowedHeaders,
		ExposedHeaders: []string{"X-Request-Id"},
		MaxAge:         300,
	}
	if len(opts.AllowedOrigins) == 0 {
		opts.AllowedOrigins = []string{"*"}
	}
	if len(opts.AllowedMethods) == 0 {
		opts.AllowedMethods = []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete, http.MethodOptions}
	}
	if len(opts.AllowedHeaders) == 0 {
		opts.AllowedHeaders = []string{"Accept", "Content-Type", "X-Log-Level", "X-Request-Id"}
	}
	return opts
}

type handlers struct {
	svc Service
}

// decodeJSON enforces the JSON content type and the body limit. An empty
// body leaves v untouched when allowEmpty is set.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any, allowEmpty bool) bool {
	ct := r.Header.Get("Content-Type")
	if r.ContentLength == 0 && allowEmpty {
		return true
	}
	if ct == "" || !strings.HasPrefix(strings.ToLower(ct), "application/json") {
		writeJSONError(w, http.StatusUnsupportedMediaType, "Content-Type must be application/json")
		return false
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		if errors.Is(err, io.EOF) && allowEmpty {
			return true
		}
		// If exceeded size, MaxBytesReader may cause an error; still return 400 to avoid size leak details
		writeJSONError(w, http.StatusBadRequest, "invalid JSON body")
		return false
	}
	return true
}

func (h *handlers) listModels(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, types.ModelsResponse{Models: h.svc.ListModels(), Selected: h.svc.SelectedModel()})
}

func (h *handlers) status(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.svc.Status())
}

func (h *handlers) selectModel(w http.ResponseWriter, r *http.Request) {
	var req types.SelectRequest
	if !decodeJSON(w, r, &req, false) {
		return
	}
	if strings.TrimSpace(req.Model) == "" {
		writeJSONError(w, http.StatusBadRequest, "model is required")
		return
	}
	if err := h.svc.Select(req.Model); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, h.svc.Status())
}

func (h *handlers) switchModel(w http.ResponseWriter, r *http.Request) {
	var req types.SelectRequest
	if !decodeJSON(w, r, &req, false) {
		return
	}
	if strings.TrimSpace(req.Model) == "" {
		writeJSONError(w, http.StatusBadRequest, "model is required")
		return
	}
	op, err := h.svc.Switch(r.Context(), req.Model)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, types.SwitchResponse{Op: op})
}

func (h *handlers) ensure(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := requestContext(r.Context())
	defer cancel()
	if err := h.svc.Ensure(ctx); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, h.svc.Status())
}

func (h *handlers) unload(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Unload(r.Context()); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, h.svc.Status())
}

func (h *handlers) listChats(w http.ResponseWriter, r *http.Request) {
	chats, err := h.svc.ListChats(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, types.ChatsResponse{Chats: chats})
}

func (h *handlers) createChat(w http.ResponseWriter, r *http.Request) {
	var req types.CreateChatRequest
	if !decodeJSON(w, r, &req, true) {
		return
	}
	c, err := h.svc.CreateChat(r.Context(), req.Model, req.Title)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, c)
}

func (h *handlers) deleteAllChats(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.DeleteAllChats(r.Context()); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *handlers) getChat(w http.ResponseWriter, r *http.Request) {
	c, err := h.svc.GetChat(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (h *handlers) deleteChat(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.DeleteChat(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *handlers) renameChat(w http.ResponseWriter, r *http.Request) {
	var req types.RenameChatRequest
	if !decodeJSON(w, r, &req, false) {
		return
	}
	if strings.TrimSpace(req.Title) == "" {
		writeJSONError(w, http.StatusBadRequest, "title is required")
		return
	}
	id := chi.URLParam(r, "id")
	if err := h.svc.RenameChat(r.Context(), id, req.Title); err != nil {
		writeError(w, err)
		return
	}
	c, err := h.svc.GetChat(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (h *handlers) estimate(w http.ResponseWriter, r *http.Request) {
	var req types.EstimateRequest
	if !decodeJSON(w, r, &req, true) {
		return
	}
	n, err := h.svc.Estimate(r.Context(), chi.URLParam(r, "id"), req.Text)
	if err != nil {
		if statusFor(err) == http.StatusNotFound {
			writeError(w, err)
			return
		}
		// Unknown budget is reported, not failed.
		n = -1
	}
	writeJSON(w, http.StatusOK, types.EstimateResponse{Remaining: n})
}

func (h *handlers) resetChat(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.svc.ResetChat(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}
	c, err := h.svc.GetChat(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

// send streams the reply to a chat message as NDJSON. Errors before the
// first delta get a regular JSON error response; afterwards they are
// reported on the final line.
func (h *handlers) send(w http.ResponseWriter, r *http.Request) {
	var req types.SendRequest
	if !decodeJSON(w, r, &req, false) {
		return
	}
	if strings.TrimSpace(req.Prompt) == "" {
		writeJSONError(w, http.StatusBadRequest, "prompt is required")
		return
	}
	id := chi.URLParam(r, "id")
	lvl := requestLogLevel(r)
	start := time.Now()
	if ev := requestEvent(r, lvl, LevelInfo); ev != nil {
		ev.Str("chat", id).Msg("http event=send_start")
	}

	out := &ndjsonWriter{w: w}
	if lvl >= LevelDebug {
		out.tee = &loggingLineWriter{rid: middleware.GetReqID(r.Context())}
	}
	ctx, cancel := requestContext(r.Context())
	defer cancel()
	conv, err := h.svc.Send(ctx, id, req.Prompt, func(d manager.Delta) {
		if d.Err != nil || (d.Text == "" && len(d.Transitions) == 0) {
			return
		}
		out.line(types.StreamLine{Delta: d.Text, Transitions: d.Transitions}, "delta")
	})

	status := http.StatusOK
	switch {
	case err != nil && !out.started():
		if r.Context().Err() != nil {
			return
		}
		status = statusFor(err)
		writeError(w, err)
	case err != nil:
		out.line(types.StreamLine{Error: err.Error(), Messages: conv.Messages}, "error")
	default:
		out.line(types.StreamLine{Done: true, Messages: conv.Messages}, "done")
	}
	if ev := requestEvent(r, lvl, LevelInfo); ev != nil {
		if err != nil {
			ev = ev.Err(err)
		}
		ev.Int("status", status).Dur("dur", time.Since(start)).Msg("http event=send_end")
	}
}

// ndjsonWriter writes one JSON value per line and flushes after each. The
// header is written lazily with the first line.
type ndjsonWriter struct {
	mu    sync.Mutex
	w     http.ResponseWriter
	tee   io.Writer
	wrote bool
}

func (n *ndjsonWriter) started() bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.wrote
}

func (n *ndjsonWriter) line(v types.StreamLine, kind string) {
	b, err := json.Marshal(v)
	if err != nil {
		zlog.Error().Err(err).Msg("http event=encode_failed")
		return
	}
	b = append(b, '\n')
	n.mu.Lock()
	defer n.mu.Unlock()
	if !n.wrote {
		n.w.Header().Set("Content-Type", "application/x-ndjson")
		n.w.WriteHeader(http.StatusOK)
		n.wrote = true
	}
	if _, err := n.w.Write(b); err != nil {
		return
	}
	if n.tee != nil {
		_, _ = n.tee.Write(b)
	}
	if f, ok := n.w.(http.Flusher); ok {
		f.Flush()
	}
	streamLinesTotal.WithLabelValues(kind).Inc()
}
