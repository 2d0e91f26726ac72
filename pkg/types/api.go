package types

// ModelsResponse wraps the catalog returned by GET /models.
type ModelsResponse struct {
	// Catalog entries.
	Models []Model `json:"models"`
	// Currently selected model id, if any.
	// example: gemma3-cpu
	Selected string `json:"selected,omitempty" example:"gemma3-cpu"`
}

// SelectRequest is the body of POST /select.
type SelectRequest struct {
	// Catalog id to select.
	// example: deepseek-r1-cpu
	Model string `json:"model" example:"deepseek-r1-cpu"`
}

// SwitchResponse is returned by POST /switch.
type SwitchResponse struct {
	// Operation id reported in switch_done/switch_error events.
	// example: op-1
	Op string `json:"op" example:"op-1"`
}

// CreateChatRequest is the body of POST /chats.
type CreateChatRequest struct {
	// Model the conversation is bound to; defaults to the selected model.
	Model string `json:"model,omitempty" example:"gemma3-cpu"`
	// Optional initial title.
	Title string `json:"title,omitempty" example:"Trip planning"`
}

// RenameChatRequest is the body of PATCH /chats/{id}.
type RenameChatRequest struct {
	// New title.
	// example: Weekend plans
	Title string `json:"title" example:"Weekend plans"`
}

// SendRequest is the body of POST /chats/{id}/messages.
type SendRequest struct {
	// User utterance.
	// example: What is 2+2?
	Prompt string `json:"prompt" example:"What is 2+2?"`
}

// EstimateRequest is the body of POST /chats/{id}/estimate.
type EstimateRequest struct {
	// Draft text the user is typing; may be empty.
	Text string `json:"text" example:"and what about 3+3?"`
}

// EstimateResponse reports the remaining token budget. -1 means unknown.
type EstimateResponse struct {
	// example: 812
	Remaining int `json:"remaining" example:"812"`
}

// ChatSummary is one row of GET /chats.
type ChatSummary struct {
	ID      string `json:"id"`
	Title   string `json:"title"`
	ModelID string `json:"model_id"`
	Preview string `json:"preview"`
	// Unix milliseconds of the newest message.
	LastActivity int64 `json:"last_activity_ms"`
}

// ChatsResponse wraps GET /chats.
type ChatsResponse struct {
	Chats []ChatSummary `json:"chats"`
}

// StreamLine is one NDJSON line of a streamed response.
type StreamLine struct {
	// Visible text appended by this delta.
	Delta string `json:"delta,omitempty"`
	// Thinking state transitions completed by this delta.
	Transitions []Transition `json:"transitions,omitempty"`
	// Set on the final line.
	Done bool `json:"done,omitempty"`
	// Final messages of the conversation, on the last line.
	Messages []Message `json:"messages,omitempty"`
	// Terminal error, if generation failed.
	Error string `json:"error,omitempty"`
}

// ErrorResponse is a consistent JSON error payload.
type ErrorResponse struct {
	// Error message.
	// example: invalid JSON body
	Error string `json:"error" example:"invalid JSON body"`
	// HTTP status code.
	// example: 400
	Code int `json:"code" example:"400"`
}

// StatusResponse is returned by GET /status.
type StatusResponse struct {
	// Lifecycle state: unloaded, loading, ready or error.
	// example: ready
	State string `json:"state" example:"ready"`
	// Selected model id.
	// example: gemma3-cpu
	Selected string `json:"selected,omitempty" example:"gemma3-cpu"`
	// Model currently loaded in the engine.
	// example: gemma3-cpu
	Loaded string `json:"loaded,omitempty" example:"gemma3-cpu"`
	// Weights path of the loaded model.
	LoadedPath string `json:"loaded_path,omitempty"`
	// Whether a generation is streaming right now.
	Generating bool `json:"generating"`
	// Last load/session error.
	Error string `json:"error,omitempty"`
	// Uptime of the server in seconds.
	// example: 3600
	UptimeSeconds int64 `json:"uptime_seconds" example:"3600"`
	// Total number of engine loads.
	// example: 2
	LoadsTotal uint64 `json:"loads_total" example:"2"`
	// Total number of engine closes.
	// example: 1
	ClosesTotal uint64 `json:"closes_total" example:"1"`
	// Total number of session resets.
	ResetsTotal uint64 `json:"resets_total"`
}
