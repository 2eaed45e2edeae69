package stream

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	chatHandler "github.com/zhouzirui/mindwell/backend/internal/handler/chat"
	"github.com/zhouzirui/mindwell/backend/internal/service/triage"
	"github.com/zhouzirui/mindwell/backend/pkg/utils"
)

// SSE 事件名
const (
	EventSubmitted = "submitted"
	EventTyping    = "typing"
	EventMessage   = "message"
	EventEnd       = "end"
	EventError     = "error"
)

// Handler streams one turn as Server-Sent Events.
type Handler struct {
	engine *triage.Engine
	logger zerolog.Logger
}

// New creates a new stream handler
func New(engine *triage.Engine, logger zerolog.Logger) *Handler {
	return &Handler{engine: engine, logger: logger}
}

// StatusPayload 是 typing 和 end 事件的数据。
type StatusPayload struct {
	ConversationID string `json:"conversationId"`
	Finished       bool   `json:"finished,omitempty"`
}

// ErrorPayload 是 error 事件的数据。
type ErrorPayload struct {
	ConversationID string `json:"conversationId,omitempty"`
	Error          string `json:"error"`
}

// RegisterRoutes 注册流式路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/chat/stream", h.handleStream)
}

// handleStream 提交消息并以 SSE 推送每个状态。
func (h *Handler) handleStream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		utils.RespondError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	query := r.URL.Query()
	conversationID := h.engine.ResolveConversation(query.Get("conversationId"))
	message := query.Get("message")

	started := false
	send := func(event string, data any) {
		if !started {
			utils.SetupSSEHeaders(w)
			w.WriteHeader(http.StatusOK)
			started = true
		}
		if err := utils.SendSSEEvent(w, flusher, event, data); err != nil {
			h.logger.Debug().Err(err).Str("event", event).Msg("failed to write sse event")
		}
	}

	turn, err := h.engine.SubmitWithObserver(r.Context(), conversationID, message, func(ev triage.Event) {
		switch ev.State {
		case triage.StateSubmitted:
			send(EventSubmitted, ev.Message)
		case triage.StateReplying:
			send(EventTyping, StatusPayload{ConversationID: ev.ConversationID})
		}
	})
	if err != nil {
		status, msg := chatHandler.ErrorStatus(err)
		if status == 0 {
			return
		}
		if !started {
			utils.RespondError(w, status, msg)
			return
		}
		send(EventError, ErrorPayload{ConversationID: conversationID, Error: msg})
		return
	}

	send(EventMessage, turn)
	send(EventEnd, StatusPayload{ConversationID: conversationID, Finished: true})
}
