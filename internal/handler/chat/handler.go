package chat

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/zhouzirui/mindwell/backend/internal/model/chat"
	"github.com/zhouzirui/mindwell/backend/internal/model/resource"
	"github.com/zhouzirui/mindwell/backend/internal/service/reply"
	"github.com/zhouzirui/mindwell/backend/internal/service/triage"
	"github.com/zhouzirui/mindwell/backend/internal/store"
	"github.com/zhouzirui/mindwell/backend/pkg/utils"
)

// maxBodyBytes 限制单条消息请求体大小。
const maxBodyBytes = 16 << 10

// Handler 聊天服务的HTTP处理器
type Handler struct {
	engine *triage.Engine
	logger zerolog.Logger
	now    func() time.Time
}

// New 创建聊天处理器
func New(engine *triage.Engine, logger zerolog.Logger) *Handler {
	return &Handler{
		engine: engine,
		logger: logger,
		now:    time.Now,
	}
}

// RegisterRoutes 注册聊天相关的路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/chat", h.handleSubmit)
	r.Get("/chat", h.handleHistory)
	r.Options("/chat", h.handlePreflight)
	r.Post("/conversations", h.handleCreateConversation)
}

type submitRequest struct {
	Message        string `json:"message"`
	ConversationID string `json:"conversationId"`
}

// HistoryMessage decorates crisis replies with the resource table at read time.
type HistoryMessage struct {
	chat.Message
	Resources []resource.CrisisResource `json:"resources,omitempty"`
}

// HistoryResponse 是 GET /chat 的响应体。
type HistoryResponse struct {
	ConversationID string           `json:"conversationId"`
	Messages       []HistoryMessage `json:"messages"`
	StartedAt      *time.Time       `json:"startedAt,omitempty"`
	Greeting       string           `json:"greeting"`
}

// ConversationResponse 是 POST /conversations 的响应体。
type ConversationResponse struct {
	chat.Conversation
	Greeting string `json:"greeting"`
}

// handleSubmit 提交一条消息并返回系统回复
func (h *Handler) handleSubmit(w http.ResponseWriter, r *http.Request) {
	var payload submitRequest
	if err := utils.DecodeJSON(w, r, maxBodyBytes, &payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	turn, err := h.engine.Submit(r.Context(), payload.ConversationID, payload.Message)
	if err != nil {
		h.respondTurnError(w, r, err)
		return
	}

	utils.RespondJSON(w, http.StatusOK, turn)
}

// handleHistory 返回会话历史
func (h *Handler) handleHistory(w http.ResponseWriter, r *http.Request) {
	conversationID := h.engine.ResolveConversation(r.URL.Query().Get("conversationId"))

	messages, err := h.engine.History(r.Context(), conversationID)
	if err != nil {
		h.respondTurnError(w, r, err)
		return
	}

	utils.RespondJSON(w, http.StatusOK, h.envelope(conversationID, messages))
}

func (h *Handler) envelope(conversationID string, messages []chat.Message) HistoryResponse {
	resp := HistoryResponse{
		ConversationID: conversationID,
		Messages:       make([]HistoryMessage, 0, len(messages)),
		Greeting:       reply.Greeting,
	}
	if len(messages) > 0 {
		started := messages[0].CreatedAt
		resp.StartedAt = &started
	}

	var crisis []resource.CrisisResource
	for _, msg := range messages {
		item := HistoryMessage{Message: msg}
		if msg.IsCrisisReply() {
			if crisis == nil {
				crisis = h.engine.CrisisResources()
			}
			item.Resources = crisis
		}
		resp.Messages = append(resp.Messages, item)
	}
	return resp
}

// handlePreflight 对 OPTIONS 请求不做任何处理，CORS 头由中间件添加。
func (h *Handler) handlePreflight(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusNoContent)
}

// handleCreateConversation 分配一个新的会话ID，不写入存储。
func (h *Handler) handleCreateConversation(w http.ResponseWriter, _ *http.Request) {
	utils.RespondJSON(w, http.StatusCreated, ConversationResponse{
		Conversation: chat.Conversation{
			ID:        uuid.NewString(),
			CreatedAt: h.now().UTC(),
		},
		Greeting: reply.Greeting,
	})
}

func (h *Handler) respondTurnError(w http.ResponseWriter, r *http.Request, err error) {
	status, message := ErrorStatus(err)
	if status == 0 {
		h.logger.Debug().Err(err).Str("path", r.URL.Path).Msg("client went away")
		return
	}
	utils.RespondError(w, status, message)
}

// ErrorStatus maps engine errors to an HTTP status and a client-safe message.
// A zero status means the client is gone and nothing should be written.
func ErrorStatus(err error) (int, string) {
	switch {
	case errors.Is(err, triage.ErrInvalidInput):
		return http.StatusBadRequest, triage.ErrInvalidInput.Error()
	case errors.Is(err, store.ErrUnavailable):
		return http.StatusServiceUnavailable, store.ErrUnavailable.Error()
	case errors.Is(err, store.ErrDuplicateID):
		return http.StatusConflict, store.ErrDuplicateID.Error()
	case errors.Is(err, context.Canceled):
		return 0, ""
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, "request timed out"
	default:
		return http.StatusInternalServerError, "internal error"
	}
}
