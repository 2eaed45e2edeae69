package ws

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	chatHandler "github.com/zhouzirui/mindwell/backend/internal/handler/chat"
	"github.com/zhouzirui/mindwell/backend/internal/service/triage"
)

const (
	pongWait   = 60 * time.Second
	pingPeriod = 54 * time.Second
	writeWait  = 10 * time.Second
)

// 帧类型
const (
	FrameMessage   = "message"
	FrameSubmitted = "submitted"
	FrameTyping    = "typing"
	FrameReply     = "reply"
	FrameError     = "error"
)

// Handler WebSocket 聊天处理器
type Handler struct {
	engine   *triage.Engine
	logger   zerolog.Logger
	upgrader websocket.Upgrader
}

// New 创建WebSocket处理器
func New(engine *triage.Engine, logger zerolog.Logger) *Handler {
	return &Handler{
		engine: engine,
		logger: logger,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}
}

// RegisterRoutes 注册WebSocket路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/ws", h.handleWebSocket)
}

type inboundMessage struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type outgoingMessage struct {
	Type           string `json:"type"`
	ConversationID string `json:"conversationId,omitempty"`
	Data           any    `json:"data,omitempty"`
	Timestamp      int64  `json:"timestamp"`
}

// handleWebSocket 处理WebSocket连接
func (h *Handler) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conversationID := h.engine.ResolveConversation(r.URL.Query().Get("conversationId"))

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}
	defer conn.Close()

	log := h.logger.With().Str("conversation_id", conversationID).Logger()
	log.Debug().Msg("websocket connected")

	// 连接断开时取消正在等待的回复
	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	inbound := make(chan inboundMessage)
	go func() {
		defer cancel()
		for {
			var msg inboundMessage
			if err := conn.ReadJSON(&msg); err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
					log.Debug().Err(err).Msg("websocket read error")
				}
				return
			}
			_ = conn.SetReadDeadline(time.Now().Add(pongWait))

			select {
			case inbound <- msg:
			case <-ctx.Done():
				return
			}
		}
	}()

	go h.pingLoop(ctx, conn)

	for {
		select {
		case <-ctx.Done():
			return
		case msg := <-inbound:
			h.handleMessage(ctx, conn, conversationID, msg)
		}
	}
}

func (h *Handler) handleMessage(ctx context.Context, conn *websocket.Conn, conversationID string, msg inboundMessage) {
	if msg.Type != FrameMessage {
		h.send(conn, FrameError, conversationID, map[string]string{"message": "unsupported message type: " + msg.Type})
		return
	}

	turn, err := h.engine.SubmitWithObserver(ctx, conversationID, msg.Text, func(ev triage.Event) {
		switch ev.State {
		case triage.StateSubmitted:
			h.send(conn, FrameSubmitted, conversationID, ev.Message)
		case triage.StateReplying:
			h.send(conn, FrameTyping, conversationID, nil)
		}
	})
	if err != nil {
		status, message := chatHandler.ErrorStatus(err)
		if status == 0 {
			return
		}
		h.send(conn, FrameError, conversationID, map[string]string{"message": message})
		return
	}

	h.send(conn, FrameReply, conversationID, turn)
}

func (h *Handler) send(conn *websocket.Conn, frameType, conversationID string, data any) {
	msg := outgoingMessage{
		Type:           frameType,
		ConversationID: conversationID,
		Data:           data,
		Timestamp:      time.Now().Unix(),
	}
	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := conn.WriteJSON(msg); err != nil {
		h.logger.Debug().Err(err).Str("frame", frameType).Msg("websocket write failed")
	}
}

// pingLoop 定期发送ping消息
func (h *Handler) pingLoop(ctx context.Context, conn *websocket.Conn) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return
			}
		}
	}
}
