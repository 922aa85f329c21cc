package httpapi

import (
	"errors"
	"net/http"

	"github.com/SirazSium84/Doctor-s-Helper-sub000/internal/chat"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const headerConversationID = "X-Conversation-ID"

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Frame types sent over the chat websocket.
const (
	FrameChunk = "chunk"
	FrameReply = "reply"
	FrameError = "error"
)

// Frame is one websocket message from server to client.
type Frame struct {
	Type           string      `json:"type"`
	ConversationID string      `json:"conversation_id,omitempty"`
	Text           string      `json:"text,omitempty"`
	Reply          *chat.Reply `json:"reply,omitempty"`
	Message        string      `json:"message,omitempty"`
}

type ChatHandler struct {
	svc    *chat.Service
	logger *zap.Logger
}

func NewChatHandler(svc *chat.Service, logger *zap.Logger) *ChatHandler {
	return &ChatHandler{svc: svc, logger: logger}
}

func (h *ChatHandler) decode(w http.ResponseWriter, r *http.Request) (chat.Request, bool) {
	var req chat.Request
	if err := readBodyJSON(r, maxBodyBytes, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return req, false
	}
	if err := req.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return req, false
	}
	if req.ConversationID == "" {
		req.ConversationID = uuid.NewString()
	}
	return req, true
}

// StreamText streams the model output as plain text chunks. Tagged segments
// are passed through untouched; clients wanting parsed blocks use the
// structured or websocket endpoints.
func (h *ChatHandler) StreamText(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decode(w, r)
	if !ok {
		return
	}
	flusher, _ := w.(http.Flusher)
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set(headerConversationID, req.ConversationID)
	w.WriteHeader(http.StatusOK)

	_, err := h.svc.Stream(r.Context(), req, func(chunk string) error {
		if _, err := w.Write([]byte(chunk)); err != nil {
			return err
		}
		if flusher != nil {
			flusher.Flush()
		}
		return nil
	})
	if err != nil {
		h.logger.Warn("Chat stream ended early",
			zap.Error(err),
			zap.String("conversation_id", req.ConversationID),
		)
	}
}

func (h *ChatHandler) Structured(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decode(w, r)
	if !ok {
		return
	}
	reply, err := h.svc.Respond(r.Context(), req)
	if err != nil {
		if errors.Is(err, chat.ErrInvalidRequest) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		h.logger.Error("Chat failed", zap.Error(err), zap.String("conversation_id", req.ConversationID))
		writeError(w, http.StatusInternalServerError, "chat failed")
		return
	}
	if reply.Fallback {
		writeJSON(w, http.StatusOK, Warn("assistant unavailable, showing summary", reply))
		return
	}
	writeJSON(w, http.StatusOK, Ok(reply))
}

// WebSocket serves a conversation over one connection. Each client message
// is a chat request; the server answers with chunk frames followed by one
// reply frame.
func (h *ChatHandler) WebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("WebSocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()
	conn.SetReadLimit(maxBodyBytes)

	conversationID := r.URL.Query().Get("conversation_id")
	if conversationID == "" {
		conversationID = uuid.NewString()
	}
	ctx := r.Context()

	for {
		var req chat.Request
		if err := conn.ReadJSON(&req); err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				h.logger.Debug("WebSocket read ended", zap.Error(err))
			}
			return
		}
		if req.ConversationID == "" {
			req.ConversationID = conversationID
		}
		reply, err := h.svc.Stream(ctx, req, func(chunk string) error {
			return conn.WriteJSON(Frame{Type: FrameChunk, ConversationID: req.ConversationID, Text: chunk})
		})
		if err != nil {
			if werr := conn.WriteJSON(Frame{Type: FrameError, ConversationID: req.ConversationID, Message: err.Error()}); werr != nil {
				return
			}
			continue
		}
		if err := conn.WriteJSON(Frame{Type: FrameReply, ConversationID: reply.ConversationID, Reply: reply}); err != nil {
			return
		}
	}
}
