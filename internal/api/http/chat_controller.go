package http

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/immxrtalbeast/studyroom/internal/api/http/converter"
	"github.com/immxrtalbeast/studyroom/internal/domain"
	"github.com/immxrtalbeast/studyroom/internal/service"
	"github.com/immxrtalbeast/studyroom/lib/logger/sl"
)

const (
	wsWriteWait      = 10 * time.Second
	wsPongWait       = 60 * time.Second
	wsPingPeriod     = (wsPongWait * 9) / 10
	wsMaxMessageSize = 16 * 1024
)

type ChatController struct {
	chat     service.ChatInteractor
	log      *slog.Logger
	upgrader websocket.Upgrader
}

func NewChatController(chat service.ChatInteractor, allowedOrigins []string, log *slog.Logger) *ChatController {
	return &ChatController{
		chat: chat,
		log:  log,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     originChecker(allowedOrigins),
		},
	}
}

func (c *ChatController) ListMessages(ctx *gin.Context) {
	roomID, ok := roomIDParam(ctx)
	if !ok {
		return
	}

	msgs, err := c.chat.GetRecentMessages(ctx.Request.Context(), roomID, currentUser(ctx))
	if err != nil {
		respondError(ctx, c.log, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"messages": converter.ChatMessagesToApi(msgs)})
}

func (c *ChatController) PostMessage(ctx *gin.Context) {
	type request struct {
		Text string `json:"text"`
	}

	roomID, ok := roomIDParam(ctx)
	if !ok {
		return
	}

	var req request
	if err := ctx.ShouldBindJSON(&req); err != nil {
		badRequest(ctx, "invalid request body")
		return
	}

	msg, err := c.chat.PostMessage(ctx.Request.Context(), roomID, currentUser(ctx), req.Text)
	if err != nil {
		respondError(ctx, c.log, err)
		return
	}
	ctx.JSON(http.StatusCreated, gin.H{"message": converter.ChatMessageToApi(msg)})
}

// Stream upgrades to a websocket that pushes every message posted to the
// room. Clients may post by sending {"text": "..."} frames.
func (c *ChatController) Stream(ctx *gin.Context) {
	roomID, ok := roomIDParam(ctx)
	if !ok {
		return
	}
	user := currentUser(ctx)

	// Subscribe before the upgrade so access failures are plain HTTP errors.
	peer, err := c.chat.Subscribe(ctx.Request.Context(), roomID, user)
	if err != nil {
		respondError(ctx, c.log, err)
		return
	}
	defer c.chat.Unsubscribe(peer)

	conn, err := c.upgrader.Upgrade(ctx.Writer, ctx.Request, nil)
	if err != nil {
		c.log.Warn("websocket upgrade failed", slog.String("room_id", roomID.String()), sl.Err(err))
		return
	}

	sock := &chatSocket{conn: conn}
	defer sock.close()
	c.log.Debug("chat socket opened", slog.String("room_id", roomID.String()), slog.String("peer_id", peer.ID))

	done := make(chan struct{})
	go func() {
		defer close(done)
		forwardPeerEvents(peer, sock)
		// Unblocks the read loop when the writer gives up first.
		_ = conn.Close()
	}()

	c.readLoop(roomID, user, sock)

	c.chat.Unsubscribe(peer)
	<-done
}

func (c *ChatController) readLoop(roomID uuid.UUID, user *domain.User, sock *chatSocket) {
	type frame struct {
		Text string `json:"text"`
	}

	conn := sock.conn
	conn.SetReadLimit(wsMaxMessageSize)
	_ = conn.SetReadDeadline(time.Now().Add(wsPongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(wsPongWait))
	})

	for {
		var in frame
		if err := conn.ReadJSON(&in); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.log.Debug("chat socket closed", slog.String("room_id", roomID.String()), sl.Err(err))
			}
			return
		}

		// The request context is tied to the hijacked connection, so each
		// frame gets its own bounded context.
		postCtx, cancel := context.WithTimeout(context.Background(), wsWriteWait)
		_, err := c.chat.PostMessage(postCtx, roomID, user, in.Text)
		cancel()
		if err == nil {
			continue
		}

		status, code := classifyError(err)
		message := err.Error()
		if status == http.StatusInternalServerError {
			c.log.Error("failed to post chat message from socket", slog.String("room_id", roomID.String()), sl.Err(err))
			message = "internal server error"
		}
		if werr := sock.writeJSON(errorResponse{Error: message, Code: code}); werr != nil {
			return
		}
	}
}

// chatSocket serialises writes; gorilla connections allow a single writer.
type chatSocket struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func (s *chatSocket) writeJSON(v any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_ = s.conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
	return s.conn.WriteJSON(v)
}

func (s *chatSocket) ping() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(wsWriteWait))
}

func (s *chatSocket) close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	_ = s.conn.WriteControl(
		websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second),
	)
	_ = s.conn.Close()
}

// forwardPeerEvents pushes queued messages until the peer is closed or the
// socket stops accepting writes.
func forwardPeerEvents(peer *domain.Peer, sock *chatSocket) {
	ticker := time.NewTicker(wsPingPeriod)
	defer ticker.Stop()

	for {
		select {
		case event, ok := <-peer.Events:
			if !ok {
				return
			}
			if err := sock.writeJSON(gin.H{"type": "message", "message": converter.ChatMessageToApi(&event)}); err != nil {
				return
			}
		case <-ticker.C:
			if err := sock.ping(); err != nil {
				return
			}
		}
	}
}

func originChecker(allowed []string) func(r *http.Request) bool {
	for _, o := range allowed {
		if o == "*" {
			return func(*http.Request) bool { return true }
		}
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		for _, o := range allowed {
			if strings.EqualFold(o, origin) {
				return true
			}
		}
		return false
	}
}
