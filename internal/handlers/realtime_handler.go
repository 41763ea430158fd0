package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/yasinhessnawi1/SecureTransfer_Backend/internal/constants"
	"github.com/yasinhessnawi1/SecureTransfer_Backend/internal/models"
	"github.com/yasinhessnawi1/SecureTransfer_Backend/internal/realtime"
	"github.com/yasinhessnawi1/SecureTransfer_Backend/internal/utils"
)

// RealtimeHandler upgrades authenticated clients to websockets and streams
// the events of the sessions they join.
type RealtimeHandler struct {
	sessions   RealtimeSessionServiceInterface
	subscriber EventSubscriber
	upgrader   websocket.Upgrader
}

// NewRealtimeHandler creates a new RealtimeHandler.
// Upgrades are accepted from the given origins; "*" or an empty list accepts any origin.
func NewRealtimeHandler(sessions RealtimeSessionServiceInterface, subscriber EventSubscriber, allowedOrigins []string) *RealtimeHandler {
	return &RealtimeHandler{
		sessions:   sessions,
		subscriber: subscriber,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  constants.WSBufferSize,
			WriteBufferSize: constants.WSBufferSize,
			CheckOrigin:     originChecker(allowedOrigins),
		},
	}
}

func originChecker(allowedOrigins []string) func(r *http.Request) bool {
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" || len(allowedOrigins) == 0 || utils.ContainsString(allowedOrigins, "*") {
			return true
		}
		return utils.ContainsString(allowedOrigins, origin)
	}
}

// ServeWS handles a websocket connection until the client goes away
func (h *RealtimeHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	user, ok := identityFromRequest(r)
	if !ok {
		utils.Unauthorized(w, constants.MsgAuthRequired)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// The upgrader has already replied to the client
		log.Warn().Err(err).Int64("user_id", user.ID).Msg("Websocket upgrade failed")
		return
	}

	client := newWSClient(conn, user)
	defer client.close()

	done := make(chan struct{})
	defer close(done)
	go client.pingLoop(done)

	log.Debug().Int64("user_id", user.ID).Msg("Realtime client connected")
	h.readLoop(r.Context(), client)
	log.Debug().Int64("user_id", user.ID).Msg("Realtime client disconnected")
}

func (h *RealtimeHandler) readLoop(ctx context.Context, client *wsClient) {
	conn := client.conn
	conn.SetReadLimit(constants.WSMaxMessageSize)
	_ = conn.SetReadDeadline(time.Now().Add(constants.WSPongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(constants.WSPongWait))
	})

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Debug().Err(err).Int64("user_id", client.user.ID).Msg("Realtime connection closed unexpectedly")
			}
			return
		}

		var msg models.ClientMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			client.sendError(constants.MsgMalformedJSON)
			continue
		}

		switch msg.Action {
		case constants.ActionJoinRoom:
			h.joinRoom(ctx, client, msg.Token)
		case constants.ActionLeaveRoom:
			client.leave(msg.Token)
		default:
			client.sendError("Unknown action")
		}
	}
}

// joinRoom subscribes a participant to a session and announces the
// current participant list to everyone in it.
func (h *RealtimeHandler) joinRoom(ctx context.Context, client *wsClient, token string) {
	if token == "" {
		client.sendError("Token is required")
		return
	}

	member, err := h.sessions.IsParticipant(ctx, client.user, token)
	if err != nil {
		client.sendError(utils.ParseError(err).Message)
		return
	}
	if !member {
		client.sendError(utils.NewNotAMemberError().Message)
		return
	}

	client.subscribe(token, h.subscriber)

	if err := h.sessions.AnnounceParticipants(ctx, token); err != nil {
		log.Warn().Err(err).Str("token", utils.RedactToken(token)).Msg("Failed to announce participants")
	}
}

// wsClient is one websocket connection and the sessions it follows.
type wsClient struct {
	conn *websocket.Conn
	user models.Identity

	writeMu sync.Mutex

	mu    sync.Mutex
	rooms map[string]*realtime.Subscription
}

func newWSClient(conn *websocket.Conn, user models.Identity) *wsClient {
	return &wsClient{
		conn:  conn,
		user:  user,
		rooms: make(map[string]*realtime.Subscription),
	}
}

func (c *wsClient) subscribe(token string, subscriber EventSubscriber) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.rooms[token]; ok {
		return
	}
	sub := subscriber.Subscribe(token)
	c.rooms[token] = sub
	go c.forward(sub)
}

// forward writes a subscription's events to the client until it is closed.
// A session_ended event closes the subscription after it is delivered.
func (c *wsClient) forward(sub *realtime.Subscription) {
	for event := range sub.Events() {
		if err := c.writeJSON(event); err != nil {
			c.leave(sub.Token)
			continue
		}
		if event.Type == constants.EventSessionEnded {
			c.leave(sub.Token)
		}
	}
}

func (c *wsClient) leave(token string) {
	c.mu.Lock()
	sub, ok := c.rooms[token]
	delete(c.rooms, token)
	c.mu.Unlock()

	if ok {
		sub.Close()
	}
}

func (c *wsClient) writeJSON(v interface{}) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	_ = c.conn.SetWriteDeadline(time.Now().Add(constants.WSWriteWait))
	return c.conn.WriteJSON(v)
}

func (c *wsClient) sendError(message string) {
	if err := c.writeJSON(map[string]string{
		"type":    constants.MessageTypeError,
		"message": message,
	}); err != nil {
		log.Debug().Err(err).Msg("Failed to send realtime error")
	}
}

func (c *wsClient) pingLoop(done <-chan struct{}) {
	ticker := time.NewTicker(constants.WSPingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			c.writeMu.Lock()
			err := c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(constants.WSWriteWait))
			c.writeMu.Unlock()
			if err != nil {
				return
			}
		}
	}
}

func (c *wsClient) close() {
	c.mu.Lock()
	rooms := c.rooms
	c.rooms = make(map[string]*realtime.Subscription)
	c.mu.Unlock()

	for _, sub := range rooms {
		sub.Close()
	}
	_ = c.conn.Close()
}
