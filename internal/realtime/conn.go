package realtime

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	pkgAuth "github.com/serviplace/serviplace-backend/pkg/auth"
	"github.com/serviplace/serviplace-backend/pkg/config"
	"github.com/serviplace/serviplace-backend/pkg/logger"
)

const pingFraction = 10 // ping at 9/10 of the pong timeout

// Conn wraps one websocket connection with its outbound queue and session.
type Conn struct {
	hub      *Hub
	handler  *Handler
	ws       *websocket.Conn
	send     chan []byte
	session  *Session
	cfg      config.RealtimeConfig
	log      *logger.Logger
	dropOnce sync.Once
}

// deliver queues a frame without blocking. A consumer that cannot drain its
// buffer loses the connection and falls back to the poll endpoint.
//
// deliver runs while the hub holds its broadcast lock, and drop needs the
// write lock, so pruning the rooms must happen on another goroutine or the
// hub would deadlock against itself.
func (c *Conn) deliver(frame []byte) {
	select {
	case c.send <- frame:
	default:
		c.dropOnce.Do(func() {
			if c.ws != nil {
				_ = c.ws.Close()
			}
			go c.hub.drop(c)
		})
	}
}

func (c *Conn) readPump() {
	defer func() {
		c.hub.drop(c)
		_ = c.ws.Close()
	}()
	if c.cfg.MaxMessageBytes > 0 {
		c.ws.SetReadLimit(c.cfg.MaxMessageBytes)
	}
	_ = c.ws.SetReadDeadline(time.Now().Add(c.cfg.PongTimeout))
	c.ws.SetPongHandler(func(string) error {
		return c.ws.SetReadDeadline(time.Now().Add(c.cfg.PongTimeout))
	})

	ctx := context.Background()
	if c.log != nil {
		ctx = c.log.WithUserID(ctx, c.session.UserID.String())
	}
	for {
		_, raw, err := c.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) && c.log != nil {
				c.log.Warn(ctx, "websocket closed unexpectedly")
			}
			return
		}
		c.handler.Handle(ctx, c.session, c, raw)
	}
}

func (c *Conn) writePump() {
	pingInterval := c.cfg.PongTimeout * (pingFraction - 1) / pingFraction
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		_ = c.ws.Close()
	}()

	for {
		select {
		case frame, ok := <-c.send:
			_ = c.ws.SetWriteDeadline(time.Now().Add(c.cfg.WriteTimeout))
			if !ok {
				_ = c.ws.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.ws.WriteMessage(websocket.TextMessage, frame); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.ws.SetWriteDeadline(time.Now().Add(c.cfg.WriteTimeout))
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// ServeWS upgrades the request and runs the connection until either side
// closes. Connection-level authorization happens here, once, against the
// access token; room-level authorization happens per join.
func ServeWS(hub *Hub, handler *Handler, cfg config.RealtimeConfig, jwtCfg config.JWTConfig, log *logger.Logger) http.HandlerFunc {
	upgrader := websocket.Upgrader{
		ReadBufferSize:  4096,
		WriteBufferSize: 4096,
		CheckOrigin:     func(r *http.Request) bool { return true },
	}

	return func(w http.ResponseWriter, r *http.Request) {
		token := connectionToken(r)
		if token == "" {
			http.Error(w, "missing access token", http.StatusUnauthorized)
			return
		}
		claims, err := pkgAuth.ParseAccessToken(jwtCfg, token)
		if err != nil {
			http.Error(w, "invalid access token", http.StatusUnauthorized)
			return
		}

		ws, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			if log != nil {
				log.Error(r.Context(), "websocket upgrade failed", err)
			}
			return
		}

		expiry := time.Now().UTC().Add(time.Duration(jwtCfg.ExpirationMinutes) * time.Minute)
		if claims.ExpiresAt != nil {
			expiry = claims.ExpiresAt.Time
		}

		conn := &Conn{
			hub:     hub,
			handler: handler,
			ws:      ws,
			send:    make(chan []byte, cfg.SendBuffer),
			session: NewSession(claims.UserID, claims.Role, expiry),
			cfg:     cfg,
			log:     log,
		}

		go conn.writePump()
		go conn.readPump()
	}
}

func connectionToken(r *http.Request) string {
	if token := strings.TrimSpace(r.URL.Query().Get("token")); token != "" {
		return token
	}
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	if after, ok := strings.CutPrefix(header, "Bearer "); ok {
		return strings.TrimSpace(after)
	}
	return ""
}
