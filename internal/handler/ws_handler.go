package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/hobbyist/hobbyist-api/internal/config"
	"github.com/hobbyist/hobbyist-api/internal/middleware"
	"github.com/hobbyist/hobbyist-api/internal/service"
	ws "github.com/hobbyist/hobbyist-api/internal/websocket"
)

// buildUpgrader creates a WebSocket upgrader with origin validation.
// allowedOrigins comes from config.Config.AllowedOrigins.
// An empty slice permits all origins (development mode).
func buildUpgrader(allowedOrigins []string) websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			if len(allowedOrigins) == 0 {
				return true
			}
			origin := r.Header.Get("Origin")
			for _, allowed := range allowedOrigins {
				if strings.EqualFold(allowed, origin) {
					return true
				}
			}
			return false
		},
	}
}

// WSHandler streams class availability over WebSocket.
type WSHandler struct {
	rdb          *redis.Client
	classService *service.ClassService
	log          zerolog.Logger
	upgrader     websocket.Upgrader
}

// NewWSHandler creates a new WSHandler.
func NewWSHandler(rdb *redis.Client, classService *service.ClassService, log zerolog.Logger, allowedOrigins []string) *WSHandler {
	return &WSHandler{
		rdb:          rdb,
		classService: classService,
		log:          log.With().Str("component", "ws_handler").Logger(),
		upgrader:     buildUpgrader(allowedOrigins),
	}
}

// ClassAvailabilityStream godoc
// WS /ws/v1/classes/:id/availability
// Sends the current snapshot, then every capacity change published for the
// class until the client leaves.
func (h *WSHandler) ClassAvailabilityStream(c *gin.Context) {
	classID, err := pathID(c, "id")
	if err != nil {
		middleware.Abort(c, err)
		return
	}

	snapshot, err := h.classService.Availability(c.Request.Context(), classID)
	if err != nil {
		middleware.Abort(c, err)
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Error().Err(err).Msg("WebSocket upgrade failed")
		return
	}
	defer conn.Close()

	wsLog := h.log.With().Str("class_id", classID.String()).Logger()
	if cl := middleware.GetClaims(c); cl != nil {
		wsLog = wsLog.With().Str("user_id", cl.UserID.String()).Logger()
	}

	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()

	// Subscribe before the snapshot so no update falls in between.
	pubsub := h.rdb.Subscribe(ctx, config.CacheKey.ClassAvailabilityChannel(classID))
	defer pubsub.Close()
	if _, err := pubsub.Receive(ctx); err != nil {
		wsLog.Error().Err(err).Msg("Availability subscription failed")
		_ = ws.WriteError(conn, "availability updates unavailable")
		return
	}

	data, _ := json.Marshal(snapshot)
	if err := ws.WriteTyped(conn, ws.AvailabilityEvent{Event: ws.EventAvailability, Data: data}); err != nil {
		return
	}
	wsLog.Info().Msg("Availability subscriber connected")

	pings := make(chan struct{}, 1)
	go h.readLoop(conn, wsLog, cancel, pings)

	ticker := time.NewTicker(ws.PingPeriod)
	defer ticker.Stop()

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			wsLog.Debug().Msg("Availability subscriber disconnected")
			return

		case msg, ok := <-ch:
			if !ok {
				return
			}
			event := ws.AvailabilityEvent{Event: ws.EventAvailability, Data: json.RawMessage(msg.Payload)}
			if err := ws.WriteTyped(conn, event); err != nil {
				return
			}

		case <-pings:
			if err := ws.WriteTyped(conn, ws.PongResponse{Event: ws.EventPong}); err != nil {
				return
			}

		case <-ticker.C:
			if err := ws.WritePing(conn); err != nil {
				return
			}
		}
	}
}

// readLoop owns the read side of conn. It answers ping actions through
// pings and cancels the stream when the client goes away.
func (h *WSHandler) readLoop(conn *websocket.Conn, wsLog zerolog.Logger, cancel context.CancelFunc, pings chan<- struct{}) {
	defer cancel()
	ws.KeepAlive(conn)

	for {
		var msg ws.RequestEnvelope
		if err := ws.ReadJSON(conn, &msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				wsLog.Warn().Err(err).Msg("Unexpected close")
			}
			return
		}

		if msg.Action != ws.ActionPing {
			continue
		}
		select {
		case pings <- struct{}{}:
		default:
		}
	}
}
