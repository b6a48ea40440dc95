package http

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"quiz-leaderboard/internal/app"
	"quiz-leaderboard/internal/domain"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
)

// WSHandler streams live leaderboards to websocket clients.
type WSHandler struct {
	broker   *app.LiveUpdateBroker
	upgrader websocket.Upgrader
	logger   zerolog.Logger
}

func NewWSHandler(broker *app.LiveUpdateBroker, logger zerolog.Logger) *WSHandler {
	return &WSHandler{
		broker: broker,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		logger: logger.With().Str("component", "ws_handler").Logger(),
	}
}

type outboundMessage[T any] struct {
	Type    string `json:"type"`
	Payload T      `json:"payload"`
}

type errorPayload struct {
	Message     string    `json:"message"`
	LastUpdated time.Time `json:"lastUpdated"`
}

// ServeWS upgrades the request and pushes a leaderboard message after every refresh.
// The optional department query parameter adds the department leaderboard.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	department := r.URL.Query().Get("department")

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn().Err(err).Msg("ws upgrade failed")
		return
	}
	defer conn.Close()

	logger := h.logger.With().Str("conn", uuid.NewString()).Str("department", department).Logger()

	// Only the latest update matters; a slow client skips stale ones.
	updates := make(chan domain.LiveUpdate, 1)
	push := func(u domain.LiveUpdate) {
		select {
		case updates <- u:
		default:
			select {
			case <-updates:
			default:
			}
			updates <- u
		}
	}

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	unsubscribe, err := h.broker.Subscribe(ctx, push, department)
	if err != nil {
		logger.Error().Err(err).Msg("live subscription failed")
		_ = conn.WriteJSON(outboundMessage[errorPayload]{Type: "error", Payload: errorPayload{Message: err.Error()}})
		return
	}
	defer unsubscribe()

	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		defer cancel()
		// Unblocks the read loop when the write side gives up first.
		defer conn.Close()
		ticker := time.NewTicker(pingPeriod)
		defer ticker.Stop()
		for {
			select {
			case update := <-updates:
				_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
				if err := conn.WriteJSON(toMessage(update)); err != nil {
					logger.Debug().Err(err).Msg("ws write error")
					return
				}
			case <-ticker.C:
				_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
				if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
					return
				}
			case <-ctx.Done():
				return
			}
		}
	}()

	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	// Clients only send control frames; reading surfaces the close.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}

	cancel()
	<-writerDone
	logger.Debug().Msg("ws client disconnected")
}

func toMessage(update domain.LiveUpdate) outboundMessage[any] {
	if update.Error != "" {
		return outboundMessage[any]{Type: "error", Payload: errorPayload{Message: update.Error, LastUpdated: update.LastUpdated}}
	}
	return outboundMessage[any]{Type: "leaderboard", Payload: update}
}
