package http

import (
	"net/http"
	"time"

	"cybermaze-gateway/internal/app"
	"cybermaze-gateway/internal/domain"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// NotificationStream pushes platform broadcasts to connected UI
// clients over a websocket. The feed is fed by a fixed-interval poll
// of the idempotent notifications read, so a missed tick just means
// the next one re-reads the same state.
type NotificationStream struct {
	client   app.Client
	interval time.Duration
	upgrader websocket.Upgrader
	log      *zap.Logger
}

func NewNotificationStream(client app.Client, interval time.Duration, log *zap.Logger) *NotificationStream {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	return &NotificationStream{
		client:   client,
		interval: interval,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		log: log,
	}
}

type outboundMessage struct {
	Type    string              `json:"type"`
	Payload domain.Notification `json:"payload"`
}

// ServeWS upgrades the request and streams notifications until the
// client disconnects.
func (s *NotificationStream) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn("ws upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ctx := r.Context()
	sinceID := 0
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		notifications, err := s.client.GetNotifications(ctx, sinceID)
		if err != nil {
			s.log.Debug("notification poll failed", zap.Error(err))
		}
		for _, n := range notifications {
			if n.ID <= sinceID {
				continue
			}
			if err := conn.WriteJSON(outboundMessage{Type: "notification", Payload: n}); err != nil {
				return
			}
			sinceID = n.ID
		}

		select {
		case <-ticker.C:
		case <-closed:
			return
		case <-ctx.Done():
			return
		}
	}
}
