// Package ws streams insight events to the user they concern over WebSocket.
package ws

import (
	"context"
	"net/http"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/HerbHall/cycleinsight/internal/auth"
	"github.com/HerbHall/cycleinsight/internal/insight"
	"github.com/HerbHall/cycleinsight/pkg/analytics"
	"github.com/HerbHall/cycleinsight/pkg/plugin"
)

// Handler provides the WebSocket endpoint for live insight updates.
type Handler struct {
	hub    *Hub
	tokens *auth.TokenService
	bus    plugin.EventBus
	logger *zap.Logger
	unsubs []func()
}

// Compile-time check that Handler implements the server interface.
var _ interface {
	RegisterRoutes(mux *http.ServeMux)
} = (*Handler)(nil)

// NewHandler creates a WebSocket handler and subscribes to insight events.
// With nil tokens the stream is open and the user is named by the user_id
// query parameter.
func NewHandler(tokens *auth.TokenService, bus plugin.EventBus, logger *zap.Logger) *Handler {
	h := &Handler{
		hub:    NewHub(logger),
		tokens: tokens,
		bus:    bus,
		logger: logger,
	}
	h.subscribeToEvents()
	return h
}

// Hub returns the handler's connection hub.
func (h *Handler) Hub() *Hub { return h.hub }

// RegisterRoutes registers WebSocket routes on the server mux.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/v1/ws/insight", h.handleInsightStream)
}

// Close unsubscribes from the event bus.
func (h *Handler) Close() {
	for _, unsub := range h.unsubs {
		unsub()
	}
	h.unsubs = nil
}

// handleInsightStream upgrades the connection and streams the caller's events.
func (h *Handler) handleInsightStream(w http.ResponseWriter, r *http.Request) {
	userID, status, msg := h.authenticate(r)
	if status != 0 {
		http.Error(w, msg, status)
		return
	}

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		// Any origin is allowed; access is scoped by the token.
		InsecureSkipVerify: true,
	})
	if err != nil {
		h.logger.Error("websocket accept failed", zap.Error(err))
		return
	}

	client := &Client{
		conn:   conn,
		userID: userID,
		send:   make(chan Message, 64),
		logger: h.logger,
	}
	h.hub.Register(client)

	ctx := r.Context()
	done := make(chan struct{})
	go func() {
		client.writePump(ctx)
		close(done)
	}()

	// readPump blocks until the client disconnects.
	client.readPump(ctx)

	h.hub.Unregister(client)
	conn.Close(websocket.StatusNormalClosure, "")
	<-done
}

// authenticate resolves the user a stream belongs to. A non-zero status
// means the request must be rejected with msg.
func (h *Handler) authenticate(r *http.Request) (userID string, status int, msg string) {
	if h.tokens == nil {
		userID = r.URL.Query().Get("user_id")
		if uuid.Validate(userID) != nil {
			return "", http.StatusBadRequest, "user_id parameter must be a UUID"
		}
		return userID, 0, ""
	}

	// Browsers cannot set headers on WebSocket requests, so the token is a query parameter.
	token := r.URL.Query().Get("token")
	if token == "" {
		return "", http.StatusUnauthorized, "missing token parameter"
	}
	claims, err := h.tokens.ValidateAccessToken(token)
	if err != nil {
		return "", http.StatusUnauthorized, "invalid or expired token"
	}
	return claims.Subject, 0, ""
}

// subscribeToEvents forwards insight events to the owning user's connections.
func (h *Handler) subscribeToEvents() {
	if h.bus == nil {
		return
	}

	h.unsubs = append(h.unsubs, h.bus.Subscribe(insight.TopicAnalysisCompleted, func(_ context.Context, event plugin.Event) {
		ev, ok := event.Payload.(*analytics.AnalysisEvent)
		if !ok {
			return
		}
		h.hub.SendToUser(ev.UserID, Message{
			Type:      MessageAnalysisCompleted,
			UserID:    ev.UserID,
			Timestamp: event.Timestamp,
			Data:      AnalysisCompletedData{Result: ev.Result},
		})
	}))

	h.unsubs = append(h.unsubs, h.bus.Subscribe(insight.TopicDeviationPersistent, func(_ context.Context, event plugin.Event) {
		ev, ok := event.Payload.(*analytics.PersistentDeviationEvent)
		if !ok {
			return
		}
		h.hub.SendToUser(ev.UserID, Message{
			Type:      MessageDeviationPersistent,
			UserID:    ev.UserID,
			Timestamp: event.Timestamp,
			Data: DeviationPersistentData{
				Candidate:        ev.Candidate,
				Deviation:        ev.Deviation,
				ConsecutiveCount: ev.Count,
			},
		})
	}))

	h.logger.Info("subscribed to insight events for WebSocket streaming")
}
