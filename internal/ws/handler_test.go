package ws

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/HerbHall/cycleinsight/internal/auth"
	"github.com/HerbHall/cycleinsight/internal/event"
	"github.com/HerbHall/cycleinsight/internal/insight"
	"github.com/HerbHall/cycleinsight/pkg/analytics"
	"github.com/HerbHall/cycleinsight/pkg/plugin"
)

func newTestServer(t *testing.T, tokens *auth.TokenService) (*Handler, *event.Bus, string) {
	t.Helper()
	bus := event.NewBus(zap.NewNop())
	h := NewHandler(tokens, bus, zap.NewNop())
	t.Cleanup(h.Close)

	mux := http.NewServeMux()
	h.RegisterRoutes(mux)
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return h, bus, "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/v1/ws/insight"
}

func waitForClients(t *testing.T, h *Handler, n int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for h.Hub().ClientCount() != n {
		if time.Now().After(deadline) {
			t.Fatalf("ClientCount() = %d, want %d", h.Hub().ClientCount(), n)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestInsightStream_DeliversOwnEvents(t *testing.T) {
	tokens := auth.NewTokenService([]byte("test-secret-key-32bytes-long!!"), time.Minute)
	h, bus, url := newTestServer(t, tokens)

	user := uuid.NewString()
	token, err := tokens.IssueAccessToken(user)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	conn, _, err := websocket.Dial(ctx, url+"?token="+token, nil)
	require.NoError(t, err)
	defer conn.Close(websocket.StatusNormalClosure, "")
	waitForClients(t, h, 1)

	// An event for someone else must not arrive.
	require.NoError(t, bus.Publish(ctx, plugin.Event{
		Topic:   insight.TopicAnalysisCompleted,
		Payload: &analytics.AnalysisEvent{UserID: uuid.NewString()},
	}))
	require.NoError(t, bus.Publish(ctx, plugin.Event{
		Topic: insight.TopicDeviationPersistent,
		Payload: &analytics.PersistentDeviationEvent{
			UserID:    user,
			Candidate: analytics.DeviationMild,
			Deviation: analytics.DeviationModerate,
			Count:     2,
		},
	}))

	var msg struct {
		Type   MessageType             `json:"type"`
		UserID string                  `json:"user_id"`
		Data   DeviationPersistentData `json:"data"`
	}
	require.NoError(t, wsjson.Read(ctx, conn, &msg))
	assert.Equal(t, MessageDeviationPersistent, msg.Type)
	assert.Equal(t, user, msg.UserID)
	assert.Equal(t, analytics.DeviationModerate, msg.Data.Deviation)
	assert.Equal(t, 2, msg.Data.ConsecutiveCount)
}

func TestInsightStream_RejectsMissingOrBadToken(t *testing.T) {
	tokens := auth.NewTokenService([]byte("test-secret-key-32bytes-long!!"), time.Minute)
	_, _, url := newTestServer(t, tokens)

	for _, query := range []string{"", "?token=garbage"} {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		_, resp, err := websocket.Dial(ctx, url+query, nil)
		cancel()
		require.Error(t, err, "query %q", query)
		require.NotNil(t, resp)
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	}
}

func TestInsightStream_OpenModeUsesUserParam(t *testing.T) {
	h, bus, url := newTestServer(t, nil)
	user := uuid.NewString()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_, resp, err := websocket.Dial(ctx, url+"?user_id=not-a-uuid", nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	conn, _, err := websocket.Dial(ctx, url+"?user_id="+user, nil)
	require.NoError(t, err)
	defer conn.Close(websocket.StatusNormalClosure, "")
	waitForClients(t, h, 1)

	require.NoError(t, bus.Publish(ctx, plugin.Event{
		Topic: insight.TopicAnalysisCompleted,
		Payload: &analytics.AnalysisEvent{
			UserID: user,
			Result: analytics.AnalysisResult{Confidence: analytics.ConfidenceDeveloping},
		},
	}))

	var msg struct {
		Type MessageType           `json:"type"`
		Data AnalysisCompletedData `json:"data"`
	}
	require.NoError(t, wsjson.Read(ctx, conn, &msg))
	assert.Equal(t, MessageAnalysisCompleted, msg.Type)
	assert.Equal(t, analytics.ConfidenceDeveloping, msg.Data.Result.Confidence)
}
