package front

import (
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fluxgatelabs/coilscope/internal/bus"
	"github.com/fluxgatelabs/coilscope/pkg/field"
	"github.com/fluxgatelabs/coilscope/pkg/logging"
)

func dialTestServer(t *testing.T) (*WebSocketServer, *bus.Bus, *websocket.Conn) {
	t.Helper()

	b := bus.New(16)
	t.Cleanup(b.Close)

	s := NewWebSocketServer(WebSocketConfig{Path: "/ws"}, b, &logging.NoOpLogger{})
	srv := httptest.NewServer(s.Handler())
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	require.Eventually(t, func() bool {
		s.mu.Lock()
		defer s.mu.Unlock()
		return len(s.clients) == 1
	}, time.Second, 10*time.Millisecond, "client never registered")

	return s, b, conn
}

func TestBroadcastReachesClient(t *testing.T) {
	s, _, conn := dialTestServer(t)

	s.broadcast(bus.Message{
		Topic:    bus.TopicBField,
		Payload:  field.Vector{X: -1.5, Y: 0.5},
		Metadata: map[string]any{"window": "hann"},
	})

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)

	var frame wsFrame
	require.NoError(t, json.Unmarshal(data, &frame))
	assert.Equal(t, bus.TopicBField, frame.Topic)
	assert.Equal(t, "hann", frame.Metadata["window"])

	var vec field.Vector
	require.NoError(t, json.Unmarshal(frame.Payload, &vec))
	assert.Equal(t, field.Vector{X: -1.5, Y: 0.5}, vec)
}

func TestInboundCommandReachesBus(t *testing.T) {
	_, b, conn := dialTestServer(t)

	commands := b.Subscribe(bus.TopicCalculationCommand)

	err := conn.WriteMessage(websocket.TextMessage,
		[]byte(`{"topic":"calculation/command","payload":{"min_snr":3,"window":"hamming"}}`))
	require.NoError(t, err)

	select {
	case msg := <-commands.C:
		payload, ok := msg.Payload.(map[string]any)
		require.True(t, ok)
		assert.Equal(t, 3.0, payload["min_snr"])
		assert.Equal(t, "hamming", payload["window"])
		assert.NotEmpty(t, msg.Metadata["client_id"])
	case <-time.After(2 * time.Second):
		t.Fatal("command never crossed the bus")
	}
}

func TestInboundNonCommandTopicDropped(t *testing.T) {
	_, b, conn := dialTestServer(t)

	commands := b.Subscribe(bus.TopicCalculationCommand)

	err := conn.WriteMessage(websocket.TextMessage,
		[]byte(`{"topic":"bfield/data","payload":{"x":1}}`))
	require.NoError(t, err)

	select {
	case msg := <-commands.C:
		t.Fatalf("non-command frame crossed the bus: %+v", msg)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestMalformedInboundFrameDropped(t *testing.T) {
	s, b, conn := dialTestServer(t)

	commands := b.Subscribe(bus.TopicCalculationCommand)

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("not json")))

	select {
	case msg := <-commands.C:
		t.Fatalf("malformed frame crossed the bus: %+v", msg)
	case <-time.After(100 * time.Millisecond):
	}

	// The connection survives the bad frame
	s.mu.Lock()
	clients := len(s.clients)
	s.mu.Unlock()
	assert.Equal(t, 1, clients)
}

func TestClientDisconnectRemovesRegistration(t *testing.T) {
	s, _, conn := dialTestServer(t)

	conn.Close()

	assert.Eventually(t, func() bool {
		s.mu.Lock()
		defer s.mu.Unlock()
		return len(s.clients) == 0
	}, 2*time.Second, 10*time.Millisecond)
}
