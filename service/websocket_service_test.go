package service

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/senjoyee/ewa-mcp/types"
)

func TestWebSocketServiceStreamsEvents(t *testing.T) {
	svc := NewWebSocketService(zap.NewNop())
	server := httptest.NewServer(http.HandlerFunc(svc.HandleEvents))
	defer server.Close()

	wsURL := "ws" + strings.TrimPrefix(server.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()

	// Give the server loop a moment to register the client.
	require.Eventually(t, func() bool {
		svc.mu.Lock()
		defer svc.mu.Unlock()
		return len(svc.clients) == 1
	}, time.Second, 10*time.Millisecond)

	event := NewProcessingEvent(types.EventProcessingStage, testDoc(), types.StatusChunking, "")
	svc.Publish(event)

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var got types.ProcessingEvent
	require.NoError(t, conn.ReadJSON(&got))

	assert.Equal(t, event.ID, got.ID)
	assert.Equal(t, types.EventProcessingStage, got.EventType)
	assert.Equal(t, types.StatusChunking, got.Stage)
	assert.Equal(t, "/ewa/acme/"+testDoc().DocID, got.Subject)
}

func TestWebSocketServicePublishWithoutClients(t *testing.T) {
	svc := NewWebSocketService(zap.NewNop())
	// Must not block or panic with nobody connected.
	svc.Publish(NewProcessingEvent(types.EventProcessingStarted, testDoc(), types.StatusExtracting, ""))
}

func TestWebSocketServiceRemovesClientOnDisconnect(t *testing.T) {
	svc := NewWebSocketService(zap.NewNop())
	server := httptest.NewServer(http.HandlerFunc(svc.HandleEvents))
	defer server.Close()

	wsURL := "ws" + strings.TrimPrefix(server.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	conn.Close()

	require.Eventually(t, func() bool {
		svc.mu.Lock()
		defer svc.mu.Unlock()
		return len(svc.clients) == 0
	}, 2*time.Second, 10*time.Millisecond)
}
