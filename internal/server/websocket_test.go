package server

import (
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"testing"
	"time"

	"petbuddies/internal/models"
	"petbuddies/internal/notifications"
	"petbuddies/internal/testutil"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWebsocketUpgradeRequired(t *testing.T) {
	srv, db := newTestServer(t)
	u := testutil.CreateUser(t, db)

	resp := doJSON(t, srv, http.MethodGet, "/api/ws", tokenFor(t, u), nil)
	assert.Equal(t, http.StatusUpgradeRequired, resp.StatusCode)
}

func TestWebsocketReceivesApplicationEvent(t *testing.T) {
	srv, db := newTestServer(t)
	owner := testutil.CreateUser(t, db)
	pet := testutil.CreatePet(t, db, owner.ID)
	post := testutil.CreatePost(t, db, owner.ID, testutil.FutureWindow(), pet.ID)
	sitter := testutil.CreateUser(t, db)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	app := srv.App()
	go func() { _ = app.Listener(ln) }()
	t.Cleanup(func() { _ = app.Shutdown() })

	base := ln.Addr().String()
	conn, _, err := websocket.DefaultDialer.Dial("ws://"+base+"/api/ws?token="+tokenFor(t, owner), nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	readEvent := func() notifications.Event {
		t.Helper()
		require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
		_, raw, err := conn.ReadMessage()
		require.NoError(t, err)
		var ev notifications.Event
		require.NoError(t, json.Unmarshal(raw, &ev))
		return ev
	}

	assert.Equal(t, connectedEvent, readEvent().Type)

	req, err := http.NewRequest(http.MethodPost, fmt.Sprintf("http://%s/api/posts/%d/applications", base, post.ID), nil)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+tokenFor(t, sitter))
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	_ = resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	ev := readEvent()
	assert.Equal(t, notifications.EventApplicationReceived, ev.Type)
	payload, ok := ev.Payload.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, float64(post.ID), payload["post_id"])
	assert.Equal(t, float64(sitter.ID), payload["user_id"])

	var apps int64
	require.NoError(t, db.Model(&models.PetCareApplication{}).Where("post_id = ?", post.ID).Count(&apps).Error)
	assert.Equal(t, int64(1), apps)
}
