package handler_test

import (
	"bufio"
	"context"
	"errors"
	"net"
	"net/http"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"

	"github.com/ecolearn/ecolearn-api/internal/dto"
	"github.com/ecolearn/ecolearn-api/internal/models"
	"github.com/ecolearn/ecolearn-api/internal/service"
)

func startServer(t *testing.T, app *fiber.App) string {
	t.Helper()

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	done := make(chan struct{})
	go func() {
		if err := app.Listener(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			t.Logf("fiber listener stopped: %v", err)
		}
		close(done)
	}()
	time.Sleep(50 * time.Millisecond)

	t.Cleanup(func() {
		_ = app.ShutdownWithTimeout(time.Second)
		select {
		case <-done:
		case <-time.After(time.Second):
		}
	})

	return listener.Addr().String()
}

func TestNotificationInboxLifecycle(t *testing.T) {
	env := newTestEnv(t)
	teacher := env.teacher(t, "rina")
	token := tokenFor(t, teacher)
	ctx := context.Background()

	first, err := env.notifications.Publish(ctx, service.NotificationInput{UserID: teacher.ID, Type: models.NotificationTypeAssignmentPublished, Title: "Welcome", Message: "Hello <b>there</b>"})
	require.NoError(t, err)
	_, err = env.notifications.Publish(ctx, service.NotificationInput{UserID: teacher.ID, Type: models.NotificationTypeAssignmentPublished, Title: "Reminder", Message: "Grade the compost reports"})
	require.NoError(t, err)

	var inbox dto.NotificationListResponse
	expectStatus(t, doJSON(t, env.app, http.MethodGet, "/api/v1/notifications", token, nil), fiber.StatusOK, &inbox)
	require.Len(t, inbox.Items, 2)
	require.EqualValues(t, 2, inbox.Unread)

	var read dto.NotificationResponse
	expectStatus(t, doJSON(t, env.app, http.MethodPatch, "/api/v1/notifications/"+strconv.FormatUint(uint64(first.ID), 10)+"/read", token, nil), fiber.StatusOK, &read)
	require.True(t, read.Read)

	expectStatus(t, doJSON(t, env.app, http.MethodGet, "/api/v1/notifications?unread=true", token, nil), fiber.StatusOK, &inbox)
	require.Len(t, inbox.Items, 1)

	var updated struct {
		Updated int64 `json:"updated"`
	}
	expectStatus(t, doJSON(t, env.app, http.MethodPatch, "/api/v1/notifications/read-all", token, nil), fiber.StatusOK, &updated)
	require.EqualValues(t, 1, updated.Updated)

	// another account cannot touch the notification
	other := env.teacher(t, "budi")
	expectStatus(t, doJSON(t, env.app, http.MethodPatch, "/api/v1/notifications/"+strconv.FormatUint(uint64(first.ID), 10)+"/read", tokenFor(t, other), nil), fiber.StatusNotFound, nil)
}

func TestNotificationWebsocketDeliversPublishedEvents(t *testing.T) {
	env := newTestEnv(t)
	teacher := env.teacher(t, "rina")
	addr := startServer(t, env.app)

	dialer := websocket.Dialer{HandshakeTimeout: 3 * time.Second}
	conn, resp, err := dialer.Dial("ws://"+addr+"/api/v1/notifications/ws?access_token="+tokenFor(t, teacher), nil)
	require.NoError(t, err)
	if resp != nil {
		_ = resp.Body.Close()
	}
	defer conn.Close()

	time.Sleep(50 * time.Millisecond)
	published, err := env.notifications.Publish(context.Background(), service.NotificationInput{UserID: teacher.ID, Type: models.NotificationTypeAssignmentPublished, Title: "Live", Message: "Realtime hello"})
	require.NoError(t, err)

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var frame dto.NotificationResponse
	require.NoError(t, conn.ReadJSON(&frame))
	require.Equal(t, published.ID, frame.ID)
	require.Equal(t, "Live", frame.Title)

	_, resp, err = dialer.Dial("ws://"+addr+"/api/v1/notifications/ws", nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	require.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
}

func TestNotificationStreamWritesServerSentEvents(t *testing.T) {
	env := newTestEnv(t)
	teacher := env.teacher(t, "rina")
	addr := startServer(t, env.app)

	req, err := http.NewRequest(http.MethodGet, "http://"+addr+"/api/v1/notifications/stream", nil)
	require.NoError(t, err)
	req.Header.Set(fiber.HeaderAuthorization, "Bearer "+tokenFor(t, teacher))

	client := &http.Client{Timeout: 5 * time.Second}
	resp, err := client.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	require.Contains(t, resp.Header.Get(fiber.HeaderContentType), "text/event-stream")

	go func() {
		time.Sleep(100 * time.Millisecond)
		_, _ = env.notifications.Publish(context.Background(), service.NotificationInput{UserID: teacher.ID, Type: models.NotificationTypeAssignmentPublished, Title: "Streamed", Message: "via sse"})
	}()

	reader := bufio.NewReader(resp.Body)
	deadline := time.Now().Add(3 * time.Second)
	for {
		require.True(t, time.Now().Before(deadline), "timed out waiting for notification event")
		line, err := reader.ReadString('\n')
		require.NoError(t, err)
		if strings.HasPrefix(line, "data:") {
			require.Contains(t, line, `"title":"Streamed"`)
			return
		}
	}
}
