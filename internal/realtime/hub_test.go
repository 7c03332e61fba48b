package realtime

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"teesheet/internal/middleware"
	"teesheet/internal/pkg/jwt"
)

func TestHubDeliversToSubscribedChannel(t *testing.T) {
	gin.SetMode(gin.TestMode)
	hub := NewHub()
	j := jwt.New("secret", time.Hour)

	r := gin.New()
	r.Use(middleware.JWTAuth(j))
	NewHandler(hub).RegisterRoutes(r)
	srv := httptest.NewServer(r)
	defer srv.Close()

	tok, err := j.GenerateToken(9, middleware.RoleDesk, "desk-1")
	require.NoError(t, err)
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/teesheet?token=" + tok + "&course=1&date=2026-05-04"

	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.Eventually(t, func() bool { return hub.Connected() == 1 }, time.Second, 10*time.Millisecond)

	hub.Notify(2, "2026-05-04", EventDraftUpdated, map[string]any{"flight_id": "other-course"})
	hub.Notify(1, "2026-05-04", EventDraftUpdated, map[string]any{"flight_id": "f1"})

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var ev Event
	require.NoError(t, conn.ReadJSON(&ev))
	assert.Equal(t, EventDraftUpdated, ev.Type)
	assert.Equal(t, "course:1:2026-05-04", ev.Channel)
	assert.Equal(t, "f1", ev.Payload.(map[string]any)["flight_id"])
}

func TestServeRejectsMissingToken(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(middleware.JWTAuth(jwt.New("secret", time.Hour)))
	NewHandler(NewHub()).RegisterRoutes(r)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest("GET", "/ws/teesheet?course=1&date=2026-05-04", nil))
	assert.Equal(t, 401, w.Code)
}
