package orderControllers

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/MrPsycho237/digimarketstore/models"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFeedBroadcast(t *testing.T) {
	gin.SetMode(gin.TestMode)
	feed := NewFeed()
	defer feed.Close()

	r := gin.New()
	r.GET("/ws", OrderWebSocketHandler(feed))
	srv := httptest.NewServer(r)
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.Eventually(t, func() bool { return feed.Len() == 1 }, time.Second, 10*time.Millisecond)

	feed.OrderPlaced(models.Order{ID: "o-1", Status: models.OrderStatusCompleted})

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var msg feedMessage
	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, EventOrderPlaced, msg.Type)
	assert.Equal(t, "o-1", msg.Order.ID)

	conn.Close()
	require.Eventually(t, func() bool { return feed.Len() == 0 }, time.Second, 10*time.Millisecond)
}

func TestFeedBroadcastNeverBlocks(t *testing.T) {
	// no writer goroutine: the queue only fills
	feed := newFeed(1)

	feed.OrderPlaced(models.Order{ID: "o-1"})
	feed.OrderPlaced(models.Order{ID: "o-2"})
	feed.Broadcast(EventOrderUpdated, models.Order{ID: "o-3"})
	require.Len(t, feed.events, 1)
	assert.Equal(t, "o-1", (<-feed.events).Order.ID)

	require.NoError(t, feed.Close())
	require.NoError(t, feed.Close())
	feed.OrderPlaced(models.Order{ID: "o-4"})
	assert.Empty(t, feed.events)
}
