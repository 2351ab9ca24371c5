package orderControllers

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/MrPsycho237/digimarketstore/models"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

const (
	EventOrderPlaced  = "order_placed"
	EventOrderUpdated = "order_updated"

	writeWait = 10 * time.Second
	queueSize = 64
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

type feedMessage struct {
	Type  string       `json:"type"`
	Order models.Order `json:"order"`
}

// Feed pushes order events to connected admin dashboards. Events are queued and
// written by a single goroutine, so publishers never wait on a slow client.
type Feed struct {
	mu      sync.Mutex
	clients map[*websocket.Conn]*sync.Mutex

	events    chan feedMessage
	done      chan struct{}
	closeOnce sync.Once
}

func NewFeed() *Feed {
	f := newFeed(queueSize)
	go f.run()
	return f
}

func newFeed(size int) *Feed {
	return &Feed{
		clients: make(map[*websocket.Conn]*sync.Mutex),
		events:  make(chan feedMessage, size),
		done:    make(chan struct{}),
	}
}

// OrderPlaced matches store.OrderObserver.
func (f *Feed) OrderPlaced(order models.Order) {
	f.Broadcast(EventOrderPlaced, order)
}

// Broadcast queues an event. When the queue is full the event is dropped.
func (f *Feed) Broadcast(eventType string, order models.Order) {
	select {
	case <-f.done:
		return
	default:
	}
	select {
	case f.events <- feedMessage{Type: eventType, Order: order}:
	default:
		log.Printf("⚠️ Order feed queue full, dropping %s for order %s", eventType, order.ID)
	}
}

func (f *Feed) run() {
	for {
		select {
		case <-f.done:
			return
		case msg := <-f.events:
			f.send(msg)
		}
	}
}

func (f *Feed) send(msg feedMessage) {
	data, err := json.Marshal(msg)
	if err != nil {
		return
	}

	f.mu.Lock()
	conns := make(map[*websocket.Conn]*sync.Mutex, len(f.clients))
	for conn, wmu := range f.clients {
		conns[conn] = wmu
	}
	f.mu.Unlock()

	for conn, wmu := range conns {
		wmu.Lock()
		conn.SetWriteDeadline(time.Now().Add(writeWait))
		err := conn.WriteMessage(websocket.TextMessage, data)
		wmu.Unlock()
		if err != nil {
			f.remove(conn)
		}
	}
}

func (f *Feed) Len() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.clients)
}

// Close stops the writer and disconnects every client.
func (f *Feed) Close() error {
	f.closeOnce.Do(func() { close(f.done) })

	f.mu.Lock()
	conns := f.clients
	f.clients = make(map[*websocket.Conn]*sync.Mutex)
	f.mu.Unlock()

	for conn := range conns {
		conn.Close()
	}
	return nil
}

func (f *Feed) add(conn *websocket.Conn) {
	f.mu.Lock()
	f.clients[conn] = &sync.Mutex{}
	f.mu.Unlock()
}

func (f *Feed) remove(conn *websocket.Conn) {
	f.mu.Lock()
	_, ok := f.clients[conn]
	delete(f.clients, conn)
	f.mu.Unlock()
	if ok {
		conn.Close()
	}
}

// GET /admin/orders/ws
func OrderWebSocketHandler(feed *Feed) gin.HandlerFunc {
	return func(c *gin.Context) {
		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			log.Println("❌ WebSocket upgrade failed:", err)
			return
		}
		feed.add(conn)
		defer feed.remove(conn)

		// reads only detect the client going away
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				break
			}
		}
	}
}
