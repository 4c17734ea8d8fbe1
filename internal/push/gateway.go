package push

import (
	"encoding/json"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"github.com/Achrafcosmo/arena-ai/internal/infrastructure"
)

const writeWait = 10 * time.Second

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

type client struct {
	conn *websocket.Conn
	send chan []byte
}

// Gateway bridges JetStream run events to websocket clients. Clients send
// {"action":"subscribe","topic":"arena.run.<id>.trade"}; the gateway holds
// one NATS subscription per topic and fans messages out to every client
// on it.
type Gateway struct {
	logger   *zap.Logger
	js       nats.JetStreamContext
	clients  map[*client]bool
	topics   map[string]map[*client]bool
	natsSubs map[string]*nats.Subscription
	mu       sync.RWMutex
}

func NewGateway(js nats.JetStreamContext, logger *zap.Logger) *Gateway {
	return &Gateway{
		logger:   logger,
		js:       js,
		clients:  make(map[*client]bool),
		topics:   make(map[string]map[*client]bool),
		natsSubs: make(map[string]*nats.Subscription),
	}
}

func (g *Gateway) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		g.logger.Error("failed to upgrade websocket", zap.Error(err))
		return
	}

	c := &client{
		conn: conn,
		send: make(chan []byte, 256),
	}

	g.mu.Lock()
	g.clients[c] = true
	g.mu.Unlock()
	infrastructure.WSConnections.Inc()

	go g.writePump(c)
	g.readPump(c)
}

type clientRequest struct {
	Action string `json:"action"` // "subscribe", "unsubscribe"
	Topic  string `json:"topic"`
}

// validTopic restricts clients to arena subjects. Wildcards stay allowed
// so a dashboard can follow every event of a run with one subscription.
func validTopic(topic string) bool {
	return strings.HasPrefix(topic, "arena.") && !strings.ContainsAny(topic, " \t")
}

func (g *Gateway) readPump(c *client) {
	defer func() {
		g.detach(c)
		infrastructure.WSConnections.Dec()
		c.conn.Close()
	}()

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			break
		}

		var req clientRequest
		if err := json.Unmarshal(message, &req); err != nil {
			continue
		}
		if !validTopic(req.Topic) {
			g.logger.Debug("rejected topic", zap.String("topic", req.Topic))
			continue
		}

		g.mu.Lock()
		switch req.Action {
		case "subscribe":
			if g.topics[req.Topic] == nil {
				g.topics[req.Topic] = make(map[*client]bool)
				if err := g.subscribeNATS(req.Topic); err != nil {
					g.logger.Error("failed to subscribe to NATS", zap.String("topic", req.Topic), zap.Error(err))
				}
			}
			g.topics[req.Topic][c] = true
			g.logger.Info("client subscribed to topic", zap.String("topic", req.Topic))
		case "unsubscribe":
			g.dropFromTopic(c, req.Topic)
		}
		g.mu.Unlock()
	}
}

// detach removes the client from every topic, drops NATS subscriptions
// that no longer have listeners and closes the send channel so the
// write pump exits. Called exactly once, from the read pump's defer;
// NATS delivery only sees clients while holding g.mu, so nothing can
// send after the close.
func (g *Gateway) detach(c *client) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.clients, c)
	for topic := range g.topics {
		g.dropFromTopic(c, topic)
	}
	close(c.send)
}

// dropFromTopic must be called with g.mu held.
func (g *Gateway) dropFromTopic(c *client, topic string) {
	clients, ok := g.topics[topic]
	if !ok {
		return
	}
	delete(clients, c)
	if len(clients) == 0 {
		if sub, ok := g.natsSubs[topic]; ok {
			sub.Unsubscribe()
			delete(g.natsSubs, topic)
			g.logger.Info("unsubscribed from NATS as no clients left", zap.String("topic", topic))
		}
		delete(g.topics, topic)
	}
}

func (g *Gateway) writePump(c *client) {
	defer c.conn.Close()
	for {
		message, ok := <-c.send
		if !ok {
			c.conn.WriteMessage(websocket.CloseMessage, []byte{})
			return
		}

		c.conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
			return
		}
	}
}

func (g *Gateway) subscribeNATS(topic string) error {
	sub, err := g.js.Subscribe(topic, func(msg *nats.Msg) {
		g.mu.RLock()
		clients := g.topics[topic]
		if clients == nil {
			g.mu.RUnlock()
			return
		}

		for c := range clients {
			select {
			case c.send <- msg.Data:
			default:
				// Do not block, just drop if channel is full
			}
		}
		g.mu.RUnlock()
		msg.Ack()
	}, nats.ManualAck(), nats.DeliverNew())

	if err != nil {
		return err
	}

	g.natsSubs[topic] = sub
	g.logger.Info("subscribed to NATS topic", zap.String("topic", topic))
	return nil
}
