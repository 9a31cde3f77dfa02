// Package status broadcasts short service messages to websocket clients.
package status

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	INFO = iota
	ERROR
)

type Message struct {
	Message string
	Time    time.Time
	Type    int
}

type client struct {
	conn *websocket.Conn
	send chan []byte
}

type Broadcaster struct {
	lock        sync.Mutex
	clients     map[*client]bool
	lastMessage []byte
	upgrader    websocket.Upgrader
}

func NewBroadcaster() *Broadcaster {
	return &Broadcaster{clients: make(map[*client]bool)}
}

func (b *Broadcaster) writePump(c *client) {
	ticker := time.NewTicker(time.Second * 30)
	defer func() {
		ticker.Stop()
		b.unregister(c)
		c.conn.Close()
	}()
	for {
		select {
		case msg, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(40 * time.Second))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				log.Printf("[status] ws write msg error: %v", err)
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(40 * time.Second))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				log.Printf("[status] ws write ping error: %v", err)
				return
			}
		}
	}
}

// readPump drains client frames so close and pong control messages are handled.
func (b *Broadcaster) readPump(c *client) {
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			b.unregister(c)
			return
		}
	}
}

func (b *Broadcaster) register(c *client) {
	b.lock.Lock()
	defer b.lock.Unlock()
	b.clients[c] = true
	if b.lastMessage != nil {
		c.send <- b.lastMessage
	}
}

func (b *Broadcaster) unregister(c *client) {
	b.lock.Lock()
	defer b.lock.Unlock()
	if b.clients[c] {
		delete(b.clients, c)
		close(c.send)
	}
}

func (b *Broadcaster) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := b.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[status] ws upgrade error: %v", err)
		return
	}
	c := &client{conn: conn, send: make(chan []byte, 32)}
	b.register(c)
	go b.writePump(c)
	go b.readPump(c)
}

func (b *Broadcaster) Status(msg string, _type int) {
	data, err := json.Marshal(&Message{Message: msg, Time: time.Now(), Type: _type})
	if err != nil {
		log.Printf("[status] marshal error: %v", err)
		return
	}

	b.lock.Lock()
	defer b.lock.Unlock()
	b.lastMessage = data
	for c := range b.clients {
		select {
		case c.send <- data:
		default:
			// slow client, drop it
			delete(b.clients, c)
			close(c.send)
		}
	}
}

func (b *Broadcaster) Info(format string, a ...interface{}) {
	b.Status(fmt.Sprintf(format, a...), INFO)
}

func (b *Broadcaster) Error(format string, a ...interface{}) {
	b.Status(fmt.Sprintf(format, a...), ERROR)
}
