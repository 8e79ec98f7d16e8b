// Package bus connects the assistant to a websocket message hub. Utterance
// messages come in, dispatch replies go back out.
package bus

import (
	"encoding/json"
	log "log/slog"
	"net/url"
	"time"

	"github.com/gorilla/websocket"
)

// Message is one frame on the hub.
type Message struct {
	From    string `json:"from"`
	To      string `json:"to"`
	Kind    string `json:"kind"`
	Content string `json:"content"`
}

// Utterance messages carry user text; reply frames carry the response.
const (
	KindUtterance = "utterance"
	KindReply     = "reply"
)

type Bus struct {
	conn *websocket.Conn
}

func Dial(wsURL string) (*Bus, error) {
	u, err := url.Parse(wsURL)
	if err != nil {
		return nil, err
	}

	conn, _, err := websocket.DefaultDialer.Dial(u.String(), nil)
	if err != nil {
		return nil, err
	}

	log.Info("Connected to bus", "url", wsURL)
	return &Bus{conn: conn}, nil
}

func (b *Bus) Read() (*Message, error) {
	_, msg, err := b.conn.ReadMessage()
	if err != nil {
		return nil, err
	}

	var m Message
	if err := json.Unmarshal(msg, &m); err != nil {
		return nil, err
	}
	return &m, nil
}

func (b *Bus) Write(m *Message) error {
	data, err := json.Marshal(m)
	if err != nil {
		return err
	}
	return b.conn.WriteMessage(websocket.TextMessage, data)
}

func (b *Bus) Close() error { return b.conn.Close() }

// Serve reads utterance frames and replies through dispatch until the
// connection drops. It returns the read error so callers can reconnect.
func (b *Bus) Serve(name string, dispatch func(text string) (string, bool)) error {
	for {
		m, err := b.Read()
		if err != nil {
			return err
		}
		if m.Kind != KindUtterance {
			continue
		}

		reply, ok := dispatch(m.Content)
		if !ok {
			// Asleep; drop silently.
			continue
		}
		out := &Message{From: name, To: m.From, Kind: KindReply, Content: reply}
		if err := b.Write(out); err != nil {
			return err
		}
	}
}

// Run keeps a bus connection alive, redialing with a fixed backoff.
func Run(wsURL, name string, dispatch func(text string) (string, bool)) {
	for {
		b, err := Dial(wsURL)
		if err != nil {
			log.Warn("Bus dial failed", "err", err)
			time.Sleep(5 * time.Second)
			continue
		}
		if err := b.Serve(name, dispatch); err != nil {
			log.Warn("Bus connection lost", "err", err)
		}
		b.Close()
		time.Sleep(5 * time.Second)
	}
}
