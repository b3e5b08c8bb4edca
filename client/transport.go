package client

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/coder/websocket"
)

// Transport is a persistent bidirectional message channel to the arena
// server. The controller owns exactly one transport at a time and swaps it
// wholesale on reconnection; transports are never shared.
type Transport interface {
	Send(ctx context.Context, frame Frame) error
	Receive(ctx context.Context) (Frame, error)
	Close() error
}

// Dialer opens a fresh Transport.
type Dialer func(ctx context.Context) (Transport, error)

type wsTransport struct {
	conn *websocket.Conn
}

// DialWebsocket returns a Dialer for the server's websocket endpoint.
func DialWebsocket(url string) Dialer {
	return func(ctx context.Context) (Transport, error) {
		conn, _, err := websocket.Dial(ctx, url, nil)
		if err != nil {
			return nil, fmt.Errorf("dial %s: %w", url, err)
		}
		conn.SetReadLimit(1 << 20)
		return &wsTransport{conn: conn}, nil
	}
}

func (t *wsTransport) Send(ctx context.Context, frame Frame) error {
	payload, err := json.Marshal(frame)
	if err != nil {
		return fmt.Errorf("encode %s: %w", frame.Type, err)
	}
	if err := t.conn.Write(ctx, websocket.MessageText, payload); err != nil {
		return fmt.Errorf("send %s: %w", frame.Type, err)
	}
	return nil
}

func (t *wsTransport) Receive(ctx context.Context) (Frame, error) {
	_, data, err := t.conn.Read(ctx)
	if err != nil {
		return Frame{}, err
	}
	var frame Frame
	if err := json.Unmarshal(data, &frame); err != nil {
		return Frame{}, fmt.Errorf("decode frame: %w", err)
	}
	return frame, nil
}

func (t *wsTransport) Close() error {
	return t.conn.Close(websocket.StatusNormalClosure, "bye")
}
