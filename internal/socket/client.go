package socket

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"study_eval/internal/errors"
)

const (
	TypeRequestAnalysis  = "requestAnalysis"
	TypeAnalysisProgress = "analysisProgress"

	writeWait = 5 * time.Second
)

// Message is the socket envelope: {"t": type, "d": data}.
type Message struct {
	T string          `json:"t"`
	D json.RawMessage `json:"d,omitempty"`
}

type Handler func(data json.RawMessage)

// Client is a study socket connection. Writes are serialized; reads happen
// in Run.
type Client struct {
	conn *websocket.Conn
	log  *zap.SugaredLogger

	writeMu sync.Mutex

	handlersMu sync.RWMutex
	handlers   map[string]Handler

	closeOnce sync.Once
	closed    chan struct{}
}

func Dial(ctx context.Context, url string, log *zap.SugaredLogger) (*Client, error) {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("dial socket %s: %w", url, err)
	}
	log.Infof("socket connected to %s", url)
	return NewClient(conn, log), nil
}

func NewClient(conn *websocket.Conn, log *zap.SugaredLogger) *Client {
	return &Client{
		conn:     conn,
		log:      log,
		handlers: make(map[string]Handler),
		closed:   make(chan struct{}),
	}
}

// On sets the handler for one message type, replacing any previous one.
func (c *Client) On(t string, h Handler) {
	c.handlersMu.Lock()
	defer c.handlersMu.Unlock()
	c.handlers[t] = h
}

func (c *Client) Send(t string, d any) error {
	select {
	case <-c.closed:
		return errors.ErrSocketClosed
	default:
	}

	msg := Message{T: t}
	if d != nil {
		raw, err := json.Marshal(d)
		if err != nil {
			return fmt.Errorf("encode %s: %w", t, err)
		}
		msg.D = raw
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := c.conn.WriteJSON(msg); err != nil {
		return fmt.Errorf("write %s: %w", t, err)
	}
	return nil
}

// RequestAnalysis sends the chapter id; the answer arrives as analysisProgress.
func (c *Client) RequestAnalysis(ctx context.Context, chapterID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return c.Send(TypeRequestAnalysis, chapterID)
}

// Run reads messages until the connection fails or ctx is done.
func (c *Client) Run(ctx context.Context) error {
	go func() {
		select {
		case <-ctx.Done():
			_ = c.Close()
		case <-c.closed:
		}
	}()

	for {
		var msg Message
		if err := c.conn.ReadJSON(&msg); err != nil {
			_ = c.Close()
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("read socket: %w", err)
		}

		c.handlersMu.RLock()
		h, ok := c.handlers[msg.T]
		c.handlersMu.RUnlock()
		if !ok {
			c.log.Debugf("socket: no handler for %q", msg.T)
			continue
		}
		h(msg.D)
	}
}

func (c *Client) Close() error {
	var err error
	c.closeOnce.Do(func() {
		close(c.closed)
		err = c.conn.Close()
	})
	return err
}
