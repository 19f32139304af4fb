// Package realtime subscribes to insert events pushed by the remote store's
// realtime websocket endpoint.
package realtime

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/anonto42/storyshare/backend/internal/remote"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const reconnectDelay = 5 * time.Second

type subscription struct {
	id       string
	relation string
	filter   remote.Filter
	fn       func(remote.Event)
}

func (s *subscription) ID() string { return s.id }

// Client keeps one websocket connection to the realtime endpoint and
// multiplexes insert subscriptions over it. Subscriptions registered while
// disconnected are sent once the connection comes up.
type Client struct {
	url    string
	logger *zap.Logger
	dialer *websocket.Dialer

	mu   sync.Mutex
	conn *websocket.Conn
	subs map[string]*subscription

	writeMu sync.Mutex
}

// NewClient creates a new realtime client. Call Start to connect.
func NewClient(url string, logger *zap.Logger) *Client {
	return &Client{
		url:    url,
		logger: logger,
		dialer: websocket.DefaultDialer,
		subs:   make(map[string]*subscription),
	}
}

// Start connects and dispatches events until the context is cancelled. It
// reconnects on transient errors and re-sends every live subscription.
func (c *Client) Start(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
			if err := c.run(ctx); err != nil && ctx.Err() == nil {
				c.logger.Error("realtime connection error, reconnecting", zap.Error(err))
				select {
				case <-ctx.Done():
					return ctx.Err()
				case <-time.After(reconnectDelay):
				}
			}
		}
	}
}

func (c *Client) run(ctx context.Context) error {
	c.logger.Info("connecting to realtime endpoint", zap.String("url", c.url))

	conn, _, err := c.dialer.DialContext(ctx, c.url, nil)
	if err != nil {
		return fmt.Errorf("dial realtime: %w", err)
	}
	defer conn.Close()

	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()

	c.mu.Lock()
	c.conn = conn
	pending := make([]*subscription, 0, len(c.subs))
	for _, sub := range c.subs {
		pending = append(pending, sub)
	}
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		if c.conn == conn {
			c.conn = nil
		}
		c.mu.Unlock()
	}()

	for _, sub := range pending {
		if err := c.write(conn, subscribeFrame(sub)); err != nil {
			return err
		}
	}

	c.logger.Info("connected to realtime endpoint", zap.Int("subscriptions", len(pending)))

	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			return fmt.Errorf("read message: %w", err)
		}

		frame, err := parseFrame(message)
		if err != nil {
			c.logger.Error("failed to parse realtime frame", zap.Error(err))
			continue
		}
		c.dispatch(frame)
	}
}

func (c *Client) dispatch(frame *inFrame) {
	switch frame.Type {
	case frameInsert:
		c.mu.Lock()
		sub, ok := c.subs[frame.ID]
		c.mu.Unlock()
		if !ok {
			return
		}
		sub.fn(remote.Event{Relation: sub.relation, Record: frame.Record})
	case frameError:
		c.logger.Warn("realtime endpoint reported an error",
			zap.String("subscription", frame.ID),
			zap.String("message", frame.Message),
		)
	}
}

// Subscribe registers fn for inserts into relation matching filter.
func (c *Client) Subscribe(_ context.Context, relation string, filter remote.Filter, fn func(remote.Event)) (remote.Subscription, error) {
	sub := &subscription{id: uuid.NewString(), relation: relation, filter: filter, fn: fn}

	c.mu.Lock()
	c.subs[sub.id] = sub
	conn := c.conn
	c.mu.Unlock()

	if conn != nil {
		if err := c.write(conn, subscribeFrame(sub)); err != nil {
			// The reconnect loop re-sends it.
			c.logger.Warn("failed to send subscribe frame", zap.String("relation", relation), zap.Error(err))
		}
	}
	return sub, nil
}

// Unsubscribe stops delivery for sub. Events already being dispatched may
// still arrive.
func (c *Client) Unsubscribe(sub remote.Subscription) error {
	if sub == nil {
		return nil
	}

	c.mu.Lock()
	_, ok := c.subs[sub.ID()]
	delete(c.subs, sub.ID())
	conn := c.conn
	c.mu.Unlock()

	if !ok || conn == nil {
		return nil
	}
	if err := c.write(conn, outFrame{Type: frameUnsubscribe, ID: sub.ID()}); err != nil {
		return fmt.Errorf("unsubscribe %s: %w", sub.ID(), err)
	}
	return nil
}

func (c *Client) write(conn *websocket.Conn, frame outFrame) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if err := conn.WriteJSON(frame); err != nil {
		return fmt.Errorf("write %s frame: %w", frame.Type, err)
	}
	return nil
}
