package realtime

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/anonto42/storyshare/backend/internal/remote"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func TestParseFrame(t *testing.T) {
	tests := []struct {
		name    string
		data    string
		want    *inFrame
		wantErr bool
	}{
		{
			name: "insert",
			data: `{"type":"insert","id":"sub-1","relation":"notifications","record":{"id":"n1","recipient_id":"u1"}}`,
			want: &inFrame{Type: "insert", ID: "sub-1", Relation: "notifications", Record: remote.Row{"id": "n1", "recipient_id": "u1"}},
		},
		{
			name: "error",
			data: `{"type":"error","id":"sub-1","message":"relation not found"}`,
			want: &inFrame{Type: "error", ID: "sub-1", Message: "relation not found"},
		},
		{name: "insert without record", data: `{"type":"insert","id":"sub-1"}`, wantErr: true},
		{name: "missing type", data: `{"id":"sub-1"}`, wantErr: true},
		{name: "not json", data: `hello`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseFrame([]byte(tt.data))
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

// fakeEndpoint answers every subscribe frame with one insert event that
// echoes the filter value.
func fakeEndpoint(t *testing.T, unsubscribed chan<- string) *httptest.Server {
	upgrader := websocket.Upgrader{}
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade: %v", err)
			return
		}
		defer conn.Close()

		for {
			var f outFrame
			if err := conn.ReadJSON(&f); err != nil {
				return
			}
			switch f.Type {
			case frameSubscribe:
				_ = conn.WriteJSON(map[string]any{
					"type":     frameInsert,
					"id":       f.ID,
					"relation": f.Relation,
					"record":   map[string]any{"id": "n1", f.Filter.Column: f.Filter.Value},
				})
			case frameUnsubscribe:
				unsubscribed <- f.ID
			}
		}
	}))
}

func TestClientDeliversInserts(t *testing.T) {
	unsubscribed := make(chan string, 1)
	srv := fakeEndpoint(t, unsubscribed)
	defer srv.Close()

	client := NewClient("ws"+strings.TrimPrefix(srv.URL, "http"), zaptest.NewLogger(t))

	events := make(chan remote.Event, 1)
	sub, err := client.Subscribe(t.Context(), "notifications", remote.Eq("recipient_id", "u1"), func(e remote.Event) {
		events <- e
	})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(t.Context())
	done := make(chan error, 1)
	go func() { done <- client.Start(ctx) }()

	select {
	case e := <-events:
		assert.Equal(t, "notifications", e.Relation)
		assert.Equal(t, "u1", e.Record["recipient_id"])
	case <-time.After(5 * time.Second):
		t.Fatal("no event delivered")
	}

	require.NoError(t, client.Unsubscribe(sub))
	select {
	case id := <-unsubscribed:
		assert.Equal(t, sub.ID(), id)
	case <-time.After(5 * time.Second):
		t.Fatal("unsubscribe frame not sent")
	}

	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(5 * time.Second):
		t.Fatal("client did not stop")
	}
}
