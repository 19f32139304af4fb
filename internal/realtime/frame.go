package realtime

import (
	"encoding/json"
	"fmt"

	"github.com/anonto42/storyshare/backend/internal/remote"
)

const (
	frameSubscribe   = "subscribe"
	frameUnsubscribe = "unsubscribe"
	frameInsert      = "insert"
	frameError       = "error"
)

type filterFrame struct {
	Column string    `json:"column"`
	Op     remote.Op `json:"op"`
	Value  any       `json:"value"`
}

// outFrame is sent by the client to open or close a subscription.
type outFrame struct {
	Type     string       `json:"type"`
	ID       string       `json:"id"`
	Relation string       `json:"relation,omitempty"`
	Filter   *filterFrame `json:"filter,omitempty"`
}

// inFrame is pushed by the realtime endpoint.
type inFrame struct {
	Type     string     `json:"type"`
	ID       string     `json:"id"`
	Relation string     `json:"relation"`
	Record   remote.Row `json:"record"`
	Message  string     `json:"message"`
}

func subscribeFrame(sub *subscription) outFrame {
	return outFrame{
		Type:     frameSubscribe,
		ID:       sub.id,
		Relation: sub.relation,
		Filter: &filterFrame{
			Column: sub.filter.Column,
			Op:     sub.filter.Op,
			Value:  sub.filter.Value,
		},
	}
}

func parseFrame(data []byte) (*inFrame, error) {
	var f inFrame
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("unmarshal frame: %w", err)
	}
	if f.Type == "" {
		return nil, fmt.Errorf("frame without type")
	}
	if f.Type == frameInsert && f.Record == nil {
		return nil, fmt.Errorf("insert frame %s without record", f.ID)
	}
	return &f, nil
}
