// Package memstore is an in-process remote.Store. It keeps rows as maps,
// enforces unique keys, maintains the like and comment counters the real
// backend keeps with triggers, and fans inserts out to subscribers. The
// server runs on it in memory mode and tests use it as the fake backend.
package memstore

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/anonto42/storyshare/backend/internal/models"
	"github.com/anonto42/storyshare/backend/internal/remote"
	"github.com/google/uuid"
)

// Call describes one store operation, as seen by a Hook.
type Call struct {
	Op       string
	Relation string
}

// Hook runs before every operation. A non-nil error fails the operation
// before it touches any row. Hooks may block to hold an operation in flight.
type Hook func(ctx context.Context, call Call) error

type counter struct {
	child     string
	parentKey string
	parent    string
	column    string
}

type subscriber struct {
	id       string
	relation string
	filter   remote.Filter
	fn       func(remote.Event)

	mu     sync.RWMutex
	closed bool
}

func (s *subscriber) ID() string { return s.id }

// Store is an in-memory remote.Store. The zero value is not usable; call New.
type Store struct {
	mu       sync.Mutex
	rows     map[string][]remote.Row
	unique   map[string][][]string
	counters []counter
	subs     map[string]*subscriber
	calls    map[Call]int
	hook     Hook
	now      func() time.Time
}

var _ remote.Store = (*Store)(nil)

// New returns an empty store with the story schema's unique keys and
// counters installed.
func New() *Store {
	s := &Store{
		rows:   make(map[string][]remote.Row),
		unique: make(map[string][][]string),
		subs:   make(map[string]*subscriber),
		calls:  make(map[Call]int),
		now:    func() time.Time { return time.Now().UTC() },
	}
	s.Unique(models.RelStoryLikes, "user_id", "story_id")
	s.Counter(models.RelStoryLikes, "story_id", models.RelStories, "like_count")
	s.Counter(models.RelComments, "story_id", models.RelStories, "comment_count")
	return s
}

// Unique declares a unique key over columns of relation.
func (s *Store) Unique(relation string, columns ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.unique[relation] = append(s.unique[relation], columns)
}

// Counter keeps parent.column equal to the number of child rows whose
// parentKey points at the parent's id.
func (s *Store) Counter(child, parentKey, parent, column string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.counters = append(s.counters, counter{child: child, parentKey: parentKey, parent: parent, column: column})
}

// SetHook installs h, replacing any previous hook. A nil h removes it.
func (s *Store) SetHook(h Hook) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hook = h
}

// SetClock replaces the clock used for created_at defaults.
func (s *Store) SetClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

// Calls reports how many times op ran against relation, failed calls
// included.
func (s *Store) Calls(op, relation string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[Call{Op: op, Relation: relation}]
}

// Seed stores rows verbatim, bypassing hooks, counters and subscribers.
func (s *Store) Seed(relation string, rows ...remote.Row) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range rows {
		s.rows[relation] = append(s.rows[relation], clone(r))
	}
}

// Rows returns a copy of every row in relation.
func (s *Store) Rows(relation string) []remote.Row {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]remote.Row, 0, len(s.rows[relation]))
	for _, r := range s.rows[relation] {
		out = append(out, clone(r))
	}
	return out
}

func (s *Store) enter(ctx context.Context, op, relation string) error {
	call := Call{Op: op, Relation: relation}
	s.mu.Lock()
	s.calls[call]++
	hook := s.hook
	s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}
	if hook != nil {
		return hook(ctx, call)
	}
	return nil
}

// Select implements remote.Store.
func (s *Store) Select(ctx context.Context, q remote.Query) ([]remote.Row, error) {
	if err := s.enter(ctx, "select", q.Relation); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var matched []remote.Row
	for _, r := range s.rows[q.Relation] {
		if matchesAll(r, q.Filters) {
			matched = append(matched, r)
		}
	}

	if len(q.Order) > 0 {
		sort.SliceStable(matched, func(i, j int) bool {
			for _, o := range q.Order {
				c := compare(matched[i][o.Column], matched[j][o.Column])
				if c == 0 {
					continue
				}
				if o.Descending {
					return c > 0
				}
				return c < 0
			}
			return false
		})
	}

	if q.Limit > 0 && len(matched) > q.Limit {
		matched = matched[:q.Limit]
	}

	out := make([]remote.Row, len(matched))
	for i, r := range matched {
		row := project(r, q.Columns)
		for _, e := range q.Embeds {
			row[e.Alias()] = s.embedLocked(r, e)
		}
		out[i] = row
	}
	return out, nil
}

// embedLocked returns the embedded row as a list of zero or one element,
// the shape a PostgREST-style backend uses for ambiguous joins.
func (s *Store) embedLocked(parent remote.Row, e remote.Embed) []any {
	key, ok := parent[e.LocalKey]
	if !ok || key == nil {
		return []any{}
	}
	for _, r := range s.rows[e.Relation] {
		if equal(r[e.ForeignKey], key) {
			return []any{map[string]any(project(r, e.Columns))}
		}
	}
	return []any{}
}

// Count implements remote.Store.
func (s *Store) Count(ctx context.Context, relation string, filters ...remote.Filter) (int64, error) {
	if err := s.enter(ctx, "count", relation); err != nil {
		return 0, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var n int64
	for _, r := range s.rows[relation] {
		if matchesAll(r, filters) {
			n++
		}
	}
	return n, nil
}

// Insert implements remote.Store.
func (s *Store) Insert(ctx context.Context, relation string, row remote.Row) (remote.Row, error) {
	if err := s.enter(ctx, "insert", relation); err != nil {
		return nil, err
	}

	s.mu.Lock()
	stored := clone(row)
	if _, ok := stored["id"]; !ok && relation != models.RelStoryLikes {
		stored["id"] = uuid.NewString()
	}
	if _, ok := stored["created_at"]; !ok {
		stored["created_at"] = s.now()
	}

	for _, cols := range s.unique[relation] {
		for _, existing := range s.rows[relation] {
			if sameKey(existing, stored, cols) {
				s.mu.Unlock()
				return nil, fmt.Errorf("insert %s (%s): %w", relation, strings.Join(cols, ", "), remote.ErrDuplicate)
			}
		}
	}

	s.rows[relation] = append(s.rows[relation], stored)
	s.bumpLocked(relation, stored, 1)

	var targets []*subscriber
	for _, sub := range s.subs {
		if sub.relation == relation && matches(stored, sub.filter) {
			targets = append(targets, sub)
		}
	}
	result := clone(stored)
	s.mu.Unlock()

	for _, sub := range targets {
		sub.deliver(remote.Event{Relation: relation, Record: clone(stored)})
	}
	return result, nil
}

func (sub *subscriber) deliver(ev remote.Event) {
	sub.mu.RLock()
	defer sub.mu.RUnlock()
	if sub.closed {
		return
	}
	sub.fn(ev)
}

// Update implements remote.Store.
func (s *Store) Update(ctx context.Context, relation string, patch remote.Row, filters ...remote.Filter) error {
	if err := s.enter(ctx, "update", relation); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, r := range s.rows[relation] {
		if !matchesAll(r, filters) {
			continue
		}
		for k, v := range patch {
			r[k] = v
		}
	}
	return nil
}

// Delete implements remote.Store.
func (s *Store) Delete(ctx context.Context, relation string, filters ...remote.Filter) (int64, error) {
	if err := s.enter(ctx, "delete", relation); err != nil {
		return 0, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	kept := s.rows[relation][:0]
	var removed []remote.Row
	for _, r := range s.rows[relation] {
		if matchesAll(r, filters) {
			removed = append(removed, r)
			continue
		}
		kept = append(kept, r)
	}
	s.rows[relation] = kept
	for _, r := range removed {
		s.bumpLocked(relation, r, -1)
	}
	return int64(len(removed)), nil
}

func (s *Store) bumpLocked(relation string, child remote.Row, delta int) {
	for _, c := range s.counters {
		if c.child != relation {
			continue
		}
		for _, parent := range s.rows[c.parent] {
			if !equal(parent["id"], child[c.parentKey]) {
				continue
			}
			n := toInt(parent[c.column]) + delta
			if n < 0 {
				n = 0
			}
			parent[c.column] = n
		}
	}
}

// SubscribeInsert implements remote.Store. Events are delivered on the
// inserting goroutine after the insert is committed.
func (s *Store) SubscribeInsert(ctx context.Context, relation string, filter remote.Filter, fn func(remote.Event)) (remote.Subscription, error) {
	if err := s.enter(ctx, "subscribe", relation); err != nil {
		return nil, err
	}

	sub := &subscriber{id: uuid.NewString(), relation: relation, filter: filter, fn: fn}
	s.mu.Lock()
	s.subs[sub.id] = sub
	s.mu.Unlock()
	return sub, nil
}

// Unsubscribe implements remote.Store. It waits for a running delivery to
// finish, so it must not be called from inside the subscription callback.
func (s *Store) Unsubscribe(handle remote.Subscription) error {
	s.mu.Lock()
	sub, ok := s.subs[handle.ID()]
	delete(s.subs, handle.ID())
	s.mu.Unlock()
	if !ok {
		return nil
	}

	sub.mu.Lock()
	sub.closed = true
	sub.mu.Unlock()
	return nil
}

// Subscribers reports the number of live subscriptions.
func (s *Store) Subscribers() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.subs)
}
