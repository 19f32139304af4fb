// Package remote defines the contract the core uses to reach the remote
// relational store. The store is authoritative for every row; the core only
// keeps derived caches over it.
package remote

import (
	"context"
	"errors"
)

// ErrDuplicate is returned by Insert when the row violates a unique key.
var ErrDuplicate = errors.New("duplicate key")

// Row is a single relation row keyed by column name, with any embedded
// relations stored under their alias.
type Row map[string]any

// Op is a filter comparison operator.
type Op string

const (
	OpEq  Op = "eq"
	OpNeq Op = "neq"
	OpIn  Op = "in"
	// OpIs matches null (Value nil) or a boolean exactly.
	OpIs Op = "is"
)

// Filter restricts rows by one column.
type Filter struct {
	Column string
	Op     Op
	Value  any
}

// Eq builds an equality filter.
func Eq(column string, value any) Filter {
	return Filter{Column: column, Op: OpEq, Value: value}
}

// Neq builds an inequality filter.
func Neq(column string, value any) Filter {
	return Filter{Column: column, Op: OpNeq, Value: value}
}

// In builds a set-membership filter over string ids.
func In(column string, values []string) Filter {
	return Filter{Column: column, Op: OpIn, Value: values}
}

// Is builds a null or boolean identity filter.
func Is(column string, value any) Filter {
	return Filter{Column: column, Op: OpIs, Value: value}
}

// Order sorts results by one column.
type Order struct {
	Column     string
	Descending bool
}

// Embed joins a to-one relation into each result row. The embedded row is
// found where Relation.ForeignKey equals the parent's LocalKey and is stored
// on the parent under As (Relation when As is empty).
type Embed struct {
	Relation   string
	As         string
	LocalKey   string
	ForeignKey string
	Columns    []string
}

// Alias returns the key the embedded row is stored under.
func (e Embed) Alias() string {
	if e.As != "" {
		return e.As
	}
	return e.Relation
}

// Query describes a select. Empty Columns selects every column; Limit <= 0
// means no limit.
type Query struct {
	Relation string
	Columns  []string
	Filters  []Filter
	Order    []Order
	Limit    int
	Embeds   []Embed
}

// Event is delivered for every row inserted into a subscribed relation.
type Event struct {
	Relation string
	Record   Row
}

// Subscription identifies a live insert subscription.
type Subscription interface {
	ID() string
}

// Store is the data side of the remote store.
type Store interface {
	// Select returns the rows matching q, with q.Embeds attached.
	Select(ctx context.Context, q Query) ([]Row, error)

	// Count returns how many rows of relation match filters.
	Count(ctx context.Context, relation string, filters ...Filter) (int64, error)

	// Insert adds row to relation and returns the stored row, including
	// store-assigned columns. A unique key violation yields ErrDuplicate.
	Insert(ctx context.Context, relation string, row Row) (Row, error)

	// Update applies patch to every matching row.
	Update(ctx context.Context, relation string, patch Row, filters ...Filter) error

	// Delete removes every matching row and reports how many were removed.
	Delete(ctx context.Context, relation string, filters ...Filter) (int64, error)

	// SubscribeInsert calls fn for each row inserted into relation that
	// matches filter. fn may be called from any goroutine.
	SubscribeInsert(ctx context.Context, relation string, filter Filter, fn func(Event)) (Subscription, error)

	// Unsubscribe stops deliveries for sub. No call to the subscription's
	// callback starts after Unsubscribe returns.
	Unsubscribe(sub Subscription) error
}

// User is the identity the store's session belongs to.
type User struct {
	ID    string
	Email string
}

// Client is a Store acting for a session.
type Client interface {
	Store

	// CurrentUser returns the signed-in user, or nil for an anonymous
	// session.
	CurrentUser(ctx context.Context) (*User, error)
}
