package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/anonto42/storyshare/backend/internal/models"
	"github.com/anonto42/storyshare/backend/internal/remote"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Subscriber delivers insert events for the relational store. The realtime
// websocket client implements it.
type Subscriber interface {
	Subscribe(ctx context.Context, relation string, filter remote.Filter, fn func(remote.Event)) (remote.Subscription, error)
	Unsubscribe(sub remote.Subscription) error
}

// PostgresStore implements remote.Store for PostgreSQL through GORM. Like
// and comment counters are kept by the database's own triggers.
type PostgresStore struct {
	db       *gorm.DB
	realtime Subscriber
	logger   *zap.Logger
}

var _ remote.Store = (*PostgresStore)(nil)

// NewPostgresStore creates a new PostgresStore. realtime may be nil, in
// which case SubscribeInsert fails.
func NewPostgresStore(db *gorm.DB, realtime Subscriber, logger *zap.Logger) *PostgresStore {
	return &PostgresStore{db: db, realtime: realtime, logger: logger}
}

// Select runs q and attaches each embed as an object, or nil when the
// embedded row is missing.
func (s *PostgresStore) Select(ctx context.Context, q remote.Query) ([]remote.Row, error) {
	tx := s.db.WithContext(ctx).Table(q.Relation)
	if cols := selectColumns(q); len(cols) > 0 {
		tx = tx.Select(cols)
	}
	tx = where(tx, q.Filters)
	for _, o := range q.Order {
		tx = tx.Order(clause.OrderByColumn{Column: clause.Column{Name: o.Column}, Desc: o.Descending})
	}
	if q.Limit > 0 {
		tx = tx.Limit(q.Limit)
	}

	var found []map[string]any
	if err := tx.Find(&found).Error; err != nil {
		return nil, fmt.Errorf("select %s: %w", q.Relation, err)
	}

	rows := make([]remote.Row, len(found))
	for i, r := range found {
		rows[i] = normalize(r)
	}

	for _, e := range q.Embeds {
		if err := s.attach(ctx, rows, e); err != nil {
			return nil, err
		}
	}
	return rows, nil
}

// attach loads every embedded row for e with a single IN query.
func (s *PostgresStore) attach(ctx context.Context, rows []remote.Row, e remote.Embed) error {
	keys := make([]string, 0, len(rows))
	seen := make(map[string]struct{}, len(rows))
	for _, r := range rows {
		k, ok := r[e.LocalKey]
		if !ok || k == nil {
			continue
		}
		ks := fmt.Sprint(k)
		if _, dup := seen[ks]; dup {
			continue
		}
		seen[ks] = struct{}{}
		keys = append(keys, ks)
	}

	byKey := make(map[string]remote.Row, len(keys))
	if len(keys) > 0 {
		tx := s.db.WithContext(ctx).Table(e.Relation)
		if len(e.Columns) > 0 {
			tx = tx.Select(withColumn(e.Columns, e.ForeignKey))
		}
		var found []map[string]any
		if err := tx.Where(clause.IN{Column: clause.Column{Name: e.ForeignKey}, Values: toAny(keys)}).Find(&found).Error; err != nil {
			return fmt.Errorf("select %s embed %s: %w", e.Relation, e.Alias(), err)
		}
		for _, r := range found {
			row := normalize(r)
			byKey[fmt.Sprint(row[e.ForeignKey])] = row
		}
	}

	for _, r := range rows {
		var embedded any
		if k, ok := r[e.LocalKey]; ok && k != nil {
			if found, ok := byKey[fmt.Sprint(k)]; ok {
				embedded = map[string]any(found)
			}
		}
		r[e.Alias()] = embedded
	}
	return nil
}

// Count returns the number of matching rows.
func (s *PostgresStore) Count(ctx context.Context, relation string, filters ...remote.Filter) (int64, error) {
	var n int64
	if err := where(s.db.WithContext(ctx).Table(relation), filters).Count(&n).Error; err != nil {
		return 0, fmt.Errorf("count %s: %w", relation, err)
	}
	return n, nil
}

// Insert creates a row, filling id and created_at when the caller left them
// out. The database must be opened with TranslateError so unique violations
// come back as gorm.ErrDuplicatedKey.
func (s *PostgresStore) Insert(ctx context.Context, relation string, row remote.Row) (remote.Row, error) {
	stored := make(map[string]any, len(row)+2)
	for k, v := range row {
		stored[k] = v
	}
	if _, ok := stored["id"]; !ok && relation != models.RelStoryLikes {
		stored["id"] = uuid.NewString()
	}
	if _, ok := stored["created_at"]; !ok {
		stored["created_at"] = time.Now().UTC()
	}

	if err := s.db.WithContext(ctx).Table(relation).Create(stored).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, fmt.Errorf("insert %s: %w", relation, remote.ErrDuplicate)
		}
		return nil, fmt.Errorf("insert %s: %w", relation, err)
	}
	return remote.Row(stored), nil
}

// Update patches every matching row.
func (s *PostgresStore) Update(ctx context.Context, relation string, patch remote.Row, filters ...remote.Filter) error {
	if len(filters) == 0 {
		return fmt.Errorf("update %s: refusing to update without filters", relation)
	}
	if err := where(s.db.WithContext(ctx).Table(relation), filters).Updates(map[string]any(patch)).Error; err != nil {
		return fmt.Errorf("update %s: %w", relation, err)
	}
	return nil
}

// Delete removes every matching row.
func (s *PostgresStore) Delete(ctx context.Context, relation string, filters ...remote.Filter) (int64, error) {
	if len(filters) == 0 {
		return 0, fmt.Errorf("delete %s: refusing to delete without filters", relation)
	}
	res := s.db.WithContext(ctx).Exec("DELETE FROM ? WHERE ?", clause.Table{Name: relation}, clause.Where{Exprs: expressions(filters)})
	if res.Error != nil {
		return 0, fmt.Errorf("delete %s: %w", relation, res.Error)
	}
	return res.RowsAffected, nil
}

// SubscribeInsert forwards to the realtime subscriber.
func (s *PostgresStore) SubscribeInsert(ctx context.Context, relation string, filter remote.Filter, fn func(remote.Event)) (remote.Subscription, error) {
	if s.realtime == nil {
		return nil, fmt.Errorf("subscribe %s: realtime endpoint not configured", relation)
	}
	return s.realtime.Subscribe(ctx, relation, filter, fn)
}

// Unsubscribe forwards to the realtime subscriber.
func (s *PostgresStore) Unsubscribe(sub remote.Subscription) error {
	if s.realtime == nil {
		return nil
	}
	return s.realtime.Unsubscribe(sub)
}

func where(tx *gorm.DB, filters []remote.Filter) *gorm.DB {
	for _, e := range expressions(filters) {
		tx = tx.Where(e)
	}
	return tx
}

func expressions(filters []remote.Filter) []clause.Expression {
	exprs := make([]clause.Expression, 0, len(filters))
	for _, f := range filters {
		col := clause.Column{Name: f.Column}
		switch f.Op {
		case remote.OpNeq:
			exprs = append(exprs, clause.Neq{Column: col, Value: f.Value})
		case remote.OpIn:
			values, _ := f.Value.([]string)
			exprs = append(exprs, clause.IN{Column: col, Values: toAny(values)})
		default:
			// clause.Eq renders IS NULL for a nil value.
			exprs = append(exprs, clause.Eq{Column: col, Value: f.Value})
		}
	}
	return exprs
}

func selectColumns(q remote.Query) []string {
	if len(q.Columns) == 0 {
		return nil
	}
	cols := q.Columns
	for _, e := range q.Embeds {
		cols = withColumn(cols, e.LocalKey)
	}
	return cols
}

func withColumn(cols []string, col string) []string {
	for _, c := range cols {
		if c == col {
			return cols
		}
	}
	out := make([]string, len(cols), len(cols)+1)
	copy(out, cols)
	return append(out, col)
}

func toAny(values []string) []any {
	out := make([]any, len(values))
	for i, v := range values {
		out[i] = v
	}
	return out
}

// normalize converts driver values into JSON-friendly ones.
func normalize(r map[string]any) remote.Row {
	out := make(remote.Row, len(r))
	for k, v := range r {
		switch tv := v.(type) {
		case [16]byte:
			out[k] = uuid.UUID(tv).String()
		case []byte:
			out[k] = string(tv)
		default:
			out[k] = v
		}
	}
	return out
}
