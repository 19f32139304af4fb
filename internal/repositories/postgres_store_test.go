package repositories

import (
	"testing"

	"github.com/anonto42/storyshare/backend/internal/remote"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm/clause"
)

func TestExpressions(t *testing.T) {
	exprs := expressions([]remote.Filter{
		remote.Eq("recipient_id", "u1"),
		remote.Is("read", false),
		remote.Neq("actor_id", "u1"),
		remote.In("story_id", []string{"s1", "s2"}),
		remote.Is("avatar_url", nil),
	})

	assert.Equal(t, []clause.Expression{
		clause.Eq{Column: clause.Column{Name: "recipient_id"}, Value: "u1"},
		clause.Eq{Column: clause.Column{Name: "read"}, Value: false},
		clause.Neq{Column: clause.Column{Name: "actor_id"}, Value: "u1"},
		clause.IN{Column: clause.Column{Name: "story_id"}, Values: []any{"s1", "s2"}},
		clause.Eq{Column: clause.Column{Name: "avatar_url"}, Value: nil},
	}, exprs)
}

func TestSelectColumnsAddsEmbedKeys(t *testing.T) {
	q := remote.Query{
		Columns: []string{"id", "title"},
		Embeds: []remote.Embed{
			{Relation: "profiles", LocalKey: "author_id", ForeignKey: "id"},
			{Relation: "profiles", As: "again", LocalKey: "author_id", ForeignKey: "id"},
		},
	}
	assert.Equal(t, []string{"id", "title", "author_id"}, selectColumns(q))
	assert.Nil(t, selectColumns(remote.Query{}))
	assert.Equal(t, []string{"id", "title"}, q.Columns)
}

func TestNormalize(t *testing.T) {
	id := uuid.New()
	row := normalize(map[string]any{"id": [16]byte(id), "name": []byte("ada"), "n": int64(3)})
	assert.Equal(t, remote.Row{"id": id.String(), "name": "ada", "n": int64(3)}, row)
}

func TestCounterTriggerSQL(t *testing.T) {
	stmts := counterTriggers[0].sql()
	require.Len(t, stmts, 3)
	assert.Contains(t, stmts[0], "UPDATE stories SET like_count = like_count + 1 WHERE id = NEW.story_id")
	assert.Contains(t, stmts[0], "GREATEST(like_count - 1, 0) WHERE id = OLD.story_id")
	assert.Equal(t, "DROP TRIGGER IF EXISTS story_likes_like_count_counter ON story_likes", stmts[1])
	assert.Contains(t, stmts[2], "AFTER INSERT OR DELETE ON story_likes")
}
