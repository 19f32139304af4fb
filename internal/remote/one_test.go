package remote

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type avatar struct {
	AvatarURL *string `json:"avatar_url"`
}

type storyRow struct {
	ID       string      `json:"id"`
	Profiles One[avatar] `json:"profiles"`
}

func TestOneAcceptsEveryShape(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		present bool
		avatar  string
	}{
		{name: "missing", input: `{"id":"s1"}`},
		{name: "null", input: `{"id":"s1","profiles":null}`},
		{name: "empty array", input: `{"id":"s1","profiles":[]}`},
		{name: "object", input: `{"id":"s1","profiles":{"avatar_url":"a.png"}}`, present: true, avatar: "a.png"},
		{name: "one element array", input: `{"id":"s1","profiles":[{"avatar_url":"b.png"}]}`, present: true, avatar: "b.png"},
		{name: "extra elements dropped", input: `{"id":"s1","profiles":[{"avatar_url":"c.png"},{"avatar_url":"d.png"}]}`, present: true, avatar: "c.png"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var row storyRow
			require.NoError(t, json.Unmarshal([]byte(tt.input), &row))

			got, ok := row.Profiles.Get()
			assert.Equal(t, tt.present, ok)
			assert.LessOrEqual(t, len(row.Profiles.List()), 1)
			if tt.present {
				require.NotNil(t, got.AvatarURL)
				assert.Equal(t, tt.avatar, *got.AvatarURL)
			}
		})
	}
}

func TestOneMarshalsAsObjectOrNull(t *testing.T) {
	url := "a.png"
	b, err := json.Marshal(storyRow{ID: "s1", Profiles: Some(avatar{AvatarURL: &url})})
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":"s1","profiles":{"avatar_url":"a.png"}}`, string(b))

	b, err = json.Marshal(storyRow{ID: "s2"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":"s2","profiles":null}`, string(b))
}

func TestDecodeRows(t *testing.T) {
	rows := []Row{
		{"id": "s1", "profiles": []any{map[string]any{"avatar_url": "x.png"}}},
		{"id": "s2", "profiles": map[string]any{"avatar_url": nil}},
	}

	var out []storyRow
	require.NoError(t, Decode(rows, &out))
	require.Len(t, out, 2)

	p, ok := out[0].Profiles.Get()
	require.True(t, ok)
	assert.Equal(t, "x.png", *p.AvatarURL)

	p, ok = out[1].Profiles.Get()
	require.True(t, ok)
	assert.Nil(t, p.AvatarURL)
}

func TestBind(t *testing.T) {
	anon := Bind(nil, nil)
	u, err := anon.CurrentUser(t.Context())
	require.NoError(t, err)
	assert.Nil(t, u)

	signed := Bind(nil, &User{ID: "u1", Email: "u1@example.com"})
	u, err = signed.CurrentUser(t.Context())
	require.NoError(t, err)
	assert.Equal(t, "u1", u.ID)
}
