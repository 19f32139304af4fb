package validators

import (
	"strings"
	"testing"

	"github.com/anonto42/storyshare/backend/internal/models"
	"github.com/stretchr/testify/assert"
)

func TestCommentRequest(t *testing.T) {
	v := NewValidator()

	tests := []struct {
		text  string
		valid bool
	}{
		{"a kind word", true},
		{"", false},
		{"   \t\n", false},
		{strings.Repeat("x", 1000), true},
		{strings.Repeat("x", 1001), false},
	}
	for _, tt := range tests {
		err := v.Validate(models.CreateCommentRequest{Text: tt.text})
		if tt.valid {
			assert.NoError(t, err, tt.text)
		} else {
			assert.Error(t, err, tt.text)
		}
	}
}

func TestFeedQuery(t *testing.T) {
	v := NewValidator()

	assert.NoError(t, v.Validate(models.FeedQuery{}))
	assert.NoError(t, v.Validate(models.FeedQuery{Category: "poetry"}))
	assert.Error(t, v.Validate(models.FeedQuery{Category: "sci-fi"}))
}
