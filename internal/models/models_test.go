package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDirection(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		want    Direction
		wantErr bool
	}{
		{"up", "up", Up, false},
		{"down", "down", Down, false},
		{"empty", "", "", true},
		{"uppercase", "UP", "", true},
		{"signed", "-1", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseDirection(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestVoteTargetRoundTrip(t *testing.T) {
	var v Vote
	v.SetTarget(CommentTarget("c1"))

	assert.Equal(t, "comment", v.TargetType)
	assert.Equal(t, CommentTarget("c1"), v.Target())
	assert.NotEqual(t, PostTarget("c1"), v.Target())
	assert.Equal(t, Up, v.Direction())

	v.Down = true
	assert.Equal(t, Down, v.Direction())
}

func TestTally(t *testing.T) {
	up, down := Tally([]Vote{{Down: true}, {Down: false}, {Down: false}})
	assert.Equal(t, 2, up)
	assert.Equal(t, 1, down)
}

func TestPostNormalizeEmitsEmptyArrays(t *testing.T) {
	p := Post{ID: "p1", AuthorID: "u1", Title: "t", Content: "c", Comments: []Comment{{ID: "c1"}}}
	p.Comments[0].Votes = nil
	p.Normalize()

	data, err := json.Marshal(p)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"votes":[]`)
	assert.Contains(t, string(data), `"author":"u1"`)
	assert.NotNil(t, p.Comments[0].Votes)
}
