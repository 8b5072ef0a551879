package rerank

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"codegraph/internal/graph"
)

func TestScore(t *testing.T) {
	replies := []string{"7", "3.5"}
	call := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/generate", r.URL.Path)
		json.NewEncoder(w).Encode(generateResponse{Response: replies[call]})
		call++
	}))
	defer srv.Close()

	c := New(srv.URL, "test-model")
	scores, err := c.Score(context.Background(), "query", []string{"doc a", "doc b"})
	require.NoError(t, err)
	assert.Equal(t, []float64{7, 3.5}, scores)
}

func TestScore_OneFailureFailsBatch(t *testing.T) {
	call := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if call > 0 {
			http.Error(w, "overloaded", http.StatusServiceUnavailable)
			return
		}
		json.NewEncoder(w).Encode(generateResponse{Response: "9"})
		call++
	}))
	defer srv.Close()

	c := New(srv.URL, "m")
	_, err := c.Score(context.Background(), "q", []string{"a", "b"})
	require.Error(t, err)
	assert.Equal(t, graph.KindUnavailable, graph.KindOf(err))
}

func TestParseScore(t *testing.T) {
	tests := []struct {
		reply   string
		want    float64
		wantErr bool
	}{
		{"7", 7, false},
		{" 8.5 ", 8.5, false},
		{"9.", 9, false},
		{"6 out of 10", 6, false},
		{"", 0, true},
		{"very relevant", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.reply, func(t *testing.T) {
			got, err := parseScore(tt.reply)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
