// Package rerank scores search candidates against a query with an external
// relevance model. It is strictly optional: callers treat any error as a
// signal to keep their existing ranking.
package rerank

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"codegraph/internal/graph"
)

const scorePrompt = `Rate how relevant the following code symbol is to the query on a scale from 0 to 10. Respond with only the number.

Query: %s

Symbol:
%s
`

// Client calls an Ollama-compatible /api/generate endpoint as a pointwise
// relevance model.
type Client struct {
	baseURL string
	model   string
	http    *http.Client
}

// New creates a reranker for the given Ollama instance and model.
func New(baseURL, model string) *Client {
	return &Client{
		baseURL: baseURL,
		model:   model,
		http: &http.Client{
			Timeout: 60 * time.Second,
		},
	}
}

type generateRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
	Stream bool   `json:"stream"`
}

type generateResponse struct {
	Response string `json:"response"`
}

// Score rates each document's relevance to the query. One failed document
// fails the whole batch; the caller falls back to its fused ranking.
func (c *Client) Score(ctx context.Context, query string, documents []string) ([]float64, error) {
	scores := make([]float64, len(documents))
	for i, doc := range documents {
		s, err := c.scoreOne(ctx, query, doc)
		if err != nil {
			return nil, err
		}
		scores[i] = s
	}
	return scores, nil
}

func (c *Client) scoreOne(ctx context.Context, query, doc string) (float64, error) {
	body, err := json.Marshal(generateRequest{
		Model:  c.model,
		Prompt: fmt.Sprintf(scorePrompt, query, doc),
		Stream: false,
	})
	if err != nil {
		return 0, fmt.Errorf("marshal rerank request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/generate", bytes.NewReader(body))
	if err != nil {
		return 0, fmt.Errorf("build rerank request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, graph.UnavailableError("rerank model", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return 0, graph.UnavailableError("rerank model",
			fmt.Errorf("rerank endpoint returned %d: %s", resp.StatusCode, string(respBody)))
	}

	var result generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return 0, fmt.Errorf("decode rerank response: %w", err)
	}
	return parseScore(result.Response)
}

// parseScore extracts the leading number from the model's reply.
func parseScore(reply string) (float64, error) {
	fields := strings.Fields(strings.TrimSpace(reply))
	if len(fields) == 0 {
		return 0, fmt.Errorf("empty rerank reply")
	}
	s, err := strconv.ParseFloat(strings.TrimSuffix(fields[0], "."), 64)
	if err != nil {
		return 0, fmt.Errorf("unparseable rerank reply %q: %w", reply, err)
	}
	return s, nil
}
