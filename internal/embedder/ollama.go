// Package embedder provides embedding clients for the memory store's
// vector layer. Ollama is the only backend: it runs locally, needs no
// API key, and the store degrades to keyword search when it is absent.
package embedder

import (
	"context"
	"fmt"

	"github.com/ollama/ollama/api"
)

// DefaultModel is used when no model is configured. nomic-embed-text is
// small, widely pulled, and good enough for code-adjacent notes.
const DefaultModel = "nomic-embed-text"

// Ollama embeds text through a local Ollama server. The zero value is
// not usable, construct it with NewOllama.
type Ollama struct {
	client *api.Client
	model  string
}

// NewOllama creates an embedder talking to the Ollama server configured
// via the environment (OLLAMA_HOST, falling back to localhost:11434).
// An empty model selects DefaultModel.
func NewOllama(model string) (*Ollama, error) {
	client, err := api.ClientFromEnvironment()
	if err != nil {
		return nil, fmt.Errorf("creating ollama client: %w", err)
	}
	if model == "" {
		model = DefaultModel
	}
	return &Ollama{client: client, model: model}, nil
}

// Embed returns the embedding vector for text. Errors from the server
// are returned as-is so callers can decide to fall back.
func (o *Ollama) Embed(ctx context.Context, text string) ([]float32, error) {
	resp, err := o.client.Embed(ctx, &api.EmbedRequest{
		Model: o.model,
		Input: text,
	})
	if err != nil {
		return nil, fmt.Errorf("ollama embed: %w", err)
	}
	if len(resp.Embeddings) == 0 || len(resp.Embeddings[0]) == 0 {
		return nil, fmt.Errorf("ollama embed: empty response for model %s", o.model)
	}
	return resp.Embeddings[0], nil
}

// Provider identifies the backend in the store's vector metadata.
func (o *Ollama) Provider() string { return "ollama" }

// Model reports the configured embedding model.
func (o *Ollama) Model() string { return o.model }

// Ping verifies the server is reachable. Used at startup to decide
// whether to wire the embedder into the store at all.
func (o *Ollama) Ping(ctx context.Context) error {
	return o.client.Heartbeat(ctx)
}
