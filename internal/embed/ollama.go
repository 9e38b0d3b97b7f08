package embed

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/sells-group/report-agent/pkg/ollama"
)

// Ollama embeds text through a local Ollama server.
type Ollama struct {
	client ollama.Client
	model  string
}

// NewOllama creates an Ollama embedder for model.
func NewOllama(client ollama.Client, model string) *Ollama {
	return &Ollama{client: client, model: model}
}

// Embed implements Embedder.
func (o *Ollama) Embed(ctx context.Context, text string) ([]float32, error) {
	vec, err := o.client.Embeddings(ctx, o.model, text)
	if err != nil {
		return nil, eris.Wrap(err, "embed: ollama")
	}
	out := make([]float32, len(vec))
	for i, v := range vec {
		out[i] = float32(v)
	}
	return out, nil
}
