package embed

import (
	"context"

	"github.com/rotisserie/eris"
	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms/openai"

	"github.com/sells-group/report-agent/internal/config"
)

// OpenAI embeds text through any OpenAI-compatible embeddings endpoint.
type OpenAI struct {
	embedder embeddings.Embedder
}

// NewOpenAI creates an OpenAI embedder. An empty API key is sent as "none"
// for local compatible servers that skip authentication.
func NewOpenAI(cfg config.EmbedConfig) (*OpenAI, error) {
	token := cfg.APIKey
	if token == "" {
		token = "none"
	}
	opts := []openai.Option{
		openai.WithToken(token),
		openai.WithEmbeddingModel(cfg.Model),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, openai.WithBaseURL(cfg.BaseURL))
	}

	client, err := openai.New(opts...)
	if err != nil {
		return nil, eris.Wrap(err, "embed: create openai client")
	}
	e, err := embeddings.NewEmbedder(client, embeddings.WithStripNewLines(true))
	if err != nil {
		return nil, eris.Wrap(err, "embed: create openai embedder")
	}
	return &OpenAI{embedder: e}, nil
}

// Embed implements Embedder.
func (o *OpenAI) Embed(ctx context.Context, text string) ([]float32, error) {
	vecs, err := o.embedder.EmbedDocuments(ctx, []string{text})
	if err != nil {
		return nil, eris.Wrap(err, "embed: openai")
	}
	if len(vecs) == 0 {
		return nil, eris.New("embed: openai returned no embedding")
	}
	return vecs[0], nil
}
