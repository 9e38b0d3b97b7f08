package embed

import (
	"context"

	"github.com/stretchr/testify/mock"
)

type mockEmbedder struct {
	mock.Mock
}

func (m *mockEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	args := m.Called(ctx, text)
	if v := args.Get(0); v != nil {
		return v.([]float32), args.Error(1)
	}
	return nil, args.Error(1)
}

type stubModel struct {
	dim  int
	prob float64
}

func (s stubModel) Predict([]float32) float64 { return s.prob }
func (s stubModel) Dim() int                  { return s.dim }
