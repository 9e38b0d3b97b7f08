package embed

import (
	"context"

	"github.com/rotisserie/eris"
)

// Scorer turns a document vector into a relevance score.
type Scorer interface {
	Score(ctx context.Context, vec []float32) (float64, error)
}

// MeanScorer scores a vector by the mean of its components. It is a
// placeholder until a trained classifier is available.
type MeanScorer struct{}

// Score implements Scorer.
func (MeanScorer) Score(_ context.Context, vec []float32) (float64, error) {
	if len(vec) == 0 {
		return 0, eris.New("embed: empty vector")
	}
	var sum float64
	for _, v := range vec {
		sum += float64(v)
	}
	return sum / float64(len(vec)), nil
}

// Predictor is a trained relevance model.
type Predictor interface {
	Predict(vec []float32) float64
	Dim() int
}

// ClassifierScorer scores a vector by the positive-class probability of a
// trained model.
type ClassifierScorer struct {
	model Predictor
}

// NewClassifierScorer wraps a trained model.
func NewClassifierScorer(model Predictor) *ClassifierScorer {
	return &ClassifierScorer{model: model}
}

// Score implements Scorer.
func (c *ClassifierScorer) Score(_ context.Context, vec []float32) (float64, error) {
	if len(vec) != c.model.Dim() {
		return 0, eris.Errorf("embed: vector has dimension %d, model expects %d", len(vec), c.model.Dim())
	}
	return c.model.Predict(vec), nil
}

// NewScorer selects a Scorer by name. The classifier scorer requires model.
func NewScorer(kind string, model Predictor) (Scorer, error) {
	switch kind {
	case "mean", "":
		return MeanScorer{}, nil
	case "classifier":
		if model == nil {
			return nil, eris.New("embed: classifier scorer requires a trained model")
		}
		return NewClassifierScorer(model), nil
	default:
		return nil, eris.Errorf("embed: unknown scorer %q", kind)
	}
}
