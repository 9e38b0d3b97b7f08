package training

import (
	"context"
	"errors"
	"math/rand/v2"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/report-agent/internal/config"
	"github.com/sells-group/report-agent/internal/embed"
	"github.com/sells-group/report-agent/internal/model"
)

// ErrNotEnoughLabels is returned when fewer labeled records exist than the
// configured minimum.
var ErrNotEnoughLabels = errors.New("training: not enough labeled records")

const (
	splitSeed   = 42
	testPercent = 20
)

type example struct {
	x []float64
	y float64
}

// Trainer fits a Model from labeled ledger records.
type Trainer struct {
	embedder     embed.Embedder
	minLabeled   int
	epochs       int
	learningRate float64
	now          func() time.Time
}

// NewTrainer creates a Trainer. Zero values in cfg fall back to 10 labeled
// records, 500 epochs and a learning rate of 0.1.
func NewTrainer(e embed.Embedder, cfg config.TrainingConfig) *Trainer {
	t := &Trainer{
		embedder:     e,
		minLabeled:   cfg.MinLabeled,
		epochs:       cfg.Epochs,
		learningRate: cfg.LearningRate,
		now:          time.Now,
	}
	if t.minLabeled <= 0 {
		t.minLabeled = 10
	}
	if t.epochs <= 0 {
		t.epochs = 500
	}
	if t.learningRate <= 0 {
		t.learningRate = 0.1
	}
	return t
}

// Labeled returns copies of the records that have a label, with the label
// attached. The input records are not modified.
func Labeled(records []model.CandidateRecord, labels map[string]model.Label) []model.CandidateRecord {
	var out []model.CandidateRecord
	for _, r := range records {
		if l, ok := labels[r.SHA]; ok && l != model.LabelUnset {
			out = append(out, r.WithLabel(l))
		}
	}
	return out
}

// Train embeds the summary of every labeled record, fits a logistic
// regression on a seeded 80/20 split and reports metrics on the held-out
// part.
func (t *Trainer) Train(ctx context.Context, records []model.CandidateRecord, labels map[string]model.Label) (*Model, error) {
	labeled := Labeled(records, labels)
	if len(labeled) < t.minLabeled {
		return nil, eris.Wrapf(ErrNotEnoughLabels, "have %d, need %d", len(labeled), t.minLabeled)
	}

	examples := make([]example, 0, len(labeled))
	dim := 0
	for _, r := range labeled {
		text := r.Summary
		if text == "" {
			text = r.Title
		}
		vec, err := t.embedder.Embed(ctx, text)
		if err != nil {
			return nil, eris.Wrapf(err, "training: embed %s", r.SHA)
		}
		if dim == 0 {
			dim = len(vec)
		} else if len(vec) != dim {
			return nil, eris.Errorf("training: %s has dimension %d, want %d", r.SHA, len(vec), dim)
		}
		x := make([]float64, len(vec))
		for i, v := range vec {
			x[i] = float64(v)
		}
		y := 0.0
		if r.Label == model.LabelPositive {
			y = 1
		}
		examples = append(examples, example{x: x, y: y})
	}

	train, test := split(examples)
	m := &Model{
		Weights:   make([]float64, dim),
		Dimension: dim,
		Labeled:   len(labeled),
		TrainedAt: t.now().UTC(),
	}
	t.fit(m, train)
	m.Metrics = evaluate(m, test)
	m.Metrics.TrainSize = len(train)

	zap.L().Info("training: model fitted",
		zap.Int("labeled", m.Labeled),
		zap.Int("train", m.Metrics.TrainSize),
		zap.Int("test", m.Metrics.TestSize),
		zap.Float64("precision", m.Metrics.Precision),
		zap.Float64("recall", m.Metrics.Recall),
		zap.Float64("accuracy", m.Metrics.Accuracy),
	)
	return m, nil
}

// split shuffles with a fixed seed and holds out ceil(20%) of the examples.
func split(examples []example) (train, test []example) {
	shuffled := make([]example, len(examples))
	copy(shuffled, examples)
	rng := rand.New(rand.NewPCG(splitSeed, 0))
	rng.Shuffle(len(shuffled), func(i, j int) {
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	})

	nTest := (len(shuffled)*testPercent + 99) / 100
	return shuffled[nTest:], shuffled[:nTest]
}

// fit runs batch gradient descent on the log loss.
func (t *Trainer) fit(m *Model, train []example) {
	if len(train) == 0 {
		return
	}
	n := float64(len(train))
	grad := make([]float64, len(m.Weights))
	for epoch := 0; epoch < t.epochs; epoch++ {
		clear(grad)
		var gradBias float64
		for _, ex := range train {
			z := m.Bias
			for i, w := range m.Weights {
				z += w * ex.x[i]
			}
			diff := sigmoid(z) - ex.y
			for i := range grad {
				grad[i] += diff * ex.x[i]
			}
			gradBias += diff
		}
		for i := range m.Weights {
			m.Weights[i] -= t.learningRate * grad[i] / n
		}
		m.Bias -= t.learningRate * gradBias / n
	}
}

func evaluate(m *Model, test []example) Metrics {
	var tp, fp, tn, fn float64
	for _, ex := range test {
		vec := make([]float32, len(ex.x))
		for i, v := range ex.x {
			vec[i] = float32(v)
		}
		predicted := m.Predict(vec) >= 0.5
		actual := ex.y == 1
		switch {
		case predicted && actual:
			tp++
		case predicted && !actual:
			fp++
		case !predicted && actual:
			fn++
		default:
			tn++
		}
	}

	out := Metrics{TestSize: len(test)}
	if tp+fp > 0 {
		out.Precision = tp / (tp + fp)
	}
	if tp+fn > 0 {
		out.Recall = tp / (tp + fn)
	}
	if len(test) > 0 {
		out.Accuracy = (tp + tn) / float64(len(test))
	}
	return out
}
