package training

import (
	"encoding/json"
	"errors"
	"math"
	"os"
	"path/filepath"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/afero"
)

// Metrics are computed on the held-out split.
type Metrics struct {
	Precision float64 `json:"precision"`
	Recall    float64 `json:"recall"`
	Accuracy  float64 `json:"accuracy"`
	TrainSize int     `json:"train_size"`
	TestSize  int     `json:"test_size"`
}

// Model is a logistic regression over document embeddings.
type Model struct {
	Weights   []float64 `json:"weights"`
	Bias      float64   `json:"bias"`
	Dimension int       `json:"dimension"`
	Labeled   int       `json:"labeled"`
	Metrics   Metrics   `json:"metrics"`
	TrainedAt time.Time `json:"trained_at"`
}

// Dim returns the vector dimension the model expects.
func (m *Model) Dim() int { return m.Dimension }

// Predict returns the positive-class probability for vec.
func (m *Model) Predict(vec []float32) float64 {
	z := m.Bias
	for i, w := range m.Weights {
		if i >= len(vec) {
			break
		}
		z += w * float64(vec[i])
	}
	return sigmoid(z)
}

func sigmoid(z float64) float64 {
	return 1 / (1 + math.Exp(-z))
}

// Save writes the model as JSON, replacing path atomically.
func (m *Model) Save(fs afero.Fs, path string) error {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return eris.Wrap(err, "training: marshal model")
	}
	if err := fs.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return eris.Wrap(err, "training: create model dir")
	}
	tmp := path + ".tmp"
	if err := afero.WriteFile(fs, tmp, data, 0o644); err != nil {
		return eris.Wrap(err, "training: write model")
	}
	if err := fs.Rename(tmp, path); err != nil {
		_ = fs.Remove(tmp)
		return eris.Wrap(err, "training: replace model")
	}
	return nil
}

// ErrNoModel is returned by LoadModel when no artifact exists.
var ErrNoModel = errors.New("training: no model artifact")

// LoadModel reads a model saved by Save.
func LoadModel(fs afero.Fs, path string) (*Model, error) {
	data, err := afero.ReadFile(fs, path)
	if os.IsNotExist(err) {
		return nil, eris.Wrap(ErrNoModel, path)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "training: read model %s", path)
	}
	var m Model
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, eris.Wrapf(err, "training: decode model %s", path)
	}
	if m.Dimension <= 0 || len(m.Weights) != m.Dimension {
		return nil, eris.Errorf("training: model %s has %d weights for dimension %d", path, len(m.Weights), m.Dimension)
	}
	return &m, nil
}
