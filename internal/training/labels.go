// Package training fits the relevance classifier from reviewer labels.
package training

import (
	"encoding/csv"
	"errors"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/jszwec/csvutil"
	"github.com/rotisserie/eris"
	"github.com/spf13/afero"
	"go.uber.org/zap"

	"github.com/sells-group/report-agent/internal/model"
)

type labelRow struct {
	SHA   string `csv:"sha"`
	Label string `csv:"label"`
}

// LoadLabels reads every *.csv file in dir. Rows are "sha,label" without a
// required header. Files are applied in name order, so a later file
// overrides an earlier label for the same hash. A missing dir yields no
// labels.
func LoadLabels(fs afero.Fs, dir string) (map[string]model.Label, error) {
	labels := make(map[string]model.Label)

	files, err := afero.Glob(fs, filepath.Join(dir, "*.csv"))
	if err != nil {
		return nil, eris.Wrap(err, "training: list label files")
	}
	sort.Strings(files)

	for _, path := range files {
		if err := loadLabelFile(fs, path, labels); err != nil {
			return nil, err
		}
	}
	if len(files) == 0 {
		if _, err := fs.Stat(dir); os.IsNotExist(err) {
			zap.L().Info("training: no labels directory", zap.String("dir", dir))
		}
	}
	return labels, nil
}

func loadLabelFile(fs afero.Fs, path string, labels map[string]model.Label) error {
	f, err := fs.Open(path)
	if err != nil {
		return eris.Wrapf(err, "training: open %s", path)
	}
	defer f.Close() //nolint:errcheck

	r := csv.NewReader(f)
	r.FieldsPerRecord = 2
	r.TrimLeadingSpace = true

	dec, err := csvutil.NewDecoder(r, "sha", "label")
	if err != nil {
		return eris.Wrapf(err, "training: read %s", path)
	}

	var rows []labelRow
	if err := dec.Decode(&rows); err != nil && !errors.Is(err, io.EOF) {
		return eris.Wrapf(err, "training: decode %s", path)
	}

	for i, row := range rows {
		sha := strings.TrimSpace(row.SHA)
		raw := strings.ToLower(strings.TrimSpace(row.Label))
		if i == 0 && sha == "sha" && raw == "label" {
			continue
		}
		l, ok := model.ParseLabel(raw)
		if !ok || sha == "" {
			zap.L().Warn("training: skipping label row",
				zap.String("file", path),
				zap.Int("row", i+1),
				zap.String("sha", sha),
				zap.String("label", raw),
			)
			continue
		}
		labels[sha] = l
	}
	return nil
}
