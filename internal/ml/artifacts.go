package ml

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog/log"

	"florai-occurrence/internal/features"
)

// SchemaVersion guards the artifact wire format. All three artifacts of a
// training run carry the same version and trained_at stamp; consuming any
// one without the matching others is rejected at load.
const SchemaVersion = 1

const (
	modelFile   = "model.json"
	scalerFile  = "scaler.json"
	columnsFile = "feature_columns.json"
)

// Artifacts is the immutable output of a training run: the fitted model, the
// fitted scaler, and the ordered feature-column list the model was trained
// on. Once loaded it is read-only and safe to share across requests.
type Artifacts struct {
	Model     *Model
	Scaler    *Scaler
	Columns   []string
	TrainedAt time.Time
}

type modelDoc struct {
	SchemaVersion int       `json:"schema_version"`
	TrainedAt     time.Time `json:"trained_at"`
	Model         *Model    `json:"model"`
}

type scalerDoc struct {
	SchemaVersion int       `json:"schema_version"`
	TrainedAt     time.Time `json:"trained_at"`
	Scaler        *Scaler   `json:"scaler"`
}

type columnsDoc struct {
	SchemaVersion int       `json:"schema_version"`
	TrainedAt     time.Time `json:"trained_at"`
	Columns       []string  `json:"columns"`
}

// SaveArtifacts persists the three artifacts into dir. Any failure is
// returned to the caller; a training run must treat it as fatal since a
// partial artifact set is unusable.
func SaveArtifacts(dir string, a *Artifacts) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create model dir: %w", err)
	}

	writes := []struct {
		name string
		doc  any
	}{
		{modelFile, modelDoc{SchemaVersion, a.TrainedAt, a.Model}},
		{scalerFile, scalerDoc{SchemaVersion, a.TrainedAt, a.Scaler}},
		{columnsFile, columnsDoc{SchemaVersion, a.TrainedAt, a.Columns}},
	}
	for _, w := range writes {
		data, err := json.Marshal(w.doc)
		if err != nil {
			return fmt.Errorf("marshal %s: %w", w.name, err)
		}
		path := filepath.Join(dir, w.name)
		if err := os.WriteFile(path, data, 0o644); err != nil {
			return fmt.Errorf("write %s: %w", w.name, err)
		}
	}

	log.Info().Str("dir", dir).Time("trained_at", a.TrainedAt).Msg("artifacts saved")
	return nil
}

// LoadArtifacts reads and cross-checks the artifact set in dir. It rejects
// missing files, schema-version or trained_at mismatches between the three
// documents, and any drift between the persisted feature columns and the
// schema compiled into this binary.
func LoadArtifacts(dir string) (*Artifacts, error) {
	var md modelDoc
	if err := readDoc(filepath.Join(dir, modelFile), &md); err != nil {
		return nil, err
	}
	var sd scalerDoc
	if err := readDoc(filepath.Join(dir, scalerFile), &sd); err != nil {
		return nil, err
	}
	var cd columnsDoc
	if err := readDoc(filepath.Join(dir, columnsFile), &cd); err != nil {
		return nil, err
	}

	for name, v := range map[string]int{modelFile: md.SchemaVersion, scalerFile: sd.SchemaVersion, columnsFile: cd.SchemaVersion} {
		if v != SchemaVersion {
			return nil, fmt.Errorf("%s has schema version %d, expected %d", name, v, SchemaVersion)
		}
	}
	if !md.TrainedAt.Equal(sd.TrainedAt) || !md.TrainedAt.Equal(cd.TrainedAt) {
		return nil, fmt.Errorf("artifact set is mixed: model/scaler/columns from different training runs")
	}

	if md.Model == nil || sd.Scaler == nil || len(cd.Columns) == 0 {
		return nil, fmt.Errorf("artifact set is incomplete")
	}
	if err := md.Model.Validate(); err != nil {
		return nil, fmt.Errorf("model artifact: %w", err)
	}

	// The persisted column list is the runtime contract check against the
	// feature deriver compiled into this binary.
	expected := features.Columns()
	if len(cd.Columns) != len(expected) {
		return nil, fmt.Errorf("feature columns: artifact has %d, binary derives %d", len(cd.Columns), len(expected))
	}
	for i, name := range expected {
		if cd.Columns[i] != name {
			return nil, fmt.Errorf("feature column %d: artifact %q, binary %q", i, cd.Columns[i], name)
		}
	}
	if md.Model.Features != len(expected) {
		return nil, fmt.Errorf("model expects %d features, schema has %d", md.Model.Features, len(expected))
	}
	if len(sd.Scaler.Mean) != len(expected) || len(sd.Scaler.Std) != len(expected) {
		return nil, fmt.Errorf("scaler dimension %d does not match schema %d", len(sd.Scaler.Mean), len(expected))
	}

	log.Info().
		Str("dir", dir).
		Time("trained_at", md.TrainedAt).
		Int("trees", len(md.Model.Trees)).
		Msg("artifacts loaded")

	return &Artifacts{Model: md.Model, Scaler: sd.Scaler, Columns: cd.Columns, TrainedAt: md.TrainedAt}, nil
}

func readDoc(path string, out any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read artifact %s: %w", filepath.Base(path), err)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("parse artifact %s: %w", filepath.Base(path), err)
	}
	return nil
}
