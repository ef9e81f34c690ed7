package ml

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Topology is the artifact's descriptor of the scorer core. The online
// learner runs a logistic-regression core over the fixed feature layout;
// the descriptor is versioned so a future core swap invalidates old files.
const Topology = "logistic-regression/input=10/v1"

const artifactFile = "model.json"

// AdamState is the optimizer state persisted alongside the weights so online
// learning resumes exactly where it left off.
type AdamState struct {
	M     []float64 `json:"m"`
	V     []float64 `json:"v"`
	MBias float64   `json:"m_bias"`
	VBias float64   `json:"v_bias"`
	Step  int64     `json:"step"`
}

// Artifact is the durable model state: topology descriptor, weights, the
// optimizer moments and the normalization table.
type Artifact struct {
	Topology     string                     `json:"topology"`
	Version      int64                      `json:"version"`
	Weights      []float64                  `json:"weights"`
	Bias         float64                    `json:"bias"`
	Adam         AdamState                  `json:"adam"`
	FeatureStats [FeatureCount]FeatureStats `json:"feature_stats"`
	UpdatedAt    time.Time                  `json:"updated_at"`
}

// SaveArtifact writes the artifact atomically (temp file + rename) into dir.
func SaveArtifact(dir string, a *Artifact) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create model dir: %w", err)
	}

	data, err := json.MarshalIndent(a, "", "  ")
	if err != nil {
		return fmt.Errorf("encode model artifact: %w", err)
	}

	tmp, err := os.CreateTemp(dir, artifactFile+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp artifact: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("write artifact: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("close artifact: %w", err)
	}
	if err := os.Rename(tmp.Name(), filepath.Join(dir, artifactFile)); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("install artifact: %w", err)
	}
	return nil
}

// LoadArtifact reads and validates the artifact from dir.
func LoadArtifact(dir string) (*Artifact, error) {
	data, err := os.ReadFile(filepath.Join(dir, artifactFile))
	if err != nil {
		return nil, err
	}

	var a Artifact
	if err := json.Unmarshal(data, &a); err != nil {
		return nil, fmt.Errorf("decode model artifact: %w", err)
	}
	if a.Topology != Topology {
		return nil, fmt.Errorf("model topology mismatch: have %q, want %q", a.Topology, Topology)
	}
	if len(a.Weights) != FeatureCount || len(a.Adam.M) != FeatureCount || len(a.Adam.V) != FeatureCount {
		return nil, fmt.Errorf("model artifact has %d weights, want %d", len(a.Weights), FeatureCount)
	}
	return &a, nil
}
