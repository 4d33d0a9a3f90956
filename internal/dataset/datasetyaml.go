package dataset

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// DatasetFileName is the detector dataset descriptor written by Split.
const DatasetFileName = "dataset.yaml"

// DatasetConfig is the YOLO dataset descriptor.
type DatasetConfig struct {
	Path  string   `yaml:"path"`
	Train string   `yaml:"train"`
	Val   string   `yaml:"val"`
	NC    int      `yaml:"nc"`
	Names []string `yaml:"names"`
}

// WriteDatasetYAML writes outDir/dataset.yaml pointing at the split
// directories and returns its path.
func WriteDatasetYAML(outDir string, classNames []string) (string, error) {
	root, err := filepath.Abs(outDir)
	if err != nil {
		return "", fmt.Errorf("resolving %s: %w", outDir, err)
	}

	cfg := DatasetConfig{
		Path:  root,
		Train: "images/train",
		Val:   "images/val",
		NC:    len(classNames),
		Names: classNames,
	}
	data, err := yaml.Marshal(&cfg)
	if err != nil {
		return "", fmt.Errorf("encoding dataset config: %w", err)
	}

	path := filepath.Join(outDir, DatasetFileName)
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("writing %s: %w", path, err)
	}
	return path, nil
}

// ReadDatasetYAML parses a dataset descriptor.
func ReadDatasetYAML(path string) (*DatasetConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	var cfg DatasetConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	if cfg.NC != len(cfg.Names) {
		return nil, fmt.Errorf("%s: nc is %d but %d names are listed", path, cfg.NC, len(cfg.Names))
	}
	return &cfg, nil
}
