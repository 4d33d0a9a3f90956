// Package config provides configuration loading and management for mass-tools.
// It handles loading configuration from YAML files, applies environment
// overrides (optionally read from a .env file), and provides default values.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/ironsheep/mass-tools/internal/detection"
	"github.com/ironsheep/mass-tools/internal/imaging"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "MASS_TOOLS_"

// Config represents the application configuration loaded from YAML
type Config struct {
	// Mask annotation batch parameters
	Annotate struct {
		// OutputDir receives annotated images, the processing log and the results table
		OutputDir string `yaml:"outputDir"`

		// DicomInfoCSV and CaseSheetCSV resolve cases to image and mask paths
		DicomInfoCSV string `yaml:"dicomInfoCsv"`
		CaseSheetCSV string `yaml:"caseSheetCsv"`

		// MinArea is the smallest accepted contour area in square pixels
		MinArea float64 `yaml:"minArea"`

		// OutlineColor is a hex color such as "#FF0000"
		OutlineColor string `yaml:"outlineColor"`

		// OutlineThickness is the rectangle stroke width in pixels
		OutlineThickness int `yaml:"outlineThickness"`

		// KnownTotal is the denominator for progress percentages; 0 uses the case count
		KnownTotal int `yaml:"knownTotal"`

		// ProgressEvery controls how often a progress line is printed
		ProgressEvery int `yaml:"progressEvery"`

		// Workers is the number of cases processed concurrently
		Workers int `yaml:"workers"`

		// Verbose logs per-mask details
		Verbose bool `yaml:"verbose"`
	} `yaml:"annotate"`

	// COCO bootstrap parameters
	COCO struct {
		Boxes       detection.BoxParams `yaml:"boxes"`
		Description string              `yaml:"description"`
		Version     string              `yaml:"version"`
		Category    string              `yaml:"category"`
	} `yaml:"coco"`

	// Train/validation split parameters
	Split struct {
		// ValFraction is the share of images placed in the validation set
		ValFraction float64 `yaml:"valFraction"`

		// Seed makes the shuffle reproducible
		Seed uint64 `yaml:"seed"`

		// ClassNames are written to dataset.yaml
		ClassNames []string `yaml:"classNames"`
	} `yaml:"split"`

	// Detector inference service parameters
	Detector struct {
		InferenceURL   string  `yaml:"inferenceUrl"`
		Confidence     float64 `yaml:"confidence"`
		HighConfidence float64 `yaml:"highConfidence"`
		TimeoutSeconds int     `yaml:"timeoutSeconds"`
	} `yaml:"detector"`

	// Detector training parameters
	Train struct {
		Command      string `yaml:"command"`
		DatasetRoot  string `yaml:"datasetRoot"`
		DatasetYAML  string `yaml:"datasetYaml"`
		Model        string `yaml:"model"`
		Epochs       int    `yaml:"epochs"`
		ImageSize    int    `yaml:"imageSize"`
		Batch        int    `yaml:"batch"`
		Device       string `yaml:"device"`
		Workers      int    `yaml:"workers"`
		Optimizer    string `yaml:"optimizer"`
		WarmupEpochs int    `yaml:"warmupEpochs"`
		Cache        string `yaml:"cache"`
		SingleClass  bool   `yaml:"singleClass"`
		AMP          bool   `yaml:"amp"`
		Profile      bool   `yaml:"profile"`
	} `yaml:"train"`

	// Result sinks
	Results struct {
		// PostgresDSN enables the Postgres ledger sink when set
		PostgresDSN string `yaml:"postgresDsn"`

		// MetricsFile enables a Prometheus textfile export when set
		MetricsFile string `yaml:"metricsFile"`
	} `yaml:"results"`
}

// DefaultConfig returns a configuration with default values
func DefaultConfig() *Config {
	cfg := &Config{}

	cfg.Annotate.OutputDir = "results"
	cfg.Annotate.MinArea = detection.DefaultMinArea
	cfg.Annotate.OutlineColor = imaging.DefaultOutlineColor
	cfg.Annotate.OutlineThickness = imaging.DefaultOutlineThickness
	cfg.Annotate.ProgressEvery = 10
	cfg.Annotate.Workers = 1

	cfg.COCO.Boxes = detection.DefaultBoxParams()
	cfg.COCO.Description = "Generated COCO from CBIS-DDSM mammogram images"
	cfg.COCO.Version = "1.0.1"
	cfg.COCO.Category = "cancer"

	cfg.Split.ValFraction = 0.2
	cfg.Split.Seed = 42
	cfg.Split.ClassNames = []string{"mass"}

	cfg.Detector.InferenceURL = "http://localhost:5000/predict"
	cfg.Detector.Confidence = 0.5
	cfg.Detector.HighConfidence = 0.64
	cfg.Detector.TimeoutSeconds = 120

	cfg.Train.Command = "yolo"
	cfg.Train.DatasetRoot = "dataset"
	cfg.Train.DatasetYAML = filepath.Join("dataset", "dataset.yaml")
	cfg.Train.Model = "yolov8s.pt"
	cfg.Train.Epochs = 100
	cfg.Train.ImageSize = 640
	cfg.Train.Batch = 8
	cfg.Train.Device = "cpu"
	cfg.Train.Workers = 0
	cfg.Train.Optimizer = "AdamW"
	cfg.Train.WarmupEpochs = 3
	cfg.Train.Cache = "disk"
	cfg.Train.SingleClass = true
	cfg.Train.AMP = true
	cfg.Train.Profile = true

	return cfg
}

// LoadConfig loads configuration from a YAML file
// If the file doesn't exist, it returns the default configuration
func LoadConfig(configPath string) (*Config, error) {
	cfg := DefaultConfig()

	if configPath == "" {
		return cfg, nil
	}

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return cfg, nil
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}

	return cfg, nil
}

// Load reads an optional .env file, the YAML file at configPath, then applies
// environment overrides and validates the result.
func Load(configPath, envFile string) (*Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("error loading %s: %w", envFile, err)
		}
	}

	cfg, err := LoadConfig(configPath)
	if err != nil {
		return nil, err
	}

	if err := cfg.ApplyEnv(); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// ApplyEnv overrides fields from MASS_TOOLS_* environment variables.
func (c *Config) ApplyEnv() error {
	c.Annotate.OutputDir = getEnv("OUTPUT_DIR", c.Annotate.OutputDir)
	c.Annotate.DicomInfoCSV = getEnv("DICOM_INFO_CSV", c.Annotate.DicomInfoCSV)
	c.Annotate.CaseSheetCSV = getEnv("CASE_SHEET_CSV", c.Annotate.CaseSheetCSV)
	c.Annotate.OutlineColor = getEnv("OUTLINE_COLOR", c.Annotate.OutlineColor)
	c.Detector.InferenceURL = getEnv("INFERENCE_URL", c.Detector.InferenceURL)
	c.Train.Model = getEnv("MODEL", c.Train.Model)
	c.Train.Device = getEnv("DEVICE", c.Train.Device)
	c.Results.PostgresDSN = getEnv("POSTGRES_DSN", c.Results.PostgresDSN)
	c.Results.MetricsFile = getEnv("METRICS_FILE", c.Results.MetricsFile)

	var err error
	if c.Annotate.Workers, err = getEnvInt("WORKERS", c.Annotate.Workers); err != nil {
		return err
	}
	if c.Annotate.KnownTotal, err = getEnvInt("KNOWN_TOTAL", c.Annotate.KnownTotal); err != nil {
		return err
	}
	if c.Annotate.MinArea, err = getEnvFloat("MIN_AREA", c.Annotate.MinArea); err != nil {
		return err
	}
	if c.Detector.Confidence, err = getEnvFloat("CONFIDENCE", c.Detector.Confidence); err != nil {
		return err
	}
	return nil
}

// Validate checks value ranges.
func (c *Config) Validate() error {
	if c.Annotate.MinArea < 0 {
		return fmt.Errorf("annotate.minArea must be >= 0, got %v", c.Annotate.MinArea)
	}
	if _, err := imaging.NewStyle(c.Annotate.OutlineColor, c.Annotate.OutlineThickness); err != nil {
		return fmt.Errorf("annotate outline: %w", err)
	}
	if c.Annotate.Workers < 1 {
		return fmt.Errorf("annotate.workers must be >= 1, got %d", c.Annotate.Workers)
	}
	if c.Annotate.ProgressEvery < 1 {
		return fmt.Errorf("annotate.progressEvery must be >= 1, got %d", c.Annotate.ProgressEvery)
	}
	if c.Split.ValFraction <= 0 || c.Split.ValFraction >= 1 {
		return fmt.Errorf("split.valFraction must be in (0,1), got %v", c.Split.ValFraction)
	}
	if c.Detector.Confidence < 0 || c.Detector.Confidence > 1 {
		return fmt.Errorf("detector.confidence must be in [0,1], got %v", c.Detector.Confidence)
	}
	if c.COCO.Boxes.BlockSize < 3 || c.COCO.Boxes.BlockSize%2 == 0 {
		return fmt.Errorf("coco.boxes.blockSize must be odd and >= 3, got %d", c.COCO.Boxes.BlockSize)
	}
	return nil
}

// EffectiveMinArea returns the region area threshold every entry point
// applies. The configured value is used as is, so 0 accepts any region.
func (c *Config) EffectiveMinArea() float64 {
	if c.Annotate.MinArea < 0 {
		return 0
	}
	return c.Annotate.MinArea
}

// OutlineStyle returns the parsed outline style.
func (c *Config) OutlineStyle() (imaging.Style, error) {
	return imaging.NewStyle(c.Annotate.OutlineColor, c.Annotate.OutlineThickness)
}

// SaveConfig saves the configuration to a YAML file
func SaveConfig(cfg *Config, configPath string) error {
	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("error creating config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("error marshaling config: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("error writing config file: %w", err)
	}

	return nil
}

// CreateDefaultConfigFile creates a default configuration file at the specified path
func CreateDefaultConfigFile(configPath string) error {
	return SaveConfig(DefaultConfig(), configPath)
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(EnvPrefix + key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) (int, error) {
	val := os.Getenv(EnvPrefix + key)
	if val == "" {
		return defaultVal, nil
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		return 0, fmt.Errorf("invalid %s%s: %w", EnvPrefix, key, err)
	}
	return n, nil
}

func getEnvFloat(key string, defaultVal float64) (float64, error) {
	val := os.Getenv(EnvPrefix + key)
	if val == "" {
		return defaultVal, nil
	}
	f, err := strconv.ParseFloat(val, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s%s: %w", EnvPrefix, key, err)
	}
	return f, nil
}
