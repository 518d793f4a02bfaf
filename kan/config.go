package kan

import (
	"strings"

	"github.com/pkg/errors"
	"gopkg.in/ini.v1"
)

// Config stores the configuration parameters for a KAN and its training loop.
type Config struct {
	KAN       KANConfig
	Histogram HistogramConfig
	Training  TrainingConfig
}

// KANConfig holds the spline parameters shared by every edge function.
type KANConfig struct {
	GridSize     int     `ini:"grid_size"`
	SplineDegree int     `ini:"spline_degree"`
	DomainMin    float64 `ini:"domain_min"`
	DomainMax    float64 `ini:"domain_max"`
	// WeightInit is either a numeric noise amplitude (e.g. "0.1") or a named
	// scheme: "linear" or "basis_glorot".
	WeightInit    string `ini:"weight_init"`
	ErrorFunction string `ini:"error_function"`
}

// HistogramConfig holds the activation-histogram parameters.
type HistogramConfig struct {
	NumBins     int     `ini:"num_bins"`
	InputDecay  float64 `ini:"input_decay"`
	OutputDecay float64 `ini:"output_decay"`
	// AdaptiveRange opts in to widening histogram bounds to the observed
	// value range; the engine only tracks the data, the host decides when to
	// recalibrate.
	AdaptiveRange bool `ini:"adaptive_range"`
}

// TrainingConfig holds the gradient-descent loop parameters.
type TrainingConfig struct {
	LearningRate  float64 `ini:"learning_rate"`
	BatchSize     int     `ini:"batch_size"`
	MaxEpochs     int     `ini:"max_epochs"`
	LossThreshold float64 `ini:"loss_threshold"`
	MaxStagnation int     `ini:"max_stagnation"`
	Shuffle       bool    `ini:"shuffle"`
}

// DefaultConfig returns the documented defaults: degree-3 splines on a
// 5-point grid over [-1, 1] with variance-preserving initialization, 20-bin
// histograms (input decay 0.995, output decay 0.9), and a small-batch SGD
// loop with squared error.
func DefaultConfig() *Config {
	return &Config{
		KAN: KANConfig{
			GridSize:      4,
			SplineDegree:  3,
			DomainMin:     -1,
			DomainMax:     1,
			WeightInit:    "basis_glorot",
			ErrorFunction: "square",
		},
		Histogram: HistogramConfig{
			NumBins:     DefaultHistogramBins,
			InputDecay:  0.995,
			OutputDecay: 0.9,
		},
		Training: TrainingConfig{
			LearningRate:  0.03,
			BatchSize:     10,
			MaxEpochs:     200,
			LossThreshold: 1e-4,
			MaxStagnation: 15,
			Shuffle:       true,
		},
	}
}

// LoadConfig loads configuration parameters from an INI file. Missing keys
// fall back to DefaultConfig values.
func LoadConfig(filePath string) (*Config, error) {
	cfg, err := ini.LoadSources(ini.LoadOptions{
		IgnoreInlineComment:         true,
		UnescapeValueCommentSymbols: true,
	}, filePath)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to load config file %q", filePath)
	}

	config := DefaultConfig()
	if err := cfg.Section("KAN").MapTo(&config.KAN); err != nil {
		return nil, errors.Wrap(err, "failed to map [KAN] section")
	}
	if err := cfg.Section("Histogram").MapTo(&config.Histogram); err != nil {
		return nil, errors.Wrap(err, "failed to map [Histogram] section")
	}
	if err := cfg.Section("Training").MapTo(&config.Training); err != nil {
		return nil, errors.Wrap(err, "failed to map [Training] section")
	}

	config.KAN.WeightInit = cleanIniString(config.KAN.WeightInit)
	config.KAN.ErrorFunction = cleanIniString(config.KAN.ErrorFunction)

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// Validate checks value ranges and name lookups, mirroring what construction
// would reject later but with configuration-level error messages.
func (c *Config) Validate() error {
	if c.KAN.GridSize < 1 {
		return errors.Errorf("config error: grid_size must be at least 1, got %d", c.KAN.GridSize)
	}
	if c.KAN.SplineDegree < 1 {
		return errors.Errorf("config error: spline_degree must be at least 1, got %d", c.KAN.SplineDegree)
	}
	if c.KAN.DomainMax <= c.KAN.DomainMin {
		return errors.Errorf("config error: invalid domain [%g, %g]", c.KAN.DomainMin, c.KAN.DomainMax)
	}
	if _, err := ParseInitializer(c.KAN.WeightInit); err != nil {
		return errors.Wrap(err, "config error: weight_init")
	}
	if _, err := GetErrorFunction(c.KAN.ErrorFunction); err != nil {
		return errors.Wrap(err, "config error: error_function")
	}
	if c.Histogram.NumBins < 1 {
		return errors.Errorf("config error: num_bins must be positive, got %d", c.Histogram.NumBins)
	}
	if c.Histogram.InputDecay <= 0 || c.Histogram.InputDecay > 1 {
		return errors.Errorf("config error: input_decay must be in (0, 1], got %g", c.Histogram.InputDecay)
	}
	if c.Histogram.OutputDecay <= 0 || c.Histogram.OutputDecay > 1 {
		return errors.Errorf("config error: output_decay must be in (0, 1], got %g", c.Histogram.OutputDecay)
	}
	if c.Training.LearningRate <= 0 {
		return errors.Errorf("config error: learning_rate must be positive, got %g", c.Training.LearningRate)
	}
	if c.Training.BatchSize < 1 {
		return errors.Errorf("config error: batch_size must be at least 1, got %d", c.Training.BatchSize)
	}
	if c.Training.MaxEpochs < 1 {
		return errors.Errorf("config error: max_epochs must be at least 1, got %d", c.Training.MaxEpochs)
	}
	if c.Training.MaxStagnation < 1 {
		return errors.Errorf("config error: max_stagnation must be at least 1, got %d", c.Training.MaxStagnation)
	}
	return nil
}

// NetworkOptions translates the configuration into the per-edge construction
// options Build consumes.
func (c *Config) NetworkOptions() (Options, error) {
	init, err := ParseInitializer(c.KAN.WeightInit)
	if err != nil {
		return Options{}, err
	}
	return Options{
		GridSize:      c.KAN.GridSize,
		Degree:        c.KAN.SplineDegree,
		DomainMin:     c.KAN.DomainMin,
		DomainMax:     c.KAN.DomainMax,
		Init:          init,
		HistogramBins: c.Histogram.NumBins,
		InputDecay:    c.Histogram.InputDecay,
		OutputDecay:   c.Histogram.OutputDecay,
	}, nil
}

// cleanIniString removes inline comments and trims whitespace from a string
// read from INI.
func cleanIniString(s string) string {
	if idx := strings.IndexAny(s, "#;"); idx != -1 {
		s = s[:idx]
	}
	return strings.TrimSpace(s)
}
