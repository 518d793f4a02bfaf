package kan

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfigFile(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))
	return path
}

func TestDefaultConfigIsValid(t *testing.T) {
	config := DefaultConfig()
	require.NoError(t, config.Validate())

	opts, err := config.NetworkOptions()
	require.NoError(t, err)
	assert.Equal(t, BasisGlorot(), opts.Init)
	assert.Equal(t, -1.0, opts.DomainMin)
	assert.Equal(t, 1.0, opts.DomainMax)
}

func TestLoadConfig(t *testing.T) {
	path := writeConfigFile(t, `
[KAN]
grid_size      = 8
spline_degree  = 2
domain_min     = -6.0
domain_max     = 6.0
weight_init    = 0.1   ; fixed noise
error_function = square

[Histogram]
num_bins     = 30
input_decay  = 0.99
output_decay = 0.8

[Training]
learning_rate = 0.01
batch_size    = 4
`)

	config, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, 8, config.KAN.GridSize)
	assert.Equal(t, 2, config.KAN.SplineDegree)
	assert.Equal(t, -6.0, config.KAN.DomainMin)
	assert.Equal(t, 6.0, config.KAN.DomainMax)
	assert.Equal(t, 30, config.Histogram.NumBins)
	assert.Equal(t, 0.01, config.Training.LearningRate)
	assert.Equal(t, 4, config.Training.BatchSize)
	// Keys absent from the file keep their defaults.
	assert.Equal(t, DefaultConfig().Training.MaxEpochs, config.Training.MaxEpochs)

	opts, err := config.NetworkOptions()
	require.NoError(t, err)
	assert.Equal(t, FixedNoise(0.1), opts.Init)
}

func TestLoadConfigMissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "nope"))
	assert.Error(t, err)
}

func TestConfigValidation(t *testing.T) {
	for name, mutate := range map[string]func(*Config){
		"grid size":      func(c *Config) { c.KAN.GridSize = 0 },
		"degree":         func(c *Config) { c.KAN.SplineDegree = 0 },
		"domain":         func(c *Config) { c.KAN.DomainMax = c.KAN.DomainMin },
		"weight init":    func(c *Config) { c.KAN.WeightInit = "bogus" },
		"error function": func(c *Config) { c.KAN.ErrorFunction = "bogus" },
		"bins":           func(c *Config) { c.Histogram.NumBins = 0 },
		"input decay":    func(c *Config) { c.Histogram.InputDecay = 1.5 },
		"output decay":   func(c *Config) { c.Histogram.OutputDecay = 0 },
		"learning rate":  func(c *Config) { c.Training.LearningRate = -1 },
		"batch size":     func(c *Config) { c.Training.BatchSize = 0 },
		"max epochs":     func(c *Config) { c.Training.MaxEpochs = 0 },
		"max stagnation": func(c *Config) { c.Training.MaxStagnation = 0 },
	} {
		config := DefaultConfig()
		mutate(config)
		assert.Error(t, config.Validate(), name)
	}
}
