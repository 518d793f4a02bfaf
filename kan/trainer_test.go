package kan

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestTrainer(t *testing.T, config *Config) *Trainer {
	t.Helper()
	opts, err := config.NetworkOptions()
	require.NoError(t, err)
	net, err := Build([]int{1, 2, 1}, []string{"x"}, opts)
	require.NoError(t, err)
	trainer, err := NewTrainer(net, config)
	require.NoError(t, err)
	return trainer
}

func lineDataset(n int) []Sample {
	samples := make([]Sample, n)
	for i := range samples {
		x := -1 + 2*float64(i)/float64(n-1)
		samples[i] = Sample{Inputs: []float64{x}, Target: 0.5 * x}
	}
	return samples
}

func TestNewTrainer(t *testing.T) {
	trainer := newTestTrainer(t, DefaultConfig())
	assert.NotEmpty(t, trainer.RunID)
	assert.Equal(t, 0, trainer.Epoch)
	assert.True(t, math.IsInf(trainer.BestLoss, 1))
}

func TestNewTrainerRejectsUnknownErrorFunction(t *testing.T) {
	config := DefaultConfig()
	config.KAN.ErrorFunction = "bogus"
	opts, err := DefaultConfig().NetworkOptions()
	require.NoError(t, err)
	net, err := Build([]int{1, 1}, []string{"x"}, opts)
	require.NoError(t, err)
	_, err = NewTrainer(net, config)
	assert.Error(t, err)
}

func TestRunEpochEmptyDataset(t *testing.T) {
	trainer := newTestTrainer(t, DefaultConfig())
	_, err := trainer.RunEpoch(nil)
	assert.Error(t, err)
}

func TestRunEpochTracksProgress(t *testing.T) {
	config := DefaultConfig()
	config.KAN.WeightInit = "0.5"
	trainer := newTestTrainer(t, config)

	samples := lineDataset(32)
	first, err := trainer.RunEpoch(samples)
	require.NoError(t, err)
	assert.Equal(t, 1, trainer.Epoch)
	assert.Equal(t, first, trainer.BestLoss)
}

func TestTrainingReducesLoss(t *testing.T) {
	config := DefaultConfig()
	config.KAN.WeightInit = "0.5"
	config.Training.LearningRate = 0.05
	config.Training.BatchSize = 4
	config.Training.Shuffle = false
	trainer := newTestTrainer(t, config)

	samples := lineDataset(32)
	first, err := trainer.RunEpoch(samples)
	require.NoError(t, err)

	var last float64
	for i := 0; i < 30; i++ {
		last, err = trainer.RunEpoch(samples)
		require.NoError(t, err)
	}
	assert.Less(t, last, first, "mean loss should drop over 30 epochs of SGD")
	assert.LessOrEqual(t, trainer.BestLoss, last)
}

func TestRunStopsAtMaxEpochs(t *testing.T) {
	config := DefaultConfig()
	config.KAN.WeightInit = "0.5"
	config.Training.MaxEpochs = 5
	config.Training.LossThreshold = 0 // unreachable
	config.Training.MaxStagnation = 100
	trainer := newTestTrainer(t, config)

	_, err := trainer.Run(lineDataset(16))
	require.NoError(t, err)
	assert.Equal(t, 5, trainer.Epoch)
}

func TestRunStopsOnLossThreshold(t *testing.T) {
	config := DefaultConfig()
	config.KAN.WeightInit = "0" // zero spline fits a zero target exactly
	trainer := newTestTrainer(t, config)

	samples := make([]Sample, 8)
	for i := range samples {
		samples[i] = Sample{Inputs: []float64{float64(i) / 8}, Target: 0}
	}
	best, err := trainer.Run(samples)
	require.NoError(t, err)
	assert.Equal(t, 1, trainer.Epoch)
	assert.Equal(t, 0.0, best)
	assert.True(t, trainer.Converged())
}

func TestBatchBoundaryUpdates(t *testing.T) {
	// With batch size 2 and 3 samples, parameters must change both at the
	// batch boundary and for the trailing partial batch.
	config := DefaultConfig()
	config.KAN.WeightInit = "0.5"
	config.Training.BatchSize = 2
	config.Training.Shuffle = false
	trainer := newTestTrainer(t, config)

	var edge *Edge
	trainer.Net.ForEachEdge(func(e *Edge) {
		if edge == nil {
			edge = e
		}
	})
	before := make([]float64, len(edge.Fn.ControlPoints))
	copy(before, edge.Fn.ControlPoints)

	_, err := trainer.RunEpoch(lineDataset(3))
	require.NoError(t, err)
	assert.NotEqual(t, before, edge.Fn.ControlPoints)

	// No pending accumulation is left behind after the epoch.
	frozen := make([]float64, len(edge.Fn.ControlPoints))
	copy(frozen, edge.Fn.ControlPoints)
	trainer.Net.UpdateWeights(config.Training.LearningRate)
	assert.Equal(t, frozen, edge.Fn.ControlPoints)
}
