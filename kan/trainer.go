package kan

import (
	"math"
	"math/rand"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/stat"
	"k8s.io/klog/v2"
)

// Sample is one training example: an input vector matching the network's
// input layer and a scalar target.
type Sample struct {
	Inputs []float64
	Target float64
}

// Trainer drives mini-batch gradient descent over a network. It owns no
// concurrency: the caller stops training by not calling the next epoch, and
// must not touch the network from another goroutine mid-epoch.
type Trainer struct {
	Net    *Network
	Config *Config
	ErrFn  ErrorFunction

	// RunID identifies this training run in logs and checkpoints.
	RunID string

	// Epoch counts completed epochs; BestLoss is the lowest epoch mean loss
	// seen so far.
	Epoch    int
	BestLoss float64

	stagnation int
}

// NewTrainer builds a trainer for an already-assembled network.
func NewTrainer(net *Network, config *Config) (*Trainer, error) {
	errFn, err := GetErrorFunction(config.KAN.ErrorFunction)
	if err != nil {
		return nil, errors.Wrap(err, "creating trainer")
	}
	return &Trainer{
		Net:      net,
		Config:   config,
		ErrFn:    errFn,
		RunID:    uuid.NewString(),
		BestLoss: math.Inf(1),
	}, nil
}

// RunEpoch makes one pass over the samples: forward, backward, and a
// parameter update at every batch boundary (plus a final update for a partial
// trailing batch). It returns the mean pre-update loss over the epoch.
func (t *Trainer) RunEpoch(samples []Sample) (float64, error) {
	if len(samples) == 0 {
		return 0, errors.New("cannot run an epoch over an empty dataset")
	}

	order := make([]int, len(samples))
	for i := range order {
		order[i] = i
	}
	if t.Config.Training.Shuffle {
		rand.Shuffle(len(order), func(i, j int) {
			order[i], order[j] = order[j], order[i]
		})
	}

	batchSize := t.Config.Training.BatchSize
	lr := t.Config.Training.LearningRate
	losses := make([]float64, 0, len(samples))
	for i, idx := range order {
		s := samples[idx]
		output, err := t.Net.ForwardProp(s.Inputs, true)
		if err != nil {
			return 0, errors.Wrapf(err, "epoch %d, sample %d", t.Epoch+1, idx)
		}
		losses = append(losses, t.ErrFn.Error(output, s.Target))
		t.Net.BackProp(s.Target, t.ErrFn)
		if (i+1)%batchSize == 0 {
			t.Net.UpdateWeights(lr)
		}
	}
	if len(samples)%batchSize != 0 {
		t.Net.UpdateWeights(lr)
	}

	t.Epoch++
	meanLoss := stat.Mean(losses, nil)
	if meanLoss < t.BestLoss {
		t.BestLoss = meanLoss
		t.stagnation = 0
	} else {
		t.stagnation++
	}
	klog.V(1).Infof("run %s epoch %d: mean loss %.6g (best %.6g, stagnation %d)",
		t.RunID, t.Epoch, meanLoss, t.BestLoss, t.stagnation)
	return meanLoss, nil
}

// Run trains until the loss threshold is met, progress stagnates for
// max_stagnation epochs, or max_epochs is reached, and returns the best mean
// epoch loss. Converged reports whether the threshold was met.
func (t *Trainer) Run(samples []Sample) (float64, error) {
	for t.Epoch < t.Config.Training.MaxEpochs {
		meanLoss, err := t.RunEpoch(samples)
		if err != nil {
			return t.BestLoss, err
		}
		if meanLoss <= t.Config.Training.LossThreshold {
			klog.Infof("run %s: loss threshold %g met at epoch %d", t.RunID, t.Config.Training.LossThreshold, t.Epoch)
			return t.BestLoss, nil
		}
		if t.Stagnated() {
			klog.Infof("run %s: no improvement for %d epochs, stopping at epoch %d",
				t.RunID, t.stagnation, t.Epoch)
			return t.BestLoss, nil
		}
	}
	return t.BestLoss, nil
}

// Converged reports whether the best loss has reached the configured
// threshold.
func (t *Trainer) Converged() bool {
	return t.BestLoss <= t.Config.Training.LossThreshold
}

// Stagnated reports whether training has gone max_stagnation consecutive
// epochs without improving the best loss.
func (t *Trainer) Stagnated() bool {
	return t.stagnation >= t.Config.Training.MaxStagnation
}
