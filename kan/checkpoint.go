package kan

import (
	"compress/gzip"
	"encoding/gob"
	"os"

	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

// networkSaveData holds the learned state of a network plus enough structure
// to verify it against a freshly built one. The full Config is not saved; it
// is reloaded from its original file on restore, exactly as the shape and
// input ids are re-supplied by the caller.
type networkSaveData struct {
	RunID    string
	Epoch    int
	BestLoss float64

	Shape    []int
	InputIDs []string

	GridSize  int
	Degree    int
	DomainMin float64
	DomainMax float64

	// ControlPoints maps edge id ("sourceID-destID") to the edge function's
	// control-point vector.
	ControlPoints map[string][]float64
	InactiveEdges []string
	InactiveNodes []string
}

// SaveCheckpoint writes the trainer's network state to a gzip-compressed gob
// file. Histograms and pending gradient accumulators are deliberately not
// persisted; they are transient visualization/batch state.
func (t *Trainer) SaveCheckpoint(filePath string) error {
	file, err := os.Create(filePath)
	if err != nil {
		return errors.Wrapf(err, "failed to create checkpoint file %q", filePath)
	}
	defer file.Close()

	gzWriter := gzip.NewWriter(file)
	defer gzWriter.Close()

	saveData := networkSaveData{
		RunID:         t.RunID,
		Epoch:         t.Epoch,
		BestLoss:      t.BestLoss,
		Shape:         networkShape(t.Net),
		ControlPoints: make(map[string][]float64),
	}
	for _, node := range t.Net.Layers[0] {
		saveData.InputIDs = append(saveData.InputIDs, node.ID)
	}
	t.Net.ForEachEdge(func(e *Edge) {
		saveData.GridSize = len(e.Fn.ControlPoints) - 1
		saveData.Degree = e.Fn.Degree
		saveData.DomainMin = e.Fn.DomainMin
		saveData.DomainMax = e.Fn.DomainMax
		points := make([]float64, len(e.Fn.ControlPoints))
		copy(points, e.Fn.ControlPoints)
		saveData.ControlPoints[e.ID()] = points
		if !e.IsActive {
			saveData.InactiveEdges = append(saveData.InactiveEdges, e.ID())
		}
	})
	t.Net.ForEachNode(false, func(n *Node) {
		if !n.IsActive {
			saveData.InactiveNodes = append(saveData.InactiveNodes, n.ID)
		}
	})

	if err := gob.NewEncoder(gzWriter).Encode(saveData); err != nil {
		return errors.Wrap(err, "failed to encode network data")
	}
	klog.V(1).Infof("run %s: checkpoint saved to %s (epoch %d)", t.RunID, filePath, t.Epoch)
	return nil
}

// LoadCheckpoint rebuilds a trainer from a checkpoint file and the original
// configuration file. The network is assembled fresh from the config and the
// saved shape, then the learned control points and active flags are restored
// onto it. The config's spline parameters must match the checkpoint: control
// point counts depend on them.
func LoadCheckpoint(checkpointPath, configPath string) (*Trainer, error) {
	config, err := LoadConfig(configPath)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to load config %q for checkpoint", configPath)
	}

	file, err := os.Open(checkpointPath)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open checkpoint file %q", checkpointPath)
	}
	defer file.Close()

	gzReader, err := gzip.NewReader(file)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create gzip reader for checkpoint")
	}
	defer gzReader.Close()

	saveData := networkSaveData{}
	if err := gob.NewDecoder(gzReader).Decode(&saveData); err != nil {
		return nil, errors.Wrap(err, "failed to decode network data from checkpoint")
	}

	effectiveDegree := config.KAN.SplineDegree
	if effectiveDegree > config.KAN.GridSize-1 {
		effectiveDegree = config.KAN.GridSize - 1
	}
	if saveData.GridSize != config.KAN.GridSize || saveData.Degree != effectiveDegree ||
		saveData.DomainMin != config.KAN.DomainMin || saveData.DomainMax != config.KAN.DomainMax {
		return nil, errors.Errorf(
			"checkpoint spline parameters (grid %d, degree %d, domain [%g, %g]) do not match config (grid %d, degree %d, domain [%g, %g])",
			saveData.GridSize, saveData.Degree, saveData.DomainMin, saveData.DomainMax,
			config.KAN.GridSize, effectiveDegree, config.KAN.DomainMin, config.KAN.DomainMax)
	}

	opts, err := config.NetworkOptions()
	if err != nil {
		return nil, err
	}
	net, err := Build(saveData.Shape, saveData.InputIDs, opts)
	if err != nil {
		return nil, errors.Wrap(err, "failed to rebuild network from checkpoint")
	}

	net.ForEachEdge(func(e *Edge) {
		if points, ok := saveData.ControlPoints[e.ID()]; ok {
			copy(e.Fn.ControlPoints, points)
		}
	})
	for _, id := range saveData.InactiveEdges {
		net.ForEachEdge(func(e *Edge) {
			if e.ID() == id {
				e.IsActive = false
			}
		})
	}
	for _, id := range saveData.InactiveNodes {
		net.ForEachNode(false, func(n *Node) {
			if n.ID == id {
				n.IsActive = false
			}
		})
	}

	trainer, err := NewTrainer(net, config)
	if err != nil {
		return nil, err
	}
	trainer.RunID = saveData.RunID
	trainer.Epoch = saveData.Epoch
	trainer.BestLoss = saveData.BestLoss
	klog.V(1).Infof("run %s: checkpoint loaded from %s (epoch %d)", trainer.RunID, checkpointPath, trainer.Epoch)
	return trainer, nil
}

func networkShape(net *Network) []int {
	shape := make([]int, len(net.Layers))
	for i, layer := range net.Layers {
		shape[i] = len(layer)
	}
	return shape
}
