// Package rounds loads experiment files and turns them into controller and
// dataset configuration.
package rounds

import (
	"bytes"
	"fmt"
	"os"

	"github.com/absmach/rounds/controller"
	"github.com/absmach/rounds/pkg/dataset"
	pkgerrors "github.com/absmach/rounds/pkg/errors"
	"github.com/absmach/rounds/pkg/schedule"
	"github.com/pelletier/go-toml"
)

const DefaultModelPath = "./model.cbor"

type Config struct {
	Experiment ExperimentConfig `toml:"experiment"`
	Schedule   ScheduleConfig   `toml:"schedule"`
	Optimizer  OptimizerConfig  `toml:"optimizer"`
	Dataset    DatasetConfig    `toml:"dataset"`
}

type ExperimentConfig struct {
	Name      string  `toml:"name"`
	BatchSize int     `toml:"batch_size"`
	Epochs    int     `toml:"epochs"`
	Rounds    int     `toml:"rounds"`
	PInitial  float64 `toml:"p_initial"`
	PCorrupt  float64 `toml:"p_corrupt"`
	MaxN      int     `toml:"n_max"`
	Strategy  string  `toml:"strategy"`
	Take      int     `toml:"take"`
	ModelPath string  `toml:"model_path"`
	Seed      uint64  `toml:"seed"`
}

// ScheduleConfig lists learning-rate knots over epoch progress. No knots
// selects the default warmup and decay curve.
type ScheduleConfig struct {
	Knots  []float64 `toml:"knots"`
	Values []float64 `toml:"values"`
	Mode   string    `toml:"mode"`
}

type OptimizerConfig struct {
	Momentum    float64 `toml:"momentum"`
	WeightDecay float64 `toml:"weight_decay"`
	Nesterov    bool    `toml:"nesterov"`
}

type DatasetConfig struct {
	Classes      int     `toml:"classes"`
	Features     int     `toml:"features"`
	TrainSamples int     `toml:"train_samples"`
	ValidSamples int     `toml:"valid_samples"`
	Separation   float64 `toml:"separation"`
	Noise        float64 `toml:"noise"`
	Seed         uint64  `toml:"seed"`
	// Jitter is the standard deviation of gaussian noise added to training
	// inputs. Zero disables it.
	Jitter   float64 `toml:"jitter"`
	ScaleMin float64 `toml:"scale_min"`
	ScaleMax float64 `toml:"scale_max"`
}

func DefaultConfig() Config {
	cc := controller.DefaultConfig()
	ds := dataset.DefaultSyntheticConfig()

	return Config{
		Experiment: ExperimentConfig{
			BatchSize: cc.BatchSize,
			Epochs:    cc.Epochs,
			Rounds:    cc.Rounds,
			PInitial:  cc.PInitial,
			PCorrupt:  cc.PCorrupt,
			MaxN:      cc.MaxN,
			Strategy:  cc.Strategy.String(),
			ModelPath: DefaultModelPath,
		},
		Optimizer: OptimizerConfig{
			Momentum:    cc.Momentum,
			WeightDecay: cc.WeightDecay,
			Nesterov:    cc.Nesterov,
		},
		Dataset: DatasetConfig{
			Classes:      ds.Classes,
			Features:     ds.Features,
			TrainSamples: ds.TrainSamples,
			ValidSamples: ds.ValidSamples,
			Separation:   ds.Separation,
			Noise:        ds.Noise,
			Seed:         ds.Seed,
		},
	}
}

// LoadConfig reads a TOML experiment file over the defaults and validates the
// result.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	return ParseConfig(data)
}

func ParseConfig(data []byte) (*Config, error) {
	tree, err := toml.LoadBytes(data)
	if err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}

	cfg := DefaultConfig()
	if err := tree.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Save writes cfg as TOML to path.
func (c Config) Save(path string) error {
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Order(toml.OrderPreserve).Encode(c); err != nil {
		return fmt.Errorf("error encoding config: %w", err)
	}

	return os.WriteFile(path, buf.Bytes(), 0o644)
}

func (c Config) Validate() error {
	cc, err := c.Controller()
	if err != nil {
		return err
	}
	if err := cc.Validate(); err != nil {
		return err
	}

	d := c.Dataset
	switch {
	case d.Classes < 1 || d.Features < 1:
		return fmt.Errorf("%w: dataset needs at least one class and one feature", pkgerrors.ErrInvalidConfig)
	case d.TrainSamples < 1 || d.ValidSamples < 1:
		return fmt.Errorf("%w: dataset needs training and validation samples", pkgerrors.ErrInvalidConfig)
	case d.Noise < 0 || d.Jitter < 0:
		return fmt.Errorf("%w: noise and jitter must not be negative", pkgerrors.ErrInvalidConfig)
	case d.ScaleMin > d.ScaleMax:
		return fmt.Errorf("%w: scale_min %v above scale_max %v", pkgerrors.ErrInvalidConfig, d.ScaleMin, d.ScaleMax)
	}

	return nil
}

// Controller converts the file into a controller configuration.
func (c Config) Controller() (controller.Config, error) {
	strategy, err := controller.ParseStrategy(c.Experiment.Strategy)
	if err != nil {
		return controller.Config{}, err
	}

	var sched *schedule.PiecewiseLinear
	if len(c.Schedule.Knots) > 0 || len(c.Schedule.Values) > 0 {
		mode, err := schedule.ParseMode(c.Schedule.Mode)
		if err != nil {
			return controller.Config{}, fmt.Errorf("%w: %w", pkgerrors.ErrInvalidConfig, err)
		}
		if sched, err = schedule.NewPiecewiseLinear(c.Schedule.Knots, c.Schedule.Values, mode); err != nil {
			return controller.Config{}, fmt.Errorf("%w: %w", pkgerrors.ErrInvalidConfig, err)
		}
	}

	var augment []dataset.Transform
	if c.Dataset.Jitter > 0 {
		augment = append(augment, dataset.Jitter(c.Dataset.Jitter))
	}
	if c.Dataset.ScaleMax > 0 {
		augment = append(augment, dataset.Scale(c.Dataset.ScaleMin, c.Dataset.ScaleMax))
	}

	e := c.Experiment

	return controller.Config{
		RunName:     e.Name,
		BatchSize:   e.BatchSize,
		Epochs:      e.Epochs,
		Rounds:      e.Rounds,
		PInitial:    e.PInitial,
		PCorrupt:    e.PCorrupt,
		MaxN:        e.MaxN,
		Strategy:    strategy,
		Take:        e.Take,
		ModelPath:   e.ModelPath,
		Schedule:    sched,
		Momentum:    c.Optimizer.Momentum,
		WeightDecay: c.Optimizer.WeightDecay,
		Nesterov:    c.Optimizer.Nesterov,
		Augment:     augment,
		Classes:     c.Dataset.Classes,
		Seed:        e.Seed,
	}, nil
}

func (c Config) Synthetic() dataset.SyntheticConfig {
	d := c.Dataset

	return dataset.SyntheticConfig{
		Classes:      d.Classes,
		Features:     d.Features,
		TrainSamples: d.TrainSamples,
		ValidSamples: d.ValidSamples,
		Separation:   d.Separation,
		Noise:        d.Noise,
		Seed:         d.Seed,
	}
}
