package rounds_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/absmach/rounds"
	"github.com/absmach/rounds/controller"
	pkgerrors "github.com/absmach/rounds/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const experiment = `
[experiment]
name = "growing-pool"
batch_size = 64
epochs = 8
rounds = 4
p_initial = 0.2
n_max = 1000
strategy = "reset_each_round"
model_path = "out/model.cbor"
seed = 3

[schedule]
knots = [0.0, 2.0, 8.0]
values = [0.0, 0.2, 0.0]
mode = "clamp"

[optimizer]
nesterov = false

[dataset]
classes = 4
features = 8
train_samples = 1200
valid_samples = 200
jitter = 0.05
`

func TestParseConfig(t *testing.T) {
	cfg, err := rounds.ParseConfig([]byte(experiment))
	require.NoError(t, err)

	assert.Equal(t, "growing-pool", cfg.Experiment.Name)
	assert.Equal(t, 64, cfg.Experiment.BatchSize)
	assert.Equal(t, 1000, cfg.Experiment.MaxN)
	assert.Equal(t, 0.0, cfg.Experiment.PCorrupt)
	assert.False(t, cfg.Optimizer.Nesterov)
	assert.Equal(t, controller.DefaultMomentum, cfg.Optimizer.Momentum)
	assert.Equal(t, 2.0, cfg.Dataset.Separation)

	cc, err := cfg.Controller()
	require.NoError(t, err)
	assert.Equal(t, controller.ResetEachRound, cc.Strategy)
	assert.Equal(t, 4, cc.Classes)
	assert.Equal(t, uint64(3), cc.Seed)
	assert.Len(t, cc.Augment, 1)
	require.NotNil(t, cc.Schedule)
	assert.InDelta(t, 0.2, cc.Schedule.At(2), 1e-12)
	assert.InDelta(t, 0.0, cc.Schedule.At(10), 1e-12)

	syn := cfg.Synthetic()
	assert.Equal(t, 1200, syn.TrainSamples)
	assert.Equal(t, uint64(1), syn.Seed)
}

func TestParseConfigDefaults(t *testing.T) {
	cfg, err := rounds.ParseConfig([]byte(""))
	require.NoError(t, err)
	assert.Equal(t, rounds.DefaultConfig(), *cfg)

	cc, err := cfg.Controller()
	require.NoError(t, err)
	assert.Equal(t, controller.DefaultBatchSize, cc.BatchSize)
	assert.Equal(t, controller.DefaultEpochs, cc.Epochs)
	assert.Equal(t, -1, cc.MaxN)
	assert.True(t, cc.Nesterov)
	assert.Nil(t, cc.Schedule)
	assert.Empty(t, cc.Augment)
	assert.Equal(t, rounds.DefaultModelPath, cc.ModelPath)
}

func TestParseConfigErrors(t *testing.T) {
	cases := []struct {
		desc string
		data string
		err  error
	}{
		{desc: "unknown strategy", data: "[experiment]\nstrategy = \"sideways\"", err: pkgerrors.ErrInvalidConfig},
		{desc: "zero epochs", data: "[experiment]\nepochs = 0", err: pkgerrors.ErrInvalidConfig},
		{desc: "fraction above one", data: "[experiment]\np_initial = 1.5", err: pkgerrors.ErrInvalidConfig},
		{desc: "unsorted knots", data: "[schedule]\nknots = [2.0, 1.0]\nvalues = [0.0, 0.1]", err: pkgerrors.ErrInvalidConfig},
		{desc: "unknown schedule mode", data: "[schedule]\nknots = [0.0, 1.0]\nvalues = [0.0, 0.1]\nmode = \"wrap\"", err: pkgerrors.ErrInvalidConfig},
		{desc: "no classes", data: "[dataset]\nclasses = 0", err: pkgerrors.ErrInvalidConfig},
		{desc: "inverted scale", data: "[dataset]\nscale_min = 2.0\nscale_max = 1.0", err: pkgerrors.ErrInvalidConfig},
	}

	for _, tc := range cases {
		t.Run(tc.desc, func(t *testing.T) {
			_, err := rounds.ParseConfig([]byte(tc.data))
			assert.ErrorIs(t, err, tc.err)
		})
	}

	_, err := rounds.ParseConfig([]byte("[experiment"))
	assert.Error(t, err)
}

func TestSaveAndLoadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "experiment.toml")

	cfg := rounds.DefaultConfig()
	cfg.Experiment.Name = "saved"
	cfg.Experiment.Rounds = 3
	cfg.Experiment.PInitial = 0.25
	cfg.Schedule.Knots = []float64{0, 4, 24}
	cfg.Schedule.Values = []float64{0, 0.3, 0}
	require.NoError(t, cfg.Save(path))

	loaded, err := rounds.LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, *loaded)

	_, err = rounds.LoadConfig(filepath.Join(t.TempDir(), "missing.toml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}
