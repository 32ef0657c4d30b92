package monitor_test

import (
	"context"
	"testing"

	"github.com/absmach/rounds/pkg/monitor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProcessSampler(t *testing.T) {
	s, err := monitor.NewProcessSampler(0)
	require.NoError(t, err)

	first, err := s.Sample(context.Background())
	require.NoError(t, err)
	assert.Positive(t, first.RSSBytes)
	assert.GreaterOrEqual(t, first.CPUPercent, 0.0)

	work := 0.0
	for i := range 2_000_000 {
		work += float64(i)
	}
	_ = work

	second, err := s.Sample(context.Background())
	require.NoError(t, err)
	assert.Positive(t, second.RSSBytes)
	assert.GreaterOrEqual(t, second.CPUPercent, 0.0)
}

func TestProcessSamplerMissingProcess(t *testing.T) {
	_, err := monitor.NewProcessSampler(-1)
	assert.Error(t, err)
}
