// Package monitor samples resource usage of the training process.
package monitor

import (
	"context"
	"errors"
	"os"
	"sync"

	"github.com/absmach/rounds/pkg/recorder"
	"github.com/shirou/gopsutil/v3/process"
)

type ProcessSampler struct {
	mu   sync.Mutex
	proc *process.Process
}

// NewProcessSampler watches pid, or the current process when pid is 0.
func NewProcessSampler(pid int32) (*ProcessSampler, error) {
	if pid == 0 {
		pid = int32(os.Getpid())
	}
	proc, err := process.NewProcess(pid)
	if err != nil {
		return nil, err
	}

	return &ProcessSampler{proc: proc}, nil
}

// Sample returns RSS and the CPU percentage since the previous sample. Partial
// readings are returned alongside the joined error.
func (s *ProcessSampler) Sample(ctx context.Context) (recorder.Resources, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var res recorder.Resources
	var errs []error

	if cpu, err := s.proc.PercentWithContext(ctx, 0); err == nil {
		res.CPUPercent = cpu
	} else {
		errs = append(errs, err)
	}

	if mem, err := s.proc.MemoryInfoWithContext(ctx); err == nil {
		res.RSSBytes = mem.RSS
	} else {
		errs = append(errs, err)
	}

	return res, errors.Join(errs...)
}
