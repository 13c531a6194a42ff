package scheduler

import (
	"context"
	"time"
)

// FuncJob adapts a context-aware function into a Job. Each run gets a fresh
// context bounded by the timeout, if one is set.
type FuncJob struct {
	name    string
	fn      func(ctx context.Context) error
	timeout time.Duration
}

// NewFuncJob creates a function job
func NewFuncJob(name string, timeout time.Duration, fn func(ctx context.Context) error) *FuncJob {
	return &FuncJob{name: name, fn: fn, timeout: timeout}
}

// Name returns the job name
func (j *FuncJob) Name() string {
	return j.name
}

// Run executes the function
func (j *FuncJob) Run() error {
	ctx := context.Background()
	if j.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, j.timeout)
		defer cancel()
	}
	return j.fn(ctx)
}
