package schedule

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type countingJob struct {
	name  string
	calls int
	err   error
	block chan struct{}
}

func (j *countingJob) Name() string { return j.name }

func (j *countingJob) Run(ctx context.Context) error {
	j.calls++
	if j.block != nil {
		<-j.block
	}
	return j.err
}

func TestAddJobRejectsBadSpecAndDuplicates(t *testing.T) {
	s := NewCronScheduler()
	require.Error(t, s.AddJob(&countingJob{name: "a"}, "not a spec"))
	require.NoError(t, s.AddJob(&countingJob{name: "a"}, "0 3 * * *"))
	require.Error(t, s.AddJob(&countingJob{name: "a"}, "0 4 * * *"))
}

func TestRunNow(t *testing.T) {
	s := NewCronScheduler()
	ok := &countingJob{name: "ok"}
	bad := &countingJob{name: "bad", err: errors.New("boom")}
	require.NoError(t, s.AddJob(ok, "0 * * * *"))
	require.NoError(t, s.AddJob(bad, "0 * * * *"))

	require.NoError(t, s.RunNow(context.Background(), "ok"))
	require.Equal(t, 1, ok.calls)
	require.EqualError(t, s.RunNow(context.Background(), "bad"), "boom")
	require.Error(t, s.RunNow(context.Background(), "missing"))
}

func TestRunNowSkipsWhileRunning(t *testing.T) {
	s := NewCronScheduler()
	job := &countingJob{name: "slow", block: make(chan struct{})}
	require.NoError(t, s.AddJob(job, "0 * * * *"))

	done := make(chan error, 1)
	go func() { done <- s.RunNow(context.Background(), "slow") }()
	require.Eventually(t, func() bool { return s.entries["slow"].running.Load() }, time.Second, time.Millisecond)

	require.Error(t, s.RunNow(context.Background(), "slow"))
	close(job.block)
	require.NoError(t, <-done)
}
