package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	leaderboardDto "anoa.com/coinexchange/internal/modules/leaderboard/dto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingJob struct {
	name     string
	schedule string
	runs     int
}

func (j *countingJob) Name() string     { return j.name }
func (j *countingJob) Schedule() string { return j.schedule }
func (j *countingJob) Execute(ctx context.Context) error {
	j.runs++
	return nil
}

func TestRegisterAndRunByName(t *testing.T) {
	s := NewScheduler(time.UTC)

	daily := &countingJob{name: "daily", schedule: "0 0 * * *"}
	manual := &countingJob{name: "manual"}
	require.NoError(t, s.Register(daily))
	require.NoError(t, s.Register(manual))
	assert.Equal(t, []string{"daily", "manual"}, s.Jobs())

	require.NoError(t, s.RunByName(context.Background(), "manual"))
	assert.Equal(t, 1, manual.runs)
	assert.Equal(t, 0, daily.runs)

	assert.Error(t, s.RunByName(context.Background(), "missing"))
}

func TestRegisterRejectsBadSchedule(t *testing.T) {
	s := NewScheduler(nil)
	assert.Error(t, s.Register(&countingJob{name: "broken", schedule: "every tuesday"}))
}

type fakeCloser struct {
	closed []string
	fail   string
}

func (f *fakeCloser) ClosePeriod(ctx context.Context, periodKey string) ([]leaderboardDto.LeaderboardEntry, error) {
	if periodKey == f.fail {
		return nil, errors.New("boom")
	}
	f.closed = append(f.closed, periodKey)
	return nil, nil
}

func TestClosePeriodsJobClosesPreviousWeekAndMonth(t *testing.T) {
	closer := &fakeCloser{}
	job := NewClosePeriodsJob(closer, time.UTC)
	job.now = func() time.Time { return time.Date(2026, 3, 2, 0, 5, 0, 0, time.UTC) }

	require.NoError(t, job.Execute(context.Background()))
	assert.Equal(t, []string{"weekly:2026-W09", "monthly:2026-02"}, closer.closed)
}

func TestClosePeriodsJobContinuesAfterFailure(t *testing.T) {
	closer := &fakeCloser{fail: "weekly:2026-W09"}
	job := NewClosePeriodsJob(closer, time.UTC)
	job.now = func() time.Time { return time.Date(2026, 3, 2, 0, 5, 0, 0, time.UTC) }

	assert.Error(t, job.Execute(context.Background()))
	assert.Equal(t, []string{"monthly:2026-02"}, closer.closed)
}
