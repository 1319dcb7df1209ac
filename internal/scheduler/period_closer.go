package scheduler

import (
	"context"
	"errors"
	"time"

	leaderboardDto "anoa.com/coinexchange/internal/modules/leaderboard/dto"
	leaderboardService "anoa.com/coinexchange/internal/modules/leaderboard/service"
	"anoa.com/coinexchange/pkg/logger"
	"go.uber.org/zap"
)

// PeriodCloser is the part of the leaderboard service the job needs.
type PeriodCloser interface {
	ClosePeriod(ctx context.Context, periodKey string) ([]leaderboardDto.LeaderboardEntry, error)
}

// ClosePeriodsJob freezes the week and month that ended most recently. It runs
// daily so a missed run is caught up the next day; closing is idempotent.
type ClosePeriodsJob struct {
	closer PeriodCloser
	loc    *time.Location
	now    func() time.Time
}

func NewClosePeriodsJob(closer PeriodCloser, loc *time.Location) *ClosePeriodsJob {
	if loc == nil {
		loc = time.UTC
	}
	return &ClosePeriodsJob{closer: closer, loc: loc, now: time.Now}
}

func (j *ClosePeriodsJob) Name() string { return "close-periods" }

func (j *ClosePeriodsJob) Schedule() string { return "5 0 * * *" }

func (j *ClosePeriodsJob) Execute(ctx context.Context) error {
	var errs []error
	for _, key := range leaderboardService.PreviousPeriodKeys(j.now(), j.loc) {
		entries, err := j.closer.ClosePeriod(ctx, key)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		logger.Log.Info("period closed", zap.String("period", key), zap.Int("ranked", len(entries)))
	}
	return errors.Join(errs...)
}
