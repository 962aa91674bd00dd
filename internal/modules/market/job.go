package market

import "context"

// RefreshJob moves simulated prices on the scheduler's clock
type RefreshJob struct {
	sim *Simulator
}

// NewRefreshJob creates a new RefreshJob
func NewRefreshJob(sim *Simulator) *RefreshJob {
	return &RefreshJob{sim: sim}
}

// Name returns the job name
func (j *RefreshJob) Name() string {
	return "market_refresh"
}

// Run executes one market refresh
func (j *RefreshJob) Run(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	j.sim.Refresh()
	return nil
}
