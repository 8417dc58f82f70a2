// Package retention prunes reviewed moderation records and acknowledged
// warnings on a cron schedule.
package retention

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"kinship-hq/sentinel/pkg/config"
	"kinship-hq/sentinel/pkg/store"
)

// Pruner deletes reviewed records, their notifications, and acknowledged
// warnings older than the retention period. Unreviewed records are never
// pruned.
type Pruner struct {
	store  store.Store
	config config.RetentionConfig
	logger *slog.Logger
	now    func() time.Time
}

// NewPruner creates a pruner over st.
func NewPruner(st store.Store, cfg config.RetentionConfig, logger *slog.Logger) *Pruner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Pruner{
		store:  st,
		config: cfg,
		logger: logger.With("component", "store.retention"),
		now:    time.Now,
	}
}

// Cutoff returns the creation time before which rows are eligible.
func (p *Pruner) Cutoff() time.Time {
	return p.now().AddDate(0, 0, -p.config.Days)
}

// Prune runs one retention pass. It is a no-op when Days is 0.
func (p *Pruner) Prune(ctx context.Context) (store.PruneResult, error) {
	if p.config.Days <= 0 {
		p.logger.Debug("retention disabled, skipping prune")
		return store.PruneResult{}, nil
	}

	cutoff := p.Cutoff()
	p.logger.Debug("pruning by age", "cutoff_time", cutoff, "retention_days", p.config.Days)

	res, err := p.store.Prune(ctx, cutoff)
	if err != nil {
		return res, fmt.Errorf("prune older than %d days: %w", p.config.Days, err)
	}

	if res == (store.PruneResult{}) {
		p.logger.Debug("no rows pruned", "retention_days", p.config.Days)
	} else {
		p.logger.Info("moderation pruning completed",
			"records", res.Records,
			"notifications", res.Notifications,
			"warnings", res.Warnings,
			"retention_days", p.config.Days,
		)
	}
	return res, nil
}
