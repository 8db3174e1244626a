package waitlist

import (
	"context"
	"errors"
	"fmt"

	"github.com/akeren/waitlist-foundry/internal/log"
	apperrors "github.com/akeren/waitlist-foundry/pkg/errors"
)

// ReplayReport counts the outcome of one replay run.
type ReplayReport struct {
	Total    int `json:"total"`
	Replayed int `json:"replayed"`
	Failed   int `json:"failed"`
}

// Replayer copies entries captured by the local store into the remote
// backend. Upserts are keyed by email, so running it twice is harmless.
type Replayer struct {
	source EntryLister
	target WaitlistRepository
	logger *log.Logger
}

func NewReplayer(source EntryLister, target WaitlistRepository, logger *log.Logger) *Replayer {
	return &Replayer{source: source, target: target, logger: logger}
}

// Replay pushes every local entry. A failed entry is counted and skipped;
// the returned error joins every per-entry failure.
func (r *Replayer) Replay(ctx context.Context) (ReplayReport, error) {
	logger := log.GetLoggerInstanceFromContext(ctx, r.logger)

	entries, err := r.source.ListEntries(ctx)
	if err != nil {
		return ReplayReport{}, fmt.Errorf("list local entries: %w", err)
	}

	report := ReplayReport{Total: len(entries)}
	var failures []error

	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return report, err
		}

		// The remote backend stamps updated_at itself; the local stamp may
		// predate a newer remote write.
		patch := EntryPatch{Email: entry.Email, CreatedAt: entry.CreatedAt}
		// Only a completed signup is carried over; false would overwrite
		// progress already recorded remotely.
		if entry.CompletedSignup {
			completed := true
			patch.CompletedSignup = &completed
		}

		if _, err := r.target.UpsertEntry(ctx, patch); err != nil {
			report.Failed++
			failures = append(failures, fmt.Errorf("%s: %w", entry.Email, err))
			logger.Warn("Failed to replay waitlist entry",
				"backend", r.target.Backend(),
				"error_type", apperrors.GetErrorType(err),
				"error", err,
			)
			continue
		}

		report.Replayed++
	}

	logger.Info("Local waitlist replay finished",
		"backend", r.target.Backend(),
		"total", report.Total,
		"replayed", report.Replayed,
		"failed", report.Failed,
	)

	return report, errors.Join(failures...)
}
