package sync

import (
	"context"
	"fmt"
	"time"

	"tourdesk/internal/config"
	"tourdesk/internal/database"
	"tourdesk/internal/metrics"
	"tourdesk/internal/models"

	"github.com/rs/zerolog"
)

// FailureNotifier is told about items that exhausted their retries.
type FailureNotifier interface {
	NotifyTerminalFailure(item models.SyncQueueItem, errMsg string)
}

// RunOptions controls one dispatcher pass. RunMaintenance is set by an
// independently-scheduled trigger instead of the dispatcher looking at
// the wall clock, so passes stay deterministic.
type RunOptions struct {
	RunMaintenance bool
}

// RunResult aggregates one pass.
type RunResult struct {
	Processed int `json:"processed"`
	Succeeded int `json:"succeeded"`
	Failed    int `json:"failed"`
}

// Dispatcher orchestrates one bounded write-back pass: reclaim stuck
// items, drain a limited number of batches, optionally run retention
// maintenance. There is no long-lived worker; every pass is triggered
// externally and processes items sequentially.
type Dispatcher struct {
	db         *database.DB
	processor  *Processor
	retry      RetryPolicy
	cfg        config.SyncConfig
	sheets     SheetMap
	deadLetter *DeadLetter
	notifier   FailureNotifier
	backup     *database.BackupService
	logger     zerolog.Logger
}

func NewDispatcher(
	db *database.DB,
	processor *Processor,
	cfg config.SyncConfig,
	sheetMap SheetMap,
	deadLetter *DeadLetter,
	notifier FailureNotifier,
	backup *database.BackupService,
	logger *zerolog.Logger,
) *Dispatcher {
	base := zerolog.Nop()
	if logger != nil {
		base = logger.With().Str("component", "sync-dispatcher").Logger()
	}
	return &Dispatcher{
		db:        db,
		processor: processor,
		retry: RetryPolicy{
			InitialDelay:  2 * time.Second,
			MaxDelay:      time.Minute,
			BackoffFactor: 2,
		},
		cfg:        cfg,
		sheets:     sheetMap,
		deadLetter: deadLetter,
		notifier:   notifier,
		backup:     backup,
		logger:     base,
	}
}

// Run executes one pass. Concurrent runs are safe: the per-item claim in
// ClaimPendingSyncItems is the only re-entrancy guard needed.
func (d *Dispatcher) Run(ctx context.Context, opts RunOptions) (RunResult, *models.QueueStats, error) {
	var result RunResult

	reclaimed, err := d.db.ResetStuckSyncItems(ctx, d.cfg.StuckTimeout())
	if err != nil {
		return result, nil, fmt.Errorf("reset stuck items: %w", err)
	}
	if reclaimed > 0 {
		d.logger.Warn().Int64("count", reclaimed).Msg("reclaimed stuck sync items")
	}

	for batch := 0; batch < d.cfg.MaxBatches; batch++ {
		items, err := d.db.ClaimPendingSyncItems(ctx, d.cfg.BatchSize)
		if err != nil {
			return result, nil, fmt.Errorf("claim batch: %w", err)
		}
		if len(items) == 0 {
			break
		}

		for i := range items {
			d.processItem(ctx, &items[i], &result)
		}
	}

	if opts.RunMaintenance {
		d.runMaintenance(ctx)
	}

	stats, err := d.db.QueueStats(ctx)
	if err != nil {
		return result, nil, fmt.Errorf("queue stats: %w", err)
	}
	metrics.SetQueueDepth(models.StatusPending, stats.Pending)
	metrics.SetQueueDepth(models.StatusProcessing, stats.Processing)
	metrics.SetQueueDepth(models.StatusCompleted, stats.Completed)
	metrics.SetQueueDepth(models.StatusFailed, stats.Failed)

	d.logger.Info().
		Int("processed", result.Processed).
		Int("succeeded", result.Succeeded).
		Int("failed", result.Failed).
		Msg("dispatcher pass finished")

	return result, stats, nil
}

func (d *Dispatcher) processItem(ctx context.Context, item *models.SyncQueueItem, result *RunResult) {
	result.Processed++

	sheet, err := d.sheets.SheetFor(item.Model)
	if err != nil {
		// Unknown model can only come from a corrupted row; terminal.
		sheet = item.Model
	}

	rowIndex, procErr := d.processor.Process(ctx, item)
	if procErr == nil {
		result.Succeeded++
		if err := d.db.MarkSyncItemCompleted(ctx, item.ID); err != nil {
			d.logger.Error().Err(err).Int64("item_id", item.ID).Msg("mark completed")
		}
		d.appendLog(ctx, sheet, item, rowIndex, models.LogSuccess, nil)
		metrics.IncSyncItem(item.Model, models.LogSuccess)
		return
	}

	result.Failed++
	errMsg := procErr.Error()
	nextRetry := time.Now().Add(d.retry.NextDelay(item.Retries + 1))
	terminal, err := d.db.MarkSyncItemFailed(ctx, item.ID, errMsg, d.cfg.MaxRetries, &nextRetry)
	if err != nil {
		d.logger.Error().Err(err).Int64("item_id", item.ID).Msg("mark failed")
	}
	d.appendLog(ctx, sheet, item, rowIndex, models.LogFailed, &errMsg)
	metrics.IncSyncItem(item.Model, models.LogFailed)

	d.logger.Warn().
		Int64("item_id", item.ID).
		Str("model", item.Model).
		Str("action", item.Action).
		Bool("terminal", terminal).
		Str("error", errMsg).
		Msg("sync item failed")

	if terminal {
		if d.deadLetter != nil {
			d.deadLetter.Push(ctx, *item, errMsg)
		}
		if d.notifier != nil {
			d.notifier.NotifyTerminalFailure(*item, errMsg)
		}
	}
}

func (d *Dispatcher) appendLog(ctx context.Context, sheet string, item *models.SyncQueueItem, rowIndex int, status string, errMsg *string) {
	entry := &models.SyncLogEntry{
		SheetName:    sheet,
		Action:       item.Action,
		RowIndex:     rowIndex,
		RecordID:     item.RecordID,
		Status:       status,
		ErrorMessage: errMsg,
	}
	if err := d.db.InsertSyncLog(ctx, entry); err != nil {
		d.logger.Error().Err(err).Int64("item_id", item.ID).Msg("insert sync log")
	}
}

func (d *Dispatcher) runMaintenance(ctx context.Context) {
	purged, err := d.db.CleanupCompletedSyncItems(ctx, time.Duration(d.cfg.RetentionDays)*24*time.Hour)
	if err != nil {
		d.logger.Error().Err(err).Msg("cleanup completed items")
	} else if purged > 0 {
		d.logger.Info().Int64("count", purged).Msg("purged completed sync items")
	}

	if d.backup != nil {
		if err := d.backup.Run(); err != nil {
			d.logger.Error().Err(err).Msg("maintenance backup")
		}
	}
}
