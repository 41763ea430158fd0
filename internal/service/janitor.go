package service

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/yasinhessnawi1/SecureTransfer_Backend/internal/config"
	"github.com/yasinhessnawi1/SecureTransfer_Backend/internal/constants"
	"github.com/yasinhessnawi1/SecureTransfer_Backend/internal/filestore"
	"github.com/yasinhessnawi1/SecureTransfer_Backend/internal/models"
	"github.com/yasinhessnawi1/SecureTransfer_Backend/internal/repository"
	"github.com/yasinhessnawi1/SecureTransfer_Backend/internal/utils"
)

// Janitor reconciles the session store with the session folders on disk.
// Expiry in the store removes keys independently of each other and never
// touches the disk; the janitor removes what expiry leaves behind.
type Janitor struct {
	store        repository.SessionStore
	files        *filestore.Store
	interval     time.Duration
	errorBackoff time.Duration
	log          zerolog.Logger
}

// NewJanitor creates a new Janitor
func NewJanitor(store repository.SessionStore, files *filestore.Store, cfg *config.JanitorSettings) *Janitor {
	j := &Janitor{
		store:        store,
		files:        files,
		interval:     constants.DefaultJanitorInterval,
		errorBackoff: constants.DefaultJanitorErrorBackoff,
		log:          log.With().Str("category", constants.LogCategoryJanitor).Logger(),
	}
	if cfg != nil {
		if cfg.Interval > 0 {
			j.interval = cfg.Interval
		}
		if cfg.ErrorBackoff > 0 {
			j.errorBackoff = cfg.ErrorBackoff
		}
	}
	return j
}

// Run sweeps until ctx is cancelled. A failed sweep is retried after the
// error backoff instead of the regular interval.
func (j *Janitor) Run(ctx context.Context) {
	j.log.Info().
		Dur("interval", j.interval).
		Dur("error_backoff", j.errorBackoff).
		Msg("Janitor started")

	timer := time.NewTimer(0)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			j.log.Info().Msg("Janitor stopped")
			return
		case <-timer.C:
		}

		wait := j.interval
		result, err := j.Sweep(ctx)
		switch {
		case err != nil:
			if ctx.Err() != nil {
				j.log.Info().Msg("Janitor stopped")
				return
			}
			j.log.Error().Err(err).Dur("retry_in", j.errorBackoff).Msg("Janitor sweep failed")
			wait = j.errorBackoff
		case result.Changed():
			j.log.Info().
				Int("keys_scanned", result.KeysScanned).
				Int("orphan_keys", result.OrphanKeys).
				Int("closed_sessions", result.ClosedSessions).
				Int("folders_removed", result.FoldersRemoved).
				Int("folder_failures", result.FolderFailures).
				Dur("duration", result.Duration).
				Msg("Janitor sweep completed")
		default:
			j.log.Debug().Int("keys_scanned", result.KeysScanned).Msg("Janitor sweep found nothing to clean")
		}

		timer.Reset(wait)
	}
}

// Sweep makes one cleanup pass:
//   - participant and file keys whose record has expired are deleted
//   - closed records are deleted together with their sibling keys
//   - online session folders without a record are removed
//
// Folder removal failures are logged and counted rather than returned.
func (j *Janitor) Sweep(ctx context.Context) (*models.SweepResult, error) {
	start := time.Now()
	result := &models.SweepResult{}

	keys, err := j.store.ScanPrefix(ctx, constants.SessionKeyPrefix)
	if err != nil {
		return nil, fmt.Errorf("failed to scan session keys: %w", err)
	}
	result.KeysScanned = len(keys)

	byToken := make(map[string][]string)
	for _, key := range keys {
		token, ok := repository.TokenFromKey(key)
		if !ok {
			continue
		}
		byToken[token] = append(byToken[token], key)
	}

	tokens := make([]string, 0, len(byToken))
	for token := range byToken {
		tokens = append(tokens, token)
	}
	sort.Strings(tokens)

	for _, token := range tokens {
		if err := j.sweepKeys(ctx, token, byToken[token], result); err != nil {
			return nil, err
		}
	}

	if err := j.sweepFolders(ctx, result); err != nil {
		return nil, err
	}

	result.Duration = time.Since(start)
	return result, nil
}

func (j *Janitor) sweepKeys(ctx context.Context, token string, keys []string, result *models.SweepResult) error {
	recordKey := repository.RecordKey(token)

	exists, err := j.store.Exists(ctx, recordKey)
	if err != nil {
		return fmt.Errorf("failed to check session record: %w", err)
	}

	if !exists {
		orphans := make([]string, 0, len(keys))
		for _, key := range keys {
			if key != recordKey {
				orphans = append(orphans, key)
			}
		}
		if len(orphans) == 0 {
			return nil
		}
		if err := j.store.Delete(ctx, orphans...); err != nil {
			return fmt.Errorf("failed to delete orphaned session keys: %w", err)
		}
		result.OrphanKeys += len(orphans)
		j.log.Debug().Str("token", utils.RedactToken(token)).Int("keys", len(orphans)).Msg("Deleted orphaned session keys")
		return nil
	}

	fields, err := j.store.HGetAll(ctx, recordKey)
	if err != nil {
		return fmt.Errorf("failed to load session record: %w", err)
	}
	if fields[constants.FieldClosed] != constants.ClosedTrue {
		return nil
	}

	if err := j.store.Delete(ctx, repository.SessionKeys(token)...); err != nil {
		return fmt.Errorf("failed to delete closed session: %w", err)
	}
	result.ClosedSessions++
	j.log.Debug().Str("token", utils.RedactToken(token)).Msg("Deleted closed session")
	return nil
}

func (j *Janitor) sweepFolders(ctx context.Context, result *models.SweepResult) error {
	folders, err := j.files.ListFolders(constants.OnlineFolderName)
	if err != nil {
		return fmt.Errorf("failed to list session folders: %w", err)
	}

	for _, token := range folders {
		exists, err := j.store.Exists(ctx, repository.RecordKey(token))
		if err != nil {
			return fmt.Errorf("failed to check session record: %w", err)
		}
		if exists {
			continue
		}

		folder := filepath.Join(constants.OnlineFolderName, token)
		if err := j.files.RemoveFolder(folder); err != nil {
			j.log.Warn().Err(err).Str("folder", folder).Msg("Failed to remove expired session folder")
			result.FolderFailures++
			continue
		}
		result.FoldersRemoved++
		j.log.Info().Str("token", utils.RedactToken(token)).Msg("Removed expired session folder")
	}
	return nil
}
