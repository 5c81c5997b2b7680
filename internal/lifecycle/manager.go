// Package lifecycle implements the model management operations: download,
// status check, catalog listing, and deletion. Every operation converts
// internal failures into a structured result record; nothing here errors
// across the CLI boundary.
package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/rs/zerolog"

	"whisper-bridge/internal/catalog"
	"whisper-bridge/internal/domain"
	"whisper-bridge/internal/engine"
	"whisper-bridge/internal/hub"
	"whisper-bridge/internal/modelcache"
	"whisper-bridge/internal/progress"
)

// modelLoader is the slice of the model cache the manager needs for download
// verification and delete-time eviction.
type modelLoader interface {
	GetOrLoad(ctx context.Context, model string) (engine.Model, error)
	Remove(model string)
}

// Manager orchestrates hub downloads, local cache accounting, and the loaded
// model cache.
type Manager struct {
	hub     *hub.Client
	cache   modelLoader
	emitter *progress.Emitter
	log     zerolog.Logger
}

// NewManager wires the lifecycle operations to their collaborators.
func NewManager(hubClient *hub.Client, cache *modelcache.Cache, emitter *progress.Emitter, log zerolog.Logger) *Manager {
	return &Manager{
		hub:     hubClient,
		cache:   cache,
		emitter: emitter,
		log:     log.With().Str("component", "lifecycle").Logger(),
	}
}

// Download fetches a model snapshot, verifies it by loading the model, and
// reports progress milestones on the side channel.
func (m *Manager) Download(ctx context.Context, model string) domain.DownloadResult {
	repo := catalog.Resolve(model)

	m.emitter.Stage(model, 0, "Starting download...")
	m.emitter.Stage(model, 10, "Downloading model files...")

	if _, err := m.hub.SnapshotDownload(ctx, repo); err != nil {
		if errors.Is(err, hub.ErrRepositoryNotFound) {
			return domain.DownloadResult{
				Model: model,
				Error: fmt.Sprintf("Model repository not found: %s", repo),
			}
		}
		return domain.DownloadResult{Model: model, Error: err.Error()}
	}

	m.emitter.Stage(model, 80, "Verifying download...")

	// Loading forces the engine to validate the snapshot and caches the
	// handle as a side effect.
	if _, err := m.cache.GetOrLoad(ctx, model); err != nil {
		return domain.DownloadResult{Model: model, Error: err.Error()}
	}

	m.emitter.Complete(model)
	m.log.Info().Str("model", model).Str("repo", repo).Msg("model downloaded")

	return domain.DownloadResult{
		Model:      model,
		Downloaded: true,
		Success:    true,
	}
}

// CheckStatus reports whether a model is present in the local hub cache and
// how much blob storage it occupies. It never fails hard; inspection errors
// degrade to "not downloaded".
func (m *Manager) CheckStatus(model string) domain.ModelStatus {
	repo := catalog.Resolve(model)

	_, found := m.hub.TryToLoadFromCache(repo, hub.WeightFileName)
	if !found {
		// The snapshot lookup is inconclusive for repositories downloaded by
		// older tooling; fall back to the directory naming convention.
		found = m.hub.IsDownloaded(repo)
	}

	var sizeMB *int
	if found {
		if mb := roundToMB(m.hub.RepoSizeBytes(repo)); mb > 0 {
			sizeMB = &mb
		}
	}

	return domain.ModelStatus{
		Model:      model,
		Downloaded: found,
		SizeMB:     sizeMB,
		Success:    true,
	}
}

// ListModels returns one status per catalog entry, multilingual first, in the
// fixed enumeration order.
func (m *Manager) ListModels() domain.ModelList {
	entries := catalog.Entries()
	models := make([]domain.ModelListEntry, 0, len(entries))

	for _, entry := range entries {
		status := m.CheckStatus(entry.ID)
		models = append(models, domain.ModelListEntry{
			Model:       entry.ID,
			Downloaded:  status.Downloaded,
			SizeMB:      status.SizeMB,
			EnglishOnly: entry.EnglishOnly,
			Success:     true,
		})
	}

	return domain.ModelList{Models: models, Success: true}
}

// Delete removes the model's hub cache subtree and evicts any loaded handle.
// A model that was never downloaded deletes successfully with zero bytes
// freed.
func (m *Manager) Delete(model string) domain.DeleteResult {
	repo := catalog.Resolve(model)

	freed, err := m.hub.DeleteRepo(repo)
	if err != nil {
		return domain.DeleteResult{Model: model, Error: err.Error()}
	}

	m.cache.Remove(model)
	if freed > 0 {
		m.log.Info().Str("model", model).Int64("freed_bytes", freed).Msg("model deleted")
	}

	return domain.DeleteResult{
		Model:   model,
		Deleted: true,
		FreedMB: roundToMB(freed),
		Success: true,
	}
}

// roundToMB converts bytes to the nearest whole megabyte.
func roundToMB(bytes int64) int {
	return int(math.Round(float64(bytes) / (1024 * 1024)))
}
