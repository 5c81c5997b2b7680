package lifecycle

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"whisper-bridge/internal/engine"
	"whisper-bridge/internal/hub"
	"whisper-bridge/internal/modelcache"
	"whisper-bridge/internal/progress"
)

type managerFixture struct {
	manager  *Manager
	hub      *hub.Client
	cache    *modelcache.Cache
	stub     *engine.StubEngine
	progress *bytes.Buffer
}

// newFixture wires a manager against an httptest hub and a stub engine.
func newFixture(t *testing.T, handler http.Handler) *managerFixture {
	t.Helper()

	endpoint := "http://hub.invalid"
	if handler != nil {
		server := httptest.NewServer(handler)
		t.Cleanup(server.Close)
		endpoint = server.URL
	}

	hubClient := hub.NewClient(endpoint, t.TempDir(), time.Minute, zerolog.Nop())
	stub := engine.NewStubEngine()
	cache := modelcache.New(stub, engine.DefaultLoadConfig(), modelcache.DefaultCapacity, zerolog.Nop())
	progressBuf := &bytes.Buffer{}
	manager := NewManager(hubClient, cache, progress.NewEmitter(progressBuf), zerolog.Nop())

	return &managerFixture{
		manager:  manager,
		hub:      hubClient,
		cache:    cache,
		stub:     stub,
		progress: progressBuf,
	}
}

// tinyRepoHandler serves metadata and files for the tiny model repository.
func tinyRepoHandler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/models/Systran/faster-whisper-tiny", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"sha":"rev1","siblings":[{"rfilename":"model.bin"},{"rfilename":"config.json"}]}`)
	})
	mux.HandleFunc("/Systran/faster-whisper-tiny/resolve/main/model.bin", func(w http.ResponseWriter, r *http.Request) {
		w.Write(bytes.Repeat([]byte("w"), 2*1024*1024))
	})
	mux.HandleFunc("/Systran/faster-whisper-tiny/resolve/main/config.json", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"model_type":"whisper"}`)
	})
	return mux
}

// TestDownloadThenCheckStatusRoundTrip covers the core acceptance path.
func TestDownloadThenCheckStatusRoundTrip(t *testing.T) {
	f := newFixture(t, tinyRepoHandler())

	result := f.manager.Download(context.Background(), "tiny")
	require.True(t, result.Success, "download failed: %s", result.Error)
	assert.True(t, result.Downloaded)
	assert.Equal(t, "tiny", result.Model)

	// Verification loaded and cached the model.
	assert.Equal(t, []string{"tiny"}, f.stub.Loads())
	assert.Equal(t, 1, f.cache.Len())

	status := f.manager.CheckStatus("tiny")
	require.True(t, status.Success)
	assert.True(t, status.Downloaded)
	require.NotNil(t, status.SizeMB)
	assert.Greater(t, *status.SizeMB, 0)
}

// TestDownloadEmitsProgressMilestones checks the side-channel sequence.
func TestDownloadEmitsProgressMilestones(t *testing.T) {
	f := newFixture(t, tinyRepoHandler())

	result := f.manager.Download(context.Background(), "tiny")
	require.True(t, result.Success)

	lines := strings.Split(strings.TrimSpace(f.progress.String()), "\n")
	require.Len(t, lines, 4)
	for _, line := range lines {
		assert.True(t, strings.HasPrefix(line, "PROGRESS:"), "line = %q", line)
	}
	assert.Contains(t, lines[0], `"percentage":0`)
	assert.Contains(t, lines[0], "Starting download...")
	assert.Contains(t, lines[1], `"percentage":10`)
	assert.Contains(t, lines[2], `"percentage":80`)
	assert.Contains(t, lines[2], "Verifying download...")
	assert.Contains(t, lines[3], `"type":"complete"`)
	assert.Contains(t, lines[3], `"percentage":100`)
}

// TestDownloadUnknownRepositoryReportsResolvedRepo checks the 404 message.
func TestDownloadUnknownRepositoryReportsResolvedRepo(t *testing.T) {
	f := newFixture(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))

	result := f.manager.Download(context.Background(), "bogus")
	assert.False(t, result.Success)
	assert.False(t, result.Downloaded)
	assert.Equal(t, "Model repository not found: Systran/faster-whisper-bogus", result.Error)
}

// TestDownloadVerificationFailureReportsLoadError covers corrupt snapshots.
func TestDownloadVerificationFailureReportsLoadError(t *testing.T) {
	f := newFixture(t, tinyRepoHandler())
	f.stub.FailModels = map[string]error{"tiny": fmt.Errorf("cannot parse weights")}

	result := f.manager.Download(context.Background(), "tiny")
	assert.False(t, result.Success)
	assert.Contains(t, result.Error, "cannot parse weights")
	assert.NotContains(t, f.progress.String(), `"type":"complete"`)
}

// TestCheckStatusNotDownloaded reports null size for absent models.
func TestCheckStatusNotDownloaded(t *testing.T) {
	f := newFixture(t, nil)

	status := f.manager.CheckStatus("medium")
	require.True(t, status.Success)
	assert.False(t, status.Downloaded)
	assert.Nil(t, status.SizeMB)
}

// TestCheckStatusFallsBackToDirectoryConvention covers snapshot-less caches.
func TestCheckStatusFallsBackToDirectoryConvention(t *testing.T) {
	f := newFixture(t, nil)
	repoDir := f.hub.RepoCachePath("Systran/faster-whisper-base")
	require.NoError(t, os.MkdirAll(filepath.Join(repoDir, "refs"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(repoDir, "refs", "main"), []byte("rev9"), 0o644))

	status := f.manager.CheckStatus("base")
	require.True(t, status.Success)
	assert.True(t, status.Downloaded)
	assert.Nil(t, status.SizeMB, "no blobs, size unmeasurable")
}

// TestListModelsCatalogOrder checks the 10-entry fixed enumeration.
func TestListModelsCatalogOrder(t *testing.T) {
	f := newFixture(t, nil)

	list := f.manager.ListModels()
	require.True(t, list.Success)
	require.Len(t, list.Models, 10)

	wantOrder := []string{
		"tiny", "base", "small", "medium", "large", "turbo",
		"tiny.en", "base.en", "small.en", "medium.en",
	}
	for i, entry := range list.Models {
		assert.Equal(t, wantOrder[i], entry.Model)
		assert.Equal(t, i >= 6, entry.EnglishOnly, "english flag for %s", entry.Model)
		assert.True(t, entry.Success)
		assert.False(t, entry.Downloaded)
	}
}

// TestListModelsMarksDownloadedEntries reflects per-model cache state.
func TestListModelsMarksDownloadedEntries(t *testing.T) {
	f := newFixture(t, tinyRepoHandler())
	require.True(t, f.manager.Download(context.Background(), "tiny").Success)

	list := f.manager.ListModels()
	require.Len(t, list.Models, 10)
	assert.True(t, list.Models[0].Downloaded, "tiny was downloaded")
	assert.False(t, list.Models[1].Downloaded, "base was not")
}

// TestDeleteMissingModelIsNoOpSuccess checks the documented no-op contract.
func TestDeleteMissingModelIsNoOpSuccess(t *testing.T) {
	f := newFixture(t, nil)

	result := f.manager.Delete("large")
	assert.True(t, result.Success)
	assert.True(t, result.Deleted)
	assert.Equal(t, 0, result.FreedMB)
	assert.Empty(t, result.Error)
}

// TestDeleteDownloadedModelFreesSpaceAndEvicts covers the full delete path.
func TestDeleteDownloadedModelFreesSpaceAndEvicts(t *testing.T) {
	f := newFixture(t, tinyRepoHandler())
	require.True(t, f.manager.Download(context.Background(), "tiny").Success)
	require.Equal(t, 1, f.cache.Len())

	result := f.manager.Delete("tiny")
	require.True(t, result.Success)
	assert.True(t, result.Deleted)
	assert.Greater(t, result.FreedMB, 0)
	assert.Equal(t, 0, f.cache.Len(), "loaded handle must be evicted")

	status := f.manager.CheckStatus("tiny")
	assert.False(t, status.Downloaded)
}
