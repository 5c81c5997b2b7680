// Package hub implements a minimal model hub client: snapshot downloads over
// HTTP plus lookups against the hub's local cache directory layout
// (models--<org>--<repo>/{blobs,refs,snapshots}).
package hub

import (
	"errors"
	"io/fs"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// ErrRepositoryNotFound is returned when the hub reports no such repository.
var ErrRepositoryNotFound = errors.New("repository not found")

// WeightFileName is the canonical weight file used to decide whether a model
// snapshot is usable.
const WeightFileName = "model.bin"

// Client resolves and maintains the local model cache and talks to the hub
// HTTP API for downloads.
type Client struct {
	endpoint   string
	cacheDir   string
	httpClient *http.Client
	log        zerolog.Logger

	stat      func(string) (os.FileInfo, error)
	readDir   func(string) ([]os.DirEntry, error)
	readFile  func(string) ([]byte, error)
	writeFile func(string, []byte, os.FileMode) error
	mkdirAll  func(string, os.FileMode) error
	removeAll func(string) error
	rename    func(string, string) error
	remove    func(string) error
	link      func(string, string) error
	walkDir   func(string, fs.WalkDirFunc) error
}

// NewClient builds a production client. An empty cacheDir selects the default
// hub cache location.
func NewClient(endpoint, cacheDir string, timeout time.Duration, log zerolog.Logger) *Client {
	if cacheDir == "" {
		cacheDir = DefaultCacheDir()
	}

	return &Client{
		endpoint:   strings.TrimRight(endpoint, "/"),
		cacheDir:   cacheDir,
		httpClient: &http.Client{Timeout: timeout},
		log:        log.With().Str("component", "hub").Logger(),

		stat:      os.Stat,
		readDir:   os.ReadDir,
		readFile:  os.ReadFile,
		writeFile: os.WriteFile,
		mkdirAll:  os.MkdirAll,
		removeAll: os.RemoveAll,
		rename:    os.Rename,
		remove:    os.Remove,
		link:      os.Link,
		walkDir:   filepath.WalkDir,
	}
}

// DefaultCacheDir resolves the hub cache directory: HF_HOME when set,
// otherwise ~/.cache/huggingface/hub.
func DefaultCacheDir() string {
	if hfHome := strings.TrimSpace(os.Getenv("HF_HOME")); hfHome != "" {
		return filepath.Join(hfHome, "hub")
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		homeDir = "."
	}
	return filepath.Join(homeDir, ".cache", "huggingface", "hub")
}

// CacheDir returns the resolved local cache root.
func (c *Client) CacheDir() string {
	return c.cacheDir
}

// repoDirName converts "org/repo" to the cache directory naming convention.
func repoDirName(repo string) string {
	return "models--" + strings.ReplaceAll(repo, "/", "--")
}

// RepoCachePath returns the local cache directory for a repository.
func (c *Client) RepoCachePath(repo string) string {
	return filepath.Join(c.cacheDir, repoDirName(repo))
}

// refsMainPath returns the refs/main revision marker path for a repository.
func (c *Client) refsMainPath(repo string) string {
	return filepath.Join(c.RepoCachePath(repo), "refs", "main")
}

// TryToLoadFromCache returns the snapshot path of filename for the main
// revision of repo, when present and non-empty.
func (c *Client) TryToLoadFromCache(repo, filename string) (string, bool) {
	revision, err := c.readFile(c.refsMainPath(repo))
	if err != nil {
		return "", false
	}

	path := filepath.Join(c.RepoCachePath(repo), "snapshots", strings.TrimSpace(string(revision)), filename)
	info, err := c.stat(path)
	if err != nil || info.IsDir() || info.Size() == 0 {
		return "", false
	}
	return path, true
}

// IsDownloaded reports whether the repository cache directory exists with a
// refs/main marker. Used as the fallback when the snapshot lookup is
// inconclusive.
func (c *Client) IsDownloaded(repo string) bool {
	if _, err := c.stat(c.RepoCachePath(repo)); err != nil {
		return false
	}
	_, err := c.stat(c.refsMainPath(repo))
	return err == nil
}

// RepoSizeBytes sums regular file sizes in the repository blob storage.
// Unreadable entries are skipped rather than failing the accounting.
func (c *Client) RepoSizeBytes(repo string) int64 {
	blobsDir := filepath.Join(c.RepoCachePath(repo), "blobs")
	entries, err := c.readDir(blobsDir)
	if err != nil {
		return 0
	}

	var total int64
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		total += info.Size()
	}
	return total
}

// DeleteRepo removes the repository cache subtree and reports bytes freed.
// A missing directory is a successful no-op.
func (c *Client) DeleteRepo(repo string) (int64, error) {
	repoDir := c.RepoCachePath(repo)
	if _, err := c.stat(repoDir); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return 0, nil
		}
		return 0, err
	}

	var freed int64
	walkErr := c.walkDir(repoDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return nil
		}
		info, infoErr := d.Info()
		if infoErr != nil {
			return nil
		}
		freed += info.Size()
		return nil
	})
	if walkErr != nil {
		return 0, walkErr
	}

	if err := c.removeAll(repoDir); err != nil {
		return 0, err
	}

	c.log.Debug().Str("repo", repo).Int64("freed_bytes", freed).Msg("deleted repository cache")
	return freed, nil
}
