package hub

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
)

// repoInfo is the subset of the hub model API response the client needs.
type repoInfo struct {
	SHA      string `json:"sha"`
	Siblings []struct {
		RFilename string `json:"rfilename"`
	} `json:"siblings"`
}

// SnapshotDownload fetches every file of the repository's main revision into
// the local cache and returns the snapshot directory. Files already present
// in blob storage are not fetched again.
func (c *Client) SnapshotDownload(ctx context.Context, repo string) (string, error) {
	info, err := c.fetchRepoInfo(ctx, repo)
	if err != nil {
		return "", err
	}

	revision := strings.TrimSpace(info.SHA)
	if revision == "" {
		revision = "main"
	}

	repoDir := c.RepoCachePath(repo)
	blobsDir := filepath.Join(repoDir, "blobs")
	snapshotDir := filepath.Join(repoDir, "snapshots", revision)
	for _, dir := range []string{blobsDir, snapshotDir, filepath.Join(repoDir, "refs")} {
		if err := c.mkdirAll(dir, 0o755); err != nil {
			return "", fmt.Errorf("prepare cache directory: %w", err)
		}
	}

	for _, sibling := range info.Siblings {
		name := strings.TrimSpace(sibling.RFilename)
		if name == "" {
			continue
		}
		if err := c.fetchFile(ctx, repo, revision, name, blobsDir, snapshotDir); err != nil {
			return "", fmt.Errorf("fetch %s: %w", name, err)
		}
	}

	if err := c.writeFile(c.refsMainPath(repo), []byte(revision), 0o644); err != nil {
		return "", fmt.Errorf("write revision marker: %w", err)
	}

	c.log.Debug().Str("repo", repo).Str("revision", revision).Msg("snapshot complete")
	return snapshotDir, nil
}

// fetchRepoInfo queries the hub model API for the file listing of a repository.
func (c *Client) fetchRepoInfo(ctx context.Context, repo string) (repoInfo, error) {
	url := c.endpoint + "/api/models/" + repo
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return repoInfo{}, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", "whisper-bridge")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return repoInfo{}, fmt.Errorf("query repository: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusUnauthorized:
		return repoInfo{}, fmt.Errorf("%w: %s", ErrRepositoryNotFound, repo)
	case resp.StatusCode != http.StatusOK:
		return repoInfo{}, fmt.Errorf("unexpected HTTP status: %s", resp.Status)
	}

	var info repoInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return repoInfo{}, fmt.Errorf("decode repository metadata: %w", err)
	}
	if len(info.Siblings) == 0 {
		return repoInfo{}, fmt.Errorf("repository %s lists no files", repo)
	}
	return info, nil
}

// fetchFile downloads one repository file into blob storage and links it into
// the snapshot tree.
func (c *Client) fetchFile(ctx context.Context, repo, revision, name, blobsDir, snapshotDir string) error {
	blobPath := filepath.Join(blobsDir, blobKey(repo, revision, name))
	if info, err := c.stat(blobPath); err != nil || info.Size() == 0 {
		url := c.endpoint + "/" + repo + "/resolve/main/" + name
		if err := c.downloadToFile(ctx, blobPath, url); err != nil {
			return err
		}
	}

	snapshotPath := filepath.Join(snapshotDir, filepath.FromSlash(name))
	if err := c.mkdirAll(filepath.Dir(snapshotPath), 0o755); err != nil {
		return fmt.Errorf("prepare snapshot directory: %w", err)
	}
	if _, err := c.stat(snapshotPath); err == nil {
		return nil
	}
	if err := c.link(blobPath, snapshotPath); err != nil {
		// Hard links can fail on some filesystems; fall back to a copy.
		return c.copyFile(blobPath, snapshotPath)
	}
	return nil
}

// blobKey derives a stable blob storage name for a repository file.
func blobKey(repo, revision, name string) string {
	sum := sha256.Sum256([]byte(repo + "@" + revision + "/" + name))
	return hex.EncodeToString(sum[:])
}

// downloadToFile streams a URL into destinationPath through a temporary file
// so partial downloads never land under their final name.
func (c *Client) downloadToFile(ctx context.Context, destinationPath, sourceURL string) error {
	tmpPath := destinationPath + ".download"
	if err := c.remove(tmpPath); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove stale temp file: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, sourceURL, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", "whisper-bridge")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request download: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected HTTP status: %s", resp.Status)
	}

	file, err := os.OpenFile(tmpPath, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("create temporary file: %w", err)
	}

	_, copyErr := io.Copy(file, resp.Body)
	closeErr := file.Close()
	if copyErr != nil {
		_ = c.remove(tmpPath)
		return fmt.Errorf("write destination file: %w", copyErr)
	}
	if closeErr != nil {
		_ = c.remove(tmpPath)
		return fmt.Errorf("close destination file: %w", closeErr)
	}

	if err := c.remove(destinationPath); err != nil && !errors.Is(err, os.ErrNotExist) {
		_ = c.remove(tmpPath)
		return fmt.Errorf("remove old destination file: %w", err)
	}
	if err := c.rename(tmpPath, destinationPath); err != nil {
		_ = c.remove(tmpPath)
		return fmt.Errorf("move downloaded file into place: %w", err)
	}

	return nil
}

// copyFile duplicates blob content into the snapshot tree.
func (c *Client) copyFile(src, dst string) error {
	data, err := c.readFile(src)
	if err != nil {
		return fmt.Errorf("read blob: %w", err)
	}
	if err := c.writeFile(dst, data, 0o644); err != nil {
		return fmt.Errorf("write snapshot file: %w", err)
	}
	return nil
}
