package repository

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"dlss-updater/config"

	"go.uber.org/zap"
)

const defaultTimeout = 30 * time.Second

// ManifestEntry describes the latest release of one library file.
type ManifestEntry struct {
	Version string `json:"version"`
	URL     string `json:"url"`
	SHA1    string `json:"sha1"`
}

// Manifest maps lower-cased library filenames to their latest release.
type Manifest map[string]ManifestEntry

// Client fetches the latest-DLL manifest and the library files themselves.
type Client struct {
	ManifestURL string
	UserAgent   string
	HTTPClient  *http.Client
}

// NewClient creates a repository client from configuration. A missing
// manifest URL is allowed; callers then run from the static version table
// and whatever the cache already holds.
func NewClient(cfg config.Config) (*Client, error) {
	if cfg.UserAgent == "" {
		return nil, fmt.Errorf("useragent is not configured")
	}
	return &Client{
		ManifestURL: cfg.ManifestURL,
		UserAgent:   cfg.UserAgent,
		HTTPClient: &http.Client{
			Timeout: defaultTimeout,
		},
	}, nil
}

// FetchManifest downloads and decodes the release manifest.
func (c *Client) FetchManifest(ctx context.Context) (Manifest, error) {
	if c.ManifestURL == "" {
		return nil, fmt.Errorf("no manifest_url configured")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.ManifestURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", c.UserAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("manifest request failed: status %d, body: %s", resp.StatusCode, string(body))
	}

	var manifest Manifest
	if err := json.NewDecoder(resp.Body).Decode(&manifest); err != nil {
		return nil, fmt.Errorf("failed to decode manifest: %w", err)
	}
	return manifest, nil
}

// DownloadDLL fetches one library file to destinationPath, verifying the
// SHA-1 digest when the manifest provides one. A failed or mismatched
// download never leaves a partial file behind.
func (c *Client) DownloadDLL(ctx context.Context, log *zap.SugaredLogger, destinationPath, downloadURL, wantSHA1 string) error {
	if err := os.MkdirAll(filepath.Dir(destinationPath), 0755); err != nil {
		return fmt.Errorf("failed to create target directory: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, downloadURL, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", c.UserAgent)
	req.Header.Set("Accept", "application/octet-stream")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to start download from %s: %w", downloadURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("download failed: status %d", resp.StatusCode)
	}

	tmpPath := destinationPath + ".partial"
	outFile, err := os.Create(tmpPath)
	if err != nil {
		return fmt.Errorf("failed to create file %q: %w", tmpPath, err)
	}

	if _, err := io.Copy(outFile, resp.Body); err != nil {
		outFile.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("failed to write downloaded content: %w", err)
	}
	if err := outFile.Close(); err != nil {
		os.Remove(tmpPath)
		return err
	}

	if wantSHA1 != "" {
		got, err := fileSHA1(tmpPath)
		if err != nil {
			os.Remove(tmpPath)
			return fmt.Errorf("failed to hash download: %w", err)
		}
		if got != wantSHA1 {
			os.Remove(tmpPath)
			return fmt.Errorf("sha1 mismatch for %s: got %s, want %s", filepath.Base(destinationPath), got, wantSHA1)
		}
	}

	if err := os.Rename(tmpPath, destinationPath); err != nil {
		os.Remove(tmpPath)
		return err
	}
	log.Infow("Downloaded library", zap.String("file", filepath.Base(destinationPath)))
	return nil
}

func fileSHA1(filePath string) (string, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return "", err
	}
	defer file.Close()

	hash := sha1.New()
	if _, err := io.Copy(hash, file); err != nil {
		return "", err
	}
	return hex.EncodeToString(hash.Sum(nil)), nil
}
