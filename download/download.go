// Package download fetches model artifacts from the ai-coustics model
// registry.
//
// The registry publishes a manifest mapping model identifiers and container
// versions to artifact files and their SHA-256 checksums. Downloads stream
// through a temporary file and are renamed into place only after the
// checksum verifies, so a crashed or corrupted download never leaves a
// half-written model behind. Files already on disk with a matching checksum
// are reused without any network traffic beyond the manifest fetch.
package download

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"
)

// DefaultBaseURL is the production model registry.
const DefaultBaseURL = "https://models.ai-coustics.com"

const manifestPath = "manifest.json"

// Download errors.
var (
	ErrModelNotFound    = errors.New("model not found in manifest")
	ErrVersionNotFound  = errors.New("model version not available")
	ErrManifestInvalid  = errors.New("model manifest invalid")
	ErrRequestFailed    = errors.New("download request failed")
	ErrChecksumMismatch = errors.New("downloaded model checksum mismatch")
)

type manifest struct {
	Models map[string]modelEntry `json:"models"`
}

type modelEntry struct {
	Versions map[string]versionEntry `json:"versions"`
}

type versionEntry struct {
	File     string `json:"file"`
	Filename string `json:"filename"`
	Checksum string `json:"checksum"`
}

// Client downloads model artifacts. The zero value is not usable; call
// NewClient and override fields for testing or mirrors.
type Client struct {
	HTTP    *http.Client
	BaseURL string
}

// NewClient returns a client bound to the production registry.
func NewClient() *Client {
	return &Client{HTTP: http.DefaultClient, BaseURL: DefaultBaseURL}
}

func (c *Client) get(ctx context.Context, rawURL string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrRequestFailed, err)
	}
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrRequestFailed, err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("%w: %s returned %s", ErrRequestFailed, rawURL, resp.Status)
	}
	return resp, nil
}

func (c *Client) fetchManifest(ctx context.Context) (*manifest, error) {
	manifestURL, err := url.JoinPath(c.BaseURL, manifestPath)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrRequestFailed, err)
	}
	resp, err := c.get(ctx, manifestURL)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var m manifest
	if err := json.NewDecoder(resp.Body).Decode(&m); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrManifestInvalid, err)
	}
	return &m, nil
}

// fileChecksum returns the hex SHA-256 of the file at path.
func fileChecksum(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// Download resolves modelID at the given container version through the
// manifest and stores the artifact in dir, returning its path. A file
// already present with the right checksum is reused.
func (c *Client) Download(ctx context.Context, modelID string, version uint32, dir string) (string, error) {
	man, err := c.fetchManifest(ctx)
	if err != nil {
		return "", err
	}

	entry, ok := man.Models[modelID]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrModelNotFound, modelID)
	}
	ver, ok := entry.Versions[fmt.Sprintf("v%d", version)]
	if !ok {
		return "", fmt.Errorf("%w: %q has no v%d", ErrVersionNotFound, modelID, version)
	}
	if ver.File == "" || ver.Filename == "" || ver.Checksum == "" {
		return "", fmt.Errorf("%w: incomplete entry for %q v%d", ErrManifestInvalid, modelID, version)
	}

	target := filepath.Join(dir, ver.Filename)
	if sum, err := fileChecksum(target); err == nil && sum == ver.Checksum {
		logrus.WithFields(logrus.Fields{
			"function": "Client.Download",
			"model_id": modelID,
			"path":     target,
		}).Info("Model already downloaded, checksum verified")
		return target, nil
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}

	fileURL, err := url.JoinPath(c.BaseURL, ver.File)
	if err != nil {
		return "", fmt.Errorf("%w: %s", ErrRequestFailed, err)
	}
	resp, err := c.get(ctx, fileURL)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	tmp, err := os.CreateTemp(dir, ".aic-model-*")
	if err != nil {
		return "", err
	}
	defer func() {
		tmp.Close()
		os.Remove(tmp.Name())
	}()

	h := sha256.New()
	if _, err := io.Copy(tmp, io.TeeReader(resp.Body, h)); err != nil {
		return "", fmt.Errorf("%w: %s", ErrRequestFailed, err)
	}
	if sum := hex.EncodeToString(h.Sum(nil)); sum != ver.Checksum {
		return "", fmt.Errorf("%w: got %s, want %s", ErrChecksumMismatch, sum, ver.Checksum)
	}
	if err := tmp.Close(); err != nil {
		return "", err
	}
	if err := os.Rename(tmp.Name(), target); err != nil {
		return "", err
	}

	logrus.WithFields(logrus.Fields{
		"function": "Client.Download",
		"model_id": modelID,
		"version":  version,
		"path":     target,
	}).Info("Model downloaded")
	return target, nil
}

// Download fetches a model with the default client.
func Download(modelID string, version uint32, dir string) (string, error) {
	return NewClient().Download(context.Background(), modelID, version, dir)
}
