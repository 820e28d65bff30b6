// Package fetch installs the workspace's declared bootstrap wheels: each
// [[wheel]] pin is downloaded once, verified against its sha256, and placed
// in the workspace wheel store. Evaluated at setup time, outside the
// closure core; closure computation only ever sees the installed file
// paths.
package fetch

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"

	"github.com/magnetarlabs/pulsar/internal/target"
)

// ErrChecksumMismatch indicates a downloaded wheel did not match its pin.
var ErrChecksumMismatch = errors.New("wheel checksum mismatch")

// Fetcher downloads and verifies wheels into a store directory.
type Fetcher struct {
	StoreDir string
	Client   *http.Client // nil means http.DefaultClient
	Verbose  bool
}

// WheelPath returns where a wheel spec installs inside storeDir: the
// basename of its URL, so the file keeps its upstream wheel name.
func WheelPath(storeDir string, spec target.WheelSpec) string {
	return filepath.Join(storeDir, path.Base(spec.URL))
}

// Fetch ensures every spec is present and verified in the store. Wheels
// already installed with a matching checksum are skipped. Returns the
// installed paths in spec order.
func (f *Fetcher) Fetch(ctx context.Context, specs []target.WheelSpec) ([]string, error) {
	if err := os.MkdirAll(f.StoreDir, 0o755); err != nil {
		return nil, fmt.Errorf("fetch: creating wheel store: %w", err)
	}

	var installed []string
	for _, spec := range specs {
		dest := WheelPath(f.StoreDir, spec)
		ok, err := verify(dest, spec.SHA256)
		if err != nil {
			return nil, err
		}
		if !ok {
			if err := f.download(ctx, spec, dest); err != nil {
				return nil, err
			}
		} else if f.Verbose {
			fmt.Fprintf(os.Stderr, "[fetch] %s up to date\n", spec.Name)
		}
		installed = append(installed, dest)
	}
	return installed, nil
}

// download streams the wheel to a temp file, hashing as it goes, and
// renames into place only after the checksum matches. A failed or
// mismatched download never leaves a partial file in the store.
func (f *Fetcher) download(ctx context.Context, spec target.WheelSpec, dest string) error {
	if _, err := url.Parse(spec.URL); err != nil {
		return fmt.Errorf("fetch %s: bad url: %w", spec.Name, err)
	}
	if f.Verbose {
		fmt.Fprintf(os.Stderr, "[fetch] downloading %s from %s\n", spec.Name, spec.URL)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, spec.URL, nil)
	if err != nil {
		return fmt.Errorf("fetch %s: %w", spec.Name, err)
	}
	client := f.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("fetch %s: %w", spec.Name, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("fetch %s: unexpected status %s", spec.Name, resp.Status)
	}

	tmp, err := os.CreateTemp(f.StoreDir, spec.Name+".*.part")
	if err != nil {
		return fmt.Errorf("fetch %s: %w", spec.Name, err)
	}
	defer os.Remove(tmp.Name())

	hasher := sha256.New()
	if _, err := io.Copy(io.MultiWriter(tmp, hasher), resp.Body); err != nil {
		tmp.Close()
		return fmt.Errorf("fetch %s: %w", spec.Name, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("fetch %s: %w", spec.Name, err)
	}

	got := hex.EncodeToString(hasher.Sum(nil))
	if got != spec.SHA256 {
		return fmt.Errorf("%w: %s: got %s, want %s", ErrChecksumMismatch, spec.Name, got, spec.SHA256)
	}

	if err := os.Rename(tmp.Name(), dest); err != nil {
		return fmt.Errorf("fetch %s: installing: %w", spec.Name, err)
	}
	return nil
}

// verify reports whether the file at path exists and matches wantSHA.
func verify(path, wantSHA string) (bool, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("fetch: verifying %s: %w", path, err)
	}
	defer f.Close()

	hasher := sha256.New()
	if _, err := io.Copy(hasher, f); err != nil {
		return false, fmt.Errorf("fetch: verifying %s: %w", path, err)
	}
	return hex.EncodeToString(hasher.Sum(nil)) == wantSHA, nil
}
