// Package runner sequences the self-hosted runner lifecycle: token
// acquisition, local binary provisioning, process spawn and
// deregistration. Platform calls go through a [driver.Driver]; local
// work (download, extract, exec) lives here.
package runner

import (
	"archive/tar"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/klauspost/compress/gzip"
)

const (
	downloadRetries = 3
	executableMode  = 0o755
	dirMode         = 0o750
)

var errUnexpectedStatus = errors.New("unexpected HTTP status")

// EnsureBinary makes sure the vendor runner binary named entrypoint is
// present and executable under destDir, downloading and extracting the
// platform tarball on first use. It returns the absolute entrypoint
// path. Every stage failure is wrapped as "failed preparing runner"
// with the underlying cause preserved.
func EnsureBinary(destDir, downloadURL, entrypoint string) (string, error) {
	path := filepath.Join(destDir, entrypoint)
	if info, err := os.Stat(path); err == nil && !info.IsDir() {
		return path, nil
	}

	if err := provision(destDir, downloadURL, entrypoint); err != nil {
		return "", fmt.Errorf("failed preparing runner: %w", err)
	}

	return path, nil
}

func provision(destDir, downloadURL, entrypoint string) error {
	if err := os.MkdirAll(destDir, dirMode); err != nil {
		return fmt.Errorf("failed to create runner directory: %w", err)
	}

	archive, err := download(destDir, downloadURL)
	if err != nil {
		return fmt.Errorf("failed to download runner binary: %w", err)
	}
	defer os.Remove(archive)

	if strings.HasSuffix(downloadURL, ".tar.gz") || strings.HasSuffix(downloadURL, ".tgz") {
		if err := extractTarGz(archive, destDir); err != nil {
			return fmt.Errorf("failed to extract runner archive: %w", err)
		}
	} else {
		// Single-binary distribution (gitlab-runner style).
		if err := os.Rename(archive, filepath.Join(destDir, entrypoint)); err != nil {
			return fmt.Errorf("failed to install runner binary: %w", err)
		}
	}

	if err := os.Chmod(filepath.Join(destDir, entrypoint), executableMode); err != nil {
		return fmt.Errorf("failed to make runner executable: %w", err)
	}

	return nil
}

// download fetches url into a temporary file inside destDir and returns
// its path.
func download(destDir, url string) (string, error) {
	client := retryablehttp.NewClient()
	client.RetryMax = downloadRetries
	client.Logger = nil

	resp, err := client.Get(url)
	if err != nil {
		return "", fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != 200 {
		return "", fmt.Errorf("%w: %s", errUnexpectedStatus, resp.Status)
	}

	tmp, err := os.CreateTemp(destDir, "runner-download-*")
	if err != nil {
		return "", fmt.Errorf("failed to create temp file: %w", err)
	}
	defer tmp.Close()

	if _, err := io.Copy(tmp, resp.Body); err != nil {
		os.Remove(tmp.Name())
		return "", fmt.Errorf("failed to write download: %w", err)
	}

	return tmp.Name(), nil
}

// extractTarGz unpacks a gzip-compressed tarball into destDir,
// rejecting entries that would escape it.
func extractTarGz(archive, destDir string) error {
	f, err := os.Open(archive)
	if err != nil {
		return fmt.Errorf("failed to open archive: %w", err)
	}
	defer f.Close()

	gz, err := gzip.NewReader(f)
	if err != nil {
		return fmt.Errorf("failed to read gzip stream: %w", err)
	}
	defer gz.Close()

	tr := tar.NewReader(gz)
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to read tar entry: %w", err)
		}

		target := filepath.Join(destDir, filepath.Clean(hdr.Name))
		if !strings.HasPrefix(target, filepath.Clean(destDir)+string(os.PathSeparator)) {
			return fmt.Errorf("archive entry escapes destination: %s", hdr.Name)
		}

		switch hdr.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(target, dirMode); err != nil {
				return fmt.Errorf("failed to create directory %s: %w", hdr.Name, err)
			}
		case tar.TypeReg:
			if err := writeFile(target, tr, hdr.FileInfo().Mode()); err != nil {
				return fmt.Errorf("failed to extract %s: %w", hdr.Name, err)
			}
		case tar.TypeSymlink:
			os.Remove(target)
			if err := os.Symlink(hdr.Linkname, target); err != nil {
				return fmt.Errorf("failed to create symlink %s: %w", hdr.Name, err)
			}
		}
	}
}

func writeFile(target string, r io.Reader, mode os.FileMode) error {
	if err := os.MkdirAll(filepath.Dir(target), dirMode); err != nil {
		return err
	}

	out, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, mode)
	if err != nil {
		return err
	}
	defer out.Close()

	_, err = io.Copy(out, r)
	return err
}
