package main

import (
	"archive/tar"
	"compress/gzip"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/spf13/cobra"

	"github.com/rendis/mermaidsync/pkg/schema"
)

const mermaidASCIIVersion = "1.1.0"

// SHA-256 checksums for mermaid-ascii v1.1.0 release assets.
var mermaidASCIIChecksums = map[string]string{
	"mermaid-ascii_Darwin_arm64.tar.gz":  "068d2ff869d4921655cab471500fffd8c3ed28155b100518ed3cf3835d53d3d0",
	"mermaid-ascii_Darwin_x86_64.tar.gz": "0cd4c9c01a03284fe866f39a1ce1aaee1e6a2fbd91deedc4ec254cb87622eec8",
	"mermaid-ascii_Linux_arm64.tar.gz":   "3b7d0a95141bfbca838e445ea802ffb7fba8873b3c4af498482c84f83526f2db",
	"mermaid-ascii_Linux_x86_64.tar.gz":  "838ea93d561b3bc83aa15531c6ed7d2d261a8edc521d5484f7e91fe831cc4c65",
}

const mermaidASCIIReleases = "https://github.com/AlexanderGrooff/mermaid-ascii/releases/download"

type installOpts struct {
	force        bool
	skipASCII    bool
	asciiVersion string
}

func newInstallCmd() *cobra.Command {
	opts := installOpts{asciiVersion: mermaidASCIIVersion}

	cmd := &cobra.Command{
		Use:   "install",
		Short: "Write a config file and download the mermaid-ascii renderer",
		Long: `install writes the effective configuration to the config file and
downloads mermaid-ascii into ~/.mermaidsync/bin, verifying its SHA-256
checksum. A failed download is not fatal: text previews then use the
built-in renderer.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a := appFrom(cmd.Context())
			client := &http.Client{Timeout: 60 * time.Second}
			return runInstall(a, opts, mermaidASCIIReleases, client)
		},
	}

	cmd.Flags().BoolVar(&opts.force, "force", false, "overwrite an existing config file")
	cmd.Flags().BoolVar(&opts.skipASCII, "skip-ascii", false, "do not download mermaid-ascii")
	cmd.Flags().StringVar(&opts.asciiVersion, "ascii-version", opts.asciiVersion, "mermaid-ascii release to install")
	return cmd
}

func runInstall(a *app, opts installOpts, releases string, client httpGetter) error {
	if _, err := os.Stat(a.configPath); err == nil && !opts.force {
		return schema.NewErrorf(schema.ErrCodeConflict, "%s already exists (use --force to overwrite)", a.configPath)
	}
	if err := os.MkdirAll(filepath.Dir(a.configPath), 0o700); err != nil {
		return fmt.Errorf("cannot create %s: %w", filepath.Dir(a.configPath), err)
	}

	cfg := a.cfg
	if !opts.skipASCII {
		binDir := filepath.Join(filepath.Dir(a.configPath), "bin")
		path, err := installMermaidASCII(binDir, opts.asciiVersion, releases, client, a.logger)
		if err != nil {
			a.logger.Warn("mermaid-ascii not installed, text previews use the built-in renderer", "error", err)
		} else {
			cfg.ASCIIBinDir = binDir
			a.logger.Info("mermaid-ascii installed", "path", path)
		}
	}

	if err := writeConfigFile(a.configPath, cfg); err != nil {
		return err
	}
	a.logger.Info("config written", "path", a.configPath)
	return nil
}

// writeConfigFile encodes cfg as TOML.
func writeConfigFile(path string, cfg Config) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
	if err != nil {
		return fmt.Errorf("cannot write %s: %w", path, err)
	}
	if err := toml.NewEncoder(f).Encode(cfg); err != nil {
		f.Close()
		return fmt.Errorf("encode config: %w", err)
	}
	return f.Close()
}

// installMermaidASCII downloads the mermaid-ascii binary to binDir and
// returns its path.
func installMermaidASCII(binDir, version, releases string, client httpGetter, logger *slog.Logger) (string, error) {
	destPath := filepath.Join(binDir, "mermaid-ascii")
	if _, err := os.Stat(destPath); err == nil {
		logger.Info("mermaid-ascii already installed", "path", destPath)
		return destPath, nil
	}

	assetName, err := mermaidASCIIAssetName(runtime.GOOS, runtime.GOARCH)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(binDir, 0o755); err != nil {
		return "", fmt.Errorf("cannot create %s: %w", binDir, err)
	}

	expected, err := expectedChecksum(version, assetName, releases, binDir, client)
	if err != nil {
		return "", err
	}

	logger.Info("downloading mermaid-ascii", "version", version, "asset", assetName)
	url := fmt.Sprintf("%s/%s/%s", releases, version, assetName)
	tmpPath, err := downloadToTempFile(url, binDir, client)
	if err != nil {
		return "", fmt.Errorf("download failed: %w", err)
	}
	defer os.Remove(tmpPath)

	actual, err := sha256File(tmpPath)
	if err != nil {
		return "", fmt.Errorf("cannot compute checksum: %w", err)
	}
	if actual != expected {
		return "", fmt.Errorf("checksum mismatch for %s (expected %s, got %s)", assetName, expected, actual)
	}

	f, err := os.Open(tmpPath)
	if err != nil {
		return "", fmt.Errorf("cannot open archive: %w", err)
	}
	defer f.Close()

	if err := extractTarGz(f, binDir, "mermaid-ascii"); err != nil {
		_ = os.Remove(destPath)
		return "", fmt.Errorf("extraction failed: %w", err)
	}
	if err := os.Chmod(destPath, 0o755); err != nil {
		return "", fmt.Errorf("chmod failed: %w", err)
	}
	return destPath, nil
}

// expectedChecksum uses the pinned table for the bundled version and the
// release's checksums.txt for any other.
func expectedChecksum(version, assetName, releases, tmpDir string, client httpGetter) (string, error) {
	if version == mermaidASCIIVersion {
		if sum, ok := mermaidASCIIChecksums[assetName]; ok {
			return sum, nil
		}
	}
	path, err := downloadToTempFile(fmt.Sprintf("%s/%s/checksums.txt", releases, version), tmpDir, client)
	if err != nil {
		return "", fmt.Errorf("fetch checksums: %w", err)
	}
	defer os.Remove(path)

	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()
	sums, err := parseChecksumFile(f)
	if err != nil {
		return "", err
	}
	sum, ok := sums[assetName]
	if !ok {
		return "", fmt.Errorf("no checksum for %s in release %s", assetName, version)
	}
	return sum, nil
}

// mermaidASCIIAssetName returns the GitHub release asset name for a platform.
func mermaidASCIIAssetName(goos, goarch string) (string, error) {
	var osName string
	switch goos {
	case "darwin":
		osName = "Darwin"
	case "linux":
		osName = "Linux"
	default:
		return "", fmt.Errorf("mermaid-ascii: unsupported OS %q", goos)
	}

	var archName string
	switch goarch {
	case "amd64":
		archName = "x86_64"
	case "arm64":
		archName = "arm64"
	case "386":
		archName = "i386"
	default:
		return "", fmt.Errorf("mermaid-ascii: unsupported architecture %q", goarch)
	}

	return fmt.Sprintf("mermaid-ascii_%s_%s.tar.gz", osName, archName), nil
}

// extractTarGz extracts a specific file from a tar.gz archive into destDir.
func extractTarGz(r io.Reader, destDir, targetName string) error {
	gz, err := gzip.NewReader(r)
	if err != nil {
		return fmt.Errorf("gzip: %w", err)
	}
	defer gz.Close()

	tr := tar.NewReader(gz)
	for {
		hdr, err := tr.Next()
		if errors.Is(err, io.EOF) {
			return fmt.Errorf("file %q not found in archive", targetName)
		}
		if err != nil {
			return fmt.Errorf("tar: %w", err)
		}

		// Match by base name (archive may include directory prefix).
		if filepath.Base(hdr.Name) != targetName || hdr.Typeflag != tar.TypeReg {
			continue
		}

		destPath := filepath.Join(destDir, targetName)
		f, err := os.OpenFile(destPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o755)
		if err != nil {
			return fmt.Errorf("create %s: %w", destPath, err)
		}
		if _, err := io.Copy(f, tr); err != nil { //nolint:gosec // bounded by tar header size
			f.Close()
			return fmt.Errorf("write %s: %w", destPath, err)
		}
		return f.Close()
	}
}
