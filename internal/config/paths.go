package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// Paths contains the resolved, absolute application paths.
type Paths struct {
	BaseDir      string
	MappingFile  string
	DataDir      string
	DownloadsDir string
	ExportsDir   string
	LogsDir      string
}

// ResolvePaths makes every configured path absolute. Relative paths are
// joined to BaseDir, which defaults to the working directory.
func (c *Config) ResolvePaths() error {
	base := c.Paths.BaseDir
	if base == "" {
		wd, err := os.Getwd()
		if err != nil {
			return fmt.Errorf("failed to get working directory: %w", err)
		}
		base = wd
	}
	base, err := filepath.Abs(base)
	if err != nil {
		return fmt.Errorf("failed to resolve base directory %s: %w", base, err)
	}
	c.Paths.BaseDir = base

	for _, p := range []*string{
		&c.Paths.MappingFile,
		&c.Paths.DataDir,
		&c.Paths.DownloadsDir,
		&c.Paths.ExportsDir,
		&c.Paths.LogsDir,
	} {
		*p = resolve(base, *p)
	}

	if c.Logging.FilePath != "" && !filepath.IsAbs(c.Logging.FilePath) {
		c.Logging.FilePath = filepath.Join(c.Paths.LogsDir, c.Logging.FilePath)
	}
	return nil
}

func resolve(base, p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(base, p)
}

// GetPaths returns the resolved paths of c.
func (c *Config) GetPaths() *Paths {
	return &Paths{
		BaseDir:      c.Paths.BaseDir,
		MappingFile:  c.Paths.MappingFile,
		DataDir:      c.Paths.DataDir,
		DownloadsDir: c.Paths.DownloadsDir,
		ExportsDir:   c.Paths.ExportsDir,
		LogsDir:      c.Paths.LogsDir,
	}
}

// EnsureDirectories creates all required directories if they don't exist
func (p *Paths) EnsureDirectories() error {
	directories := []string{
		p.DataDir,
		p.DownloadsDir,
		p.ExportsDir,
		p.LogsDir,
		filepath.Dir(p.MappingFile),
	}

	for _, dir := range directories {
		if dir == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
		slog.Debug("ensured directory exists", slog.String("directory", dir))
	}
	return nil
}

// GetDownloadPath returns the path for a downloaded schedule
func (p *Paths) GetDownloadPath(filename string) string {
	return filepath.Join(p.DownloadsDir, safeName(filename))
}

// GetExportPath returns the path for an exported session list
func (p *Paths) GetExportPath(filename string) string {
	return filepath.Join(p.ExportsDir, safeName(filename))
}

// FileExists checks if a file exists
func FileExists(path string) bool {
	_, err := os.Stat(path)
	return !os.IsNotExist(err)
}

// safeName strips directory components and characters that are awkward in
// file names on any platform.
func safeName(name string) string {
	name = filepath.Base(strings.ReplaceAll(name, "\\", "/"))
	return strings.Map(func(r rune) rune {
		switch r {
		case '<', '>', ':', '"', '|', '?', '*':
			return '_'
		}
		return r
	}, name)
}
