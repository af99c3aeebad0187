// Package cache remembers which source files were already converted so an
// incremental run can skip files whose content and destination are unchanged.
package cache

import (
	"crypto/sha256"
	"encoding/gob"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/spf13/afero"
)

// FileName is the default name of the cache index, placed in the output root.
const FileName = ".chconv.cache"

// SchemaVersion is the version of the cache file structure. Load discards
// files written with a different version.
const SchemaVersion = "1.0"

const (
	// FormatGob is the default serialization format.
	FormatGob = "gob"
	// FormatJSON writes a human-readable index.
	FormatJSON = "json"
	// DefaultFormat is used when no or an unknown format is configured.
	DefaultFormat = FormatGob
)

// ErrCacheLoad indicates the index file exists but could not be opened.
// Decode failures and version mismatches are treated as an empty cache.
var ErrCacheLoad = errors.New("failed to load cache index")

// ErrCachePersist indicates the index could not be written back.
var ErrCachePersist = errors.New("failed to persist cache index")

// Entry is the stored state of one converted file.
type Entry struct {
	SourceHash     string `json:"sourceHash"`
	SourceEncoding string `json:"sourceEncoding"`
	Target         string `json:"target"`
	OutputHash     string `json:"outputHash"`
	ToolVersion    string `json:"toolVersion"`
}

// FileHeader precedes the index in the cache file.
type FileHeader struct {
	SchemaVersion string `json:"schemaVersion"`
	ToolVersion   string `json:"toolVersion"`
}

type jsonFile struct {
	Header FileHeader       `json:"header"`
	Index  map[string]Entry `json:"index"`
}

// Manager loads, queries, updates and persists the conversion index.
// Check and Update MUST be safe for concurrent use by workers.
type Manager interface {
	// Load reads the index at path. A missing, corrupt or incompatible file
	// yields an empty index and a nil error.
	Load(path string) error
	// Check returns the entry for source if its recorded source hash and
	// target encoding match.
	Check(source, sourceHash, target string) (Entry, bool)
	// Update records a successful conversion of source.
	Update(source string, entry Entry)
	// Persist atomically writes the index to path.
	Persist(path string) error
	// Len reports the number of entries in the index.
	Len() int
}

type fileManager struct {
	fs          afero.Fs
	index       map[string]Entry
	mu          sync.RWMutex
	logger      *slog.Logger
	toolVersion string
	format      string
}

// NewFileManager creates a Manager that stores its index on fs in the given
// format ("gob" or "json", defaulting to gob).
func NewFileManager(fs afero.Fs, loggerHandler slog.Handler, toolVersion, format string) Manager {
	if loggerHandler == nil {
		loggerHandler = slog.NewTextHandler(io.Discard, nil)
	}
	format = strings.ToLower(format)
	if format != FormatJSON && format != FormatGob {
		format = DefaultFormat
	}
	if toolVersion == "" {
		toolVersion = "dev"
	}
	return &fileManager{
		fs:          fs,
		index:       make(map[string]Entry),
		toolVersion: toolVersion,
		format:      format,
		logger: slog.New(loggerHandler).With(
			slog.String("component", "cacheManager"),
			slog.String("format", format),
		),
	}
}

// Hash returns the hex SHA-256 digest of data, as stored in entries.
func Hash(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// compatible reports whether a file or entry written by version can be
// reused. Development builds accept each other's entries.
func (c *fileManager) compatible(version string) bool {
	return version == c.toolVersion || version == "dev" || c.toolVersion == "dev"
}

func (c *fileManager) Load(path string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.index = make(map[string]Entry)

	file, err := c.fs.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			c.logger.Info("Cache file not found, starting with an empty index.", slog.String("path", path))
			return nil
		}
		return fmt.Errorf("%w: open %s: %w", ErrCacheLoad, path, err)
	}
	defer file.Close()

	var header FileHeader
	var loaded map[string]Entry
	if c.format == FormatJSON {
		var data jsonFile
		err = json.NewDecoder(file).Decode(&data)
		header, loaded = data.Header, data.Index
	} else {
		decoder := gob.NewDecoder(file)
		if err = decoder.Decode(&header); err == nil {
			err = decoder.Decode(&loaded)
		}
	}
	if err != nil {
		c.logger.Warn("Cache file unreadable, treating as empty.", slog.String("path", path), slog.String("error", err.Error()))
		return nil
	}

	if header.SchemaVersion != SchemaVersion {
		c.logger.Warn("Cache schema version mismatch, invalidating cache.",
			slog.String("path", path), slog.String("file_schema", header.SchemaVersion), slog.String("expected_schema", SchemaVersion))
		return nil
	}
	if !c.compatible(header.ToolVersion) {
		c.logger.Warn("Cache tool version mismatch, invalidating cache.",
			slog.String("path", path), slog.String("file_version", header.ToolVersion), slog.String("expected_version", c.toolVersion))
		return nil
	}

	if loaded != nil {
		c.index = loaded
	}
	c.logger.Info("Cache loaded.", slog.String("path", path), slog.Int("entries", len(c.index)))
	return nil
}

func (c *fileManager) Check(source, sourceHash, target string) (Entry, bool) {
	c.mu.RLock()
	entry, found := c.index[source]
	c.mu.RUnlock()

	switch {
	case !found:
		c.logger.Debug("Cache miss (no entry)", slog.String("path", source))
		return Entry{}, false
	case !c.compatible(entry.ToolVersion):
		c.logger.Debug("Cache miss (tool version)", slog.String("path", source))
		return Entry{}, false
	case entry.SourceHash != sourceHash:
		c.logger.Debug("Cache miss (source changed)", slog.String("path", source))
		return Entry{}, false
	case entry.Target != target:
		c.logger.Debug("Cache miss (target changed)", slog.String("path", source),
			slog.String("entry_target", entry.Target), slog.String("target", target))
		return Entry{}, false
	}
	c.logger.Debug("Cache hit", slog.String("path", source))
	return entry, true
}

func (c *fileManager) Update(source string, entry Entry) {
	entry.ToolVersion = c.toolVersion
	c.mu.Lock()
	c.index[source] = entry
	c.mu.Unlock()
}

func (c *fileManager) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.index)
}

func (c *fileManager) Persist(path string) (err error) {
	c.mu.RLock()
	snapshot := make(map[string]Entry, len(c.index))
	for k, v := range c.index {
		snapshot[k] = v
	}
	c.mu.RUnlock()

	if len(snapshot) == 0 {
		if rmErr := c.fs.Remove(path); rmErr != nil && !errors.Is(rmErr, os.ErrNotExist) {
			c.logger.Warn("Failed to remove empty cache file", slog.String("path", path), slog.String("error", rmErr.Error()))
		}
		return nil
	}

	dir := filepath.Dir(path)
	if err := c.fs.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("%w: create %s: %w", ErrCachePersist, dir, err)
	}
	tmp, err := afero.TempFile(c.fs, dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("%w: create temporary file in %s: %w", ErrCachePersist, dir, err)
	}
	tmpName := tmp.Name()
	defer func() {
		if err != nil {
			_ = c.fs.Remove(tmpName)
		}
	}()

	header := FileHeader{SchemaVersion: SchemaVersion, ToolVersion: c.toolVersion}
	var encodeErr error
	if c.format == FormatJSON {
		encoder := json.NewEncoder(tmp)
		encoder.SetIndent("", "  ")
		encodeErr = encoder.Encode(jsonFile{Header: header, Index: snapshot})
	} else {
		encoder := gob.NewEncoder(tmp)
		if encodeErr = encoder.Encode(header); encodeErr == nil {
			encodeErr = encoder.Encode(snapshot)
		}
	}
	if encodeErr != nil {
		_ = tmp.Close()
		return fmt.Errorf("%w: encode %s: %w", ErrCachePersist, c.format, encodeErr)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("%w: close %s: %w", ErrCachePersist, tmpName, err)
	}
	if err = c.fs.Rename(tmpName, path); err != nil {
		return fmt.Errorf("%w: rename to %s: %w", ErrCachePersist, path, err)
	}

	c.logger.Info("Cache persisted.", slog.String("path", path), slog.Int("entries", len(snapshot)))
	return nil
}
