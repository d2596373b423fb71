// Package filestore persists task list snapshots as a single JSON or YAML document.
package filestore

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/evanschultz/todoterm/internal/app"
	"github.com/evanschultz/todoterm/internal/domain"
	json "github.com/goccy/go-json"
	"github.com/natefinch/atomic"
	"gopkg.in/yaml.v3"
)

// Format identifies a document encoding.
type Format string

// FormatJSON and FormatYAML are the supported encodings.
const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// ErrUnsupportedFormat reports an unknown document encoding.
var ErrUnsupportedFormat = errors.New("unsupported file format")

// ParseFormat validates a format name. "yml" is accepted as YAML.
func ParseFormat(raw string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "json":
		return FormatJSON, nil
	case "yaml", "yml":
		return FormatYAML, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, raw)
	}
}

// FormatForPath infers the encoding from a file extension, defaulting to JSON.
func FormatForPath(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML
	default:
		return FormatJSON
	}
}

// Extension returns the canonical file extension including the dot.
func (f Format) Extension() string {
	if f == FormatYAML {
		return ".yaml"
	}
	return ".json"
}

// Repository reads and writes one snapshot document.
type Repository struct {
	path   string
	format Format
}

// New constructs a repository for path. An empty format is inferred from the extension.
func New(path string, format Format) (*Repository, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, errors.New("file store path is required")
	}
	if format == "" {
		format = FormatForPath(path)
	}
	if _, err := ParseFormat(string(format)); err != nil {
		return nil, err
	}
	return &Repository{path: path, format: format}, nil
}

// Path returns the document location.
func (r *Repository) Path() string {
	return r.path
}

// Format returns the document encoding.
func (r *Repository) Format() Format {
	return r.format
}

// Load reads the document. A missing or blank file wraps app.ErrNotFound.
func (r *Repository) Load(ctx context.Context) (domain.Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return domain.Snapshot{}, err
	}
	content, err := os.ReadFile(r.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return domain.Snapshot{}, fmt.Errorf("%w: %s", app.ErrNotFound, r.path)
		}
		return domain.Snapshot{}, fmt.Errorf("read %s: %w", r.path, err)
	}
	if len(bytes.TrimSpace(content)) == 0 {
		return domain.Snapshot{}, fmt.Errorf("%w: %s is empty", app.ErrNotFound, r.path)
	}
	snap, err := Decode(content, r.format)
	if err != nil {
		return domain.Snapshot{}, fmt.Errorf("decode %s: %w", r.path, err)
	}
	return snap, nil
}

// Save replaces the document atomically. A failed write leaves the previous file intact.
func (r *Repository) Save(ctx context.Context, snap domain.Snapshot) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	content, err := Encode(snap, r.format)
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	return writeFileAtomic(r.path, content)
}

// Encode renders snap in format. Both lists are always present in the output.
func Encode(snap domain.Snapshot, format Format) ([]byte, error) {
	snap = withLists(snap)
	switch format {
	case FormatJSON:
		content, err := json.MarshalIndent(snap, "", "  ")
		if err != nil {
			return nil, err
		}
		return append(content, '\n'), nil
	case FormatYAML:
		return yaml.Marshal(snap)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}
}

// Decode parses content in format.
func Decode(content []byte, format Format) (domain.Snapshot, error) {
	var snap domain.Snapshot
	switch format {
	case FormatJSON:
		if err := json.Unmarshal(content, &snap); err != nil {
			return domain.Snapshot{}, err
		}
	case FormatYAML:
		if err := yaml.Unmarshal(content, &snap); err != nil {
			return domain.Snapshot{}, err
		}
	default:
		return domain.Snapshot{}, fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}
	return withLists(snap), nil
}

// withLists replaces nil lists with empty ones so encoders emit [] instead of null.
func withLists(snap domain.Snapshot) domain.Snapshot {
	if snap.CompleteTasks == nil {
		snap.CompleteTasks = []string{}
	}
	if snap.IncompleteTasks == nil {
		snap.IncompleteTasks = []string{}
	}
	return snap
}

// writeFileAtomic creates the store dir and replaces path in one rename.
func writeFileAtomic(path string, content []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create store dir: %w", err)
	}
	if err := atomic.WriteFile(path, bytes.NewReader(content)); err != nil {
		return fmt.Errorf("replace %s: %w", path, err)
	}
	return nil
}
