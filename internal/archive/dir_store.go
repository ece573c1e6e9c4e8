package archive

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/zjrosen/trove/internal/log"
)

// snapshotFile is the on-disk document written per entity.
type snapshotFile struct {
	Entity  string    `yaml:"entity"`
	SavedAt time.Time `yaml:"saved_at"`
	Count   int       `yaml:"count"`
	Records []any     `yaml:"records"`
}

// DirStore persists snapshots as one YAML file per entity under a
// directory. Writes go through a temp file and rename so a crashed run
// never leaves a half-written snapshot behind.
type DirStore struct {
	dir string
}

// NewDirStore creates the directory if needed and returns a store over it.
func NewDirStore(dir string) (*DirStore, error) {
	if dir == "" {
		return nil, fmt.Errorf("archive directory is empty")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create archive directory: %w", err)
	}
	return &DirStore{dir: dir}, nil
}

// Dir returns the directory the store writes into.
func (s *DirStore) Dir() string { return s.dir }

func (s *DirStore) path(entityName string) string {
	return filepath.Join(s.dir, entityName+".yaml")
}

// Write implements Store.
func (s *DirStore) Write(ctx context.Context, entityName string, records []any) error {
	doc := snapshotFile{
		Entity:  entityName,
		SavedAt: time.Now().UTC(),
		Count:   len(records),
		Records: records,
	}

	data, err := yaml.Marshal(doc)
	if err != nil {
		return fmt.Errorf("marshal snapshot for %q: %w", entityName, err)
	}

	tmp, err := os.CreateTemp(s.dir, entityName+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp snapshot for %q: %w", entityName, err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write snapshot for %q: %w", entityName, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close snapshot for %q: %w", entityName, err)
	}
	if err := os.Rename(tmpName, s.path(entityName)); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("finalize snapshot for %q: %w", entityName, err)
	}

	log.Info(log.CatOrch, "snapshot written", "entity", entityName, "records", len(records), "path", s.path(entityName))
	return nil
}

// Read implements Store.
func (s *DirStore) Read(ctx context.Context, entityName string) ([]any, error) {
	data, err := os.ReadFile(s.path(entityName))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w for entity %q in %s", ErrNotFound, entityName, s.dir)
		}
		return nil, fmt.Errorf("read snapshot for %q: %w", entityName, err)
	}

	var doc snapshotFile
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse snapshot for %q: %w", entityName, err)
	}
	if doc.Entity != "" && doc.Entity != entityName {
		return nil, fmt.Errorf("snapshot file %s belongs to entity %q", s.path(entityName), doc.Entity)
	}
	return doc.Records, nil
}

// Entities implements Store.
func (s *DirStore) Entities(ctx context.Context) ([]string, error) {
	dirEntries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("list archive directory: %w", err)
	}

	var names []string
	for _, e := range dirEntries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".yaml") {
			continue
		}
		names = append(names, strings.TrimSuffix(e.Name(), ".yaml"))
	}
	sort.Strings(names)
	return names, nil
}

var _ Store = (*DirStore)(nil)
