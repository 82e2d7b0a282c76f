package migrate

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
)

var sqlFileRe = regexp.MustCompile(`^(\d{14})_[a-z0-9_]+\.sql$`)

const (
	upMarker   = "-- +goose Up"
	downMarker = "-- +goose Down"
)

type sqlMigration struct {
	version string
	name    string
	path    string
}

// scan lists the .sql migrations in dir ordered by version. It rejects
// malformed filenames and versions used twice.
func scan(dir string) ([]sqlMigration, error) {
	if dir == "" {
		return nil, fmt.Errorf("dir is required")
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read dir %q: %w", dir, err)
	}

	var out []sqlMigration
	byVersion := map[string]string{}
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, ".sql") {
			continue
		}
		m := sqlFileRe.FindStringSubmatch(name)
		if m == nil {
			return nil, fmt.Errorf("invalid migration filename %q (expected YYYYMMDDHHMMSS_name.sql)", name)
		}
		if prev, ok := byVersion[m[1]]; ok {
			return nil, fmt.Errorf("duplicate migration version %s in %q and %q", m[1], prev, name)
		}
		byVersion[m[1]] = name
		out = append(out, sqlMigration{version: m[1], name: name, path: filepath.Join(dir, name)})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].version < out[j].version })
	return out, nil
}

// ValidateDir checks that dir holds at least one migration, that filenames
// carry unique versions, and that every file has an Up section followed by a
// Down section so `migrate down` can undo it.
func ValidateDir(dir string) error {
	migrations, err := scan(dir)
	if err != nil {
		return err
	}
	if len(migrations) == 0 {
		return fmt.Errorf("no migrations found in %q", dir)
	}

	for _, m := range migrations {
		b, err := os.ReadFile(m.path)
		if err != nil {
			return fmt.Errorf("read file %q: %w", m.path, err)
		}
		txt := string(b)
		up := strings.Index(txt, upMarker)
		down := strings.Index(txt, downMarker)
		switch {
		case up < 0:
			return fmt.Errorf("migration %q missing %q", m.name, upMarker)
		case down < 0:
			return fmt.Errorf("migration %q missing %q", m.name, downMarker)
		case down < up:
			return fmt.Errorf("migration %q has its Down section before Up", m.name)
		}
	}
	return nil
}
