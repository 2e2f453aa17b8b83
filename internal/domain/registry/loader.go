package registry

import (
	"context"
	"fmt"
	"io/fs"
	"sort"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/goccy/go-yaml"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/playground/internal/infrastructure/logging"
)

// CatalogPattern matches family files anywhere under the catalog root
const CatalogPattern = "**/*.{yaml,yml}"

// LoadResult reports what a catalog load produced
type LoadResult struct {
	Families []Family
	Failed   []string
}

// Loader reads family files from a filesystem
type Loader struct {
	fsys   fs.FS
	logger *logging.Logger
}

// NewLoader creates a loader over fsys
func NewLoader(fsys fs.FS, logger *logging.Logger) *Loader {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Loader{fsys: fsys, logger: logger}
}

// Load parses every catalog file. A file that fails to read, parse or
// validate is logged and skipped; it never aborts the rest.
func (l *Loader) Load(ctx context.Context) (*LoadResult, error) {
	paths, err := doublestar.Glob(l.fsys, CatalogPattern)
	if err != nil {
		return nil, fmt.Errorf("discover catalog: %w", err)
	}
	sort.Strings(paths)

	result := &LoadResult{}
	for _, path := range paths {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		family, err := l.loadFamily(path)
		if err != nil {
			l.logger.Warn("Failed to load component family",
				zap.String("file", path),
				zap.Error(err),
			)
			result.Failed = append(result.Failed, path)
			continue
		}
		l.logger.Debug("Loaded component family",
			zap.String("family", family.Key),
			zap.Int("symbols", len(family.Components)),
		)
		result.Families = append(result.Families, *family)
	}

	return result, nil
}

// loadFamily reads and validates one catalog file
func (l *Loader) loadFamily(path string) (*Family, error) {
	data, err := fs.ReadFile(l.fsys, path)
	if err != nil {
		return nil, err
	}

	var family Family
	if err := yaml.UnmarshalWithOptions(data, &family, yaml.Strict()); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if err := family.normalize(); err != nil {
		return nil, err
	}
	return &family, nil
}
