package bundle

import (
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"slices"
	"strings"
	"sync"

	"github.com/roach88/procfg/internal/process"
)

//go:embed std/*.hcl
var stdFiles embed.FS

// Ext is the bundle file extension.
const Ext = ".hcl"

// Standard returns the embedded standard bundle library.
func Standard() fs.FS {
	sub, err := fs.Sub(stdFiles, "std")
	if err != nil {
		panic(err)
	}
	return sub
}

// Catalog resolves bundle names to files across an ordered list of
// sources. The first source holding NAME.hcl wins. Parsed bundles are
// cached, so a Catalog can serve many processes.
type Catalog struct {
	sources []fs.FS

	mu     sync.Mutex
	parsed map[string]*Bundle
}

// NewCatalog creates a catalog over sources, searched in order.
func NewCatalog(sources ...fs.FS) *Catalog {
	return &Catalog{
		sources: sources,
		parsed:  make(map[string]*Bundle),
	}
}

// NewDefaultCatalog searches dirs in order and then the standard library.
func NewDefaultCatalog(dirs ...string) *Catalog {
	sources := make([]fs.FS, 0, len(dirs)+1)
	for _, d := range dirs {
		if d == "" {
			continue
		}
		sources = append(sources, os.DirFS(d))
	}
	sources = append(sources, Standard())
	return NewCatalog(sources...)
}

// SplitPath splits a PROCFG_BUNDLE_PATH style list.
func SplitPath(list string) []string {
	if list == "" {
		return nil
	}
	return strings.Split(list, string(os.PathListSeparator))
}

// BundleName reduces an import path such as
// "Configuration.StandardSequences.Services_cff" or "sim/Services_cff.hcl"
// to the bundle name "Services_cff".
func (c *Catalog) BundleName(name string) string {
	name = strings.TrimSuffix(name, Ext)
	if i := strings.LastIndexAny(name, "./"); i >= 0 {
		name = name[i+1:]
	}
	return name
}

// Find returns the parsed bundle for name.
func (c *Catalog) Find(name string) (*Bundle, error) {
	name = c.BundleName(name)

	c.mu.Lock()
	defer c.mu.Unlock()
	if b, ok := c.parsed[name]; ok {
		return b, nil
	}

	file := name + Ext
	for i, src := range c.sources {
		data, err := fs.ReadFile(src, file)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("read bundle %s from source %d: %w", name, i, err)
		}
		b, err := Parse(name, sourceName(src, file), data)
		if err != nil {
			return nil, fmt.Errorf("parse bundle %s: %w", name, err)
		}
		c.parsed[name] = b
		return b, nil
	}
	return nil, process.NewNotFoundError(name, "bundle path")
}

// LoadBundle implements process.BundleLoader.
func (c *Catalog) LoadBundle(p *process.Process, name string) error {
	b, err := c.Find(name)
	if err != nil {
		return err
	}
	return b.Apply(p)
}

// List returns the names of every bundle visible through the catalog,
// sorted. A name shadowed by an earlier source is listed once.
func (c *Catalog) List() ([]string, error) {
	seen := make(map[string]bool)
	for _, src := range c.sources {
		matches, err := fs.Glob(src, "*"+Ext)
		if err != nil {
			return nil, err
		}
		for _, m := range matches {
			seen[strings.TrimSuffix(path.Base(m), Ext)] = true
		}
	}
	names := make([]string, 0, len(seen))
	for n := range seen {
		names = append(names, n)
	}
	slices.Sort(names)
	return names, nil
}

func sourceName(src fs.FS, file string) string {
	if s, ok := src.(fmt.Stringer); ok {
		return path.Join(s.String(), file)
	}
	return file
}
