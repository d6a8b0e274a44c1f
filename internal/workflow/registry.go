package workflow

import (
	"embed"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"go.uber.org/zap"
)

//go:embed builtin/*.yaml
var builtinFS embed.FS

// Info is the listing entry for an available workflow.
type Info struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// Registry loads workflow definitions by name and caches them for the
// process lifetime. Loading is idempotent and side-effect-free; there is
// no cache invalidation, a fresh process picks up file changes.
//
// Resolution order: files in the search paths (first match wins), then
// built-in definitions. A file named <name>.yaml or <name>.yml shadows the
// built-in of the same name.
type Registry struct {
	logger *zap.Logger

	mu    sync.RWMutex
	cache map[string]*Definition // key: name + "\x00" + joined search paths
}

// NewRegistry creates a workflow registry.
func NewRegistry(logger *zap.Logger) *Registry {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Registry{
		logger: logger,
		cache:  make(map[string]*Definition),
	}
}

// Load returns the definition for the named workflow, consulting the cache
// first. It returns ErrNotFound when no file or built-in matches, or a
// DefinitionError when the definition fails validation.
func (r *Registry) Load(name string, searchPaths []string) (*Definition, error) {
	key := cacheKey(name, searchPaths)

	r.mu.RLock()
	def, ok := r.cache[key]
	r.mu.RUnlock()
	if ok {
		return def, nil
	}

	data, source, err := r.locate(name, searchPaths)
	if err != nil {
		return nil, err
	}

	def, err = Parse(data)
	if err != nil {
		return nil, err
	}
	if def.Name != name {
		return nil, &DefinitionError{
			Workflow: name,
			Issues: []Issue{{
				Code:    IssueMissingName,
				Message: fmt.Sprintf("definition at %s declares name %q, expected %q", source, def.Name, name),
			}},
		}
	}

	r.logger.Debug("workflow definition loaded",
		zap.String("workflow", name),
		zap.String("source", source),
		zap.Int("phases", len(def.Phases)),
	)

	r.mu.Lock()
	r.cache[key] = def
	r.mu.Unlock()

	return def, nil
}

// locate finds the definition document for a name without parsing it.
func (r *Registry) locate(name string, searchPaths []string) (data []byte, source string, err error) {
	for _, dir := range searchPaths {
		for _, ext := range []string{".yaml", ".yml"} {
			path := filepath.Join(dir, name+ext)
			content, readErr := os.ReadFile(path)
			if readErr != nil {
				if !os.IsNotExist(readErr) {
					r.logger.Warn("skipping unreadable workflow file",
						zap.String("path", path),
						zap.Error(readErr),
					)
				}
				continue
			}
			return content, path, nil
		}
	}

	content, readErr := builtinFS.ReadFile("builtin/" + name + ".yaml")
	if readErr != nil {
		return nil, "", fmt.Errorf("%w: %q", ErrNotFound, name)
	}
	return content, "builtin", nil
}

// List enumerates every available workflow: built-ins plus definitions in
// the search paths. User definitions shadow built-ins of the same name.
// Results are sorted by name. Unparseable files are skipped with a warning
// rather than failing the whole listing.
func (r *Registry) List(searchPaths []string) []Info {
	byName := make(map[string]Info)

	entries, err := builtinFS.ReadDir("builtin")
	if err == nil {
		for _, e := range entries {
			data, readErr := builtinFS.ReadFile("builtin/" + e.Name())
			if readErr != nil {
				continue
			}
			if def, parseErr := Parse(data); parseErr == nil {
				byName[def.Name] = Info{Name: def.Name, Description: def.Description}
			}
		}
	}

	for _, dir := range searchPaths {
		dirEntries, readErr := os.ReadDir(dir)
		if readErr != nil {
			continue
		}
		for _, e := range dirEntries {
			ext := filepath.Ext(e.Name())
			if e.IsDir() || (ext != ".yaml" && ext != ".yml") {
				continue
			}
			path := filepath.Join(dir, e.Name())
			data, readErr := os.ReadFile(path)
			if readErr != nil {
				continue
			}
			def, parseErr := Parse(data)
			if parseErr != nil {
				r.logger.Warn("skipping invalid workflow file",
					zap.String("path", path),
					zap.Error(parseErr),
				)
				continue
			}
			name := strings.TrimSuffix(e.Name(), ext)
			if def.Name != name {
				r.logger.Warn("workflow file name does not match declared name",
					zap.String("path", path),
					zap.String("declared", def.Name),
				)
				continue
			}
			byName[def.Name] = Info{Name: def.Name, Description: def.Description}
		}
	}

	infos := make([]Info, 0, len(byName))
	for _, info := range byName {
		infos = append(infos, info)
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].Name < infos[j].Name })
	return infos
}

func cacheKey(name string, searchPaths []string) string {
	return name + "\x00" + strings.Join(searchPaths, string(os.PathListSeparator))
}
