package symlib

import (
	"embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// SymbolDirEnv points at the KiCad 8 symbol library directory.
const SymbolDirEnv = "KICAD8_SYMBOL_DIR"

// Resolver knows how to look up a symbol by library and name.
type Resolver interface {
	Lookup(lib, name string) (*Symbol, error)
}

// MemoryResolver is a simple in-memory implementation useful during tests or
// when the caller preloads a fixed set of libraries.
type MemoryResolver struct {
	mu   sync.RWMutex
	libs map[string]*Library
}

// NewMemoryResolver creates an empty resolver.
func NewMemoryResolver() *MemoryResolver {
	return &MemoryResolver{libs: make(map[string]*Library)}
}

// Add registers a parsed library under its name.
func (r *MemoryResolver) Add(lib *Library) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.libs[lib.Name] = lib
}

// Libraries returns the registered library names.
func (r *MemoryResolver) Libraries() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.libs))
	for n := range r.libs {
		names = append(names, n)
	}
	return names
}

// Lookup implements the Resolver interface.
func (r *MemoryResolver) Lookup(lib, name string) (*Symbol, error) {
	r.mu.RLock()
	l, ok := r.libs[lib]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrLibraryNotFound, lib)
	}
	return l.Symbol(name)
}

// DirResolver loads <dir>/<lib>.kicad_sym on first use and caches it.
type DirResolver struct {
	dir   string
	cache *MemoryResolver
	mu    sync.Mutex
}

// NewDirResolver creates a resolver over a KiCad symbol directory.
func NewDirResolver(dir string) *DirResolver {
	return &DirResolver{dir: dir, cache: NewMemoryResolver()}
}

// Dir returns the library directory.
func (r *DirResolver) Dir() string {
	return r.dir
}

// Lookup implements the Resolver interface.
func (r *DirResolver) Lookup(lib, name string) (*Symbol, error) {
	sym, err := r.cache.Lookup(lib, name)
	if !errors.Is(err, ErrLibraryNotFound) {
		return sym, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	// Another caller may have loaded it while we waited
	if sym, err := r.cache.Lookup(lib, name); !errors.Is(err, ErrLibraryNotFound) {
		return sym, err
	}

	path := filepath.Join(r.dir, lib+FileExtension)
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s (looked in %s)", ErrLibraryNotFound, lib, r.dir)
		}
		return nil, fmt.Errorf("symlib: %w", err)
	}

	parsed, err := ParseFile(path)
	if err != nil {
		return nil, err
	}
	r.cache.Add(parsed)
	return parsed.Symbol(name)
}

// Chain tries each resolver in order and returns the first hit.
type Chain []Resolver

// Lookup implements the Resolver interface.
func (c Chain) Lookup(lib, name string) (*Symbol, error) {
	var tried []string
	for _, r := range c {
		sym, err := r.Lookup(lib, name)
		if err == nil {
			return sym, nil
		}
		if !errors.Is(err, ErrLibraryNotFound) && !errors.Is(err, ErrSymbolNotFound) {
			return nil, err
		}
		tried = append(tried, err.Error())
	}
	if len(tried) == 0 {
		return nil, fmt.Errorf("%w: %s:%s (no libraries configured)", ErrSymbolNotFound, lib, name)
	}
	return nil, fmt.Errorf("%w: %s:%s [%s]", ErrSymbolNotFound, lib, name, strings.Join(tried, "; "))
}

//go:embed builtin/*.kicad_sym
var builtinFS embed.FS

var (
	builtinOnce sync.Once
	builtin     *MemoryResolver
	builtinErr  error
)

// Builtin returns a resolver over the symbol libraries bundled with this
// module. It covers the parts used by the bundled circuit definitions so
// that circuits build on machines without a KiCad installation.
func Builtin() (*MemoryResolver, error) {
	builtinOnce.Do(func() {
		builtin = NewMemoryResolver()
		entries, err := builtinFS.ReadDir("builtin")
		if err != nil {
			builtinErr = fmt.Errorf("symlib: read builtin libraries: %w", err)
			return
		}
		for _, e := range entries {
			f, err := builtinFS.Open("builtin/" + e.Name())
			if err != nil {
				builtinErr = fmt.Errorf("symlib: open builtin %s: %w", e.Name(), err)
				return
			}
			lib, err := Parse(strings.TrimSuffix(e.Name(), FileExtension), f)
			f.Close()
			if err != nil {
				builtinErr = err
				return
			}
			builtin.Add(lib)
		}
	})
	return builtin, builtinErr
}

// FromEnv builds the default resolver: the KiCad installation named by
// KICAD8_SYMBOL_DIR first (when it exists), then the builtin libraries.
func FromEnv() (Resolver, error) {
	var chain Chain
	if dir := os.Getenv(SymbolDirEnv); dir != "" {
		if info, err := os.Stat(dir); err == nil && info.IsDir() {
			chain = append(chain, NewDirResolver(dir))
		}
	}
	b, err := Builtin()
	if err != nil {
		return nil, err
	}
	return append(chain, b), nil
}
