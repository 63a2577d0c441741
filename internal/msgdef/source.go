package msgdef

import (
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"sort"
	"strings"

	"github.com/roach88/rtmsg/internal/compiler"
)

// Kind selects between message and service schemas.
type Kind int

const (
	KindMessage Kind = iota
	KindService
)

func (k Kind) ext() string {
	if k == KindService {
		return ".srv"
	}
	return ".msg"
}

func (k Kind) dir() string {
	if k == KindService {
		return "srv"
	}
	return "msg"
}

// Source supplies schema text by fully qualified type name. A source that
// does not know a name returns an error wrapping ErrTypeNotFound.
type Source interface {
	Load(kind Kind, typeName string) (string, error)
}

// Lister is implemented by sources that can enumerate their type names.
type Lister interface {
	List(kind Kind) ([]string, error)
}

// MapSource serves schemas from memory.
type MapSource struct {
	Messages map[string]string
	Services map[string]string
}

func (s MapSource) Load(kind Kind, typeName string) (string, error) {
	m := s.Messages
	if kind == KindService {
		m = s.Services
	}
	if text, ok := m[typeName]; ok {
		return text, nil
	}
	return "", fmt.Errorf("%s: %w", typeName, ErrTypeNotFound)
}

func (s MapSource) List(kind Kind) ([]string, error) {
	m := s.Messages
	if kind == KindService {
		m = s.Services
	}
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

// FSSource reads schemas laid out as <pkg>/msg/<Type>.msg and
// <pkg>/srv/<Type>.srv, falling back to <pkg>/<Type>.msg.
type FSSource struct {
	fsys fs.FS
}

// NewFSSource returns a Source over fsys.
func NewFSSource(fsys fs.FS) *FSSource { return &FSSource{fsys: fsys} }

func (s *FSSource) Load(kind Kind, typeName string) (string, error) {
	pkg, name, ok := strings.Cut(typeName, "/")
	if !ok || strings.Contains(name, "/") {
		return "", fmt.Errorf("%s: %w", typeName, ErrTypeNotFound)
	}
	for _, p := range []string{
		path.Join(pkg, kind.dir(), name+kind.ext()),
		path.Join(pkg, name+kind.ext()),
	} {
		data, err := fs.ReadFile(s.fsys, p)
		if err == nil {
			return string(data), nil
		}
		if !errors.Is(err, fs.ErrNotExist) {
			return "", fmt.Errorf("read %s: %w", p, err)
		}
	}
	return "", fmt.Errorf("%s: %w", typeName, ErrTypeNotFound)
}

func (s *FSSource) List(kind Kind) ([]string, error) {
	var names []string
	err := fs.WalkDir(s.fsys, ".", func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || path.Ext(p) != kind.ext() {
			return nil
		}
		parts := strings.Split(p, "/")
		base := strings.TrimSuffix(parts[len(parts)-1], kind.ext())
		switch {
		case len(parts) == 2:
			names = append(names, parts[0]+"/"+base)
		case len(parts) == 3 && parts[1] == kind.dir():
			names = append(names, parts[0]+"/"+base)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(names)
	return names, nil
}

// DirSource returns a source over the given search roots, earliest root first.
func DirSource(roots ...string) Source {
	srcs := make(MultiSource, 0, len(roots))
	for _, root := range roots {
		srcs = append(srcs, NewFSSource(os.DirFS(root)))
	}
	return srcs
}

//go:embed builtin
var builtinFS embed.FS

// BuiltinSource returns the schemas compiled into the binary: a subset of
// std_msgs, std_srvs, geometry_msgs and builtin_interfaces.
func BuiltinSource() *FSSource {
	sub, err := fs.Sub(builtinFS, "builtin")
	if err != nil {
		panic(err)
	}
	return NewFSSource(sub)
}

// CUESource loads message schemas declared in the CUE package at dir.
func CUESource(dir string) (MapSource, error) {
	msgs, err := compiler.LoadCUEDir(dir)
	if err != nil {
		return MapSource{}, err
	}
	return MapSource{Messages: msgs}, nil
}

// MultiSource consults each source in order; the first that knows a name
// wins. Errors other than ErrTypeNotFound stop the search.
type MultiSource []Source

func (m MultiSource) Load(kind Kind, typeName string) (string, error) {
	for _, s := range m {
		text, err := s.Load(kind, typeName)
		if err == nil {
			return text, nil
		}
		if !errors.Is(err, ErrTypeNotFound) {
			return "", err
		}
	}
	return "", fmt.Errorf("%s: %w", typeName, ErrTypeNotFound)
}

func (m MultiSource) List(kind Kind) ([]string, error) {
	seen := make(map[string]bool)
	var names []string
	for _, s := range m {
		l, ok := s.(Lister)
		if !ok {
			continue
		}
		got, err := l.List(kind)
		if err != nil {
			return nil, err
		}
		for _, n := range got {
			if !seen[n] {
				seen[n] = true
				names = append(names, n)
			}
		}
	}
	sort.Strings(names)
	return names, nil
}
