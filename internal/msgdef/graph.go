package msgdef

import (
	"fmt"
	"strings"

	"github.com/roach88/rtmsg/internal/compiler"
)

// ListingSource is a Source that can enumerate its message types.
type ListingSource interface {
	Source
	Lister
}

// DependencyGraph lexes every message schema in src and returns the graph
// of nested message references, keyed by type name. Edges to types the
// source does not list are kept so the caller can report them.
func DependencyGraph(src ListingSource) (compiler.DependencyGraph, error) {
	names, err := src.List(KindMessage)
	if err != nil {
		return nil, err
	}
	graph := make(compiler.DependencyGraph, len(names))
	for _, name := range names {
		text, err := src.Load(KindMessage, name)
		if err != nil {
			return nil, err
		}
		decls, err := compiler.ParseDecls(text)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		pkg, _, _ := strings.Cut(name, "/")
		deps := []string{}
		for _, d := range decls {
			if d.Constant || IsPrimitive(d.Type) {
				continue
			}
			deps = append(deps, Qualify(pkg, d.Type))
		}
		graph[name] = deps
	}
	return graph, nil
}
