package node

import (
	"fmt"
	"strings"
)

// ResolveName expands a topic or service name against the node's
// namespace. Absolute names ("/x") are kept, private names ("~x") live
// under the node's own name, and relative names under the namespace.
func (n *Node) ResolveName(name string) (string, error) {
	if name == "" {
		return "", fmt.Errorf("empty name")
	}
	if strings.ContainsAny(name, " \t\n") {
		return "", fmt.Errorf("name %q contains whitespace", name)
	}
	var full string
	switch {
	case strings.HasPrefix(name, "/"):
		full = name
	case strings.HasPrefix(name, "~"):
		full = joinName(n.FullName(), strings.TrimPrefix(strings.TrimPrefix(name, "~"), "/"))
	default:
		full = joinName(n.namespace, name)
	}
	return cleanName(full), nil
}

// FullName returns the node's namespaced name.
func (n *Node) FullName() string {
	return cleanName(joinName(n.namespace, n.name))
}

func joinName(ns, name string) string {
	return strings.TrimSuffix(ns, "/") + "/" + name
}

func cleanName(name string) string {
	parts := strings.FieldsFunc(name, func(r rune) bool { return r == '/' })
	return "/" + strings.Join(parts, "/")
}
