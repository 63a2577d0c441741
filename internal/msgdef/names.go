package msgdef

import "strings"

// CanonicalName normalizes a fully qualified type name, dropping the "msg"
// or "srv" infix of "pkg/msg/Type".
func CanonicalName(typeName string) string {
	parts := strings.Split(typeName, "/")
	if len(parts) == 3 && (parts[1] == "msg" || parts[1] == "srv") {
		return parts[0] + "/" + parts[2]
	}
	return typeName
}

// Qualify resolves a type token declared inside package pkg. Bare names
// refer to pkg, except Header which always means std_msgs/Header.
func Qualify(pkg, token string) string {
	if token == "Header" {
		return "std_msgs/Header"
	}
	if !strings.Contains(token, "/") {
		return pkg + "/" + token
	}
	return CanonicalName(token)
}

// IsPrimitive reports whether token names a primitive field type.
func IsPrimitive(token string) bool {
	_, ok := primitiveKeywords[token]
	return ok
}

func validTypeName(name string) bool {
	pkg, typ, ok := strings.Cut(name, "/")
	return ok && pkg != "" && typ != "" && !strings.Contains(typ, "/")
}
