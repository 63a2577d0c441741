// Package msgdef parses message schemas at runtime and converts between
// ir.Values and wire buffers.
//
// A Registry resolves type names to Definitions, parsing each schema at most
// once and caching it for the registry's lifetime. A Definition is an ordered
// list of Fields; each field's codec is selected by its FieldType tag, and
// nested message fields point at the shared child Definition rather than a
// copy.
//
// Definitions are immutable after construction. A definition whose schema
// failed to parse is still cached, but IsValid reports false and every codec
// operation returns ErrInvalidDefinition.
package msgdef
