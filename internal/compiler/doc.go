// Package compiler is the front end of the message schema parser.
//
// It turns schema text into declarations without resolving any types:
//
//   - ParseDecls lexes the line-oriented .msg format
//   - CompileCUE extracts message texts declared in CUE
//   - AnalyzeCycles reports nested-type cycles in a set of schemas
//
// Type resolution, field codecs and caching live in package msgdef.
package compiler
