// Package ir provides the generic value model exchanged with message codecs.
//
// A message is an ordered mapping from field name to value (Values). Leaf
// values are plain Go scalars (bool, int8 … uint64, float32, float64, string)
// plus Time and Duration; nested messages are *Values. ir imports nothing
// internal, so every other package can depend on it.
//
// The package also provides canonical JSON for recorded messages and the
// domain-separated content hash used by the recorder.
package ir
