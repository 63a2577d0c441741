package msgdef

import "sync/atomic"

// Buffer is an encoded message owned by the caller until it is handed back
// to the Definition that produced it.
type Buffer struct {
	data  []byte
	owner *Definition
	freed atomic.Bool
}

// Bytes returns the encoded bytes. After Disallocate it returns nil.
func (b *Buffer) Bytes() []byte { return b.data }

// Len returns the buffer length in bytes.
func (b *Buffer) Len() int { return len(b.data) }

// Definition returns the definition that allocated the buffer.
func (b *Buffer) Definition() *Definition { return b.owner }

// Release is shorthand for b.Definition().Disallocate(b).
func (b *Buffer) Release() error { return b.owner.Disallocate(b) }
