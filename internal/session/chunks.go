package session

import "sync"

// ChunkBuffer keeps recorder output in emission order. Empty chunks are
// dropped; nothing is concatenated until Bytes is called.
type ChunkBuffer struct {
	mu     sync.Mutex
	chunks [][]byte
	size   int
}

// Append stores a copy of chunk. Empty chunks are ignored.
func (b *ChunkBuffer) Append(chunk []byte) {
	if len(chunk) == 0 {
		return
	}
	c := make([]byte, len(chunk))
	copy(c, chunk)

	b.mu.Lock()
	b.chunks = append(b.chunks, c)
	b.size += len(c)
	b.mu.Unlock()
}

// Len is the number of buffered chunks.
func (b *ChunkBuffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.chunks)
}

// Size is the total number of buffered bytes.
func (b *ChunkBuffer) Size() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.size
}

// Bytes concatenates the chunks in the order they were appended.
func (b *ChunkBuffer) Bytes() []byte {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]byte, 0, b.size)
	for _, c := range b.chunks {
		out = append(out, c...)
	}
	return out
}

// Reset drops every buffered chunk.
func (b *ChunkBuffer) Reset() {
	b.mu.Lock()
	b.chunks = nil
	b.size = 0
	b.mu.Unlock()
}
