// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package rtio

// ReadBuf is a cursor over a byte region that a cursor-style engine fills.
//
// The region is split into a filled prefix and an unfilled suffix:
//
//	[0, Len())          filled
//	[Len(), Capacity()) unfilled
//
// Engines write into Unfilled() and then call Advance, or copy with Put.
// The region itself is owned by whoever created the ReadBuf; a ReadBuf never
// reallocates it.
type ReadBuf struct {
	buf    []byte
	filled int
}

// NewReadBuf returns an empty cursor over p.
func NewReadBuf(p []byte) ReadBuf {
	return ReadBuf{buf: p}
}

// Capacity returns the total size of the region.
func (b *ReadBuf) Capacity() int { return len(b.buf) }

// Len returns how many bytes are filled.
func (b *ReadBuf) Len() int { return b.filled }

// Remaining returns how many bytes can still be filled.
func (b *ReadBuf) Remaining() int { return len(b.buf) - b.filled }

// Filled returns the filled prefix.
func (b *ReadBuf) Filled() []byte { return b.buf[:b.filled] }

// Unfilled returns the unfilled suffix.
func (b *ReadBuf) Unfilled() []byte { return b.buf[b.filled:] }

// Advance marks n more bytes as filled.
// It panics if n is negative or exceeds Remaining.
func (b *ReadBuf) Advance(n int) {
	if n < 0 || n > b.Remaining() {
		panic("rtio: ReadBuf advanced past capacity")
	}
	b.filled += n
}

// Put copies as much of p as fits into the unfilled suffix and advances.
// It returns the number of bytes copied.
func (b *ReadBuf) Put(p []byte) int {
	n := copy(b.buf[b.filled:], p)
	b.filled += n
	return n
}

// Clear resets the cursor to empty without touching the bytes.
func (b *ReadBuf) Clear() { b.filled = 0 }
