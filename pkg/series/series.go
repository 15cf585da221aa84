// Package series implements the chunked column: a typed, append-only
// sequence of immutable Arrow arrays with a validity bitmap per chunk.
//
// A Series never mutates a chunk after it has been appended. The only
// mutable state is the chunk vector itself, and that is guarded by an
// ownership handle: every Series holds a reference-counted chunk store,
// and operations that grow the vector demand exclusive ownership.
// Sharing is explicit (Share), so an aliased store is detected before
// any mutation happens rather than silently corrupting a sibling frame.
package series

import (
	"sync/atomic"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"

	"github.com/quasar-data/quasar/pkg/dtype"
	qerrors "github.com/quasar-data/quasar/pkg/errors"
)

var alloc = memory.DefaultAllocator

// chunkStore owns the chunk vector. refs counts the Series handles
// pointing at it; the vector may only grow while refs == 1.
type chunkStore struct {
	chunks []arrow.Array
	refs   int32
}

func newStore(chunks []arrow.Array) *chunkStore {
	return &chunkStore{chunks: chunks, refs: 1}
}

// Series is one named, typed column of chunked data.
type Series struct {
	name  string
	dtype dtype.Type
	store *chunkStore
}

// FromChunks builds a Series from decoded chunks. Every chunk must
// carry the column's dtype; the first offending chunk is reported.
func FromChunks(name string, t dtype.Type, chunks []arrow.Array) (*Series, error) {
	owned := make([]arrow.Array, 0, len(chunks))
	for _, c := range chunks {
		ct, err := dtype.FromArrow(c.DataType())
		if err != nil || ct != t {
			return nil, qerrors.Newf(qerrors.ErrorTypeSchemaMismatch,
				"chunk type %s does not match column %q (%s)", c.DataType(), name, t).
				WithDetail("column", name)
		}
		c.Retain()
		owned = append(owned, c)
	}
	return &Series{name: name, dtype: t, store: newStore(owned)}, nil
}

// Name returns the column name.
func (s *Series) Name() string { return s.name }

// DType returns the column's logical type.
func (s *Series) DType() dtype.Type { return s.dtype }

// Field returns the schema field describing this column.
func (s *Series) Field() dtype.Field {
	return dtype.Field{Name: s.name, Type: s.dtype, Nullable: true}
}

// Rename returns a handle to the same data under a new name.
func (s *Series) Rename(name string) *Series {
	renamed := s.Share()
	renamed.name = name
	return renamed
}

// Len returns the total element count across all chunks.
func (s *Series) Len() int {
	n := 0
	for _, c := range s.store.chunks {
		n += c.Len()
	}
	return n
}

// NumChunks returns the number of chunks backing the column.
func (s *Series) NumChunks() int { return len(s.store.chunks) }

// Chunks returns the backing chunks. Callers must treat them as
// immutable and must not outlive the Series without retaining.
func (s *Series) Chunks() []arrow.Array { return s.store.chunks }

// NullCount returns the number of null elements.
func (s *Series) NullCount() int {
	n := 0
	for _, c := range s.store.chunks {
		n += c.NullN()
	}
	return n
}

// Share returns a new handle on the same chunk store. While more than
// one handle exists, in-place mutation fails with ConcurrentBorrow.
func (s *Series) Share() *Series {
	atomic.AddInt32(&s.store.refs, 1)
	return &Series{name: s.name, dtype: s.dtype, store: s.store}
}

// IsExclusive reports whether this handle is the only one on the store.
func (s *Series) IsExclusive() bool {
	return atomic.LoadInt32(&s.store.refs) == 1
}

// SharesStoreWith reports whether two handles point at the same chunk
// store. Used by frames to detect self-append aliasing up front.
func (s *Series) SharesStoreWith(other *Series) bool {
	return s.store == other.store
}

// Release drops this handle. When the last handle goes, the chunks are
// released back to the allocator.
func (s *Series) Release() {
	if atomic.AddInt32(&s.store.refs, -1) == 0 {
		for _, c := range s.store.chunks {
			c.Release()
		}
		s.store.chunks = nil
	}
}

// AppendChunk appends a decoded chunk to the column.
func (s *Series) AppendChunk(chunk arrow.Array) error {
	ct, err := dtype.FromArrow(chunk.DataType())
	if err != nil || ct != s.dtype {
		return qerrors.Newf(qerrors.ErrorTypeSchemaMismatch,
			"chunk type %s does not match column %q (%s)", chunk.DataType(), s.name, s.dtype).
			WithDetail("column", s.name)
	}
	if !s.IsExclusive() {
		return s.borrowError()
	}
	chunk.Retain()
	s.store.chunks = append(s.store.chunks, chunk)
	return nil
}

// AppendSeries appends another column's chunks to this one. Chunks are
// immutable, so they are retained rather than copied.
func (s *Series) AppendSeries(other *Series) error {
	if other.dtype != s.dtype {
		return qerrors.Newf(qerrors.ErrorTypeSchemaMismatch,
			"cannot append %q (%s) to %q (%s)", other.name, other.dtype, s.name, s.dtype).
			WithDetail("column", s.name)
	}
	if !s.IsExclusive() {
		return s.borrowError()
	}
	if s.store == other.store {
		// Appending a column to itself through two handles would walk
		// the vector while growing it.
		return s.borrowError()
	}
	for _, c := range other.store.chunks {
		c.Retain()
		s.store.chunks = append(s.store.chunks, c)
	}
	return nil
}

func (s *Series) borrowError() error {
	return qerrors.Newf(qerrors.ErrorTypeConcurrentBorrow,
		"column %q store is held by %d handles", s.name, atomic.LoadInt32(&s.store.refs)).
		WithDetail("column", s.name)
}

// Rechunk merges all chunks into a single contiguous chunk, preserving
// order. Single-chunk columns share the chunk without copying. The
// result owns a fresh exclusive store either way, so rechunking never
// ties the source and result together for ownership purposes.
func (s *Series) Rechunk() (*Series, error) {
	if len(s.store.chunks) <= 1 {
		owned := make([]arrow.Array, len(s.store.chunks))
		for i, c := range s.store.chunks {
			c.Retain()
			owned[i] = c
		}
		return &Series{name: s.name, dtype: s.dtype, store: newStore(owned)}, nil
	}
	merged, err := array.Concatenate(s.store.chunks, alloc)
	if err != nil {
		return nil, qerrors.Wrap(err, qerrors.ErrorTypeInternal, "rechunk concatenate")
	}
	return &Series{name: s.name, dtype: s.dtype, store: newStore([]arrow.Array{merged})}, nil
}

// Get returns the element at global index i, or nil when null. Index
// resolution searches chunk boundaries; call Rechunk first when doing
// heavy random access.
func (s *Series) Get(i int) interface{} {
	for _, c := range s.store.chunks {
		if i < c.Len() {
			return chunkValue(c, i)
		}
		i -= c.Len()
	}
	return nil
}

// Slice returns a zero-copy view of [offset, offset+length). The view
// shares chunk buffers but owns its chunk vector exclusively.
func (s *Series) Slice(offset, length int) *Series {
	out := make([]arrow.Array, 0, len(s.store.chunks))
	remaining := length
	for _, c := range s.store.chunks {
		if remaining <= 0 {
			break
		}
		if offset >= c.Len() {
			offset -= c.Len()
			continue
		}
		take := c.Len() - offset
		if take > remaining {
			take = remaining
		}
		out = append(out, array.NewSlice(c, int64(offset), int64(offset+take)))
		remaining -= take
		offset = 0
	}
	return &Series{name: s.name, dtype: s.dtype, store: newStore(out)}
}

// Head returns the first n elements (or fewer).
func (s *Series) Head(n int) *Series {
	if n > s.Len() {
		n = s.Len()
	}
	return s.Slice(0, n)
}

// Equal reports logical equality: same name, dtype, length, and
// element values. Chunking is not observable.
func (s *Series) Equal(other *Series) bool {
	if s.name != other.name || s.dtype != other.dtype || s.Len() != other.Len() {
		return false
	}
	for i := 0; i < s.Len(); i++ {
		if s.Get(i) != other.Get(i) {
			return false
		}
	}
	return true
}

// chunkValue extracts the Go value at index i of one chunk.
func chunkValue(c arrow.Array, i int) interface{} {
	if c.IsNull(i) {
		return nil
	}
	switch arr := c.(type) {
	case *array.Int64:
		return arr.Value(i)
	case *array.Float64:
		return arr.Value(i)
	case *array.String:
		return arr.Value(i)
	case *array.Boolean:
		return arr.Value(i)
	case *array.Date32:
		return arr.Value(i)
	case *array.Timestamp:
		return arr.Value(i)
	default:
		return nil
	}
}
