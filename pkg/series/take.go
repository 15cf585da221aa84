package series

import (
	"github.com/quasar-data/quasar/pkg/dtype"
	qerrors "github.com/quasar-data/quasar/pkg/errors"
)

// Take gathers the elements at the given global indices into a new,
// exclusively owned single-chunk column.
func (s *Series) Take(indices []int) (*Series, error) {
	values := make([]interface{}, len(indices))
	n := s.Len()
	for i, idx := range indices {
		if idx < 0 || idx >= n {
			return nil, qerrors.Newf(qerrors.ErrorTypeInternal,
				"take index %d out of range [0, %d)", idx, n)
		}
		values[i] = s.Get(idx)
	}
	return NewFromValues(s.name, s.dtype, values)
}

// Filter keeps the elements where mask is true. Null mask entries drop
// the row, matching SQL three-valued filter semantics.
func (s *Series) Filter(mask *Series) (*Series, error) {
	if mask.DType() != dtype.Bool {
		return nil, qerrors.Newf(qerrors.ErrorTypeSchemaMismatch,
			"filter mask must be bool, got %s", mask.DType())
	}
	if mask.Len() != s.Len() {
		return nil, qerrors.Newf(qerrors.ErrorTypeSchemaMismatch,
			"filter mask length %d does not match column length %d", mask.Len(), s.Len())
	}
	indices := make([]int, 0, s.Len())
	for i := 0; i < mask.Len(); i++ {
		if v, ok := mask.Get(i).(bool); ok && v {
			indices = append(indices, i)
		}
	}
	return s.Take(indices)
}

// Clone deep-copies the column into fresh, exclusively owned buffers.
// The clone is always single-chunk.
func (s *Series) Clone() (*Series, error) {
	values := make([]interface{}, s.Len())
	for i := range values {
		values[i] = s.Get(i)
	}
	return NewFromValues(s.name, s.dtype, values)
}
