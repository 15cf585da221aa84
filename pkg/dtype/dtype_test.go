package dtype

import (
	"testing"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestArrowRoundTrip(t *testing.T) {
	for _, typ := range []Type{Int64, Float64, Utf8, Bool, Date32, Timestamp} {
		back, err := FromArrow(typ.ToArrow())
		require.NoError(t, err, typ)
		assert.Equal(t, typ, back)
	}
}

func TestFromArrowUnsupported(t *testing.T) {
	_, err := FromArrow(arrow.BinaryTypes.Binary)
	assert.Error(t, err)
}

func TestInfer(t *testing.T) {
	assert.Equal(t, Int64, Infer(int64(1)))
	assert.Equal(t, Float64, Infer(1.5))
	assert.Equal(t, Utf8, Infer("x"))
	assert.Equal(t, Bool, Infer(true))
}

func TestSchemaEqual(t *testing.T) {
	a := NewSchema(Field{Name: "id", Type: Int64}, Field{Name: "v", Type: Float64})
	b := NewSchema(Field{Name: "id", Type: Int64}, Field{Name: "v", Type: Float64, Nullable: true})
	assert.True(t, a.Equal(b), "nullability does not participate in equality")

	reordered := NewSchema(Field{Name: "v", Type: Float64}, Field{Name: "id", Type: Int64})
	assert.False(t, a.Equal(reordered), "field order matters")

	assert.Equal(t, 1, a.Index("v"))
	assert.Equal(t, -1, a.Index("absent"))
	assert.Equal(t, "id:i64, v:f64", a.String())
}
