package render

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/quasar-data/quasar/pkg/series"
	"github.com/quasar-data/quasar/pkg/testutil"
)

func TestFrame(t *testing.T) {
	df := testutil.Frame(t,
		series.NewInt64("id", []int64{1, 2, 3}, nil),
		series.NewUtf8("name", []string{"a", "bb", "ccc"}, []bool{true, false, true}),
	)

	out := Frame(df, 0)
	assert.True(t, strings.HasPrefix(out, "shape: (3, 2)\n"))
	assert.Contains(t, out, "id (i64)")
	assert.Contains(t, out, "name (str)")
	assert.Contains(t, out, "null")
	assert.Contains(t, out, "ccc")
}

func TestFrameTruncates(t *testing.T) {
	df := testutil.IntFrame(t, 1, 2, 3, 4, 5)

	out := Frame(df, 2)
	assert.Contains(t, out, "... 3 more rows")
	assert.NotContains(t, out, "\n5")
}
