package expr

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quasar-data/quasar/pkg/dtype"
	qerrors "github.com/quasar-data/quasar/pkg/errors"
	"github.com/quasar-data/quasar/pkg/frame"
	"github.com/quasar-data/quasar/pkg/series"
)

func evalFrame(t *testing.T) *frame.DataFrame {
	t.Helper()
	df, err := frame.New(
		series.NewInt64("id", []int64{1, 2, 3, 4}, nil),
		series.NewFloat64("score", []float64{0.5, 1.5, 2.5, 3.5}, nil),
		series.NewUtf8("name", []string{"a", "b", "a", "c"}, nil),
		series.NewBool("ok", []bool{true, false, true, false}, nil),
	)
	require.NoError(t, err)
	return df
}

func TestColAndLit(t *testing.T) {
	df := evalFrame(t)

	col, err := Col("id").Eval(df)
	require.NoError(t, err)
	assert.Equal(t, int64(3), col.Get(2))

	_, err = Col("missing").Eval(df)
	assert.True(t, qerrors.IsType(err, qerrors.ErrorTypeNotFound))

	lit, err := Lit(int64(7)).Eval(df)
	require.NoError(t, err)
	assert.Equal(t, df.Height(), lit.Len())
	assert.Equal(t, int64(7), lit.Get(3))
}

func TestComparisons(t *testing.T) {
	df := evalFrame(t)

	tests := []struct {
		name string
		e    Expr
		want []interface{}
	}{
		{"gt", Gt(Col("id"), Lit(int64(2))), []interface{}{false, false, true, true}},
		{"eq_str", Eq(Col("name"), Lit("a")), []interface{}{true, false, true, false}},
		{"lteq_float", LtEq(Col("score"), Lit(1.5)), []interface{}{true, true, false, false}},
		{"mixed_numeric", Lt(Col("id"), Col("score")), []interface{}{false, false, false, false}},
		{"and", And(Gt(Col("id"), Lit(int64(1))), Col("ok")), []interface{}{false, false, true, false}},
		{"or", Or(Col("ok"), Eq(Col("name"), Lit("c"))), []interface{}{true, false, true, true}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := tt.e.Eval(df)
			require.NoError(t, err)
			require.Equal(t, dtype.Bool, out.DType())
			for i, want := range tt.want {
				assert.Equal(t, want, out.Get(i), "row %d", i)
			}
		})
	}
}

func TestArithmetic(t *testing.T) {
	df := evalFrame(t)

	sum, err := Add(Col("id"), Lit(int64(10))).Eval(df)
	require.NoError(t, err)
	assert.Equal(t, dtype.Int64, sum.DType())
	assert.Equal(t, int64(11), sum.Get(0))

	scaled, err := Mul(Col("score"), Lit(2.0)).Eval(df)
	require.NoError(t, err)
	assert.Equal(t, dtype.Float64, scaled.DType())
	assert.Equal(t, 7.0, scaled.Get(3))

	// integer division always yields float, and division by zero is null
	div, err := Div(Col("id"), Lit(int64(2))).Eval(df)
	require.NoError(t, err)
	assert.Equal(t, dtype.Float64, div.DType())
	assert.Equal(t, 0.5, div.Get(0))

	byZero, err := Div(Col("id"), Lit(int64(0))).Eval(df)
	require.NoError(t, err)
	assert.Nil(t, byZero.Get(0))
}

func TestTypeErrors(t *testing.T) {
	df := evalFrame(t)

	_, err := Add(Col("name"), Lit(int64(1))).Eval(df)
	assert.True(t, qerrors.IsType(err, qerrors.ErrorTypeSchemaMismatch))

	_, err = And(Col("id"), Col("ok")).Eval(df)
	assert.True(t, qerrors.IsType(err, qerrors.ErrorTypeSchemaMismatch))

	_, err = Eq(Col("name"), Lit(int64(1))).Eval(df)
	assert.True(t, qerrors.IsType(err, qerrors.ErrorTypeSchemaMismatch))
}

func TestAliasAndColumns(t *testing.T) {
	df := evalFrame(t)

	e := Alias(Add(Col("id"), Col("score")), "total")
	out, err := e.Eval(df)
	require.NoError(t, err)
	assert.Equal(t, "total", out.Name())
	assert.Equal(t, "total", e.OutputName())

	cols := e.Columns(nil)
	assert.ElementsMatch(t, []string{"id", "score"}, cols)
	assert.Empty(t, Lit(1).Columns(nil))
}

func TestIsBool(t *testing.T) {
	assert.True(t, IsBool(Gt(Col("id"), Lit(int64(0)))))
	assert.True(t, IsBool(And(Col("a"), Col("b"))))
	assert.True(t, IsBool(Alias(Eq(Col("a"), Col("b")), "m")))
	assert.True(t, IsBool(Lit(true)))
	assert.False(t, IsBool(Col("id")))
	assert.False(t, IsBool(Add(Col("a"), Col("b"))))
}

func TestNullPropagation(t *testing.T) {
	df, err := frame.New(series.NewInt64("id", []int64{1, 2}, []bool{true, false}))
	require.NoError(t, err)

	out, err := Gt(Col("id"), Lit(int64(0))).Eval(df)
	require.NoError(t, err)
	assert.Equal(t, true, out.Get(0))
	assert.Nil(t, out.Get(1))
}
