package qio

import (
	"bufio"
	"io"
	"sort"

	gojson "github.com/goccy/go-json"

	qerrors "github.com/quasar-data/quasar/pkg/errors"
	"github.com/quasar-data/quasar/pkg/frame"
	"github.com/quasar-data/quasar/pkg/metrics"
	"github.com/quasar-data/quasar/pkg/pool"
)

// ReadJSON decodes record-oriented JSON into a frame. Both an array of
// objects and newline-delimited objects are accepted. Column order is
// alphabetical since JSON objects carry no field order.
func ReadJSON(src Source) (*frame.DataFrame, error) {
	r, err := src.Open()
	if err != nil {
		return nil, err
	}
	defer r.Close()

	br := bufio.NewReader(r)
	first, err := peekNonSpace(br)
	if err != nil {
		return nil, qerrors.Wrap(err, qerrors.ErrorTypeParse, "reading json").
			WithDetail("source", src.Label())
	}

	var objects []map[string]interface{}
	if first == '[' {
		objects, err = decodeJSONArray(br)
	} else {
		objects, err = decodeJSONLines(br)
	}
	if err != nil {
		return nil, qerrors.Wrap(err, qerrors.ErrorTypeParse, "decoding json").
			WithDetail("source", src.Label())
	}
	if len(objects) == 0 {
		return nil, qerrors.New(qerrors.ErrorTypeEmptyInput, "json source holds no records").
			WithDetail("source", src.Label())
	}

	df, err := rowsFromObjects(objects)
	if err != nil {
		return nil, err
	}
	metrics.RowsScanned.WithLabelValues("json").Add(float64(df.Height()))
	return df, nil
}

func peekNonSpace(br *bufio.Reader) (byte, error) {
	for {
		b, err := br.ReadByte()
		if err != nil {
			return 0, err
		}
		if !isSpace(b) {
			if err := br.UnreadByte(); err != nil {
				return 0, err
			}
			return b, nil
		}
	}
}

func isSpace(b byte) bool {
	return b == ' ' || b == '\t' || b == '\n' || b == '\r'
}

func decodeJSONArray(r io.Reader) ([]map[string]interface{}, error) {
	dec := gojson.NewDecoder(r)
	dec.UseNumber()
	var objects []map[string]interface{}
	if err := dec.Decode(&objects); err != nil {
		return nil, err
	}
	return objects, nil
}

func decodeJSONLines(r io.Reader) ([]map[string]interface{}, error) {
	dec := gojson.NewDecoder(r)
	dec.UseNumber()
	var objects []map[string]interface{}
	for {
		obj := pool.GetMap()
		if err := dec.Decode(&obj); err != nil {
			pool.PutMap(obj)
			if err == io.EOF {
				return objects, nil
			}
			return nil, err
		}
		objects = append(objects, obj)
	}
}

// rowsFromObjects aligns objects onto a common sorted column set and
// funnels them through the row-based constructor. Missing keys become
// nulls. Row maps and row buffers are pooled across the conversion.
func rowsFromObjects(objects []map[string]interface{}) (*frame.DataFrame, error) {
	nameSet := make(map[string]struct{})
	for _, obj := range objects {
		for k := range obj {
			nameSet[k] = struct{}{}
		}
	}
	names := make([]string, 0, len(nameSet))
	for k := range nameSet {
		names = append(names, k)
	}
	sort.Strings(names)

	rows := make([][]interface{}, len(objects))
	for i, obj := range objects {
		row := pool.GetRow()
		for _, name := range names {
			row = append(row, normalizeJSONValue(obj[name]))
		}
		// FromRows keeps the rows, so hand back a copy-free slice and
		// a fresh buffer to the pool.
		rows[i] = row
		// The object's values are copied out above; recycle the map
		// for the next decode.
		pool.PutMap(obj)
	}
	df, err := frame.FromRows(rows, names)
	for _, row := range rows {
		pool.PutRow(row)
	}
	return df, err
}

// normalizeJSONValue maps JSON scalars onto engine value types:
// integral numbers to int64, other numbers to float64.
func normalizeJSONValue(v interface{}) interface{} {
	switch n := v.(type) {
	case gojson.Number:
		if i, err := n.Int64(); err == nil {
			return i
		}
		if f, err := n.Float64(); err == nil {
			return f
		}
		return n.String()
	case nil:
		return nil
	case string, bool:
		return n
	default:
		// nested objects and arrays are not columnar values
		return stringifyJSON(n)
	}
}

func stringifyJSON(v interface{}) string {
	b, err := gojson.Marshal(v)
	if err != nil {
		return ""
	}
	return string(b)
}
