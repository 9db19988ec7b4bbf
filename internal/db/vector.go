package db

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"slices"
	"strconv"
	"strings"

	"github.com/goccy/go-json"
)

// Distance metric names as stored in collection definitions.
const (
	MetricCosine = "cosine"
	MetricL2     = "l2"
	MetricIP     = "ip"
)

// Distance returns the distance between a and b under metric; lower is closer.
// Cosine is 1-cos, l2 the euclidean distance and ip is 1-dot.
func Distance(metric string, a, b []float32) (float64, error) {
	if len(a) != len(b) {
		return 0, fmt.Errorf("vector length %d != %d", len(a), len(b))
	}
	var dot, na, nb, sq float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		na += x * x
		nb += y * y
		d := x - y
		sq += d * d
	}
	switch metric {
	case MetricCosine, "":
		if na == 0 || nb == 0 {
			return 1, nil
		}
		return 1 - dot/(math.Sqrt(na)*math.Sqrt(nb)), nil
	case MetricL2:
		return math.Sqrt(sq), nil
	case MetricIP:
		return 1 - dot, nil
	default:
		return 0, fmt.Errorf("unknown distance metric %q", metric)
	}
}

// RankByDistance sets each row's distance to q and sorts rows ascending.
// The sort is stable so equal distances keep their incoming order.
// Rows without an embedding are dropped.
func RankByDistance(rows []Row, metric string, q []float32) ([]Row, error) {
	out := rows[:0]
	for _, r := range rows {
		if r.Embedding == nil {
			continue
		}
		d, err := Distance(metric, q, r.Embedding)
		if err != nil {
			return nil, fmt.Errorf("row %s: %w", r.ID, err)
		}
		r.Distance = d
		out = append(out, r)
	}
	slices.SortStableFunc(out, func(a, b Row) int {
		switch {
		case a.Distance < b.Distance:
			return -1
		case a.Distance > b.Distance:
			return 1
		}
		return 0
	})
	return out, nil
}

// Window applies offset and limit (0 = unbounded) to rows.
func Window(rows []Row, limit, offset int) []Row {
	if offset >= len(rows) {
		return nil
	}
	rows = rows[offset:]
	if limit > 0 && limit < len(rows) {
		rows = rows[:limit]
	}
	return rows
}

// EncodeVector packs a vector as little-endian float32 bytes.
func EncodeVector(v []float32) []byte {
	buf := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

// DecodeVector is the inverse of EncodeVector.
func DecodeVector(b []byte) ([]float32, error) {
	if len(b)%4 != 0 {
		return nil, errors.New("vector blob length is not a multiple of 4")
	}
	v := make([]float32, len(b)/4)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:]))
	}
	return v, nil
}

// FormatVector renders v in the bracketed text form used by pgvector.
func FormatVector(v []float32) string {
	var sb strings.Builder
	sb.WriteByte('[')
	for i, f := range v {
		if i > 0 {
			sb.WriteByte(',')
		}
		sb.WriteString(strconv.FormatFloat(float64(f), 'g', -1, 32))
	}
	sb.WriteByte(']')
	return sb.String()
}

// ParseVector parses the bracketed text form. Empty input yields nil.
func ParseVector(s string) ([]float32, error) {
	if s == "" || s == "[]" {
		return nil, nil
	}
	var v []float32
	if err := json.Unmarshal([]byte(s), &v); err != nil {
		return nil, fmt.Errorf("parse vector: %w", err)
	}
	return v, nil
}
