// Package matrix assembles the sparse player-by-question interaction
// matrix consumed by the factorization engine.
package matrix

import (
	"fmt"
	"sort"
)

// CSR is a compressed sparse row matrix. Cells not covered by any input
// triple are implicitly zero.
type CSR struct {
	nRows, nCols int
	rowPtr       []int
	colIx        []int
	values       []float64
}

// NewCSR builds a CSR matrix of the given shape from coordinate-format
// triples. Duplicate (row, col) coordinates are SUMMED, not overwritten:
// a player re-answering the same question accumulates into one cell. The
// factorization engine relies on this summation behavior.
func NewCSR(nRows, nCols int, rows, cols []int, values []float64) (*CSR, error) {
	if len(rows) != len(cols) || len(rows) != len(values) {
		return nil, fmt.Errorf("%w: rows=%d cols=%d values=%d",
			ErrLengthMismatch, len(rows), len(cols), len(values))
	}

	// Accumulate per-row so collisions sum before compression.
	byRow := make([]map[int]float64, nRows)
	for k := range rows {
		i, j := rows[k], cols[k]
		if i < 0 || i >= nRows || j < 0 || j >= nCols {
			return nil, fmt.Errorf("%w: (%d,%d) outside %dx%d", ErrIndexOutOfRange, i, j, nRows, nCols)
		}
		if byRow[i] == nil {
			byRow[i] = make(map[int]float64)
		}
		byRow[i][j] += values[k]
	}

	m := &CSR{
		nRows:  nRows,
		nCols:  nCols,
		rowPtr: make([]int, nRows+1),
	}
	for i := 0; i < nRows; i++ {
		m.rowPtr[i] = len(m.colIx)
		js := make([]int, 0, len(byRow[i]))
		for j := range byRow[i] {
			js = append(js, j)
		}
		sort.Ints(js)
		for _, j := range js {
			m.colIx = append(m.colIx, j)
			m.values = append(m.values, byRow[i][j])
		}
	}
	m.rowPtr[nRows] = len(m.colIx)
	return m, nil
}

// Dims returns the matrix shape.
func (m *CSR) Dims() (rows, cols int) {
	return m.nRows, m.nCols
}

// NNZ returns the number of stored entries.
func (m *CSR) NNZ() int {
	return len(m.values)
}

// Row returns the column indices and values of row i. The returned
// slices alias internal storage and must not be modified.
func (m *CSR) Row(i int) (cols []int, values []float64) {
	if i < 0 || i >= m.nRows {
		return nil, nil
	}
	lo, hi := m.rowPtr[i], m.rowPtr[i+1]
	return m.colIx[lo:hi], m.values[lo:hi]
}

// At returns the value at (i, j), zero for any uncovered cell.
func (m *CSR) At(i, j int) float64 {
	cols, values := m.Row(i)
	for k, c := range cols {
		if c == j {
			return values[k]
		}
	}
	return 0
}

// ColumnsMap returns the requested columns as maps from row index to
// value, gathered in a single pass. The engine uses this view when
// refitting item factors for a touched set of questions.
func (m *CSR) ColumnsMap(cols []int) map[int]map[int]float64 {
	want := make(map[int]struct{}, len(cols))
	for _, j := range cols {
		want[j] = struct{}{}
	}
	out := make(map[int]map[int]float64, len(cols))
	for _, j := range cols {
		out[j] = make(map[int]float64)
	}
	for i := 0; i < m.nRows; i++ {
		rowCols, values := m.Row(i)
		for k, j := range rowCols {
			if _, ok := want[j]; ok {
				out[j][i] = values[k]
			}
		}
	}
	return out
}
