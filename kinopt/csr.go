package kinopt

import "fmt"

// CSR is a compressed sparse row matrix. Rows hold per-site intensity
// series; the column dimension is the time grid.
type CSR struct {
	Rows, Cols int
	Data       []float64
	Indices    []int
	Indptr     []int
}

// NewCSR builds a matrix from dense rows, dropping zeros.
func NewCSR(rows [][]float64) (*CSR, error) {
	if len(rows) == 0 {
		return nil, fmt.Errorf("csr: no rows")
	}
	cols := len(rows[0])
	m := &CSR{
		Rows:   len(rows),
		Cols:   cols,
		Indptr: make([]int, 1, len(rows)+1),
	}
	for i, row := range rows {
		if len(row) != cols {
			return nil, fmt.Errorf("csr: row %d has %d columns, want %d", i, len(row), cols)
		}
		for j, v := range row {
			if v != 0 {
				m.Data = append(m.Data, v)
				m.Indices = append(m.Indices, j)
			}
		}
		m.Indptr = append(m.Indptr, len(m.Data))
	}
	return m, nil
}

// AddRow accumulates scale times row r into dst (length Cols).
func (m *CSR) AddRow(dst []float64, r int, scale float64) {
	for idx := m.Indptr[r]; idx < m.Indptr[r+1]; idx++ {
		dst[m.Indices[idx]] += scale * m.Data[idx]
	}
}

// NNZ returns the number of stored entries.
func (m *CSR) NNZ() int { return len(m.Data) }
