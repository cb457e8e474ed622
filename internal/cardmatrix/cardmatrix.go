// Package cardmatrix provides a dense two-dimensional table whose rows are
// addressed by card and whose columns are small integers (typically owners).
//
// The key set is fixed at construction. Lookups go through an array indexed
// by the raw card index, so no hashing happens on the hot path.
package cardmatrix

import "fmt"

// Key is anything that carries a small non-negative integer index.
type Key interface {
	comparable
	Idx() int
}

// Matrix stores len(keys) * rowLen values in a flat buffer.
type Matrix[K Key, T any] struct {
	rowLen int
	keys   []K
	minIdx int
	rowOf  []int32 // rowOf[k.Idx()-minIdx] is the row of k, or -1
	values []T
}

// New creates a matrix with one row per key (in iteration order) and rowLen
// columns, every cell initialized to value. Duplicate keys panic.
func New[K Key, T any](keys []K, rowLen int, value T) *Matrix[K, T] {
	m := &Matrix[K, T]{
		rowLen: rowLen,
		keys:   append([]K(nil), keys...),
	}

	if len(keys) > 0 {
		minIdx, maxIdx := keys[0].Idx(), keys[0].Idx()
		for _, k := range keys[1:] {
			minIdx = min(minIdx, k.Idx())
			maxIdx = max(maxIdx, k.Idx())
		}
		m.minIdx = minIdx
		m.rowOf = make([]int32, maxIdx-minIdx+1)
		for i := range m.rowOf {
			m.rowOf[i] = -1
		}
		for row, k := range keys {
			slot := k.Idx() - minIdx
			if m.rowOf[slot] >= 0 {
				panic(fmt.Sprintf("cardmatrix: duplicate key %v", k))
			}
			m.rowOf[slot] = int32(row)
		}
	}

	m.values = make([]T, len(keys)*rowLen)
	for i := range m.values {
		m.values[i] = value
	}
	return m
}

// Len returns the number of rows (keys).
func (m *Matrix[K, T]) Len() int { return len(m.keys) }

// RowLen returns the number of columns.
func (m *Matrix[K, T]) RowLen() int { return m.rowLen }

// Has reports whether k is part of the key set.
func (m *Matrix[K, T]) Has(k K) bool {
	slot := k.Idx() - m.minIdx
	return slot >= 0 && slot < len(m.rowOf) && m.rowOf[slot] >= 0
}

// Elem returns the value at (k, col).
func (m *Matrix[K, T]) Elem(k K, col int) T {
	return m.values[m.elemIdx(k, col)]
}

// SetElem stores v at (k, col).
func (m *Matrix[K, T]) SetElem(k K, col int, v T) {
	m.values[m.elemIdx(k, col)] = v
}

// Ptr returns a pointer to the cell at (k, col) for in-place updates.
func (m *Matrix[K, T]) Ptr(k K, col int) *T {
	return &m.values[m.elemIdx(k, col)]
}

// Row returns the row of k. The slice aliases the matrix storage.
func (m *Matrix[K, T]) Row(k K) []T {
	start := m.row(k) * m.rowLen
	return m.values[start : start+m.rowLen : start+m.rowLen]
}

// Col returns a copy of column col, one value per key in row order.
func (m *Matrix[K, T]) Col(col int) []T {
	m.checkCol(col)
	out := make([]T, len(m.keys))
	for row := range m.keys {
		out[row] = m.values[row*m.rowLen+col]
	}
	return out
}

// ForEachRow calls f with every row in turn; f may modify the row in place.
func (m *Matrix[K, T]) ForEachRow(f func(row []T)) {
	for row := range m.keys {
		start := row * m.rowLen
		f(m.values[start : start+m.rowLen : start+m.rowLen])
	}
}

func (m *Matrix[K, T]) elemIdx(k K, col int) int {
	m.checkCol(col)
	return m.row(k)*m.rowLen + col
}

func (m *Matrix[K, T]) row(k K) int {
	slot := k.Idx() - m.minIdx
	if slot < 0 || slot >= len(m.rowOf) || m.rowOf[slot] < 0 {
		panic(fmt.Sprintf("cardmatrix: key %v not in matrix", k))
	}
	return int(m.rowOf[slot])
}

func (m *Matrix[K, T]) checkCol(col int) {
	if col < 0 || col >= m.rowLen {
		panic(fmt.Sprintf("cardmatrix: column %d out of range [0, %d)", col, m.rowLen))
	}
}
