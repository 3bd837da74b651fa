// Package matrix provides a dense, row-major 2-D container used by the
// sequence matcher's dynamic-programming score grid.
package matrix

import "fmt"

// MaxSize is the hard upper bound on either dimension. The DP grid is
// O(width*height); this keeps a pathological input from allocating an
// unbounded grid.
const MaxSize = 500

// Matrix2D is a dense width*height grid of T, addressed (x, y) where x is
// the column and y is the row. Storage is a single flat slice so that a
// full row can be appended or walked without per-cell allocation.
type Matrix2D[T any] struct {
	data   []T
	width  int
	height int
}

// New creates a width*height matrix with every cell holding the zero value
// of T. Both dimensions must lie in [1, MaxSize].
func New[T any](width, height int) (*Matrix2D[T], error) {
	var zero T
	return NewWithDefault(width, height, zero)
}

// NewWithDefault is like New but fills every cell with def.
func NewWithDefault[T any](width, height int, def T) (*Matrix2D[T], error) {
	if width < 1 || width > MaxSize {
		return nil, fmt.Errorf("matrix width %d out of range [1, %d]", width, MaxSize)
	}
	if height < 1 || height > MaxSize {
		return nil, fmt.Errorf("matrix height %d out of range [1, %d]", height, MaxSize)
	}

	data := make([]T, width*height)
	for i := range data {
		data[i] = def
	}

	return &Matrix2D[T]{data: data, width: width, height: height}, nil
}

// Width returns the number of columns.
func (m *Matrix2D[T]) Width() int { return m.width }

// Height returns the number of rows.
func (m *Matrix2D[T]) Height() int { return m.height }

// At returns the value at (x, y), panicking if out of bounds, matching the
// original's indexing behaviour: callers are expected to stay within the
// bounds they themselves established when sizing the matrix.
func (m *Matrix2D[T]) At(x, y int) T {
	m.checkBounds(x, y)
	return m.data[y*m.width+x]
}

// Set writes the value at (x, y).
func (m *Matrix2D[T]) Set(x, y int, v T) {
	m.checkBounds(x, y)
	m.data[y*m.width+x] = v
}

func (m *Matrix2D[T]) checkBounds(x, y int) {
	if x < 0 || x >= m.width || y < 0 || y >= m.height {
		panic(fmt.Sprintf("matrix index (%d, %d) out of bounds for %dx%d matrix", x, y, m.width, m.height))
	}
}

// Row returns the elements of row y as a freshly allocated slice.
func (m *Matrix2D[T]) Row(y int) []T {
	if y < 0 || y >= m.height {
		panic(fmt.Sprintf("matrix row %d out of bounds for height %d", y, m.height))
	}
	row := make([]T, m.width)
	copy(row, m.data[y*m.width:(y+1)*m.width])
	return row
}

// AddRow appends a new row of exactly Width elements, growing the matrix by
// one in height.
func (m *Matrix2D[T]) AddRow(elements []T) error {
	if len(elements) != m.width {
		return fmt.Errorf("row has %d elements, want %d", len(elements), m.width)
	}
	if m.height+1 > MaxSize {
		return fmt.Errorf("matrix height would exceed max size %d", MaxSize)
	}
	m.data = append(m.data, elements...)
	m.height++
	return nil
}
