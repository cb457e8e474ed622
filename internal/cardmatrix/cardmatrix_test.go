package cardmatrix

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

type testCard int

func (c testCard) Idx() int { return int(c) }

func TestNewInitializesCells(t *testing.T) {
	m := New([]testCard{7, 3, 12}, 4, 1.5)

	if m.Len() != 3 || m.RowLen() != 4 {
		t.Fatalf("shape = %dx%d, want 3x4", m.Len(), m.RowLen())
	}
	for _, k := range []testCard{7, 3, 12} {
		for col := 0; col < 4; col++ {
			if got := m.Elem(k, col); got != 1.5 {
				t.Errorf("Elem(%d, %d) = %v, want 1.5", k, col, got)
			}
		}
	}
}

func TestSetElemAndCol(t *testing.T) {
	m := New([]testCard{7, 3, 12}, 2, 0)
	m.SetElem(3, 1, 30)
	m.SetElem(12, 1, 120)
	*m.Ptr(7, 1) += 70

	got := m.Col(1)
	want := []int{70, 30, 120}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Col(1) mismatch (-want +got):\n%s", diff)
	}

	// Col returns a copy
	got[0] = -1
	if m.Elem(7, 1) != 70 {
		t.Error("Col aliases matrix storage")
	}
}

func TestForEachRow(t *testing.T) {
	m := New([]testCard{1, 2}, 3, 1)
	m.SetElem(2, 2, 5)

	var seen [][]int
	m.ForEachRow(func(row []int) {
		seen = append(seen, append([]int(nil), row...))
		for i := range row {
			row[i] *= 2
		}
	})

	if diff := cmp.Diff([][]int{{1, 1, 1}, {1, 1, 5}}, seen); diff != "" {
		t.Errorf("rows mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]int{2, 2, 2}, m.Row(1)); diff != "" {
		t.Errorf("Row(1) after doubling (-want +got):\n%s", diff)
	}
	if m.Elem(2, 2) != 10 {
		t.Errorf("Elem(2, 2) = %d, want 10", m.Elem(2, 2))
	}
}

func TestHas(t *testing.T) {
	m := New([]testCard{5, 9}, 1, 0)
	for _, tt := range []struct {
		k    testCard
		want bool
	}{{5, true}, {9, true}, {7, false}, {1, false}, {20, false}} {
		if got := m.Has(tt.k); got != tt.want {
			t.Errorf("Has(%d) = %v, want %v", tt.k, got, tt.want)
		}
	}
}

func TestUnknownKeyPanics(t *testing.T) {
	m := New([]testCard{5, 9}, 2, 0)

	for _, k := range []testCard{7, 1, 100} {
		func() {
			defer func() {
				if recover() == nil {
					t.Errorf("Elem(%d, 0) did not panic", k)
				}
			}()
			m.Elem(k, 0)
		}()
	}
}

func TestColumnOutOfRangePanics(t *testing.T) {
	m := New([]testCard{5}, 2, 0)
	defer func() {
		if recover() == nil {
			t.Error("Elem with column 2 did not panic")
		}
	}()
	m.Elem(5, 2)
}

func TestDuplicateKeyPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("New with duplicate keys did not panic")
		}
	}()
	New([]testCard{4, 4}, 1, 0)
}

func TestEmptyMatrix(t *testing.T) {
	m := New[testCard]([]testCard{}, 3, 0.0)
	if m.Len() != 0 || len(m.Col(0)) != 0 {
		t.Error("empty matrix should have no rows")
	}
	if m.Has(1) {
		t.Error("empty matrix should not contain keys")
	}
}
