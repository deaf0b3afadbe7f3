package datastructure

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/dsnet/compress/bzip2"
	"golang.org/x/exp/constraints"
)

/*
The Compressed Row Storage (CRS) format puts the subsequent nonzeros of the matrix rows in contiguous memory locations.
Assuming we have a sparse matrix A with m rows and n columns, we create three vectors: one for the values (vals) and two
for integers (cols, rows).
The vals vector stores the values of the nonzero elements of A, as they are traversed in a row-wise fashion.
if vals[k]=a_{i,j} then cols[k]=j, and rows[i] <= k < rows[i+1].
Instead of storing O(m*n) elements, we need only O(2nnz+m+1) space.

Matrices are built once from (row, col, val) triplets and never mutated afterwards. rows and cols are 0-based.
*/

type Number interface {
	constraints.Integer | constraints.Float
}

type Triplet[T Number] struct {
	Row int
	Col int
	Val T
}

func NewTriplet[T Number](row, col int, val T) Triplet[T] {
	return Triplet[T]{Row: row, Col: col, Val: val}
}

type SparseMatrix[T Number] struct {
	m, n int
	vals []T
	cols []int
	rows []int
}

var ErrTripletOutOfRange = errors.New("triplet out of matrix range")

func NewSparseMatrix[T Number](m, n int) *SparseMatrix[T] {
	return &SparseMatrix[T]{
		m:    m,
		n:    n,
		rows: make([]int, m+1),
	}
}

// NewSparseMatrixFromTriplets sorts the triplets row-major, sums duplicates and drops entries that cancel to zero.
// the input slice is not modified.
func NewSparseMatrixFromTriplets[T Number](m, n int, triplets []Triplet[T]) (*SparseMatrix[T], error) {
	ts := make([]Triplet[T], len(triplets))
	copy(ts, triplets)
	for _, t := range ts {
		if t.Row < 0 || t.Row >= m || t.Col < 0 || t.Col >= n {
			return nil, fmt.Errorf("%w: (%d, %d) in %dx%d", ErrTripletOutOfRange, t.Row, t.Col, m, n)
		}
	}

	sort.Slice(ts, func(a, b int) bool {
		if ts[a].Row != ts[b].Row {
			return ts[a].Row < ts[b].Row
		}
		return ts[a].Col < ts[b].Col
	})

	sm := NewSparseMatrix[T](m, n)
	sm.vals = make([]T, 0, len(ts))
	sm.cols = make([]int, 0, len(ts))

	var zero T
	for k := 0; k < len(ts); {
		row, col := ts[k].Row, ts[k].Col
		sum := ts[k].Val
		k++
		for k < len(ts) && ts[k].Row == row && ts[k].Col == col {
			sum += ts[k].Val
			k++
		}
		if sum == zero {
			continue
		}
		sm.vals = append(sm.vals, sum)
		sm.cols = append(sm.cols, col)
		sm.rows[row+1]++
	}

	for i := 0; i < m; i++ {
		sm.rows[i+1] += sm.rows[i]
	}
	return sm, nil
}

func (sm *SparseMatrix[T]) Dims() (int, int) {
	return sm.m, sm.n
}

func (sm *SparseMatrix[T]) NumNonzeros() int {
	return len(sm.vals)
}

func (sm *SparseMatrix[T]) Get(row, col int) T {
	lo, hi := sm.rows[row], sm.rows[row+1]
	pos := lo + sort.SearchInts(sm.cols[lo:hi], col)
	if pos < hi && sm.cols[pos] == col {
		return sm.vals[pos]
	}
	var zero T
	return zero
}

// Row returns views (not copies) of the column indices and values of row i.
func (sm *SparseMatrix[T]) Row(i int) ([]int, []T) {
	return sm.cols[sm.rows[i]:sm.rows[i+1]], sm.vals[sm.rows[i]:sm.rows[i+1]]
}

func (sm *SparseMatrix[T]) ForEachNonzero(handle func(row, col int, val T)) {
	for i := 0; i < sm.m; i++ {
		for pos := sm.rows[i]; pos < sm.rows[i+1]; pos++ {
			handle(i, sm.cols[pos], sm.vals[pos])
		}
	}
}

func (sm *SparseMatrix[T]) MulVec(x []T) []T {
	y := make([]T, sm.m)
	for i := 0; i < sm.m; i++ {
		for pos := sm.rows[i]; pos < sm.rows[i+1]; pos++ {
			y[i] += sm.vals[pos] * x[sm.cols[pos]]
		}
	}
	return y
}

func (sm *SparseMatrix[T]) WriteToFile(filename string) error {
	f, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer f.Close()

	bz, err := bzip2.NewWriter(f, &bzip2.WriterConfig{})
	if err != nil {
		return err
	}

	w := bufio.NewWriter(bz)

	fmt.Fprintf(w, "%d %d %d\n", sm.m, sm.n, len(sm.vals))
	writeInts := func(xs []int) {
		for i, x := range xs {
			fmt.Fprintf(w, "%d", x)
			if i < len(xs)-1 {
				fmt.Fprintf(w, " ")
			}
		}
		fmt.Fprintf(w, "\n")
	}

	for i := 0; i < len(sm.vals); i++ {
		fmt.Fprintf(w, "%v", sm.vals[i])
		if i < len(sm.vals)-1 {
			fmt.Fprintf(w, " ")
		}
	}
	fmt.Fprintf(w, "\n")
	writeInts(sm.cols)
	writeInts(sm.rows)

	if err := w.Flush(); err != nil {
		return err
	}
	return bz.Close()
}

func ReadSparseMatrixFromFile[T Number](filename string) (*SparseMatrix[T], error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	bz, err := bzip2.NewReader(f, nil)
	if err != nil {
		return nil, err
	}
	defer bz.Close()

	br := bufio.NewReader(bz)

	line, err := readLine(br)
	if err != nil {
		return nil, err
	}
	tokens := fields(line)
	if len(tokens) != 3 {
		return nil, fmt.Errorf("invalid sparse matrix header %q", line)
	}
	header := make([]int, 3)
	for i, tok := range tokens {
		header[i], err = strconv.Atoi(tok)
		if err != nil {
			return nil, fmt.Errorf("invalid sparse matrix header %q: %w", line, err)
		}
	}
	m, n, nnz := header[0], header[1], header[2]

	sm := NewSparseMatrix[T](m, n)
	sm.vals = make([]T, nnz)

	line, err = readLine(br)
	if err != nil {
		return nil, err
	}
	tokens = fields(line)
	if len(tokens) != nnz {
		return nil, fmt.Errorf("expected %d values, got %d", nnz, len(tokens))
	}
	for i, tok := range tokens {
		v, err := strconv.ParseFloat(tok, 64)
		if err != nil {
			return nil, err
		}
		sm.vals[i] = T(v)
	}

	if sm.cols, err = readIntLine(br, nnz); err != nil {
		return nil, err
	}
	if sm.rows, err = readIntLine(br, m+1); err != nil {
		return nil, err
	}
	if sm.rows[m] != nnz {
		return nil, fmt.Errorf("row pointer ends at %d, expected %d", sm.rows[m], nnz)
	}

	return sm, nil
}

func readIntLine(br *bufio.Reader, expected int) ([]int, error) {
	line, err := readLine(br)
	if err != nil {
		return nil, err
	}
	tokens := fields(line)
	if len(tokens) != expected {
		return nil, fmt.Errorf("expected %d integers, got %d", expected, len(tokens))
	}
	xs := make([]int, expected)
	for i, tok := range tokens {
		xs[i], err = strconv.Atoi(tok)
		if err != nil {
			return nil, err
		}
	}
	return xs, nil
}

func readLine(br *bufio.Reader) (string, error) {
	line, err := br.ReadString('\n')
	if err != nil {
		if errors.Is(err, io.EOF) && len(line) > 0 {
		} else {
			return "", err
		}
	}
	return strings.TrimRight(line, "\r\n"), nil
}

func fields(s string) []string {
	return strings.Fields(s)
}
