package puyo

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Cell is one board cell: 0 empty, negatives are sentinels, positives are colors.
type Cell int

const (
	Empty Cell = 0
	Ojama Cell = -1
	Wall  Cell = -2
	Iron  Cell = -3

	// MaxColor is the largest color that still fits a single-digit token.
	MaxColor Cell = 6
)

// sentinels is the number of non-positive cell kinds (empty, ojama, wall, iron).
const sentinels = 4

var ErrMalformedToken = errors.New("malformed token")

// Pair is a falling two-cell piece (kumipuyo).
type Pair [2]Cell

// Field is a board in row-major order.
type Field []Cell

func (c Cell) Valid() bool {
	return c >= Iron && c <= MaxColor
}

func (c Cell) IsColor() bool {
	return c > Empty && c <= MaxColor
}

// EncodeCell maps a cell to its wire token. Out-of-range values are a caller bug.
func EncodeCell(c Cell) string {
	if !c.Valid() {
		panic(fmt.Sprintf("puyo: cell value %d out of range", c))
	}
	if c <= Empty {
		return strconv.Itoa(int(-c))
	}
	return strconv.Itoa(int(c) + sentinels - 1)
}

func DecodeCell(token string) (Cell, error) {
	n, err := strconv.Atoi(token)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrMalformedToken, token)
	}
	if n < 0 || n > int(MaxColor)+sentinels-1 {
		return 0, fmt.Errorf("%w: %q out of range", ErrMalformedToken, token)
	}
	if n < sentinels {
		return Cell(-n), nil
	}
	return Cell(n - sentinels + 1), nil
}

func EncodeField(f Field, width int) string {
	if width <= 0 || len(f)%width != 0 {
		panic(fmt.Sprintf("puyo: field of %d cells is not whole rows of %d", len(f), width))
	}
	var b strings.Builder
	b.Grow(len(f))
	for _, c := range f {
		b.WriteString(EncodeCell(c))
	}
	return b.String()
}

func DecodeField(s string, width int) (Field, error) {
	if width <= 0 || len(s)%width != 0 {
		return nil, fmt.Errorf("%w: field of %d cells is not whole rows of %d", ErrMalformedToken, len(s), width)
	}
	f := make(Field, len(s))
	for i := 0; i < len(s); i++ {
		c, err := DecodeCell(s[i : i+1])
		if err != nil {
			return nil, fmt.Errorf("field cell %d: %w", i, err)
		}
		f[i] = c
	}
	return f, nil
}

func EncodePairs(pairs []Pair) string {
	var b strings.Builder
	b.Grow(2 * len(pairs))
	for _, p := range pairs {
		b.WriteString(EncodeCell(p[0]))
		b.WriteString(EncodeCell(p[1]))
	}
	return b.String()
}

func DecodePairs(s string) ([]Pair, error) {
	if len(s)%2 != 0 {
		return nil, fmt.Errorf("%w: odd pair string %q", ErrMalformedToken, s)
	}
	pairs := make([]Pair, 0, len(s)/2)
	for i := 0; i < len(s); i += 2 {
		a, err := DecodeCell(s[i : i+1])
		if err != nil {
			return nil, fmt.Errorf("pair %d: %w", i/2, err)
		}
		b, err := DecodeCell(s[i+1 : i+2])
		if err != nil {
			return nil, fmt.Errorf("pair %d: %w", i/2, err)
		}
		pairs = append(pairs, Pair{a, b})
	}
	return pairs, nil
}
