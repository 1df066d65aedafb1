// Package render draws frames as text boards for logs and replays.
package render

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"

	"example.com/puyo-bridge/internal/frame"
	"example.com/puyo-bridge/internal/puyo"
)

const columnWidth = 40

func cell(c puyo.Cell) string {
	switch {
	case c == puyo.Empty:
		return "  "
	case c == puyo.Ojama:
		return "@ "
	case c == puyo.Wall:
		return "# "
	case c == puyo.Iron:
		return "= "
	default:
		return strconv.Itoa(int(c)) + " "
	}
}

// active draws a cell of the falling piece over whatever is underneath.
func active(piece, under puyo.Cell) string {
	var flag string
	switch {
	case under == puyo.Empty:
		flag = "."
	case under == piece:
		flag = "*"
	default:
		flag = cell(under)[:1]
	}
	return cell(piece)[:1] + flag
}

// Player draws one side: a header line, the board with the active piece, and
// the upcoming pairs to the right of every other row.
func Player(p frame.Player, width int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "event=%s, score=%d, ojama=%d\n", p.Event, p.Score, p.Ojama)

	x2, y2 := p.X, p.Y
	switch p.R {
	case 0:
		y2--
	case 1:
		x2++
	case 2:
		y2++
	default:
		x2--
	}

	var current puyo.Pair
	if len(p.Pairs) > 0 {
		current = p.Pairs[0]
	}

	rows := append(make(puyo.Field, width), p.Field...)
	for i, c := range rows {
		x, y := i%width, i/width
		if x == 0 {
			b.WriteString("# ")
		}
		switch {
		case x == p.X && y == p.Y:
			b.WriteString(active(current[0], c))
		case x == x2 && y == y2:
			b.WriteString(active(current[1], c))
		default:
			b.WriteString(cell(c))
		}
		if x == width-1 {
			b.WriteString("#")
			if y%2 == 1 {
				if next := y/2 + 1; next < len(p.Pairs) {
					b.WriteString("   " + cell(p.Pairs[next][0]) + cell(p.Pairs[next][1]))
				}
			}
			b.WriteString("\n")
		}
	}
	b.WriteString(strings.Repeat("#", 2*width+3))
	return b.String()
}

// Frame draws both players side by side under an id line.
func Frame(f frame.Frame, width int) string {
	var b strings.Builder

	end := "-"
	if f.Result != nil {
		end = strconv.Itoa(*f.Result)
	}
	fmt.Fprintf(&b, "ID=%d, END=%s, MATCHEND=%t\n", f.ID, end, f.MatchEnd)

	left := strings.Split(Player(f.Players[0], width), "\n")
	right := strings.Split(Player(f.Players[1], width), "\n")
	for i := 0; i < min(len(left), len(right)); i++ {
		b.WriteString(left[i])
		if pad := columnWidth - len(left[i]); pad > 0 {
			b.WriteString(strings.Repeat(" ", pad))
		}
		b.WriteString(right[i])
		b.WriteString("\n")
	}
	return b.String()
}

// Logger writes every recorded frame to a slog logger at debug level.
type Logger struct {
	Log   *slog.Logger
	Width int
}

func (l Logger) Record(ctx context.Context, gameID string, f frame.Frame, wire string) {
	if l.Log == nil || !l.Log.Enabled(ctx, slog.LevelDebug) {
		return
	}
	width := l.Width
	if width <= 0 {
		width = puyo.DefaultGeometry.Width
	}
	l.Log.DebugContext(ctx, "frame", "game", gameID, "id", f.ID, "wire", wire, "board", "\n"+Frame(f, width))
}

// Stream reads one wire frame per line from r and draws each to w. Blank
// lines are skipped; the first malformed line stops the stream.
func Stream(r io.Reader, w io.Writer, g puyo.Geometry) (int, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1<<20)

	n := 0
	for line := 1; sc.Scan(); line++ {
		text := strings.TrimSpace(sc.Text())
		if text == "" {
			continue
		}
		f, err := frame.Decode(text, g)
		if err != nil {
			return n, fmt.Errorf("line %d: %w", line, err)
		}
		if _, err := io.WriteString(w, Frame(f, g.Width)+"\n"); err != nil {
			return n, err
		}
		n++
	}
	return n, sc.Err()
}
