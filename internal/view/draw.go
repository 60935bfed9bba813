package view

import (
	"fmt"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/uniseg"
)

var (
	textStyle   = tcell.StyleDefault
	statusStyle = tcell.StyleDefault.Reverse(true)
)

// Draw renders the visible lines, the status line and the cursor.
func (e *Editor) Draw() {
	e.screen.Clear()
	width, height := e.screen.Size()
	if width <= 0 || height <= 0 {
		return
	}
	rows := height - 1

	starts := e.lineStarts()
	cursorLine := lineOf(starts, e.cursor)
	e.scrollTo(cursorLine, rows)

	cx, cy := -1, -1
	for y := 0; y < rows; y++ {
		line := e.top + y
		if line >= len(starts) {
			break
		}
		start := starts[line]
		text, err := e.doc.Slice(start, lineEnd(starts, line, e.doc.Len()))
		if err != nil {
			e.fail("draw", err)
			break
		}
		x := e.drawLine(y, width, start, text)
		if line == cursorLine {
			cx, cy = x, y
		}
	}
	if cx >= 0 && cx < width {
		e.screen.ShowCursor(cx, cy)
	} else {
		e.screen.HideCursor()
	}

	e.drawStatus(rows, width)
	e.screen.Show()
}

// drawLine draws one line at row y and returns the cursor column if the
// cursor falls on this line, else the line's end column.
func (e *Editor) drawLine(y, width, start int, text string) int {
	x, cursorX := 0, -1
	off := start
	state := -1
	for text != "" {
		if off == e.cursor {
			cursorX = x
		}
		var cluster string
		var w int
		cluster, text, w, state = uniseg.FirstGraphemeClusterInString(text, state)

		if cluster == "\t" {
			next := (x/e.tabWidth + 1) * e.tabWidth
			for ; x < next && x < width; x++ {
				e.screen.SetContent(x, y, ' ', nil, textStyle)
			}
		} else {
			runes := []rune(cluster)
			if cluster == "\r" {
				runes = []rune{'^'}
				w = 1
			}
			if x+w <= width {
				e.screen.SetContent(x, y, runes[0], runes[1:], textStyle)
			}
			x += max(w, 1)
		}
		off += len(cluster)
	}
	if cursorX < 0 {
		cursorX = x
	}
	return cursorX
}

// scrollTo adjusts top so line is visible in rows rows.
func (e *Editor) scrollTo(line, rows int) {
	if rows <= 0 {
		return
	}
	if line < e.top {
		e.top = line
	}
	if line >= e.top+rows {
		e.top = line - rows + 1
	}
}

func (e *Editor) drawStatus(y, width int) {
	status := e.Status()
	if e.message != "" {
		status += "  " + e.message
	}
	x := 0
	state := -1
	for status != "" && x < width {
		var cluster string
		var w int
		cluster, status, w, state = uniseg.FirstGraphemeClusterInString(status, state)
		runes := []rune(cluster)
		e.screen.SetContent(x, y, runes[0], runes[1:], statusStyle)
		x += max(w, 1)
	}
	for ; x < width; x++ {
		e.screen.SetContent(x, y, ' ', nil, statusStyle)
	}
}

// Status summarises the document and tree shape.
func (e *Editor) Status() string {
	dirty := ""
	if e.dirty {
		dirty = " [+]"
	}
	return fmt.Sprintf("len=%d leaves=%d height=%d balanced=%t%s",
		e.doc.Len(), e.doc.LeafCount(), e.doc.Height(), e.doc.IsBalanced(), dirty)
}
