// Package view is a minimal terminal editor over a rope.
package view

import (
	"context"
	"fmt"
	"sort"
	"unicode/utf8"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/uniseg"
	"github.com/sirupsen/logrus"

	"github.com/dshills/ropekit/internal/logging"
	"github.com/dshills/ropekit/internal/rope"
)

// window bounds how many bytes around the cursor are examined when
// stepping over a grapheme cluster.
const window = 64

// SaveFunc persists the document.
type SaveFunc func(doc *rope.Rope) error

// Editor edits a rope on a tcell screen. The cursor is a byte offset that
// always sits on a grapheme cluster boundary.
type Editor struct {
	screen tcell.Screen
	doc    *rope.Rope

	cursor   int
	top      int
	dirty    bool
	message  string
	tabWidth int
	save     SaveFunc
	logger   logrus.FieldLogger
}

// Option configures an Editor.
type Option func(*Editor)

// WithTabWidth sets the tab stop width.
func WithTabWidth(n int) Option {
	return func(e *Editor) {
		if n > 0 {
			e.tabWidth = n
		}
	}
}

// WithSaveFunc sets the Ctrl-S handler.
func WithSaveFunc(fn SaveFunc) Option {
	return func(e *Editor) {
		e.save = fn
	}
}

// WithLogger sets the editor's logger.
func WithLogger(l logrus.FieldLogger) Option {
	return func(e *Editor) {
		if l != nil {
			e.logger = l
		}
	}
}

// New creates an editor. The screen must already be initialised.
func New(screen tcell.Screen, doc *rope.Rope, opts ...Option) *Editor {
	e := &Editor{
		screen:   screen,
		doc:      doc,
		tabWidth: 4,
		logger:   logging.Discard(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Cursor returns the cursor byte offset.
func (e *Editor) Cursor() int { return e.cursor }

// Dirty reports whether the document changed since the last save.
func (e *Editor) Dirty() bool { return e.dirty }

// Doc returns the edited rope.
func (e *Editor) Doc() *rope.Rope { return e.doc }

// Run draws and handles events until the user quits, the screen is
// finalised or ctx is cancelled.
func (e *Editor) Run(ctx context.Context) error {
	events := make(chan tcell.Event)
	quit := make(chan struct{})
	defer close(quit)
	go func() {
		for {
			ev := e.screen.PollEvent()
			select {
			case events <- ev:
			case <-quit:
				return
			}
			if ev == nil {
				return
			}
		}
	}()

	for {
		e.Draw()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev := <-events:
			if ev == nil || e.HandleEvent(ev) {
				return nil
			}
		}
	}
}

// HandleEvent applies one event and reports whether the editor should
// exit.
func (e *Editor) HandleEvent(ev tcell.Event) bool {
	switch ev := ev.(type) {
	case *tcell.EventResize:
		e.screen.Sync()
	case *tcell.EventKey:
		return e.handleKey(ev)
	}
	return false
}

func (e *Editor) handleKey(ev *tcell.EventKey) bool {
	e.message = ""
	switch ev.Key() {
	case tcell.KeyCtrlQ, tcell.KeyEscape:
		return true
	case tcell.KeyCtrlS:
		e.doSave()
	case tcell.KeyRune:
		e.insert(string(ev.Rune()))
	case tcell.KeyEnter:
		e.insert("\n")
	case tcell.KeyTab:
		e.insert("\t")
	case tcell.KeyBackspace, tcell.KeyBackspace2:
		if e.cursor > 0 {
			prev := e.prevBoundary()
			e.erase(prev, e.cursor-prev)
			e.cursor = prev
		}
	case tcell.KeyDelete:
		if e.cursor < e.doc.Len() {
			e.erase(e.cursor, e.nextBoundary()-e.cursor)
		}
	case tcell.KeyLeft:
		e.cursor = e.prevBoundary()
	case tcell.KeyRight:
		e.cursor = e.nextBoundary()
	case tcell.KeyUp:
		e.moveLine(-1)
	case tcell.KeyDown:
		e.moveLine(1)
	case tcell.KeyHome:
		starts := e.lineStarts()
		e.cursor = starts[lineOf(starts, e.cursor)]
	case tcell.KeyEnd:
		starts := e.lineStarts()
		e.cursor = lineEnd(starts, lineOf(starts, e.cursor), e.doc.Len())
	}
	return false
}

func (e *Editor) insert(s string) {
	if err := e.doc.Insert(e.cursor, s); err != nil {
		e.fail("insert", err)
		return
	}
	e.cursor += len(s)
	e.dirty = true
}

func (e *Editor) erase(idx, n int) {
	if err := e.doc.Erase(idx, n); err != nil {
		e.fail("erase", err)
		return
	}
	e.dirty = true
}

func (e *Editor) doSave() {
	if e.save == nil {
		e.message = "no file to save to"
		return
	}
	if err := e.save(e.doc); err != nil {
		e.fail("save", err)
		return
	}
	e.dirty = false
	e.message = fmt.Sprintf("saved %d bytes", e.doc.Len())
	e.logger.WithField("bytes", e.doc.Len()).Info("document saved")
}

func (e *Editor) fail(op string, err error) {
	e.message = op + ": " + err.Error()
	e.logger.WithError(err).WithField("op", op).Error("edit failed")
}

// nextBoundary returns the offset just past the grapheme at the cursor.
func (e *Editor) nextBoundary() int {
	if e.cursor >= e.doc.Len() {
		return e.cursor
	}
	s, err := e.doc.Slice(e.cursor, min(e.cursor+window, e.doc.Len()))
	if err != nil || s == "" {
		return e.cursor
	}
	cluster, _, _, _ := uniseg.FirstGraphemeClusterInString(s, -1)
	return e.cursor + len(cluster)
}

// prevBoundary returns the start of the grapheme before the cursor.
func (e *Editor) prevBoundary() int {
	if e.cursor == 0 {
		return 0
	}
	start := max(0, e.cursor-window)
	s, err := e.doc.Slice(start, e.cursor)
	if err != nil {
		return e.cursor
	}
	// Segment from a rune start so a window cut mid-rune cannot shift the
	// cluster boundaries.
	for len(s) > 0 && !utf8.RuneStart(s[0]) {
		s = s[1:]
		start++
	}
	last := 0
	state := -1
	for pos := 0; s != ""; {
		var cluster string
		cluster, s, _, state = uniseg.FirstGraphemeClusterInString(s, state)
		last = pos
		pos += len(cluster)
	}
	return start + last
}

// lineStarts returns the byte offset of every line start.
func (e *Editor) lineStarts() []int {
	starts := []int{0}
	off := 0
	for leaf := range e.doc.All() {
		for i, b := range leaf {
			if b == '\n' {
				starts = append(starts, off+i+1)
			}
		}
		off += len(leaf)
	}
	return starts
}

// lineOf returns the line containing offset.
func lineOf(starts []int, offset int) int {
	return sort.Search(len(starts), func(i int) bool { return starts[i] > offset }) - 1
}

// lineEnd returns the offset of line's terminating newline, or length.
func lineEnd(starts []int, line, length int) int {
	if line+1 < len(starts) {
		return starts[line+1] - 1
	}
	return length
}

// moveLine moves the cursor delta lines, keeping the grapheme column.
func (e *Editor) moveLine(delta int) {
	starts := e.lineStarts()
	line := lineOf(starts, e.cursor)
	target := line + delta
	if target < 0 || target >= len(starts) {
		return
	}

	prefix, err := e.doc.Slice(starts[line], e.cursor)
	if err != nil {
		return
	}
	col := uniseg.GraphemeClusterCount(prefix)

	text, err := e.doc.Slice(starts[target], lineEnd(starts, target, e.doc.Len()))
	if err != nil {
		return
	}
	off := 0
	state := -1
	for ; col > 0 && text != ""; col-- {
		var cluster string
		cluster, text, _, state = uniseg.FirstGraphemeClusterInString(text, state)
		off += len(cluster)
	}
	e.cursor = starts[target] + off
}
