// Package script runs Lua edit scripts against a text document.
//
// Scripts see a single module, doc, whose functions address the document by
// 0-based byte offsets:
//
//	doc.len()           -> integer
//	doc.at(i)           -> integer byte value
//	doc.insert(i, s)
//	doc.erase(i, n)
//	doc.text()          -> string
//
// Only the base, table, string and math libraries are opened.
package script

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/sirupsen/logrus"
	lua "github.com/yuin/gopher-lua"

	"github.com/dshills/ropekit/internal/logging"
)

// ErrStateClosed is returned when running a script on a closed state.
var ErrStateClosed = errors.New("lua state is closed")

// Document is the text a script edits. Both *rope.Rope and *flatbuf.Buffer
// satisfy it.
type Document interface {
	Len() int
	Index(idx int) (byte, error)
	Insert(idx int, s string) error
	Erase(idx, n int) error
	String() string
}

// Stats counts the document calls made by one Run.
type Stats struct {
	Inserts int
	Erases  int
	Reads   int
}

// Edits returns the number of mutating calls.
func (s Stats) Edits() int {
	return s.Inserts + s.Erases
}

func (s Stats) String() string {
	return fmt.Sprintf("inserts=%d erases=%d reads=%d", s.Inserts, s.Erases, s.Reads)
}

// State wraps a sandboxed gopher-lua state.
//
// gopher-lua's LState is not goroutine-safe; the mutex serializes Run calls.
type State struct {
	L *lua.LState

	mu     sync.Mutex
	logger logrus.FieldLogger
	closed bool

	// Per-run bookkeeping, reset by Run.
	doc    Document
	stats  Stats
	docErr error
}

// StateOption configures a State.
type StateOption func(*State)

// WithLogger routes the script's print calls to logger at info level.
func WithLogger(logger logrus.FieldLogger) StateOption {
	return func(s *State) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewState creates a sandboxed Lua state.
func NewState(opts ...StateOption) *State {
	s := &State{logger: logging.Discard()}
	for _, opt := range opts {
		opt(s)
	}

	L := lua.NewState(lua.Options{SkipOpenLibs: true})
	lua.OpenBase(L)
	lua.OpenTable(L)
	lua.OpenString(L)
	lua.OpenMath(L)

	for _, name := range []string{"dofile", "loadfile", "load", "loadstring", "require"} {
		L.SetGlobal(name, lua.LNil)
	}
	L.SetGlobal("print", L.NewFunction(s.print))
	L.SetGlobal("doc", s.module(L))

	s.L = L
	return s
}

// Close releases the Lua state. Closing twice is a no-op.
func (s *State) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	s.L.Close()
}

// Run executes source against doc. A Lua error, a failed document call or
// a cancelled ctx ends the run; the stats gathered up to that point are
// returned with the error. Document errors keep their identity for
// errors.Is.
func (s *State) Run(ctx context.Context, source string, doc Document) (stats Stats, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return Stats{}, ErrStateClosed
	}
	if err := ctx.Err(); err != nil {
		return Stats{}, err
	}

	s.doc, s.stats, s.docErr = doc, Stats{}, nil
	defer func() { s.doc = nil }()

	s.L.SetContext(ctx)
	defer s.L.RemoveContext()

	defer func() {
		if r := recover(); r != nil {
			stats, err = s.stats, errors.Newf("lua panic: %v", r)
		}
	}()

	runErr := s.L.DoString(source)
	switch {
	case runErr == nil:
		return s.stats, nil
	case s.docErr != nil:
		return s.stats, errors.Wrap(s.docErr, "script")
	case ctx.Err() != nil:
		return s.stats, errors.Wrap(ctx.Err(), "script")
	default:
		return s.stats, errors.Wrap(runErr, "script")
	}
}

func (s *State) module(L *lua.LState) *lua.LTable {
	mod := L.NewTable()
	L.SetField(mod, "len", L.NewFunction(s.docLen))
	L.SetField(mod, "at", L.NewFunction(s.docAt))
	L.SetField(mod, "insert", L.NewFunction(s.docInsert))
	L.SetField(mod, "erase", L.NewFunction(s.docErase))
	L.SetField(mod, "text", L.NewFunction(s.docText))
	return mod
}

// document returns the bound document or raises if called outside Run.
func (s *State) document(L *lua.LState) Document {
	if s.doc == nil {
		L.RaiseError("no document bound")
	}
	return s.doc
}

// fail records err and raises it in Lua. It does not return.
func (s *State) fail(L *lua.LState, op string, err error) {
	s.docErr = err
	L.RaiseError("%s: %v", op, err)
}

// len() -> integer
func (s *State) docLen(L *lua.LState) int {
	L.Push(lua.LNumber(s.document(L).Len()))
	return 1
}

// at(i) -> integer
func (s *State) docAt(L *lua.LState) int {
	doc := s.document(L)
	idx := L.CheckInt(1)
	b, err := doc.Index(idx)
	if err != nil {
		s.fail(L, "at", err)
		return 0
	}
	s.stats.Reads++
	L.Push(lua.LNumber(b))
	return 1
}

// insert(i, s)
func (s *State) docInsert(L *lua.LState) int {
	doc := s.document(L)
	idx := L.CheckInt(1)
	text := L.CheckString(2)
	if err := doc.Insert(idx, text); err != nil {
		s.fail(L, "insert", err)
		return 0
	}
	s.stats.Inserts++
	return 0
}

// erase(i, n)
func (s *State) docErase(L *lua.LState) int {
	doc := s.document(L)
	idx := L.CheckInt(1)
	n := L.CheckInt(2)
	if err := doc.Erase(idx, n); err != nil {
		s.fail(L, "erase", err)
		return 0
	}
	s.stats.Erases++
	return 0
}

// text() -> string
func (s *State) docText(L *lua.LState) int {
	L.Push(lua.LString(s.document(L).String()))
	return 1
}

func (s *State) print(L *lua.LState) int {
	n := L.GetTop()
	parts := make([]string, 0, n)
	for i := 1; i <= n; i++ {
		parts = append(parts, L.ToStringMeta(L.Get(i)).String())
	}
	s.logger.WithField("source", "lua").Info(strings.Join(parts, "\t"))
	return 0
}
