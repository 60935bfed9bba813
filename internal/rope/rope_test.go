package rope

import (
	"bytes"
	"math/rand"
	"strings"
	"testing"
	"testing/quick"

	"github.com/cockroachdb/errors"
	"github.com/sirupsen/logrus"
)

func TestNew(t *testing.T) {
	r := New()
	if r.Len() != 0 {
		t.Errorf("New rope should have length 0, got %d", r.Len())
	}
	if !r.IsEmpty() {
		t.Error("New rope should be empty")
	}
	if r.String() != "" {
		t.Errorf("New rope String() should be empty, got %q", r.String())
	}
	if r.Height() != 0 {
		t.Errorf("New rope should have height 0, got %d", r.Height())
	}
	if !r.IsBalanced() {
		t.Error("empty rope should be balanced")
	}
}

func TestFromString(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"empty", ""},
		{"single char", "a"},
		{"short string", "hello"},
		{"with newline", "hello\nworld"},
		{"unicode", "hello 世界 🌍"},
		{"long string", strings.Repeat("abcdefghij", 100)},
		{"very long string", strings.Repeat("x", 10000)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := FromString(tt.input)
			if got := r.String(); got != tt.input {
				t.Errorf("String() = %q, want %q", got, tt.input)
			}
			if r.Len() != len(tt.input) {
				t.Errorf("Len() = %d, want %d", r.Len(), len(tt.input))
			}
		})
	}
}

func TestIndex(t *testing.T) {
	s := "Hello, world"
	r := FromString("world", WithRebalancePolicy(RebalanceManual))
	mustInsert(t, r, 0, ", ")
	mustInsert(t, r, 0, "Hello")

	for i := 0; i < len(s); i++ {
		b, err := r.Index(i)
		if err != nil {
			t.Fatalf("Index(%d): %v", i, err)
		}
		if b != s[i] {
			t.Errorf("Index(%d) = %q, want %q", i, b, s[i])
		}
	}

	for _, idx := range []int{-1, len(s), len(s) + 10} {
		if _, err := r.Index(idx); !errors.Is(err, ErrIndexOutOfRange) {
			t.Errorf("Index(%d) error = %v, want ErrIndexOutOfRange", idx, err)
		}
	}
}

func TestInsert(t *testing.T) {
	tests := []struct {
		name     string
		initial  string
		offset   int
		text     string
		expected string
	}{
		{"insert at start", "world", 0, "hello ", "hello world"},
		{"insert at end", "hello", 5, " world", "hello world"},
		{"insert in middle", "helloworld", 5, " ", "hello world"},
		{"insert into empty", "", 0, "hello", "hello"},
		{"insert empty string", "hello", 3, "", "hello"},
		{"insert at unicode boundary", "世界", 3, "!", "世!界"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := FromString(tt.initial)
			if err := r.Insert(tt.offset, tt.text); err != nil {
				t.Fatalf("Insert: %v", err)
			}
			if got := r.String(); got != tt.expected {
				t.Errorf("got %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestInsertEveryOffset(t *testing.T) {
	s := "the quick brown fox"
	for _, policy := range []RebalancePolicy{RebalanceEager, RebalanceManual} {
		for i := 0; i <= len(s); i++ {
			r := FromString(s, WithRebalancePolicy(policy))
			mustInsert(t, r, i, "XY")
			want := s[:i] + "XY" + s[i:]
			if got := r.String(); got != want {
				t.Errorf("%s: Insert(%d) = %q, want %q", policy, i, got, want)
			}
			if r.Len() != len(want) {
				t.Errorf("%s: Len() = %d, want %d", policy, r.Len(), len(want))
			}
		}
	}
}

func TestErase(t *testing.T) {
	tests := []struct {
		name     string
		initial  string
		idx, n   int
		expected string
	}{
		{"erase from start", "hello world", 0, 6, "world"},
		{"erase to end", "hello world", 5, 6, "hello"},
		{"erase from middle", "hello world", 5, 1, "helloworld"},
		{"erase all", "hello", 0, 5, ""},
		{"erase nothing", "hello", 3, 0, "hello"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := FromString(tt.initial)
			if err := r.Erase(tt.idx, tt.n); err != nil {
				t.Fatalf("Erase: %v", err)
			}
			if got := r.String(); got != tt.expected {
				t.Errorf("got %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestEraseEveryRange(t *testing.T) {
	// Build a multi-leaf rope so ranges cross leaf boundaries.
	parts := []string{"ab", "cde", "f", "ghij", "kl"}
	s := strings.Join(parts, "")

	for i := 0; i < len(s); i++ {
		for n := 0; n <= len(s)-i; n++ {
			r := New(WithRebalancePolicy(RebalanceManual))
			for _, p := range parts {
				mustInsert(t, r, r.Len(), p)
			}
			if err := r.Erase(i, n); err != nil {
				t.Fatalf("Erase(%d, %d): %v", i, n, err)
			}
			want := s[:i] + s[i+n:]
			if got := r.String(); got != want {
				t.Errorf("Erase(%d, %d) = %q, want %q", i, n, got, want)
			}
		}
	}
}

func TestEraseOutOfBounds(t *testing.T) {
	tests := []struct {
		name   string
		idx, n int
		want   error
	}{
		{"idx at length", 5, 0, ErrIndexOutOfRange},
		{"idx past length", 7, 1, ErrIndexOutOfRange},
		{"negative idx", -1, 1, ErrIndexOutOfRange},
		{"range past end", 3, 3, ErrRangeOutOfBounds},
		{"negative length", 1, -1, ErrRangeOutOfBounds},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := FromString("hello")
			err := r.Erase(tt.idx, tt.n)
			if !errors.Is(err, tt.want) {
				t.Fatalf("Erase(%d, %d) error = %v, want %v", tt.idx, tt.n, err, tt.want)
			}
			if got := r.String(); got != "hello" {
				t.Errorf("rejected Erase modified rope: %q", got)
			}
		})
	}
}

func TestRejectedCallsLeaveRopeUnchanged(t *testing.T) {
	r := New(WithRebalancePolicy(RebalanceManual))
	for _, p := range []string{"one ", "two ", "three"} {
		mustInsert(t, r, r.Len(), p)
	}
	want := r.String()
	root := r.Root()
	height := r.Height()

	if err := r.Insert(r.Len()+1, "x"); !errors.Is(err, ErrIndexOutOfRange) {
		t.Errorf("Insert past end error = %v", err)
	}
	if err := r.Insert(-1, "x"); !errors.Is(err, ErrIndexOutOfRange) {
		t.Errorf("Insert before start error = %v", err)
	}
	if _, err := r.Split(r.Len() + 1); !errors.Is(err, ErrIndexOutOfRange) {
		t.Errorf("Split past end error = %v", err)
	}
	if err := r.Replace(2, 100, "x"); !errors.Is(err, ErrRangeOutOfBounds) {
		t.Errorf("Replace past end error = %v", err)
	}

	if got := r.String(); got != want {
		t.Errorf("string changed: got %q, want %q", got, want)
	}
	if r.Root() != root || r.Height() != height {
		t.Error("tree structure changed after rejected calls")
	}
}

func TestReplace(t *testing.T) {
	tests := []struct {
		name     string
		initial  string
		idx, n   int
		text     string
		expected string
	}{
		{"replace word", "hello world", 6, 5, "universe", "hello universe"},
		{"replace with shorter", "hello world", 0, 5, "hi", "hi world"},
		{"replace all", "hello", 0, 5, "world", "world"},
		{"pure insert", "hello", 5, 0, "!", "hello!"},
		{"pure delete", "hello", 1, 3, "", "ho"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := FromString(tt.initial)
			if err := r.Replace(tt.idx, tt.n, tt.text); err != nil {
				t.Fatalf("Replace: %v", err)
			}
			if got := r.String(); got != tt.expected {
				t.Errorf("got %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestConcat(t *testing.T) {
	tests := []struct {
		a, b string
	}{
		{"hello ", "world"},
		{"", "world"},
		{"hello", ""},
		{"", ""},
	}

	for _, tt := range tests {
		a := FromString(tt.a)
		b := FromString(tt.b)
		if got := a.Concat(b).String(); got != tt.a+tt.b {
			t.Errorf("Concat(%q, %q) = %q", tt.a, tt.b, got)
		}
		if !b.IsEmpty() {
			t.Errorf("Concat did not consume other: %q", b.String())
		}
	}
}

func TestConcatBatchedRebalance(t *testing.T) {
	r := New(WithRebalancePolicy(RebalanceManual))
	var want strings.Builder
	for i := 0; i < 32; i++ {
		s := strings.Repeat(string(rune('a'+i%26)), i+1)
		r.Concat(FromString(s))
		want.WriteString(s)
	}
	if r.IsBalanced() {
		t.Fatal("left-leaning concat chain should be unbalanced")
	}
	r.Rebalance()
	if !r.IsBalanced() {
		t.Error("Rebalance did not restore balance")
	}
	if got := r.String(); got != want.String() {
		t.Errorf("got %q, want %q", got, want.String())
	}
}

func TestConcatSelf(t *testing.T) {
	r := FromString("abc")
	if err := r.ConcatChecked(r); !errors.Is(err, ErrSelfConcat) {
		t.Fatalf("ConcatChecked(self) error = %v", err)
	}
	if r.String() != "abc" {
		t.Errorf("self concat modified rope: %q", r.String())
	}

	defer func() {
		if recover() == nil {
			t.Error("Concat(self) should panic")
		}
	}()
	r.Concat(r)
}

func TestSplit(t *testing.T) {
	s := "Hello brave new world"
	for _, policy := range []RebalancePolicy{RebalanceEager, RebalanceManual} {
		for i := 0; i <= len(s); i++ {
			r := New(WithRebalancePolicy(policy))
			for _, w := range strings.SplitAfter(s, " ") {
				mustInsert(t, r, r.Len(), w)
			}
			tail, err := r.Split(i)
			if err != nil {
				t.Fatalf("Split(%d): %v", i, err)
			}
			if got := r.String(); got != s[:i] {
				t.Errorf("%s: Split(%d) head = %q, want %q", policy, i, got, s[:i])
			}
			if got := tail.String(); got != s[i:] {
				t.Errorf("%s: Split(%d) tail = %q, want %q", policy, i, got, s[i:])
			}
			if r.Len()+tail.Len() != len(s) {
				t.Errorf("%s: lengths %d + %d != %d", policy, r.Len(), tail.Len(), len(s))
			}
		}
	}
}

func TestSplitDoesNotCopy(t *testing.T) {
	r := FromString("hello world")
	buf := r.Root().Bytes()

	tail, err := r.Split(5)
	if err != nil {
		t.Fatal(err)
	}
	if &r.Root().Bytes()[0] != &buf[0] {
		t.Error("head leaf no longer views the original buffer")
	}
	if &tail.Root().Bytes()[0] != &buf[5] {
		t.Error("tail leaf does not view the original buffer")
	}
	if tail.Arena() != r.Arena() {
		t.Error("split rope should share the arena")
	}
	if got := r.Arena().Refs(); got != 2 {
		t.Errorf("arena refs = %d, want 2", got)
	}
}

func TestHelloWorldScenario(t *testing.T) {
	r := FromString("Hello world")

	mustInsert(t, r, 5, ",")
	if got := r.String(); got != "Hello, world" {
		t.Fatalf("after insert got %q", got)
	}

	if err := r.Erase(5, 1); err != nil {
		t.Fatal(err)
	}
	if got := r.String(); got != "Hello world" {
		t.Fatalf("after erase got %q", got)
	}

	tail, err := r.Split(6)
	if err != nil {
		t.Fatal(err)
	}
	if r.String() != "Hello " || tail.String() != "world" {
		t.Errorf("split got %q / %q", r.String(), tail.String())
	}
}

func TestEmptyRopeInsertScenario(t *testing.T) {
	r := New()
	mustInsert(t, r, 0, "abc")
	if r.Len() != 3 {
		t.Errorf("Len() = %d, want 3", r.Len())
	}
	b, err := r.Index(1)
	if err != nil || b != 'b' {
		t.Errorf("Index(1) = %q, %v; want 'b'", b, err)
	}
}

func TestZeroValueRope(t *testing.T) {
	var r Rope
	mustInsert(t, &r, 0, "abc")
	mustInsert(t, &r, 3, "def")
	if got := r.String(); got != "abcdef" {
		t.Errorf("got %q", got)
	}
	tail, err := r.Split(2)
	if err != nil {
		t.Fatal(err)
	}
	if r.String() != "ab" || tail.String() != "cdef" {
		t.Errorf("split got %q / %q", r.String(), tail.String())
	}
}

func TestRebalanceRestoresBalance(t *testing.T) {
	r := New(WithRebalancePolicy(RebalanceManual))
	for i := 0; i < 64; i++ {
		mustInsert(t, r, 0, "x")
	}
	if r.IsBalanced() {
		t.Fatal("64 prepends without rebalance should be unbalanced")
	}
	if r.Height() != 64 {
		t.Errorf("Height() = %d, want 64", r.Height())
	}

	r.Rebalance()
	if !r.IsBalanced() {
		t.Error("Rebalance did not restore balance")
	}
	if r.Height() != 7 {
		t.Errorf("Height() after rebalance = %d, want 7", r.Height())
	}
	if r.LeafCount() != 64 {
		t.Errorf("LeafCount() = %d, want 64", r.LeafCount())
	}
	if r.String() != strings.Repeat("x", 64) {
		t.Errorf("content changed: %q", r.String())
	}
}

func TestRebalanceIdempotent(t *testing.T) {
	r := New(WithRebalancePolicy(RebalanceManual))
	for i := 0; i < 20; i++ {
		mustInsert(t, r, r.Len()/2, "ab")
	}

	r.Rebalance()
	once := r.String()
	root := r.Root()
	balanced := r.IsBalanced()

	r.Rebalance()
	if r.String() != once {
		t.Errorf("second Rebalance changed content")
	}
	if r.IsBalanced() != balanced {
		t.Errorf("second Rebalance changed balance state")
	}
	if r.Root() != root {
		t.Error("second Rebalance rebuilt a balanced tree")
	}
}

func TestRebalanceReusesLeaves(t *testing.T) {
	r := New(WithRebalancePolicy(RebalanceManual))
	for _, s := range []string{"a", "b", "c", "d", "e"} {
		mustInsert(t, r, r.Len(), s)
	}
	before := collectLeaves(r.Root())
	r.Rebalance()
	after := collectLeaves(r.Root())

	if len(before) != len(after) {
		t.Fatalf("leaf count changed: %d -> %d", len(before), len(after))
	}
	for i := range before {
		if before[i] != after[i] {
			t.Errorf("leaf %d was not reused", i)
		}
	}
}

func TestEagerPolicyKeepsBalance(t *testing.T) {
	r := New()
	rng := rand.New(rand.NewSource(7))
	for i := 0; i < 200; i++ {
		mustInsert(t, r, rng.Intn(r.Len()+1), "xy")
		if !r.IsBalanced() {
			t.Fatalf("unbalanced after insert %d", i)
		}
	}
	for r.Len() > 10 {
		if err := r.Erase(rng.Intn(r.Len()-3), 3); err != nil {
			t.Fatal(err)
		}
		if !r.IsBalanced() {
			t.Fatal("unbalanced after erase")
		}
	}
}

func TestSlice(t *testing.T) {
	r := New(WithRebalancePolicy(RebalanceManual))
	for _, p := range []string{"abc", "def", "ghi"} {
		mustInsert(t, r, r.Len(), p)
	}
	s := r.String()

	for start := 0; start <= len(s); start++ {
		for end := start; end <= len(s); end++ {
			got, err := r.Slice(start, end)
			if err != nil {
				t.Fatalf("Slice(%d, %d): %v", start, end, err)
			}
			if got != s[start:end] {
				t.Errorf("Slice(%d, %d) = %q, want %q", start, end, got, s[start:end])
			}
		}
	}

	if _, err := r.Slice(4, 3); !errors.Is(err, ErrRangeOutOfBounds) {
		t.Errorf("Slice(4, 3) error = %v", err)
	}
	if _, err := r.Slice(0, 100); !errors.Is(err, ErrRangeOutOfBounds) {
		t.Errorf("Slice(0, 100) error = %v", err)
	}
}

func TestFromReader(t *testing.T) {
	text := strings.Repeat("0123456789", readBlockSize/10+50)
	r, err := FromReader(strings.NewReader(text))
	if err != nil {
		t.Fatal(err)
	}
	if r.String() != text {
		t.Error("content mismatch")
	}
	if r.LeafCount() != 2 {
		t.Errorf("LeafCount() = %d, want 2", r.LeafCount())
	}

	empty, err := FromReader(strings.NewReader(""))
	if err != nil {
		t.Fatal(err)
	}
	if !empty.IsEmpty() {
		t.Error("rope from empty reader should be empty")
	}
}

func TestWriteTo(t *testing.T) {
	r := FromString("hello", WithRebalancePolicy(RebalanceManual))
	mustInsert(t, r, 5, " world")

	var buf bytes.Buffer
	n, err := r.WriteTo(&buf)
	if err != nil {
		t.Fatal(err)
	}
	if n != 11 || buf.String() != "hello world" {
		t.Errorf("WriteTo wrote %d bytes %q", n, buf.String())
	}
	if !bytes.Equal(r.Bytes(), buf.Bytes()) {
		t.Error("Bytes() differs from WriteTo output")
	}
}

func TestRelease(t *testing.T) {
	r := FromString("hello")
	arena := r.Arena()
	r.Release()
	if !r.IsEmpty() {
		t.Error("Release should empty the rope")
	}
	if arena.Refs() != 0 || arena.Buffers() != 0 {
		t.Errorf("arena not released: refs=%d buffers=%d", arena.Refs(), arena.Buffers())
	}
	mustInsert(t, r, 0, "again")
	if r.String() != "again" {
		t.Errorf("rope not reusable after Release: %q", r.String())
	}
}

// TestModelQuick applies random edit sequences to a rope and to a plain
// string and checks they agree after every step.
func TestModelQuick(t *testing.T) {
	check := func(seed int64, manual bool) bool {
		rng := rand.New(rand.NewSource(seed))
		policy := RebalanceEager
		if manual {
			policy = RebalanceManual
		}
		r := New(WithRebalancePolicy(policy), WithSlabSize(64))
		model := ""

		for step := 0; step < 60; step++ {
			switch op := rng.Intn(4); {
			case op <= 1 || len(model) == 0:
				idx := rng.Intn(len(model) + 1)
				text := randomText(rng, 1+rng.Intn(8))
				if r.Insert(idx, text) != nil {
					return false
				}
				model = model[:idx] + text + model[idx:]
			case op == 2:
				idx := rng.Intn(len(model))
				n := rng.Intn(len(model) - idx + 1)
				if r.Erase(idx, n) != nil {
					return false
				}
				model = model[:idx] + model[idx+n:]
			default:
				idx := rng.Intn(len(model) + 1)
				tail, err := r.Split(idx)
				if err != nil || r.String() != model[:idx] || tail.String() != model[idx:] {
					return false
				}
				r.Concat(tail)
			}

			if r.String() != model || r.Len() != len(model) {
				return false
			}
			if len(model) > 0 {
				i := rng.Intn(len(model))
				if b, err := r.Index(i); err != nil || b != model[i] {
					return false
				}
			}
		}
		r.Rebalance()
		return r.IsBalanced() && r.String() == model
	}

	if err := quick.Check(check, &quick.Config{MaxCount: 200}); err != nil {
		t.Error(err)
	}
}

func TestRoundTripQuick(t *testing.T) {
	roundTrip := func(s string) bool {
		return FromString(s).String() == s
	}
	if err := quick.Check(roundTrip, nil); err != nil {
		t.Error(err)
	}

	concat := func(a, b string) bool {
		return FromString(a).Concat(FromString(b)).String() == a+b
	}
	if err := quick.Check(concat, nil); err != nil {
		t.Error(err)
	}
}

func mustInsert(t *testing.T, r *Rope, idx int, text string) {
	t.Helper()
	if err := r.Insert(idx, text); err != nil {
		t.Fatalf("Insert(%d, %q): %v", idx, text, err)
	}
}

func randomText(rng *rand.Rand, n int) string {
	b := make([]byte, n)
	for i := range b {
		b[i] = byte('a' + rng.Intn(26))
	}
	return string(b)
}

func prependedRope(opts ...Option) *Rope {
	r := New(append(opts, WithRebalancePolicy(RebalanceManual))...)
	for range 32 {
		_ = r.Insert(0, "x")
	}
	return r
}

func TestRebalanceLogging(t *testing.T) {
	tests := []struct {
		name  string
		level logrus.Level
		entry bool
		want  bool
	}{
		{"debug logger", logrus.DebugLevel, false, true},
		{"info logger", logrus.InfoLevel, false, false},
		{"debug entry", logrus.DebugLevel, true, true},
		{"info entry", logrus.InfoLevel, true, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			logger := logrus.New()
			logger.SetOutput(&buf)
			logger.SetLevel(tt.level)

			var fl logrus.FieldLogger = logger
			if tt.entry {
				fl = logger.WithField("impl", "rope")
			}
			if got := debugEnabled(fl); got != tt.want {
				t.Errorf("debugEnabled() = %v, want %v", got, tt.want)
			}

			r := prependedRope(WithLogger(fl))
			r.Rebalance()
			if got := strings.Contains(buf.String(), "rope rebuilt"); got != tt.want {
				t.Errorf("logged rebuild = %v, want %v (output %q)", got, tt.want, buf.String())
			}
		})
	}

	if debugEnabled(nil) {
		t.Error("debugEnabled(nil) = true")
	}
	if debugEnabled(discardLogger) {
		t.Error("default logger should not trace rebuilds")
	}
}
