package bench

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/tidwall/gjson"
	"github.com/tidwall/match"
	"github.com/tidwall/pretty"
	"github.com/tidwall/sjson"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Report is the outcome of one benchmark run.
type Report struct {
	Workload  string
	Size      int
	Edits     int
	Seed      int64
	Rebalance string
	Results   []Result
}

// Result holds one implementation's timing. Tree shape fields are only
// set for the rope.
type Result struct {
	Name       string
	Elapsed    time.Duration
	Edits      int
	FinalLen   int
	Rebalances int
	Height     int
	Leaves     int
	Balanced   bool
}

// Result returns the named result, if present.
func (r *Report) Result(name string) (Result, bool) {
	for _, res := range r.Results {
		if res.Name == name {
			return res, true
		}
	}
	return Result{}, false
}

// Filter returns the results whose names match a glob pattern such as
// "rope*". An empty pattern matches everything.
func (r *Report) Filter(pattern string) []Result {
	if pattern == "" {
		return r.Results
	}
	var out []Result
	for _, res := range r.Results {
		if match.Match(res.Name, pattern) {
			out = append(out, res)
		}
	}
	return out
}

// Speedup returns flat time divided by rope time, or 0 when either is
// missing.
func (r *Report) Speedup() float64 {
	flat, ok1 := r.Result(ImplFlat)
	rp, ok2 := r.Result(ImplRope)
	if !ok1 || !ok2 || rp.Elapsed <= 0 {
		return 0
	}
	return float64(flat.Elapsed) / float64(rp.Elapsed)
}

// JSON encodes the report. Durations are in nanoseconds.
func (r *Report) JSON() ([]byte, error) {
	doc := []byte(`{}`)
	var err error
	set := func(path string, v any) {
		if err == nil {
			doc, err = sjson.SetBytes(doc, path, v)
		}
	}

	set("workload", r.Workload)
	set("size", r.Size)
	set("edits", r.Edits)
	set("seed", r.Seed)
	set("rebalance", r.Rebalance)
	set("speedup", r.Speedup())
	set("results", []any{})
	for i, res := range r.Results {
		p := fmt.Sprintf("results.%d.", i)
		set(p+"name", res.Name)
		set(p+"elapsed_ns", res.Elapsed.Nanoseconds())
		set(p+"edits", res.Edits)
		set(p+"final_len", res.FinalLen)
		set(p+"rebalances", res.Rebalances)
		if res.Name == ImplRope {
			set(p+"height", res.Height)
			set(p+"leaves", res.Leaves)
			set(p+"balanced", res.Balanced)
		}
	}
	if err != nil {
		return nil, errors.Wrap(err, "encoding report")
	}
	return doc, nil
}

// PrettyJSON is JSON indented for terminals.
func (r *Report) PrettyJSON() ([]byte, error) {
	doc, err := r.JSON()
	if err != nil {
		return nil, err
	}
	return pretty.Pretty(doc), nil
}

// ParseReport decodes a report produced by JSON.
func ParseReport(data []byte) (*Report, error) {
	if !gjson.ValidBytes(data) {
		return nil, errors.New("report: invalid JSON")
	}
	doc := gjson.ParseBytes(data)
	if !doc.Get("workload").Exists() {
		return nil, errors.New("report: missing workload")
	}

	r := &Report{
		Workload:  doc.Get("workload").String(),
		Size:      int(doc.Get("size").Int()),
		Edits:     int(doc.Get("edits").Int()),
		Seed:      doc.Get("seed").Int(),
		Rebalance: doc.Get("rebalance").String(),
	}
	doc.Get("results").ForEach(func(_, v gjson.Result) bool {
		r.Results = append(r.Results, Result{
			Name:       v.Get("name").String(),
			Elapsed:    time.Duration(v.Get("elapsed_ns").Int()),
			Edits:      int(v.Get("edits").Int()),
			FinalLen:   int(v.Get("final_len").Int()),
			Rebalances: int(v.Get("rebalances").Int()),
			Height:     int(v.Get("height").Int()),
			Leaves:     int(v.Get("leaves").Int()),
			Balanced:   v.Get("balanced").Bool(),
		})
		return true
	})
	return r, nil
}

// WriteText writes a human-readable table.
func (r *Report) WriteText(w io.Writer) error {
	p := message.NewPrinter(language.English)
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)

	p.Fprintf(tw, "workload %s, %d bytes, %d edits, seed %d, rebalance %s\n",
		r.Workload, r.Size, r.Edits, r.Seed, r.Rebalance)
	fmt.Fprintln(tw, "impl\telapsed\tfinal len\trebalances\theight\tleaves\tbalanced")
	for _, res := range r.Results {
		shape := "-\t-\t-"
		if res.Name == ImplRope {
			shape = fmt.Sprintf("%d\t%d\t%t", res.Height, res.Leaves, res.Balanced)
		}
		p.Fprintf(tw, "%s\t%v\t%d\t%d\t%s\n",
			res.Name, res.Elapsed.Round(time.Microsecond), res.FinalLen, res.Rebalances, shape)
	}
	if s := r.Speedup(); s > 0 {
		p.Fprintf(tw, "rope speedup: %.2fx\n", s)
	}
	return tw.Flush()
}
