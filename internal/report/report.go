// Package report runs a selection of analyses over one graph snapshot and
// collects their results into a single cacheable report.
package report

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Benny93/netscope/internal/analysis"
)

// Report is the outcome of one Runner invocation.
type Report struct {
	ID          uuid.UUID `json:"id"`
	Source      string    `json:"source"`
	Fingerprint string    `json:"fingerprint"`
	Revision    uint64    `json:"revision"`
	Nodes       int       `json:"nodes"`
	Edges       int       `json:"edges"`
	Weighted    bool      `json:"weighted"`
	GeneratedAt time.Time `json:"generated_at"`

	// Kinds lists the requested analyses in canonical order.
	Kinds []analysis.Kind `json:"kinds"`

	// Results holds every analysis that completed.
	Results map[analysis.Kind]analysis.Result `json:"results"`

	// Errors holds the failure message of every analysis that did not.
	Errors map[analysis.Kind]string `json:"errors,omitempty"`

	// Cached is set when the report was served from storage.
	Cached bool `json:"-"`
}

// Result returns the result for kind, if that analysis succeeded.
func (r *Report) Result(kind analysis.Kind) (analysis.Result, bool) {
	res, ok := r.Results[kind]
	return res, ok
}

// Failed reports whether any requested analysis failed.
func (r *Report) Failed() bool {
	return len(r.Errors) > 0
}

// UnmarshalJSON decodes each result into its concrete type.
func (r *Report) UnmarshalJSON(data []byte) error {
	type plain Report
	var raw struct {
		plain
		Results map[analysis.Kind]json.RawMessage `json:"results"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	*r = Report(raw.plain)
	r.Results = make(map[analysis.Kind]analysis.Result, len(raw.Results))
	for kind, msg := range raw.Results {
		res, err := analysis.DecodeResult(kind, msg)
		if err != nil {
			return err
		}
		r.Results[kind] = res
	}
	return nil
}

// Key identifies a report by graph content, the graph's enumeration order
// and every option that influences its results. Two runs with equal keys
// produce equal results.
func Key(fingerprint, order string, kinds []analysis.Kind, opts analysis.Options) string {
	sorted := append([]analysis.Kind(nil), kinds...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	names := make([]string, len(sorted))
	for i, k := range sorted {
		names[i] = k.String()
	}

	h := sha256.New()
	fmt.Fprintf(h, "order=%s\n", order)
	fmt.Fprintf(h, "kinds=%s\n", strings.Join(names, ","))
	fmt.Fprintf(h, "weighted=%t\n", opts.Weighted)
	fmt.Fprintf(h, "bins=%d\n", opts.HistogramBins)
	fmt.Fprintf(h, "samples=%d\n", opts.GrowthSamples)
	for _, id := range opts.NodeOrder {
		fmt.Fprintf(h, "node=%q\n", id)
	}
	for _, e := range opts.EdgeOrder {
		fmt.Fprintf(h, "edge=%q %q\n", e.Source, e.Target)
	}
	return fingerprint + "/" + hex.EncodeToString(h.Sum(nil))[:16]
}
