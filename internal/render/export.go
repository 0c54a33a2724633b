package render

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/Benny93/netscope/internal/analysis"
	"github.com/Benny93/netscope/internal/graph"
)

// ErrUnknownFormat is returned for an unsupported export format.
var ErrUnknownFormat = errors.New("unknown export format")

// Format is an export encoding.
type Format string

const (
	FormatDOT      Format = "dot"
	FormatJSON     Format = "json"
	FormatEdgeList Format = "edgelist"
)

// ExportOptions annotates exported nodes.
type ExportOptions struct {
	// Name is the graph name used by DOT.
	Name string

	// Communities, when set, groups nodes by community.
	Communities *analysis.CommunityPartition
}

// Export writes g to w in the given format.
func Export(w io.Writer, g *graph.Graph, format Format, opts ExportOptions) error {
	switch format {
	case FormatDOT:
		return WriteDOT(w, g, opts)
	case FormatJSON:
		return WriteJSON(w, g, opts)
	case FormatEdgeList:
		return WriteEdgeList(w, g)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
}

// palette colors communities in DOT output; it repeats past its length.
var palette = []string{
	"#7D56F4", "#43BF6D", "#F25D94", "#FFB000", "#00A3E0",
	"#B5651D", "#6C757D", "#E03C31", "#2E8B57", "#8A2BE2",
}

// WriteDOT writes g as a Graphviz undirected graph. Layout is left to
// Graphviz.
func WriteDOT(w io.Writer, g *graph.Graph, opts ExportOptions) error {
	name := opts.Name
	if name == "" {
		name = "netscope"
	}
	var membership map[string]int
	if opts.Communities != nil {
		membership = opts.Communities.Membership()
	}

	var b strings.Builder
	fmt.Fprintf(&b, "graph %s {\n", strconv.Quote(name))
	for _, id := range g.Nodes() {
		fmt.Fprintf(&b, "  %s", strconv.Quote(id))
		if c, ok := membership[id]; ok {
			fmt.Fprintf(&b, " [group=%d, color=%s]", c, strconv.Quote(palette[c%len(palette)]))
		}
		b.WriteString(";\n")
	}
	for _, e := range g.Edges() {
		fmt.Fprintf(&b, "  %s -- %s [weight=%s];\n",
			strconv.Quote(e.Source), strconv.Quote(e.Target),
			strconv.FormatFloat(e.Weight, 'g', -1, 64))
	}
	b.WriteString("}\n")

	_, err := io.WriteString(w, b.String())
	return err
}

type jsonNode struct {
	ID        string `json:"id"`
	Degree    int    `json:"degree"`
	Community *int   `json:"community,omitempty"`
}

type jsonGraph struct {
	Name  string       `json:"name,omitempty"`
	Nodes []jsonNode   `json:"nodes"`
	Edges []graph.Edge `json:"edges"`
}

// WriteJSON writes g as a node-link document.
func WriteJSON(w io.Writer, g *graph.Graph, opts ExportOptions) error {
	var membership map[string]int
	if opts.Communities != nil {
		membership = opts.Communities.Membership()
	}

	degrees := g.Degrees()
	doc := jsonGraph{Name: opts.Name, Edges: g.Edges()}
	for _, id := range g.Nodes() {
		n := jsonNode{ID: id, Degree: degrees[id]}
		if c, ok := membership[id]; ok {
			n.Community = &c
		}
		doc.Nodes = append(doc.Nodes, n)
	}
	if doc.Nodes == nil {
		doc.Nodes = []jsonNode{}
	}
	if doc.Edges == nil {
		doc.Edges = []graph.Edge{}
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(doc)
}

// WriteEdgeList writes g in the loader's "node1 node2 weight" format, one
// edge per line in enumeration order. Isolated nodes are not written.
func WriteEdgeList(w io.Writer, g *graph.Graph) error {
	var b strings.Builder
	for _, e := range g.Edges() {
		fmt.Fprintf(&b, "%s %s %s\n", e.Source, e.Target, strconv.FormatFloat(e.Weight, 'g', -1, 64))
	}
	_, err := io.WriteString(w, b.String())
	return err
}
