package render

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/Benny93/netscope/internal/analysis"
	"github.com/Benny93/netscope/internal/report"
)

// Options controls terminal rendering.
type Options struct {
	// TopK bounds rankings and member listings; zero means 10.
	TopK int

	// MatrixLimit is the largest node count printed as a full distance
	// matrix; zero means 12.
	MatrixLimit int

	// Charts enables line charts for robustness and growth.
	Charts bool
}

func (o Options) topK() int {
	if o.TopK <= 0 {
		return 10
	}
	return o.TopK
}

func (o Options) matrixLimit() int {
	if o.MatrixLimit <= 0 {
		return 12
	}
	return o.MatrixLimit
}

// Report renders every section of rep in the order the analyses were
// requested, failed analyses included.
func Report(rep *report.Report, opts Options) string {
	header := []string{
		TitleStyle.Render("netscope report"),
		row("Source", rep.Source),
		row("Nodes", strconv.Itoa(rep.Nodes)),
		row("Edges", strconv.Itoa(rep.Edges)),
		row("Fingerprint", shortFingerprint(rep.Fingerprint)),
	}
	if rep.Cached {
		header = append(header, row("Cache", "hit"))
	}

	sections := []string{lipgloss.JoinVertical(lipgloss.Left, header...)}
	for _, kind := range rep.Kinds {
		if msg, failed := rep.Errors[kind]; failed {
			sections = append(sections, card(kind.String(), ErrorStyle.Render(msg)))
			continue
		}
		if res, ok := rep.Result(kind); ok {
			sections = append(sections, Result(res, opts))
		}
	}
	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

// Result renders a single analysis result as a titled card.
func Result(res analysis.Result, opts Options) string {
	var body string
	switch r := res.(type) {
	case analysis.DegreeDistribution:
		body = degreeBody(r)
	case analysis.ComponentPartition:
		body = componentBody(r, opts)
	case *analysis.DistanceTable:
		body = distanceBody(r, opts)
	case analysis.CentralityScores:
		body = centralityBody(r, opts)
	case analysis.CommunityPartition:
		body = communityBody(r, opts)
	case analysis.RobustnessCurve:
		body = robustnessBody(r, opts)
	case analysis.Topology:
		body = topologyBody(r)
	case analysis.GrowthSeries:
		body = growthBody(r, opts)
	default:
		body = fmt.Sprintf("%v", res)
	}
	return card(res.Kind().String(), body)
}

func card(title, body string) string {
	return CardStyle.Render(lipgloss.JoinVertical(lipgloss.Left,
		TitleStyle.Render(title),
		body,
	))
}

func row(label, value string) string {
	return lipgloss.JoinHorizontal(lipgloss.Top, LabelStyle.Render(label), ValueStyle.Render(value))
}

func shortFingerprint(fp string) string {
	if len(fp) > 12 {
		return fp[:12]
	}
	return fp
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', 4, 64)
}

func degreeBody(d analysis.DegreeDistribution) string {
	lines := []string{
		row("Nodes", strconv.Itoa(d.Nodes)),
		row("Edges", strconv.Itoa(d.Edges)),
	}
	if avg, err := d.Average(); err == nil {
		lines = append(lines,
			row("Average degree", formatFloat(avg)),
			row("Min / max degree", fmt.Sprintf("%d / %d", d.MinDegree, d.MaxDegree)),
		)
	}
	if len(d.Bins) > 0 {
		lines = append(lines, "", Histogram(d.Bins, 40))
	}
	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

// Histogram draws one horizontal bar per bin, scaled so the fullest bin is
// width cells long.
func Histogram(bins []analysis.HistogramBin, width int) string {
	peak := 0
	for _, b := range bins {
		peak = max(peak, b.Count)
	}

	lines := make([]string, 0, len(bins))
	for _, b := range bins {
		n := 0
		if peak > 0 {
			n = b.Count * width / peak
		}
		if b.Count > 0 && n == 0 {
			n = 1
		}
		label := fmt.Sprintf("%7.2f-%-7.2f", b.Low, b.High)
		lines = append(lines, fmt.Sprintf("%s %s %d", label, BarStyle.Render(strings.Repeat("█", n)), b.Count))
	}
	return strings.Join(lines, "\n")
}

func componentBody(p analysis.ComponentPartition, opts Options) string {
	lines := []string{
		row("Components", strconv.Itoa(p.Count())),
		row("Largest component", strconv.Itoa(p.LargestComponentSize())),
	}
	for i, c := range p.Components {
		if i == opts.topK() {
			lines = append(lines, fmt.Sprintf("... %d more", len(p.Components)-i))
			break
		}
		lines = append(lines, fmt.Sprintf("#%d (%d): %s", i+1, len(c), members(c, opts.topK())))
	}
	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

func members(ids []string, limit int) string {
	if len(ids) <= limit {
		return strings.Join(ids, ", ")
	}
	return strings.Join(ids[:limit], ", ") + fmt.Sprintf(", ... (+%d)", len(ids)-limit)
}

func distanceBody(t *analysis.DistanceTable, opts Options) string {
	st := t.Stats()
	lines := []string{
		row("Weighted", strconv.FormatBool(t.Weighted())),
		row("Reachable pairs", strconv.Itoa(st.ReachablePairs)),
		row("Unreachable pairs", strconv.Itoa(st.UnreachablePairs)),
		row("Diameter", formatFloat(st.Diameter)),
		row("Average length", formatFloat(st.AverageLength)),
	}

	nodes := t.Nodes()
	if len(nodes) > 0 && len(nodes) <= opts.matrixLimit() {
		lines = append(lines, "", DistanceMatrix(t))
	}
	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

// DistanceMatrix prints the full table with "-" for unreachable pairs.
func DistanceMatrix(t *analysis.DistanceTable) string {
	nodes := t.Nodes()
	width := 6
	for _, id := range nodes {
		width = max(width, len(id)+1)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%*s", width, "")
	for _, id := range nodes {
		fmt.Fprintf(&b, "%*s", width, id)
	}
	for _, a := range nodes {
		fmt.Fprintf(&b, "\n%*s", width, a)
		for _, c := range nodes {
			d, _ := t.Lookup(a, c)
			cell := "-"
			if d.Reachable {
				cell = strconv.FormatFloat(d.Value, 'g', 4, 64)
			}
			fmt.Fprintf(&b, "%*s", width, cell)
		}
	}
	return b.String()
}

func centralityBody(c analysis.CentralityScores, opts Options) string {
	k := opts.topK()
	cols := []string{
		ranking("Degree", c.Degree, k),
		ranking("Closeness", c.Closeness, k),
		ranking("Betweenness", c.Betweenness, k),
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, cols...)
}

func ranking(title string, m analysis.Measure, k int) string {
	lines := []string{lipgloss.NewStyle().Bold(true).Render(title)}
	if !m.Defined {
		lines = append(lines, "undefined")
	}
	for i, rn := range m.Top(k) {
		lines = append(lines, fmt.Sprintf("%2d. %-12s %s", i+1, rn.Node, formatFloat(rn.Score)))
	}
	return lipgloss.NewStyle().PaddingRight(3).Render(strings.Join(lines, "\n"))
}

func communityBody(p analysis.CommunityPartition, opts Options) string {
	lines := []string{
		row("Communities", strconv.Itoa(p.Count())),
		row("Modularity", formatFloat(p.Modularity)),
		row("Merges", strconv.Itoa(p.Merges)),
	}
	for i, c := range p.Communities {
		if i == opts.topK() {
			lines = append(lines, fmt.Sprintf("... %d more", len(p.Communities)-i))
			break
		}
		lines = append(lines, fmt.Sprintf("#%d (%d): %s", i+1, len(c), members(c, opts.topK())))
	}
	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

func robustnessBody(c analysis.RobustnessCurve, opts Options) string {
	lines := []string{
		row("Node removal index", formatFloat(c.NodeIndex())),
		row("Edge removal index", formatFloat(c.EdgeIndex())),
	}
	if opts.Charts {
		lines = append(lines,
			"",
			LineChart("Giant component after node removals", c.NodeRemoval, 0, 1, ChartWidth, ChartHeight),
			LineChart("Giant component after edge removals", c.EdgeRemoval, 0, 1, ChartWidth, ChartHeight),
		)
	}
	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

func topologyBody(t analysis.Topology) string {
	avg := "undefined"
	if t.AverageDegree != nil {
		avg = formatFloat(*t.AverageDegree)
	}
	return lipgloss.JoinVertical(lipgloss.Left,
		row("Topology", t.Label.String()),
		row("Average degree", avg),
		row("Tree", strconv.FormatBool(t.IsTree)),
	)
}

func growthBody(g analysis.GrowthSeries, opts Options) string {
	lines := []string{row("Samples", strconv.Itoa(len(g.Points)))}
	if n := len(g.Points); n > 0 {
		last := g.Points[n-1]
		lines = append(lines, row("Final size", fmt.Sprintf("%d nodes, %d edges", last.Nodes, last.Edges)))
	}
	if opts.Charts && len(g.Points) > 1 {
		nodes := make([]float64, len(g.Points))
		for i, p := range g.Points {
			nodes[i] = float64(p.Nodes)
		}
		lines = append(lines, "", LineChart("Nodes over insertions", nodes, 0, maxOf(nodes), ChartWidth, ChartHeight))
	}
	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}
