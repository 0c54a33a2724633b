// Package ingestion reads edge-list files into graphs.
//
// The format is one edge per line, "node1 node2 weight", with tokens
// separated by whitespace. Lines that do not fit the format are skipped and
// reported rather than aborting the load.
package ingestion

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/Benny93/netscope/internal/graph"
	"github.com/Benny93/netscope/internal/metrics"
)

// ErrMalformedLine marks a line that was skipped during loading.
var ErrMalformedLine = errors.New("malformed line")

// MalformedLine describes one skipped input line.
type MalformedLine struct {
	Number int    `json:"line"`
	Text   string `json:"text"`
	Reason string `json:"reason"`
}

func (m MalformedLine) Error() string {
	return fmt.Sprintf("line %d: %s", m.Number, m.Reason)
}

// Unwrap lets errors.Is match ErrMalformedLine.
func (m MalformedLine) Unwrap() error {
	return ErrMalformedLine
}

// LoadResult is a loaded graph plus what the loader had to skip.
type LoadResult struct {
	Graph     *graph.Graph
	Source    string
	Lines     int
	Edges     int
	Malformed []MalformedLine
}

// Loader parses edge lists.
type Loader struct {
	logger *zap.Logger

	// MaxMalformed aborts the load once more lines than this were skipped.
	// Zero means no limit.
	MaxMalformed int
}

// NewLoader creates a loader. A nil logger disables logging.
func NewLoader(logger *zap.Logger) *Loader {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Loader{logger: logger}
}

// LoadFile reads the edge list at path.
func (l *Loader) LoadFile(ctx context.Context, path string) (*LoadResult, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening edge list: %w", err)
	}
	defer f.Close()

	res, err := l.Load(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("loading %s: %w", path, err)
	}
	res.Source = path
	return res, nil
}

// Load reads an edge list from r into a new graph.
func (l *Loader) Load(ctx context.Context, r io.Reader) (*LoadResult, error) {
	res := &LoadResult{Graph: graph.New()}

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)

	for scanner.Scan() {
		res.Lines++
		if res.Lines%4096 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}

		text := scanner.Text()
		trimmed := strings.TrimSpace(text)
		if trimmed == "" || isComment(trimmed) {
			continue
		}

		if reason := l.addLine(res.Graph, trimmed); reason != "" {
			m := MalformedLine{Number: res.Lines, Text: text, Reason: reason}
			res.Malformed = append(res.Malformed, m)
			l.logger.Debug("skipping line", zap.Int("line", m.Number), zap.String("reason", reason))
			if l.MaxMalformed > 0 && len(res.Malformed) > l.MaxMalformed {
				return nil, fmt.Errorf("too many malformed lines (%d): %w", len(res.Malformed), m)
			}
			continue
		}
		res.Edges++
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading edge list: %w", err)
	}

	if len(res.Malformed) > 0 {
		metrics.MalformedLines.Add(float64(len(res.Malformed)))
		l.logger.Warn("skipped malformed lines",
			zap.Int("count", len(res.Malformed)),
			zap.Int("lines", res.Lines),
		)
	}
	l.logger.Debug("edge list loaded",
		zap.Int("nodes", res.Graph.NodeCount()),
		zap.Int("edges", res.Graph.EdgeCount()),
	)
	return res, nil
}

// isComment reports whether a line starting with '#' is a comment. A line
// with exactly three fields is an edge even when its first ID starts with '#'.
func isComment(line string) bool {
	return strings.HasPrefix(line, "#") && len(strings.Fields(line)) != 3
}

// addLine applies one non-comment line and returns why it was rejected, or
// an empty string on success.
func (l *Loader) addLine(g *graph.Graph, line string) string {
	fields := strings.Fields(line)
	if len(fields) != 3 {
		return fmt.Sprintf("expected 3 fields, got %d", len(fields))
	}

	w, err := strconv.ParseFloat(fields[2], 64)
	if err != nil {
		return fmt.Sprintf("invalid weight %q", fields[2])
	}
	if w < 0 || math.IsNaN(w) || math.IsInf(w, 0) {
		return fmt.Sprintf("weight %q out of range", fields[2])
	}

	if err := g.AddEdge(fields[0], fields[1], w); err != nil {
		return err.Error()
	}
	return ""
}

// ParseEdgeList is a convenience wrapper that loads s with a silent loader.
func ParseEdgeList(s string) (*LoadResult, error) {
	return NewLoader(nil).Load(context.Background(), strings.NewReader(s))
}
