package render

import (
	"github.com/NimbleMarkets/ntcharts/canvas"
	"github.com/NimbleMarkets/ntcharts/linechart"
	"github.com/charmbracelet/lipgloss"
)

// Default chart dimensions in terminal cells.
const (
	ChartWidth  = 60
	ChartHeight = 12
)

// LineChart draws ys against their index as a braille line chart. The y axis
// spans [minY, maxY]; values outside are clipped by the canvas.
func LineChart(title string, ys []float64, minY, maxY float64, width, height int) string {
	if width <= 0 {
		width = ChartWidth
	}
	if height <= 0 {
		height = ChartHeight
	}
	maxX := float64(len(ys) - 1)
	if maxX < 1 {
		maxX = 1
	}
	if maxY <= minY {
		maxY = minY + 1
	}

	lc := linechart.New(width, height, 0, maxX, minY, maxY)
	switch len(ys) {
	case 0:
	case 1:
		lc.DrawBrailleLine(
			canvas.Float64Point{X: 0, Y: ys[0]},
			canvas.Float64Point{X: maxX, Y: ys[0]},
		)
	default:
		for i := 0; i < len(ys)-1; i++ {
			lc.DrawBrailleLine(
				canvas.Float64Point{X: float64(i), Y: ys[i]},
				canvas.Float64Point{X: float64(i + 1), Y: ys[i+1]},
			)
		}
	}
	lc.DrawXYAxisAndLabel()

	return lipgloss.JoinVertical(lipgloss.Left,
		lipgloss.NewStyle().Bold(true).Render(title),
		lc.View(),
	)
}

// maxOf returns the largest value of ys, or zero.
func maxOf(ys []float64) float64 {
	var m float64
	for _, y := range ys {
		m = max(m, y)
	}
	return m
}
