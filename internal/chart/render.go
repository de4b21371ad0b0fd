package chart

import (
	"fmt"
	"io"
	"math"
	"strconv"

	svg "github.com/ajstarks/svgo"
	"github.com/dustin/go-humanize"
)

// Chart geometry.
const (
	MinWidth     = 700
	Height       = 480
	MarginTop    = 70
	MarginRight  = 160
	MarginBottom = 120
	MarginLeft   = 90

	axisTicks    = 6
	tickSize     = 6
	legendOffset = 22
	legendRow    = 22
	swatchSize   = 14
)

const (
	textFill     = `fill="white"`
	axisFont     = `font-size="10"`
	labelFont    = `font-size="12"`
	anchorMiddle = `text-anchor="middle"`
	anchorEnd    = `text-anchor="end"`
	strokeWhite  = `stroke="white"`
)

// Layout is the resolved outer geometry of one render.
type Layout struct {
	Width  int
	Height int
}

// NewLayout clamps the container width to MinWidth.
func NewLayout(containerWidth int) Layout {
	w := containerWidth
	if w < MinWidth {
		w = MinWidth
	}
	return Layout{Width: w, Height: Height}
}

// InnerWidth is the plot area width.
func (l Layout) InnerWidth() int { return l.Width - MarginLeft - MarginRight }

// InnerHeight is the plot area height.
func (l Layout) InnerHeight() int { return l.Height - MarginTop - MarginBottom }

// Render writes a complete SVG document for ds sized to containerWidth.
// An empty dataset writes nothing and returns ErrEmptyDataset.
func Render(w io.Writer, ds Dataset, containerWidth int) error {
	layout := NewLayout(containerWidth)
	innerW, innerH := layout.InnerWidth(), layout.InnerHeight()
	sc, ok := NewScales(ds, float64(innerW), float64(innerH))
	if !ok {
		return ErrEmptyDataset
	}

	ew := &errWriter{w: w}
	canvas := svg.New(ew)
	canvas.Startraw(
		`width="100%"`,
		fmt.Sprintf(`viewBox="0 0 %d %d"`, layout.Width, layout.Height),
	)

	canvas.Text(MarginLeft, 34, "Species Speed", `font-size="22"`, `font-weight="800"`, textFill)

	canvas.Translate(MarginLeft, MarginTop)
	drawGrid(canvas, sc, innerW)
	drawBars(canvas, ds, sc, innerH)
	drawBottomAxis(canvas, ds, sc, innerW, innerH)
	drawLeftAxis(canvas, sc, innerH)
	canvas.Text(innerW/2, innerH+88, "Animal", anchorMiddle, labelFont, textFill)
	canvas.Text(-innerH/2, -60, "Speed (km/h)", `transform="rotate(-90)"`, anchorMiddle, labelFont, textFill)
	canvas.Gend()

	drawLegend(canvas, sc, MarginLeft+innerW+legendOffset, MarginTop)

	canvas.Text(MarginLeft, layout.Height-14, fmt.Sprintf("Showing top %d animals.", len(ds)),
		`font-size="11"`, `opacity="0.7"`, textFill)
	canvas.End()

	if ew.err != nil {
		return fmt.Errorf("%w: %w", ErrRender, ew.err)
	}
	return nil
}

func drawGrid(canvas *svg.SVG, sc Scales, innerW int) {
	canvas.Group(`opacity="0.12"`)
	for _, t := range sc.Y.Ticks(axisTicks) {
		y := px(sc.Y.Scale(t))
		canvas.Line(0, y, innerW, y, strokeWhite)
	}
	canvas.Gend()
}

func drawBars(canvas *svg.SVG, ds Dataset, sc Scales, innerH int) {
	bw := px(sc.X.Bandwidth())
	for _, r := range ds {
		x, _ := sc.X.Position(r.Name)
		y := px(sc.Y.Scale(r.Speed))
		canvas.Roundrect(px(x), y, bw, innerH-y, 6, 6, fmt.Sprintf(`fill="%s"`, sc.Color.Color(r.Diet)))
	}
	for _, r := range ds {
		x, _ := sc.X.Position(r.Name)
		cx := px(x + sc.X.Bandwidth()/2)
		canvas.Text(cx, px(sc.Y.Scale(r.Speed))-6, strconv.FormatFloat(math.Round(r.Speed), 'f', 0, 64),
			`class="value"`, anchorMiddle, axisFont, textFill)
	}
}

func drawBottomAxis(canvas *svg.SVG, ds Dataset, sc Scales, innerW, innerH int) {
	canvas.Translate(0, innerH)
	canvas.Line(0, 0, innerW, 0, `class="domain"`, strokeWhite)
	seen := make(map[string]struct{}, len(ds))
	for _, r := range ds {
		if _, dup := seen[r.Name]; dup {
			continue
		}
		seen[r.Name] = struct{}{}
		x, _ := sc.X.Position(r.Name)
		canvas.Translate(px(x+sc.X.Bandwidth()/2), 0)
		canvas.Line(0, 0, 0, tickSize, strokeWhite)
		canvas.Text(0, 9, r.Name, anchorEnd, `transform="rotate(-28)"`, `dx="-0.6em"`, `dy="0.35em"`, axisFont, textFill)
		canvas.Gend()
	}
	canvas.Gend()
}

func drawLeftAxis(canvas *svg.SVG, sc Scales, innerH int) {
	canvas.Group()
	canvas.Line(0, innerH, 0, 0, `class="domain"`, strokeWhite)
	for _, t := range sc.Y.Ticks(axisTicks) {
		canvas.Translate(0, px(sc.Y.Scale(t)))
		canvas.Line(-tickSize, 0, 0, 0, strokeWhite)
		canvas.Text(-9, 0, tickLabel(t), anchorEnd, `dy="0.32em"`, axisFont, textFill)
		canvas.Gend()
	}
	canvas.Gend()
}

func drawLegend(canvas *svg.SVG, sc Scales, x, y int) {
	canvas.Translate(x, y)
	for i, d := range sc.Color.Domain() {
		canvas.Translate(0, i*legendRow)
		canvas.Roundrect(0, 0, swatchSize, swatchSize, 3, 3, fmt.Sprintf(`fill="%s"`, sc.Color.Color(d)))
		canvas.Text(20, 11, d.Label(), labelFont, textFill, `alignment-baseline="middle"`)
		canvas.Gend()
	}
	canvas.Gend()
}

// tickLabel formats axis values with thousands separators.
func tickLabel(v float64) string {
	if v == math.Trunc(v) {
		return humanize.Comma(int64(v))
	}
	return humanize.CommafWithDigits(v, 2)
}

func px(v float64) int { return int(math.Round(v)) }

// errWriter keeps the first write error; svgo does not report them.
type errWriter struct {
	w   io.Writer
	err error
}

func (e *errWriter) Write(p []byte) (int, error) {
	if e.err != nil {
		return 0, e.err
	}
	n, err := e.w.Write(p)
	if err != nil {
		e.err = err
	}
	return n, err
}
