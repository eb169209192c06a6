package layout

import (
	"math"

	"github.com/ByLCY/quire/errs"
)

// LineHeightFactor 将字号（pt）换算为行高（mm）：lineHeight = fontSize × 0.35。
// 这是引擎常量，不对用户开放配置；修改它会改变所有输出的分页结果。
const LineHeightFactor = 0.35

// 浮点比较容差，避免 margin + k·lineHeight 恰好落在下边距上时被误判为越界。
const epsilon = 1e-9

// LineHeight 返回给定字号的行高（mm）。
func LineHeight(fontSize float64) float64 { return fontSize * LineHeightFactor }

// LinesPerPage 返回每页可容纳的行数：floor((页高 − 2·页边距) / 行高)。
func LinesPerPage(g Geometry, fontSize float64) int {
	lh := LineHeight(fontSize)
	if lh <= 0 {
		return 0
	}
	n := math.Floor((g.Height-2*g.Margin)/lh + epsilon)
	if n < 0 {
		return 0
	}
	return int(n)
}

// Paginate 自上而下把行放到页面上：基线从上边距开始，
// 当放置下一行会越过下边距时，结束当前页并把该行作为新页的第一行。
// 结果至少包含一页，且不会出现空页。
func Paginate(lines []Line, g Geometry, font FontSpec) (*Result, error) {
	const op = "paginate"
	if len(lines) == 0 {
		return nil, errs.Validation(op, "没有可分页的行")
	}
	if LinesPerPage(g, font.Size) < 1 {
		return nil, errs.Validation(op, "页面高度 %gmm 在页边距 %gmm 下无法容纳一行", g.Height, g.Margin)
	}

	lh := LineHeight(font.Size)
	bottom := g.Height - g.Margin
	collector := newPageCollector(g)
	row := 0
	for _, ln := range lines {
		y := g.Margin + float64(row)*lh
		if row > 0 && y+lh > bottom+epsilon {
			collector.newPage()
			row = 0
			y = g.Margin
		}
		collector.curr().append(PlacedLine{
			Text:  ln.Visible(),
			X:     g.Margin,
			Y:     y,
			Width: ln.Width,
		})
		row++
	}

	return &Result{Pages: collector.pages(), Font: font}, nil
}

type pageAccumulator struct {
	lines []PlacedLine
}

func (p *pageAccumulator) append(ln PlacedLine) {
	p.lines = append(p.lines, ln)
}

type pageCollector struct {
	geom    Geometry
	accs    []*pageAccumulator
	current int
}

func newPageCollector(g Geometry) *pageCollector {
	pc := &pageCollector{geom: g}
	pc.newPage()
	return pc
}

func (pc *pageCollector) newPage() *pageAccumulator {
	acc := &pageAccumulator{}
	pc.accs = append(pc.accs, acc)
	pc.current = len(pc.accs) - 1
	return acc
}

func (pc *pageCollector) curr() *pageAccumulator {
	if len(pc.accs) == 0 {
		return pc.newPage()
	}
	return pc.accs[pc.current]
}

func (pc *pageCollector) pages() []Page {
	out := make([]Page, len(pc.accs))
	for i, acc := range pc.accs {
		out[i] = Page{
			Width:  pc.geom.Width,
			Height: pc.geom.Height,
			Margin: pc.geom.Margin,
			Lines:  acc.lines,
		}
	}
	return out
}
