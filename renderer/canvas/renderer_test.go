package canvasrenderer

import (
	"bytes"
	"strings"
	"testing"

	"github.com/ByLCY/quire/fonts"
	"github.com/ByLCY/quire/layout"
)

func wrap(t *testing.T, r *Renderer, text string, family fonts.Family, limit float64) []layout.Line {
	t.Helper()
	lines, err := layout.Wrap(text, layout.FontSpec{Family: family, Size: 12}, limit, r)
	if err != nil {
		t.Fatalf("Wrap error: %v", err)
	}
	return lines
}

func TestLayoutWrapsWithRealMetrics(t *testing.T) {
	r := NewRenderer()
	lines := wrap(t, r, "hello world again", fonts.Helvetica, 10)
	if len(lines) < 2 {
		t.Fatalf("expected wrapping into multiple lines, got %d", len(lines))
	}
}

// TestWrapWidthLimitEveryFamily 验证每个字体族下每行宽度都不超过限制（mm）。
func TestWrapWidthLimitEveryFamily(t *testing.T) {
	r := NewRenderer()
	limit := 170.0 // A4 宽度减去两侧 20mm
	content := strings.Repeat("The quick brown fox jumps over the lazy dog. ", 40) +
		strings.Repeat("a", 300)
	for _, family := range fonts.Families {
		lines := wrap(t, r, content, family, limit)
		for i, ln := range lines {
			if ln.Width-limit > 1e-6 { // 允许极小的数值误差
				t.Fatalf("%s line %d width exceeds limit: width=%g limit=%g", family, i, ln.Width, limit)
			}
		}
	}
}

// 当第一行宽度与限制恰好相等且后面紧跟一个显式换行时，不应产生额外的空行。
func TestNoBlankLineWhenEqualWidthThenNewline(t *testing.T) {
	r := NewRenderer()
	first := "SAMPLE-A"
	measured := wrap(t, r, first, fonts.Helvetica, 1e6)
	if len(measured) != 1 {
		t.Fatalf("unexpected measured lines: %d", len(measured))
	}
	limit := measured[0].Width
	if limit <= 0 {
		t.Fatalf("invalid measured width: %g", limit)
	}

	lines := wrap(t, r, first+"\n"+"SAMPLE-B", fonts.Helvetica, limit)
	if got := len(lines); got != 2 {
		t.Fatalf("expected 2 lines without blank, got %d", got)
	}
	if lines[0].Text != first || lines[1].Text != "SAMPLE-B" {
		t.Fatalf("unexpected lines: %+v", lines)
	}
}

func TestRenderProducesPDF(t *testing.T) {
	r := NewRenderer()
	g := layout.Geometry{Width: 210, Height: 297, Margin: 20}
	font := layout.FontSpec{Family: fonts.Helvetica, Size: 12}
	lines := wrap(t, r, strings.Repeat("word ", 2000), fonts.Helvetica, g.PrintableWidth())
	res, err := layout.Paginate(lines, g, font)
	if err != nil {
		t.Fatalf("Paginate error: %v", err)
	}
	data, err := r.Render(res)
	if err != nil {
		t.Fatalf("Render error: %v", err)
	}
	if !bytes.HasPrefix(data, []byte("%PDF-")) {
		t.Fatalf("output does not start with a PDF header: %q", data[:min(len(data), 16)])
	}
}

func TestRenderRejectsEmptyResult(t *testing.T) {
	r := NewRenderer()
	if _, err := r.Render(nil); err == nil {
		t.Fatalf("expected error for nil result")
	}
	if _, err := r.Render(&layout.Result{}); err == nil {
		t.Fatalf("expected error for result without pages")
	}
}

func TestMeasurerRejectsBadSize(t *testing.T) {
	if _, err := NewRenderer().Measurer(fonts.Helvetica, 0); err == nil {
		t.Fatalf("expected error for zero font size")
	}
	if _, err := NewRenderer().Measurer("unknown", 12); err == nil {
		t.Fatalf("expected error for unknown family")
	}
}
