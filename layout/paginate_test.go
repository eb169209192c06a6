package layout

import (
	"bytes"
	"encoding/json"
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/ByLCY/quire/errs"
	"github.com/ByLCY/quire/fonts"
)

func a4(margin float64) Geometry {
	w, h, _ := PageA4.Dimensions()
	return Geometry{Width: w, Height: h, Margin: margin}
}

func makeLines(n int) []Line {
	lines := make([]Line, n)
	for i := range lines {
		lines[i] = Line{Text: "line", Width: 4}
	}
	return lines
}

func TestLineHeightConstant(t *testing.T) {
	if got := LineHeight(12); math.Abs(got-4.2) > 1e-12 {
		t.Fatalf("LineHeight(12) = %g, want 4.2", got)
	}
	// floor((297 − 40) / 4.2) = 61
	if got := LinesPerPage(a4(20), 12); got != 61 {
		t.Fatalf("LinesPerPage(A4, 12pt) = %d, want 61", got)
	}
}

func TestPaginateSingleShortLine(t *testing.T) {
	res, err := Paginate([]Line{{Text: "hi", Width: 2}}, a4(20), body)
	if err != nil {
		t.Fatalf("Paginate error: %v", err)
	}
	if len(res.Pages) != 1 || len(res.Pages[0].Lines) != 1 {
		t.Fatalf("expected exactly one page with one line, got %+v", res.Pages)
	}
	if y := res.Pages[0].Lines[0].Y; y != 20 {
		t.Fatalf("first baseline must sit on the top margin, got %g", y)
	}
}

// TestPaginateLinePlacement 断言：每行基线 = margin + k·lineHeight，且 y + lineHeight 不越过下边距。
func TestPaginateLinePlacement(t *testing.T) {
	g := a4(20)
	res, err := Paginate(makeLines(200), g, body)
	if err != nil {
		t.Fatalf("Paginate error: %v", err)
	}
	lh := LineHeight(body.Size)
	total := 0
	for pi, p := range res.Pages {
		if len(p.Lines) == 0 {
			t.Fatalf("page %d is empty", pi)
		}
		for k, ln := range p.Lines {
			want := g.Margin + float64(k)*lh
			if math.Abs(ln.Y-want) > 1e-9 {
				t.Fatalf("page %d line %d: y=%g want %g", pi, k, ln.Y, want)
			}
			if ln.Y+lh > g.Height-g.Margin+1e-9 {
				t.Fatalf("page %d line %d crosses the bottom margin", pi, k)
			}
		}
		total += len(p.Lines)
	}
	if total != 200 {
		t.Fatalf("lines lost during pagination: %d", total)
	}
	if got, want := len(res.Pages), int(math.Ceil(200.0/61)); got != want {
		t.Fatalf("page count = %d, want %d", got, want)
	}
}

// 5000 字符、12pt、A4、20mm 页边距：页数 = ceil(总行数 / 每页行数)。
func TestPaginateFiveThousandCharacters(t *testing.T) {
	var b strings.Builder
	words := []string{"alpha", "bravo", "charlie", "delta", "echo", "foxtrot", "golf"}
	for i := 0; b.Len() < 5000; i++ {
		if b.Len() > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(words[i%len(words)])
	}
	text := b.String()[:5000]

	opts := DefaultTextOptions()
	g, err := opts.Validate()
	if err != nil {
		t.Fatalf("Validate error: %v", err)
	}
	font := FontSpec{Family: opts.FontFamily, Size: opts.FontSize}
	lines, err := Wrap(text, font, g.PrintableWidth(), stubTypesetter{advance: 2.1})
	if err != nil {
		t.Fatalf("Wrap error: %v", err)
	}
	res, err := Paginate(lines, g, font)
	if err != nil {
		t.Fatalf("Paginate error: %v", err)
	}
	linesPerPage := int(math.Floor((297 - 2*20) / (12 * 0.35)))
	want := int(math.Ceil(float64(len(lines)) / float64(linesPerPage)))
	if len(res.Pages) != want {
		t.Fatalf("page count = %d, want ceil(%d/%d) = %d", len(res.Pages), len(lines), linesPerPage, want)
	}
	if want < 2 {
		t.Fatalf("scenario should span several pages, got %d", want)
	}
}

func TestPaginateRejectsEmptyInput(t *testing.T) {
	if _, err := Paginate(nil, a4(20), body); !errors.Is(err, errs.ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
}

func TestPaginateRejectsNoRoom(t *testing.T) {
	g := Geometry{Width: 100, Height: 44, Margin: 20}
	if _, err := Paginate(makeLines(1), g, body); !errors.Is(err, errs.ErrValidation) {
		t.Fatalf("expected ErrValidation when no line fits, got %v", err)
	}
}

func TestTextOptionsValidate(t *testing.T) {
	opts := TextOptions{}.WithDefaults()
	if opts.FontFamily != fonts.Helvetica || opts.PageSize != PageA4 || opts.FontSize != 12 || opts.Margin != 20 {
		t.Fatalf("unexpected defaults: %+v", opts)
	}
	bad := []TextOptions{
		{FontSize: -1, FontFamily: fonts.Helvetica, PageSize: PageA4, Margin: 20},
		{FontSize: 12, FontFamily: "wingdings", PageSize: PageA4, Margin: 20},
		{FontSize: 12, FontFamily: fonts.Helvetica, PageSize: "A3", Margin: 20},
		{FontSize: 12, FontFamily: fonts.Helvetica, PageSize: PageA4, Margin: 120},
	}
	for _, o := range bad {
		if _, err := o.Validate(); !errors.Is(err, errs.ErrValidation) {
			t.Fatalf("Validate(%+v) = %v, want ErrValidation", o, err)
		}
	}
}

func TestWriteDebugJSON(t *testing.T) {
	res, err := Paginate(makeLines(70), a4(20), body)
	if err != nil {
		t.Fatalf("Paginate error: %v", err)
	}
	var buf bytes.Buffer
	if err := WriteDebugJSON(res, &buf); err != nil {
		t.Fatalf("WriteDebugJSON error: %v", err)
	}
	var dump struct {
		PageCount    int   `json:"pageCount"`
		LineCount    int   `json:"lineCount"`
		LinesPerPage []int `json:"linesPerPage"`
	}
	if err := json.Unmarshal(buf.Bytes(), &dump); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if dump.PageCount != 2 || dump.LineCount != 70 || dump.LinesPerPage[0] != 61 || dump.LinesPerPage[1] != 9 {
		t.Fatalf("unexpected summary: %+v", dump)
	}
}
