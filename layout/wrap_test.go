package layout

import (
	"errors"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/ByLCY/quire/errs"
	"github.com/ByLCY/quire/fonts"
)

// stubTypesetter 是一个等宽测量实现，仅用于测试，避免引入渲染器造成循环依赖。
// 每个字符宽 advance 毫米。
type stubTypesetter struct {
	advance float64
}

func (s stubTypesetter) Measurer(fonts.Family, float64) (Measurer, error) {
	return s, nil
}

func (s stubTypesetter) TextWidth(text string) float64 {
	return float64(utf8.RuneCountInString(text)) * s.advance
}

var body = FontSpec{Family: fonts.Helvetica, Size: 12}

func joinLines(lines []Line) string {
	var b strings.Builder
	for _, ln := range lines {
		b.WriteString(ln.Text)
		b.WriteString(ln.Break)
	}
	return b.String()
}

func TestWrapBreaksAtWhitespace(t *testing.T) {
	lines, err := Wrap("hello world again", body, 12, stubTypesetter{advance: 1})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []string{"hello world", "again"}
	if len(lines) != len(want) {
		t.Fatalf("expected %d lines, got %d: %+v", len(want), len(lines), lines)
	}
	for i, ln := range lines {
		if ln.Visible() != want[i] {
			t.Fatalf("line %d = %q, want %q", i, ln.Visible(), want[i])
		}
	}
}

// TestWrapIsLossless 验证：所有行的 Text+Break 拼接后与输入完全一致。
func TestWrapIsLossless(t *testing.T) {
	inputs := []string{
		"a b c",
		"  leading spaces and trailing   ",
		"foo\n\nbar\r\nbaz\n",
		"tab\tseparated\twords that wrap around the limit",
		strings.Repeat("x", 95) + " tail",
		"中文文本没有空格也需要按宽度折行中文文本没有空格",
	}
	for _, in := range inputs {
		lines, err := Wrap(in, body, 10, stubTypesetter{advance: 1})
		if err != nil {
			t.Fatalf("Wrap(%q) error: %v", in, err)
		}
		if got := joinLines(lines); got != in {
			t.Fatalf("lossless violated:\n got=%q\nwant=%q", got, in)
		}
	}
}

// TestWrapWidthLimit 验证每行（去掉行尾空白后）的宽度不超过限制。
func TestWrapWidthLimit(t *testing.T) {
	ts := stubTypesetter{advance: 1.7}
	limit := 30.0
	text := strings.Repeat("lorem ipsum dolor sit amet consectetur ", 20) + strings.Repeat("w", 80)
	lines, err := Wrap(text, body, limit, ts)
	if err != nil {
		t.Fatalf("Wrap error: %v", err)
	}
	for i, ln := range lines {
		if ln.Width-limit > 1e-9 {
			t.Fatalf("line %d width exceeds limit: width=%g limit=%g text=%q", i, ln.Width, limit, ln.Text)
		}
		if w := ts.TextWidth(ln.Visible()); w != ln.Width {
			t.Fatalf("line %d width %g does not match measured %g", i, ln.Width, w)
		}
	}
}

// 超长单词必须被硬断开，且不能丢失任何字符。
func TestWrapHardBreaksLongToken(t *testing.T) {
	token := strings.Repeat("a", 53)
	lines, err := Wrap(token, body, 10, stubTypesetter{advance: 1})
	if err != nil {
		t.Fatalf("Wrap error: %v", err)
	}
	if len(lines) != 6 {
		t.Fatalf("expected 6 chunks, got %d", len(lines))
	}
	for i, ln := range lines[:5] {
		if len(ln.Text) != 10 || ln.Break != "" {
			t.Fatalf("chunk %d = %q (break %q), want 10 runes soft-wrapped", i, ln.Text, ln.Break)
		}
	}
	if joinLines(lines) != token {
		t.Fatalf("token was not reproduced")
	}
}

// 单个字符比限制还宽时每行也至少放一个字符，保证循环前进。
func TestWrapGlyphWiderThanLimit(t *testing.T) {
	lines, err := Wrap("abc", body, 0.5, stubTypesetter{advance: 1})
	if err != nil {
		t.Fatalf("Wrap error: %v", err)
	}
	if len(lines) != 3 {
		t.Fatalf("expected one line per glyph, got %d", len(lines))
	}
}

func TestWrapHonorsHardBreaks(t *testing.T) {
	lines, err := Wrap("foo\n\nbar", body, 100, stubTypesetter{advance: 1})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(lines) != 3 {
		t.Fatalf("expected 3 lines including blank, got %d", len(lines))
	}
	if lines[1].Text != "" || lines[1].Break != "\n" {
		t.Fatalf("expected blank middle line, got %+v", lines[1])
	}
}

func TestWrapRejectsBlankText(t *testing.T) {
	for _, in := range []string{"", "   ", "\n\t\r\n"} {
		_, err := Wrap(in, body, 100, stubTypesetter{advance: 1})
		if !errors.Is(err, errs.ErrValidation) {
			t.Fatalf("Wrap(%q) error = %v, want ErrValidation", in, err)
		}
	}
}

func TestWrapRejectsBadArguments(t *testing.T) {
	if _, err := Wrap("x", body, 0, stubTypesetter{advance: 1}); !errors.Is(err, errs.ErrValidation) {
		t.Fatalf("zero width: got %v", err)
	}
	if _, err := Wrap("x", FontSpec{Family: fonts.Helvetica}, 10, stubTypesetter{advance: 1}); !errors.Is(err, errs.ErrValidation) {
		t.Fatalf("zero font size: got %v", err)
	}
	if _, err := Wrap("x", body, 10, nil); !errors.Is(err, errs.ErrValidation) {
		t.Fatalf("nil typesetter: got %v", err)
	}
}
