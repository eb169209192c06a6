package layout

import (
	"math"
	"testing"
)

// TestPtMmRoundTrip 验证 pt↔mm 换算的往返精度。
func TestPtMmRoundTrip(t *testing.T) {
	for _, pt := range []float64{0, 0.001, 1, 12, 72, 595.28, 1000} {
		back := pt * PtToMm * MmToPt
		if diff := math.Abs(back - pt); diff > 1e-9 {
			t.Fatalf("pt→mm→pt 往返误差过大: in=%gpt back=%g diff=%g", pt, back, diff)
		}
	}
	// 72pt == 1in == 25.4mm
	if got := (Length{Value: 72, Unit: UnitPT}).ToMM(); math.Abs(got-25.4) > 1e-9 {
		t.Fatalf("72pt 转 mm 期望 25.4，实际 %g", got)
	}
}

func TestParseLength(t *testing.T) {
	cases := []struct {
		in     string
		wantMM float64
	}{
		{"20", 20},
		{"20mm", 20},
		{"2cm", 20},
		{"1in", 25.4},
		{" 72PT ", 25.4},
	}
	for _, c := range cases {
		l, err := ParseLength(c.in)
		if err != nil {
			t.Fatalf("ParseLength(%q) error: %v", c.in, err)
		}
		if got := l.ToMM(); math.Abs(got-c.wantMM) > 1e-9 {
			t.Fatalf("ParseLength(%q).ToMM() = %g, want %g", c.in, got, c.wantMM)
		}
	}
	for _, bad := range []string{"", "mm", "abc", "NaN"} {
		if _, err := ParseLength(bad); err == nil {
			t.Fatalf("ParseLength(%q) 应当失败", bad)
		}
	}
}

func TestPageSizes(t *testing.T) {
	cases := map[string][2]float64{
		"a4":     {210, 297},
		"LETTER": {215.9, 279.4},
		"Legal":  {215.9, 355.6},
	}
	for in, want := range cases {
		p, err := ParsePageSize(in)
		if err != nil {
			t.Fatalf("ParsePageSize(%q) error: %v", in, err)
		}
		w, h, ok := p.Dimensions()
		if !ok || w != want[0] || h != want[1] {
			t.Fatalf("%s 尺寸 = %gx%g, want %gx%g", in, w, h, want[0], want[1])
		}
	}
	if _, err := ParsePageSize("A5"); err == nil {
		t.Fatalf("A5 不在支持列表中，应当失败")
	}
}
