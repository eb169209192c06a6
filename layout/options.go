package layout

import (
	"math"

	"github.com/ByLCY/quire/errs"
	"github.com/ByLCY/quire/fonts"
)

// Typesetter 负责为给定字体与字号提供宽度测量，通常由渲染器实现。
type Typesetter interface {
	Measurer(family fonts.Family, fontSize float64) (Measurer, error)
}

// Measurer 返回文本在当前字体下的渲染宽度（mm）。
type Measurer interface {
	TextWidth(s string) float64
}

// TextOptions 是文本转 PDF 的可配置项。
type TextOptions struct {
	FontSize   float64      `json:"fontSize" yaml:"fontSize"`     // pt
	FontFamily fonts.Family `json:"fontFamily" yaml:"fontFamily"`
	PageSize   PageSize     `json:"pageSize" yaml:"pageSize"`
	Margin     float64      `json:"margin" yaml:"margin"` // mm
	Title      string       `json:"title,omitempty" yaml:"title,omitempty"`
}

// DefaultTextOptions 返回默认配置：12pt helvetica、A4、20mm 页边距。
func DefaultTextOptions() TextOptions {
	return TextOptions{
		FontSize:   12,
		FontFamily: fonts.Helvetica,
		PageSize:   PageA4,
		Margin:     20,
	}
}

// WithDefaults 用默认值填充零值字段。
func (o TextOptions) WithDefaults() TextOptions {
	def := DefaultTextOptions()
	if o.FontSize == 0 {
		o.FontSize = def.FontSize
	}
	if o.FontFamily == "" {
		o.FontFamily = def.FontFamily
	}
	if o.PageSize == "" {
		o.PageSize = def.PageSize
	}
	if o.Margin == 0 {
		o.Margin = def.Margin
	}
	return o
}

// Validate 检查配置并返回对应的页面几何。
func (o TextOptions) Validate() (Geometry, error) {
	const op = "text-to-pdf"
	if o.FontSize <= 0 || math.IsNaN(o.FontSize) || math.IsInf(o.FontSize, 0) {
		return Geometry{}, errs.Validation(op, "字号必须为正数，实际为 %g", o.FontSize)
	}
	if !o.FontFamily.Valid() {
		return Geometry{}, errs.Validation(op, "不支持的字体：%s", o.FontFamily)
	}
	w, h, ok := o.PageSize.Dimensions()
	if !ok {
		return Geometry{}, errs.Validation(op, "暂不支持的纸张尺寸：%s", o.PageSize)
	}
	if o.Margin < 0 || math.IsNaN(o.Margin) {
		return Geometry{}, errs.Validation(op, "页边距不能为负数，实际为 %g", o.Margin)
	}
	g := Geometry{Width: w, Height: h, Margin: o.Margin}
	if g.PrintableWidth() <= 0 {
		return Geometry{}, errs.Validation(op, "页边距 %gmm 超过了页面宽度", o.Margin)
	}
	if LinesPerPage(g, o.FontSize) < 1 {
		return Geometry{}, errs.Validation(op, "页边距与字号使页面无法容纳任何一行")
	}
	return g, nil
}
