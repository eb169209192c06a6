package layout

import "github.com/ByLCY/quire/fonts"

// 该文件定义排版与分页的中间结果，供渲染器与调试 JSON 共用。
// 除特别说明外，长度单位均为毫米（mm），字号单位为点（pt）。

// Line 是排版引擎产出的一行文本。
// Text 为输入文本的原样子串（可能带有行尾空白），Width 为去掉行尾空白后的实测宽度，
// Break 为该行之后被消费的换行序列：软换行为空串，硬换行为 "\n" 或 "\r\n"。
type Line struct {
	Text  string  `json:"text"`
	Width float64 `json:"width"`
	Break string  `json:"break,omitempty"`
}

// Visible 返回去掉行尾空白后需要绘制的文本。
func (l Line) Visible() string { return trimTrailingSpace(l.Text) }

// FontSpec 描述正文字体。
type FontSpec struct {
	Family fonts.Family `json:"family"`
	Size   float64      `json:"size"` // pt
}

// Geometry 描述页面尺寸与四周统一的页边距。
type Geometry struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
	Margin float64 `json:"margin"`
}

// PrintableWidth 返回可排版宽度：页面宽度减去左右页边距。
func (g Geometry) PrintableWidth() float64 { return g.Width - 2*g.Margin }

// Result 保存分页后的页面。
type Result struct {
	Pages []Page       `json:"pages"`
	Font  FontSpec     `json:"font"`
	Meta  DocumentMeta `json:"meta"`
}

// Page 记录页面尺寸以及放置到该页上的行。
type Page struct {
	Width  float64      `json:"width"`
	Height float64      `json:"height"`
	Margin float64      `json:"margin"`
	Lines  []PlacedLine `json:"lines"`
}

// PlacedLine 是已经确定坐标的一行。X 为行首位置，Y 为基线位置（以页面左上角为原点）。
type PlacedLine struct {
	Text  string  `json:"text"`
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
	Width float64 `json:"width"`
}

// DocumentMeta 保存 PDF 元信息。
type DocumentMeta struct {
	Title   string `json:"title,omitempty"`
	Author  string `json:"author,omitempty"`
	Subject string `json:"subject,omitempty"`
	Creator string `json:"creator,omitempty"`
}
