// Package document 是内存中的文档模型：文档是有序、构建后不可变的页面序列。
//
// 所有操作（合并、拆分、旋转、页码）都只读取输入并返回新的文档，
// 需要把页面放到另一个文档时一律做结构复制，绝不共享引用。
package document

import (
	"bytes"
	"slices"
)

// Document 是有序的页面序列，顺序即页码顺序（从 1 开始、连续）。
type Document struct {
	pages []Page
}

// New 用给定页面构建文档。页面会被复制，调用方之后对参数的修改不会影响文档。
func New(pages ...Page) *Document {
	out := make([]Page, len(pages))
	for i, p := range pages {
		out[i] = p.Clone()
	}
	return &Document{pages: out}
}

// adopt 直接接管已经复制好的页面切片，仅供本包的操作在输出路径上使用。
func adopt(pages []Page) *Document { return &Document{pages: pages} }

// Len 返回页数；nil 文档的页数为 0。
func (d *Document) Len() int {
	if d == nil {
		return 0
	}
	return len(d.pages)
}

// Page 返回第 n 页（从 1 开始）的副本。
func (d *Document) Page(n int) (Page, bool) {
	if n < 1 || n > d.Len() {
		return Page{}, false
	}
	return d.pages[n-1].Clone(), true
}

// Pages 返回全部页面的副本。
func (d *Document) Pages() []Page {
	if d == nil {
		return nil
	}
	out := make([]Page, len(d.pages))
	for i, p := range d.pages {
		out[i] = p.Clone()
	}
	return out
}

// Page 表示一页：几何尺寸（pt）、旋转角度与不透明的内容句柄。
// 几何尺寸在创建后不可变；旋转只能通过 WithRotation 得到新的 Page。
type Page struct {
	width    float64
	height   float64
	rotation int
	content  Content
}

// NewPage 创建页面，rotation 会被规范到 {0, 90, 180, 270}。
func NewPage(width, height float64, rotation int, content Content) Page {
	return Page{
		width:    width,
		height:   height,
		rotation: NormalizeRotation(rotation),
		content:  content.Clone(),
	}
}

func (p Page) Width() float64   { return p.width }
func (p Page) Height() float64  { return p.height }
func (p Page) Rotation() int    { return p.rotation }
func (p Page) Content() Content { return p.content.Clone() }

// Clone 返回页面的结构副本：几何与旋转相同，内容被复制。
func (p Page) Clone() Page {
	p.content = p.content.Clone()
	return p
}

// WithRotation 返回旋转角度被替换后的新页面，原页面保持不变。
func (p Page) WithRotation(degrees int) Page {
	out := p.Clone()
	out.rotation = NormalizeRotation(degrees)
	return out
}

// withOverlay 返回追加了一条叠加绘制指令的新页面。
func (p Page) withOverlay(o Overlay) Page {
	out := p.Clone()
	out.content = out.content.WithOverlay(o)
	return out
}

// Content 是页面内容的不透明句柄：编码后的单页 PDF 字节，以及待绘制的叠加指令。
// 引擎可以复制它、向它追加指令，但从不解析其中的字节。
type Content struct {
	data     []byte
	overlays []Overlay
}

// NewContent 用编码后的页面字节创建内容句柄；字节会被复制。
func NewContent(data []byte) Content {
	return Content{data: bytes.Clone(data)}
}

// Bytes 返回编码后页面字节的副本。
func (c Content) Bytes() []byte { return bytes.Clone(c.data) }

// Overlays 按追加顺序返回叠加指令的副本。
func (c Content) Overlays() []Overlay { return slices.Clone(c.overlays) }

// Clone 深复制内容句柄。
func (c Content) Clone() Content {
	return Content{data: bytes.Clone(c.data), overlays: slices.Clone(c.overlays)}
}

// WithOverlay 返回在末尾追加一条叠加指令后的新句柄。
func (c Content) WithOverlay(o Overlay) Content {
	out := c.Clone()
	out.overlays = append(out.overlays, o)
	return out
}

// Equal 判断两个句柄的内容是否一致（字节与叠加指令都相同）。
func (c Content) Equal(other Content) bool {
	return bytes.Equal(c.data, other.data) && slices.Equal(c.overlays, other.overlays)
}

// Align 是叠加文本相对锚点 X 的水平对齐方式。
type Align int

const (
	AlignLeft Align = iota
	AlignCenter
	AlignRight
)

// Overlay 是一条在页面上绘制文本的指令。坐标为 PDF 用户空间（pt，原点在左下角），
// Y 为基线位置。
type Overlay struct {
	Text     string
	X        float64
	Y        float64
	FontSize float64
	Align    Align
}
