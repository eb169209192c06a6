package document

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/ByLCY/quire/errs"
)

// NormalizeRotation 把任意整数角度按 360 取模，再取最近的 90 的倍数（恰好居中时向上取），
// 结果属于 {0, 90, 180, 270}。
func NormalizeRotation(degrees int) int {
	m := degrees % 360
	if m < 0 {
		m += 360
	}
	return ((m + 45) / 90 * 90) % 360
}

// Rotate 返回每页旋转角度变为 (原角度 + delta) mod 360 的新文档，页数、页序、几何与内容不变。
// 旋转按 360 取模相加，因此 Rotate(Rotate(d, 90), 90) 与 Rotate(d, 180) 的每页旋转完全相同。
func Rotate(src *Document, delta int) (*Document, error) {
	if src.Len() == 0 {
		return nil, errs.Validation("rotate", "文档没有任何页面")
	}
	d := NormalizeRotation(delta)
	pages := make([]Page, len(src.pages))
	for i, p := range src.pages {
		pages[i] = p.WithRotation(p.rotation + d)
	}
	return adopt(pages), nil
}

// Position 是页码的放置位置。
type Position string

const (
	TopCenter    Position = "top-center"
	BottomCenter Position = "bottom-center"
	BottomLeft   Position = "bottom-left"
	BottomRight  Position = "bottom-right"
)

// 页码锚点：基线距页面上/下边缘 20pt，左右位置距边缘 40pt。
const (
	numberBaseline = 20.0
	numberInset    = 40.0
)

// ParsePosition 不区分大小写地解析页码位置。
func ParsePosition(s string) (Position, error) {
	p := Position(strings.ToLower(strings.TrimSpace(s)))
	switch p {
	case TopCenter, BottomCenter, BottomLeft, BottomRight:
		return p, nil
	}
	return "", fmt.Errorf("不支持的页码位置：%s", s)
}

// anchor 根据单页自身的宽高计算锚点与对齐方式。
func (p Position) anchor(width, height float64) (x, y float64, align Align) {
	switch p {
	case TopCenter:
		return width / 2, height - numberBaseline, AlignCenter
	case BottomLeft:
		return numberInset, numberBaseline, AlignLeft
	case BottomRight:
		return width - numberInset, numberBaseline, AlignRight
	default:
		return width / 2, numberBaseline, AlignCenter
	}
}

// PageNumberSpec 描述页码绘制方式。StartPage 是第一页的页码，
// 便于续接在其他文档之后编号。
type PageNumberSpec struct {
	Position  Position `json:"position" yaml:"position"`
	FontSize  float64  `json:"fontSize" yaml:"fontSize"` // pt
	StartPage int      `json:"startPage" yaml:"startPage"`
}

// DefaultPageNumberSpec 返回默认配置：底部居中、12pt、从 1 开始。
func DefaultPageNumberSpec() PageNumberSpec {
	return PageNumberSpec{Position: BottomCenter, FontSize: 12, StartPage: 1}
}

// Validate 检查页码配置。
func (s PageNumberSpec) Validate() error {
	const op = "page-numbers"
	if _, err := ParsePosition(string(s.Position)); err != nil {
		return errs.Validation(op, "%v", err)
	}
	if s.FontSize <= 0 || math.IsNaN(s.FontSize) || math.IsInf(s.FontSize, 0) {
		return errs.Validation(op, "字号必须为正数，实际为 %g", s.FontSize)
	}
	return nil
}

// NumberPages 为每一页追加一条绘制页码的叠加指令：第 i 页（从 0 开始）绘制 i + StartPage，
// 位置由该页自身的宽高决算，因此混合尺寸的文档每页都能正确定位。
//
// NumberPages 不是幂等的：对同一文档调用两次会得到两层重叠的页码，
// 第二次调用不会移除或替换第一次的结果。调用方必须保证每个输出最多调用一次。
func NumberPages(src *Document, spec PageNumberSpec) (*Document, error) {
	if err := spec.Validate(); err != nil {
		return nil, err
	}
	if src.Len() == 0 {
		return nil, errs.Validation("page-numbers", "文档没有任何页面")
	}
	pos, _ := ParsePosition(string(spec.Position))
	pages := make([]Page, len(src.pages))
	for i, p := range src.pages {
		x, y, align := pos.anchor(p.width, p.height)
		pages[i] = p.withOverlay(Overlay{
			Text:     strconv.Itoa(i + spec.StartPage),
			X:        x,
			Y:        y,
			FontSize: spec.FontSize,
			Align:    align,
		})
	}
	return adopt(pages), nil
}
