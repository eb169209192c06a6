package canvasrenderer

import (
	"bytes"
	"fmt"
	"sync"

	"github.com/tdewolff/canvas"
	"github.com/tdewolff/canvas/renderers/pdf"

	"github.com/ByLCY/quire/fonts"
	"github.com/ByLCY/quire/layout"
	"github.com/ByLCY/quire/renderer"
)

// defaultCreator is written into the PDF info dictionary when the layout result has none.
const defaultCreator = "quire"

// Renderer draws pagination results via github.com/tdewolff/canvas and measures
// text with the same font faces, so wrapping and drawing always agree.
type Renderer struct {
	fontMu       sync.Mutex
	fontFamilies map[fonts.Family]*canvas.FontFamily
}

var (
	_ renderer.Renderer = (*Renderer)(nil)
	_ layout.Typesetter = (*Renderer)(nil)
)

// NewRenderer creates a canvas-based renderer that uses the built-in font families.
func NewRenderer() *Renderer {
	return &Renderer{fontFamilies: map[fonts.Family]*canvas.FontFamily{}}
}

// Render renders the result into a PDF byte slice, one PDF page per layout page.
func (r *Renderer) Render(result *layout.Result) ([]byte, error) {
	if result == nil {
		return nil, fmt.Errorf("渲染结果为空")
	}
	if len(result.Pages) == 0 {
		return nil, fmt.Errorf("缺少可渲染的页面")
	}
	face, err := r.face(result.Font.Family, result.Font.Size)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	first := result.Pages[0]
	writer := pdf.New(&buf, first.Width, first.Height, nil)
	applyMeta(writer, result.Meta)
	for i, page := range result.Pages {
		if i > 0 {
			writer.NewPage(page.Width, page.Height)
		}
		c := canvas.New(page.Width, page.Height)
		ctx := canvas.NewContext(c)
		ctx.SetCoordSystem(canvas.CartesianIV) // 使坐标与分页结果保持左上角为原点
		drawLines(ctx, face, page.Lines)
		c.RenderTo(writer)
	}

	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("写入 PDF 失败: %w", err)
	}
	return buf.Bytes(), nil
}

// Measurer 实现 layout.Typesetter 接口。fontSize 为 pt，返回的宽度为 mm。
func (r *Renderer) Measurer(family fonts.Family, fontSize float64) (layout.Measurer, error) {
	return r.face(family, fontSize)
}

func applyMeta(writer *pdf.PDF, meta layout.DocumentMeta) {
	creator := meta.Creator
	if creator == "" {
		creator = defaultCreator
	}
	writer.SetInfo(meta.Title, meta.Subject, "", meta.Author, creator)
}

// drawLines 以行首 X 与基线 Y（mm）绘制每一行。
func drawLines(ctx *canvas.Context, face *canvas.FontFace, lines []layout.PlacedLine) {
	for _, ln := range lines {
		if ln.Text == "" {
			continue
		}
		ctx.DrawText(ln.X, ln.Y, canvas.NewTextLine(face, ln.Text, canvas.Left))
	}
}

func (r *Renderer) face(family fonts.Family, sizePt float64) (*canvas.FontFace, error) {
	if sizePt <= 0 {
		return nil, fmt.Errorf("字号必须为正数，实际为 %g", sizePt)
	}
	fam, err := r.ensureFontFamily(family)
	if err != nil {
		return nil, err
	}
	return fam.Face(sizePt, canvas.Black, canvas.FontRegular, canvas.FontNormal), nil
}

func (r *Renderer) ensureFontFamily(family fonts.Family) (*canvas.FontFamily, error) {
	r.fontMu.Lock()
	defer r.fontMu.Unlock()

	if fam, ok := r.fontFamilies[family]; ok {
		return fam, nil
	}
	data, err := fonts.Load(family)
	if err != nil {
		return nil, err
	}
	fam := canvas.NewFontFamily(string(family))
	if err := fam.LoadFont(data, 0, canvas.FontRegular); err != nil {
		return nil, fmt.Errorf("加载字体 %s 失败: %w", family, err)
	}
	r.fontFamilies[family] = fam
	return fam, nil
}
