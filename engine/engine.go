// Package engine 是文档转换引擎对外的入口：接收带媒体类型的字节缓冲，
// 调用排版、文档模型与编解码器完成操作，返回带建议文件名的 PDF 缓冲。
//
// 每次调用彼此独立，Engine 只持有字体缓存，可以被多个 goroutine 共享。
package engine

import (
	"context"
	"fmt"

	"github.com/ByLCY/quire/codec"
	"github.com/ByLCY/quire/document"
	"github.com/ByLCY/quire/errs"
	"github.com/ByLCY/quire/layout"
	"github.com/ByLCY/quire/renderer"
	canvasrenderer "github.com/ByLCY/quire/renderer/canvas"
)

// MediaType 是引擎唯一接受与产出的媒体类型。
const MediaType = codec.MediaType

// 输出文件的建议名称。
const (
	MergedName     = "merged-document.pdf"
	CompressedName = "compressed-document.pdf"
	RotatedName    = "rotated-document.pdf"
	NumberedName   = "numbered-document.pdf"
	ConvertedName  = "converted-document.pdf"
)

// PageName 返回拆分结果中第 n 页的建议名称。
func PageName(n int) string { return fmt.Sprintf("page-%d.pdf", n) }

// DefaultRotation 是调用方未指定角度时的旋转量。
const DefaultRotation = 90

// Input 是调用方提供的一个命名缓冲。MediaType 为空表示调用方没有声明。
type Input struct {
	Name      string
	MediaType string
	Data      []byte
}

// Output 是一个产出的 PDF 缓冲。
type Output struct {
	Name      string
	MediaType string
	Data      []byte
}

// Typesetter 同时负责测量与渲染，保证换行与绘制使用同一套字体度量。
type Typesetter interface {
	layout.Typesetter
	renderer.Renderer
}

// Engine 串联排版、文档操作与编解码。
type Engine struct {
	ts Typesetter
}

// Option 配置 Engine。
type Option func(*Engine)

// WithTypesetter 替换默认的 canvas 渲染器。
func WithTypesetter(ts Typesetter) Option {
	return func(e *Engine) { e.ts = ts }
}

// New 创建引擎，默认使用 canvas 渲染器。
func New(opts ...Option) *Engine {
	e := &Engine{}
	for _, opt := range opts {
		opt(e)
	}
	if e.ts == nil {
		e.ts = canvasrenderer.NewRenderer()
	}
	return e
}

// TextDocument 把纯文本排版、分页并渲染为 Document。
func (e *Engine) TextDocument(ctx context.Context, text string, opts layout.TextOptions) (*document.Document, error) {
	opts = opts.WithDefaults()
	g, err := opts.Validate()
	if err != nil {
		return nil, err
	}
	res, err := e.paginate(text, g, opts)
	if err != nil {
		return nil, err
	}
	data, err := e.ts.Render(res)
	if err != nil {
		return nil, fmt.Errorf("渲染文本失败: %w", err)
	}
	return codec.Load(ctx, data)
}

// Layout 只做排版与分页，不渲染；用于输出调试 JSON。
func (e *Engine) Layout(text string, opts layout.TextOptions) (*layout.Result, error) {
	opts = opts.WithDefaults()
	g, err := opts.Validate()
	if err != nil {
		return nil, err
	}
	return e.paginate(text, g, opts)
}

func (e *Engine) paginate(text string, g layout.Geometry, opts layout.TextOptions) (*layout.Result, error) {
	font := layout.FontSpec{Family: opts.FontFamily, Size: opts.FontSize}
	lines, err := layout.Wrap(text, font, g.PrintableWidth(), e.ts)
	if err != nil {
		return nil, err
	}
	res, err := layout.Paginate(lines, g, font)
	if err != nil {
		return nil, err
	}
	res.Meta.Title = opts.Title
	return res, nil
}

// TextToPDF 把纯文本转换为 PDF。
func (e *Engine) TextToPDF(ctx context.Context, text string, opts layout.TextOptions) (Output, error) {
	doc, err := e.TextDocument(ctx, text, opts)
	if err != nil {
		return Output{}, err
	}
	return save(ctx, doc, ConvertedName, codec.Options{})
}

// Merge 按输入顺序加载并合并两个及以上的文档。
func (e *Engine) Merge(ctx context.Context, inputs []Input) (Output, error) {
	const op = "merge"
	if len(inputs) < 2 {
		return Output{}, errs.Validation(op, "至少需要 2 个文件，实际为 %d 个", len(inputs))
	}
	if err := checkMediaTypes(op, inputs...); err != nil {
		return Output{}, err
	}
	docs := make([]*document.Document, 0, len(inputs))
	for _, in := range inputs {
		doc, err := load(ctx, in)
		if err != nil {
			return Output{}, err
		}
		docs = append(docs, doc)
	}
	merged, err := document.Merge(docs...)
	if err != nil {
		return Output{}, err
	}
	return save(ctx, merged, MergedName, codec.Options{})
}

// Split 把一个 N 页的文档拆成 N 个单页 PDF，按页码升序返回。
func (e *Engine) Split(ctx context.Context, inputs []Input) ([]Output, error) {
	in, err := single("split", inputs)
	if err != nil {
		return nil, err
	}
	doc, err := load(ctx, in)
	if err != nil {
		return nil, err
	}
	parts, err := document.Split(doc)
	if err != nil {
		return nil, err
	}
	outs := make([]Output, 0, len(parts))
	for _, part := range parts {
		out, err := save(ctx, part.Doc, PageName(part.Number), codec.Options{})
		if err != nil {
			return nil, err
		}
		outs = append(outs, out)
	}
	return outs, nil
}

// Compress 以压缩模式重新编码文档。
func (e *Engine) Compress(ctx context.Context, inputs []Input) (Output, error) {
	in, err := single("compress", inputs)
	if err != nil {
		return Output{}, err
	}
	doc, err := load(ctx, in)
	if err != nil {
		return Output{}, err
	}
	return save(ctx, doc, CompressedName, codec.Options{Compact: true})
}

// Rotate 把每一页旋转 degrees 度。
func (e *Engine) Rotate(ctx context.Context, inputs []Input, degrees int) (Output, error) {
	in, err := single("rotate", inputs)
	if err != nil {
		return Output{}, err
	}
	doc, err := load(ctx, in)
	if err != nil {
		return Output{}, err
	}
	rotated, err := document.Rotate(doc, degrees)
	if err != nil {
		return Output{}, err
	}
	return save(ctx, rotated, RotatedName, codec.Options{})
}

// AddPageNumbers 为每一页绘制页码。对已经编过号的文件再次调用会叠加第二层页码。
func (e *Engine) AddPageNumbers(ctx context.Context, inputs []Input, spec document.PageNumberSpec) (Output, error) {
	in, err := single("page-numbers", inputs)
	if err != nil {
		return Output{}, err
	}
	if err := spec.Validate(); err != nil {
		return Output{}, err
	}
	doc, err := load(ctx, in)
	if err != nil {
		return Output{}, err
	}
	numbered, err := document.NumberPages(doc, spec)
	if err != nil {
		return Output{}, err
	}
	return save(ctx, numbered, NumberedName, codec.Options{})
}

// ExtractText 尚未实现，始终返回 ErrUnsupported，绝不返回空文本冒充结果。
func (e *Engine) ExtractText(ctx context.Context, inputs []Input) (string, error) {
	if _, err := single("extract-text", inputs); err != nil {
		return "", err
	}
	return "", errs.Unsupported("extract-text")
}

// single 校验单文件操作的输入：必须恰好提供一个 PDF。
func single(op string, inputs []Input) (Input, error) {
	switch len(inputs) {
	case 0:
		return Input{}, errs.Validation(op, "没有提供文件")
	case 1:
	default:
		return Input{}, errs.Validation(op, "只接受 1 个文件，实际为 %d 个", len(inputs))
	}
	if err := checkMediaTypes(op, inputs...); err != nil {
		return Input{}, err
	}
	return inputs[0], nil
}

func checkMediaTypes(op string, inputs ...Input) error {
	for _, in := range inputs {
		if in.MediaType != "" && in.MediaType != MediaType {
			return errs.Validation(op, "文件 %q 的类型为 %s，需要 %s", in.Name, in.MediaType, MediaType)
		}
	}
	return nil
}

func load(ctx context.Context, in Input) (*document.Document, error) {
	doc, err := codec.Load(ctx, in.Data)
	if err != nil {
		return nil, fmt.Errorf("加载 %q: %w", in.Name, err)
	}
	return doc, nil
}

func save(ctx context.Context, doc *document.Document, name string, opts codec.Options) (Output, error) {
	data, err := codec.Save(ctx, doc, opts)
	if err != nil {
		return Output{}, err
	}
	return Output{Name: name, MediaType: MediaType, Data: data}, nil
}

// 供 dsl 等调用方直接处理 Document 而不经过字节缓冲。

// Load 加载一个输入。
func (e *Engine) Load(ctx context.Context, in Input) (*document.Document, error) {
	if err := checkMediaTypes("load", in); err != nil {
		return nil, err
	}
	return load(ctx, in)
}

// Save 序列化文档并附上建议名称。
func (e *Engine) Save(ctx context.Context, doc *document.Document, name string, compact bool) (Output, error) {
	return save(ctx, doc, name, codec.Options{Compact: compact})
}
