// Package codec 在 PDF 字节与 document.Document 之间转换。
//
// Load 解析字节流并按页拆成单页 PDF 作为内容句柄；Save 把每页的旋转与叠加指令
// 写回对应的单页 PDF，再按顺序合并成一个文件。底层读写由 pdfcpu 完成。
package codec

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"

	"github.com/ByLCY/quire/document"
	"github.com/ByLCY/quire/errs"
)

// MediaType is the media type of every buffer this package reads or writes.
const MediaType = "application/pdf"

const (
	headerWindow  = 1024 // %PDF- 必须出现在前 1024 字节内
	trailerWindow = 1024
)

var (
	headerMarker  = []byte("%PDF-")
	trailerMarker = []byte("%%EOF")
)

// Options 控制序列化方式。
type Options struct {
	// Compact 打开压缩模式：优化对象图，并把间接对象收进对象流、使用交叉引用流。
	Compact bool
}

var disableConfigDir sync.Once

// newConfig 返回一次操作专用的 pdfcpu 配置。pdfcpu 默认会在用户目录下创建配置文件，
// 嵌入式使用时关闭。
func newConfig(compact bool) *model.Configuration {
	disableConfigDir.Do(api.DisableConfigDir)
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	conf.WriteObjectStream = compact
	conf.WriteXRefStream = compact
	return conf
}

// Load 把 PDF 字节解析为 Document。失败时返回 *errs.ParseError，并指明失败阶段：
// header（缺少 %PDF- 标记）、xref（文件被截断或交叉引用结构损坏）、page-tree（页面树无效）。
func Load(ctx context.Context, data []byte) (*document.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := checkMarkers(data); err != nil {
		return nil, err
	}

	pc, err := api.ReadContext(bytes.NewReader(data), newConfig(false))
	if err != nil {
		return nil, errs.Parse(errs.StageXRef, err)
	}
	if err := api.ValidateContext(pc); err != nil {
		return nil, errs.Parse(errs.StagePageTree, err)
	}
	if err := api.OptimizeContext(pc); err != nil {
		return nil, errs.Parse(errs.StagePageTree, err)
	}
	if pc.PageCount == 0 {
		return nil, errs.Parse(errs.StagePageTree, fmt.Errorf("文档不包含任何页面"))
	}

	pages := make([]document.Page, 0, pc.PageCount)
	for n := 1; n <= pc.PageCount; n++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		p, err := loadPage(pc, n)
		if err != nil {
			return nil, errs.Parse(errs.StagePageTree, fmt.Errorf("第 %d 页: %w", n, err))
		}
		pages = append(pages, p)
	}
	return document.New(pages...), nil
}

func checkMarkers(data []byte) error {
	head := data[:min(len(data), headerWindow)]
	if !bytes.Contains(head, headerMarker) {
		return errs.Parse(errs.StageHeader, fmt.Errorf("前 %d 字节内没有 %s 标记", headerWindow, headerMarker))
	}
	tail := data[max(0, len(data)-trailerWindow):]
	if !bytes.Contains(tail, trailerMarker) {
		return errs.Parse(errs.StageXRef, fmt.Errorf("文件末尾缺少 %s，可能已被截断", trailerMarker))
	}
	return nil
}

// loadPage 读取第 n 页的几何与旋转，并把该页抽取为独立的单页 PDF。
func loadPage(pc *model.Context, n int) (document.Page, error) {
	_, _, inh, err := pc.PageDict(n, false)
	if err != nil {
		return document.Page{}, err
	}
	if inh == nil || inh.MediaBox == nil {
		return document.Page{}, fmt.Errorf("缺少 MediaBox")
	}
	r, err := api.ExtractPage(pc, n)
	if err != nil {
		return document.Page{}, err
	}
	single, err := io.ReadAll(r)
	if err != nil {
		return document.Page{}, err
	}
	box := inh.MediaBox
	return document.NewPage(box.Width(), box.Height(), inh.Rotate, document.NewContent(single)), nil
}

// Save 把 Document 编码为一个 PDF 文件。页面顺序与文档顺序一致；
// 每页写入自身的旋转角度，并绘制追加的叠加指令。
func Save(ctx context.Context, doc *document.Document, opts Options) ([]byte, error) {
	if doc.Len() == 0 {
		return nil, errs.Validation("serialize", "文档没有任何页面")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	pages := doc.Pages()
	readers := make([]io.ReadSeeker, 0, len(pages))
	for i, p := range pages {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		b, err := encodePage(p)
		if err != nil {
			return nil, fmt.Errorf("编码第 %d 页失败: %w", i+1, err)
		}
		readers = append(readers, bytes.NewReader(b))
	}

	var out bytes.Buffer
	if err := api.MergeRaw(readers, &out, false, newConfig(opts.Compact)); err != nil {
		return nil, fmt.Errorf("合并页面失败: %w", err)
	}
	if opts.Compact {
		return Compact(ctx, out.Bytes())
	}
	return out.Bytes(), nil
}

// Compact 对已编码的 PDF 做一次压缩：合并重复对象、删除未引用对象，
// 用对象流与交叉引用流重写文件。页面内容、几何与旋转保持不变。
func Compact(ctx context.Context, data []byte) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := checkMarkers(data); err != nil {
		return nil, err
	}
	pc, err := api.ReadContext(bytes.NewReader(data), newConfig(true))
	if err != nil {
		return nil, errs.Parse(errs.StageXRef, err)
	}
	if err := api.ValidateContext(pc); err != nil {
		return nil, errs.Parse(errs.StagePageTree, err)
	}
	if err := api.OptimizeContext(pc); err != nil {
		return nil, fmt.Errorf("优化 PDF 失败: %w", err)
	}
	var out bytes.Buffer
	if err := api.WriteContext(pc, &out); err != nil {
		return nil, fmt.Errorf("写入 PDF 失败: %w", err)
	}
	return out.Bytes(), nil
}

// encodePage 打开页面句柄中的单页 PDF，写入旋转与叠加内容后重新编码。
func encodePage(p document.Page) ([]byte, error) {
	c := p.Content()
	data := c.Bytes()
	if len(data) == 0 {
		return nil, fmt.Errorf("页面内容为空")
	}
	pc, err := api.ReadContext(bytes.NewReader(data), newConfig(false))
	if err != nil {
		return nil, err
	}
	if err := api.ValidateContext(pc); err != nil {
		return nil, err
	}
	if err := patchPage(pc, p.Rotation(), c.Overlays()); err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := api.WriteContext(pc, &buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
