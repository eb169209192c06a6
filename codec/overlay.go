package codec

import (
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"

	"github.com/ByLCY/quire/document"
)

// 叠加文本使用 PDF 标准 14 字体之一的 Helvetica，无需嵌入字体程序。
// 对齐时按 Helvetica 数字的统一字宽（0.556 em）估算文本宽度。
const (
	overlayFontPrefix   = "QuireHelv"
	helveticaDigitWidth = 0.556
)

// patchPage 修改单页 PDF 的第 1 页：设置 /Rotate，并在原有内容之后追加叠加内容流。
// 原有内容被包在 q/Q 中，避免其遗留的图形状态影响叠加文本。
func patchPage(pc *model.Context, rotation int, overlays []document.Overlay) error {
	d, _, inh, err := pc.PageDict(1, false)
	if err != nil {
		return err
	}
	if d == nil {
		return fmt.Errorf("缺少页面字典")
	}
	d.Update("Rotate", types.Integer(rotation))
	if len(overlays) == 0 {
		return nil
	}

	var llx, lly float64
	if inh != nil && inh.MediaBox != nil {
		llx, lly = inh.MediaBox.LL.X, inh.MediaBox.LL.Y
	}
	font, err := addOverlayFont(pc, d, inh)
	if err != nil {
		return err
	}

	open, err := newStream(pc, []byte("q\n"))
	if err != nil {
		return err
	}
	draw, err := newStream(pc, overlayContent(font, llx, lly, overlays))
	if err != nil {
		return err
	}

	contents := types.Array{*open}
	if obj, ok := d.Find("Contents"); ok {
		o, err := pc.Dereference(obj)
		if err != nil {
			return err
		}
		switch v := o.(type) {
		case nil:
		case types.Array:
			contents = append(contents, v...)
		default:
			contents = append(contents, obj)
		}
	}
	contents = append(contents, *draw)
	d.Update("Contents", contents)
	return nil
}

// addOverlayFont 在页面资源中登记 Helvetica，返回资源名。
// 资源字典可能继承自父节点，这里复制一份写到页面自身。
func addOverlayFont(pc *model.Context, d types.Dict, inh *model.InheritedPageAttrs) (string, error) {
	res := types.Dict{}
	if obj, ok := d.Find("Resources"); ok {
		r, err := pc.DereferenceDict(obj)
		if err != nil {
			return "", err
		}
		if r != nil {
			res = r.Clone().(types.Dict)
		}
	} else if inh != nil && inh.Resources != nil {
		res = inh.Resources.Clone().(types.Dict)
	}

	fonts := types.Dict{}
	if obj, ok := res.Find("Font"); ok {
		f, err := pc.DereferenceDict(obj)
		if err != nil {
			return "", err
		}
		if f != nil {
			fonts = f.Clone().(types.Dict)
		}
	}

	name := overlayFontPrefix
	for i := 1; ; i++ {
		if _, taken := fonts.Find(name); !taken {
			break
		}
		name = overlayFontPrefix + strconv.Itoa(i)
	}
	ref, err := pc.IndRefForNewObject(types.Dict{
		"Type":     types.Name("Font"),
		"Subtype":  types.Name("Type1"),
		"BaseFont": types.Name("Helvetica"),
		"Encoding": types.Name("WinAnsiEncoding"),
	})
	if err != nil {
		return "", err
	}
	fonts.Update(name, *ref)
	res.Update("Font", fonts)
	d.Update("Resources", res)
	return name, nil
}

func newStream(pc *model.Context, buf []byte) (*types.IndirectRef, error) {
	sd, err := pc.NewStreamDictForBuf(buf)
	if err != nil {
		return nil, err
	}
	if err := sd.Encode(); err != nil {
		return nil, err
	}
	return pc.IndRefForNewObject(*sd)
}

// overlayContent 生成叠加内容流。第一个 Q 结束包住原有内容的 q。
func overlayContent(font string, llx, lly float64, overlays []document.Overlay) []byte {
	var b strings.Builder
	b.WriteString("Q\n")
	for _, o := range overlays {
		x := llx + o.X - alignOffset(o)
		y := lly + o.Y
		fmt.Fprintf(&b, "q BT 0 g /%s %s Tf %s %s Td (%s) Tj ET Q\n",
			font, num(o.FontSize), num(x), num(y), escapeText(o.Text))
	}
	return []byte(b.String())
}

func alignOffset(o document.Overlay) float64 {
	w := float64(utf8.RuneCountInString(o.Text)) * helveticaDigitWidth * o.FontSize
	switch o.Align {
	case document.AlignCenter:
		return w / 2
	case document.AlignRight:
		return w
	default:
		return 0
	}
}

func num(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// escapeText 转义 PDF 字面字符串中的特殊字符；WinAnsi 之外的字符替换为 ?。
func escapeText(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch {
		case r == '\\' || r == '(' || r == ')':
			b.WriteByte('\\')
			b.WriteRune(r)
		case r < 0x20 || r > 0x7e:
			b.WriteByte('?')
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}
