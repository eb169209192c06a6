package document

import "github.com/ByLCY/quire/errs"

// Merge 按参数顺序拼接各来源文档的页面；同一来源内保持原有页序。
// 每一页都是来源页面的结构副本，来源文档不受任何影响。
// 少于两个来源或存在 nil 来源时返回 ValidationError。
func Merge(sources ...*Document) (*Document, error) {
	const op = "merge"
	if len(sources) < 2 {
		return nil, errs.Validation(op, "至少需要 2 个文档，实际为 %d 个", len(sources))
	}
	total := 0
	for i, src := range sources {
		if src == nil {
			return nil, errs.Validation(op, "第 %d 个文档为空", i+1)
		}
		total += src.Len()
	}
	pages := make([]Page, 0, total)
	for _, src := range sources {
		for _, p := range src.pages {
			pages = append(pages, p.Clone())
		}
	}
	return adopt(pages), nil
}

// Part 是拆分结果中的一项：Number 为该页在来源文档中的页码（从 1 开始）。
type Part struct {
	Number int
	Doc    *Document
}

// Split 把 N 页的文档拆成 N 个单页文档，按页码升序返回。
func Split(src *Document) ([]Part, error) {
	const op = "split"
	if src.Len() == 0 {
		return nil, errs.Validation(op, "文档没有任何页面")
	}
	parts := make([]Part, src.Len())
	for i, p := range src.pages {
		parts[i] = Part{Number: i + 1, Doc: adopt([]Page{p.Clone()})}
	}
	return parts, nil
}
