package layout

import (
	"encoding/json"
	"io"
)

// debugDump 是调试 JSON 的顶层结构：先给出分页摘要，再附上完整结果。
type debugDump struct {
	PageCount    int     `json:"pageCount"`
	LineCount    int     `json:"lineCount"`
	LineHeight   float64 `json:"lineHeight"`
	LinesPerPage []int   `json:"linesPerPage"`
	Result       *Result `json:"result"`
}

// WriteDebugJSON 将分页结果以带缩进的 JSON 写入 w，便于排查分页问题。
func WriteDebugJSON(res *Result, w io.Writer) error {
	if res == nil {
		return nil
	}
	dump := debugDump{
		PageCount:  len(res.Pages),
		LineHeight: LineHeight(res.Font.Size),
		Result:     res,
	}
	for _, p := range res.Pages {
		dump.LineCount += len(p.Lines)
		dump.LinesPerPage = append(dump.LinesPerPage, len(p.Lines))
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(dump)
}
