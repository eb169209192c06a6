package layout

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/ByLCY/quire/errs"
)

// Wrap 将文本按 maxWidth（mm）折成若干行，宽度由 ts 按给定字体测量。
//
// 折行策略：优先在空白处断开；单个词宽于 maxWidth 时在字符边界硬断开。
// 空白不会触发折行，行尾空白保留在 Line.Text 中但不计入 Line.Width，
// 因此所有行的 Text+Break 依次拼接后与输入完全一致。
func Wrap(text string, font FontSpec, maxWidth float64, ts Typesetter) ([]Line, error) {
	const op = "layout"
	if strings.TrimSpace(text) == "" {
		return nil, errs.Validation(op, "文本内容为空")
	}
	if maxWidth <= 0 {
		return nil, errs.Validation(op, "可排版宽度必须为正数，实际为 %g", maxWidth)
	}
	if font.Size <= 0 {
		return nil, errs.Validation(op, "字号必须为正数，实际为 %g", font.Size)
	}
	if ts == nil {
		return nil, errs.Validation(op, "缺少排版后端 Typesetter")
	}
	m, err := ts.Measurer(font.Family, font.Size)
	if err != nil {
		return nil, err
	}
	return greedyWrap(text, maxWidth, m), nil
}

type tokenKind int

const (
	tokenWord tokenKind = iota
	tokenSpace
	tokenBreak
)

type token struct {
	kind tokenKind
	text string
}

func greedyWrap(content string, limit float64, m Measurer) []Line {
	var lines []Line
	var builder strings.Builder

	emit := func(brk string) {
		text := builder.String()
		lines = append(lines, Line{
			Text:  text,
			Width: m.TextWidth(trimTrailingSpace(text)),
			Break: brk,
		})
		builder.Reset()
	}

	for _, tok := range tokenize(content) {
		switch tok.kind {
		case tokenBreak:
			emit(tok.text)
		case tokenSpace:
			// 空白挂在当前行末尾，不参与宽度比较
			builder.WriteString(tok.text)
		case tokenWord:
			if builder.Len() > 0 && m.TextWidth(builder.String()+tok.text) > limit {
				emit("")
			}
			if m.TextWidth(builder.String()+tok.text) <= limit {
				builder.WriteString(tok.text)
				continue
			}
			// 走到这里时当前行一定为空：词本身超宽，按字符硬断开
			chunks := splitTokenByWidth(tok.text, limit, m)
			for i, chunk := range chunks {
				builder.WriteString(chunk)
				if i < len(chunks)-1 {
					emit("")
				}
			}
		}
	}
	if builder.Len() > 0 {
		emit("")
	}
	return lines
}

// tokenize 将文本切分为词、空白与硬换行三类记号，"\r\n" 视为一个硬换行。
func tokenize(s string) []token {
	var tokens []token
	var builder strings.Builder
	kind := tokenWord
	flush := func() {
		if builder.Len() == 0 {
			return
		}
		tokens = append(tokens, token{kind: kind, text: builder.String()})
		builder.Reset()
	}

	for i := 0; i < len(s); {
		r, size := utf8.DecodeRuneInString(s[i:])
		switch {
		case r == '\n':
			flush()
			tokens = append(tokens, token{kind: tokenBreak, text: "\n"})
		case r == '\r' && strings.HasPrefix(s[i+size:], "\n"):
			flush()
			tokens = append(tokens, token{kind: tokenBreak, text: "\r\n"})
			size++
		default:
			k := tokenWord
			if unicode.IsSpace(r) {
				k = tokenSpace
			}
			if builder.Len() > 0 && k != kind {
				flush()
			}
			kind = k
			// 保留原始字节，非法 UTF-8 也不会丢失
			builder.WriteString(s[i : i+size])
		}
		i += size
	}
	flush()
	return tokens
}

// splitTokenByWidth 按宽度把超长的词切成若干段，每段至少包含一个字符。
func splitTokenByWidth(token string, limit float64, m Measurer) []string {
	var parts []string
	var builder strings.Builder
	for i := 0; i < len(token); {
		_, size := utf8.DecodeRuneInString(token[i:])
		r := token[i : i+size]
		if builder.Len() > 0 && m.TextWidth(builder.String()+r) > limit {
			parts = append(parts, builder.String())
			builder.Reset()
		}
		builder.WriteString(r)
		i += size
	}
	if builder.Len() > 0 {
		parts = append(parts, builder.String())
	}
	return parts
}

func trimTrailingSpace(s string) string {
	return strings.TrimRightFunc(s, unicode.IsSpace)
}
