// Package dsl 解析并执行批处理配方（recipe）：按顺序描述加载、合并、旋转、编号、
// 压缩、拆分与保存等步骤。
package dsl

import (
	"fmt"
	"io"
	"strconv"

	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"
)

var (
	recipeLexer = lexer.MustSimple([]lexer.SimpleRule{
		{Name: "Whitespace", Pattern: `[ \t\r]+`},
		{Name: "Newline", Pattern: `\n+`},
		{Name: "BlockComment", Pattern: `/\*[^*]*\*+(?:[^/*][^*]*\*+)*/`},
		{Name: "LineComment", Pattern: `//[^\n]*`},
		{Name: "HashComment", Pattern: `#[^\n]*`},
		{Name: "Number", Pattern: `[-+]?(?:\d+\.\d+|\d+)(?:mm|cm|in|pt)?`},
		{Name: "String", Pattern: `"(?:\\.|[^"])*"`},
		{Name: "Ident", Pattern: `[A-Za-z_][A-Za-z0-9_-]*`},
		{Name: "Symbol", Pattern: `[;]`},
		{Name: "LBrace", Pattern: `{`},
		{Name: "RBrace", Pattern: `}`},
	})

	kinds = newTokenKinds(recipeLexer.Symbols())

	recipeParser = participle.MustBuild[Recipe](
		participle.Lexer(recipeLexer),
		participle.Elide("Whitespace", "LineComment", "BlockComment", "HashComment"),
	)
)

// Recipe is the root AST node of a recipe file.
type Recipe struct {
	Pos     lexer.Position `parser:"" json:"-"`
	Name    string         `parser:"Newline* 'recipe' @Ident"`
	Version string         `parser:"@Ident"`
	Steps   []*Step        `parser:"'{' Newline* ( @@ ( ';' | Newline )* )* '}' Newline*"`
}

// Step is one instruction: a keyword followed by positional and keyword arguments.
type Step struct {
	Pos  lexer.Position `parser:"" json:"-"`
	Name string         `parser:"@Ident"`
	Args []*Lexeme      `parser:"@@*"`
}

// Lexeme captures a single lexical token used as a step argument.
type Lexeme struct {
	Type  string         `json:"type"`
	Value string         `json:"value"`
	Raw   string         `json:"raw"`
	Pos   lexer.Position `json:"-"`
}

// Parse implements participle.Parseable so Lexeme can act as a grammar atom.
// 参数在换行、花括号或分号处结束。
func (l *Lexeme) Parse(lex *lexer.PeekingLexer) error {
	if kinds.endsArgs(lex.Peek()) {
		return participle.NextMatch
	}
	lexeme, err := newLexeme(*lex.Next())
	if err != nil {
		return err
	}
	*l = lexeme
	return nil
}

// IsString 报告参数是否写成了带引号的字符串。
func (l *Lexeme) IsString() bool { return l.Type == "String" }

// Parse parses a recipe from an io.Reader. name is used in error positions.
func Parse(name string, r io.Reader) (*Recipe, error) {
	return recipeParser.Parse(name, r)
}

// ParseString parses a recipe from a string.
func ParseString(input string) (*Recipe, error) {
	return recipeParser.ParseString("", input)
}

// tokenKinds 缓存词法规则对应的 TokenType，并提供反查。
type tokenKinds struct {
	names map[lexer.TokenType]string

	newline, lbrace, rbrace, symbol, str lexer.TokenType
}

func newTokenKinds(symbols map[string]lexer.TokenType) tokenKinds {
	k := tokenKinds{names: make(map[lexer.TokenType]string, len(symbols))}
	for name, tt := range symbols {
		k.names[tt] = name
	}
	k.newline = symbols["Newline"]
	k.lbrace = symbols["LBrace"]
	k.rbrace = symbols["RBrace"]
	k.symbol = symbols["Symbol"]
	k.str = symbols["String"]
	return k
}

func (k tokenKinds) name(tt lexer.TokenType) string {
	if n, ok := k.names[tt]; ok {
		return n
	}
	return fmt.Sprintf("#%d", tt)
}

// endsArgs 报告 tok 是否结束当前步骤的参数列表。
func (k tokenKinds) endsArgs(tok *lexer.Token) bool {
	if tok == nil || tok.EOF() {
		return true
	}
	switch tok.Type {
	case k.newline, k.lbrace, k.rbrace:
		return true
	case k.symbol:
		return tok.Value == ";"
	}
	return false
}

func newLexeme(tok lexer.Token) (Lexeme, error) {
	l := Lexeme{Type: kinds.name(tok.Type), Value: tok.Value, Raw: tok.Value, Pos: tok.Pos}
	if tok.Type != kinds.str {
		return l, nil
	}
	unquoted, err := strconv.Unquote(tok.Value)
	if err != nil {
		return Lexeme{}, participle.Errorf(tok.Pos, "字符串无效: %v", err)
	}
	l.Value = unquoted
	return l, nil
}
