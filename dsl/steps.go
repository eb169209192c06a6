package dsl

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/ByLCY/quire/document"
	"github.com/ByLCY/quire/errs"
	"github.com/ByLCY/quire/fonts"
	"github.com/ByLCY/quire/layout"
)

// Kind 是步骤类型。
type Kind string

const (
	KindLoad     Kind = "load"
	KindText     Kind = "text"
	KindMerge    Kind = "merge"
	KindSplit    Kind = "split"
	KindRotate   Kind = "rotate"
	KindNumber   Kind = "number"
	KindCompress Kind = "compress"
	KindSave     Kind = "save"
)

// Op 是经过校验的步骤，执行阶段不再需要检查参数。
type Op struct {
	Kind Kind
	Line int

	Path    string                  // load / text / save
	Text    layout.TextOptions      // text
	Degrees int                     // rotate
	Numbers document.PageNumberSpec // number
}

// Compile 校验配方中的每一步并转换为 Op。错误信息带有步骤所在的行号。
func Compile(rec *Recipe, defaults Defaults) ([]Op, error) {
	if rec == nil {
		return nil, errs.Validation("recipe", "配方为空")
	}
	if len(rec.Steps) == 0 {
		return nil, errs.Validation("recipe", "配方 %s 没有任何步骤", rec.Name)
	}
	ops := make([]Op, 0, len(rec.Steps))
	for _, st := range rec.Steps {
		op, err := compileStep(st, defaults)
		if err != nil {
			return nil, errs.Validation("recipe", "第 %d 行 %s: %v", st.Pos.Line, st.Name, err)
		}
		ops = append(ops, op)
	}
	return ops, nil
}

// Defaults 提供配方未写明的参数，通常来自配置文件。
type Defaults struct {
	Text    layout.TextOptions
	Numbers document.PageNumberSpec
}

func compileStep(st *Step, defaults Defaults) (Op, error) {
	op := Op{Kind: Kind(st.Name), Line: st.Pos.Line}
	args := st.Args
	switch op.Kind {
	case KindLoad, KindSave:
		path, rest, err := takePath(args)
		if err != nil {
			return op, err
		}
		if len(rest) > 0 {
			return op, fmt.Errorf("多余的参数 %q", rest[0].Raw)
		}
		op.Path = path
	case KindText:
		path, rest, err := takePath(args)
		if err != nil {
			return op, err
		}
		op.Path = path
		op.Text = defaults.Text
		if err := keywordArgs(rest, map[string]func(string) error{
			"font":   func(v string) (err error) { op.Text.FontFamily, err = fonts.ParseFamily(v); return },
			"size":   func(v string) (err error) { op.Text.FontSize, err = parsePositive(v); return },
			"page":   func(v string) (err error) { op.Text.PageSize, err = layout.ParsePageSize(v); return },
			"margin": func(v string) (err error) { op.Text.Margin, err = parseMargin(v); return },
		}); err != nil {
			return op, err
		}
	case KindRotate:
		op.Degrees = 90
		switch len(args) {
		case 0:
		case 1:
			d, err := strconv.Atoi(args[0].Value)
			if err != nil {
				return op, fmt.Errorf("角度必须是整数，实际为 %q", args[0].Raw)
			}
			op.Degrees = d
		default:
			return op, fmt.Errorf("多余的参数 %q", args[1].Raw)
		}
	case KindNumber:
		op.Numbers = defaults.Numbers
		if len(args) > 0 && args[0].Type == "Ident" {
			if _, isKeyword := numberKeywords[args[0].Value]; !isKeyword {
				pos, err := document.ParsePosition(args[0].Value)
				if err != nil {
					return op, err
				}
				op.Numbers.Position = pos
				args = args[1:]
			}
		}
		if err := keywordArgs(args, map[string]func(string) error{
			"size":  func(v string) (err error) { op.Numbers.FontSize, err = parsePositive(v); return },
			"start": func(v string) (err error) { op.Numbers.StartPage, err = strconv.Atoi(v); return },
		}); err != nil {
			return op, err
		}
	case KindMerge, KindSplit, KindCompress:
		if len(args) > 0 {
			return op, fmt.Errorf("不接受参数，实际为 %q", args[0].Raw)
		}
	default:
		return op, fmt.Errorf("未知步骤")
	}
	return op, nil
}

var numberKeywords = map[string]struct{}{"size": {}, "start": {}}

func takePath(args []*Lexeme) (string, []*Lexeme, error) {
	if len(args) == 0 || !args[0].IsString() {
		return "", nil, fmt.Errorf("需要一个带引号的文件路径")
	}
	if strings.TrimSpace(args[0].Value) == "" {
		return "", nil, fmt.Errorf("文件路径为空")
	}
	return args[0].Value, args[1:], nil
}

// keywordArgs 解析 `key value` 成对出现的参数。
func keywordArgs(args []*Lexeme, setters map[string]func(string) error) error {
	for i := 0; i < len(args); i += 2 {
		key := args[i].Value
		set, ok := setters[key]
		if !ok {
			return fmt.Errorf("未知参数 %q", args[i].Raw)
		}
		if i+1 >= len(args) {
			return fmt.Errorf("参数 %s 缺少取值", key)
		}
		if err := set(args[i+1].Value); err != nil {
			return fmt.Errorf("参数 %s: %w", key, err)
		}
	}
	return nil
}

func parsePositive(v string) (float64, error) {
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, err
	}
	if f <= 0 {
		return 0, fmt.Errorf("必须为正数，实际为 %g", f)
	}
	return f, nil
}

// parseMargin 接受不带单位的毫米数或带单位的长度（如 1in、18mm）。
func parseMargin(v string) (float64, error) {
	l, err := layout.ParseLength(v)
	if err != nil {
		return 0, err
	}
	return l.ToMM(), nil
}
