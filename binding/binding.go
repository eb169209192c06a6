// Package binding 把 ${path.to.value} 形式的占位符替换为数据中的值，
// 配方用它生成输出文件名。
package binding

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/ByLCY/quire/errs"
)

var exprPattern = regexp.MustCompile(`\$\{([^}]+)\}`)

// Vars 是占位符可以引用的数据，通常由 JSON 解码得到。
type Vars map[string]any

// Interpolate 将文本中的 ${path.to.value} 替换为 data 中的值。
// 若 data 为空或路径不存在，则保留原占位符。
func Interpolate(text string, data Vars) string {
	out, _ := expand(text, data)
	return out
}

// Expand 与 Interpolate 相同，但只要有占位符无法解析就返回 ValidationError，
// 用于不允许残留 ${...} 的场景（例如文件名）。
func Expand(text string, data Vars) (string, error) {
	out, missing := expand(text, data)
	if len(missing) > 0 {
		return "", errs.Validation("interpolate", "%q 中的变量无法解析: %s", text, strings.Join(missing, ", "))
	}
	return out, nil
}

func expand(text string, data Vars) (string, []string) {
	var missing []string
	out := exprPattern.ReplaceAllStringFunc(text, func(match string) string {
		path := strings.TrimSpace(match[2 : len(match)-1])
		if path != "" && data != nil {
			if val, ok := resolvePath(map[string]any(data), path); ok {
				return format(val)
			}
		}
		missing = append(missing, match)
		return match
	})
	return out, missing
}

func format(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case float64:
		// JSON 数字解码为 float64，整数值不输出小数部分
		return strconv.FormatFloat(x, 'f', -1, 64)
	default:
		return fmt.Sprint(x)
	}
}

func resolvePath(data any, path string) (any, bool) {
	current := data
	for _, segment := range strings.Split(path, ".") {
		name, indexes := parseSegment(segment)
		if name != "" {
			var ok bool
			current, ok = descendMap(current, name)
			if !ok {
				return nil, false
			}
		}
		for _, idxStr := range indexes {
			idx, err := strconv.Atoi(idxStr)
			if err != nil {
				return nil, false
			}
			var ok bool
			current, ok = descendArray(current, idx)
			if !ok {
				return nil, false
			}
		}
	}
	return current, true
}

// parseSegment 拆分 "items[0][1]" 这样的路径段。
func parseSegment(segment string) (string, []string) {
	name := segment
	var indexes []string
	if i := strings.IndexByte(segment, '['); i != -1 {
		name = segment[:i]
		rest := segment[i:]
		for len(rest) > 0 && rest[0] == '[' {
			end := strings.IndexByte(rest, ']')
			if end == -1 {
				break
			}
			indexes = append(indexes, rest[1:end])
			rest = rest[end+1:]
		}
	}
	return name, indexes
}

func descendMap(current any, key string) (any, bool) {
	switch c := current.(type) {
	case map[string]any:
		val, ok := c[key]
		return val, ok
	case Vars:
		val, ok := c[key]
		return val, ok
	case map[string]string:
		val, ok := c[key]
		return val, ok
	default:
		return nil, false
	}
}

func descendArray(current any, idx int) (any, bool) {
	switch c := current.(type) {
	case []any:
		if idx < 0 || idx >= len(c) {
			return nil, false
		}
		return c[idx], true
	case []string:
		if idx < 0 || idx >= len(c) {
			return nil, false
		}
		return c[idx], true
	default:
		return nil, false
	}
}
