package fonts

import (
	"fmt"
	"strings"

	"github.com/go-fonts/latin-modern/lmroman10regular"
	"golang.org/x/image/font/gofont/gomono"
	"golang.org/x/image/font/gofont/goregular"
)

// Family 是文本转 PDF 支持的字体族。
type Family string

const (
	Helvetica Family = "helvetica"
	Times     Family = "times"
	Courier   Family = "courier"
)

// Families 按固定顺序列出全部字体族。
var Families = []Family{Helvetica, Times, Courier}

// 字体族到内置字体程序的映射：无衬线用 Go Regular，衬线用 Latin Modern Roman，等宽用 Go Mono。
var programs = map[Family][]byte{
	Helvetica: goregular.TTF,
	Times:     lmroman10regular.TTF,
	Courier:   gomono.TTF,
}

// Valid 判断字体族是否受支持。
func (f Family) Valid() bool {
	_, ok := programs[f]
	return ok
}

// ParseFamily 不区分大小写地解析字体族名称。
func ParseFamily(s string) (Family, error) {
	f := Family(strings.ToLower(strings.TrimSpace(s)))
	if !f.Valid() {
		return "", fmt.Errorf("不支持的字体：%s（可选 helvetica / times / courier）", s)
	}
	return f, nil
}

// Load 返回字体族对应的字体程序字节。返回的切片为共享数据，调用方不得修改。
func Load(f Family) ([]byte, error) {
	data, ok := programs[f]
	if !ok {
		return nil, fmt.Errorf("读取内置字体 %s 失败: 未知字体族", f)
	}
	return data, nil
}
