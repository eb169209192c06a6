// Package renderer 定义分页结果到文件字节的输出接口。
package renderer

import "github.com/ByLCY/quire/layout"

// Renderer 将分页结果输出为最终文件，例如 PDF。
// Render 返回生成的二进制数据以及可能的错误；结果为空或没有页面时必须返回错误。
type Renderer interface {
	Render(result *layout.Result) ([]byte, error)
}

// Func 让普通函数满足 Renderer 接口，便于在测试中替换渲染后端。
type Func func(result *layout.Result) ([]byte, error)

// Render implements Renderer.
func (f Func) Render(result *layout.Result) ([]byte, error) { return f(result) }
