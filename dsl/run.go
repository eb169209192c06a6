package dsl

import (
	"context"
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"strings"

	"github.com/ByLCY/quire/binding"
	"github.com/ByLCY/quire/document"
	"github.com/ByLCY/quire/engine"
	"github.com/ByLCY/quire/errs"
)

// Files 是配方读写文件的位置。
type Files interface {
	ReadFile(name string) ([]byte, error)
	WriteFile(name string, data []byte) error
}

// Dir 以目录为根读写文件；绝对路径原样使用。
type Dir string

func (d Dir) resolve(name string) string {
	if filepath.IsAbs(name) {
		return name
	}
	return filepath.Join(string(d), name)
}

// ReadFile implements Files.
func (d Dir) ReadFile(name string) ([]byte, error) {
	return os.ReadFile(d.resolve(name))
}

// WriteFile implements Files，必要时创建父目录。
func (d Dir) WriteFile(name string, data []byte) error {
	p := d.resolve(name)
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return fmt.Errorf("创建输出目录失败: %w", err)
	}
	return os.WriteFile(p, data, 0o644)
}

// Runner 执行配方。
type Runner struct {
	Engine   *engine.Engine
	Files    Files
	Defaults Defaults
	// Vars 是保存文件名中可以引用的用户数据；name、index、page、recipe 由执行器提供并覆盖同名项。
	Vars binding.Vars
	// Logf 不为空时输出每一步的进度。
	Logf func(format string, args ...any)
}

// member 是工作集中的一个文档。page 只在拆分后才有意义。
type member struct {
	name string
	page int
	doc  *document.Document
}

type state struct {
	recipe  string
	set     []member
	compact bool
	saved   []string
}

// Run 按顺序执行配方的每一步，返回写出的文件名。任一步失败都会立即停止。
func (r *Runner) Run(ctx context.Context, rec *Recipe) ([]string, error) {
	if r.Engine == nil || r.Files == nil {
		return nil, fmt.Errorf("执行器缺少 Engine 或 Files")
	}
	ops, err := Compile(rec, r.Defaults)
	if err != nil {
		return nil, err
	}
	st := &state{recipe: rec.Name}
	for _, op := range ops {
		if err := ctx.Err(); err != nil {
			return st.saved, err
		}
		if err := r.exec(ctx, op, st); err != nil {
			return st.saved, fmt.Errorf("第 %d 行 %s: %w", op.Line, op.Kind, err)
		}
		r.logf("第 %d 行 %s 完成，工作集 %d 个文档", op.Line, op.Kind, len(st.set))
	}
	return st.saved, nil
}

func (r *Runner) logf(format string, args ...any) {
	if r.Logf != nil {
		r.Logf(format, args...)
	}
}

func (r *Runner) exec(ctx context.Context, op Op, st *state) error {
	switch op.Kind {
	case KindLoad:
		data, err := r.Files.ReadFile(op.Path)
		if err != nil {
			return fmt.Errorf("读取 %s 失败: %w", op.Path, err)
		}
		doc, err := r.Engine.Load(ctx, engine.Input{Name: op.Path, MediaType: engine.MediaType, Data: data})
		if err != nil {
			return err
		}
		st.set = append(st.set, member{name: stem(op.Path), doc: doc})
	case KindText:
		data, err := r.Files.ReadFile(op.Path)
		if err != nil {
			return fmt.Errorf("读取 %s 失败: %w", op.Path, err)
		}
		doc, err := r.Engine.TextDocument(ctx, string(data), op.Text)
		if err != nil {
			return err
		}
		st.set = append(st.set, member{name: stem(op.Path), doc: doc})
	case KindMerge:
		docs := make([]*document.Document, len(st.set))
		for i, m := range st.set {
			docs[i] = m.doc
		}
		merged, err := document.Merge(docs...)
		if err != nil {
			return err
		}
		st.set = []member{{name: "merged", doc: merged}}
	case KindSplit:
		if err := requireMembers(st); err != nil {
			return err
		}
		var out []member
		for _, m := range st.set {
			parts, err := document.Split(m.doc)
			if err != nil {
				return err
			}
			for _, p := range parts {
				out = append(out, member{name: m.name, page: p.Number, doc: p.Doc})
			}
		}
		st.set = out
	case KindRotate:
		return transform(st, func(d *document.Document) (*document.Document, error) {
			return document.Rotate(d, op.Degrees)
		})
	case KindNumber:
		return transform(st, func(d *document.Document) (*document.Document, error) {
			return document.NumberPages(d, op.Numbers)
		})
	case KindCompress:
		st.compact = true
	case KindSave:
		return r.save(ctx, op, st)
	default:
		return errs.Validation("recipe", "未知步骤 %s", op.Kind)
	}
	return nil
}

func (r *Runner) save(ctx context.Context, op Op, st *state) error {
	if err := requireMembers(st); err != nil {
		return err
	}
	paths := make([]string, len(st.set))
	seen := make(map[string]int, len(st.set))
	for i, m := range st.set {
		vars := binding.Vars{}
		maps.Copy(vars, r.Vars)
		page := m.page
		if page == 0 {
			page = i + 1
		}
		vars["name"] = m.name
		vars["index"] = i + 1
		vars["page"] = page
		vars["recipe"] = st.recipe
		path, err := binding.Expand(op.Path, vars)
		if err != nil {
			return err
		}
		if prev, dup := seen[path]; dup {
			return errs.Validation("recipe", "第 %d 个与第 %d 个文档都会写入 %s", prev, i+1, path)
		}
		seen[path] = i + 1
		paths[i] = path
	}
	for i, m := range st.set {
		out, err := r.Engine.Save(ctx, m.doc, filepath.Base(paths[i]), st.compact)
		if err != nil {
			return err
		}
		if err := r.Files.WriteFile(paths[i], out.Data); err != nil {
			return fmt.Errorf("写入 %s 失败: %w", paths[i], err)
		}
		st.saved = append(st.saved, paths[i])
	}
	return nil
}

func transform(st *state, fn func(*document.Document) (*document.Document, error)) error {
	if err := requireMembers(st); err != nil {
		return err
	}
	out := make([]member, len(st.set))
	for i, m := range st.set {
		doc, err := fn(m.doc)
		if err != nil {
			return err
		}
		out[i] = member{name: m.name, page: m.page, doc: doc}
	}
	st.set = out
	return nil
}

func requireMembers(st *state) error {
	if len(st.set) == 0 {
		return errs.Validation("recipe", "工作集中没有文档，请先 load 或 text")
	}
	return nil
}

func stem(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
