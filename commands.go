package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/ByLCY/quire/auth"
	"github.com/ByLCY/quire/binding"
	"github.com/ByLCY/quire/config"
	"github.com/ByLCY/quire/document"
	"github.com/ByLCY/quire/dsl"
	"github.com/ByLCY/quire/engine"
	"github.com/ByLCY/quire/errs"
	"github.com/ByLCY/quire/fonts"
	"github.com/ByLCY/quire/layout"
	"github.com/ByLCY/quire/server"
)

func cmdText(ctx context.Context, a *app, args []string) error {
	fs := a.flagSet("text", "")
	in := fs.StringP("in", "i", "", "输入文本文件，- 表示标准输入")
	out := fs.StringP("out", "o", "", "PDF 输出路径")
	font := fs.String("font", "", "字体族：helvetica、times、courier")
	size := fs.Float64("font-size", 0, "字号（pt）")
	page := fs.String("page-size", "", "纸张：A4、Letter、Legal")
	margin := fs.String("margin", "", "页边距，例如 20、20mm、1in")
	title := fs.String("title", "", "PDF 文档标题")
	debug := fs.String("debug", "", "布局调试 JSON 输出路径")
	if err := a.parse(fs, args); err != nil {
		return err
	}
	if *in == "" || *out == "" {
		return usageErrorf("需要 --in 与 --out")
	}

	const op = "text"
	opts := a.cfg.Text
	if fs.Changed("font") {
		f, err := fonts.ParseFamily(*font)
		if err != nil {
			return errs.Validation(op, "%v", err)
		}
		opts.FontFamily = f
	}
	if fs.Changed("font-size") {
		if *size <= 0 {
			return errs.Validation(op, "字号必须为正数，实际为 %g", *size)
		}
		opts.FontSize = *size
	}
	if fs.Changed("page-size") {
		p, err := layout.ParsePageSize(*page)
		if err != nil {
			return errs.Validation(op, "%v", err)
		}
		opts.PageSize = p
	}
	if fs.Changed("margin") {
		l, err := layout.ParseLength(*margin)
		if err != nil {
			return errs.Validation(op, "%v", err)
		}
		opts.Margin = l.ToMM()
	}
	if fs.Changed("title") {
		opts.Title = *title
	}

	text, err := a.readText(*in)
	if err != nil {
		return err
	}
	if *debug != "" {
		res, err := a.engine.Layout(text, opts)
		if err != nil {
			return err
		}
		if err := writeDebug(res, *debug); err != nil {
			return err
		}
	}
	res, err := a.engine.TextToPDF(ctx, text, opts)
	if err != nil {
		return err
	}
	return a.emit(*out, res.Data)
}

func (a *app) readText(path string) (string, error) {
	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(a.stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return "", fmt.Errorf("读取文本: %w", err)
	}
	return string(data), nil
}

func writeDebug(res *layout.Result, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("创建调试目录失败: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("创建调试文件失败: %w", err)
	}
	defer f.Close()
	if err := layout.WriteDebugJSON(res, f); err != nil {
		return fmt.Errorf("输出调试 JSON 失败: %w", err)
	}
	return f.Close()
}

func cmdMerge(ctx context.Context, a *app, args []string) error {
	fs := a.flagSet("merge", "a.pdf b.pdf ...")
	out := fs.StringP("out", "o", engine.MergedName, "PDF 输出路径")
	if err := a.parse(fs, args); err != nil {
		return err
	}
	return a.single(ctx, fs.Args(), *out, a.engine.Merge)
}

func cmdCompress(ctx context.Context, a *app, args []string) error {
	fs := a.flagSet("compress", "in.pdf")
	out := fs.StringP("out", "o", engine.CompressedName, "PDF 输出路径")
	if err := a.parse(fs, args); err != nil {
		return err
	}
	return a.single(ctx, fs.Args(), *out, a.engine.Compress)
}

func cmdRotate(ctx context.Context, a *app, args []string) error {
	fs := a.flagSet("rotate", "in.pdf")
	out := fs.StringP("out", "o", engine.RotatedName, "PDF 输出路径")
	degrees := fs.Int("degrees", engine.DefaultRotation, "顺时针旋转角度，四舍五入到 90 的倍数")
	if err := a.parse(fs, args); err != nil {
		return err
	}
	return a.single(ctx, fs.Args(), *out, func(ctx context.Context, in []engine.Input) (engine.Output, error) {
		return a.engine.Rotate(ctx, in, *degrees)
	})
}

func cmdNumber(ctx context.Context, a *app, args []string) error {
	fs := a.flagSet("number", "in.pdf")
	out := fs.StringP("out", "o", engine.NumberedName, "PDF 输出路径")
	position := fs.String("position", "", "位置：top-center、bottom-center、bottom-left、bottom-right")
	size := fs.Float64("font-size", 0, "页码字号（pt）")
	start := fs.Int("start", 0, "第一页的页码")
	if err := a.parse(fs, args); err != nil {
		return err
	}
	spec := a.cfg.Numbering
	if fs.Changed("position") {
		p, err := document.ParsePosition(*position)
		if err != nil {
			return errs.Validation("page-numbers", "%v", err)
		}
		spec.Position = p
	}
	if fs.Changed("font-size") {
		spec.FontSize = *size
	}
	if fs.Changed("start") {
		spec.StartPage = *start
	}
	return a.single(ctx, fs.Args(), *out, func(ctx context.Context, in []engine.Input) (engine.Output, error) {
		return a.engine.AddPageNumbers(ctx, in, spec)
	})
}

// single 运行一个产出单个 PDF 的操作。
func (a *app) single(ctx context.Context, paths []string, out string, op func(context.Context, []engine.Input) (engine.Output, error)) error {
	if len(paths) == 0 {
		return usageErrorf("缺少输入文件")
	}
	inputs, err := readInputs(paths)
	if err != nil {
		return err
	}
	res, err := op(ctx, inputs)
	if err != nil {
		return err
	}
	return a.emit(out, res.Data)
}

func (a *app) emit(path string, data []byte) error {
	if err := writeFile(path, data); err != nil {
		return err
	}
	fmt.Fprintf(a.stdout, "已生成 PDF：%s\n", path)
	return nil
}

func cmdSplit(ctx context.Context, a *app, args []string) error {
	fs := a.flagSet("split", "in.pdf")
	dir := fs.StringP("dir", "d", ".", "输出目录")
	if err := a.parse(fs, args); err != nil {
		return err
	}
	if fs.NArg() == 0 {
		return usageErrorf("缺少输入文件")
	}
	inputs, err := readInputs(fs.Args())
	if err != nil {
		return err
	}
	outs, err := a.engine.Split(ctx, inputs)
	if err != nil {
		return err
	}
	for _, out := range outs {
		if err := a.emit(filepath.Join(*dir, out.Name), out.Data); err != nil {
			return err
		}
	}
	return nil
}

func cmdRun(ctx context.Context, a *app, args []string) error {
	fs := a.flagSet("run", "recipe.quire")
	data := fs.String("data", "", "绑定到文件名模板的 JSON 数据")
	if err := a.parse(fs, args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return usageErrorf("需要且只需要一个配方文件")
	}
	path := fs.Arg(0)

	var vars binding.Vars
	if *data != "" {
		if err := json.Unmarshal([]byte(*data), &vars); err != nil {
			return usageErrorf("解析 --data JSON 失败: %v", err)
		}
	}
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("打开配方: %w", err)
	}
	defer f.Close()
	rec, err := dsl.Parse(filepath.Base(path), f)
	if err != nil {
		return fmt.Errorf("解析配方: %w", err)
	}

	r := &dsl.Runner{
		Engine:   a.engine,
		Files:    dsl.Dir(filepath.Dir(path)),
		Defaults: dsl.Defaults{Text: a.cfg.Text, Numbers: a.cfg.Numbering},
		Vars:     vars,
	}
	if a.verbose {
		r.Logf = func(format string, args ...any) { log.Printf("[INFO] "+format, args...) }
	}
	saved, err := r.Run(ctx, rec)
	for _, name := range saved {
		fmt.Fprintf(a.stdout, "已生成 PDF：%s\n", name)
	}
	return err
}

func cmdServe(ctx context.Context, a *app, args []string) error {
	fs := a.flagSet("serve", "")
	addr := fs.String("addr", "", "监听地址，默认取配置文件中的 server.addr")
	if err := a.parse(fs, args); err != nil {
		return err
	}
	cfg := a.cfg
	if fs.Changed("addr") {
		cfg.Server.Addr = *addr
	}
	if cfg.Server.JWTSecret == "" {
		return errs.Validation("serve", "未配置令牌签名密钥，请设置 server.jwtSecret 或环境变量 %s", config.EnvJWTSecret)
	}
	ttl, err := cfg.Server.TTL()
	if err != nil {
		return err
	}

	var store auth.Store = auth.NewMemoryStore()
	if cfg.Redis.Addr != "" {
		rs := auth.NewRedisStore(auth.RedisOptions{Addr: cfg.Redis.Addr, Password: cfg.Redis.Password, DB: cfg.Redis.DB})
		defer rs.Close()
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		err := rs.Ping(pingCtx)
		cancel()
		if err != nil {
			return fmt.Errorf("连接 redis %s 失败: %w", cfg.Redis.Addr, err)
		}
		store = rs
	} else {
		log.Printf("[WARN] 未配置 redis，用户数据只保存在内存中")
	}
	svc, err := auth.NewService(store, []byte(cfg.Server.JWTSecret), auth.WithTTL(ttl))
	if err != nil {
		return err
	}

	handler := server.New(a.engine, svc, server.Options{
		MaxUploadBytes: int64(cfg.Server.MaxUploadMB) << 20,
		Text:           cfg.Text,
		Numbering:      cfg.Numbering,
	}).Handler()
	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()
	fmt.Fprintf(a.stdout, "quire 服务监听于 %s\n", cfg.Server.Addr)

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("关闭服务: %w", err)
	}
	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
