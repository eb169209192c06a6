package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/alecthomas/participle/v2"
	"github.com/spf13/pflag"
	"go.uber.org/automaxprocs/maxprocs"

	"github.com/ByLCY/quire/config"
	"github.com/ByLCY/quire/engine"
	"github.com/ByLCY/quire/errs"
)

// 退出码。
const (
	exitOK = iota
	exitGeneral
	exitUsage
	exitIO
	exitParse
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdin, os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

type command struct {
	name    string
	summary string
	run     func(ctx context.Context, a *app, args []string) error
}

var commands = []command{
	{"text", "把纯文本转换为 PDF", cmdText},
	{"merge", "按顺序合并多个 PDF", cmdMerge},
	{"split", "把 PDF 拆分为单页文件", cmdSplit},
	{"compress", "压缩 PDF", cmdCompress},
	{"rotate", "旋转全部页面", cmdRotate},
	{"number", "添加页码", cmdNumber},
	{"run", "执行配方文件", cmdRun},
	{"serve", "启动 HTTP 服务", cmdServe},
}

// app 保存一次调用共享的状态，由各子命令的 flag 解析后填充。
type app struct {
	stdin          io.Reader
	stdout, stderr io.Writer

	configPath string
	verbose    bool

	cfg    *config.Config
	engine *engine.Engine
}

func run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	if len(args) == 0 {
		usage(stderr)
		return exitUsage
	}
	name, rest := args[0], args[1:]
	switch name {
	case "-h", "--help", "help":
		usage(stdout)
		return exitOK
	}
	var cmd *command
	for i := range commands {
		if commands[i].name == name {
			cmd = &commands[i]
		}
	}
	if cmd == nil {
		fmt.Fprintf(stderr, "未知命令：%s\n\n", name)
		usage(stderr)
		return exitUsage
	}

	a := &app{stdin: stdin, stdout: stdout, stderr: stderr}
	err := cmd.run(ctx, a, rest)
	if errors.Is(err, pflag.ErrHelp) {
		return exitOK
	}
	if err != nil {
		fmt.Fprintf(stderr, "quire %s: %v\n", name, err)
	}
	return exitCode(err)
}

func usage(w io.Writer) {
	fmt.Fprintln(w, "用法：quire <命令> [参数]")
	fmt.Fprintln(w)
	for _, c := range commands {
		fmt.Fprintf(w, "  %-9s %s\n", c.name, c.summary)
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w, "每个命令都接受 --config 与 --verbose；quire <命令> --help 查看详细参数。")
}

// usageError 表示命令行参数本身有误。
type usageError struct{ msg string }

func (e usageError) Error() string { return e.msg }

func usageErrorf(format string, args ...any) error {
	return usageError{msg: fmt.Sprintf(format, args...)}
}

// exitCode 把错误种类映射为退出码。配方语法错误按用法错误处理。
func exitCode(err error) int {
	var (
		badUsage  usageError
		syntaxErr participle.Error
		pathErr   *fs.PathError
	)
	switch {
	case err == nil:
		return exitOK
	case errors.As(err, &badUsage),
		errors.As(err, &syntaxErr),
		errors.Is(err, errs.ErrValidation),
		errors.Is(err, config.ErrInvalidConfig):
		return exitUsage
	case errors.Is(err, errs.ErrParse), errors.Is(err, config.ErrConfigParse):
		return exitParse
	case errors.As(err, &pathErr), errors.Is(err, config.ErrConfigNotFound):
		return exitIO
	default:
		return exitGeneral
	}
}

// flagSet 创建子命令的 FlagSet，并注册所有命令共享的参数。
func (a *app) flagSet(name, args string) *pflag.FlagSet {
	flags := pflag.NewFlagSet(name, pflag.ContinueOnError)
	flags.SetOutput(a.stderr)
	flags.SortFlags = false
	flags.Usage = func() {
		fmt.Fprintf(a.stderr, "用法：quire %s [参数] %s\n", name, args)
		flags.PrintDefaults()
	}
	flags.StringVar(&a.configPath, "config", "", "YAML 配置文件路径")
	flags.BoolVarP(&a.verbose, "verbose", "v", false, "输出详细日志")
	return flags
}

// parse 解析参数并加载配置。
func (a *app) parse(flags *pflag.FlagSet, args []string) error {
	if err := flags.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return err
		}
		return usageErrorf("%v", err)
	}
	if _, err := maxprocs.Set(maxprocs.Logger(a.logf)); err != nil {
		a.logf("[WARN] automaxprocs: %v", err)
	}
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}
	a.cfg = cfg
	a.engine = engine.New()
	return nil
}

func (a *app) logf(format string, args ...any) {
	if a.verbose {
		log.Printf(format, args...)
	}
}

// readInputs 读取位置参数中的 PDF 文件。媒体类型留空，由加载器判断。
func readInputs(paths []string) ([]engine.Input, error) {
	inputs := make([]engine.Input, 0, len(paths))
	for _, p := range paths {
		data, err := os.ReadFile(p)
		if err != nil {
			return nil, fmt.Errorf("读取输入文件: %w", err)
		}
		inputs = append(inputs, engine.Input{Name: filepath.Base(p), Data: data})
	}
	return inputs, nil
}

func writeFile(path string, data []byte) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("创建输出目录: %w", err)
		}
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("写入输出文件: %w", err)
	}
	return nil
}
