// Package errs 定义引擎对外暴露的三类错误：参数校验、解析失败与不支持的功能。
// 调用方通过 errors.Is / errors.As 区分错误种类。
package errs

import (
	"errors"
	"fmt"
)

// Sentinel errors for error kinds.
var (
	ErrValidation  = errors.New("validation failed")
	ErrParse       = errors.New("parse failed")
	ErrUnsupported = errors.New("unsupported operation")
)

// ValidationError 表示调用方违反了操作的前置条件，此时不会执行任何工作。
type ValidationError struct {
	Op     string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Op == "" {
		return fmt.Sprintf("参数校验失败: %s", e.Reason)
	}
	return fmt.Sprintf("%s: 参数校验失败: %s", e.Op, e.Reason)
}

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

// Validation 构造一个 ValidationError。
func Validation(op, format string, args ...any) error {
	return &ValidationError{Op: op, Reason: fmt.Sprintf(format, args...)}
}

// Stage names the loader stage that rejected the input.
type Stage string

const (
	StageHeader   Stage = "header"
	StageXRef     Stage = "xref"
	StagePageTree Stage = "page-tree"
)

// ParseError 说明字节流无法解析为 PDF，并指出失败的阶段。
type ParseError struct {
	Stage Stage
	Err   error
}

func (e *ParseError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("解析 PDF 失败（阶段 %s）", e.Stage)
	}
	return fmt.Sprintf("解析 PDF 失败（阶段 %s）: %v", e.Stage, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

func (e *ParseError) Is(target error) bool { return target == ErrParse }

// Parse 构造一个 ParseError。
func Parse(stage Stage, err error) error {
	return &ParseError{Stage: stage, Err: err}
}

// Unsupported 返回一个可被 errors.Is(err, ErrUnsupported) 识别的错误。
func Unsupported(op string) error {
	return fmt.Errorf("%s: %w", op, ErrUnsupported)
}

// StageOf 返回 err 链中 ParseError 的阶段；不是解析错误时返回空串。
func StageOf(err error) Stage {
	var pe *ParseError
	if errors.As(err, &pe) {
		return pe.Stage
	}
	return ""
}
