// Package server 通过 HTTP 暴露文档转换引擎。除注册与登录外，所有接口都需要 Bearer 令牌。
package server

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"mime"
	"net/http"
	"strconv"
	"time"

	"github.com/ByLCY/quire/auth"
	"github.com/ByLCY/quire/document"
	"github.com/ByLCY/quire/engine"
	"github.com/ByLCY/quire/errs"
	"github.com/ByLCY/quire/layout"
)

// SplitArchiveName 是拆分结果压缩包的文件名。
const SplitArchiveName = "split-document.zip"

const defaultMaxUpload = 64 << 20

// Options 配置服务。零值字段使用默认值。
type Options struct {
	MaxUploadBytes int64
	Text           layout.TextOptions
	Numbering      document.PageNumberSpec
}

// Server 处理 HTTP 请求。
type Server struct {
	engine *engine.Engine
	auth   *auth.Service
	opts   Options
}

// New 创建服务。
func New(e *engine.Engine, a *auth.Service, opts Options) *Server {
	if opts.MaxUploadBytes <= 0 {
		opts.MaxUploadBytes = defaultMaxUpload
	}
	opts.Text = opts.Text.WithDefaults()
	if opts.Numbering == (document.PageNumberSpec{}) {
		opts.Numbering = document.DefaultPageNumberSpec()
	}
	return &Server{engine: e, auth: a, opts: opts}
}

// Handler 返回挂好全部路由的 http.Handler。
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /v1/auth/register", s.handleRegister)
	mux.HandleFunc("POST /v1/auth/login", s.handleLogin)

	protected := map[string]http.HandlerFunc{
		"POST /v1/text":         s.handleText,
		"POST /v1/merge":        s.handleMerge,
		"POST /v1/split":        s.handleSplit,
		"POST /v1/compress":     s.handleCompress,
		"POST /v1/rotate":       s.handleRotate,
		"POST /v1/number":       s.handleNumber,
		"POST /v1/extract-text": s.handleExtractText,
	}
	for pattern, h := range protected {
		mux.Handle(pattern, s.requireAuth(h))
	}
	return logRequests(mux)
}

// ---- auth ----

type credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name,omitempty"`
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var body credentials
	if err := s.decodeJSON(w, r, &body); err != nil {
		writeError(w, err)
		return
	}
	u, err := s.auth.Register(r.Context(), body.Email, body.Password, body.Name)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"id": u.ID, "email": u.Email})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var body credentials
	if err := s.decodeJSON(w, r, &body); err != nil {
		writeError(w, err)
		return
	}
	token, err := s.auth.Login(r.Context(), body.Email, body.Password)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"token": token})
}

type claimsKey struct{}

// ClaimsFrom 返回经过认证的请求中的令牌声明。
func ClaimsFrom(ctx context.Context) (*auth.Claims, bool) {
	c, ok := ctx.Value(claimsKey{}).(*auth.Claims)
	return c, ok
}

func (s *Server) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := ExtractBearerToken(r.Header.Get("Authorization"))
		if token == "" {
			w.Header().Set("WWW-Authenticate", "Bearer")
			writeError(w, fmt.Errorf("missing bearer token: %w", auth.ErrInvalidToken))
			return
		}
		claims, err := s.auth.Verify(token)
		if err != nil {
			w.Header().Set("WWW-Authenticate", `Bearer error="invalid_token"`)
			writeError(w, err)
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), claimsKey{}, claims)))
	})
}

// ExtractBearerToken returns the token of an "Authorization: Bearer <token>" header.
func ExtractBearerToken(header string) string {
	const prefix = "Bearer "
	if len(header) > len(prefix) && header[:len(prefix)] == prefix {
		return header[len(prefix):]
	}
	return ""
}

// ---- documents ----

type textRequest struct {
	Text    string             `json:"text"`
	Options layout.TextOptions `json:"options"`
}

func (s *Server) handleText(w http.ResponseWriter, r *http.Request) {
	req := textRequest{Options: s.opts.Text}
	if err := s.decodeJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}
	out, err := s.engine.TextToPDF(r.Context(), req.Text, req.Options)
	if err != nil {
		writeError(w, err)
		return
	}
	writePDF(w, out.Name, out.Data)
}

func (s *Server) handleMerge(w http.ResponseWriter, r *http.Request) {
	s.withInputs(w, r, func(inputs []engine.Input) (engine.Output, error) {
		return s.engine.Merge(r.Context(), inputs)
	})
}

func (s *Server) handleCompress(w http.ResponseWriter, r *http.Request) {
	s.withInputs(w, r, func(inputs []engine.Input) (engine.Output, error) {
		return s.engine.Compress(r.Context(), inputs)
	})
}

func (s *Server) handleRotate(w http.ResponseWriter, r *http.Request) {
	degrees := engine.DefaultRotation
	if v := r.URL.Query().Get("degrees"); v != "" {
		d, err := strconv.Atoi(v)
		if err != nil {
			writeError(w, errs.Validation("rotate", "degrees 必须是整数，实际为 %q", v))
			return
		}
		degrees = d
	}
	s.withInputs(w, r, func(inputs []engine.Input) (engine.Output, error) {
		return s.engine.Rotate(r.Context(), inputs, degrees)
	})
}

func (s *Server) handleNumber(w http.ResponseWriter, r *http.Request) {
	spec, err := s.numberSpec(r)
	if err != nil {
		writeError(w, err)
		return
	}
	s.withInputs(w, r, func(inputs []engine.Input) (engine.Output, error) {
		return s.engine.AddPageNumbers(r.Context(), inputs, spec)
	})
}

func (s *Server) numberSpec(r *http.Request) (document.PageNumberSpec, error) {
	const op = "page-numbers"
	spec := s.opts.Numbering
	q := r.URL.Query()
	if v := q.Get("position"); v != "" {
		pos, err := document.ParsePosition(v)
		if err != nil {
			return spec, errs.Validation(op, "%v", err)
		}
		spec.Position = pos
	}
	if v := q.Get("size"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return spec, errs.Validation(op, "size 必须是数字，实际为 %q", v)
		}
		spec.FontSize = f
	}
	if v := q.Get("start"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return spec, errs.Validation(op, "start 必须是整数，实际为 %q", v)
		}
		spec.StartPage = n
	}
	return spec, nil
}

func (s *Server) handleSplit(w http.ResponseWriter, r *http.Request) {
	inputs, err := s.readInputs(w, r)
	if err != nil {
		writeError(w, err)
		return
	}
	outs, err := s.engine.Split(r.Context(), inputs)
	if err != nil {
		writeError(w, err)
		return
	}
	archive, err := zipOutputs(outs)
	if err != nil {
		writeError(w, err)
		return
	}
	writeAttachment(w, "application/zip", SplitArchiveName, archive)
}

func (s *Server) handleExtractText(w http.ResponseWriter, r *http.Request) {
	inputs, err := s.readInputs(w, r)
	if err != nil {
		writeError(w, err)
		return
	}
	text, err := s.engine.ExtractText(r.Context(), inputs)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"text": text})
}

func (s *Server) withInputs(w http.ResponseWriter, r *http.Request, run func([]engine.Input) (engine.Output, error)) {
	inputs, err := s.readInputs(w, r)
	if err != nil {
		writeError(w, err)
		return
	}
	out, err := run(inputs)
	if err != nil {
		writeError(w, err)
		return
	}
	writePDF(w, out.Name, out.Data)
}

// readInputs 读取 multipart 表单中全部名为 file 的文件，保持上传顺序。
func (s *Server) readInputs(w http.ResponseWriter, r *http.Request) ([]engine.Input, error) {
	r.Body = http.MaxBytesReader(w, r.Body, s.opts.MaxUploadBytes)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, err
		}
		return nil, errs.Validation("upload", "无法解析 multipart 表单: %v", err)
	}
	defer r.MultipartForm.RemoveAll()

	headers := r.MultipartForm.File["file"]
	inputs := make([]engine.Input, 0, len(headers))
	for _, fh := range headers {
		f, err := fh.Open()
		if err != nil {
			return nil, fmt.Errorf("opening upload %s: %w", fh.Filename, err)
		}
		data, err := io.ReadAll(f)
		f.Close()
		if err != nil {
			return nil, fmt.Errorf("reading upload %s: %w", fh.Filename, err)
		}
		inputs = append(inputs, engine.Input{
			Name:      fh.Filename,
			MediaType: declaredType(fh.Header.Get("Content-Type")),
			Data:      data,
		})
	}
	return inputs, nil
}

// declaredType 返回上传时声明的媒体类型；application/octet-stream 视为未声明。
func declaredType(header string) string {
	if header == "" {
		return ""
	}
	mt, _, err := mime.ParseMediaType(header)
	if err != nil || mt == "application/octet-stream" {
		return ""
	}
	return mt
}

func zipOutputs(outs []engine.Output) ([]byte, error) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, out := range outs {
		f, err := zw.Create(out.Name)
		if err != nil {
			return nil, err
		}
		if _, err := f.Write(out.Data); err != nil {
			return nil, err
		}
	}
	if err := zw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (s *Server) decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, s.opts.MaxUploadBytes)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return err
		}
		return errs.Validation("request", "请求体不是有效的 JSON: %v", err)
	}
	return nil
}

// ---- logging ----

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		log.Printf("[INFO] %s %s %d %s", r.Method, r.URL.Path, rec.status, time.Since(start).Round(time.Millisecond))
	})
}
