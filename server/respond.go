package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"

	"github.com/ByLCY/quire/auth"
	"github.com/ByLCY/quire/errs"
)

type errorBody struct {
	Error string `json:"error"`
	Stage string `json:"stage,omitempty"`
}

// writeJSON encodes payload as the response body. Headers are frozen afterwards.
func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Printf("[ERROR] writing JSON to response: %v", err)
	}
}

// writePDF 以附件形式返回 PDF，浏览器会直接触发下载。
func writePDF(w http.ResponseWriter, filename string, data []byte) {
	writeAttachment(w, "application/pdf", filename, data)
}

func writeAttachment(w http.ResponseWriter, contentType, filename string, data []byte) {
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(data); err != nil {
		log.Printf("[ERROR] writing %s to response: %v", contentType, err)
	}
}

// writeError 把错误种类映射为 HTTP 状态码。未知错误只记录日志，不把细节返回给客户端。
func writeError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	body := errorBody{Error: err.Error(), Stage: string(errs.StageOf(err))}
	if status == http.StatusInternalServerError {
		log.Printf("[ERROR] %v", err)
		body = errorBody{Error: http.StatusText(status)}
	}
	writeJSON(w, status, body)
}

func statusFor(err error) int {
	var tooLarge *http.MaxBytesError
	switch {
	case errors.Is(err, errs.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, errs.ErrParse):
		return http.StatusUnprocessableEntity
	case errors.Is(err, errs.ErrUnsupported):
		return http.StatusNotImplemented
	case errors.Is(err, auth.ErrInvalidCredentials), errors.Is(err, auth.ErrInvalidToken):
		return http.StatusUnauthorized
	case errors.Is(err, auth.ErrUserExists):
		return http.StatusConflict
	case errors.As(err, &tooLarge):
		return http.StatusRequestEntityTooLarge
	default:
		return http.StatusInternalServerError
	}
}
