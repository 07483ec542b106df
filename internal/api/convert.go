package api

import (
	"errors"
	"io"
	"mime"
	"net/http"
	"strconv"

	"github.com/seantiz/docforge/internal/convert"
	"github.com/seantiz/docforge/internal/renderer"
	"github.com/seantiz/docforge/internal/workspace"
)

// Machine-readable error codes surfaced to callers. Client-caused failures,
// server-caused failures, and timeouts are all distinguishable.
const (
	codeUnsupportedFormat = "unsupported_format"
	codeEngineFailure     = "engine_failure"
	codeMissingOutput     = "missing_output"
	codeTimeoutExceeded   = "timeout_exceeded"
	codeAllocationFailed  = "allocation_failed"
	codeEngineUnavailable = "engine_unavailable"
	codeInternal          = "internal"
	codeBadRequest        = "bad_request"
	codePayloadTooLarge   = "payload_too_large"
)

func (s *Server) handleConvert(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.maxUpload)

	file, header, err := r.FormFile("file")
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			s.writeError(w, http.StatusRequestEntityTooLarge, codePayloadTooLarge,
				"upload exceeds the "+strconv.FormatInt(maxErr.Limit, 10)+" byte limit")
			return
		}
		s.writeError(w, http.StatusBadRequest, codeBadRequest, "multipart field 'file' is required")
		return
	}
	defer file.Close()

	if header.Filename == "" {
		s.writeError(w, http.StatusBadRequest, codeBadRequest, "uploaded file has no name")
		return
	}

	handle, err := s.coordinator.Submit(r.Context(), file, header.Filename)
	if err != nil {
		status, code := classifyError(err)
		if status >= http.StatusInternalServerError {
			s.logger.Error("conversion failed", "filename", header.Filename, "code", code, "error", err)
		}
		s.writeError(w, status, code, err.Error())
		return
	}
	defer handle.Close()

	pdf, err := handle.Open()
	if err != nil {
		s.logger.Error("open converted file", "path", handle.Path, "error", err)
		s.writeError(w, http.StatusInternalServerError, codeInternal, "failed to read conversion output")
		return
	}
	defer pdf.Close()

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Length", strconv.FormatInt(handle.Size, 10))
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{
		"filename": handle.Filename,
	}))
	w.WriteHeader(http.StatusOK)

	if _, err := io.Copy(w, pdf); err != nil {
		// Response already started; nothing to send but worth recording.
		s.logger.Warn("stream converted file", "path", handle.Path, "error", err)
	}
}

// classifyError maps a coordinator error to an HTTP status and error code.
func classifyError(err error) (int, string) {
	var engErr *convert.EngineError
	switch {
	case errors.Is(err, convert.ErrUnsupportedFormat):
		return http.StatusBadRequest, codeUnsupportedFormat
	case errors.Is(err, renderer.ErrTimeout):
		return http.StatusGatewayTimeout, codeTimeoutExceeded
	case errors.As(err, &engErr):
		return http.StatusInternalServerError, codeEngineFailure
	case errors.Is(err, convert.ErrMissingOutput):
		return http.StatusInternalServerError, codeMissingOutput
	case errors.Is(err, workspace.ErrAllocation):
		return http.StatusInternalServerError, codeAllocationFailed
	case errors.Is(err, renderer.ErrSpawn):
		return http.StatusInternalServerError, codeEngineUnavailable
	default:
		return http.StatusInternalServerError, codeInternal
	}
}
