package web

import (
	"errors"
	"io"
	"mime"
	"net/http"

	"github.com/JonMunkholm/orgsync/internal/core"
	"github.com/JonMunkholm/orgsync/internal/logging"
	"github.com/JonMunkholm/orgsync/internal/web/templates"
)

// multipartOverhead is the allowance for multipart framing on top of the
// batch size limit.
const multipartOverhead = 1 << 20

// handleUpload reconciles the batch in the request body.
//
// The batch is either the raw body (text/csv, text/plain) or the "file"
// field of a multipart form. It is streamed straight into the engine; no
// copy of the file is kept. A header mismatch answers 400 with the same
// body shape as a success.
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.Upload.MaxBytes+multipartOverhead)

	body, name, err := batchBody(r)
	if err != nil {
		s.respondError(w, r, err, statusFor(err))
		return
	}
	defer body.Close()

	logging.WithFields(r.Context(), "file", name, "content_length", r.ContentLength).Debug("batch received")

	ctx := withBatchSource(r.Context(), r, name)
	res, err := s.service.ReconcileBatch(ctx, body)
	if err != nil {
		s.respondError(w, r, err, statusFor(err))
		return
	}

	status := http.StatusOK
	if res.Rejected() {
		status = http.StatusBadRequest
	}

	if wantsHTML(r) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.WriteHeader(status)
		_ = templates.BatchSummary(batchSummaryData(res)).Render(r.Context(), w)
		return
	}
	writeJSON(w, status, res)
}

// batchBody returns a reader over the uploaded batch and its file name,
// which is empty for raw bodies.
func batchBody(r *http.Request) (io.ReadCloser, string, error) {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType != "multipart/form-data" {
		if r.Body == nil || r.Body == http.NoBody || r.ContentLength == 0 {
			return nil, "", core.ErrNoFile
		}
		return r.Body, "", nil
	}

	mr, err := r.MultipartReader()
	if err != nil {
		return nil, "", errors.Join(core.ErrNoFile, err)
	}
	for {
		part, err := mr.NextPart()
		if errors.Is(err, io.EOF) {
			return nil, "", core.ErrNoFile
		}
		if err != nil {
			return nil, "", err
		}
		if part.FormName() == "file" {
			return part, part.FileName(), nil
		}
		part.Close()
	}
}
