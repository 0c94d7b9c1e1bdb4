package httpapi

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/dmogilev/docmill/internal/common"
	"github.com/dmogilev/docmill/internal/pdfx/executor"
	"github.com/dmogilev/docmill/internal/pdfx/pages"
	"github.com/dmogilev/docmill/internal/server/pipeline"
)

// maxUploadBytes caps one request's multipart payload.
const maxUploadBytes = 200 << 20

// multipartMemory is how much of the form is kept in memory before
// spilling to disk.
const multipartMemory = 32 << 20

type transformResponse struct {
	Token    string    `json:"token"`
	URL      string    `json:"url"`
	FileName string    `json:"fileName"`
	Size     int64     `json:"size"`
	ExpireAt time.Time `json:"expireAt"`
}

// handleTransform accepts a multipart form with an "operation" field,
// per-operation options, and one or more "files" parts.
func (s *Server) handleTransform(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)

	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		s.writeError(w, r, fmt.Errorf("%w: bad multipart form: %v", common.ErrValidation, err))
		return
	}
	defer r.MultipartForm.RemoveAll()

	opts, err := parseOptions(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	files := r.MultipartForm.File["files"]
	uploads := make([]pipeline.Upload, 0, len(files))
	for _, fh := range files {
		f, err := fh.Open()
		if err != nil {
			s.writeError(w, r, fmt.Errorf("%w: unreadable upload %q", common.ErrValidation, fh.Filename))
			return
		}
		defer f.Close()
		uploads = append(uploads, pipeline.Upload{Name: fh.Filename, Data: f})
	}

	resp, err := s.transformer.Transform(r.Context(), pipeline.TransformRequest{
		UserID:   userIDFrom(r.Context()),
		Kind:     executor.Kind(r.FormValue("operation")),
		Options:  opts,
		Password: r.FormValue("password"),
		Uploads:  uploads,
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	a := resp.Artifact
	s.writeJSON(w, http.StatusCreated, transformResponse{
		Token:    a.Token,
		URL:      s.shareURL(a.Token),
		FileName: a.FileName,
		Size:     a.Size,
		ExpireAt: a.ExpireAt,
	})
}

// parseOptions reads per-operation form fields. Fields irrelevant to the
// requested operation are simply ignored downstream.
func parseOptions(r *http.Request) (executor.Options, error) {
	var opts executor.Options

	if expr := r.FormValue("pages"); expr != "" {
		sel, err := pages.Resolve(expr)
		if err != nil {
			return opts, err
		}
		opts.Pages = sel
	}

	if v := r.FormValue("chunk"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			return opts, fmt.Errorf("%w: chunk must be a positive integer", common.ErrValidation)
		}
		opts.ChunkSize = n
	}

	opts.Target = executor.Format(r.FormValue("target"))
	opts.Level = executor.Level(r.FormValue("level"))

	return opts, nil
}
