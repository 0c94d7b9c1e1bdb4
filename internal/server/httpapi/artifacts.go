package httpapi

import (
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/mail"
	"path/filepath"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/dmogilev/docmill/internal/common"
	"github.com/dmogilev/docmill/internal/server/notify"
)

// handleShare streams artifact bytes to anyone holding the token. With
// download set, the response asks the browser to save rather than render.
func (s *Server) handleShare(download bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token := chi.URLParam(r, "token")

		a, rc, err := s.artifacts.Resolve(r.Context(), token)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		defer rc.Close()

		ct := mime.TypeByExtension(filepath.Ext(a.FileName))
		if ct == "" {
			ct = "application/octet-stream"
		}
		disposition := "inline"
		if download {
			disposition = "attachment"
		}

		w.Header().Set("Content-Type", ct)
		w.Header().Set("Content-Length", strconv.FormatInt(a.Size, 10))
		w.Header().Set("Content-Disposition", fmt.Sprintf("%s; filename=%q", disposition, a.FileName))
		if _, err := io.Copy(w, rc); err != nil {
			// Headers are already out; all we can do is note it.
			s.log.Warn(r.Context(), "share stream interrupted", "token", token, "error", err)
		}
	}
}

type artifactDTO struct {
	Token    string    `json:"token"`
	URL      string    `json:"url"`
	FileName string    `json:"fileName"`
	Size     int64     `json:"size"`
	CreateAt time.Time `json:"createdAt"`
	ExpireAt time.Time `json:"expireAt"`
	Expired  bool      `json:"expired"`
}

func (s *Server) handleListArtifacts(w http.ResponseWriter, r *http.Request) {
	list, err := s.artifacts.ListByUser(r.Context(), userIDFrom(r.Context()))
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	now := time.Now()
	out := make([]artifactDTO, 0, len(list))
	for _, a := range list {
		out = append(out, artifactDTO{
			Token:    a.Token,
			URL:      s.shareURL(a.Token),
			FileName: a.FileName,
			Size:     a.Size,
			CreateAt: a.CreatedAt,
			ExpireAt: a.ExpireAt,
			Expired:  a.Expired(now),
		})
	}
	s.writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleDeleteArtifact(w http.ResponseWriter, r *http.Request) {
	token := chi.URLParam(r, "token")
	if err := s.artifacts.Delete(r.Context(), userIDFrom(r.Context()), token); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type sendRequest struct {
	Recipient string `json:"recipient"`
	Subject   string `json:"subject"`
}

// handleSendArtifact dispatches a share notification for an artifact the
// caller owns. Delivery is best-effort: a send failure is logged, not
// surfaced, because the link itself remains valid.
func (s *Server) handleSendArtifact(w http.ResponseWriter, r *http.Request) {
	token := chi.URLParam(r, "token")

	var req sendRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, r, fmt.Errorf("%w: bad request body", common.ErrValidation))
		return
	}
	if _, err := mail.ParseAddress(req.Recipient); err != nil {
		s.writeError(w, r, fmt.Errorf("%w: bad recipient address", common.ErrValidation))
		return
	}

	a, rc, err := s.artifacts.Resolve(r.Context(), token)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	rc.Close()
	if a.UserID != userIDFrom(r.Context()) {
		s.writeError(w, r, common.ErrForbidden)
		return
	}

	subject := req.Subject
	if subject == "" {
		subject = "A document was shared with you"
	}
	if err := s.notifier.Send(r.Context(), notify.Message{
		Recipient: req.Recipient,
		Subject:   subject,
		ShareURL:  s.shareURL(a.Token),
		FileName:  a.FileName,
	}); err != nil {
		s.log.Warn(r.Context(), "notification send failed", "token", token, "error", err)
	}

	w.WriteHeader(http.StatusAccepted)
}
