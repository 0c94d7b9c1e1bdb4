// Package pipeline orchestrates one transformation request end to end:
// quota admission, temp scope setup, input unlocking, operation execution,
// artifact persistence, and quota commit. Usage is charged only after the
// result has been durably stored.
package pipeline

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/dmogilev/docmill/internal/common"
	"github.com/dmogilev/docmill/internal/filex"
	"github.com/dmogilev/docmill/internal/logging"
	"github.com/dmogilev/docmill/internal/pdfx/executor"
	"github.com/dmogilev/docmill/internal/pdfx/unlock"
	"github.com/dmogilev/docmill/internal/server/models"
)

// Governor admits and charges operations against a user's daily allowance.
type Governor interface {
	Admit(ctx context.Context, userID string) (*models.UserQuota, error)
	Commit(ctx context.Context, userID string) error
}

// ArtifactPutter persists a finished result as a tokened artifact.
type ArtifactPutter interface {
	Put(ctx context.Context, userID string, plan models.Plan, fileName string, r io.Reader, size int64) (*models.Artifact, error)
}

// Upload is one client-supplied input file.
type Upload struct {
	Name string
	Data io.Reader
}

// TransformRequest describes one operation over a set of uploads.
type TransformRequest struct {
	UserID   string
	Kind     executor.Kind
	Options  executor.Options
	Password string
	Uploads  []Upload
}

// TransformResponse reports the stored artifact and its media type.
type TransformResponse struct {
	Artifact    *models.Artifact
	ContentType string
}

type Pipeline struct {
	governor  Governor
	gate      *unlock.Gate
	registry  *executor.Registry
	artifacts ArtifactPutter
	tempDir   string
	log       logging.Logger
}

func New(g Governor, gate *unlock.Gate, reg *executor.Registry, a ArtifactPutter, tempDir string, log logging.Logger) *Pipeline {
	return &Pipeline{
		governor:  g,
		gate:      gate,
		registry:  reg,
		artifacts: a,
		tempDir:   tempDir,
		log:       log,
	}
}

// Transform runs one operation. All intermediate files live in a scope
// that is removed on every exit path; only the stored artifact survives.
func (p *Pipeline) Transform(ctx context.Context, req TransformRequest) (*TransformResponse, error) {
	if len(req.Uploads) == 0 {
		return nil, common.ErrEmptyInput
	}

	// Validate the operation before touching quota or disk.
	exec, err := p.registry.For(req.Kind, req.Options)
	if err != nil {
		return nil, err
	}

	q, err := p.governor.Admit(ctx, req.UserID)
	if err != nil {
		return nil, err
	}

	scope, err := filex.NewScope(p.tempDir)
	if err != nil {
		return nil, fmt.Errorf("error creating temp scope: %w", err)
	}
	defer func() {
		if cerr := scope.Close(); cerr != nil {
			p.log.Warn(ctx, "temp scope cleanup failed", "root", scope.Root(), "error", cerr)
		}
	}()

	inputs := make([]*unlock.WorkingDocument, 0, len(req.Uploads))
	for _, up := range req.Uploads {
		staged, err := p.stageUpload(scope, up)
		if err != nil {
			return nil, err
		}
		var wd *unlock.WorkingDocument
		if strings.EqualFold(filepath.Ext(up.Name), ".pdf") {
			wd, err = p.gate.Unlock(ctx, scope, staged, up.Name, req.Password)
		} else {
			wd, err = p.gate.Stage(ctx, scope, staged, up.Name)
		}
		if err != nil {
			return nil, err
		}
		inputs = append(inputs, wd)
	}

	result, err := exec.Execute(ctx, scope, executor.Request{Inputs: inputs, Options: req.Options})
	if err != nil {
		return nil, err
	}

	f, err := os.Open(result.Path)
	if err != nil {
		return nil, fmt.Errorf("error opening result: %w", err)
	}
	defer f.Close()
	fi, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("error sizing result: %w", err)
	}

	a, err := p.artifacts.Put(ctx, req.UserID, q.Plan, result.Filename, f, fi.Size())
	if err != nil {
		return nil, err
	}

	if err := p.governor.Commit(ctx, req.UserID); err != nil {
		p.log.Error(ctx, "quota commit failed after store", "user_id", req.UserID, "error", err)
		return nil, fmt.Errorf("error recording usage: %w", err)
	}

	p.log.Info(ctx, "transform complete",
		"user_id", req.UserID,
		"kind", string(req.Kind),
		"inputs", len(inputs),
		"token", a.Token,
	)

	return &TransformResponse{Artifact: a, ContentType: result.ContentType}, nil
}

// stageUpload copies an upload's bytes into the scope, preserving the
// extension so downstream routing can inspect it.
func (p *Pipeline) stageUpload(scope *filex.Scope, up Upload) (string, error) {
	ext := strings.ToLower(filepath.Ext(up.Name))
	path, err := scope.File(ext)
	if err != nil {
		return "", fmt.Errorf("error staging upload: %w", err)
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_TRUNC, 0o600)
	if err != nil {
		return "", fmt.Errorf("error staging upload: %w", err)
	}
	_, err = io.Copy(f, up.Data)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return "", fmt.Errorf("error staging upload: %w", err)
	}
	return path, nil
}
