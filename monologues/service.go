package monologues

import (
	"context"
	"io"
	"strings"

	apperrors "github.com/jrsteele09/go-monologue/internal/errors"
)

// Service is what the views need from the monologue resource.
type Service interface {
	List(ctx context.Context) ([]Monologue, error)
	Get(ctx context.Context, id ID) (Monologue, error)
	Create(ctx context.Context, draft Draft) (Monologue, error)
	Update(ctx context.Context, id ID, draft Draft) (Monologue, error)
	Delete(ctx context.Context, id ID) error
	DownloadAttachment(ctx context.Context, id ID, ref string) (*Attachment, error)
}

// Draft is the full desired state of an entry sent on create or update.
type Draft struct {
	Content string
	Weather string
	// File is optional. On update it replaces the current attachment.
	File *Upload
}

// Upload is a single file to attach.
type Upload struct {
	Name        string
	ContentType string
	Body        io.Reader
}

// Validate rejects drafts that must never reach the network.
func (d Draft) Validate() error {
	if strings.TrimSpace(d.Content) == "" {
		return apperrors.NewValidationError("content", "Please write something before saving.")
	}
	if d.File != nil && strings.TrimSpace(d.File.Name) == "" {
		return apperrors.NewValidationError("file", "The attached file has no name.")
	}
	return nil
}

// Attachment is a downloaded file. Body must be closed by the caller.
type Attachment struct {
	Filename    string
	ContentType string
	Size        int64
	Body        io.ReadCloser
}

func (a *Attachment) Close() error {
	if a == nil || a.Body == nil {
		return nil
	}
	return a.Body.Close()
}
