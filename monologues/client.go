package monologues

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"strings"

	apperrors "github.com/jrsteele09/go-monologue/internal/errors"
)

const (
	pathList   = "/api/monologues/list"
	pathCreate = "/api/monologues/create"
	pathItem   = "/api/monologues/%s"
	pathFile   = "/api/monologues/file/%s"
)

// API is the slice of apiclient.Client used here.
type API interface {
	NewRequest(ctx context.Context, method, path string, body io.Reader) (*http.Request, error)
	Do(req *http.Request) (*http.Response, error)
	DoJSON(ctx context.Context, method, path string, in, out any) error
}

var _ Service = (*Client)(nil)

type Client struct {
	api API
}

func NewClient(api API) *Client {
	return &Client{api: api}
}

// List returns entries in server order. No entries is an empty slice, not an error.
func (c *Client) List(ctx context.Context) ([]Monologue, error) {
	var list []Monologue
	if err := c.api.DoJSON(ctx, http.MethodGet, pathList, nil, &list); err != nil {
		return nil, apperrors.Wrapf(err, "list monologues")
	}
	if list == nil {
		list = []Monologue{}
	}
	return list, nil
}

func (c *Client) Get(ctx context.Context, id ID) (Monologue, error) {
	if err := validateID(id); err != nil {
		return Monologue{}, err
	}
	var m Monologue
	if err := c.api.DoJSON(ctx, http.MethodGet, itemPath(pathItem, id), nil, &m); err != nil {
		return Monologue{}, apperrors.Wrapf(err, "get monologue %s", id)
	}
	return m, nil
}

func (c *Client) Create(ctx context.Context, draft Draft) (Monologue, error) {
	if err := draft.Validate(); err != nil {
		return Monologue{}, err
	}
	m, err := c.sendDraft(ctx, http.MethodPost, pathCreate, draft)
	if err != nil {
		return Monologue{}, apperrors.Wrapf(err, "create monologue")
	}
	return m, nil
}

// Update resends the whole entry. The file part is only sent when replacing the attachment.
func (c *Client) Update(ctx context.Context, id ID, draft Draft) (Monologue, error) {
	if err := validateID(id); err != nil {
		return Monologue{}, err
	}
	if err := draft.Validate(); err != nil {
		return Monologue{}, err
	}
	m, err := c.sendDraft(ctx, http.MethodPut, itemPath(pathItem, id), draft)
	if err != nil {
		return Monologue{}, apperrors.Wrapf(err, "update monologue %s", id)
	}
	if m.ID == "" {
		m.ID = id
	}
	return m, nil
}

func (c *Client) Delete(ctx context.Context, id ID) error {
	if err := validateID(id); err != nil {
		return err
	}
	if err := c.api.DoJSON(ctx, http.MethodDelete, itemPath(pathItem, id), nil, nil); err != nil {
		return apperrors.Wrapf(err, "delete monologue %s", id)
	}
	return nil
}

// DownloadAttachment opens the attachment of entry id. ref is the entry's
// attachment reference, used for the filename when the server sends none.
func (c *Client) DownloadAttachment(ctx context.Context, id ID, ref string) (*Attachment, error) {
	if err := validateID(id); err != nil {
		return nil, err
	}
	req, err := c.api.NewRequest(ctx, http.MethodGet, itemPath(pathFile, id), nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.api.Do(req)
	if err != nil {
		return nil, apperrors.Wrapf(err, "download attachment %s", id)
	}

	contentType := resp.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	return &Attachment{
		Filename:    AttachmentFilename(resp.Header.Get("Content-Disposition"), ref),
		ContentType: contentType,
		Size:        resp.ContentLength,
		Body:        resp.Body,
	}, nil
}

func (c *Client) sendDraft(ctx context.Context, method, path string, draft Draft) (Monologue, error) {
	body, contentType, err := encodeDraft(draft)
	if err != nil {
		return Monologue{}, err
	}

	req, err := c.api.NewRequest(ctx, method, path, body)
	if err != nil {
		return Monologue{}, err
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Accept", "application/json")

	resp, err := c.api.Do(req)
	if err != nil {
		return Monologue{}, err
	}
	defer resp.Body.Close()

	var m Monologue
	if err := decodeOptional(resp.Body, &m); err != nil {
		return Monologue{}, err
	}
	return m, nil
}

// encodeDraft writes the multipart body {content, weather?, file?}.
func encodeDraft(draft Draft) (*bytes.Buffer, string, error) {
	buf := &bytes.Buffer{}
	w := multipart.NewWriter(buf)

	if err := w.WriteField("content", draft.Content); err != nil {
		return nil, "", err
	}
	if draft.Weather != "" {
		if err := w.WriteField("weather", draft.Weather); err != nil {
			return nil, "", err
		}
	}
	if draft.File != nil {
		contentType := draft.File.ContentType
		if contentType == "" {
			contentType = "application/octet-stream"
		}
		header := textproto.MIMEHeader{}
		header.Set("Content-Disposition", mime.FormatMediaType("form-data", map[string]string{
			"name":     "file",
			"filename": draft.File.Name,
		}))
		header.Set("Content-Type", contentType)
		part, err := w.CreatePart(header)
		if err != nil {
			return nil, "", err
		}
		if draft.File.Body != nil {
			if _, err := io.Copy(part, draft.File.Body); err != nil {
				return nil, "", fmt.Errorf("read upload %s: %w", draft.File.Name, err)
			}
		}
	}
	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return buf, w.FormDataContentType(), nil
}

func itemPath(format string, id ID) string {
	return fmt.Sprintf(format, url.PathEscape(string(id)))
}

func validateID(id ID) error {
	if strings.TrimSpace(string(id)) == "" {
		return apperrors.NewValidationError("id", "Missing entry id.")
	}
	return nil
}
