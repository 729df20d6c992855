// Package fakeservice is an in-memory monologues.Service for view tests.
package fakeservice

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strconv"
	"sync"
	"time"

	apperrors "github.com/jrsteele09/go-monologue/internal/errors"
	"github.com/jrsteele09/go-monologue/monologues"
)

var _ monologues.Service = (*FakeService)(nil)

type FakeService struct {
	mu      sync.Mutex
	items   []monologues.Monologue
	files   map[monologues.ID][]byte
	nextID  int
	calls   []string
	failErr error
	hold    bool

	Now func() time.Time
}

func New(seed ...monologues.Monologue) *FakeService {
	f := &FakeService{
		files:  map[monologues.ID][]byte{},
		nextID: 1,
		Now:    time.Now,
	}
	for _, m := range seed {
		if m.ID == "" {
			m.ID = monologues.ID(strconv.Itoa(f.nextID))
		}
		f.nextID++
		f.items = append(f.items, m)
	}
	return f
}

// FailWith makes every following call return err until cleared with nil.
func (f *FakeService) FailWith(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failErr = err
}

// Hold makes List and Get wait until the caller's context is done.
func (f *FakeService) Hold() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.hold = true
}

func (f *FakeService) wait(ctx context.Context, call string) error {
	f.mu.Lock()
	hold := f.hold
	if hold {
		f.calls = append(f.calls, call)
	}
	f.mu.Unlock()
	if !hold {
		return nil
	}
	<-ctx.Done()
	return ctx.Err()
}

// Calls lists the operations invoked so far, e.g. "List" or "Get 3".
func (f *FakeService) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func (f *FakeService) record(call string) error {
	f.calls = append(f.calls, call)
	return f.failErr
}

func (f *FakeService) List(ctx context.Context) ([]monologues.Monologue, error) {
	if err := f.wait(ctx, "List"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("List"); err != nil {
		return nil, err
	}
	return append([]monologues.Monologue{}, f.items...), nil
}

func (f *FakeService) Get(ctx context.Context, id monologues.ID) (monologues.Monologue, error) {
	if err := f.wait(ctx, "Get "+id.String()); err != nil {
		return monologues.Monologue{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("Get " + id.String()); err != nil {
		return monologues.Monologue{}, err
	}
	i := f.index(id)
	if i < 0 {
		return monologues.Monologue{}, &apperrors.RequestError{StatusCode: 404}
	}
	return f.items[i], nil
}

func (f *FakeService) Create(_ context.Context, draft monologues.Draft) (monologues.Monologue, error) {
	if err := draft.Validate(); err != nil {
		return monologues.Monologue{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("Create"); err != nil {
		return monologues.Monologue{}, err
	}

	m := monologues.Monologue{
		ID:        monologues.ID(strconv.Itoa(f.nextID)),
		Content:   draft.Content,
		Weather:   draft.Weather,
		CreatedAt: monologues.Timestamp{Time: f.Now()},
	}
	f.nextID++
	if err := f.attach(&m, draft.File); err != nil {
		return monologues.Monologue{}, err
	}
	// newest first
	f.items = append([]monologues.Monologue{m}, f.items...)
	return m, nil
}

func (f *FakeService) Update(_ context.Context, id monologues.ID, draft monologues.Draft) (monologues.Monologue, error) {
	if err := draft.Validate(); err != nil {
		return monologues.Monologue{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("Update " + id.String()); err != nil {
		return monologues.Monologue{}, err
	}
	i := f.index(id)
	if i < 0 {
		return monologues.Monologue{}, &apperrors.RequestError{StatusCode: 404}
	}
	m := f.items[i]
	m.Content = draft.Content
	if draft.Weather != "" {
		m.Weather = draft.Weather
	}
	if err := f.attach(&m, draft.File); err != nil {
		return monologues.Monologue{}, err
	}
	f.items[i] = m
	return m, nil
}

func (f *FakeService) Delete(_ context.Context, id monologues.ID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("Delete " + id.String()); err != nil {
		return err
	}
	i := f.index(id)
	if i < 0 {
		return &apperrors.RequestError{StatusCode: 404}
	}
	f.items = append(f.items[:i], f.items[i+1:]...)
	delete(f.files, id)
	return nil
}

func (f *FakeService) DownloadAttachment(_ context.Context, id monologues.ID, ref string) (*monologues.Attachment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("DownloadAttachment " + id.String()); err != nil {
		return nil, err
	}
	data, ok := f.files[id]
	if !ok {
		return nil, &apperrors.RequestError{StatusCode: 404}
	}
	return &monologues.Attachment{
		Filename:    monologues.AttachmentFilename("", ref),
		ContentType: "application/octet-stream",
		Size:        int64(len(data)),
		Body:        io.NopCloser(bytes.NewReader(data)),
	}, nil
}

// SetFile stores attachment bytes for an existing entry.
func (f *FakeService) SetFile(id monologues.ID, path string, data []byte) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if i := f.index(id); i >= 0 {
		f.items[i].AttachmentPath = path
	}
	f.files[id] = data
}

func (f *FakeService) attach(m *monologues.Monologue, upload *monologues.Upload) error {
	if upload == nil {
		return nil
	}
	var data []byte
	if upload.Body != nil {
		var err error
		if data, err = io.ReadAll(upload.Body); err != nil {
			return err
		}
	}
	m.AttachmentPath = fmt.Sprintf("uploads/%d/%s", f.Now().Year(), upload.Name)
	f.files[m.ID] = data
	return nil
}

func (f *FakeService) index(id monologues.ID) int {
	for i, m := range f.items {
		if m.ID == id {
			return i
		}
	}
	return -1
}
