// Package monologues is the typed client for the backend's monologue resource.
package monologues

import (
	"bytes"
	"encoding/json"
	"fmt"
	"path"
	"strconv"
	"strings"
	"time"
)

// Monologue is one diary entry. A non-empty AttachmentPath is the only
// signal that the entry has a file.
type Monologue struct {
	ID             ID        `json:"id"`
	Content        string    `json:"content"`
	CreatedAt      Timestamp `json:"createdAt"`
	Weather        string    `json:"weather,omitempty"`
	AttachmentPath string    `json:"attachmentPath,omitempty"`
}

func (m Monologue) HasAttachment() bool {
	return strings.TrimSpace(m.AttachmentPath) != ""
}

// AttachmentName is the display name derived from the attachment reference.
func (m Monologue) AttachmentName() string {
	if !m.HasAttachment() {
		return ""
	}
	return refTail(m.AttachmentPath)
}

// ID is the server assigned identifier. The backend sends numbers but the
// client treats it as opaque text.
type ID string

func (id ID) String() string {
	return string(id)
}

func (id *ID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = ID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("monologue id: %w", err)
	}
	*id = ID(n.String())
	return nil
}

func (id ID) MarshalJSON() ([]byte, error) {
	if _, err := strconv.ParseInt(string(id), 10, 64); err == nil {
		return []byte(id), nil
	}
	return json.Marshal(string(id))
}

// Timestamp accepts RFC 3339 as well as the zone-less form the backend emits.
type Timestamp struct {
	time.Time
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	time.DateOnly,
}

func ParseTimestamp(s string) (Timestamp, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Timestamp{}, nil
	}
	for _, layout := range timestampLayouts {
		if t, err := time.ParseInLocation(layout, s, time.Local); err == nil {
			return Timestamp{Time: t}, nil
		}
	}
	return Timestamp{}, fmt.Errorf("unrecognised timestamp %q", s)
}

func (t *Timestamp) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		*t = Timestamp{}
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("createdAt: %w", err)
	}
	parsed, err := ParseTimestamp(s)
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

func (t Timestamp) MarshalJSON() ([]byte, error) {
	if t.IsZero() {
		return []byte(`""`), nil
	}
	return json.Marshal(t.Format(time.RFC3339))
}

func refTail(ref string) string {
	ref = strings.TrimRight(strings.ReplaceAll(ref, "\\", "/"), "/")
	if ref == "" {
		return ""
	}
	return path.Base(ref)
}
