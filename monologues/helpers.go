package monologues

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"mime"
	"strings"
	"time"
)

const defaultAttachmentName = "attachment"

// AttachmentFilename picks the save name for a download: the
// Content-Disposition filename* then filename, else the tail of ref, else
// "attachment".
func AttachmentFilename(contentDisposition, ref string) string {
	if contentDisposition != "" {
		// mime decodes RFC 2231 filename* into "filename" and prefers it.
		if _, params, err := mime.ParseMediaType(contentDisposition); err == nil {
			if name := safeName(params["filename"]); name != "" {
				return name
			}
		}
	}
	if name := safeName(refTail(ref)); name != "" {
		return name
	}
	return defaultAttachmentName
}

func safeName(name string) string {
	name = refTail(strings.TrimSpace(name))
	if name == "." || name == ".." {
		return ""
	}
	return name
}

// Filter keeps entries whose content contains term, ignoring case.
// An empty term keeps everything.
func Filter(list []Monologue, term string) []Monologue {
	term = strings.ToLower(strings.TrimSpace(term))
	if term == "" {
		return list
	}
	out := make([]Monologue, 0, len(list))
	for _, m := range list {
		if strings.Contains(strings.ToLower(m.Content), term) {
			out = append(out, m)
		}
	}
	return out
}

// PickRandom selects uniformly using intn, which must behave like rand.IntN.
// It reports false for an empty list.
func PickRandom(list []Monologue, intn func(int) int) (Monologue, bool) {
	if len(list) == 0 {
		return Monologue{}, false
	}
	return list[intn(len(list))], true
}

// DaysAgo labels how long ago t was, rounding partial days up.
func DaysAgo(t, now time.Time) string {
	if t.IsZero() {
		return ""
	}
	diff := now.Sub(t)
	if diff < 0 {
		diff = -diff
	}
	days := int(math.Ceil(diff.Hours() / 24))
	switch days {
	case 0:
		return "today"
	case 1:
		return "1 day ago"
	default:
		return fmt.Sprintf("%d days ago", days)
	}
}

func decodeOptional(body io.Reader, out any) error {
	err := json.NewDecoder(body).Decode(out)
	if errors.Is(err, io.EOF) {
		return nil
	}
	return err
}
