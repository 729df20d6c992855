package monologues_test

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/jrsteele09/go-monologue/monologues"
	"github.com/stretchr/testify/require"
)

func TestDecodeMonologue(t *testing.T) {
	tests := []struct {
		name     string
		payload  string
		wantID   monologues.ID
		wantYear int
	}{
		{
			name:     "numeric id and zoneless time",
			payload:  `{"id": 7, "content": "hi", "createdAt": "2025-03-29T15:30:00", "weather": "sunny"}`,
			wantID:   "7",
			wantYear: 2025,
		},
		{
			name:     "string id and RFC 3339 time",
			payload:  `{"id": "abc", "content": "hi", "createdAt": "2024-12-31T23:00:00Z"}`,
			wantID:   "abc",
			wantYear: 2024,
		},
		{
			name:    "null time",
			payload: `{"id": 1, "content": "hi", "createdAt": null}`,
			wantID:  "1",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var m monologues.Monologue
			require.NoError(t, json.Unmarshal([]byte(tt.payload), &m))
			require.Equal(t, tt.wantID, m.ID)
			if tt.wantYear == 0 {
				require.True(t, m.CreatedAt.IsZero())
			} else {
				require.Equal(t, tt.wantYear, m.CreatedAt.Year())
			}
		})
	}
}

func TestDecodeRejectsGarbageTime(t *testing.T) {
	var m monologues.Monologue
	require.Error(t, json.Unmarshal([]byte(`{"id": 1, "createdAt": "yesterday"}`), &m))
}

func TestAttachmentSignal(t *testing.T) {
	require.False(t, monologues.Monologue{}.HasAttachment())
	require.Empty(t, monologues.Monologue{}.AttachmentName())

	m := monologues.Monologue{AttachmentPath: "uploads/2025/shot.png"}
	require.True(t, m.HasAttachment())
	require.Equal(t, "shot.png", m.AttachmentName())
}

func TestEncodeNumericID(t *testing.T) {
	out, err := json.Marshal(monologues.Monologue{ID: "12", Content: "x", CreatedAt: monologues.Timestamp{Time: time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)}})
	require.NoError(t, err)
	require.JSONEq(t, `{"id": 12, "content": "x", "createdAt": "2025-01-02T03:04:05Z"}`, string(out))
}
