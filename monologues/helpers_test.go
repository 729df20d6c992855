package monologues_test

import (
	"testing"
	"time"

	"github.com/jrsteele09/go-monologue/monologues"
	"github.com/stretchr/testify/require"
)

func TestAttachmentFilename(t *testing.T) {
	tests := []struct {
		name        string
		disposition string
		ref         string
		want        string
	}{
		{name: "reference tail", ref: "uploads/2025/shot.png", want: "shot.png"},
		{name: "plain filename", disposition: `attachment; filename="report.pdf"`, ref: "uploads/x.bin", want: "report.pdf"},
		{name: "extended filename wins", disposition: `attachment; filename="fallback.txt"; filename*=UTF-8''%ED%98%BC%EC%9E%A3%EB%A7%90.txt`, want: "혼잣말.txt"},
		{name: "path in header is stripped", disposition: `attachment; filename="../../etc/passwd"`, want: "passwd"},
		{name: "malformed header falls back", disposition: `attachment; filename=`, ref: "uploads/2025/shot.png", want: "shot.png"},
		{name: "nothing to go on", want: "attachment"},
		{name: "windows separators", ref: `uploads\2025\notes.txt`, want: "notes.txt"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, monologues.AttachmentFilename(tt.disposition, tt.ref))
		})
	}
}

func TestFilter(t *testing.T) {
	list := []monologues.Monologue{
		{ID: "1", Content: "React Router was easy"},
		{ID: "2", Content: "context api thoughts"},
		{ID: "3", Content: "CSS animations"},
	}

	require.Len(t, monologues.Filter(list, ""), 3)
	require.Len(t, monologues.Filter(list, "   "), 3)

	got := monologues.Filter(list, "ROUTER")
	require.Len(t, got, 1)
	require.Equal(t, monologues.ID("1"), got[0].ID)

	require.Empty(t, monologues.Filter(list, "golang"))
}

func TestPickRandom(t *testing.T) {
	_, ok := monologues.PickRandom(nil, func(int) int { panic("must not be called") })
	require.False(t, ok)

	list := []monologues.Monologue{{ID: "1"}, {ID: "2"}, {ID: "3"}}
	var gotN int
	m, ok := monologues.PickRandom(list, func(n int) int {
		gotN = n
		return 2
	})
	require.True(t, ok)
	require.Equal(t, 3, gotN)
	require.Equal(t, monologues.ID("3"), m.ID)
}

func TestDaysAgo(t *testing.T) {
	now := time.Date(2025, 3, 30, 12, 0, 0, 0, time.UTC)
	tests := []struct {
		then time.Time
		want string
	}{
		{then: now, want: "today"},
		{then: now.Add(-2 * time.Hour), want: "1 day ago"},
		{then: now.Add(-24 * time.Hour), want: "1 day ago"},
		{then: now.Add(-25 * time.Hour), want: "2 days ago"},
		{then: now.Add(-5 * 24 * time.Hour), want: "5 days ago"},
		{then: time.Time{}, want: ""},
	}

	for _, tt := range tests {
		require.Equal(t, tt.want, monologues.DaysAgo(tt.then, now), tt.then.String())
	}
}
