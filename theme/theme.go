// Package theme persists the dark mode preference next to the session keys.
package theme

import (
	"context"
	"encoding/json"

	"github.com/jrsteele09/go-monologue/localstore"
)

const KeyDarkMode = "darkMode"

type Preference struct {
	repo  localstore.Repo
	scope string
}

func New(repo localstore.Repo, scope string) *Preference {
	return &Preference{repo: repo, scope: scope}
}

// DarkMode reports the stored preference. Absent or malformed values mean light mode.
func (p *Preference) DarkMode(ctx context.Context) bool {
	raw, ok, err := p.repo.Get(ctx, p.scope, KeyDarkMode)
	if err != nil || !ok {
		return false
	}
	var dark bool
	if err := json.Unmarshal([]byte(raw), &dark); err != nil {
		return false
	}
	return dark
}

func (p *Preference) SetDarkMode(ctx context.Context, dark bool) error {
	raw, err := json.Marshal(dark)
	if err != nil {
		return err
	}
	return p.repo.Set(ctx, p.scope, KeyDarkMode, string(raw))
}

// Toggle flips the preference and returns the new value.
func (p *Preference) Toggle(ctx context.Context) (bool, error) {
	dark := !p.DarkMode(ctx)
	if err := p.SetDarkMode(ctx, dark); err != nil {
		return !dark, err
	}
	return dark, nil
}
