package store

import (
	"context"
	"fmt"

	"github.com/ashureev/assistant-studio/internal/domain"
)

// ThemeKey is the settings key holding the theme preference.
const ThemeKey = "theme"

// ThemeStore persists the theme preference in a single settings slot.
type ThemeStore struct {
	repo Repository
}

// NewThemeStore wraps repo.
func NewThemeStore(repo Repository) *ThemeStore {
	return &ThemeStore{repo: repo}
}

// LoadTheme reads the stored theme. A missing or unrecognized value yields light.
func (t *ThemeStore) LoadTheme(ctx context.Context) (domain.Theme, error) {
	value, ok, err := t.repo.GetSetting(ctx, ThemeKey)
	if err != nil {
		return domain.ThemeLight, fmt.Errorf("load theme: %w", err)
	}
	if !ok {
		return domain.ThemeLight, nil
	}
	return domain.ParseTheme(value), nil
}

// SaveTheme writes the theme.
func (t *ThemeStore) SaveTheme(ctx context.Context, theme domain.Theme) error {
	if err := t.repo.PutSetting(ctx, ThemeKey, string(theme)); err != nil {
		return fmt.Errorf("save theme: %w", err)
	}
	return nil
}
