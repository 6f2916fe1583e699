package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"countdown/internal/domain"
	"countdown/internal/logging"
)

// ThemeRepository stores the theme preference under its own key.
type ThemeRepository struct {
	kv domain.KVStore
}

func NewThemeRepository(kv domain.KVStore) (*ThemeRepository, error) {
	if kv == nil {
		return nil, errors.New("kv store is required")
	}
	return &ThemeRepository{kv: kv}, nil
}

// Theme returns the stored theme, or system when absent or invalid.
func (r *ThemeRepository) Theme(ctx context.Context) domain.Theme {
	raw, found, err := r.kv.Get(ctx, ThemeKey)
	if err != nil {
		logging.Warnf("repository: read theme: %v", err)
		return domain.ThemeSystem
	}
	theme := domain.Theme(strings.ToLower(strings.TrimSpace(raw)))
	if !found || !theme.Valid() {
		return domain.ThemeSystem
	}
	return theme
}

func (r *ThemeRepository) SetTheme(ctx context.Context, t domain.Theme) error {
	if !t.Valid() {
		return fmt.Errorf("%w: %q", domain.ErrInvalidTheme, t)
	}
	if err := r.kv.Set(ctx, ThemeKey, string(t)); err != nil {
		return fmt.Errorf("save theme: %w", err)
	}
	return nil
}
