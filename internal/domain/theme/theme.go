// Package theme stores the storefront's light/dark preference per session.
package theme

import (
	"context"

	"github.com/go-faster/errors"
	"go.uber.org/zap"
)

// Theme is a visual theme of the storefront.
type Theme string

const (
	Light Theme = "light"
	Dark  Theme = "dark"
)

// ErrUnknownTheme is returned by Parse for anything but light or dark.
var ErrUnknownTheme = errors.New("unknown theme")

// Parse validates s as a Theme.
func Parse(s string) (Theme, error) {
	switch t := Theme(s); t {
	case Light, Dark:
		return t, nil
	default:
		return "", errors.Wrapf(ErrUnknownTheme, "parse %q", s)
	}
}

// Toggle returns the opposite theme.
func (t Theme) Toggle() Theme {
	if t == Dark {
		return Light
	}
	return Dark
}

// Icon is the label of the toggle button while t is active.
func (t Theme) Icon() string {
	if t == Dark {
		return "☀️"
	}
	return "🌙"
}

// Store is the key-value storage the preference is kept in.
type Store interface {
	Get(ctx context.Context, key string) (value string, ok bool, err error)
	Set(ctx context.Context, key, value string) error
}

// Key returns the Store key of the preference of session.
func Key(session string) string {
	return "theme:" + session
}

// Service reads and flips theme preferences.
type Service struct {
	store Store
	lg    *zap.Logger
}

// NewService creates a Service backed by store.
func NewService(store Store, lg *zap.Logger) *Service {
	if lg == nil {
		lg = zap.NewNop()
	}
	return &Service{store: store, lg: lg}
}

// Current returns the saved theme of session, Light when nothing valid is saved.
func (s *Service) Current(ctx context.Context, session string) (Theme, error) {
	raw, ok, err := s.store.Get(ctx, Key(session))
	if err != nil {
		return "", errors.Wrap(err, "get theme")
	}
	if !ok {
		return Light, nil
	}
	t, err := Parse(raw)
	if err != nil {
		s.lg.Warn("Ignoring saved theme", zap.String("session", session), zap.Error(err))
		return Light, nil
	}
	return t, nil
}

// Toggle flips the theme of session and persists the result.
func (s *Service) Toggle(ctx context.Context, session string) (Theme, error) {
	cur, err := s.Current(ctx, session)
	if err != nil {
		return "", err
	}
	next := cur.Toggle()
	if err := s.store.Set(ctx, Key(session), string(next)); err != nil {
		return "", errors.Wrap(err, "set theme")
	}
	return next, nil
}
