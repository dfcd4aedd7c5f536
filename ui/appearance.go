package ui

import "sync"

// Appearance is the rendering environment the resolved theme is applied to.
// Apply only ever receives ThemeLight or ThemeDark.
type Appearance interface {
	Apply(t Theme)
}

// PreferenceSource reports the platform's current light/dark preference.
type PreferenceSource interface {
	PrefersDark() bool
}

// Document is an in-process Appearance and PreferenceSource: it remembers
// the last applied theme and serves a fixed platform preference.
type Document struct {
	mu      sync.Mutex
	applied Theme
	dark    bool
}

// NewDocument returns a document whose platform prefers dark when dark is true.
func NewDocument(dark bool) *Document {
	return &Document{dark: dark}
}

func (d *Document) Apply(t Theme) {
	d.mu.Lock()
	d.applied = t
	d.mu.Unlock()
}

// Applied returns the last theme passed to Apply, or "" if none.
func (d *Document) Applied() Theme {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.applied
}

func (d *Document) PrefersDark() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.dark
}

// SetPrefersDark changes the platform preference. Already-applied themes
// are not re-resolved.
func (d *Document) SetPrefersDark(dark bool) {
	d.mu.Lock()
	d.dark = dark
	d.mu.Unlock()
}

func resolve(t Theme, pref PreferenceSource) Theme {
	if t != ThemeSystem {
		return t
	}
	if pref != nil && pref.PrefersDark() {
		return ThemeDark
	}
	return ThemeLight
}
