package ui

import (
	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/theme"
)

// compactTheme tightens the spacing of a base theme so more cards fit in
// the grid.
type compactTheme struct {
	fyne.Theme
}

var _ fyne.Theme = (*compactTheme)(nil)

// compactSizes replaces these sizes of the base theme.
var compactSizes = map[fyne.ThemeSizeName]float32{
	theme.SizeNamePadding:            2,
	theme.SizeNameInnerPadding:       6,
	theme.SizeNameLineSpacing:        3,
	theme.SizeNameSeparatorThickness: 1,
}

func (t *compactTheme) Size(name fyne.ThemeSizeName) float32 {
	if s, ok := compactSizes[name]; ok {
		return s
	}
	return t.Theme.Size(name)
}

// NewCompactTheme wraps baseTheme. Colors, fonts and icons are the base
// theme's own, so light and dark variants still follow the system.
func NewCompactTheme(baseTheme fyne.Theme) fyne.Theme {
	if baseTheme == nil {
		baseTheme = theme.DefaultTheme()
	}
	return &compactTheme{Theme: baseTheme}
}
