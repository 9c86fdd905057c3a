package gallery

import "time"

// Label display modes for grid cards.
const (
	LabelsAuto = "auto"
	LabelsOn   = "on"
	LabelsOff  = "off"
)

const (
	defaultCardMin = 240
	defaultSlideMs = 2500
	minSlideMs     = 800
)

// Preferences is the small user configuration record. It is persisted
// separately from the item collection and survives a gallery reset.
type Preferences struct {
	Labels    string `json:"labels"`
	CardMin   int    `json:"cardMin"`
	FavFilter bool   `json:"favFilter"`
	Slideshow bool   `json:"slideshow"`
	SlideMs   int    `json:"slideMs"`
}

// DefaultPreferences returns the preferences of a fresh install.
func DefaultPreferences() Preferences {
	return Preferences{
		Labels:    LabelsAuto,
		CardMin:   defaultCardMin,
		FavFilter: false,
		Slideshow: false,
		SlideMs:   defaultSlideMs,
	}
}

// Normalize replaces out-of-range values with usable ones.
func (p Preferences) Normalize() Preferences {
	switch p.Labels {
	case LabelsAuto, LabelsOn, LabelsOff:
	default:
		p.Labels = LabelsAuto
	}
	if p.CardMin <= 0 {
		p.CardMin = defaultCardMin
	}
	if p.SlideMs <= 0 {
		p.SlideMs = defaultSlideMs
	}
	if p.SlideMs < minSlideMs {
		p.SlideMs = minSlideMs
	}
	return p
}

// SlideInterval is the slideshow advance period.
func (p Preferences) SlideInterval() time.Duration {
	return time.Duration(p.Normalize().SlideMs) * time.Millisecond
}
