package movement

import "strings"

type Mode string

const (
	ModeButtons Mode = "buttons"
	ModeGeo     Mode = "geo"
)

const DefaultMode = ModeButtons

func (m Mode) Valid() bool { return m == ModeButtons || m == ModeGeo }

// ParseMode accepts the launch-parameter spellings geo, geolocation and buttons.
func ParseMode(s string) (Mode, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "geo", "geolocation":
		return ModeGeo, true
	case "buttons":
		return ModeButtons, true
	}
	return "", false
}

// ResolveMode picks the initial mode: explicit request, then saved, then default.
func ResolveMode(explicit string, saved Mode, savedOK bool) Mode {
	if m, ok := ParseMode(explicit); ok {
		return m
	}
	if savedOK && saved.Valid() {
		return saved
	}
	return DefaultMode
}
