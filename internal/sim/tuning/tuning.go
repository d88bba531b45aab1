package tuning

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

type Tuning struct {
	TileSize                float64 `yaml:"tile_size"`
	WindowRadius            int     `yaml:"window_radius"`
	SpawnProbability        float64 `yaml:"spawn_probability"`
	InteractionRadiusMeters float64 `yaml:"interaction_radius_meters"`
	WinThreshold            int     `yaml:"win_threshold"`
	StartingValues          []int   `yaml:"starting_values"`
	StartingHeldToken       *int    `yaml:"starting_held_token"`
	RangeRadiusPx           int     `yaml:"range_radius_px"`

	Start LatLng `yaml:"start"`
}

type LatLng struct {
	Lat float64 `yaml:"lat"`
	Lng float64 `yaml:"lng"`
}

func Defaults() Tuning {
	return Tuning{
		TileSize:         1e-4,
		WindowRadius:     20,
		SpawnProbability: 0.07,
		// 0.00048 degrees of latitude.
		InteractionRadiusMeters: 0.00048 * 111320,
		WinThreshold:            32,
		StartingValues:          []int{0, 2, 4, 8, 16},
		RangeRadiusPx:           200,
		Start:                   LatLng{Lat: 36.9979, Lng: -122.0570},
	}
}

// Load reads a tuning file over the defaults. An empty path yields defaults.
func Load(path string) (Tuning, error) {
	t := Defaults()
	if strings.TrimSpace(path) == "" {
		return t, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return t, err
	}
	if err := yaml.Unmarshal(raw, &t); err != nil {
		return t, fmt.Errorf("tuning.yaml: %w", err)
	}
	if err := t.Validate(); err != nil {
		return t, fmt.Errorf("tuning.yaml: %w", err)
	}
	return t, nil
}

func (t Tuning) Validate() error {
	if t.TileSize <= 0 {
		return fmt.Errorf("tile_size must be > 0")
	}
	if t.WindowRadius <= 0 {
		return fmt.Errorf("window_radius must be > 0")
	}
	if t.SpawnProbability < 0 || t.SpawnProbability > 1 {
		return fmt.Errorf("spawn_probability must be in [0,1]")
	}
	if t.InteractionRadiusMeters < 0 {
		return fmt.Errorf("interaction_radius_meters must be >= 0")
	}
	if len(t.StartingValues) == 0 {
		return fmt.Errorf("starting_values must not be empty")
	}
	for _, v := range t.StartingValues {
		if v < 0 {
			return fmt.Errorf("starting_values: negative value %d", v)
		}
	}
	if t.StartingHeldToken != nil && *t.StartingHeldToken < 0 {
		return fmt.Errorf("starting_held_token must be >= 0")
	}
	if t.Start.Lat < -90 || t.Start.Lat > 90 || t.Start.Lng < -180 || t.Start.Lng > 180 {
		return fmt.Errorf("start out of range")
	}
	return nil
}
