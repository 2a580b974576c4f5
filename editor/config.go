package editor

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/abdes/oxygen-interop/common"
	"github.com/abdes/oxygen-interop/editor/input"
	"github.com/abdes/oxygen-interop/surface"
)

// NavigationConfig tunes camera navigation. Zero fields fall back to the
// defaults.
type NavigationConfig struct {
	OrbitSpeed float32 `yaml:"orbit_speed"`
	PanSpeed   float32 `yaml:"pan_speed"`
	DollySpeed float32 `yaml:"dolly_speed"`
	FlySpeed   float32 `yaml:"fly_speed"`
	ZoomSpeed  float32 `yaml:"zoom_speed"`
}

// Config is the editor module configuration, loaded from YAML. A missing
// file yields the defaults; a malformed file is an error.
type Config struct {
	FramesInFlight int              `yaml:"frames_in_flight"`
	ClearColor     common.Color     `yaml:"clear_color"`
	Navigation     NavigationConfig `yaml:"navigation"`
}

// DefaultConfig returns the configuration used when no file is present.
func DefaultConfig() Config {
	s := input.DefaultSpeeds()
	return Config{
		FramesInFlight: surface.DefaultFramesInFlight,
		ClearColor:     common.Color{0.1, 0.1, 0.12, 1},
		Navigation: NavigationConfig{
			OrbitSpeed: s.Orbit,
			PanSpeed:   s.Pan,
			DollySpeed: s.Dolly,
			FlySpeed:   s.Fly,
			ZoomSpeed:  s.Zoom,
		},
	}
}

// LoadConfig reads the editor configuration from a YAML file. A missing file
// is not an error; the defaults are returned. Unset fields keep their
// default values.
//
// Parameters:
//   - path: the config file path
//
// Returns:
//   - Config: the effective configuration
//   - error: when the file exists but cannot be read or parsed
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("editor: read config %q: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return DefaultConfig(), fmt.Errorf("editor: parse config %q: %w", path, err)
	}
	cfg.normalize()
	return cfg, nil
}

// normalize replaces out-of-range values with defaults.
func (c *Config) normalize() {
	if c.FramesInFlight <= 0 {
		c.FramesInFlight = surface.DefaultFramesInFlight
	}
	def := DefaultConfig().Navigation
	c.Navigation.OrbitSpeed = common.Coalesce(c.Navigation.OrbitSpeed, def.OrbitSpeed)
	c.Navigation.PanSpeed = common.Coalesce(c.Navigation.PanSpeed, def.PanSpeed)
	c.Navigation.DollySpeed = common.Coalesce(c.Navigation.DollySpeed, def.DollySpeed)
	c.Navigation.FlySpeed = common.Coalesce(c.Navigation.FlySpeed, def.FlySpeed)
	c.Navigation.ZoomSpeed = common.Coalesce(c.Navigation.ZoomSpeed, def.ZoomSpeed)
}

// Speeds converts the navigation config into the input package's tuning.
func (c Config) Speeds() input.Speeds {
	return input.Speeds{
		Orbit: c.Navigation.OrbitSpeed,
		Pan:   c.Navigation.PanSpeed,
		Dolly: c.Navigation.DollySpeed,
		Fly:   c.Navigation.FlySpeed,
		Zoom:  c.Navigation.ZoomSpeed,
	}
}
