// Package videorender assembles the final videos: per-row clips are cut,
// concatenated, overlaid with timed images and burned-in text, mixed with
// the narration audio and published, once per aspect profile.
package videorender

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

const (
	// SpeechVolume scales the narration track during the audio mix.
	SpeechVolume = 1.0
	// FadeDuration is the image overlay fade in/out time in seconds.
	FadeDuration = 0.2
)

// TextStyle is the drawtext layout for one burned-in text kind.
type TextStyle struct {
	FontFile  string `yaml:"fontFile"`
	FontSize  int    `yaml:"fontSize"`
	FontColor string `yaml:"fontColor"`
	MarginX   int    `yaml:"marginX"`
	MarginY   int    `yaml:"marginY"`
}

// Profile is the static geometry of one output aspect ratio. The three
// instances are immutable once loaded.
type Profile struct {
	Name   string `yaml:"name"`
	Width  int    `yaml:"width"`
	Height int    `yaml:"height"`
	// Aspect is the reframe tool's target ratio, e.g. "16:9".
	Aspect string `yaml:"aspect"`

	// Product/guarantee overlay box and its vertical margin.
	ImageWidth   int `yaml:"imageWidth"`
	ImageHeight  int `yaml:"imageHeight"`
	ImageMarginY int `yaml:"imageMarginY"`

	Subtitle   TextStyle `yaml:"subtitle"`
	Disclaimer TextStyle `yaml:"disclaimer"`
	Citation   TextStyle `yaml:"citation"`
}

const defaultFont = "/usr/share/fonts/truetype/dejavu/DejaVuSans-Bold.ttf"

// DefaultProfiles returns the three built-in aspect profiles.
func DefaultProfiles() []Profile {
	return []Profile{
		{
			Name: "landscape", Width: 1200, Height: 720, Aspect: "16:9",
			ImageWidth: 400, ImageHeight: 400, ImageMarginY: 40,
			Subtitle:   TextStyle{FontFile: defaultFont, FontSize: 36, FontColor: "white", MarginY: 60},
			Disclaimer: TextStyle{FontFile: defaultFont, FontSize: 18, FontColor: "white", MarginX: 20, MarginY: 20},
			Citation:   TextStyle{FontFile: defaultFont, FontSize: 18, FontColor: "white", MarginX: 20, MarginY: 20},
		},
		{
			Name: "portrait", Width: 720, Height: 1200, Aspect: "9:16",
			ImageWidth: 360, ImageHeight: 360, ImageMarginY: 80,
			Subtitle:   TextStyle{FontFile: defaultFont, FontSize: 32, FontColor: "white", MarginY: 120},
			Disclaimer: TextStyle{FontFile: defaultFont, FontSize: 16, FontColor: "white", MarginX: 16, MarginY: 40},
			Citation:   TextStyle{FontFile: defaultFont, FontSize: 16, FontColor: "white", MarginX: 16, MarginY: 40},
		},
		{
			Name: "square", Width: 1080, Height: 1080, Aspect: "1:1",
			ImageWidth: 380, ImageHeight: 380, ImageMarginY: 60,
			Subtitle:   TextStyle{FontFile: defaultFont, FontSize: 34, FontColor: "white", MarginY: 80},
			Disclaimer: TextStyle{FontFile: defaultFont, FontSize: 17, FontColor: "white", MarginX: 18, MarginY: 30},
			Citation:   TextStyle{FontFile: defaultFont, FontSize: 17, FontColor: "white", MarginX: 18, MarginY: 30},
		},
	}
}

// LoadProfiles reads profile overrides from a YAML file; a missing path keeps
// the defaults. The file must define all three profiles if it defines any.
func LoadProfiles(path string) ([]Profile, error) {
	if path == "" {
		return DefaultProfiles(), nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read profiles %s: %w", path, err)
	}

	var profiles []Profile
	if err := yaml.Unmarshal(raw, &profiles); err != nil {
		return nil, fmt.Errorf("parse profiles %s: %w", path, err)
	}
	if len(profiles) != 3 {
		return nil, fmt.Errorf("profiles %s: expected 3 profiles, got %d", path, len(profiles))
	}
	for _, p := range profiles {
		if p.Name == "" || p.Width <= 0 || p.Height <= 0 {
			return nil, fmt.Errorf("profiles %s: profile %q incomplete", path, p.Name)
		}
	}
	return profiles, nil
}
