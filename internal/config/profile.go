package config

import (
	"fmt"
	"maps"
	"slices"

	"github.com/nao1215/metanull/internal/codec"
	"github.com/nao1215/metanull/internal/model"
)

// Profile is a named set of sanitize settings in the config file.
// Zero values and nil pointers mean "not set" so that a profile only
// overrides what it names.
type Profile struct {
	// Format is the output container (jpeg, webp, png).
	Format string `yaml:"format,omitempty"`

	// Quality is the lossy encoder quality.
	Quality int `yaml:"quality,omitempty"`

	// PerturbPixels toggles pixel alteration.
	PerturbPixels *bool `yaml:"perturbPixels,omitempty"`

	// RandomizeTimestamp toggles the file time rewrite.
	RandomizeTimestamp *bool `yaml:"randomizeTimestamp,omitempty"`

	// Verify toggles re-inspection of the output.
	Verify *bool `yaml:"verify,omitempty"`

	// Convert is an explicit conversion target (l, rgb, rgba).
	Convert string `yaml:"convert,omitempty"`

	// JPEGBackend selects the JPEG encoder (jpegli, std).
	JPEGBackend string `yaml:"jpegBackend,omitempty"`

	// Concurrency overrides the batch concurrency.
	Concurrency int `yaml:"concurrency,omitempty"`

	// History toggles recording runs in the history database.
	History *bool `yaml:"history,omitempty"`
}

// File represents the structure of the .metanull.yaml configuration file.
type File struct {
	// Defaults is applied to every run.
	Defaults Profile `yaml:"defaults,omitempty"`

	// Profiles maps a profile name to the settings it overrides on top
	// of Defaults.
	Profiles map[string]Profile `yaml:"profiles,omitempty"`
}

// ProfileNames returns the defined profile names in sorted order.
func (cf *File) ProfileNames() []string {
	return slices.Sorted(maps.Keys(cf.Profiles))
}

// Profile returns the defaults merged with the named profile.
// An empty name returns the defaults alone.
func (cf *File) Profile(name string) (Profile, error) {
	result := cf.Defaults
	if name == "" {
		return result, nil
	}

	p, ok := cf.Profiles[name]
	if !ok {
		return Profile{}, fmt.Errorf("%w: %q (defined: %v)", ErrUnknownProfile, name, cf.ProfileNames())
	}

	if p.Format != "" {
		result.Format = p.Format
	}
	if p.Quality != 0 {
		result.Quality = p.Quality
	}
	if p.PerturbPixels != nil {
		result.PerturbPixels = p.PerturbPixels
	}
	if p.RandomizeTimestamp != nil {
		result.RandomizeTimestamp = p.RandomizeTimestamp
	}
	if p.Verify != nil {
		result.Verify = p.Verify
	}
	if p.Convert != "" {
		result.Convert = p.Convert
	}
	if p.JPEGBackend != "" {
		result.JPEGBackend = p.JPEGBackend
	}
	if p.Concurrency != 0 {
		result.Concurrency = p.Concurrency
	}
	if p.History != nil {
		result.History = p.History
	}
	return result, nil
}

// Apply copies every field set in p onto c.
func (c *Config) Apply(p Profile) error {
	if p.Format != "" {
		f, err := model.ParseFormat(p.Format)
		if err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidFormat, err)
		}
		c.Format = f
	}
	if p.Quality != 0 {
		c.Quality = p.Quality
	}
	if p.PerturbPixels != nil {
		c.PerturbPixels = *p.PerturbPixels
	}
	if p.RandomizeTimestamp != nil {
		c.RandomizeTimestamp = *p.RandomizeTimestamp
	}
	if p.Verify != nil {
		c.Verify = *p.Verify
	}
	if p.Convert != "" {
		m, err := model.ParseColorMode(p.Convert)
		if err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidConvertMode, err)
		}
		c.ConvertMode = m
	}
	if p.JPEGBackend != "" {
		b, err := codec.ParseJPEGBackend(p.JPEGBackend)
		if err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidJPEGBackend, err)
		}
		c.JPEGBackend = b
	}
	if p.Concurrency != 0 {
		c.Concurrency = p.Concurrency
	}
	if p.History != nil {
		c.SaveToDB = *p.History
	}
	return nil
}
