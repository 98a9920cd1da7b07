package pipeline

import (
	"errors"
	"fmt"

	"github.com/oukeidos/dualpage/internal/backend"
	"github.com/oukeidos/dualpage/internal/config"
	"github.com/oukeidos/dualpage/internal/dom/htmldoc"
	"github.com/oukeidos/dualpage/internal/keyword"
	"github.com/oukeidos/dualpage/internal/siterules"
)

// Config holds all configuration required for translating one page file.
type Config struct {
	// IO Paths
	InputPath  string
	OutputPath string

	// PageURL is the address the page is treated as loaded from. Site rules
	// and site lists match against it.
	PageURL string

	// Engine settings and the resources built from them.
	Engine     config.Config
	Dictionary *keyword.Dictionary
	Rules      *siterules.Set
	Backend    backend.Translator

	// Viewport simulation
	ViewportHeight float64
	// ScrollStep is how far the viewport moves between dispatches.
	// Zero means one viewport height.
	ScrollStep float64
	MaxScrolls int

	// Flags
	RevealOriginal bool // show the companions in the written page
	Overwrite      bool // overwrite output without asking

	// Callbacks
	// OnProgress is called after every viewport position.
	OnProgress func(Progress)

	// OnConfirmOverwrite is called when the output file exists.
	// It should return true if the file should be overwritten.
	OnConfirmOverwrite func(path string) bool
}

const (
	MinViewportHeight = 100
	MaxViewportHeight = 20000
	DefaultMaxScrolls = 10000
)

// Normalize applies safe bounds to config values and returns any adjustments.
func (c Config) Normalize() (Config, []string) {
	var notes []string
	c.Engine, notes = c.Engine.Normalize()
	switch {
	case c.ViewportHeight <= 0:
		c.ViewportHeight = htmldoc.DefaultViewportHeight
	case c.ViewportHeight < MinViewportHeight:
		notes = append(notes, fmt.Sprintf("viewport height raised from %.0f to %d", c.ViewportHeight, MinViewportHeight))
		c.ViewportHeight = MinViewportHeight
	case c.ViewportHeight > MaxViewportHeight:
		notes = append(notes, fmt.Sprintf("viewport height lowered from %.0f to %d", c.ViewportHeight, MaxViewportHeight))
		c.ViewportHeight = MaxViewportHeight
	}
	if c.ScrollStep <= 0 {
		c.ScrollStep = c.ViewportHeight
	} else if c.ScrollStep > c.ViewportHeight {
		// A larger step would jump over units.
		notes = append(notes, fmt.Sprintf("scroll step lowered from %.0f to the viewport height %.0f", c.ScrollStep, c.ViewportHeight))
		c.ScrollStep = c.ViewportHeight
	}
	if c.MaxScrolls <= 0 {
		c.MaxScrolls = DefaultMaxScrolls
	}
	return c, notes
}

// Validate checks if the configuration is valid.
func (c Config) Validate() error {
	if c.InputPath == "" {
		return errors.New("input path is required")
	}
	if c.OutputPath == "" {
		return errors.New("output path is required")
	}
	if c.Backend == nil {
		return errors.New("translation backend is required")
	}
	return c.Engine.Validate()
}
