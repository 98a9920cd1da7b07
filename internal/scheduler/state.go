package scheduler

import (
	"github.com/oukeidos/dualpage/internal/dom"
	"github.com/oukeidos/dualpage/internal/segment"
)

// PageState is the translation state of a page.
type PageState string

const (
	Original   PageState = "original"
	Translated PageState = "translated"
)

// Attribute is an element attribute queued for translation.
type Attribute struct {
	Node dom.Node
	Name string
	// Original is the value before translation, untrimmed.
	Original string
	// Label is the text sent for translation. It differs from Original
	// only for submit and reset buttons that show a browser default.
	Label string
	// Existed is false when the attribute was absent before translation.
	Existed bool

	dispatched bool
	applied    bool
}

// textRestore puts a translated wrapper back to the text node it replaced.
type textRestore struct {
	wrapper  dom.Node
	original dom.Node
}

// titleEntry records the page title so it can be put back exactly.
type titleEntry struct {
	elem       dom.Node
	children   []dom.Node
	text       string
	dispatched bool
	applied    bool
}

// State is everything the engine tracks for one page. It moves from
// Original to Translated on TranslatePage and back on RestorePage; every
// transition bumps Generation so that in-flight results from the previous
// pass are dropped.
type State struct {
	Page       PageState
	Generation uint64

	// TargetLanguage is the language of the current or last pass.
	TargetLanguage string
	// OriginalLanguage is the detected page language, "und" until known.
	OriginalLanguage string
	// PageLanguage is OriginalLanguage or, while translated, TargetLanguage.
	PageLanguage string
	Service      string

	Units      []*segment.Unit
	Attributes []*Attribute

	blocks   map[*segment.Unit]dom.Node
	restores []textRestore
	title    *titleEntry
}

// reset drops the bookkeeping of a pass.
func (s *State) reset() {
	s.Units = nil
	s.Attributes = nil
	s.blocks = make(map[*segment.Unit]dom.Node)
	s.restores = nil
	s.title = nil
}

// Status is a read-only summary of State.
type Status struct {
	Page             PageState
	Generation       uint64
	TargetLanguage   string
	OriginalLanguage string
	PageLanguage     string
	Service          string
	Units            int
	Pending          int
	Attributes       int
	Observing        bool
}
