// Package moviedoc reads movies written as YAML documents. A document lists
// the characters of the dictionary and the root timeline; scripts are action
// assembly (see avm.Assemble). Coordinates are in pixels.
//
//	frame-rate: 12
//	size: [550, 400]
//	characters:
//	  - id: 1
//	    shape:
//	      paths:
//	        - fill: "#ff0000"
//	          points: [[0, 0], [20, 0], [20, 20], [0, 20]]
//	  - id: 10
//	    sprite:
//	      frames:
//	        - tags:
//	            - place: {depth: 1, char: 1}
//	exports: {ball: 10}
//	timeline:
//	  - label: start
//	    tags:
//	      - place: {depth: 1, char: 10, name: ball, at: [100, 50]}
//	      - script: |
//	          stop
package moviedoc

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/chazu/reel/movie"
)

// DefaultVersion is the movie version assumed when a document has none.
const DefaultVersion = 8

// ---- Internal YAML parsing structs ----------------------------------------

type yamlDocument struct {
	Version    int                          `yaml:"version"`
	FrameRate  float64                      `yaml:"frame-rate"`
	Size       []float64                    `yaml:"size"`
	Background string                       `yaml:"background"`
	Characters []yamlCharacter              `yaml:"characters"`
	Exports    map[string]movie.CharacterID `yaml:"exports"`
	Init       string                       `yaml:"init"`
	Timeline   []yamlFrame                  `yaml:"timeline"`
}

// yamlCharacter carries exactly one variant.
type yamlCharacter struct {
	ID     movie.CharacterID `yaml:"id"`
	Shape  *yamlShape        `yaml:"shape"`
	Sprite *yamlSprite       `yaml:"sprite"`
	Button *yamlButton       `yaml:"button"`
	Text   *yamlText         `yaml:"text"`
	Bitmap *yamlBitmap       `yaml:"bitmap"`
	Font   *yamlFont         `yaml:"font"`
}

type yamlShape struct {
	Bounds []float64  `yaml:"bounds"`
	Paths  []yamlPath `yaml:"paths"`
}

// yamlPath points are [x, y] for a line or [cx, cy, x, y] for a quadratic
// curve. The first point is the start.
type yamlPath struct {
	Fill      string      `yaml:"fill"`
	Alpha     *float64    `yaml:"alpha"`
	Line      string      `yaml:"line"`
	LineWidth float64     `yaml:"line-width"`
	Points    [][]float64 `yaml:"points"`
}

type yamlSprite struct {
	Init   string      `yaml:"init"`
	Frames []yamlFrame `yaml:"frames"`
}

type yamlFrame struct {
	Label string    `yaml:"label"`
	Tags  []yamlTag `yaml:"tags"`
}

// yamlTag carries exactly one of its fields.
type yamlTag struct {
	Place   *yamlPlace `yaml:"place"`
	Move    *yamlPlace `yaml:"move"`
	Replace *yamlPlace `yaml:"replace"`
	Remove  *int       `yaml:"remove"`
	Script  *string    `yaml:"script"`
}

type yamlPlace struct {
	Depth     int               `yaml:"depth"`
	Char      movie.CharacterID `yaml:"char"`
	Name      string            `yaml:"name"`
	At        []float64         `yaml:"at"`
	Scale     []float64         `yaml:"scale"`
	Rotation  float64           `yaml:"rotation"`
	Color     *yamlColor        `yaml:"color"`
	Ratio     *float64          `yaml:"ratio"`
	ClipDepth int               `yaml:"clip-depth"`
	Visible   *bool             `yaml:"visible"`
	Events    []yamlEvent       `yaml:"events"`
}

// yamlColor multipliers are fractions and offsets are 0-255, channel order
// r, g, b, a.
type yamlColor struct {
	Mul []float64 `yaml:"mul"`
	Add []float64 `yaml:"add"`
}

type yamlEvent struct {
	On     []string `yaml:"on"`
	Key    int      `yaml:"key"`
	Script string   `yaml:"script"`
}

type yamlButton struct {
	Menu    bool               `yaml:"menu"`
	Records []yamlButtonRecord `yaml:"records"`
	Actions []yamlEvent        `yaml:"actions"`
}

type yamlButtonRecord struct {
	States []string          `yaml:"states"`
	Char   movie.CharacterID `yaml:"char"`
	Depth  int               `yaml:"depth"`
	At     []float64         `yaml:"at"`
	Scale  []float64         `yaml:"scale"`
	Color  *yamlColor        `yaml:"color"`
}

type yamlText struct {
	Bounds    []float64         `yaml:"bounds"`
	Text      string            `yaml:"text"`
	Variable  string            `yaml:"variable"`
	Font      movie.CharacterID `yaml:"font"`
	Size      float64           `yaml:"size"`
	Color     string            `yaml:"color"`
	Multiline bool              `yaml:"multiline"`
	ReadOnly  bool              `yaml:"read-only"`
}

type yamlBitmap struct {
	Width  int    `yaml:"width"`
	Height int    `yaml:"height"`
	Source string `yaml:"source"`
}

type yamlFont struct {
	Name   string `yaml:"name"`
	Glyphs int    `yaml:"glyphs"`
}

// ---- Parse -----------------------------------------------------------------

// Parse builds a movie from a YAML document. Scripts are assembled and
// character references are left unchecked: the player substitutes
// placeholders for unknown IDs.
func Parse(in []byte) (*movie.Movie, error) {
	var docNode yaml.Node
	if err := yaml.Unmarshal(in, &docNode); err != nil {
		return nil, err
	}
	if len(docNode.Content) == 0 {
		return nil, fmt.Errorf("moviedoc: empty document")
	}
	root := docNode.Content[0]
	if root.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("moviedoc: line %d: document must be a mapping", root.Line)
	}
	var yd yamlDocument
	if err := root.Decode(&yd); err != nil {
		return nil, fmt.Errorf("moviedoc: %w", err)
	}
	return convertDocument(yd)
}

// Load reads and parses the document at path.
func Load(path string) (*movie.Movie, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read %s: %w", path, err)
	}
	m, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return m, nil
}
