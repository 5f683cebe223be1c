// Package statelink resolves a US state to its business registry search URL.
package statelink

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Table is an in-memory state -> URL lookup.
type Table struct {
	links map[string]string
}

type fileFormat struct {
	States map[string]string `yaml:"states"`
}

// NewTable copies links, normalizing state codes.
func NewTable(links map[string]string) *Table {
	t := &Table{links: make(map[string]string, len(links))}
	for state, url := range links {
		if url = strings.TrimSpace(url); url != "" {
			t.links[normalize(state)] = url
		}
	}
	return t
}

// Load reads a YAML document of the form `states: {TX: https://...}`.
func Load(r io.Reader) (*Table, error) {
	var f fileFormat
	if err := yaml.NewDecoder(r).Decode(&f); err != nil {
		return nil, fmt.Errorf("decode state links: %w", err)
	}
	return NewTable(f.States), nil
}

// LoadFile opens path and loads it.
func LoadFile(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open state links: %w", err)
	}
	defer f.Close()
	return Load(f)
}

func (t *Table) Resolve(_ context.Context, state string) (string, bool, error) {
	url, ok := t.links[normalize(state)]
	return url, ok, nil
}

// Links returns a copy of the table.
func (t *Table) Links() map[string]string {
	out := make(map[string]string, len(t.links))
	for k, v := range t.links {
		out[k] = v
	}
	return out
}

func (t *Table) Len() int { return len(t.links) }

func normalize(state string) string {
	return strings.ToUpper(strings.TrimSpace(state))
}
