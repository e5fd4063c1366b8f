// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package directory holds the static allow-list of registered attendees.
package directory

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
	"gopkg.in/yaml.v3"
)

//go:embed default.yaml
var defaultDirectory []byte

// Attendee is one registered person and the identifiers they may log in with.
type Attendee struct {
	Name string   `yaml:"name"`
	Keys []string `yaml:"keys"`
}

type file struct {
	Attendees []Attendee `yaml:"attendees"`
}

// Directory maps normalized identifiers to display names. It is immutable
// after construction and safe for concurrent use.
type Directory struct {
	entries map[string]string
}

// Normalize trims surrounding whitespace, applies NFKC and case-folds the
// identifier, so compatibility forms such as fullwidth digits match their
// plain spelling. A Caser is stateful, so one is built per call.
func Normalize(raw string) string {
	s := strings.TrimSpace(raw)
	if s == "" {
		return ""
	}
	return cases.Fold().String(norm.NFKC.String(s))
}

// New builds a directory from attendees. A key that normalizes to empty, or
// that is claimed by two different names, is an error.
func New(attendees []Attendee) (*Directory, error) {
	d := &Directory{entries: make(map[string]string)}
	for i, a := range attendees {
		name := strings.TrimSpace(a.Name)
		if name == "" {
			return nil, fmt.Errorf("attendee %d: name is required", i)
		}
		if len(a.Keys) == 0 {
			return nil, fmt.Errorf("attendee %q: at least one key is required", name)
		}
		for _, k := range a.Keys {
			key := Normalize(k)
			if key == "" {
				return nil, fmt.Errorf("attendee %q: empty key", name)
			}
			if prev, ok := d.entries[key]; ok && prev != name {
				return nil, fmt.Errorf("key %q maps to both %q and %q", key, prev, name)
			}
			d.entries[key] = name
		}
	}
	return d, nil
}

// Parse decodes a YAML attendee list.
func Parse(data []byte) (*Directory, error) {
	var f file
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parsing directory: %w", err)
	}
	return New(f.Attendees)
}

// Load reads the directory from path, or the embedded default when path is empty.
func Load(path string) (*Directory, error) {
	if path == "" {
		return Parse(defaultDirectory)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading directory: %w", err)
	}
	return Parse(data)
}

// Lookup returns the display name registered for key. The key must already
// be normalized.
func (d *Directory) Lookup(key string) (string, bool) {
	name, ok := d.entries[key]
	return name, ok
}

// Len returns the number of registered keys.
func (d *Directory) Len() int {
	return len(d.entries)
}
