// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package catalog describes the static content the bot serves: presenters,
// their documents, videos and links, and the general event information.
package catalog

import (
	_ "embed"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed default.yaml
var defaultCatalog []byte

// Category identifies a deliverable file collection.
type Category string

const (
	CategoryVideo    Category = "video"
	CategoryDocument Category = "doc"
)

// Link is an external URL rendered as a link button.
type Link struct {
	Title string `yaml:"title"`
	URL   string `yaml:"url"`
}

// File is a local file delivered as an attachment.
type File struct {
	Title string `yaml:"title"`
	Path  string `yaml:"path"`
}

// Presenter groups the material of one speaker.
type Presenter struct {
	ID        string `yaml:"id"`
	Name      string `yaml:"name"`
	Videos    []File `yaml:"videos"`
	Documents []File `yaml:"documents"`
	Links     []Link `yaml:"links"`
}

// Agenda is the event schedule text and an optional downloadable file.
type Agenda struct {
	Text string `yaml:"text"`
	File string `yaml:"file"`
}

// Connection holds the access warning and the session join links.
type Connection struct {
	Alert string `yaml:"alert"`
	Links []Link `yaml:"links"`
}

// Catalog is immutable after Load.
type Catalog struct {
	EventName    string      `yaml:"event_name"`
	Agenda       Agenda      `yaml:"agenda"`
	LocationURL  string      `yaml:"location_url"`
	Connection   Connection  `yaml:"connection"`
	GeneralLinks []Link      `yaml:"general_links"`
	BrokerLinks  []Link      `yaml:"broker_links"`
	Presenters   []Presenter `yaml:"presenters"`

	dataDir string
}

// Parse decodes and validates a YAML catalog. Relative file paths resolve
// against dataDir.
func Parse(data []byte, dataDir string) (*Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("parsing catalog: %w", err)
	}
	c.dataDir = dataDir
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// Load reads the catalog from path, or the embedded default when path is empty.
func Load(path, dataDir string) (*Catalog, error) {
	if path == "" {
		return Parse(defaultCatalog, dataDir)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading catalog: %w", err)
	}
	return Parse(data, dataDir)
}

// Validate checks the structural rules the menu relies on: ids and titles
// are non-empty and colon-free, presenter ids are unique, URLs are absolute.
func (c *Catalog) Validate() error {
	if strings.TrimSpace(c.EventName) == "" {
		return fmt.Errorf("catalog: event_name is required")
	}
	if c.LocationURL != "" {
		if err := checkURL(c.LocationURL); err != nil {
			return fmt.Errorf("catalog: location_url: %w", err)
		}
	}
	if err := checkLinks("connection", c.Connection.Links); err != nil {
		return err
	}
	if err := checkLinks("general_links", c.GeneralLinks); err != nil {
		return err
	}
	if err := checkLinks("broker_links", c.BrokerLinks); err != nil {
		return err
	}

	seen := make(map[string]bool, len(c.Presenters))
	for _, p := range c.Presenters {
		if err := checkKey("presenter id", p.ID); err != nil {
			return fmt.Errorf("catalog: %w", err)
		}
		if seen[p.ID] {
			return fmt.Errorf("catalog: duplicate presenter id %q", p.ID)
		}
		seen[p.ID] = true
		if strings.TrimSpace(p.Name) == "" {
			return fmt.Errorf("catalog: presenter %q has no name", p.ID)
		}
		if err := checkFiles(p.ID+" videos", p.Videos); err != nil {
			return err
		}
		if err := checkFiles(p.ID+" documents", p.Documents); err != nil {
			return err
		}
		if err := checkLinks(p.ID+" links", p.Links); err != nil {
			return err
		}
	}
	return nil
}

func checkKey(what, v string) error {
	if strings.TrimSpace(v) == "" {
		return fmt.Errorf("%s is empty", what)
	}
	if strings.Contains(v, ":") {
		return fmt.Errorf("%s %q must not contain ':'", what, v)
	}
	return nil
}

func checkFiles(section string, files []File) error {
	titles := make(map[string]bool, len(files))
	for _, f := range files {
		if err := checkKey("title", f.Title); err != nil {
			return fmt.Errorf("catalog: %s: %w", section, err)
		}
		if titles[f.Title] {
			return fmt.Errorf("catalog: %s: duplicate title %q", section, f.Title)
		}
		titles[f.Title] = true
		if strings.TrimSpace(f.Path) == "" {
			return fmt.Errorf("catalog: %s: %q has no path", section, f.Title)
		}
	}
	return nil
}

func checkLinks(section string, links []Link) error {
	for _, l := range links {
		if strings.TrimSpace(l.Title) == "" {
			return fmt.Errorf("catalog: %s: link without title", section)
		}
		if err := checkURL(l.URL); err != nil {
			return fmt.Errorf("catalog: %s: %q: %w", section, l.Title, err)
		}
	}
	return nil
}

func checkURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return err
	}
	if (u.Scheme != "https" && u.Scheme != "http") || u.Host == "" {
		return fmt.Errorf("%q is not an absolute http(s) URL", raw)
	}
	return nil
}

// Presenter returns the presenter with the given id.
func (c *Catalog) Presenter(id string) (*Presenter, bool) {
	for i := range c.Presenters {
		if c.Presenters[i].ID == id {
			return &c.Presenters[i], true
		}
	}
	return nil, false
}

// Files returns the presenter's files in the given category.
func (p *Presenter) Files(cat Category) []File {
	switch cat {
	case CategoryVideo:
		return p.Videos
	case CategoryDocument:
		return p.Documents
	default:
		return nil
	}
}

// Item looks up a deliverable file by presenter, category and title.
func (c *Catalog) Item(cat Category, presenterID, title string) (File, bool) {
	p, ok := c.Presenter(presenterID)
	if !ok {
		return File{}, false
	}
	for _, f := range p.Files(cat) {
		if f.Title == title {
			return f, true
		}
	}
	return File{}, false
}

// AgendaFile returns the agenda attachment when one is configured.
func (c *Catalog) AgendaFile() (File, bool) {
	if c.Agenda.File == "" {
		return File{}, false
	}
	return File{Title: "Agenda del evento", Path: c.Agenda.File}, true
}

// ResolvePath returns the on-disk location of f.
func (c *Catalog) ResolvePath(f File) string {
	if filepath.IsAbs(f.Path) || c.dataDir == "" {
		return f.Path
	}
	return filepath.Join(c.dataDir, f.Path)
}
