// Package content holds the portfolio copy: profile, sections, work
// history and projects. It is read from YAML, with prose fields written in
// Markdown.
package content

import (
	"bytes"
	_ "embed"
	"fmt"
	"html/template"
	"os"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"gopkg.in/yaml.v3"

	"github.com/Zachkp/folio/internal/scrollspy"
)

//go:embed default.yaml
var defaultYAML []byte

// Content is the parsed content file.
type Content struct {
	Name     string `yaml:"name"`
	Initials string `yaml:"initials"`
	Tagline  string `yaml:"tagline"`
	Location string `yaml:"location"`

	Sections   []scrollspy.Section `yaml:"sections"`
	About      string              `yaml:"about"`
	Skills     []string            `yaml:"skills"`
	Experience []Entry             `yaml:"experience"`
	Education  []Entry             `yaml:"education"`
	Projects   []Project           `yaml:"projects"`
	Socials    []Social            `yaml:"socials"`

	// Rendered Markdown, filled by Parse.
	AboutHTML template.HTML `yaml:"-"`

	registry *scrollspy.Registry
}

// Entry is a job or a qualification.
type Entry struct {
	Title   string   `yaml:"title"`
	Org     string   `yaml:"org"`
	Start   string   `yaml:"start"`
	End     string   `yaml:"end"`
	Logo    string   `yaml:"logo"`
	Bullets []string `yaml:"bullets"`
}

// Project is a portfolio project card.
type Project struct {
	Name    string   `yaml:"name"`
	Summary string   `yaml:"summary"`
	Tags    []string `yaml:"tags"`
	URL     string   `yaml:"url"`
	Repo    string   `yaml:"repo"`
	Image   string   `yaml:"image"`

	SummaryHTML template.HTML `yaml:"-"`
}

// Social is a profile link.
type Social struct {
	Label string `yaml:"label"`
	Href  string `yaml:"href"`
	Icon  string `yaml:"icon"`
}

var markdown = goldmark.New(goldmark.WithExtensions(extension.GFM))

// Parse decodes and validates a content document and renders its Markdown.
func Parse(data []byte) (*Content, error) {
	var c Content
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("decoding content: %w", err)
	}
	if c.Name == "" {
		return nil, fmt.Errorf("content: name is required")
	}

	reg, err := scrollspy.NewRegistry(c.Sections...)
	if err != nil {
		return nil, fmt.Errorf("content sections: %w", err)
	}
	c.registry = reg
	c.Sections = reg.Sections()

	if c.AboutHTML, err = render(c.About); err != nil {
		return nil, fmt.Errorf("rendering about: %w", err)
	}
	for i := range c.Projects {
		p := &c.Projects[i]
		if p.SummaryHTML, err = render(p.Summary); err != nil {
			return nil, fmt.Errorf("rendering project %q: %w", p.Name, err)
		}
	}
	return &c, nil
}

// Load reads a content file. An empty path yields the built-in content.
func Load(path string) (*Content, error) {
	if path == "" {
		return Default()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading content %s: %w", path, err)
	}
	return Parse(data)
}

// Default returns the built-in content.
func Default() (*Content, error) {
	return Parse(defaultYAML)
}

// Registry returns the navigable sections in page order.
func (c *Content) Registry() *scrollspy.Registry {
	return c.registry
}

func render(src string) (template.HTML, error) {
	var buf bytes.Buffer
	if err := markdown.Convert([]byte(src), &buf); err != nil {
		return "", err
	}
	// goldmark escapes raw HTML unless WithUnsafe is set.
	return template.HTML(buf.String()), nil //nolint:gosec
}
