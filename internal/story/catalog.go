// Package story resolves presets into generation requests and drives a
// story from template to finished document.
package story

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/spf13/viper"

	"github.com/caseras1/ai-childbook/internal/domain"
)

// DefaultNegativePrompt keeps unwanted content out of children's illustrations.
const DefaultNegativePrompt = "text, logo, watermark, nsfw, blood, gore, creepy, scary, low quality"

// StylePreset is a named model/element/prompt bundle applied to every page.
type StylePreset struct {
	Key           string   `json:"key"`
	Title         string   `json:"title"`
	ModelID       string   `json:"model_id"`
	ElementID     string   `json:"element_id,omitempty"`
	ElementWeight float64  `json:"element_weight,omitempty"`
	BasePrompt    string   `json:"base_prompt"`
	Width         int      `json:"width"`
	Height        int      `json:"height"`
	Alchemy       *bool    `json:"alchemy,omitempty"`
	Contrast      *float64 `json:"contrast,omitempty"`
	DatasetID     string   `json:"dataset_id,omitempty"`
}

// StoryVariant layers an extra prompt fragment and optional reference images
// over a style.
type StoryVariant struct {
	Key          string   `json:"key" mapstructure:"key"`
	ExtraPrompt  string   `json:"extra_prompt" mapstructure:"extra_prompt"`
	ImagePrompts []string `json:"image_prompts,omitempty" mapstructure:"image_prompts"`
}

// Template is one story: a title and its pages in render order.
type Template struct {
	Key     string             `json:"key"`
	Title   string             `json:"title"`
	Source  string             `json:"json"`
	Variant *StoryVariant      `json:"-"`
	Pages   []domain.StoryPage `json:"-"`
}

// Catalog is the read-only preset configuration, validated at load.
type Catalog struct {
	negativePrompt string
	defaultStyle   string
	styles         []StylePreset
	variants       map[string]*StoryVariant
	stories        []Template
}

type rawCatalog struct {
	NegativePrompt string         `mapstructure:"negative_prompt"`
	DefaultStyle   string         `mapstructure:"default_style"`
	PagesDir       string         `mapstructure:"pages_dir"`
	Styles         []rawStyle     `mapstructure:"styles"`
	Variants       []StoryVariant `mapstructure:"variants"`
	Stories        []rawStory     `mapstructure:"stories"`
}

type rawStyle struct {
	Key           string   `mapstructure:"key"`
	Title         string   `mapstructure:"title"`
	ModelID       string   `mapstructure:"model_id"`
	ElementID     string   `mapstructure:"element_id"`
	ElementWeight float64  `mapstructure:"element_weight"`
	BasePrompt    string   `mapstructure:"base_prompt"`
	Width         int      `mapstructure:"width"`
	Height        int      `mapstructure:"height"`
	Alchemy       *bool    `mapstructure:"alchemy"`
	Contrast      *float64 `mapstructure:"contrast"`
	DatasetID     string   `mapstructure:"dataset_id"`
}

type rawStory struct {
	Key     string `mapstructure:"key"`
	Title   string `mapstructure:"title"`
	Pages   string `mapstructure:"pages"`
	Variant string `mapstructure:"variant"`
}

var envRef = regexp.MustCompile(`\$\{(\w+)(:([^}]*))?}`)

// expandEnv replaces ${VAR} and ${VAR:default} with environment values.
func expandEnv(s string) string {
	return envRef.ReplaceAllStringFunc(s, func(match string) string {
		sub := envRef.FindStringSubmatch(match)
		if val, ok := os.LookupEnv(sub[1]); ok {
			return val
		}
		if sub[2] != "" {
			return sub[3]
		}
		return match
	})
}

// LoadCatalog reads the YAML preset file at path. Page files are resolved
// relative to pages_dir, itself relative to the preset file. Every preset is
// validated here: placeholders, dangling references and malformed pages fail
// the load.
func LoadCatalog(path string) (*Catalog, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("catalog: read %s: %w", path, err)
	}
	v := viper.New()
	v.SetConfigType("yaml")
	if err := v.ReadConfig(strings.NewReader(expandEnv(string(content)))); err != nil {
		return nil, fmt.Errorf("catalog: parse %s: %w", path, err)
	}
	// STORYBOOK_DEFAULT_STYLE and STORYBOOK_NEGATIVE_PROMPT override the file.
	v.SetEnvPrefix("STORYBOOK")
	v.AutomaticEnv()
	v.SetDefault("negative_prompt", DefaultNegativePrompt)
	v.SetDefault("pages_dir", ".")
	v.SetDefault("default_style", "")

	var raw rawCatalog
	if err := v.Unmarshal(&raw); err != nil {
		return nil, fmt.Errorf("catalog: decode %s: %w", path, err)
	}

	pagesDir := raw.PagesDir
	if !filepath.IsAbs(pagesDir) {
		pagesDir = filepath.Join(filepath.Dir(path), pagesDir)
	}
	return buildCatalog(raw, pagesDir)
}

func buildCatalog(raw rawCatalog, pagesDir string) (*Catalog, error) {
	c := &Catalog{
		negativePrompt: strings.TrimSpace(raw.NegativePrompt),
		defaultStyle:   strings.TrimSpace(raw.DefaultStyle),
		variants:       map[string]*StoryVariant{},
	}
	if c.negativePrompt == "" {
		c.negativePrompt = DefaultNegativePrompt
	}

	if len(raw.Styles) == 0 {
		return nil, fmt.Errorf("catalog: no styles configured")
	}
	seen := map[string]bool{}
	for _, rs := range raw.Styles {
		s, err := buildStyle(rs)
		if err != nil {
			return nil, err
		}
		if seen[s.Key] {
			return nil, fmt.Errorf("catalog: duplicate style %q", s.Key)
		}
		seen[s.Key] = true
		c.styles = append(c.styles, s)
	}
	if c.defaultStyle != "" && !seen[c.defaultStyle] {
		return nil, fmt.Errorf("catalog: default_style %q is not a configured style", c.defaultStyle)
	}

	for i := range raw.Variants {
		rv := raw.Variants[i]
		rv.Key = normalizeKey(rv.Key)
		if rv.Key == "" {
			return nil, fmt.Errorf("catalog: variant without key")
		}
		if _, dup := c.variants[rv.Key]; dup {
			return nil, fmt.Errorf("catalog: duplicate variant %q", rv.Key)
		}
		if domain.IsPlaceholder(rv.ExtraPrompt) {
			return nil, &domain.UnresolvedModelError{Key: rv.Key, Field: "extra_prompt"}
		}
		rv.ExtraPrompt = strings.TrimSpace(rv.ExtraPrompt)
		c.variants[rv.Key] = &rv
	}

	if len(raw.Stories) == 0 {
		return nil, fmt.Errorf("catalog: no stories configured")
	}
	storyKeys := map[string]bool{}
	for _, rs := range raw.Stories {
		t := Template{Key: normalizeKey(rs.Key), Title: strings.TrimSpace(rs.Title)}
		if t.Key == "" || t.Title == "" {
			return nil, fmt.Errorf("catalog: story needs key and title (got %q/%q)", rs.Key, rs.Title)
		}
		if storyKeys[t.Key] {
			return nil, fmt.Errorf("catalog: duplicate story %q", t.Key)
		}
		storyKeys[t.Key] = true
		if vk := normalizeKey(rs.Variant); vk != "" {
			variant, ok := c.variants[vk]
			if !ok {
				return nil, fmt.Errorf("catalog: story %q references unknown variant %q", t.Key, rs.Variant)
			}
			t.Variant = variant
		}
		t.Source = rs.Pages
		if !filepath.IsAbs(t.Source) {
			t.Source = filepath.Join(pagesDir, rs.Pages)
		}
		pages, err := LoadPages(t.Source)
		if err != nil {
			return nil, fmt.Errorf("catalog: story %q: %w", t.Key, err)
		}
		t.Pages = pages
		c.stories = append(c.stories, t)
	}
	return c, nil
}

func buildStyle(rs rawStyle) (StylePreset, error) {
	s := StylePreset{
		Key:           strings.TrimSpace(rs.Key),
		Title:         strings.TrimSpace(rs.Title),
		ModelID:       strings.TrimSpace(rs.ModelID),
		ElementID:     strings.TrimSpace(rs.ElementID),
		ElementWeight: rs.ElementWeight,
		BasePrompt:    strings.TrimSpace(rs.BasePrompt),
		Width:         rs.Width,
		Height:        rs.Height,
		Alchemy:       rs.Alchemy,
		Contrast:      rs.Contrast,
		DatasetID:     strings.TrimSpace(rs.DatasetID),
	}
	if s.Key == "" {
		return s, fmt.Errorf("catalog: style without key")
	}
	if s.Title == "" {
		s.Title = s.Key
	}
	if domain.IsPlaceholder(s.ModelID) {
		return s, &domain.UnresolvedModelError{Key: s.Key, Field: "model_id"}
	}
	if domain.IsPlaceholder(s.BasePrompt) {
		return s, &domain.UnresolvedModelError{Key: s.Key, Field: "base_prompt"}
	}
	if s.Width == 0 {
		s.Width = 1024
	}
	if s.Height == 0 {
		s.Height = 1024
	}
	if s.Width < 0 || s.Height < 0 {
		return s, fmt.Errorf("catalog: style %q has negative dimensions", s.Key)
	}
	// "0" is how an untrained element slot is written down.
	if s.ElementID == "0" || domain.IsPlaceholder(s.ElementID) {
		s.ElementID = ""
	}
	if s.ElementID != "" && s.ElementWeight == 0 {
		s.ElementWeight = 1
	}
	if domain.IsPlaceholder(s.DatasetID) {
		s.DatasetID = ""
	}
	return s, nil
}

// LoadPages reads a JSON page list, checks it and returns it sorted by page number.
func LoadPages(path string) ([]domain.StoryPage, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read pages: %w", err)
	}
	var pages []domain.StoryPage
	if err := json.Unmarshal(data, &pages); err != nil {
		return nil, fmt.Errorf("decode pages %s: %w", path, err)
	}
	if len(pages) == 0 {
		return nil, fmt.Errorf("%s has no pages", path)
	}
	seen := map[int]bool{}
	for i, p := range pages {
		if p.Number < 1 {
			return nil, fmt.Errorf("%s: entry %d has page number %d, want >= 1", path, i, p.Number)
		}
		if seen[p.Number] {
			return nil, fmt.Errorf("%s: duplicate page number %d", path, p.Number)
		}
		seen[p.Number] = true
		if strings.TrimSpace(p.Scene) == "" {
			return nil, fmt.Errorf("%s: page %d has no scene", path, p.Number)
		}
	}
	sort.Slice(pages, func(i, j int) bool { return pages[i].Number < pages[j].Number })
	return pages, nil
}

func normalizeKey(k string) string {
	return strings.ToLower(strings.TrimSpace(k))
}

// NegativePrompt is sent with every generation.
func (c *Catalog) NegativePrompt() string { return c.negativePrompt }

// Stories lists templates in configuration order.
func (c *Catalog) Stories() []Template {
	out := make([]Template, len(c.stories))
	copy(out, c.stories)
	return out
}

// Styles lists style presets in configuration order.
func (c *Catalog) Styles() []StylePreset {
	out := make([]StylePreset, len(c.styles))
	copy(out, c.styles)
	return out
}

// Story looks a template up by key, case-insensitively.
func (c *Catalog) Story(key string) (Template, error) {
	k := normalizeKey(key)
	for _, t := range c.stories {
		if t.Key == k {
			return t, nil
		}
	}
	return Template{}, &domain.UnknownStoryError{Key: key}
}

// ResolveStyle picks the style for a run: the named one when it exists,
// otherwise the configured default, otherwise the first preset.
func (c *Catalog) ResolveStyle(key string) StylePreset {
	if s, ok := c.style(strings.TrimSpace(key)); ok {
		return s
	}
	if s, ok := c.style(c.defaultStyle); ok {
		return s
	}
	return c.styles[0]
}

// HasStyle reports whether key names a configured style.
func (c *Catalog) HasStyle(key string) bool {
	_, ok := c.style(strings.TrimSpace(key))
	return ok
}

func (c *Catalog) style(key string) (StylePreset, bool) {
	if key == "" {
		return StylePreset{}, false
	}
	for _, s := range c.styles {
		if s.Key == key {
			return s, true
		}
	}
	return StylePreset{}, false
}
