package story

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/caseras1/ai-childbook/internal/domain"
)

const testPresets = `
negative_prompt: "text, logo"
default_style: girl
pages_dir: pages
styles:
  - key: boy
    title: Boy Adventure Model
    model_id: "${TEST_BOY_MODEL_ID:model-boy}"
    element_id: 0
    base_prompt: brown skinned boy with blond hair
    width: 832
    height: 1216
    alchemy: true
    contrast: 3.5
  - key: girl
    title: Girl Adventure Model
    model_id: model-girl
    element_id: 4242
    element_weight: 0.7
    base_prompt: girl with wavy hair in a pastel outfit
variants:
  - key: dino
    extra_prompt: friendly dinosaurs in a lush valley
    image_prompts: [ref-1]
stories:
  - key: Dino
    title: Dino Days
    pages: pages_dino.json
    variant: dino
  - key: vacation
    title: "Mia's Vacation Dream"
    pages: pages_vacation.json
`

const dinoPages = `[
  {"page": 3, "scene": "waving goodbye at sunset", "text": "See you tomorrow!"},
  {"page": 1, "scene": "finding a glowing egg", "text": "Mia found an egg."},
  {"page": 2, "scene": "riding a baby dinosaur", "text": "Off they go!", "image_prompts": ["ref-page-2"]}
]`

const vacationPages = `[{"page": 1, "scene": "building a sandcastle", "text": "Sand everywhere."}]`

func writeCatalog(t *testing.T, presets string, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "pages"), 0o755))
	for name, body := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, "pages", name), []byte(body), 0o644))
	}
	path := filepath.Join(dir, "presets.yaml")
	require.NoError(t, os.WriteFile(path, []byte(presets), 0o644))
	return path
}

func defaultFiles() map[string]string {
	return map[string]string{"pages_dino.json": dinoPages, "pages_vacation.json": vacationPages}
}

func TestLoadCatalog(t *testing.T) {
	c, err := LoadCatalog(writeCatalog(t, testPresets, defaultFiles()))
	require.NoError(t, err)

	assert.Equal(t, "text, logo", c.NegativePrompt())

	styles := c.Styles()
	require.Len(t, styles, 2)
	assert.Equal(t, "boy", styles[0].Key)
	assert.Equal(t, "model-boy", styles[0].ModelID)
	assert.Empty(t, styles[0].ElementID, "element id 0 means no element")
	require.NotNil(t, styles[0].Alchemy)
	assert.True(t, *styles[0].Alchemy)
	require.NotNil(t, styles[0].Contrast)
	assert.InDelta(t, 3.5, *styles[0].Contrast, 1e-9)
	assert.Equal(t, "4242", styles[1].ElementID)
	assert.Equal(t, 1024, styles[1].Width)

	stories := c.Stories()
	require.Len(t, stories, 2)
	assert.Equal(t, "dino", stories[0].Key)
	assert.Equal(t, "vacation", stories[1].Key)

	dino, err := c.Story(" DINO ")
	require.NoError(t, err)
	require.Len(t, dino.Pages, 3)
	for i, p := range dino.Pages {
		assert.Equal(t, i+1, p.Number)
	}
	require.NotNil(t, dino.Variant)
	assert.Equal(t, []string{"ref-1"}, dino.Variant.ImagePrompts)
	assert.Equal(t, []string{"ref-page-2"}, dino.Pages[1].ImagePrompts)
}

func TestLoadCatalogExpandsEnv(t *testing.T) {
	t.Setenv("TEST_BOY_MODEL_ID", "model-from-env")
	c, err := LoadCatalog(writeCatalog(t, testPresets, defaultFiles()))
	require.NoError(t, err)
	assert.Equal(t, "model-from-env", c.Styles()[0].ModelID)
}

func TestCatalogUnknownStory(t *testing.T) {
	c, err := LoadCatalog(writeCatalog(t, testPresets, defaultFiles()))
	require.NoError(t, err)

	_, err = c.Story("pirates")
	var unknown *domain.UnknownStoryError
	require.True(t, errors.As(err, &unknown), "err = %v", err)
	assert.Equal(t, "pirates", unknown.Key)
}

func TestResolveStyleFallbacks(t *testing.T) {
	c, err := LoadCatalog(writeCatalog(t, testPresets, defaultFiles()))
	require.NoError(t, err)

	assert.Equal(t, "boy", c.ResolveStyle("boy").Key, "explicit override")
	assert.Equal(t, "girl", c.ResolveStyle("").Key, "configured default")
	assert.Equal(t, "girl", c.ResolveStyle("nope").Key, "unknown key falls back to default")

	noDefault := writeCatalog(t, strings.ReplaceAll(testPresets, "default_style: girl\n", ""), defaultFiles())
	c, err = LoadCatalog(noDefault)
	require.NoError(t, err)
	assert.Equal(t, "boy", c.ResolveStyle("").Key, "first preset")
}

func TestLoadCatalogRejectsPlaceholders(t *testing.T) {
	cases := map[string]struct {
		presets string
		field   string
	}{
		"model id":     {presets: strings.ReplaceAll(testPresets, "model_id: model-girl", "model_id: REPLACE_WITH_MODEL_ID"), field: "model_id"},
		"angle model":  {presets: strings.ReplaceAll(testPresets, "model_id: model-girl", `model_id: "<MODEL_ID>"`), field: "model_id"},
		"base prompt":  {presets: strings.ReplaceAll(testPresets, "base_prompt: girl with wavy hair in a pastel outfit", "base_prompt: REPLACE_WITH_GIRL_BASE_PROMPT"), field: "base_prompt"},
		"extra prompt": {presets: strings.ReplaceAll(testPresets, "extra_prompt: friendly dinosaurs in a lush valley", "extra_prompt: REPLACE_WITH_DINO_STORY_DETAILS"), field: "extra_prompt"},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := LoadCatalog(writeCatalog(t, tc.presets, defaultFiles()))
			var unresolved *domain.UnresolvedModelError
			require.True(t, errors.As(err, &unresolved), "err = %v", err)
			assert.Equal(t, tc.field, unresolved.Field)
		})
	}
}

func TestLoadCatalogRejectsBadStructure(t *testing.T) {
	cases := map[string]struct {
		presets string
		files   map[string]string
	}{
		"duplicate page": {presets: testPresets, files: map[string]string{
			"pages_dino.json":     `[{"page":1,"scene":"a","text":"x"},{"page":1,"scene":"b","text":"y"}]`,
			"pages_vacation.json": vacationPages,
		}},
		"zero page": {presets: testPresets, files: map[string]string{
			"pages_dino.json":     `[{"page":0,"scene":"a","text":"x"}]`,
			"pages_vacation.json": vacationPages,
		}},
		"empty story": {presets: testPresets, files: map[string]string{
			"pages_dino.json":     `[]`,
			"pages_vacation.json": vacationPages,
		}},
		"missing file":    {presets: testPresets, files: map[string]string{"pages_dino.json": dinoPages}},
		"unknown variant": {presets: strings.ReplaceAll(testPresets, "variant: dino", "variant: pirates"), files: defaultFiles()},
		"unknown default": {presets: strings.ReplaceAll(testPresets, "default_style: girl", "default_style: robot"), files: defaultFiles()},
		"duplicate style": {presets: strings.ReplaceAll(testPresets, "key: girl", "key: boy"), files: defaultFiles()},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := LoadCatalog(writeCatalog(t, tc.presets, tc.files))
			assert.Error(t, err)
		})
	}
}

func TestShippedPresetsLoad(t *testing.T) {
	c, err := LoadCatalog(filepath.Join("..", "..", "configs", "presets.yaml"))
	require.NoError(t, err)

	dino, err := c.Story("dino")
	require.NoError(t, err)
	assert.Equal(t, "Dino Days", dino.Title)
	assert.Len(t, dino.Pages, 3)

	boy := c.ResolveStyle("")
	assert.Equal(t, "boy", boy.Key)
	assert.Empty(t, boy.ElementID)
	for _, s := range c.Stories() {
		assert.NotEmpty(t, s.Pages, s.Key)
	}
}
