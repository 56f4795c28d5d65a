package story

import (
	"fmt"
	"strings"

	"github.com/caseras1/ai-childbook/internal/domain"
)

// BuildPagePrompt turns the style hint, child name and scene into one
// descriptive sentence for the illustration model.
func BuildPagePrompt(childName, scene, styleHint string) string {
	return fmt.Sprintf(
		"3D storybook illustration of a child named %s, %s, in this scene: %s. "+
			"Soft cinematic lighting, pastel colors, gentle depth of field, "+
			"charming children's picture book style, high detail, no text, no logo.",
		childName, styleHint, strings.TrimRight(strings.TrimSpace(scene), "."),
	)
}

// styleHint joins the style's base prompt with the story variant's fragment.
func styleHint(style StylePreset, variant *StoryVariant) string {
	parts := []string{strings.TrimRight(style.BasePrompt, ". ")}
	if variant != nil && variant.ExtraPrompt != "" {
		parts = append(parts, strings.TrimRight(variant.ExtraPrompt, ". "))
	}
	return strings.Join(parts, ", ")
}

// BuildRequest composes the generation request for one page.
func BuildRequest(style StylePreset, variant *StoryVariant, page domain.StoryPage, childName, modelID, negativePrompt string) domain.GenerationRequest {
	req := domain.GenerationRequest{
		Prompt:         BuildPagePrompt(childName, page.Scene, styleHint(style, variant)),
		ModelID:        modelID,
		Width:          style.Width,
		Height:         style.Height,
		NumImages:      1,
		NegativePrompt: negativePrompt,
		DatasetID:      style.DatasetID,
		Alchemy:        style.Alchemy,
		Contrast:       style.Contrast,
	}
	if style.ElementID != "" {
		req.Elements = []domain.ElementRef{{ID: style.ElementID, Weight: style.ElementWeight}}
	}
	if variant != nil {
		req.ImagePrompts = append(req.ImagePrompts, variant.ImagePrompts...)
	}
	req.ImagePrompts = append(req.ImagePrompts, page.ImagePrompts...)
	return req
}
