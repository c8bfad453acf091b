package generation

import (
	"fmt"
	"slices"
	"strings"
	"sync"

	"imagechat/pkg/models"
)

// InputDraft is the not yet submitted turn: prompt, reference images and
// parameters. The generation type is re-resolved on every mutation.
type InputDraft struct {
	mu     sync.Mutex
	prompt string
	images []string
	params models.GenerationParameters
	// revision counts mutations so a submission can tell whether the draft
	// was edited while it ran.
	revision uint64
}

type DraftSnapshot struct {
	Prompt         string                      `json:"prompt"`
	InputImages    []string                    `json:"input_images"`
	Parameters     models.GenerationParameters `json:"parameters"`
	GenerationType models.GenerationType       `json:"generation_type"`
	Revision       uint64                      `json:"-"`
}

func NewInputDraft() *InputDraft {
	d := &InputDraft{params: models.DefaultGenerationParameters()}
	d.resolve()
	return d
}

// resolve must be called with mu held.
func (d *InputDraft) resolve() models.GenerationType {
	d.params.GenerationType = Resolve(len(d.images), d.params.BatchSize)
	return d.params.GenerationType
}

func (d *InputDraft) SetPrompt(prompt string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.prompt = prompt
	d.revision++
}

func (d *InputDraft) Prompt() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.prompt
}

// AddImages appends images one at a time and returns the type resolved after each.
func (d *InputDraft) AddImages(refs ...string) []models.GenerationType {
	d.mu.Lock()
	defer d.mu.Unlock()

	types := make([]models.GenerationType, 0, len(refs))
	for _, ref := range refs {
		if strings.TrimSpace(ref) == "" {
			continue
		}
		d.images = append(d.images, ref)
		d.revision++
		types = append(types, d.resolve())
	}
	return types
}

func (d *InputDraft) RemoveImage(index int) (models.GenerationType, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if index < 0 || index >= len(d.images) {
		return d.params.GenerationType, fmt.Errorf("image index %d out of range [0, %d)", index, len(d.images))
	}
	d.images = slices.Delete(d.images, index, index+1)
	d.revision++
	return d.resolve(), nil
}

// SeedImage replaces the reference images with exactly one image, as when
// an image from the conversation is picked for modification.
func (d *InputDraft) SeedImage(ref string) models.GenerationType {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.images = []string{ref}
	d.revision++
	return d.resolve()
}

func (d *InputDraft) SetBatchSize(n int) models.GenerationType {
	d.mu.Lock()
	defer d.mu.Unlock()

	if n < 1 {
		n = 1
	}
	d.params.BatchSize = n
	d.revision++
	return d.resolve()
}

// SetParameters replaces the parameters. The generation type and input
// images are always derived from the draft itself.
func (d *InputDraft) SetParameters(params models.GenerationParameters) models.GenerationType {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.params = params.Clone()
	if d.params.BatchSize < 1 {
		d.params.BatchSize = 1
	}
	d.params.InputImages = nil
	d.revision++
	return d.resolve()
}

func (d *InputDraft) Type() models.GenerationType {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.params.GenerationType
}

// Parameters returns a fresh parameter value for submission.
func (d *InputDraft) Parameters() models.GenerationParameters {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.parameters()
}

func (d *InputDraft) parameters() models.GenerationParameters {
	params := d.params.Clone()
	params.GenerationType = Resolve(len(d.images), params.BatchSize)
	if len(d.images) > 0 {
		params.InputImages = slices.Clone(d.images)
	} else {
		params.InputImages = nil
	}
	return params
}

func (d *InputDraft) Snapshot() DraftSnapshot {
	d.mu.Lock()
	defer d.mu.Unlock()

	params := d.parameters()
	return DraftSnapshot{
		Prompt:         d.prompt,
		InputImages:    slices.Clone(d.images),
		Parameters:     params,
		GenerationType: params.GenerationType,
		Revision:       d.revision,
	}
}

// Clear empties the prompt and images after a successful submission.
// Parameters are kept for the next turn.
func (d *InputDraft) Clear() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.clear()
}

// ClearIfUnchanged clears the draft only if it has not been edited since the
// snapshot with the given revision was taken.
func (d *InputDraft) ClearIfUnchanged(revision uint64) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.revision != revision {
		return false
	}
	d.clear()
	return true
}

func (d *InputDraft) clear() {
	d.prompt = ""
	d.images = nil
	d.revision++
	d.resolve()
}
