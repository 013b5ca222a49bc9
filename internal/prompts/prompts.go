// Package prompts holds the instruction templates sent to the AI provider.
// Built-in templates can be overridden from a YAML file, optionally
// reloaded while the service runs.
package prompts

import (
	"fmt"
	"os"
	"sync/atomic"

	"gopkg.in/yaml.v3"

	"github.com/starford/resummarize/internal/models"
)

// Set is a complete collection of template bodies. Every rendered prompt is
// the identity instruction followed by a blank line and the body.
type Set struct {
	Identity string                        `yaml:"identity"`
	Chat     map[models.ChatMode]string    `yaml:"chat"`
	Summary  map[models.SummaryType]string `yaml:"summary"`
	Insights string                        `yaml:"insights"`
}

func (s *Set) render(body string) string {
	if s.Identity == "" {
		return body
	}
	return s.Identity + "\n\n" + body
}

// overlay returns a copy of s with every non-empty field of o applied.
func (s *Set) overlay(o *Set) *Set {
	out := &Set{
		Identity: s.Identity,
		Chat:     make(map[models.ChatMode]string, len(s.Chat)),
		Summary:  make(map[models.SummaryType]string, len(s.Summary)),
		Insights: s.Insights,
	}
	for k, v := range s.Chat {
		out.Chat[k] = v
	}
	for k, v := range s.Summary {
		out.Summary[k] = v
	}
	if o == nil {
		return out
	}
	if o.Identity != "" {
		out.Identity = o.Identity
	}
	if o.Insights != "" {
		out.Insights = o.Insights
	}
	for k, v := range o.Chat {
		if v != "" {
			out.Chat[k] = v
		}
	}
	for k, v := range o.Summary {
		if v != "" {
			out.Summary[k] = v
		}
	}
	return out
}

// Registry serves the active template set.
type Registry struct {
	path string
	cur  atomic.Pointer[Set]
}

// NewRegistry returns a registry with the built-in templates, overlaid with
// the file at path when path is non-empty.
func NewRegistry(path string) (*Registry, error) {
	r := &Registry{path: path}
	r.cur.Store(Defaults())
	if path == "" {
		return r, nil
	}
	if err := r.Reload(); err != nil {
		return nil, err
	}
	return r, nil
}

// Path returns the override file path, if any.
func (r *Registry) Path() string {
	return r.path
}

// Reload re-reads the override file. On failure the active set is kept.
func (r *Registry) Reload() error {
	if r.path == "" {
		return nil
	}
	data, err := os.ReadFile(r.path)
	if err != nil {
		return fmt.Errorf("prompts: read %s: %w", r.path, err)
	}
	var o Set
	if err := yaml.Unmarshal(data, &o); err != nil {
		return fmt.Errorf("prompts: parse %s: %w", r.path, err)
	}
	for mode := range o.Chat {
		if _, err := models.ParseChatMode(string(mode)); err != nil {
			return fmt.Errorf("prompts: %w", err)
		}
	}
	for t := range o.Summary {
		if _, err := models.ParseSummaryType(string(t)); err != nil {
			return fmt.Errorf("prompts: %w", err)
		}
	}
	r.cur.Store(Defaults().overlay(&o))
	return nil
}

// Chat returns the full instruction for a chat mode. Unknown modes fall
// back to the notes assistant.
func (r *Registry) Chat(mode models.ChatMode) string {
	s := r.cur.Load()
	body, ok := s.Chat[mode]
	if !ok {
		body = s.Chat[models.ModeNotes]
	}
	return s.render(body)
}

// Summary returns the full instruction for a summary type. Unknown types
// fall back to the brief summary.
func (r *Registry) Summary(t models.SummaryType) string {
	s := r.cur.Load()
	body, ok := s.Summary[t]
	if !ok {
		body = s.Summary[models.SummaryBrief]
	}
	return s.render(body)
}

// Insights returns the full insights instruction.
func (r *Registry) Insights() string {
	s := r.cur.Load()
	return s.render(s.Insights)
}
