// Package advisory maps relationship/tone pairings to non-blocking warnings
// and safer-tone suggestions.
package advisory

import (
	_ "embed"
	"fmt"
	"os"
	"slices"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"mensajemagico/internal/domain"
)

//go:embed rules.yaml
var defaultRules []byte

// ruleSet is the on-disk schema of a rules file.
type ruleSet struct {
	Warnings  map[string]map[string]string `yaml:"warnings"`
	Fallbacks map[string]fallbackRule      `yaml:"fallbacks"`
	Aliases   map[string]string            `yaml:"aliases"`
}

type fallbackRule struct {
	Tones   []string `yaml:"tones"`
	Message string   `yaml:"message"`
}

// Engine answers advisory lookups. It is immutable after construction.
type Engine struct {
	warnings  map[string]map[domain.Tone]string
	fallbacks map[string]domain.ToneFallback
	aliases   map[string]string
}

var (
	defaultOnce   sync.Once
	defaultEngine *Engine
	defaultErr    error
)

// Default returns the engine built from the embedded rules. The asset is
// parsed once per process.
func Default() (*Engine, error) {
	defaultOnce.Do(func() {
		defaultEngine, defaultErr = Parse(defaultRules)
	})
	return defaultEngine, defaultErr
}

// LoadEngine reads a rules file with the same schema as the embedded asset.
// An empty path returns the default engine.
func LoadEngine(path string) (*Engine, error) {
	if path == "" {
		return Default()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read advisory rules: %w", err)
	}
	return Parse(data)
}

// Parse builds an engine from YAML rules. Unknown tones are rejected.
func Parse(data []byte) (*Engine, error) {
	var rs ruleSet
	if err := yaml.Unmarshal(data, &rs); err != nil {
		return nil, fmt.Errorf("parse advisory rules: %w", err)
	}

	e := &Engine{
		warnings:  make(map[string]map[domain.Tone]string, len(rs.Warnings)),
		fallbacks: make(map[string]domain.ToneFallback, len(rs.Fallbacks)),
		aliases:   make(map[string]string, len(rs.Aliases)),
	}
	for rel, byTone := range rs.Warnings {
		key := normalizeID(rel)
		m := make(map[domain.Tone]string, len(byTone))
		for label, msg := range byTone {
			tone, err := domain.ParseTone(label)
			if err != nil {
				return nil, fmt.Errorf("advisory warning %s: %w", rel, err)
			}
			m[tone] = msg
		}
		e.warnings[key] = m
	}
	for rel, fb := range rs.Fallbacks {
		tones := make([]domain.Tone, 0, len(fb.Tones))
		for _, label := range fb.Tones {
			tone, err := domain.ParseTone(label)
			if err != nil {
				return nil, fmt.Errorf("advisory fallback %s: %w", rel, err)
			}
			tones = append(tones, tone)
		}
		e.fallbacks[normalizeID(rel)] = domain.ToneFallback{Tones: tones, Message: fb.Message}
	}
	for alias, rel := range rs.Aliases {
		e.aliases[normalizeID(alias)] = normalizeID(rel)
	}
	return e, nil
}

// Warning returns the advisory for tone toward relationship, if any.
func (e *Engine) Warning(relationship string, tone domain.Tone) (string, bool) {
	msg, ok := e.warnings[e.resolve(relationship)][tone]
	return msg, ok
}

// Fallback returns the safer tones suggested for relationship, if any.
// The returned tone slice is a copy.
func (e *Engine) Fallback(relationship string) (domain.ToneFallback, bool) {
	fb, ok := e.fallbacks[e.resolve(relationship)]
	if !ok {
		return domain.ToneFallback{}, false
	}
	fb.Tones = append([]domain.Tone(nil), fb.Tones...)
	return fb, true
}

// Advise bundles the warning for the pairing with the relationship's
// fallback. The fallback is only attached when the pairing is flagged.
func (e *Engine) Advise(relationship string, tone domain.Tone) domain.Advice {
	var adv domain.Advice
	msg, ok := e.Warning(relationship, tone)
	if !ok {
		return adv
	}
	adv.Warning = msg
	if fb, ok := e.Fallback(relationship); ok {
		adv.Fallback = &fb
	}
	return adv
}

// Relationships lists every relationship id that has at least one rule,
// sorted.
func (e *Engine) Relationships() []string {
	seen := make(map[string]struct{}, len(e.warnings)+len(e.fallbacks))
	for rel := range e.warnings {
		seen[rel] = struct{}{}
	}
	for rel := range e.fallbacks {
		seen[rel] = struct{}{}
	}
	out := make([]string, 0, len(seen))
	for rel := range seen {
		out = append(out, rel)
	}
	slices.Sort(out)
	return out
}

func (e *Engine) resolve(relationship string) string {
	key := normalizeID(relationship)
	if canonical, ok := e.aliases[key]; ok {
		return canonical
	}
	return key
}

func normalizeID(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
