// Package detector scans text against the recognizer registry and
// returns a sorted, non-overlapping entity list.
package detector

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"go.opentelemetry.io/otel/attribute"

	"github.com/veil-labs/veil/internal/entity"
	veilotel "github.com/veil-labs/veil/internal/otel"
)

var tracer = veilotel.Tracer("github.com/veil-labs/veil/internal/detector")

// Detector detects PII in text using an ordered set of compiled regex
// patterns. Detection is a deterministic, synchronous function of its
// inputs.
type Detector struct {
	patterns []Pattern
}

// Option configures a Detector via the functional options pattern.
type Option func(*detectorConfig)

type detectorConfig struct {
	patternFile string
}

// WithPatternFile loads override recognizers from a YAML file, layered
// over the embedded defaults by recognizer name. A missing file is
// silently skipped.
func WithPatternFile(path string) Option {
	return func(c *detectorConfig) { c.patternFile = path }
}

// New creates a Detector. Without options it uses the embedded defaults.
func New(opts ...Option) (*Detector, error) {
	var cfg detectorConfig
	for _, o := range opts {
		o(&cfg)
	}

	defaults, err := DefaultRecognizers()
	if err != nil {
		return nil, fmt.Errorf("loading default recognizers: %w", err)
	}

	var overrides []RecognizerConfig
	if cfg.patternFile != "" {
		rf, err := LoadRecognizerFile(cfg.patternFile)
		if err != nil {
			return nil, fmt.Errorf("loading pattern file: %w", err)
		}
		if rf != nil {
			overrides = rf.Recognizers
		}
	}

	merged := MergeRecognizers(defaults, overrides)

	compiled, err := CompilePatterns(merged)
	if err != nil {
		return nil, fmt.Errorf("compiling patterns: %w", err)
	}

	return &Detector{patterns: compiled}, nil
}

// MustNew is like New but panics on error. Useful for zero-config startup
// where the embedded defaults are expected to always compile.
func MustNew(opts ...Option) *Detector {
	d, err := New(opts...)
	if err != nil {
		panic(fmt.Sprintf("detector.New: %v", err))
	}
	return d
}

// Detect scans text and returns accepted entities sorted by start offset.
//
// Categories are scanned in registry order and patterns in registration
// order; within one pattern, matches are found left to right and never
// overlap each other. A candidate is rejected when its text is empty
// after trimming or when its range intersects any range already accepted
// in this run, across all categories processed so far — first accepted
// wins, so registry order is the priority for overlapping candidates.
//
// enabled restricts scanning to the listed category tags. Only nil
// means all categories; an empty non-nil list matches nothing.
func (d *Detector) Detect(ctx context.Context, text string, enabled []entity.Type) []entity.Entity {
	_, span := tracer.Start(ctx, "detector.detect")
	defer span.End()

	var allow map[entity.Type]bool
	if enabled != nil {
		allow = make(map[entity.Type]bool, len(enabled))
		for _, t := range enabled {
			allow[t] = true
		}
	}

	accepted := []entity.Entity{}
	for _, pattern := range d.patterns {
		if allow != nil && !allow[pattern.Type] {
			continue
		}
		matches := pattern.Pattern.FindAllStringIndex(text, -1)
		for _, match := range matches {
			value := text[match[0]:match[1]]
			if strings.TrimSpace(value) == "" {
				continue
			}
			cand := entity.Entity{
				Text:  value,
				Type:  pattern.Type,
				Start: match[0],
				End:   match[1],
			}
			if overlapsAny(accepted, cand) {
				continue
			}
			accepted = append(accepted, cand)
		}
	}

	// Ties keep first-accepted order.
	sort.SliceStable(accepted, func(i, j int) bool {
		return accepted[i].Start < accepted[j].Start
	})

	span.SetAttributes(
		attribute.Int("pii.entity_count", len(accepted)),
		attribute.Bool("pii.detected", len(accepted) > 0),
	)

	return accepted
}

// overlapsAny does a linear scan over the accepted list. Fine at
// transcript scale; an interval structure would only matter on much
// larger corpora and must keep the same accept/reject semantics.
func overlapsAny(accepted []entity.Entity, cand entity.Entity) bool {
	for _, e := range accepted {
		if e.Overlaps(cand) {
			return true
		}
	}
	return false
}
