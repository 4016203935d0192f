package domain

import (
	"strings"

	"github.com/google/uuid"
)

// Option is a single choice voters can rank in a poll
type Option struct {
	ID    string `json:"id"`
	Label string `json:"label"`
}

// NewOption creates an option with a generated short identifier
func NewOption(label string) Option {
	return Option{
		ID:    uuid.New().String()[:8],
		Label: label,
	}
}

// OptionsFromLabels builds a poll's option set from raw labels,
// trimming whitespace and skipping blank entries
func OptionsFromLabels(labels []string) []Option {
	options := make([]Option, 0, len(labels))
	seen := make(map[string]bool, len(labels))
	for _, label := range labels {
		label = strings.TrimSpace(label)
		if label == "" || seen[label] {
			continue
		}
		seen[label] = true
		options = append(options, NewOption(label))
	}
	return options
}
