package classifier

import (
	"context"

	"github.com/brandpayout/brand-report/internal/types"
)

// StaticClassifier is a deterministic lookup table keyed by description.
// Descriptions not in Table get Default (types.UnknownBrand when empty).
// Entries in Failures make Classify return that error instead.
type StaticClassifier struct {
	Table    map[string]string
	Failures map[string]error
	Default  string
}

// Classify implements Classifier.
func (s *StaticClassifier) Classify(_ context.Context, description string, _ []string) (string, error) {
	if err, ok := s.Failures[description]; ok {
		return "", &ClassifierError{Description: description, Err: err}
	}
	if brand, ok := s.Table[description]; ok {
		return brand, nil
	}
	if s.Default != "" {
		return s.Default, nil
	}
	return types.UnknownBrand, nil
}
