// Package classifier assigns a brand to a free-text sales description.
//
// The production implementation asks a text-generation model; tests and dry
// runs use a deterministic lookup table. Every implementation may fail: the
// failure policy lives in Resolve, not in the implementations.
package classifier

import (
	"context"
	"fmt"
	"strings"
	"unicode"

	"github.com/brandpayout/brand-report/internal/types"
	"github.com/rs/zerolog"
)

// Classifier picks the single best-matching brand for description out of
// brands. Implementations return the answer as produced; normalization and
// the fallback to types.UnknownBrand happen in Resolve.
type Classifier interface {
	Classify(ctx context.Context, description string, brands []string) (string, error)
}

// ClassifierError wraps any failure of a classification request.
type ClassifierError struct {
	Description string
	Err         error
}

func (e *ClassifierError) Error() string {
	return fmt.Sprintf("classify %q: %v", e.Description, e.Err)
}

func (e *ClassifierError) Unwrap() error {
	return e.Err
}

// Resolve runs one classification and coerces the outcome to a valid brand:
//   - any error becomes types.UnknownBrand (logged at warn level)
//   - the answer is trimmed, stripped of surrounding punctuation and matched
//     case-insensitively against brands
//   - an answer that is not one of brands becomes types.UnknownBrand
//
// The second return value reports whether the fallback was taken because of
// an error.
func Resolve(ctx context.Context, c Classifier, description string, brands []string, log zerolog.Logger) (string, bool) {
	answer, err := c.Classify(ctx, description, brands)
	if err != nil {
		log.Warn().Err(err).Str("description", description).Msg("brand classification failed, using " + types.UnknownBrand)
		return types.UnknownBrand, true
	}

	brand, ok := Match(answer, brands)
	if !ok {
		log.Debug().Str("description", description).Str("answer", answer).Msg("answer is not a catalog brand")
		return types.UnknownBrand, false
	}
	return brand, false
}

// Match maps a raw model answer onto the catalog spelling of a brand. The
// catalog wins over the OTROS sentinel, so a catalog row named "Otros" keeps
// its own rate and rent.
func Match(answer string, brands []string) (string, bool) {
	cleaned := Normalize(answer)
	if cleaned == "" {
		return types.UnknownBrand, false
	}

	if key := matchKey(cleaned); key != "" {
		for _, b := range brands {
			if matchKey(b) == key {
				return b, true
			}
		}
	}

	if cleaned == types.UnknownBrand {
		return types.UnknownBrand, true
	}
	return "", false
}

// matchKey drops every character that is not a letter or digit, so "H&M"
// and the model's punctuation-free "HM" compare equal.
func matchKey(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return unicode.ToUpper(r)
		}
		return -1
	}, s)
}

// Normalize trims whitespace and surrounding punctuation, collapses inner
// whitespace and uppercases the result.
func Normalize(s string) string {
	s = strings.TrimFunc(s, func(r rune) bool {
		return unicode.IsSpace(r) || unicode.IsPunct(r) || unicode.IsSymbol(r)
	})
	return strings.ToUpper(strings.Join(strings.Fields(s), " "))
}
