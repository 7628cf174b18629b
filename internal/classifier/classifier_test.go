package classifier

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var brands = []string{"ACME", "Zeta Kids", "H&M"}

func TestMatch(t *testing.T) {
	tests := []struct {
		answer string
		want   string
		ok     bool
	}{
		{"ACME", "ACME", true},
		{"  acme.\n", "ACME", true},
		{"\"ZETA  KIDS\"", "Zeta Kids", true},
		{"HM", "H&M", true},
		{"OTROS", "OTROS", true},
		{"otros.", "OTROS", true},
		{"", "OTROS", false},
		{"NIKE", "", false},
		{"...", "OTROS", false},
	}
	for _, tt := range tests {
		t.Run(tt.answer, func(t *testing.T) {
			got, ok := Match(tt.answer, brands)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.ok, ok)
		})
	}
}

func TestMatch_CatalogOtrosRow(t *testing.T) {
	catalog := []string{"ACME", "Otros"}

	got, ok := Match("OTROS", catalog)
	assert.True(t, ok)
	assert.Equal(t, "Otros", got)

	got, ok = Match("otros.", catalog)
	assert.True(t, ok)
	assert.Equal(t, "Otros", got)
}

func TestResolve(t *testing.T) {
	buf := &bytes.Buffer{}
	log := zerolog.New(buf)

	c := &StaticClassifier{
		Table: map[string]string{
			"Polo ACME talla M": "acme",
			"Zapatilla Nike":    "NIKE",
		},
		Failures: map[string]error{
			"Gorra": errors.New("quota exceeded"),
		},
	}
	ctx := context.Background()

	brand, failed := Resolve(ctx, c, "Polo ACME talla M", brands, log)
	assert.Equal(t, "ACME", brand)
	assert.False(t, failed)

	// Answers outside the catalog are coerced.
	brand, failed = Resolve(ctx, c, "Zapatilla Nike", brands, log)
	assert.Equal(t, "OTROS", brand)
	assert.False(t, failed)

	// Errors never propagate.
	brand, failed = Resolve(ctx, c, "Gorra", brands, log)
	assert.Equal(t, "OTROS", brand)
	assert.True(t, failed)
	assert.Contains(t, buf.String(), "quota exceeded")

	brand, _ = Resolve(ctx, c, "desconocido", brands, log)
	assert.Equal(t, "OTROS", brand)
}

func TestBuildPrompt(t *testing.T) {
	p := BuildPrompt("Polo ACME", brands)

	assert.Contains(t, p, "'Polo ACME'")
	assert.Contains(t, p, "ACME, Zeta Kids, H&M")
	assert.Contains(t, p, "mayúsculas")
	assert.Contains(t, p, "retorna OTROS")
}

func TestClassifierError(t *testing.T) {
	cause := errors.New("timeout")
	err := &ClassifierError{Description: "x", Err: cause}

	assert.ErrorIs(t, err, cause)
	assert.Equal(t, `classify "x": timeout`, err.Error())
}

func TestNormalize(t *testing.T) {
	assert.Equal(t, "ZETA KIDS", Normalize("  zeta   kids!! "))
	assert.Equal(t, "", Normalize(" ¡¿ "))
}

func TestStaticClassifier_Default(t *testing.T) {
	c := &StaticClassifier{Default: "ACME"}
	got, err := c.Classify(context.Background(), "anything", nil)
	require.NoError(t, err)
	assert.Equal(t, "ACME", got)
}
