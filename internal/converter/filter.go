// =============================================================================
// Brand Payout Report - Row Filter
// =============================================================================
//
// This module decides which sales ledger rows take part in the report. Each
// rule names a ledger column and the set of values it accepts; a row is kept
// only when every rule accepts it.
//
// DEFAULT RULES (see config.DefaultFilters):
//   - Tipo de comprobante  in {Boleta, Factura}
//   - Estado del documento in {Emitido}
//   - Estado               in {Aceptado}
//
// Matching is exact, after trimming surrounding whitespace.
//
// =============================================================================

package converter

import (
	"fmt"
	"strings"

	"github.com/brandpayout/brand-report/internal/config"
	"github.com/brandpayout/brand-report/internal/types"
)

// =============================================================================
// FILTER
// =============================================================================

// Filter holds compiled filter rules.
type Filter struct {
	rules []compiledRule
}

type compiledRule struct {
	field   string
	allowed map[string]struct{}
}

// NewFilter compiles the rules. A rule naming a column that is not part of
// the sales ledger is a configuration error.
func NewFilter(rules []config.FilterRule) (*Filter, error) {
	f := &Filter{}
	probe := types.SalesRecord{}

	for i, rule := range rules {
		if _, known := probe.Field(rule.Field); !known {
			return nil, fmt.Errorf("filter rule %d: unknown sales column %q", i, rule.Field)
		}

		allowed := make(map[string]struct{}, len(rule.Allowed))
		for _, v := range rule.Allowed {
			allowed[strings.TrimSpace(v)] = struct{}{}
		}
		f.rules = append(f.rules, compiledRule{field: rule.Field, allowed: allowed})
	}

	return f, nil
}

// Keep reports whether the record passes every rule.
func (f *Filter) Keep(record types.SalesRecord) bool {
	for _, rule := range f.rules {
		value, _ := record.Field(rule.field)
		if _, ok := rule.allowed[strings.TrimSpace(value)]; !ok {
			return false
		}
	}
	return true
}

// Apply returns the records that pass every rule, preserving order.
func (f *Filter) Apply(records []types.SalesRecord) []types.SalesRecord {
	kept := make([]types.SalesRecord, 0, len(records))
	for _, r := range records {
		if f.Keep(r) {
			kept = append(kept, r)
		}
	}
	return kept
}
