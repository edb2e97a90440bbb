package record

import (
	"fmt"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/mesh-intelligence/rim/pkg/types"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// ValidateAction checks whether verb may proceed for the record. The kind's
// declarative rules for verb run first, then its ValidateAction predicate.
// Returns an error wrapping types.ErrValidationFailed on rejection.
func (r *Record) ValidateAction(verb types.Verb) error {
	if rules := r.kind.Rules[verb]; len(rules) > 0 {
		if errs := validate.ValidateMap(r.data, rules); len(errs) > 0 {
			return fmt.Errorf("%w: %s %s: %s", types.ErrValidationFailed, verb, r, formatFieldErrors(errs))
		}
	}
	if r.kind.ValidateAction != nil && !r.kind.ValidateAction(r, verb) {
		return fmt.Errorf("%w: %s %s", types.ErrValidationFailed, verb, r)
	}
	return nil
}

func formatFieldErrors(errs map[string]any) string {
	fields := make([]string, 0, len(errs))
	for f := range errs {
		fields = append(fields, f)
	}
	sort.Strings(fields)
	parts := make([]string, 0, len(fields))
	for _, f := range fields {
		parts = append(parts, fmt.Sprintf("%s: %v", f, errs[f]))
	}
	return strings.Join(parts, "; ")
}
