package rules

import (
	"fmt"
	"strings"

	"github.com/DhruvAgrawal511/xeno-backend/internal/domain"
)

// MaxDepth bounds the nesting of a rule tree accepted by Validate
const MaxDepth = 16

var comparators = map[string]bool{
	domain.CmpGt:  true,
	domain.CmpLt:  true,
	domain.CmpEq:  true,
	domain.CmpNe:  true,
	domain.CmpGte: true,
	domain.CmpLte: true,
}

// Validate checks the structure of a rule tree and returns every problem found.
// A nil tree is valid and matches every customer.
func Validate(rule *domain.Rule) []string {
	var problems []string
	validateNode(rule, "rules", 1, &problems)
	return problems
}

func validateNode(rule *domain.Rule, path string, depth int, problems *[]string) {
	if rule == nil {
		return
	}
	if depth > MaxDepth {
		*problems = append(*problems, fmt.Sprintf("%s exceeds maximum depth of %d", path, MaxDepth))
		return
	}

	if rule.IsGroup() {
		op := strings.ToUpper(rule.Op)
		if op != domain.OpAnd && op != domain.OpOr {
			*problems = append(*problems, fmt.Sprintf("%s.op must be one of AND, OR", path))
		}
		if rule.Field != "" || rule.Cmp != "" {
			*problems = append(*problems, fmt.Sprintf("%s cannot combine op with field/cmp", path))
		}
		for i, child := range rule.Children {
			childPath := fmt.Sprintf("%s.children[%d]", path, i)
			if child == nil {
				*problems = append(*problems, fmt.Sprintf("%s must not be null", childPath))
				continue
			}
			validateNode(child, childPath, depth+1, problems)
		}
		return
	}

	switch {
	case rule.Field == "":
		*problems = append(*problems, fmt.Sprintf("%s.field is required", path))
	case !domain.IsCustomerField(rule.Field):
		*problems = append(*problems, fmt.Sprintf("%s.field %q must be one of %s",
			path, rule.Field, strings.Join(domain.CustomerFields, ", ")))
	}
	if !comparators[rule.Cmp] {
		*problems = append(*problems, fmt.Sprintf("%s.cmp must be one of gt, lt, eq, ne, gte, lte", path))
	}
	if len(rule.Children) > 0 {
		*problems = append(*problems, fmt.Sprintf("%s.children requires op", path))
	}
}
