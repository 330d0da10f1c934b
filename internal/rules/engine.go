// Package rules evaluates segment rule trees against customers.
//
// Evaluation is pure and total: unknown operators, comparators and fields make the
// affected node false instead of returning an error. A field outside
// domain.CustomerFields is false under every comparator, ne and eq null included,
// and a nil child of a group is false.
//
// Ordered comparators (gt, lt, gte, lte) require both operands to coerce to the same
// ordered type. When either side is a timestamp both sides must parse as timestamps
// (RFC 3339 or YYYY-MM-DD strings); otherwise both sides must be numbers or numeric
// strings. An absent field never satisfies an ordered comparator.
//
// Equality (eq) compares operands of the same kind natively (numbers as float64,
// timestamps by instant). Operands of different kinds are both rendered to their
// canonical string form and compared as strings, so "5" eq 5 holds and "5.0" eq 5
// does not. A known but unset field (phone, last_order_at, last_active_at) equals only
// a null rule value. For known fields ne is the negation of eq.
package rules

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/DhruvAgrawal511/xeno-backend/internal/domain"
)

var timeLayouts = []string{time.RFC3339Nano, time.RFC3339, "2006-01-02"}

// Matches reports whether the customer satisfies the rule tree. A nil rule matches everything.
func Matches(c *domain.Customer, rule *domain.Rule) bool {
	if rule == nil {
		return true
	}
	if rule.IsGroup() {
		return matchGroup(c, rule)
	}
	return matchLeaf(c, rule)
}

// Count returns how many customers satisfy the rule tree
func Count(customers []*domain.Customer, rule *domain.Rule) int {
	n := 0
	for _, c := range customers {
		if Matches(c, rule) {
			n++
		}
	}
	return n
}

// Filter returns the customers satisfying the rule tree, preserving order
func Filter(customers []*domain.Customer, rule *domain.Rule) []*domain.Customer {
	out := make([]*domain.Customer, 0, len(customers))
	for _, c := range customers {
		if Matches(c, rule) {
			out = append(out, c)
		}
	}
	return out
}

func matchGroup(c *domain.Customer, rule *domain.Rule) bool {
	results := make([]bool, len(rule.Children))
	for i, child := range rule.Children {
		results[i] = child != nil && Matches(c, child)
	}

	switch strings.ToUpper(rule.Op) {
	case domain.OpAnd:
		for _, ok := range results {
			if !ok {
				return false
			}
		}
		return true
	case domain.OpOr:
		for _, ok := range results {
			if ok {
				return true
			}
		}
		return false
	default:
		return false
	}
}

func matchLeaf(c *domain.Customer, rule *domain.Rule) bool {
	if !domain.IsCustomerField(rule.Field) {
		return false
	}
	val, present := c.Field(rule.Field)

	switch rule.Cmp {
	case domain.CmpEq:
		return equal(val, present, rule.Value)
	case domain.CmpNe:
		return !equal(val, present, rule.Value)
	case domain.CmpGt, domain.CmpLt, domain.CmpGte, domain.CmpLte:
		if !present {
			return false
		}
		order, ok := compare(val, rule.Value)
		if !ok {
			return false
		}
		switch rule.Cmp {
		case domain.CmpGt:
			return order > 0
		case domain.CmpLt:
			return order < 0
		case domain.CmpGte:
			return order >= 0
		default:
			return order <= 0
		}
	default:
		return false
	}
}

// compare returns -1, 0 or 1 and false when the operands have no common ordered type
func compare(a, b any) (int, bool) {
	_, aTime := a.(time.Time)
	_, bTime := b.(time.Time)
	if aTime || bTime {
		ta, okA := toTime(a)
		tb, okB := toTime(b)
		if !okA || !okB {
			return 0, false
		}
		return ta.Compare(tb), true
	}

	fa, okA := toNumber(a)
	fb, okB := toNumber(b)
	if !okA || !okB {
		return 0, false
	}
	switch {
	case fa < fb:
		return -1, true
	case fa > fb:
		return 1, true
	default:
		return 0, true
	}
}

func equal(a any, present bool, b any) bool {
	if !present || a == nil {
		return b == nil
	}
	if b == nil {
		return false
	}

	ka, kb := kindOf(a), kindOf(b)
	if ka == kb {
		switch ka {
		case kindNumber:
			fa, _ := toNumber(a)
			fb, _ := toNumber(b)
			return fa == fb
		case kindTime:
			return a.(time.Time).Equal(b.(time.Time))
		}
	}
	if ka == kindTime && kb == kindString {
		if tb, ok := toTime(b); ok {
			return a.(time.Time).Equal(tb)
		}
	}
	return canonical(a) == canonical(b)
}

type kind int

const (
	kindOther kind = iota
	kindNumber
	kindString
	kindBool
	kindTime
)

func kindOf(v any) kind {
	switch v.(type) {
	case float64, float32, int, int32, int64, json.Number:
		return kindNumber
	case string:
		return kindString
	case bool:
		return kindBool
	case time.Time:
		return kindTime
	default:
		return kindOther
	}
}

func toNumber(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	case string:
		s := strings.TrimSpace(n)
		if s == "" {
			return 0, false
		}
		f, err := strconv.ParseFloat(s, 64)
		return f, err == nil
	default:
		return 0, false
	}
}

func toTime(v any) (time.Time, bool) {
	switch t := v.(type) {
	case time.Time:
		return t, true
	case string:
		for _, layout := range timeLayouts {
			if parsed, err := time.Parse(layout, strings.TrimSpace(t)); err == nil {
				return parsed, true
			}
		}
	}
	return time.Time{}, false
}

func canonical(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(x), 'f', -1, 32)
	case int:
		return strconv.Itoa(x)
	case int32:
		return strconv.FormatInt(int64(x), 10)
	case int64:
		return strconv.FormatInt(x, 10)
	case json.Number:
		return x.String()
	case bool:
		return strconv.FormatBool(x)
	case time.Time:
		return x.UTC().Format(time.RFC3339Nano)
	default:
		return fmt.Sprint(x)
	}
}
