package rules

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/DhruvAgrawal511/xeno-backend/internal/domain"
)

func TestValidate_ValidTree(t *testing.T) {
	rule := &domain.Rule{
		Op: domain.OpAnd,
		Children: []*domain.Rule{
			leaf("total_spend", "gt", 1000.0),
			{Op: domain.OpOr, Children: []*domain.Rule{leaf("visits", "lte", 3.0)}},
		},
	}

	assert.Empty(t, Validate(rule))
	assert.Empty(t, Validate(nil))
}

func TestValidate_CollectsEveryProblem(t *testing.T) {
	rule := &domain.Rule{
		Op: "NAND",
		Children: []*domain.Rule{
			{Cmp: "gt", Value: 1},
			{Field: "visits", Cmp: "like"},
		},
	}

	problems := Validate(rule)

	assert.Len(t, problems, 3)
	assert.Contains(t, problems, "rules.op must be one of AND, OR")
	assert.Contains(t, problems, "rules.children[0].field is required")
	assert.Contains(t, problems, "rules.children[1].cmp must be one of gt, lt, eq, ne, gte, lte")
}

func TestValidate_DepthLimit(t *testing.T) {
	root := &domain.Rule{Op: domain.OpAnd}
	node := root
	for i := 0; i < MaxDepth; i++ {
		child := &domain.Rule{Op: domain.OpAnd}
		node.Children = []*domain.Rule{child}
		node = child
	}

	problems := Validate(root)

	assert.Len(t, problems, 1)
	assert.Contains(t, problems[0], "exceeds maximum depth")
}

func TestValidate_RejectsUnknownFieldAndNullChild(t *testing.T) {
	problems := Validate(&domain.Rule{
		Op:       domain.OpOr,
		Children: []*domain.Rule{leaf("totl_spend", "ne", 0), nil},
	})

	assert.Len(t, problems, 2)
	assert.Contains(t, problems[0], `rules.children[0].field "totl_spend" must be one of`)
	assert.Equal(t, "rules.children[1] must not be null", problems[1])
}

func TestValidate_AcceptsEveryCustomerField(t *testing.T) {
	for _, field := range domain.CustomerFields {
		assert.Empty(t, Validate(leaf(field, "eq", nil)), field)
	}
}
