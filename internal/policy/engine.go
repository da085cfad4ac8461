// Package policy evaluates route access decisions with OPA.
package policy

import (
	"context"
	"fmt"

	"github.com/open-policy-agent/opa/rego"

	"github.com/Abdulkalam-AIML/titanbot/internal/domain"
)

// Decisions returned by the access policy.
const (
	DecisionAllow = "allow"
	DecisionDeny  = "deny"
)

// Engine is the OPA policy engine.
type Engine struct {
	query rego.PreparedEvalQuery
}

// NewEngine creates a new policy engine with the given policy content.
// The module must define data.access_policy.decision.
func NewEngine(ctx context.Context, policyContent string) (*Engine, error) {
	r := rego.New(
		rego.Query("data.access_policy.decision"),
		rego.Module("access_policy.rego", policyContent),
	)

	query, err := r.PrepareForEval(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare rego: %w", err)
	}

	return &Engine{query: query}, nil
}

// Input is the document the policy sees.
type Input struct {
	Role   string `json:"role"`
	Active bool   `json:"active"`
	Action string `json:"action"`
}

// Evaluate returns the policy decision for input. Anything other than a
// string result is treated as deny.
func (e *Engine) Evaluate(ctx context.Context, input Input) (string, error) {
	results, err := e.query.Eval(ctx, rego.EvalInput(map[string]interface{}{
		"role":   input.Role,
		"active": input.Active,
		"action": input.Action,
	}))
	if err != nil {
		return "", fmt.Errorf("failed to evaluate policy: %w", err)
	}

	if len(results) == 0 || len(results[0].Expressions) == 0 {
		return DecisionDeny, nil
	}

	if s, ok := results[0].Expressions[0].Value.(string); ok {
		return s, nil
	}
	return DecisionDeny, nil
}

// Authorize returns domain.ErrForbidden unless user may perform action.
func (e *Engine) Authorize(ctx context.Context, user *domain.User, action string) error {
	decision, err := e.Evaluate(ctx, Input{
		Role:   string(user.Role),
		Active: user.IsActive,
		Action: action,
	})
	if err != nil {
		return err
	}
	if decision != DecisionAllow {
		return domain.ErrForbidden
	}
	return nil
}

// DefaultPolicy is the default policy content.
const DefaultPolicy = `
package access_policy

default decision = "deny"

# Actions only administrators may perform.
admin_only = {"users.list"}

decision = "allow" {
	input.active
	not admin_only[input.action]
}

decision = "allow" {
	input.active
	admin_only[input.action]
	input.role == "admin"
}
`
