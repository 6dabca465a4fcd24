// Package access decides whether a requester may use a thread and derives
// the memory scope keys for it.
package access

import (
	"context"
	"fmt"

	"github.com/open-policy-agent/opa/rego"
)

// PolicyEngine is the OPA engine evaluating thread access.
type PolicyEngine struct {
	query rego.PreparedEvalQuery
}

// NewPolicyEngine creates a policy engine with the given rego content.
func NewPolicyEngine(ctx context.Context, policyContent string) (*PolicyEngine, error) {
	r := rego.New(
		rego.Query("data.chat_access.decision"),
		rego.Module("chat_access.rego", policyContent),
	)

	query, err := r.PrepareForEval(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare rego: %w", err)
	}

	return &PolicyEngine{query: query}, nil
}

// policyInput is the document handed to the rego policy.
type policyInput struct {
	RequesterID string `json:"requester_id"`
	OwnerID     string `json:"owner_id"`
	ProjectID   string `json:"project_id"`
	IsMember    bool   `json:"is_member"`
}

// Evaluate returns the access decision ("allow" or "deny").
func (e *PolicyEngine) Evaluate(ctx context.Context, input policyInput) (string, error) {
	results, err := e.query.Eval(ctx, rego.EvalInput(input))
	if err != nil {
		return "", fmt.Errorf("failed to evaluate policy: %w", err)
	}

	if len(results) == 0 || len(results[0].Expressions) == 0 {
		return "deny", nil
	}

	if s, ok := results[0].Expressions[0].Value.(string); ok {
		return s, nil
	}
	return "deny", nil
}

// DefaultPolicy grants access to a project thread's current members and to
// the personal owner of an unscoped thread. The policy reveals only
// allow/deny, never membership details.
const DefaultPolicy = `
package chat_access

import rego.v1

default decision := "deny"

decision := "allow" if {
	input.project_id != ""
	input.is_member
}

decision := "allow" if {
	input.project_id == ""
	input.owner_id == input.requester_id
}
`
