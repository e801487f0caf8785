// Package proposer adapts untrusted patch generators behind a narrow,
// typed contract. The engine never trusts generator output directly:
// everything a proposer returns still passes through policy and patch
// validation before it can touch a plan entry.
package proposer

import (
	"context"
	"errors"

	"github.com/platewise/mealplanner/common/models"
	"github.com/platewise/mealplanner/common/patch"
)

var (
	// ErrGeneratorFailure means the generator returned unusable output
	// after its retry budget. Surfaced to the caller as "could not
	// understand the request"; zero ops were applied.
	ErrGeneratorFailure = errors.New("patch generator failed to produce a usable proposal")

	// ErrProtocolViolation means the generator broke the adapter
	// contract, e.g. returned ops alongside a clarification request.
	// This is an adapter bug, not a user error.
	ErrProtocolViolation = errors.New("patch generator violated the adapter protocol")
)

// GenResult is the output of a proposer: either a non-empty ops list,
// or a clarification request with a message and no ops
type GenResult struct {
	Ops                []patch.Op `json:"ops"`
	NeedsClarification bool       `json:"needs_clarification"`
	Message            string     `json:"message,omitempty"`
}

// CheckProtocol enforces the adapter contract. Exactly one of the two
// shapes is legal: ops without clarification, or clarification without
// ops.
func (r *GenResult) CheckProtocol() error {
	if r.NeedsClarification && len(r.Ops) > 0 {
		return ErrProtocolViolation
	}
	if !r.NeedsClarification && len(r.Ops) == 0 {
		return ErrProtocolViolation
	}
	return nil
}

// Proposer turns a free-form user request into a structured patch
// proposal against a base recipe
type Proposer interface {
	Propose(ctx context.Context, base *models.Recipe, userRequest string) (*GenResult, error)
}

// ScriptedProposer returns canned results in order. Deterministic
// stand-in for the LLM proposer.
type ScriptedProposer struct {
	Results []*GenResult
	Errs    []error
	calls   int
}

// Propose returns the next scripted result
func (s *ScriptedProposer) Propose(_ context.Context, _ *models.Recipe, _ string) (*GenResult, error) {
	i := s.calls
	s.calls++

	var err error
	if i < len(s.Errs) {
		err = s.Errs[i]
	}
	if err != nil {
		return nil, err
	}
	if i < len(s.Results) {
		return s.Results[i], nil
	}
	return nil, ErrGeneratorFailure
}

// Calls reports how many times Propose was invoked
func (s *ScriptedProposer) Calls() int {
	return s.calls
}
