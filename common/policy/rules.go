package policy

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Rule is one guardrail: a named CEL expression that must evaluate to
// true for a batch to proceed.
type Rule struct {
	Name string `yaml:"name" json:"name"`
	Expr string `yaml:"expr" json:"expr"`
}

// DefaultRules are the guardrails active when no rules file is
// configured. They bound batch size and keep servings in a sane range;
// semantic correctness stays the validator's job.
func DefaultRules() []Rule {
	return []Rule{
		{Name: "max-ops", Expr: "ops.total <= 20"},
		{Name: "bounded-removals", Expr: "ops.removes <= base.ingredients"},
		{Name: "servings-range", Expr: "ops.scales == 0 || (ops.to_servings >= 1 && ops.to_servings <= 50)"},
	}
}

type rulesFile struct {
	Rules []Rule `yaml:"rules"`
}

// LoadRules reads guardrail rules from a YAML file:
//
//	rules:
//	  - name: max-ops
//	    expr: "ops.total <= 20"
func LoadRules(path string) ([]Rule, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read policy rules: %w", err)
	}

	var f rulesFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse policy rules: %w", err)
	}

	for i, r := range f.Rules {
		if r.Name == "" || r.Expr == "" {
			return nil, fmt.Errorf("policy rule %d: name and expr are required", i)
		}
	}
	return f.Rules, nil
}
