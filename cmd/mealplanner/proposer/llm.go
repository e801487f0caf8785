package proposer

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/platewise/mealplanner/common/llm"
	"github.com/platewise/mealplanner/common/logger"
	"github.com/platewise/mealplanner/common/models"
)

const systemPrompt = `You translate a user's recipe modification request into a JSON patch proposal.

Respond with a single JSON object and nothing else:
{"ops": [...], "needs_clarification": false, "message": ""}

Allowed operations:
- {"op": "replace_ingredient", "target_index": <int>, "target_name": "<substring of the ingredient line>", "replacement_name": "...", "replacement_quantity": "...", "reason": "..."}
- {"op": "add_ingredient", "new_ingredient_line": "...", "reason": "..."}
- {"op": "remove_ingredient", "target_index": <int>, "target_name": "<substring of the ingredient line>", "acknowledged": true, "reason": "..."}
- {"op": "scale_servings", "from_servings": <int>, "to_servings": <int>}

Rules:
- target_index refers to the numbered ingredient list you are given. Indexes start at 0.
- target_name must be a substring of the ingredient line at target_index.
- Include at most one scale_servings op, and set from_servings to the recipe's current servings.
- Set acknowledged to true on every remove_ingredient op.
- If the request is ambiguous or impossible, return {"ops": [], "needs_clarification": true, "message": "<one clarifying question>"}.
- Never return ops together with needs_clarification=true.`

// LLMProposer generates patch proposals with a chat model. Output is
// untrusted: it is parsed, protocol-checked, and validated downstream.
type LLMProposer struct {
	client llm.ChatClient
	log    *logger.Logger
}

// NewLLMProposer creates an LLM-backed proposer
func NewLLMProposer(client llm.ChatClient, log *logger.Logger) *LLMProposer {
	return &LLMProposer{client: client, log: log}
}

// Propose asks the model for a patch proposal. Unusable output gets
// exactly one retry before the call fails with ErrGeneratorFailure.
func (p *LLMProposer) Propose(ctx context.Context, base *models.Recipe, userRequest string) (*GenResult, error) {
	prompt := buildPrompt(base, userRequest)

	var lastErr error
	for attempt := 0; attempt < 2; attempt++ {
		if attempt > 0 {
			p.log.Warn("retrying patch proposal",
				"recipe_id", base.ID,
				"error", lastErr)
		}

		raw, err := p.client.Chat(ctx, systemPrompt, prompt)
		if err != nil {
			lastErr = err
			continue
		}

		result, err := parseGenResult(raw)
		if err != nil {
			p.log.Warn("failed to parse proposal", "error", err, "raw", truncate(raw, 200))
			lastErr = err
			continue
		}

		return result, nil
	}

	return nil, fmt.Errorf("%w: %v", ErrGeneratorFailure, lastErr)
}

// buildPrompt renders the recipe context the model reasons over. The
// ingredient list is numbered so the model can produce valid indexes.
func buildPrompt(base *models.Recipe, userRequest string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Recipe: %s\n", base.Title)
	fmt.Fprintf(&b, "Servings: %d\n", base.Servings)
	b.WriteString("Ingredients:\n")
	for i, line := range base.Ingredients {
		fmt.Fprintf(&b, "%d. %s\n", i, line)
	}
	fmt.Fprintf(&b, "\nUser request: %s\n", userRequest)
	return b.String()
}

// parseGenResult decodes the model output into a GenResult. Parsing is
// deliberately lenient: anything that is valid JSON gets through, and
// the patch validator decides whether the ops inside make sense.
func parseGenResult(raw string) (*GenResult, error) {
	raw = stripCodeFence(raw)

	var result GenResult
	if err := json.Unmarshal([]byte(raw), &result); err != nil {
		return nil, fmt.Errorf("unparsable proposal: %w", err)
	}

	return &result, nil
}

// stripCodeFence removes ```json ... ``` wrappers that models love to
// add around JSON output
func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```") {
		if idx := strings.Index(s, "\n"); idx != -1 {
			s = s[idx+1:]
		}
		if idx := strings.LastIndex(s, "```"); idx != -1 {
			s = s[:idx]
		}
	}
	return strings.TrimSpace(s)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
