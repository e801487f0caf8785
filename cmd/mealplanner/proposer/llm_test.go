package proposer

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/platewise/mealplanner/common/logger"
	"github.com/platewise/mealplanner/common/models"
	"github.com/platewise/mealplanner/common/patch"
)

// scriptedChat plays back canned chat completions in order
type scriptedChat struct {
	replies []string
	errs    []error
	calls   int
}

func (s *scriptedChat) Chat(_ context.Context, _ string, _ string) (string, error) {
	i := s.calls
	s.calls++

	if i < len(s.errs) && s.errs[i] != nil {
		return "", s.errs[i]
	}
	if i < len(s.replies) {
		return s.replies[i], nil
	}
	return "", errors.New("no scripted reply")
}

func testRecipe() *models.Recipe {
	return &models.Recipe{
		ID:       42,
		Title:    "Weeknight Fried Rice",
		Servings: 4,
		Ingredients: []string{
			"1 cup white rice",
			"2 chicken breasts",
			"1 tbsp olive oil",
		},
	}
}

func newTestProposer(chat *scriptedChat) *LLMProposer {
	return NewLLMProposer(chat, logger.New("error", "json"))
}

func TestProposeParsesFencedJSON(t *testing.T) {
	chat := &scriptedChat{replies: []string{
		"```json\n{\"ops\": [{\"op\": \"add_ingredient\", \"new_ingredient_line\": \"1 pinch saffron\", \"reason\": \"user asked\"}], \"needs_clarification\": false}\n```",
	}}

	result, err := newTestProposer(chat).Propose(context.Background(), testRecipe(), "add saffron")
	require.NoError(t, err)
	require.Len(t, result.Ops, 1)

	assert.Equal(t, patch.KindAddIngredient, result.Ops[0].Kind)
	assert.Equal(t, "1 pinch saffron", result.Ops[0].NewIngredientLine)
	assert.False(t, result.NeedsClarification)
	assert.Equal(t, 1, chat.calls)
}

func TestProposeClarification(t *testing.T) {
	chat := &scriptedChat{replies: []string{
		`{"ops": [], "needs_clarification": true, "message": "Which ingredient should I replace?"}`,
	}}

	result, err := newTestProposer(chat).Propose(context.Background(), testRecipe(), "make it better")
	require.NoError(t, err)

	assert.True(t, result.NeedsClarification)
	assert.Empty(t, result.Ops)
	assert.Equal(t, "Which ingredient should I replace?", result.Message)
	require.NoError(t, result.CheckProtocol())
}

func TestProposeRetriesOnceThenSucceeds(t *testing.T) {
	chat := &scriptedChat{
		replies: []string{
			"Sure! Here is what I'd change:",
			`{"ops": [{"op": "scale_servings", "from_servings": 4, "to_servings": 8}], "needs_clarification": false}`,
		},
	}

	result, err := newTestProposer(chat).Propose(context.Background(), testRecipe(), "double it")
	require.NoError(t, err)
	require.Len(t, result.Ops, 1)

	assert.Equal(t, patch.KindScaleServings, result.Ops[0].Kind)
	assert.Equal(t, 2, chat.calls, "first reply is prose, expect exactly one retry")
}

func TestProposeFailsAfterRetryBudget(t *testing.T) {
	chat := &scriptedChat{replies: []string{"not json", "still not json"}}

	result, err := newTestProposer(chat).Propose(context.Background(), testRecipe(), "anything")
	require.Error(t, err)

	assert.True(t, errors.Is(err, ErrGeneratorFailure))
	assert.Nil(t, result)
	assert.Equal(t, 2, chat.calls, "retry budget is exactly one retry")
}

func TestProposeRetriesTransportErrors(t *testing.T) {
	chat := &scriptedChat{
		errs:    []error{errors.New("connection reset")},
		replies: []string{"", `{"ops": [{"op": "add_ingredient", "new_ingredient_line": "1 lime"}], "needs_clarification": false}`},
	}

	result, err := newTestProposer(chat).Propose(context.Background(), testRecipe(), "add lime")
	require.NoError(t, err)

	assert.Len(t, result.Ops, 1)
	assert.Equal(t, 2, chat.calls)
}

func TestCheckProtocol(t *testing.T) {
	tests := []struct {
		name    string
		result  GenResult
		wantErr bool
	}{
		{
			name:   "ops without clarification",
			result: GenResult{Ops: []patch.Op{patch.AddOp("1 lime", "")}},
		},
		{
			name:   "clarification without ops",
			result: GenResult{NeedsClarification: true, Message: "which one?"},
		},
		{
			name: "ops alongside clarification",
			result: GenResult{
				Ops:                []patch.Op{patch.AddOp("1 lime", "")},
				NeedsClarification: true,
			},
			wantErr: true,
		},
		{
			name:    "neither ops nor clarification",
			result:  GenResult{},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.result.CheckProtocol()
			if tt.wantErr {
				assert.True(t, errors.Is(err, ErrProtocolViolation))
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestScriptedProposer(t *testing.T) {
	scripted := &ScriptedProposer{
		Results: []*GenResult{
			{Ops: []patch.Op{patch.AddOp("1 lime", "")}},
		},
	}

	first, err := scripted.Propose(context.Background(), testRecipe(), "add lime")
	require.NoError(t, err)
	assert.Len(t, first.Ops, 1)

	_, err = scripted.Propose(context.Background(), testRecipe(), "again")
	assert.True(t, errors.Is(err, ErrGeneratorFailure), "exhausted script falls back to generator failure")
	assert.Equal(t, 2, scripted.Calls())
}

func TestStripCodeFence(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"bare json", `{"ops": []}`, `{"ops": []}`},
		{"json fence", "```json\n{\"ops\": []}\n```", `{"ops": []}`},
		{"plain fence", "```\n{\"ops\": []}\n```", `{"ops": []}`},
		{"surrounding whitespace", "  \n```json\n{}\n```\n  ", "{}"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, stripCodeFence(tt.in))
		})
	}
}

func TestBuildPromptNumbersIngredients(t *testing.T) {
	prompt := buildPrompt(testRecipe(), "swap the rice")

	assert.Contains(t, prompt, "Recipe: Weeknight Fried Rice")
	assert.Contains(t, prompt, "Servings: 4")
	assert.Contains(t, prompt, "0. 1 cup white rice")
	assert.Contains(t, prompt, "2. 1 tbsp olive oil")
	assert.Contains(t, prompt, "User request: swap the rice")
}
