package llm_test

import (
	"testing"

	"github.com/rpggio/captime/internal/llm"
	"github.com/stretchr/testify/require"
)

func TestCleanResponse(t *testing.T) {
	require.Equal(t, "answer", llm.CleanResponse("<think>\nreasoning\n</think>\nanswer"))
	require.Equal(t, "answer", llm.CleanResponse("answer<|im_end|>"))
	require.Equal(t, "a b", llm.CleanResponse("<|im_start|>a <think>x</think>b<|eot_id|>"))
	require.Equal(t, "", llm.CleanResponse("<think>never finished"))
}

func TestExtractJSON(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
		ok   bool
	}{
		{"fenced", "Here:\n```json\n[{\"a\":1}]\n```\nthanks", `[{"a":1}]`, true},
		{"bare array", `prefix [1,2] suffix`, `[1,2]`, true},
		{"bare object", `{"a":{"b":1}}`, `{"a":{"b":1}}`, true},
		{"prose", "about three hours", "", false},
		{"unclosed", "[1, 2", "", false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := llm.ExtractJSON(tc.in)
			require.Equal(t, tc.ok, ok)
			require.Equal(t, tc.want, got)
		})
	}
}
