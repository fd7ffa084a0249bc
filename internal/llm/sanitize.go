package llm

import (
	"regexp"
	"strings"
)

var (
	thinkBlock    = regexp.MustCompile(`(?s)<think>.*?</think>`)
	openThink     = regexp.MustCompile(`(?s)^\s*<think>.*$`)
	controlTokens = regexp.MustCompile(`<\|[^|<>]*\|>`)
	fencedBlock   = regexp.MustCompile("(?s)```(?:json)?\\s*(.*?)```")
)

// CleanResponse strips reasoning blocks and chat-template control tokens
// that local runtimes leak into completions.
func CleanResponse(text string) string {
	text = thinkBlock.ReplaceAllString(text, "")
	text = controlTokens.ReplaceAllString(text, "")
	// An unterminated <think> means the model never left its reasoning.
	text = openThink.ReplaceAllString(text, "")
	return strings.TrimSpace(text)
}

// ExtractJSON returns the JSON payload embedded in text: a fenced block if
// present, otherwise the outermost array or object.
func ExtractJSON(text string) (string, bool) {
	if m := fencedBlock.FindStringSubmatch(text); m != nil {
		body := strings.TrimSpace(m[1])
		if body != "" {
			return body, true
		}
	}
	start := strings.IndexAny(text, "[{")
	if start < 0 {
		return "", false
	}
	closer := byte('}')
	if text[start] == '[' {
		closer = ']'
	}
	end := strings.LastIndexByte(text, closer)
	if end <= start {
		return "", false
	}
	return text[start : end+1], true
}
