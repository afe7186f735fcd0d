// Package postprocess cleans text produced by the answer generation backends.
//
// Two independent passes live here:
//   - Clean strips chat-model artifacts (thinking blocks, "Here is the answer:"
//     echoes, wrapping quotes) from Ollama and Gemini output.
//   - CollapseRepeats folds runs of an immediately repeated word into a single
//     occurrence. It is applied to every generated answer.
package postprocess

import (
	"regexp"
	"strings"
	"time"

	"github.com/dlclark/regexp2"
)

// Clean removes chat-model artifacts from text in three phases and returns
// the trimmed result:
//  1. Thinking / reasoning block removal
//  2. Instruction echo removal (prompt leakage)
//  3. Quote wrapping removal
func Clean(text string) string {
	text = removeThinkingBlocks(text)
	text = removeInstructionEchoes(text)
	text = removeQuoteWrapping(text)
	return strings.TrimSpace(text)
}

// --- Phase 1: thinking blocks ---

// Each tag variant is listed explicitly because RE2 has no backreferences.
var thinkingBlockRe = regexp.MustCompile(
	`(?is)<thinking>.*?</thinking>|<think>.*?</think>|<reasoning>.*?</reasoning>|<reflection>.*?</reflection>`,
)

// truncatedThinkingRe matches an opened thinking tag whose closing tag is
// missing (the model was cut off mid-thought).
var truncatedThinkingRe = regexp.MustCompile(
	`(?is)(?:<thinking>|<think>|<reasoning>|<reflection>).*$`,
)

func removeThinkingBlocks(text string) string {
	text = thinkingBlockRe.ReplaceAllString(text, "")
	text = truncatedThinkingRe.ReplaceAllString(text, "")
	return strings.TrimSpace(text)
}

// --- Phase 2: instruction echoes ---

// echoPatterns are anchored to the start of the string and require a colon.
var echoPatterns = []*regexp.Regexp{
	// "Here is / Here's [the|an|my] [short|brief] answer:"
	regexp.MustCompile(`(?i)^here(?:'s| is)(?: the| an?| my)? (?:short |brief |general )?(?:answer|response|explanation)\s*:`),
	// "[The] answer:" / "Response:"
	regexp.MustCompile(`(?i)^(?:the )?(?:answer|response)\s*:`),
	// "Certainly / Sure / Of course[,] here is [the] answer:"
	regexp.MustCompile(`(?i)^(?:certainly|sure|of course)[,.]? here(?:'s| is)(?: the| an?| my)? (?:short |brief |general )?(?:answer|response|explanation)\s*:`),
}

func removeInstructionEchoes(text string) string {
	for _, re := range echoPatterns {
		if loc := re.FindStringIndex(text); loc != nil && loc[0] == 0 {
			text = strings.TrimSpace(text[loc[1]:])
		}
	}
	return text
}

// --- Phase 3: quote wrapping ---

// removeQuoteWrapping strips a matching pair of outer quotes when the entire
// text is wrapped in them. Supported pairs:
//
//	"…"  '…'  «…»  "…"  '…'
func removeQuoteWrapping(text string) string {
	runes := []rune(text)
	n := len(runes)
	if n < 2 {
		return text
	}
	first, last := runes[0], runes[n-1]
	if (first == '"' && last == '"') ||
		(first == '\'' && last == '\'') ||
		(first == '«' && last == '»') ||
		(first == '“' && last == '”') ||
		(first == '‘' && last == '’') {
		return strings.TrimSpace(string(runes[1 : n-1]))
	}
	return text
}

// --- Special tokens ---

// specialTokenRe matches seq2seq control tokens that leak through decoding
// when the backend does not skip them.
var specialTokenRe = regexp.MustCompile(`</?s>|<pad>|<unk>|<extra_id_\d+>`)

// StripSpecialTokens removes tokenizer control tokens and trims the result.
func StripSpecialTokens(text string) string {
	return strings.TrimSpace(specialTokenRe.ReplaceAllString(text, ""))
}

// --- Repeated words ---

// repeatedWordRe needs a backreference, so it runs on regexp2 instead of the
// standard library engine. \w, \s and \b are Unicode-aware.
var repeatedWordRe = func() *regexp2.Regexp {
	re := regexp2.MustCompile(`\b(\w+)(?:\s+\1\b)+`, regexp2.None)
	re.MatchTimeout = 2 * time.Second
	return re
}()

// CollapseRepeats replaces every word that is immediately followed by one or
// more whitespace-separated copies of itself with a single occurrence:
// "the the the cat" becomes "the cat". Matching is case-sensitive and only
// adjacent repeats are folded, so "no, no" is left alone. The transform is
// idempotent.
func CollapseRepeats(text string) string {
	out, err := repeatedWordRe.Replace(text, "$1", -1, -1)
	if err != nil {
		// Only a match timeout can get here.
		return text
	}
	return out
}
