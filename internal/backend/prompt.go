package backend

import "strings"

const (
	textOpen  = "<<<TEXT>>>"
	textClose = "<<<END_TEXT>>>"
)

const extractionInstructions = `You structure clinical narrative text into evidence. You NEVER score risk, stratify severity or recommend actions.

Read the narrative between the markers and return ONE JSON object, no markdown, with exactly these keys:

- "suicidal_ideation", "self_harm", "intent", "plan", "past_behavior": each an object
  {"presence": "present" | "absent" | "indeterminate", "evidence": [{"text": "...", "start": N, "end": N}]}
- "temporal": "current" | "recent" | "past" | "future" | "unknown"
- "uncertainty_cues": list of short snake_case strings
- "missing_information": list of short snake_case strings

RULES:
1. Evidence "text" MUST be copied verbatim from the narrative. "start"/"end" are byte offsets into the narrative.
2. A denial does not cancel explicit ideation language: report "indeterminate" and add the cue "explicit_denial_with_ideation_language".
3. Use "absent" only when the narrative explicitly denies the signal and nothing contradicts it.
4. If evidence is insufficient, use "indeterminate" and explain in "uncertainty_cues" or "missing_information".
`

// BuildPrompt wraps text in the extraction instructions and text markers
func BuildPrompt(text string) string {
	var b strings.Builder
	b.Grow(len(extractionInstructions) + len(text) + 64)
	b.WriteString(extractionInstructions)
	b.WriteString("\n")
	b.WriteString(textOpen)
	b.WriteString("\n")
	b.WriteString(text)
	b.WriteString("\n")
	b.WriteString(textClose)
	b.WriteString("\n")
	return b.String()
}
