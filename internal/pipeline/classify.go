package pipeline

import "strings"

// policyKeywords mark an error as content-policy filtering rather than a
// technical fault.
var policyKeywords = []string{
	"content policy", "safety", "blocked", "filtered", "person_generation",
	"inappropriate", "violates", "prohibited", "restricted", "harmful",
	"unsafe", "policy violation",
}

// personTerms are prompt words that commonly trip person-generation
// filters when the backend silently returns zero results.
var personTerms = []string{
	"person", "people", "human", "man", "woman", "child", "individual", "character",
}

// isPolicyFailure classifies a generation failure. True means the backend
// refused the content; false means a technical fault worth retrying.
//
// Two signals: explicit policy keywords in the error text, or a
// zero-results message ("no images"/"no videos") combined with
// person-like terms in the prompt, the usual fingerprint of
// person-generation filtering.
func isPolicyFailure(errMsg, prompt string) bool {
	if errMsg == "" {
		return false
	}
	lower := strings.ToLower(errMsg)
	for _, kw := range policyKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	if prompt != "" && (strings.Contains(lower, "no videos") || strings.Contains(lower, "no images")) {
		promptLower := strings.ToLower(prompt)
		for _, term := range personTerms {
			if strings.Contains(promptLower, term) {
				return true
			}
		}
	}
	return false
}

// policyMessage returns the templated, non-alarming user-facing explanation
// for a policy rejection. Varies by media kind and by whether the prompt
// mentions people.
func policyMessage(mediaKind, prompt string) string {
	switch mediaKind {
	case "video":
		promptLower := strings.ToLower(prompt)
		for _, term := range []string{"person", "people", "human"} {
			if strings.Contains(promptLower, term) {
				return "I can't generate videos with people in them due to content policy restrictions. " +
					"Would you like me to try creating a video with a different concept?"
			}
		}
		return "I couldn't generate that video due to content policy restrictions. Could you try rephrasing your request?"
	case "image":
		return "I couldn't generate that image due to content policy restrictions. Could you try a different description?"
	default:
		return "I couldn't generate that media due to content policy restrictions. Could you try a different approach?"
	}
}
