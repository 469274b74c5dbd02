package review

import (
	"fmt"
	"strings"

	"github.com/joescharf/bugless/internal/llm"
	"github.com/joescharf/bugless/internal/models"
)

// BuildPrompt generates the instruction sent to the model for one review.
// The code is embedded verbatim in a fence tagged with language.
func BuildPrompt(language, code string) string {
	var b strings.Builder

	b.WriteString("You are Bugless, a world-class senior software engineer AI specializing in code reviews.\n")
	fmt.Fprintf(&b, "Your task is to provide a comprehensive, professional-grade review of the following %s code.\n\n", language)

	b.WriteString("Analyze the code for the following aspects:\n")
	b.WriteString("1. **Logic:** Identify logical errors, unhandled edge cases, or potential bugs.\n")
	b.WriteString("2. **Performance:** Spot performance bottlenecks, inefficient algorithms, or memory leaks.\n")
	b.WriteString("3. **Readability & Style:** Check clarity, naming conventions, idiomatic usage, and code smells.\n")
	b.WriteString("4. **Security:** Find potential security vulnerabilities.\n\n")

	b.WriteString("Your response MUST be valid JSON that strictly follows the provided schema. Do not add any text outside the JSON structure.\n\n")

	cats := make([]string, len(models.IssueCategories))
	for i, c := range models.IssueCategories {
		cats[i] = "'" + string(c) + "'"
	}
	fmt.Fprintf(&b, "The \"type\" of each issue must be one of: %s.\n", strings.Join(cats, ", "))
	b.WriteString("Each issue's \"line\" is the 1-based line number it refers to.\n\n")

	b.WriteString("Provide a concise, high-level list of suggestions for architectural or structural improvements.\n")
	b.WriteString("Give an overall integer score from 0 to 100, where 100 is perfect code.\n\n")

	b.WriteString("Finally, provide the complete, corrected version of the code in the \"editedCode\" field. ")
	b.WriteString("It must incorporate the most critical fixes for logic, performance, and readability, ")
	fmt.Fprintf(&b, "and be formatted according to %s conventions.\n\n", language)

	b.WriteString("Code to review:\n")
	fmt.Fprintf(&b, "```%s\n%s\n```\n", language, code)

	return b.String()
}

// ResponseSchema is the structured-output schema the provider enforces.
func ResponseSchema() *llm.Schema {
	return &llm.Schema{
		Type: llm.TypeObject,
		Properties: map[string]*llm.Schema{
			"issues": {
				Type: llm.TypeArray,
				Items: &llm.Schema{
					Type: llm.TypeObject,
					Properties: map[string]*llm.Schema{
						"line":    {Type: llm.TypeInteger},
						"type":    {Type: llm.TypeString},
						"message": {Type: llm.TypeString},
					},
					Required: []string{"line", "type", "message"},
				},
			},
			"suggestions": {
				Type:  llm.TypeArray,
				Items: &llm.Schema{Type: llm.TypeString},
			},
			"score": {
				Type:        llm.TypeInteger,
				Description: "An integer from 0 to 100 representing overall code quality.",
			},
			"editedCode": {
				Type:        llm.TypeString,
				Description: "The full, corrected, and improved version of the user's code.",
			},
		},
		Required: []string{"issues", "suggestions", "score", "editedCode"},
	}
}
