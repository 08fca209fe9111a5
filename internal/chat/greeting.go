package chat

import (
	_ "embed"
	"strings"
)

//go:embed greeting.md
var greetingText string

// Suggestions are offered with the greeting. Each one must classify with
// the rule-based translator.
var Suggestions = []string{
	"Show the top 20 repositories by stars",
	"Show repositories from UCLA with more than 100 stars",
	"How many repositories are there per university?",
	"What are the most common licenses overall?",
	"Compare the languages used across project types",
}

// Greeting returns the welcome markdown followed by the suggestion list.
func Greeting() string {
	var b strings.Builder
	b.WriteString(strings.TrimRight(greetingText, "\n"))
	b.WriteString("\n\n")
	for _, s := range Suggestions {
		b.WriteString("- ")
		b.WriteString(s)
		b.WriteString("\n")
	}
	return b.String()
}
