package domain

import "strings"

// DefaultAnswerPrompt is the built-in system prompt for answer generation.
const DefaultAnswerPrompt = `You are an expert real estate appraiser AI assistant. Use the following information to answer the user's question.
If you don't know the answer based on the provided information, say so.

Context information:
{context}

User question: {question}`

// RenderPrompt substitutes {context} and {question} in template.
func RenderPrompt(template, context, question string) string {
	return strings.NewReplacer("{context}", context, "{question}", question).Replace(template)
}
