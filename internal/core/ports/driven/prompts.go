package driven

// PromptAnswerSystem names the system prompt used when answering a question
// from retrieved context. The template may contain the placeholders
// {context} and {question}.
const PromptAnswerSystem = "answer_system"

// PromptStore loads prompt templates by name.
type PromptStore interface {
	// Load returns the template for name, falling back to a built-in default.
	Load(name string) (string, error)
}
