package models

const (
	// AnswerSystemPrompt conditions the completion on retrieved context only.
	AnswerSystemPrompt = "You are a helpful assistant. Use only the provided context to answer the query. If the context does not contain the answer, say so."

	// AnswerPromptTemplate carries the context block and the question.
	AnswerPromptTemplate = "Context:\n%s\nQuery: %s"

	// PlannerSystemPrompt drives the tool-dispatch loop.
	PlannerSystemPrompt = "You are a website Q&A assistant. Use the load_websites tool when the user provides URLs to read, and the answer_from_websites tool to answer questions about content that was already loaded. Reply with the tool result."
)
