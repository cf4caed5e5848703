// Package llm adapts chat models to the pipeline Model collaborator.
//
// ChatModel renders the prompt context of a step into a chat message, calls an eino
// BaseChatModel and returns the text of the answer. Rate limiting and retries of
// transient failures live here, never in the pipeline: once the retries are exhausted
// the failure is reported as a pipeline.ServiceError and the run stops.
package llm
