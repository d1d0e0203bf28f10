// Package openai decides the assistant's next step with OpenAI chat completions and function
// calling.
//
// The transcript is mapped onto chat messages: user and assistant messages as-is, plan turns as
// assistant tool calls, and tool results or failures as tool messages answering those calls.
// Parallel tool calls are disabled; if a model still returns several, only the first is used.
//
//	r := openai.New(openai.DefaultModel, option.WithAPIKey(key))
//	decision, err := r.Decide(ctx, req)
package openai
