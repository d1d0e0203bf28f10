// Package reasoning is the contract between a conversation and the language model deciding what
// the assistant does next.
//
// A Reasoner looks at the transcript and the tool catalog and returns a Decision: either a reply
// for the user or exactly one tool invocation. Backends live in subpackages; openai calls the
// chat completions API directly, langchain goes through langchaingo.
package reasoning
