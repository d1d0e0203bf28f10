// Package langchain decides the assistant's next step through langchaingo, so any llms.Model
// with tool calling support can drive a conversation.
package langchain
