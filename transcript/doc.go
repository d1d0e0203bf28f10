// Package transcript records what was said and done in a conversation.
//
// A Transcript is an append-only sequence of turns. Users and the assistant exchange messages;
// the assistant's decision to run a tool is recorded as a plan turn, and the tool's result as
// an observation or failure turn. Plan turns are bookkeeping for the reasoning step and are not
// shown to users.
//
// Turn ids are derived from the transcript id and the turn's position, so replaying the same
// sequence of appends yields the same ids. A Checkpoint is the serializable form of a
// transcript and is what crosses process and activity boundaries.
package transcript
