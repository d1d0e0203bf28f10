// Package executor drives conversation.Machine values. The machine decides what happens next;
// an executor performs the slow parts (reasoning, tool calls) and records their outcome.
//
// Two executors implement Conversations:
//
//   - Local runs every conversation in-process. Each conversation has an actor goroutine that
//     consumes a FIFO mailbox, so turns of one conversation never overlap while different
//     conversations proceed independently. Snapshots are saved to a store after every turn and
//     conversations are restored from it on first use.
//
//   - TemporalProxy sends messages to ConversationWorkflow, a durable Temporal workflow per
//     conversation. The workflow buffers the user_message signal and answers the get_history,
//     is_ready, get_state and get_offers queries. Reasoning and tool calls run as activities
//     without retries.
//
// Both publish every appended turn and state change on the conversation's broker topic.
//
// Example usage:
//
//	exec, err := executor.NewLocal(reasoner, toolbox, executor.WithBroker(broker.Local()))
//	if err != nil {
//	    return err
//	}
//	defer exec.Close()
//
//	if err := exec.Send(ctx, id, "I want to fly to Munich next friday"); err != nil {
//	    return err
//	}
package executor
