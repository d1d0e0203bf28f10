/*
Package conversation holds the booking conversation state machine.

The Machine performs no I/O. Drivers feed it inputs and it answers with the Action to perform
next:

	AwaitingUserInput --Accept--> Planning --Decide(reply)--> AwaitingUserInput
	                              Planning --Decide(tool)---> ExecutingTool
	ExecutingTool --Observe(search)--> Planning (one follow-up decision)
	ExecutingTool --Observe(purchase)--> Completed

A purchase ends the conversation whether or not the payment went through. Failures of the
reasoning step or a tool are recorded as failure turns and hand control back to the user.

Because every transition is deterministic, the same Machine runs inside a Temporal workflow and
inside the in-process executor.
*/
package conversation
