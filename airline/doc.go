// Package airline holds the mock booking domain: the LAX route whitelist, free-text date
// resolution, flight synthesis and payment capture.
//
// Nothing in this package returns an error for bad user input. Every rejection is a Failure
// value carrying one of the error codes below, so the conversation can hand it back to the
// reasoning step as a tool observation:
//
//	DateParseError          one or both dates could not be resolved
//	UnsupportedRouteError   the origin/destination pair is not whitelisted
//	InvalidPriceFormat      the purchase price is not a non-negative number
//	PaymentError            the payment collaborator rejected the charge
//	UnknownToolError        the reasoning step asked for a tool that does not exist
//	InvalidToolArguments    tool arguments do not match the declared schema
//	ReasoningStepTimeout    the reasoning step ran out of time
//	ReasoningStepFailed     the reasoning step failed for any other reason
//	ToolFailed              a tool call failed outside of its own validation
package airline
