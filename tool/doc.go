/*
Package tool defines the closed set of capabilities the assistant can invoke: searching for
flights and purchasing one.

# Design Decisions

  - Closed set: Kind is an enum with exactly two members and every dispatch switches over it
  - Reflected schemas: the argument structs are the single source of the JSON schema sent to the
    reasoning step
  - Validate at the edge: a model's raw invocation is decoded and schema-checked once, in Decode;
    past that point a Call is always well formed
  - Failures are data: unknown names and bad arguments come back as airline.Failure values so the
    conversation can show them to the user

# Key Concepts

 1. Definition
    Name, description and JSON schema of one tool, as advertised to a reasoning backend.

 2. Invocation
    What a reasoning backend asks for: an id, a tool name and a JSON argument document.

 3. Call
    A decoded invocation with typed arguments.

 4. Observation
    The structured result of executing a Call: a flight list, a booking result or a failure.

# Usage

	call, failure := tool.Decode(tool.Invocation{
		ID:        "call_1",
		Name:      "find_flights",
		Arguments: `{"origin":"LAX","destination":"NYC","departure_date":"next friday","return_date":"next sunday"}`,
	})
	if failure != nil {
		// show the failure to the user
	}
	obs := toolbox.Execute(ctx, call)
*/
package tool
