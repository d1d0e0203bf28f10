package airline

import (
	"fmt"
)

// Code identifies a class of failure in the booking domain.
type Code string

const (
	CodeDateParse            Code = "DateParseError"
	CodeUnsupportedRoute     Code = "UnsupportedRouteError"
	CodeInvalidPriceFormat   Code = "InvalidPriceFormat"
	CodePayment              Code = "PaymentError"
	CodeUnknownTool          Code = "UnknownToolError"
	CodeInvalidToolArguments Code = "InvalidToolArguments"
	CodeReasoningTimeout     Code = "ReasoningStepTimeout"
	CodeReasoningFailed      Code = "ReasoningStepFailed"
	CodeToolFailed           Code = "ToolFailed"
)

// Failure is a structured, user-presentable error. It travels through the transcript as data.
type Failure struct {
	Code                  Code     `json:"code"`
	Message               string   `json:"error"`
	SupportedDestinations []string `json:"supported_destinations,omitempty"`
}

func (f *Failure) Error() string {
	return fmt.Sprintf("%s: %s", f.Code, f.Message)
}

// Is matches failures by code, so errors.Is(err, &Failure{Code: CodePayment}) works.
func (f *Failure) Is(target error) bool {
	t, ok := target.(*Failure)
	if !ok {
		return false
	}
	return t.Code == f.Code
}

func DateParseFailure() *Failure {
	return &Failure{Code: CodeDateParse, Message: "could not parse dates"}
}

func UnsupportedRouteFailure() *Failure {
	return &Failure{
		Code:                  CodeUnsupportedRoute,
		Message:               fmt.Sprintf("We currently only support mock routes from %s to a few destinations.", Hub),
		SupportedDestinations: SupportedDestinations(),
	}
}

func InvalidPriceFailure(price string) *Failure {
	return &Failure{Code: CodeInvalidPriceFormat, Message: fmt.Sprintf("invalid price format: %q", price)}
}

func PaymentFailure(err error) *Failure {
	return &Failure{Code: CodePayment, Message: fmt.Sprintf("payment error: %v", err)}
}

func UnknownToolFailure(name string) *Failure {
	return &Failure{Code: CodeUnknownTool, Message: fmt.Sprintf("unknown tool: %s", name)}
}

func InvalidToolArgumentsFailure(name string, err error) *Failure {
	return &Failure{Code: CodeInvalidToolArguments, Message: fmt.Sprintf("invalid arguments for %s: %v", name, err)}
}

func ReasoningTimeoutFailure() *Failure {
	return &Failure{Code: CodeReasoningTimeout, Message: "the assistant took too long to respond, please try again"}
}

func ReasoningFailure(err error) *Failure {
	return &Failure{Code: CodeReasoningFailed, Message: fmt.Sprintf("the assistant failed to respond: %v", err)}
}

func ToolFailure(name string, err error) *Failure {
	return &Failure{Code: CodeToolFailed, Message: fmt.Sprintf("%s failed: %v", name, err)}
}
