package slogx

import (
	"fmt"
	"log/slog"

	"github.com/google/uuid"
)

const (
	// KeyLoggerName is the key for the logger name attribute.
	KeyLoggerName = "logger"
	// KeyConversation is the key for the conversation id attribute.
	KeyConversation = "conversation"
	// KeySession is the key for the shell session id attribute.
	KeySession = "session"
)

// Error returns a slog.Attr representing the provided error.
// The attribute key is "error" and the value is the error's message.
func Error(err error) slog.Attr {
	if err == nil {
		return slog.String("error", "<nil>")
	}
	return slog.String("error", err.Error())
}

// Stringer creates a slog.Attr with the provided key and the string representation
// of the given fmt.Stringer value.
func Stringer(key string, value fmt.Stringer) slog.Attr {
	return slog.String(key, value.String())
}

// LoggerName creates a slog.Attr with the provided logger name.
// The attribute key is defined by KeyLoggerName.
func LoggerName(name string) slog.Attr {
	return slog.String(KeyLoggerName, name)
}

// Conversation tags a log line with the conversation it belongs to.
func Conversation(id uuid.UUID) slog.Attr {
	return slog.String(KeyConversation, id.String())
}

// Session tags a log line with the shell session it belongs to.
func Session(id string) slog.Attr {
	return slog.String(KeySession, id)
}
