// Package httpapi serves chat sessions over HTTP:
//
//	GET  /healthz
//	POST /v1/sessions                 start a session, returns its id and the welcome text
//	POST /v1/sessions/:id/messages    send {"text": "..."} and wait for the reply
//	GET  /v1/sessions/:id/history     turns of the current conversation (?all=true includes plans)
//	GET  /v1/sessions/:id/ready       whether the current conversation is between turns
package httpapi
