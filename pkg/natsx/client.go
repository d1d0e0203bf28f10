package natsx

import (
	"github.com/nats-io/nats.go"
)

// NewClient connects to the NATS server at url. When no options are given the connection is
// named "latravels", compressed, and reconnects forever so that a restarting NATS server does
// not drop conversation event streams.
func NewClient(url string, opts ...nats.Option) (*nats.Conn, error) {
	if url == "" {
		url = nats.DefaultURL
	}
	if len(opts) == 0 {
		opts = append(opts,
			nats.Name("latravels"),
			nats.Compression(true),
			nats.MaxReconnects(-1),
		)
	}
	return nats.Connect(url, opts...)
}
