package tprl

import (
	"fmt"
	"log/slog"

	"github.com/casualjim/latravels/pkg/slogx"
	"go.temporal.io/sdk/client"
	"go.temporal.io/sdk/log"
)

// Options configures the connection to the Temporal frontend.
type Options struct {
	HostPort  string
	Namespace string
}

func (o Options) withDefaults() Options {
	if o.HostPort == "" {
		o.HostPort = client.DefaultHostPort
	}
	if o.Namespace == "" {
		o.Namespace = client.DefaultNamespace
	}
	return o
}

// NewClient creates a lazy Temporal client. The connection is established on first use,
// so the shell can start before the Temporal server is reachable.
func NewClient(opts Options) (client.Client, error) {
	opts = opts.withDefaults()
	lg := slog.Default().With(slogx.LoggerName("latravels.temporal"))

	cl, err := client.NewLazyClient(client.Options{
		HostPort:  opts.HostPort,
		Namespace: opts.Namespace,
		Logger:    log.NewStructuredLogger(lg),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create temporal client: %w", err)
	}
	return cl, nil
}
