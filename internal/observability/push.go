package observability

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"
)

// JobName is the Pushgateway job label for profiler runs.
const JobName = "stream_level_profiler"

// Pusher sends the metrics of a finished batch run to a Prometheus Pushgateway.
type Pusher struct {
	pusher *push.Pusher
}

// NewPusher creates a Pusher for the gateway at url that collects from g.
func NewPusher(url string, g prometheus.Gatherer) *Pusher {
	return &Pusher{pusher: push.New(url, JobName).Gatherer(g)}
}

// Push replaces the job's metric group on the gateway.
func (p *Pusher) Push(ctx context.Context) error {
	if err := p.pusher.PushContext(ctx); err != nil {
		return fmt.Errorf("push metrics: %w", err)
	}
	return nil
}
