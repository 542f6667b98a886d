// internal/common/camunda/client.go
package camunda

import (
	"context"
	"fmt"
	"time"

	"shopping-assistant/internal/common/config"
	"shopping-assistant/internal/common/errors"
	"shopping-assistant/internal/common/retry"

	"github.com/camunda/zeebe/clients/go/v8/pkg/zbc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// Client wraps the Zeebe gRPC client used by the room recommendation worker.
type Client struct {
	client  zbc.Client
	timeout time.Duration
}

const defaultConnectionTimeout = 10 * time.Second

// connectPolicy retries the initial topology request while the broker
// starts up.
var connectPolicy = retry.Policy{
	MaxRetries:     3,
	InitialBackoff: time.Second,
	MaxBackoff:     10 * time.Second,
}

// NewClient connects to the broker in cfg and verifies it answers a
// topology request.
func NewClient(ctx context.Context, cfg config.CamundaConfig) (*Client, error) {
	if cfg.BrokerAddress == "" {
		return nil, errors.NewValidationError("camunda broker address is required")
	}

	zeebeClient, err := zbc.NewClient(&zbc.ClientConfig{
		GatewayAddress:         cfg.BrokerAddress,
		UsePlaintextConnection: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Zeebe client: %w", err)
	}

	c := &Client{client: zeebeClient, timeout: defaultConnectionTimeout}
	err = retry.Do(ctx, connectPolicy, func(ctx context.Context) error {
		err := c.HealthCheck(ctx)
		if err != nil && !IsRetryable(err) {
			return &retry.Permanent{Err: err}
		}
		return err
	}, nil)
	if err != nil {
		zeebeClient.Close()
		return nil, errors.NewExternalServiceError("zeebe", fmt.Errorf("broker %s: %w", cfg.BrokerAddress, err))
	}

	return c, nil
}

// Zeebe returns the raw client for opening job workers.
func (c *Client) Zeebe() zbc.Client {
	return c.client
}

func (c *Client) Close() error {
	return c.client.Close()
}

// HealthCheck sends a topology request to the broker.
func (c *Client) HealthCheck(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	if _, err := c.client.NewTopologyCommand().Send(ctx); err != nil {
		return fmt.Errorf("zeebe health check failed: %w", err)
	}
	return nil
}

// IsRetryable reports whether a broker error is transient.
func IsRetryable(err error) bool {
	s, ok := status.FromError(err)
	if !ok {
		return false
	}
	switch s.Code() {
	case codes.Unavailable, codes.DeadlineExceeded, codes.ResourceExhausted, codes.Aborted:
		return true
	default:
		return false
	}
}
