package coordinator

import (
	"context"
	"fmt"
	"time"

	"github.com/go-logr/logr"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	coordinatorv1 "github.com/antimetal/timeline-agent/pkg/api/coordinator/v1"
	"github.com/antimetal/timeline-agent/pkg/errors"
	"github.com/antimetal/timeline-agent/pkg/timeline"
)

const defaultReportTimeout = 10 * time.Second

var retryableCodes = []codes.Code{
	codes.Canceled,
	codes.DeadlineExceeded,
	codes.Unavailable,
	codes.Aborted,
}

// Client reports collector locations to the cluster coordinator over gRPC.
type Client struct {
	client  coordinatorv1.CollectorCoordinatorClient
	logger  logr.Logger
	timeout time.Duration
}

var _ timeline.Notifier = (*Client)(nil)

type ClientOpts func(*Client)

func WithGRPCConn(conn *grpc.ClientConn) ClientOpts {
	return func(c *Client) {
		c.client = coordinatorv1.NewCollectorCoordinatorClient(conn)
	}
}

func WithLogger(logger logr.Logger) ClientOpts {
	return func(c *Client) {
		c.logger = logger
	}
}

func WithReportTimeout(timeout time.Duration) ClientOpts {
	return func(c *Client) {
		c.timeout = timeout
	}
}

func New(opts ...ClientOpts) (*Client, error) {
	c := &Client{timeout: defaultReportTimeout}
	for _, opt := range opts {
		opt(c)
	}
	if c.client == nil {
		return nil, fmt.Errorf("can't create client")
	}
	return c, nil
}

// Report tells the coordinator that the collector for appID is reachable at
// address. Transient transport failures come back marked retryable so callers
// can decide to try again.
func (c *Client) Report(ctx context.Context, appID string, address string) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req := &coordinatorv1.ReportNewCollectorRequest{
		ApplicationId: appID,
		Address:       address,
	}
	_, err := c.client.ReportNewCollector(ctx, req)
	if err == nil {
		return nil
	}

	c.logger.Error(err, "coordinator report failed", "app", appID, "address", address)
	if isRetryable(err) {
		return errors.WrapRetryable(err)
	}
	return err
}

func isRetryable(err error) bool {
	st, ok := status.FromError(err)
	if !ok {
		return false
	}
	for _, code := range retryableCodes {
		if st.Code() == code {
			return true
		}
	}
	return false
}
