package temporalx

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"go.temporal.io/api/serviceerror"
	"go.temporal.io/api/workflowservice/v1"
	temporalsdkclient "go.temporal.io/sdk/client"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/durationpb"

	"github.com/yungbote/neurobridge-adaptive/internal/platform/logger"
)

const (
	dialTimeout        = 5 * time.Second
	namespaceTimeout   = 10 * time.Second
	namespaceRetention = 7 * 24 * time.Hour
)

var (
	retryBase = 250 * time.Millisecond
	retryMax  = 5 * time.Second
)

// NewClient dials Temporal, retrying for up to cfg.ConnectWait. It returns a
// nil client when no address is configured.
func NewClient(ctx context.Context, log *logger.Logger, cfg Config) (temporalsdkclient.Client, error) {
	if cfg.Address == "" {
		log.Warn("TEMPORAL_ADDRESS not set; Temporal disabled")
		return nil, nil
	}
	opts, err := clientOptions(log, cfg)
	if err != nil {
		return nil, err
	}
	opts.Namespace = cfg.Namespace

	var c temporalsdkclient.Client
	err = Retry(ctx, cfg.ConnectWait, nil,
		func(attempt int, err error) {
			log.Warn("Temporal not reachable; retrying", "address", cfg.Address, "attempt", attempt, "error", err)
		},
		func() error {
			dctx, cancel := context.WithTimeout(ctx, dialTimeout)
			defer cancel()
			var derr error
			c, derr = temporalsdkclient.DialContext(dctx, opts)
			return derr
		},
	)
	if err != nil {
		return nil, fmt.Errorf("temporal dial (address=%s namespace=%s): %w", cfg.Address, cfg.Namespace, err)
	}
	if cfg.RegisterNamespace {
		if err := EnsureNamespace(ctx, log, cfg); err != nil {
			c.Close()
			return nil, err
		}
	}
	return c, nil
}

// EnsureNamespace registers cfg.Namespace when the server does not know it.
func EnsureNamespace(ctx context.Context, log *logger.Logger, cfg Config) error {
	ns := strings.TrimSpace(cfg.Namespace)
	if cfg.Address == "" || ns == "" {
		return nil
	}
	// No namespace on these options: the namespace client must work before it exists.
	opts, err := clientOptions(log, cfg)
	if err != nil {
		return err
	}
	nc, err := temporalsdkclient.NewNamespaceClient(opts)
	if err != nil {
		return fmt.Errorf("temporal namespace client: %w", err)
	}
	defer nc.Close()

	ctx, cancel := context.WithTimeout(ctx, namespaceTimeout)
	defer cancel()
	return Retry(ctx, namespaceTimeout, isRetryableRPC,
		func(attempt int, err error) {
			log.Warn("Temporal namespace ensure retrying", "namespace", ns, "attempt", attempt, "error", err)
		},
		func() error { return ensureNamespace(ctx, log, nc, ns) },
	)
}

type namespaceRegistry interface {
	Describe(ctx context.Context, namespace string) (*workflowservice.DescribeNamespaceResponse, error)
	Register(ctx context.Context, request *workflowservice.RegisterNamespaceRequest) error
}

func ensureNamespace(ctx context.Context, log *logger.Logger, reg namespaceRegistry, ns string) error {
	_, err := reg.Describe(ctx, ns)
	var missing *serviceerror.NamespaceNotFound
	if !errors.As(err, &missing) {
		return err
	}
	err = reg.Register(ctx, &workflowservice.RegisterNamespaceRequest{
		Namespace:                        ns,
		Description:                      "learner model calibration",
		WorkflowExecutionRetentionPeriod: durationpb.New(namespaceRetention),
	})
	var exists *serviceerror.NamespaceAlreadyExists
	if errors.As(err, &exists) {
		return nil
	}
	if err == nil {
		log.Info("Registered Temporal namespace", "namespace", ns)
	}
	return err
}

// Retry calls fn until it succeeds, fails with an error retryable rejects,
// ctx ends, or wait has elapsed. A nil retryable retries every error. Sleeps
// double from retryBase up to retryMax.
func Retry(ctx context.Context, wait time.Duration, retryable func(error) bool, onRetry func(attempt int, err error), fn func() error) error {
	deadline := time.Now().Add(wait)
	for attempt := 1; ; attempt++ {
		err := fn()
		if err == nil {
			return nil
		}
		if retryable != nil && !retryable(err) {
			return err
		}
		if !time.Now().Before(deadline) {
			return err
		}
		if cerr := ctx.Err(); cerr != nil {
			return fmt.Errorf("%w (last error: %v)", cerr, err)
		}
		if onRetry != nil {
			onRetry(attempt, err)
		}
		t := time.NewTimer(backoff(attempt))
		select {
		case <-ctx.Done():
			t.Stop()
			return fmt.Errorf("%w (last error: %v)", ctx.Err(), err)
		case <-t.C:
		}
	}
}

func backoff(attempt int) time.Duration {
	d := retryBase
	for i := 1; i < attempt && d < retryMax; i++ {
		d *= 2
	}
	return min(d, retryMax)
}

func clientOptions(log *logger.Logger, cfg Config) (temporalsdkclient.Options, error) {
	opts := temporalsdkclient.Options{HostPort: cfg.Address, Logger: log}
	if cfg.TLSEnabled() {
		tlsCfg, err := loadTLSConfig(cfg)
		if err != nil {
			return opts, err
		}
		opts.ConnectionOptions.TLS = tlsCfg
	}
	return opts, nil
}

func loadTLSConfig(cfg Config) (*tls.Config, error) {
	if cfg.ClientCertPath == "" || cfg.ClientKeyPath == "" {
		return nil, errors.New("temporal tls: TEMPORAL_CLIENT_CERT_PATH and TEMPORAL_CLIENT_KEY_PATH must both be set")
	}
	cert, err := tls.LoadX509KeyPair(cfg.ClientCertPath, cfg.ClientKeyPath)
	if err != nil {
		return nil, fmt.Errorf("temporal tls: load client cert: %w", err)
	}
	tlsCfg := &tls.Config{Certificates: []tls.Certificate{cert}, MinVersion: tls.VersionTLS12}
	if cfg.ClientCAPath == "" {
		return tlsCfg, nil
	}
	pem, err := os.ReadFile(cfg.ClientCAPath)
	if err != nil {
		return nil, fmt.Errorf("temporal tls: read CA: %w", err)
	}
	pool := x509.NewCertPool()
	if !pool.AppendCertsFromPEM(pem) {
		return nil, errors.New("temporal tls: CA file holds no certificates")
	}
	tlsCfg.RootCAs = pool
	return tlsCfg, nil
}

func isRetryableRPC(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	s, ok := status.FromError(err)
	if !ok {
		return false
	}
	switch s.Code() {
	case codes.Unavailable, codes.DeadlineExceeded, codes.ResourceExhausted:
		return true
	}
	return false
}
