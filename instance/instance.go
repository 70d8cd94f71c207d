// Package instance turns one configured backend/model pair into a running
// HTTP service.
package instance

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sourcegraph/conc/pool"

	"completion-proxy/backend"
	"completion-proxy/config"
	"completion-proxy/handler"
	"completion-proxy/logging"
	"completion-proxy/manager"
)

const (
	readHeaderTimeout = 10 * time.Second
	idleTimeout       = 90 * time.Second
	shutdownTimeout   = 15 * time.Second
)

var log *logrus.Logger

func init() {
	log = logging.GetLogger()
}

// Instance is one proxy bound to a single backend URL and model.
type Instance struct {
	Config  config.InstanceConfig
	Backend *backend.Client
	Handler http.Handler
}

// New builds an Instance. cm may be nil.
func New(cfg config.InstanceConfig, corsCfg config.CORSConfig, cm *manager.ConcurrencyManager) *Instance {
	client := backend.NewBackendClient(cfg.BackendURL, cfg.Timeout)
	h := handler.NewHTTPHandler(cfg.Name, cfg.Model, client, cm)
	return &Instance{
		Config:  cfg,
		Backend: client,
		Handler: handler.NewRouter(h, corsCfg),
	}
}

// FromConfig builds one Instance per configured entry.
func FromConfig(cfg *config.Config, cm *manager.ConcurrencyManager) []*Instance {
	instances := make([]*Instance, 0, len(cfg.Instances))
	for _, ic := range cfg.Instances {
		instances = append(instances, New(ic, cfg.CORS, cm))
	}
	return instances
}

// Run listens on the configured address and serves until ctx is done.
func (i *Instance) Run(ctx context.Context) error {
	l, err := net.Listen("tcp", i.Config.ListenAddress)
	if err != nil {
		return fmt.Errorf("instance %s: listen on %s: %w", i.Config.Name, i.Config.ListenAddress, err)
	}
	return i.Serve(ctx, l)
}

// Serve serves on l until ctx is done, then shuts down gracefully.
func (i *Instance) Serve(ctx context.Context, l net.Listener) error {
	server := &http.Server{
		Handler:           i.Handler,
		ReadHeaderTimeout: readHeaderTimeout,
		IdleTimeout:       idleTimeout,
	}

	log.Infof("Starting instance %s on %s (model %s -> %s)", i.Config.Name, l.Addr(), i.Config.Model, i.Backend.URL())
	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Serve(l)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("instance %s: %w", i.Config.Name, err)
	case <-ctx.Done():
	}

	log.Infof("Stopping instance %s", i.Config.Name)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("instance %s: shutdown: %w", i.Config.Name, err)
	}
	<-errCh
	return nil
}

// RunAll runs every instance until ctx is done. If one instance fails the
// others are stopped and the first error is returned.
func RunAll(ctx context.Context, instances []*Instance) error {
	p := pool.New().WithContext(ctx).WithCancelOnError().WithFirstError()
	for _, inst := range instances {
		p.Go(func(ctx context.Context) error {
			return inst.Run(ctx)
		})
	}
	return p.Wait()
}
