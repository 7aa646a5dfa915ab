package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"nano-rpc/config"
	"nano-rpc/example/math"
	"nano-rpc/middleware"
	"nano-rpc/registry"
	"nano-rpc/server"
	"nano-rpc/service"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the math protocol over framed TCP and/or HTTP",
	Long:  longServe,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := setup()
		if err != nil {
			return err
		}
		defer logger.Sync()

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()
		return serve(ctx, cfg, logger)
	},
}

func init() {
	serveCmd.Flags().String("listen", "127.0.0.1:11223", "framed TCP address, empty to disable")
	serveCmd.Flags().String("http", "", "JSON-RPC over HTTP address, empty to disable")
	serveCmd.Flags().String("advertise", "", "address registered in etcd (default: --listen)")
	serveCmd.Flags().Float64("rate", 0, "requests per second, 0 for unlimited")
	serveCmd.Flags().Int("burst", 100, "rate limiter burst")
	serveCmd.Flags().Duration("timeout", 10*time.Second, "per-request timeout")

	bindFlags(serveCmd, map[string]string{
		"listen":    "listen",
		"http_addr": "http",
		"advertise": "advertise",
		"rate":      "rate",
		"burst":     "burst",
		"timeout":   "timeout",
	})
}

func middlewares(cfg *config.Config, logger *zap.Logger) []middleware.Middleware {
	mws := []middleware.Middleware{
		middleware.Recover(logger),
		middleware.Logging(logger),
	}
	if cfg.Rate > 0 {
		mws = append(mws, middleware.RateLimit(cfg.Rate, cfg.Burst))
	}
	if cfg.Timeout > 0 {
		mws = append(mws, middleware.Timeout(cfg.Timeout))
	}
	return mws
}

func serve(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	if cfg.Listen == "" && cfg.HTTPAddr == "" {
		return errors.New("nothing to serve: set --listen or --http")
	}
	var svc service.Service = math.NewService()
	errc := make(chan error, 2)

	var framed *server.Server
	if cfg.Listen != "" {
		opts := []server.Option{server.WithLogger(logger)}
		if len(cfg.EtcdEndpoints) > 0 {
			reg, err := registry.NewEtcdRegistry(cfg.EtcdEndpoints, registry.WithLogger(logger))
			if err != nil {
				return err
			}
			defer reg.Close()
			opts = append(opts, server.WithRegistry(reg, cfg.Service, cfg.Advertise, cfg.TTL))
		}
		framed = server.NewServer(svc, opts...)
		for _, mw := range middlewares(cfg, logger) {
			framed.Use(mw)
		}
		go func() { errc <- framed.ListenAndServe("tcp", cfg.Listen) }()
	}

	var httpSrv *http.Server
	if cfg.HTTPAddr != "" {
		handler := server.HTTPHandler(middleware.Apply(svc, middlewares(cfg, logger)...), logger)
		httpSrv = &http.Server{Addr: cfg.HTTPAddr, Handler: handler, ReadHeaderTimeout: 5 * time.Second}
		go func() {
			logger.Info("serving http", zap.String("addr", cfg.HTTPAddr))
			if err := httpSrv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
				errc <- err
				return
			}
			errc <- nil
		}()
	}

	var err error
	select {
	case <-ctx.Done():
		logger.Info("shutting down")
	case err = <-errc:
	}

	if framed != nil {
		if serr := framed.Shutdown(5 * time.Second); serr != nil && !errors.Is(serr, server.ErrServerClosed) {
			logger.Warn("shutdown", zap.Error(serr))
		}
	}
	if httpSrv != nil {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if serr := httpSrv.Shutdown(sctx); serr != nil {
			logger.Warn("http shutdown", zap.Error(serr))
		}
	}
	return err
}

var longServe = `
Serve the math protocol (add, mult, maybe_fail).

Examples:
  # framed TCP on the default address
  nanorpc serve

  # framed TCP registered in etcd, plus HTTP
  nanorpc serve --listen :11223 --advertise 10.0.0.5:11223 --etcd 127.0.0.1:2379 --http :8080
`
