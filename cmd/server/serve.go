package main

import (
	"context"
	"flag"
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/subcommands"
	grpclib "google.golang.org/grpc"
	"google.golang.org/grpc/reflection"

	grpcadapter "github.com/simaogato/papertrade-backend/internal/adapter/grpc"
	"github.com/simaogato/papertrade-backend/internal/adapter/web"
	"github.com/simaogato/papertrade-backend/internal/logger"
)

const shutdownTimeout = 10 * time.Second

type serveCmd struct {
	noSimulator bool
}

func (*serveCmd) Name() string     { return "serve" }
func (*serveCmd) Synopsis() string { return "run the gRPC API, the HTTP quote feed and the market simulator" }
func (*serveCmd) Usage() string {
	return `serve [-no-simulator]

  Starts the trading gRPC service, the read-only HTTP API with its websocket
  quote feed and the market simulator. Stops gracefully on SIGINT or SIGTERM.
`
}

func (c *serveCmd) SetFlags(f *flag.FlagSet) {
	f.BoolVar(&c.noSimulator, "no-simulator", false, "Serve a frozen market without price ticks.")
}

func (c *serveCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	a, err := newApp(ctx, *configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	defer a.Close()

	if err := c.run(ctx, a); err != nil {
		a.Logger.Errorf("%v", err)
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}

func (c *serveCmd) run(ctx context.Context, a *app) error {
	cfg := a.Config

	// gRPC server with logging, token check and identity extraction
	grpcServer := grpclib.NewServer(
		grpclib.ChainUnaryInterceptor(
			grpcadapter.LoggingInterceptor(a.Logger),
			grpcadapter.AuthInterceptor(cfg.APIToken),
			grpcadapter.IdentityInterceptor(),
		),
	)
	grpcadapter.RegisterTradingServiceServer(grpcServer, grpcadapter.NewServer(a.Catalog, a.Ledger, a.Dashboard))
	reflection.Register(grpcServer)

	lis, err := net.Listen("tcp", cfg.GRPCAddr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", cfg.GRPCAddr, err)
	}

	if !c.noSimulator {
		if err := a.Simulator.Start(ctx); err != nil {
			_ = lis.Close()
			return err
		}
	}

	// HTTP read API and quote feed
	webServer := web.NewServer(a.Catalog, a.Dashboard, a.Logger, cfg.LogLevel == string(logger.Debug))
	a.Catalog.Subscribe(webServer.Publish)
	go webServer.Run(ctx)

	errCh := make(chan error, 2)
	go func() {
		a.Logger.Infof("gRPC server listening on %s", cfg.GRPCAddr)
		if err := grpcServer.Serve(lis); err != nil {
			errCh <- fmt.Errorf("failed to serve gRPC server: %w", err)
		}
	}()
	go func() {
		if err := webServer.Start(cfg.HTTPAddr); err != nil {
			errCh <- fmt.Errorf("failed to serve HTTP server: %w", err)
		}
	}()

	var runErr error
	select {
	case <-ctx.Done():
		a.Logger.Infof("shutting down gracefully")
	case runErr = <-errCh:
	}

	// Graceful shutdown: stop price ticks first so the last save completes
	if !c.noSimulator {
		_ = a.Simulator.Stop()
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := webServer.Shutdown(shutdownCtx); err != nil {
		a.Logger.Warnf("HTTP shutdown: %v", err)
	}
	grpcServer.GracefulStop()
	a.Logger.Infof("servers stopped")

	return runErr
}
