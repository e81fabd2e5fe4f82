package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os/signal"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sys/unix"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	v1 "github.com/emrgen/grantcore/apis/v1"
	"github.com/emrgen/grantcore/internal/config"
	"github.com/emrgen/grantcore/internal/jobs"
)

// NewGrpcServer creates a grpc server serving the app.
func NewGrpcServer(app *App) (*grpc.Server, *health.Server) {
	grpcServer := grpc.NewServer(grpc.UnaryInterceptor(UnaryServerInterceptor()))

	v1.RegisterCoreServer(grpcServer, NewCore(app.Documents, app.References, app.Corpus, app.Aggregator))

	healthServer := health.NewServer()
	healthServer.SetServingStatus(v1.ServiceName, healthpb.HealthCheckResponse_SERVING)
	healthpb.RegisterHealthServer(grpcServer, healthServer)

	return grpcServer, healthServer
}

// Start runs the grpc server, the metrics endpoint, the scheduled tasks and
// the corpus consumer until SIGINT or SIGTERM.
func Start(cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), unix.SIGTERM, unix.SIGINT)
	defer stop()

	app, err := NewApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer app.Close()

	gl, err := net.Listen("tcp", fmt.Sprintf(":%d", cfg.GRPCPort))
	if err != nil {
		return err
	}

	grpcServer, healthServer := NewGrpcServer(app)

	executor := jobs.NewTaskExecutor(app.Tasks...)
	if err := executor.Start(); err != nil {
		return err
	}
	defer executor.Stop()

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logrus.Infof("starting grpc server on: %s", gl.Addr())
		if err := grpcServer.Serve(gl); err != nil {
			return fmt.Errorf("grpc server: %w", err)
		}
		logrus.Infof("grpc server stopped")
		return nil
	})

	if cfg.MetricsPort != 0 {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		metricsServer := &http.Server{
			Addr:              fmt.Sprintf(":%d", cfg.MetricsPort),
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		}

		g.Go(func() error {
			logrus.Infof("serving metrics on: %s/metrics", metricsServer.Addr)
			if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("metrics server: %w", err)
			}
			return nil
		})
		g.Go(func() error {
			<-ctx.Done()
			shutdown, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return metricsServer.Shutdown(shutdown)
		})
	}

	if app.Consumer != nil {
		g.Go(func() error {
			logrus.Infof("consuming corpus topic %s", cfg.CorpusTopic)
			return app.Consumer.Run(ctx)
		})
	}

	g.Go(func() error {
		<-ctx.Done()
		logrus.Infof("shutting down")
		healthServer.Shutdown()
		grpcServer.GracefulStop()
		return nil
	})

	return g.Wait()
}
