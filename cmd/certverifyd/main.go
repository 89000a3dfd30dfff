package main

import (
	"context"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/viper"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	"google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	"github.com/joseph-ayodele/certverify/internal/app"
	"github.com/joseph-ayodele/certverify/internal/common"
	svc "github.com/joseph-ayodele/certverify/internal/server"
)

func main() {
	cfg := common.LoadConfig(viper.New())
	logger := common.NewLogger(os.Stdout, cfg.Log)
	slog.SetDefault(logger)

	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to start", "error", err)
		os.Exit(1)
	}
	defer a.Close()

	lis, err := net.Listen("tcp", cfg.Server.GRPCAddr)
	if err != nil {
		logger.Error("failed to listen on address", "addr", cfg.Server.GRPCAddr, "error", err)
		os.Exit(1)
	}
	grpcServer := grpc.NewServer(grpc.UnaryInterceptor(svc.UnaryInterceptor(logger)))

	certificateService, err := svc.NewCertificateServer(a.Analyzer, a.Exporter, logger)
	if err != nil {
		logger.Error("failed to build certificate service", "error", err)
		os.Exit(1)
	}
	svc.RegisterCertificateServiceServer(grpcServer, certificateService)

	healthServer := health.NewServer()
	grpc_health_v1.RegisterHealthServer(grpcServer, healthServer)
	monitor := svc.NewHealthMonitor(healthServer, a.DB, 3*time.Second, logger)
	go monitor.Run(ctx, 30*time.Second)

	// Reflection for grpcurl
	reflection.Register(grpcServer)

	logger.Info("certverifyd listening", "addr", cfg.Server.GRPCAddr, "db_driver", cfg.Database.Driver)
	go func() {
		if err := grpcServer.Serve(lis); err != nil {
			slog.Error("gRPC serve error", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")
	healthServer.Shutdown()
	grpcServer.GracefulStop()
}
