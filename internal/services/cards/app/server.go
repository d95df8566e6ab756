// Package server wires the card issuance runtime: storage, the HTTP API, a
// gRPC health endpoint and artifact retention.
package server

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	grpc_health_v1 "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/louisbranch/cardpress/internal/platform/timeouts"
	httpapi "github.com/louisbranch/cardpress/internal/services/cards/api/http"
	"github.com/louisbranch/cardpress/internal/services/cards/intake"
)

const healthServiceName = "cardpress.v1.Cards"

// Server hosts the HTTP API, gRPC health checks and the cleanup loop.
type Server struct {
	services        *Services
	httpListener    net.Listener
	httpServer      *http.Server
	grpcListener    net.Listener
	grpcServer      *grpc.Server
	health          *health.Server
	cleanupInterval time.Duration
}

// New opens services and binds both listeners.
func New(ctx context.Context, cfg Config) (*Server, error) {
	services, err := OpenServices(ctx, cfg)
	if err != nil {
		return nil, err
	}

	auth, err := buildAuthenticator(cfg)
	if err != nil {
		_ = services.Close()
		return nil, err
	}
	handler, err := httpapi.NewHandler(httpapi.Deps{
		Issuer:         services.Issuer,
		Tokens:         services.Tokens,
		Reporter:       services.Reporter,
		Sessions:       intake.NewSessions(services.Issuer, services.Metrics),
		Photos:         services.Dirs,
		Auth:           auth,
		Gatherer:       services.Gatherer,
		MaxUploadBytes: cfg.MaxUploadBytes,
	})
	if err != nil {
		_ = services.Close()
		return nil, err
	}

	httpListener, err := net.Listen("tcp", cfg.HTTPAddr)
	if err != nil {
		_ = services.Close()
		return nil, fmt.Errorf("listen on %s: %w", cfg.HTTPAddr, err)
	}
	grpcListener, err := net.Listen("tcp", cfg.GRPCAddr)
	if err != nil {
		_ = httpListener.Close()
		_ = services.Close()
		return nil, fmt.Errorf("listen on %s: %w", cfg.GRPCAddr, err)
	}

	grpcServer := grpc.NewServer(grpc.StatsHandler(otelgrpc.NewServerHandler()))
	healthServer := health.NewServer()
	grpc_health_v1.RegisterHealthServer(grpcServer, healthServer)
	healthServer.SetServingStatus("", grpc_health_v1.HealthCheckResponse_SERVING)
	healthServer.SetServingStatus(healthServiceName, grpc_health_v1.HealthCheckResponse_SERVING)

	return &Server{
		services:     services,
		httpListener: httpListener,
		httpServer: &http.Server{
			Handler:           http.TimeoutHandler(handler.Routes(), timeouts.Request, `{"error":"UNKNOWN","message":"request timed out"}`),
			ReadHeaderTimeout: timeouts.ReadHeader,
		},
		grpcListener:    grpcListener,
		grpcServer:      grpcServer,
		health:          healthServer,
		cleanupInterval: cfg.CleanupInterval,
	}, nil
}

func buildAuthenticator(cfg Config) (*httpapi.Authenticator, error) {
	if strings.TrimSpace(cfg.AdminPasswordHash) == "" || strings.TrimSpace(cfg.JWTSecret) == "" {
		log.Printf("admin credentials not configured; admin API disabled")
		return nil, nil
	}
	auth, err := httpapi.NewAuthenticator(httpapi.AuthConfig{
		Username:     cfg.AdminUsername,
		PasswordHash: cfg.AdminPasswordHash,
		Secret:       cfg.JWTSecret,
		TTL:          cfg.AdminTokenTTL,
	})
	if err != nil {
		return nil, fmt.Errorf("configure admin auth: %w", err)
	}
	return auth, nil
}

// HTTPAddr returns the bound HTTP address.
func (s *Server) HTTPAddr() string {
	if s == nil || s.httpListener == nil {
		return ""
	}
	return s.httpListener.Addr().String()
}

// GRPCAddr returns the bound gRPC address.
func (s *Server) GRPCAddr() string {
	if s == nil || s.grpcListener == nil {
		return ""
	}
	return s.grpcListener.Addr().String()
}

// Run creates and serves a server until ctx is cancelled.
func Run(ctx context.Context, cfg Config) error {
	server, err := New(ctx, cfg)
	if err != nil {
		return err
	}
	return server.Serve(ctx)
}

// Serve runs every component until ctx is cancelled or one fails, then
// shuts the rest down.
func (s *Server) Serve(ctx context.Context) error {
	if s == nil {
		return errors.New("server is nil")
	}
	if ctx == nil {
		return errors.New("context is required")
	}
	defer s.Close()

	// One sweep at startup, matching the periodic policy.
	s.services.Janitor.Sweep()

	group, groupCtx := errgroup.WithContext(ctx)
	log.Printf("cards http listening at %v", s.httpListener.Addr())
	log.Printf("cards grpc health listening at %v", s.grpcListener.Addr())

	group.Go(func() error {
		if err := s.httpServer.Serve(s.httpListener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serve http: %w", err)
		}
		return nil
	})
	group.Go(func() error {
		if err := s.grpcServer.Serve(s.grpcListener); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
			return fmt.Errorf("serve gRPC: %w", err)
		}
		return nil
	})
	group.Go(func() error {
		return s.services.Janitor.Run(groupCtx, s.cleanupInterval)
	})
	group.Go(func() error {
		<-groupCtx.Done()
		s.health.Shutdown()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), timeouts.Shutdown)
		defer cancel()
		err := s.httpServer.Shutdown(shutdownCtx)
		s.grpcServer.GracefulStop()
		if err != nil {
			return fmt.Errorf("shutdown http server: %w", err)
		}
		return nil
	})
	return group.Wait()
}

// Close releases server resources.
func (s *Server) Close() {
	if s == nil {
		return
	}
	if s.health != nil {
		s.health.Shutdown()
	}
	if s.grpcServer != nil {
		s.grpcServer.Stop()
	}
	if s.httpServer != nil {
		_ = s.httpServer.Close()
	}
	if s.httpListener != nil {
		_ = s.httpListener.Close()
	}
	if s.grpcListener != nil {
		_ = s.grpcListener.Close()
	}
	if err := s.services.Close(); err != nil {
		log.Printf("close cards store: %v", err)
	}
}
