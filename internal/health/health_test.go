package health

import (
	"context"
	"errors"
	"net"
	"testing"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/test/bufconn"
)

type fakeDB struct{ err error }

func (f fakeDB) Ping(context.Context) error { return f.err }

func startServer(t *testing.T, db Pinger, aiEnabled bool) healthpb.HealthClient {
	t.Helper()

	lis := bufconn.Listen(1 << 20)
	srv := NewServer(db, aiEnabled, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.ServeListener(ctx, lis) }()
	t.Cleanup(func() {
		cancel()
		select {
		case <-done:
		case <-time.After(5 * time.Second):
			t.Error("health server did not stop")
		}
	})

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	if err != nil {
		t.Fatalf("NewClient failed: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	return healthpb.NewHealthClient(conn)
}

func check(t *testing.T, client healthpb.HealthClient, service string) healthpb.HealthCheckResponse_ServingStatus {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	resp, err := client.Check(ctx, &healthpb.HealthCheckRequest{Service: service})
	if err != nil {
		t.Fatalf("Check(%q) failed: %v", service, err)
	}
	return resp.GetStatus()
}

func TestHealthServing(t *testing.T) {
	t.Parallel()
	client := startServer(t, fakeDB{}, true)

	if got := check(t, client, ""); got != healthpb.HealthCheckResponse_SERVING {
		t.Errorf("overall = %v", got)
	}
	if got := check(t, client, AgentService); got != healthpb.HealthCheckResponse_SERVING {
		t.Errorf("agent = %v", got)
	}
}

func TestAgentNotServingWithoutCredential(t *testing.T) {
	t.Parallel()
	client := startServer(t, fakeDB{}, false)

	if got := check(t, client, ""); got != healthpb.HealthCheckResponse_SERVING {
		t.Errorf("overall = %v", got)
	}
	if got := check(t, client, AgentService); got != healthpb.HealthCheckResponse_NOT_SERVING {
		t.Errorf("agent = %v, want NOT_SERVING", got)
	}
}

func TestDatabaseDownIsNotServing(t *testing.T) {
	t.Parallel()
	client := startServer(t, fakeDB{err: errors.New("closed")}, true)

	if got := check(t, client, ""); got != healthpb.HealthCheckResponse_NOT_SERVING {
		t.Errorf("overall = %v, want NOT_SERVING", got)
	}
	if got := check(t, client, AgentService); got != healthpb.HealthCheckResponse_NOT_SERVING {
		t.Errorf("agent = %v, want NOT_SERVING", got)
	}
}
