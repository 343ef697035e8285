package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/vietddude/swapmatch/internal/core/domain"
	"github.com/vietddude/swapmatch/internal/infra/storage/postgres"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Probe the running service and show offer counts by status",
	Run:   runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) {
	cfg, err := loadConfig()
	if err != nil {
		slog.Error("Failed to load config", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	fmt.Printf("service:\t%s\n", probeHealth(ctx, cfg.Server.GRPCPort))

	if cfg.Database.URL == "" {
		fmt.Println("database:\tnot configured")
		return
	}

	db, err := postgres.NewDB(ctx, cfg.Database)
	if err != nil {
		slog.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer func() {
		_ = db.Close()
	}()

	counts, err := postgres.NewOfferRepo(db).CountByStatus(ctx)
	if err != nil {
		slog.Error("Failed to count offers", "error", err)
		os.Exit(1)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', tabwriter.Debug)
	_, _ = fmt.Fprintln(w, "STATUS\tOFFERS")

	total := 0
	for _, status := range []domain.OfferStatus{
		domain.OfferStatusPending,
		domain.OfferStatusAccepted,
		domain.OfferStatusRejected,
		domain.OfferStatusCancelled,
		domain.OfferStatusCompleted,
	} {
		_, _ = fmt.Fprintf(w, "%s\t%d\n", status, counts[status])
		total += counts[status]
	}
	_, _ = fmt.Fprintf(w, "total\t%d\n", total)
	_ = w.Flush()
}

// probeHealth checks the gRPC health endpoint of a running instance.
func probeHealth(ctx context.Context, grpcPort int) string {
	conn, err := grpc.NewClient(
		fmt.Sprintf("localhost:%d", grpcPort),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	if err != nil {
		return fmt.Sprintf("unreachable (%v)", err)
	}
	defer func() {
		_ = conn.Close()
	}()

	resp, err := healthpb.NewHealthClient(conn).Check(ctx, &healthpb.HealthCheckRequest{})
	if err != nil {
		return "not running"
	}
	return resp.Status.String()
}
