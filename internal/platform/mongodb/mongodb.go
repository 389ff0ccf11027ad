package mongodb

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

// Connect dials MongoDB and verifies the primary is reachable.
func Connect(ctx context.Context, uri string) (*mongo.Client, error) {
	if strings.TrimSpace(uri) == "" {
		return nil, fmt.Errorf("mongodb uri is empty")
	}
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, err
	}
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}
	return client, nil
}

// Disconnect closes the client within a bounded time.
func Disconnect(client *mongo.Client) {
	if client == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = client.Disconnect(ctx)
}

// ConnectOptional dials MongoDB and logs instead of failing so callers can
// fall back to in-memory adapters.
func ConnectOptional(ctx context.Context, uri string, logger *slog.Logger) (*mongo.Client, func()) {
	if logger == nil {
		logger = slog.Default()
	}
	client, err := Connect(ctx, uri)
	if err != nil {
		logger.Warn("failed to connect to mongodb, falling back to in-memory adapters", slog.String("error", err.Error()))
		return nil, func() {}
	}
	logger.Info("mongodb connection established")
	return client, func() { Disconnect(client) }
}
