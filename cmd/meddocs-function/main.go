package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"sync"

	gcs "cloud.google.com/go/storage"
	"github.com/GoogleCloudPlatform/functions-framework-go/functions"
	cloudevents "github.com/cloudevents/sdk-go/v2"

	"github.com/joseph-ayodele/meddocs/internal/app"
	"github.com/joseph-ayodele/meddocs/internal/cloudfn"
	"github.com/joseph-ayodele/meddocs/internal/common"
	"github.com/joseph-ayodele/meddocs/internal/server"
	"github.com/joseph-ayodele/meddocs/internal/storage"
)

var (
	handler *cloudfn.Handler
	once    sync.Once
	initErr error
)

func init() {
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, nil)))

	functions.CloudEvent("ProcessDocument", processDocument)
}

// main is required by the Go Functions Framework.
func main() {}

func processDocument(ctx context.Context, e cloudevents.Event) error {
	once.Do(func() {
		handler, initErr = newHandler(context.Background())
	})
	if initErr != nil {
		slog.Error("Critical error during function initialization", "error", initErr)
		return initErr
	}
	return handler.HandleEvent(ctx, e)
}

// newHandler builds the clients once per instance. They live for the
// lifetime of the instance and are never closed.
func newHandler(ctx context.Context) (*cloudfn.Handler, error) {
	cfg := common.LoadConfig()
	if os.Getenv("DB_DRIVER") == "" {
		cfg.Database.Driver = "firestore"
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.Database.Driver == "firestore" && cfg.Generative.ProjectID == "" {
		return nil, errors.New("GCP_PROJECT is required for the firestore store")
	}
	logger := common.NewLogger(cfg.Logging.Level, "json", os.Stdout)

	client, err := gcs.NewClient(ctx)
	if err != nil {
		return nil, err
	}
	st, err := server.ConnectStore(ctx, cfg, logger)
	if err != nil {
		client.Close()
		return nil, err
	}
	pipe, err := app.BuildPipeline(ctx, cfg, nil, logger)
	if err != nil {
		st.Close()
		client.Close()
		return nil, err
	}
	proc := app.NewProcessor(cfg, pipe.Assembler, st.Documents, app.NewPublisher(cfg.Events, nil, logger), nil, logger)

	download := func(ctx context.Context, bucket, object, dst string) (int64, error) {
		return storage.Download(ctx, client, bucket, object, dst)
	}
	return cloudfn.NewHandler(proc, download, cfg.Server.InboxPatientID, logger), nil
}
