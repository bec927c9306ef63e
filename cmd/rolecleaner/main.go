// Command rolecleaner runs the role-cleanup stream handler as a Lambda
// function attached to the entity table's stream.
package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/aws/aws-lambda-go/lambda"

	"github.com/jacentio/admix/config"
	"github.com/jacentio/admix/store"
	"github.com/jacentio/admix/stream"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stderr, nil))

	cfg, err := config.Load()
	if err != nil {
		logger.Error("load config", "error", err)
		os.Exit(1)
	}

	awsCfg, err := config.NewAWSConfig(context.Background(), cfg)
	if err != nil {
		logger.Error("load aws config", "error", err)
		os.Exit(1)
	}

	backend := store.New(config.NewDynamoClient(awsCfg, cfg), store.Config{
		TableName: cfg.TableName,
	})

	handler := stream.NewHandler(backend, logger)
	lambda.Start(handler.HandleRoleCleanup)
}
