// Command flora-lambda serves the flower-ordering agent behind API Gateway.
package main

import (
	"context"
	"log"
	"os"

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/joho/godotenv"

	"github.com/tailored-agentic-units/flora/kernel"
	"github.com/tailored-agentic-units/flora/serverless"
	"github.com/tailored-agentic-units/flora/session"
)

const defaultTable = "FloraAgentChatHistory"

func main() {
	_ = godotenv.Load()

	cfg, err := kernel.LoadConfig(os.Getenv("FLORA_CONFIG"))
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// DynamoDB transcripts unless another backend is configured.
	if os.Getenv(kernel.EnvPrefix+"_SESSION_BACKEND") == "" && cfg.Session.Backend == session.BackendMemory {
		cfg.Session.Backend = session.BackendDynamoDB
	}
	if cfg.Session.Table == "" {
		cfg.Session.Table = envOr("DYNAMODB_TABLE", defaultTable)
	}

	ctx := context.Background()
	k, err := kernel.New(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to create kernel: %v", err)
	}
	defer k.Close()

	handler := serverless.New(k, k.Observer())
	lambda.StartWithOptions(handler.Handle, lambda.WithContext(ctx))
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
