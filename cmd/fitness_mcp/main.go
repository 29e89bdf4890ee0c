// Package main runs the fitnesstracker MCP server over stdio, for local MCP
// clients. The same tools are mounted on the main service at /mcp over HTTP
// when mcp_enabled is set.
package main

import (
	"context"
	"flag"
	"os"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	log "github.com/sirupsen/logrus"

	"github.com/2beens/fitnesstracker/internal"
	"github.com/2beens/fitnesstracker/internal/config"
	"github.com/2beens/fitnesstracker/internal/ingest"
	fitnessmcp "github.com/2beens/fitnesstracker/internal/mcp"
	"github.com/2beens/fitnesstracker/internal/workouts"
)

func main() {
	env := flag.String("env", "development", "environment [prod | production | dev | development]")
	configPath := flag.String("config", "./config.toml", "path to TOML config file")
	flag.Parse()

	// stdout carries the MCP stream
	log.SetOutput(os.Stderr)

	cfg, err := config.Load(*env, *configPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	ctx := context.Background()
	store, dbPool, err := internal.OpenStore(ctx, internal.OpenStoreParams{
		Config:           cfg,
		PostgresPassword: os.Getenv("FITNESS_POSTGRES_PASS"),
	})
	if err != nil {
		log.Fatalf("open store: %v", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			log.Errorf("close store: %s", err)
		}
		if dbPool != nil {
			dbPool.Close()
		}
	}()

	server := fitnessmcp.NewServer(ingest.NewPRRepo(store), workouts.NewRepo(store))
	if err := server.Run(ctx, &mcp.StdioTransport{}); err != nil {
		log.Errorf("mcp server: %s", err)
	}
}
