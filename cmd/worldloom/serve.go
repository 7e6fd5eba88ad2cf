package main

import (
	"context"
	"os"
	"os/signal"

	sdk "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/spf13/cobra"

	"worldloom/internal/domain"
	"worldloom/internal/mcp"
)

func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the MCP server over stdio",
		Args:  cobra.NoArgs,
		RunE:  runServe,
	}
	return cmd
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger := newLogger(cfg.LogLevel)

	d, err := domain.Load(cfg)
	if err != nil {
		return err
	}

	db, err := openStore(ctx, cfg.Database.DSN)
	if err != nil {
		return err
	}
	defer db.Close(context.WithoutCancel(ctx))

	logger.Info("mcp server starting", "domain", d.Name, "version", version)
	server := mcp.NewServer(d.Schema, db, version)
	return server.Run(ctx, &sdk.StdioTransport{})
}
