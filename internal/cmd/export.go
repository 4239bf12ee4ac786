package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"vigilore/internal/bank"
	"vigilore/internal/config"
	"vigilore/internal/repository"
	"vigilore/internal/service"
)

// NewExportCommand regenerates the export bundle for a stored session
// without going through the HTTP API.
func NewExportCommand() *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "export <session-id>",
		Short: "Export a stored interview session to JSON",
		Long: `Loads a persisted interview session from MongoDB, rebuilds its scored
export bundle and writes it to a file (or stdout with -o -).`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sessionID := args[0]
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()

			cfg, err := config.LoadConfig()
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}
			registry, err := bank.Load()
			if err != nil {
				return fmt.Errorf("loading question banks: %w", err)
			}

			mongoClient, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.MongoURI))
			if err != nil {
				return fmt.Errorf("connecting to MongoDB: %w", err)
			}
			defer mongoClient.Disconnect(ctx)
			if err := mongoClient.Ping(ctx, nil); err != nil {
				return fmt.Errorf("pinging MongoDB: %w", err)
			}

			sessionStore := repository.NewSessionRepository(mongoClient, cfg.MongoDatabase)
			exportStore := repository.NewExportRepository(mongoClient, cfg.MongoDatabase)

			aiSvc := service.NewAIService(config.DefaultAIConfig())
			interviews := service.NewInterviewService(registry, sessionStore, nil, nil, aiSvc, nil)
			exports := service.NewExportService(interviews, aiSvc, exportStore, nil)

			export, err := exports.Export(ctx, sessionID)
			if err != nil {
				return err
			}

			data, err := json.MarshalIndent(export, "", "  ")
			if err != nil {
				return err
			}

			if output == "-" {
				_, err = cmd.OutOrStdout().Write(append(data, '\n'))
				return err
			}
			if output == "" {
				output = fmt.Sprintf("interview_export_%s.json", sessionID)
			}
			if err := os.WriteFile(output, data, 0o644); err != nil {
				return err
			}
			color.New(color.FgGreen).Fprintf(cmd.OutOrStdout(), "[SAVED] %s\n", output)
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default interview_export_<id>.json, - for stdout)")
	return cmd
}
