package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/Hunter5Thompson/Alpha-01/internal/bootstrap"
	"github.com/Hunter5Thompson/Alpha-01/internal/config"
	"github.com/Hunter5Thompson/Alpha-01/internal/dto"
	"github.com/Hunter5Thompson/Alpha-01/pkg/database"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var version = "0.1.0"

func main() {
	root := &cobra.Command{
		Use:     "ragctl",
		Short:   "Ingest documents and ask grounded questions from the terminal",
		Version: version,
	}

	root.AddCommand(ingestCmd())
	root.AddCommand(askCmd())
	root.AddCommand(composeCmd())

	if err := root.Execute(); err != nil {
		color.Red("Error: %v", err)
		os.Exit(1)
	}
}

// newContainer wires the full pipeline the same way the REST server does,
// minus the HTTP layer.
func newContainer() (*bootstrap.Container, error) {
	cfg := config.Load()
	db, err := database.NewGormDBFromDSN(cfg.Database.Connection)
	if err != nil {
		return nil, fmt.Errorf("cannot connect to database: %w", err)
	}
	return bootstrap.NewContainer(db, cfg), nil
}

func ingestCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ingest <file-or-directory>...",
		Short: "Chunk, embed and store documents",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := newContainer()
			if err != nil {
				return err
			}

			ctx := context.Background()
			for _, path := range args {
				info, err := os.Stat(path)
				if err != nil {
					return err
				}

				if info.IsDir() {
					batch, err := c.IngestService.IngestDirectory(ctx, path)
					if err != nil {
						return err
					}
					for _, r := range batch.Results {
						printIngestResult(r)
					}
					continue
				}

				res, err := c.IngestService.IngestFile(ctx, path)
				if err != nil {
					if res != nil {
						printIngestResult(*res)
					}
					return err
				}
				printIngestResult(*res)
			}
			return nil
		},
	}
}

func printIngestResult(r dto.IngestResult) {
	if r.State == dto.IngestStored {
		color.Green("stored  %s (%d chunks)", r.DocId, r.ChunkCount)
		return
	}
	color.Red("failed  %s at %s: %s", r.DocId, r.Stage, r.Reason)
}

func askCmd() *cobra.Command {
	var k, topN int

	cmd := &cobra.Command{
		Use:   "ask <question>",
		Short: "Answer a question from the stored documents",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := newContainer()
			if err != nil {
				return err
			}

			question := strings.Join(args, " ")
			res, err := c.QueryService.Ask(context.Background(), &dto.AskRequest{
				Question: question,
				K:        k,
				TopN:     topN,
			})
			if err != nil {
				return err
			}

			fmt.Println(res.Answer)
			if len(res.Citations) > 0 {
				fmt.Println()
				color.Cyan("Sources:")
				for _, cit := range res.Citations {
					color.Cyan("  [%s#%d]", cit.DocId, cit.ChunkId)
				}
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&k, "k", 0, "number of retrieval candidates (default from config)")
	cmd.Flags().IntVar(&topN, "top-n", 0, "number of reranked context chunks (default from config)")
	return cmd
}

func composeCmd() *cobra.Command {
	var sections []string

	cmd := &cobra.Command{
		Use:   "compose <topic>",
		Short: "Compose a multi-section document grounded in the stored chunks",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := newContainer()
			if err != nil {
				return err
			}

			topic := strings.Join(args, " ")
			res, err := c.Writer.Compose(context.Background(), topic, sections)
			if err != nil {
				return err
			}

			fmt.Println(res.Document)
			return nil
		},
	}

	cmd.Flags().StringSliceVar(&sections, "section", nil, "section title (repeatable)")
	return cmd
}
