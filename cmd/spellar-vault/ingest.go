package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/boydwold/spellar-vault/pkg/ingest"
)

var (
	ingestContentType string
	ingestJSON        bool
)

var ingestCmd = &cobra.Command{
	Use:   "ingest <file|->",
	Short: "Process a saved webhook payload without the server",
	Long: `Replays a webhook body through the same pipeline the server uses and
waits for it to finish. Use "-" to read the payload from stdin.`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := loadConfig()
		if err != nil {
			fatal("Error loading configuration", err)
		}

		body, err := readPayload(cmd, args[0])
		if err != nil {
			fatal("Error reading payload", err)
		}

		contentType := ingestContentType
		if contentType == "" {
			contentType = "application/json"
		}
		fields, err := ingest.Extract(body, contentType)
		if err != nil {
			fatal("Error extracting payload", err)
		}

		svc := newService(cfg)
		res, err := svc.Processor.Process(context.Background(), fields)
		if err != nil {
			fatal("Error processing meeting", err)
		}

		out := cmd.OutOrStdout()
		if ingestJSON {
			encoder := json.NewEncoder(out)
			encoder.SetIndent("", "  ")
			if err := encoder.Encode(map[string]any{
				"stem":      res.Stem,
				"paths":     res.Paths,
				"daily_log": res.DailyLog,
				"audio":     res.Audio,
			}); err != nil {
				fatal("Error encoding JSON", err)
			}
			return
		}

		for _, p := range res.Paths {
			fmt.Fprintf(out, "wrote %s\n", p)
		}
		fmt.Fprintf(out, "daily log: %s\n", res.DailyLog)
		fmt.Fprintf(out, "audio: %s\n", res.Audio)
	},
}

func readPayload(cmd *cobra.Command, name string) ([]byte, error) {
	if name == "-" {
		return io.ReadAll(cmd.InOrStdin())
	}
	if ingestContentType == "" && !strings.EqualFold(filepath.Ext(name), ".json") {
		return nil, fmt.Errorf("%s: use --content-type for non-JSON payloads", name)
	}
	return os.ReadFile(name)
}

func init() {
	rootCmd.AddCommand(ingestCmd)
	ingestCmd.Flags().StringVar(&ingestContentType, "content-type", "", "Content-Type of the payload (default application/json)")
	ingestCmd.Flags().BoolVar(&ingestJSON, "json", false, "Output in JSON format")
}
