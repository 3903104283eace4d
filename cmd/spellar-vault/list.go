package main

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

var (
	listJSON   bool
	filterType string
)

var listCmd = &cobra.Command{
	Use:   "list [pattern]",
	Short: "List notes in the vault",
	Long: `Lists Markdown files in the vault. The optional pattern uses doublestar
syntax relative to the vault root, e.g. "Meeting Notes/2024-03-*.md".`,
	Args: cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := loadConfig()
		if err != nil {
			fatal("Error loading configuration", err)
		}

		pattern := ""
		if len(args) == 1 {
			pattern = args[0]
		}

		svc := newService(cfg)
		entries, err := svc.Vault.List(context.Background(), pattern)
		if err != nil {
			fatal("Error listing notes", err)
		}

		filtered := entries[:0]
		for _, e := range entries {
			if filterType != "" && e.Type != filterType {
				continue
			}
			filtered = append(filtered, e)
		}

		out := cmd.OutOrStdout()
		if listJSON {
			encoder := json.NewEncoder(out)
			encoder.SetIndent("", "  ")
			if err := encoder.Encode(filtered); err != nil {
				fatal("Error encoding JSON", err)
			}
			return
		}

		for _, e := range filtered {
			title := ""
			if e.Title != "" {
				title = fmt.Sprintf("- %s", e.Title)
			}
			fmt.Fprintf(out, "%s %s\n", e.Path, title)
		}
	},
}

func init() {
	rootCmd.AddCommand(listCmd)
	listCmd.Flags().BoolVar(&listJSON, "json", false, "Output in JSON format")
	listCmd.Flags().StringVar(&filterType, "type", "", "Filter notes by front matter type (e.g. meeting-note, daily-note)")
}
