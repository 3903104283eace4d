package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	spellarvault "github.com/boydwold/spellar-vault"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number of spellar-vault",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "spellar-vault version %s\n", strings.TrimSpace(spellarvault.Version))
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
