package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	spellarvault "github.com/boydwold/spellar-vault"
)

var (
	verbose   bool
	vaultPath string
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "spellar-vault",
	Short: "Turn Spellar meeting webhooks into Obsidian notes",
	Long: `spellar-vault receives meeting webhooks from Spellar and writes a summary
note, a transcript note, a daily log entry and the recording into an
Obsidian vault. Settings come from the environment (OBSIDIAN_VAULT_PATH, PORT, ...).`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		level := slog.LevelInfo
		if verbose {
			level = slog.LevelDebug
		}

		opts := &slog.HandlerOptions{
			Level: level,
		}
		logger := slog.New(slog.NewTextHandler(os.Stderr, opts))
		slog.SetDefault(logger)
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main().
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().StringVar(&vaultPath, "vault", "", "Vault path (overrides OBSIDIAN_VAULT_PATH)")
}

// loadConfig reads the environment. Without --vault and with a configured
// vault that does not exist, the vault enclosing the working directory is used.
func loadConfig() (spellarvault.Config, error) {
	cfg, err := spellarvault.LoadConfig()
	if err != nil {
		return cfg, err
	}
	if vaultPath != "" {
		cfg.VaultPath = vaultPath
		return cfg, nil
	}
	if _, err := os.Stat(cfg.VaultPath); err == nil {
		return cfg, nil
	}
	if wd, err := os.Getwd(); err == nil {
		if root, err := spellarvault.FindVault(wd); err == nil {
			slog.Debug("using enclosing vault", "path", root)
			cfg.VaultPath = root
		}
	}
	return cfg, nil
}

func newService(cfg spellarvault.Config, opts ...spellarvault.Option) *spellarvault.Service {
	opts = append([]spellarvault.Option{spellarvault.WithLogger(slog.Default())}, opts...)
	svc, err := spellarvault.New(cfg, opts...)
	if err != nil {
		fatal("Error initializing service", err)
	}
	return svc
}
