package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"hgprune/internal/bugzilla"
	"hgprune/internal/hg"
	"hgprune/internal/prune"
)

// version is stamped at build time via -ldflags.
var version = "dev"

var rootCmd = &cobra.Command{
	Use:   "hgprune",
	Short: "hgprune - prune local drafts that already landed in mozilla-central",
	Long: `hgprune finds local Mercurial draft revisions whose bug is resolved on
Bugzilla and whose discussion links the landed mozilla-central changeset,
then interactively prunes them with the landed hash as successor.`,
	Version:       version,
	Args:          cobra.NoArgs,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		if viper.GetBool("verbose") {
			zerolog.SetGlobalLevel(zerolog.DebugLevel)
		} else {
			zerolog.SetGlobalLevel(zerolog.InfoLevel)
		}

		src := hg.New(viper.GetString("path"))
		issues := bugzilla.New(bugzilla.DefaultBaseURL, nil)
		opts := prune.Options{Concurrency: viper.GetInt("concurrency")}
		return prune.Run(cmd.Context(), src, issues, os.Stdin, os.Stdout, opts)
	},
}

func init() {
	rootCmd.Flags().StringP("path", "p", ".", "path to the Mercurial repository")
	rootCmd.Flags().Int("concurrency", prune.DefaultConcurrency, "concurrent Bugzilla lookups during resolution")
	rootCmd.Flags().BoolP("verbose", "v", false, "enable debug logging")

	viper.SetEnvPrefix("HGPRUNE")
	viper.AutomaticEnv()
	for _, name := range []string{"path", "concurrency", "verbose"} {
		if err := viper.BindPFlag(name, rootCmd.Flags().Lookup(name)); err != nil {
			panic(err)
		}
	}
}

func main() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	// Interrupts cancel in-flight work; prunes already applied stay applied.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
