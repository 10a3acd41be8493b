package main

import (
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/cuemby/packforge/pkg/cache"
	"github.com/cuemby/packforge/pkg/log"
	"github.com/cuemby/packforge/pkg/orchestrator"
	"github.com/cuemby/packforge/pkg/output"
	"github.com/cuemby/packforge/pkg/packdoc"
)

var (
	Version = "dev"
	Commit  = "unknown"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:     "packforge",
	Short:   "packforge - a Minecraft modpack execution engine",
	Version: Version,
}

func init() {
	rootCmd.SetVersionTemplate(fmt.Sprintf("packforge version %s\nCommit: %s\n", Version, Commit))

	rootCmd.PersistentFlags().String("log-level", "info", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().Bool("log-json", false, "Output logs in JSON format")
	cobra.OnInitialize(initLogging)

	rootCmd.AddCommand(buildCmd)
	rootCmd.AddCommand(validateCmd)
}

func initLogging() {
	logLevel, _ := rootCmd.PersistentFlags().GetString("log-level")
	logJSON, _ := rootCmd.PersistentFlags().GetBool("log-json")

	log.Init(log.Config{
		Level:      log.Level(logLevel),
		JSONOutput: logJSON,
	})
}

var buildCmd = &cobra.Command{
	Use:   "build PACK.yaml",
	Short: "Build a modpack, writing every declared output under --out",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		out, _ := cmd.Flags().GetString("out")
		curseAPIKey, _ := cmd.Flags().GetString("curse-api-key")
		curseProxy, _ := cmd.Flags().GetString("curse-proxy")
		cachePath, _ := cmd.Flags().GetString("cache")

		runLog := log.WithRunID(uuid.NewString())
		runLog.Info().Str("pack", args[0]).Str("out", out).Msg("starting build")

		pack, err := packdoc.Load(args[0])
		if err != nil {
			return err
		}

		cfg := orchestrator.Config{CurseAPIKey: curseAPIKey, CurseProxyURL: curseProxy}
		if cachePath != "" {
			boltCache, err := cache.NewBolt(cachePath)
			if err != nil {
				return fmt.Errorf("open cache: %w", err)
			}
			defer boltCache.Close()
			cfg.Cache = boltCache
		} else {
			cfg.Cache = cache.NewMemory()
		}

		handle, err := orchestrator.Build(pack, cfg)
		if err != nil {
			return fmt.Errorf("build graph: %w", err)
		}

		if err := handle.Container.Run(); err != nil {
			return fmt.Errorf("run graph: %w", err)
		}

		if err := output.Drain(out, handle.Outputs); err != nil {
			return fmt.Errorf("write outputs: %w", err)
		}

		runLog.Info().Int("outputs", len(handle.Outputs)).Msg("build complete")
		fmt.Printf("✓ Wrote %d output file(s) to %s\n", len(handle.Outputs), out)
		return nil
	},
}

var validateCmd = &cobra.Command{
	Use:   "validate PACK.yaml",
	Short: "Build the graph without running it, reporting construction errors",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		curseAPIKey, _ := cmd.Flags().GetString("curse-api-key")
		curseProxy, _ := cmd.Flags().GetString("curse-proxy")

		pack, err := packdoc.Load(args[0])
		if err != nil {
			return err
		}

		handle, err := orchestrator.Build(pack, orchestrator.Config{
			CurseAPIKey:   curseAPIKey,
			CurseProxyURL: curseProxy,
		})
		if err != nil {
			return err
		}

		if err := handle.Container.Cancel(); err != nil {
			return err
		}

		fmt.Printf("✓ %s is valid: %d output(s) wired\n", args[0], len(handle.Outputs))
		return nil
	},
}

func init() {
	buildCmd.Flags().String("out", "./out", "Directory to write output files to")
	buildCmd.Flags().String("curse-api-key", "", "CurseForge API key (mutually exclusive with --curse-proxy)")
	buildCmd.Flags().String("curse-proxy", "", "CurseForge proxy base URL, for deployments without a direct API key")
	buildCmd.Flags().String("cache", "", "Path to a persistent resolve-cache file (in-memory only if unset)")

	validateCmd.Flags().String("curse-api-key", "", "CurseForge API key (mutually exclusive with --curse-proxy)")
	validateCmd.Flags().String("curse-proxy", "", "CurseForge proxy base URL, for deployments without a direct API key")
}
