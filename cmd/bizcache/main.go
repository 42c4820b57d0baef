// Package main is the entry point for bizcache.
package main

import (
	"context"
	"os"
	"path/filepath"

	"github.com/charmbracelet/fang/v2"
	"github.com/spf13/cobra"

	"github.com/omarluq/bizcache/internal/version"
)

const appName = "bizcache"

var defaultConfigFiles = []string{"bizcache.yaml", "bizcache.yml", "bizcache.toml"}

var (
	cfgFile string
	debug   bool
)

var rootCmd = &cobra.Command{
	Use:   appName,
	Short: "Dual-tier business data cache",
	Long: `bizcache serves a shared cache tier (Redis, Olric or in-process) with an
in-process fallback that takes over while the shared tier is unreachable.
It exposes cache statistics, invalidation and Prometheus metrics over HTTP
and can front an upstream API with a caching gateway.`,
	SilenceUsage: true,
}

func init() {
	// Global flags available to all subcommands
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "",
		"config file path (default: ./bizcache.yaml or ~/.config/bizcache/bizcache.yaml)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")
}

func main() {
	if err := fang.Execute(context.Background(), rootCmd, fang.WithVersion(version.Short())); err != nil {
		os.Exit(1)
	}
}

// configPath returns --config, else the first default config file found.
// An empty result means defaults plus BIZCACHE_* environment overrides.
func configPath() string {
	if cfgFile != "" {
		return cfgFile
	}
	wd, err := os.Getwd()
	if err != nil {
		wd = "."
	}
	home, err := os.UserHomeDir()
	if err != nil {
		home = ""
	}
	return findConfigIn(wd, home)
}

// findConfigIn looks for a default config file in dir, then in
// home/.config/bizcache.
func findConfigIn(dir, home string) string {
	dirs := []string{dir}
	if home != "" {
		dirs = append(dirs, filepath.Join(home, ".config", appName))
	}
	for _, d := range dirs {
		for _, name := range defaultConfigFiles {
			p := filepath.Join(d, name)
			if _, err := os.Stat(p); err == nil {
				return p
			}
		}
	}
	return ""
}
