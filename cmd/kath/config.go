package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/Strexas/kath/internal/gnomad"
	"github.com/Strexas/kath/internal/liftover"
	"github.com/Strexas/kath/internal/lovd"
)

const configName = ".kath"

// kathDir returns ~/.kath, where downloads and caches live by default.
func kathDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".kath"
	}
	return filepath.Join(home, ".kath")
}

func setDefaults() {
	viper.SetDefault("chromosome", "6")
	viper.SetDefault("lovd.hg19_column", lovd.HG19Column)
	viper.SetDefault("lovd.hg38_column", lovd.HG38Column)
	viper.SetDefault("gnomad.id_column", gnomad.IDColumn)
	viper.SetDefault("gnomad.api_url", gnomad.DefaultAPIURL)
	viper.SetDefault("liftover.source", "chain")
	viper.SetDefault("liftover.chain", filepath.Join(kathDir(), chainFileName))
	viper.SetDefault("liftover.cache", filepath.Join(kathDir(), "liftover"))
	viper.SetDefault("liftover.ensembl_url", liftover.DefaultEnsemblURL)
	viper.SetDefault("liftover.timeout", "30s")
	viper.SetDefault("liftover.retries", 3)
	viper.SetDefault("store.path", filepath.Join(kathDir(), "kath.duckdb"))
	viper.SetDefault("log.level", "info")
}

// initConfig reads ~/.kath.yaml when present and maps KATH_* environment
// variables onto keys (KATH_LIFTOVER_SOURCE for liftover.source).
func initConfig() error {
	setDefaults()
	if home, err := os.UserHomeDir(); err == nil {
		viper.AddConfigPath(home)
	}
	viper.SetConfigName(configName)
	viper.SetConfigType("yaml")
	viper.SetEnvPrefix("KATH")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return fmt.Errorf("reading config: %w", err)
		}
	}
	return nil
}

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage kath configuration",
		Long:  "Show, get, or set configuration values. Config is stored in ~/.kath.yaml.",
		Example: `  kath config                                # show all config
  kath config set liftover.source ensembl    # lift over through the Ensembl REST API
  kath config get chromosome                 # get a value`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConfigShow()
		},
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show all configuration values",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConfigShow()
		},
	})
	cmd.AddCommand(newConfigSetCmd())
	cmd.AddCommand(newConfigGetCmd())

	return cmd
}

func newConfigSetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set <key> <value>",
		Short: "Set a configuration value",
		Args:  exactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConfigSet(args[0], args[1])
		},
	}
}

func newConfigGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <key>",
		Short: "Get a configuration value",
		Args:  exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConfigGet(args[0])
		},
	}
}

func runConfigShow() error {
	out, err := yaml.Marshal(viper.AllSettings())
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if used := viper.ConfigFileUsed(); used != "" {
		fmt.Printf("# Config file: %s\n", used)
	} else {
		fmt.Println("# No config file; showing defaults. Config file: ~/.kath.yaml")
	}
	fmt.Print(string(out))
	return nil
}

func runConfigSet(key, value string) error {
	switch value {
	case "true", "yes", "on":
		viper.Set(key, true)
	case "false", "no", "off":
		viper.Set(key, false)
	default:
		viper.Set(key, value)
	}

	cfgFile := viper.ConfigFileUsed()
	if cfgFile == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return fmt.Errorf("cannot determine home directory: %w", err)
		}
		cfgFile = filepath.Join(home, configName+".yaml")
	}

	if err := viper.WriteConfigAs(cfgFile); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}

	fmt.Printf("Set %s = %s in %s\n", key, value, cfgFile)
	return nil
}

func runConfigGet(key string) error {
	val := viper.Get(key)
	if val == nil {
		return fmt.Errorf("key %q is not set", key)
	}
	fmt.Println(val)
	return nil
}
