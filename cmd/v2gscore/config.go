package main

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// configKeys is the full set of keys the tool reads. set rejects
// anything else so typos do not end up as dead entries in the file.
var configKeys = map[string]string{
	"api_key": "prediction API key (or V2GSCORE_API_KEY)",
	"api_url": "prediction API base URL",
}

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage v2gscore configuration",
		Long:  "Show, get, or set configuration values. Config is stored in ~/.v2gscore.yaml.",
		Example: `  v2gscore config                  # show all config
  v2gscore config set api_key KEY  # set the prediction API key
  v2gscore config get api_url      # get a value`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConfigShow()
		},
	}

	cmd.AddCommand(newConfigSetCmd())
	cmd.AddCommand(newConfigGetCmd())

	return cmd
}

func newConfigSetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set <key> <value>",
		Short: "Set a configuration value",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConfigSet(args[0], args[1])
		},
	}
}

func newConfigGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <key>",
		Short: "Get a configuration value",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConfigGet(args[0])
		},
	}
}

func sortedConfigKeys() []string {
	keys := make([]string, 0, len(configKeys))
	for k := range configKeys {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func runConfigShow() error {
	for _, key := range sortedConfigKeys() {
		if !viper.IsSet(key) {
			fmt.Printf("# %s: unset (%s)\n", key, configKeys[key])
			continue
		}
		fmt.Printf("%s: %s\n", key, displayValue(key, viper.GetString(key)))
	}
	return nil
}

func runConfigSet(key, value string) error {
	if _, ok := configKeys[key]; !ok {
		return fmt.Errorf("unknown config key %q (known: %s)",
			key, strings.Join(sortedConfigKeys(), ", "))
	}
	viper.Set(key, value)

	cfgFile := viper.ConfigFileUsed()
	if cfgFile == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return fmt.Errorf("cannot determine home directory: %w", err)
		}
		cfgFile = filepath.Join(home, ".v2gscore.yaml")
	}

	if err := viper.WriteConfigAs(cfgFile); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}

	fmt.Printf("Set %s = %s in %s\n", key, displayValue(key, value), cfgFile)
	return nil
}

func runConfigGet(key string) error {
	if _, ok := configKeys[key]; !ok {
		return fmt.Errorf("unknown config key %q (known: %s)",
			key, strings.Join(sortedConfigKeys(), ", "))
	}
	if !viper.IsSet(key) {
		return fmt.Errorf("key %q is not set", key)
	}
	fmt.Println(viper.GetString(key))
	return nil
}

// displayValue masks secrets in informational output. config get still
// prints the real value so shell substitution works.
func displayValue(key, value string) string {
	if key != "api_key" || len(value) == 0 {
		return value
	}
	if len(value) <= 4 {
		return "****"
	}
	return value[:4] + strings.Repeat("*", len(value)-4)
}
