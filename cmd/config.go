package cmd

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"github.com/zmrishh/moneyai/internal/config"
	"github.com/zmrishh/moneyai/internal/output"
)

// validConfigKeys lists the supported config keys for set/get.
var validConfigKeys = []string{
	"currency",
	"gateway.url",
	"backend.url",
	"json",
}

func isValidConfigKey(key string) bool {
	for _, k := range validConfigKeys {
		if k == key {
			return true
		}
	}
	return false
}

func parseBool(val string) (bool, error) {
	switch strings.ToLower(val) {
	case "true", "1":
		return true, nil
	case "false", "0":
		return false, nil
	default:
		return false, fmt.Errorf("invalid bool value %q (use true/false/1/0)", val)
	}
}

var configCmd = &cobra.Command{
	Use:     "config",
	Short:   "Manage moneyai configuration",
	GroupID: "system",
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a config value",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		key, val := args[0], args[1]

		if !isValidConfigKey(key) {
			output.Error("unknown config key: %s", key)
			fmt.Println("Valid keys:", strings.Join(validConfigKeys, ", "))
			return fmt.Errorf("unknown config key: %s", key)
		}

		baseDir := getBaseDir()

		var err error
		switch key {
		case "currency":
			err = config.SetCurrency(baseDir, val)
		case "gateway.url":
			err = config.SetGatewayURL(baseDir, val)
		case "backend.url":
			err = config.SetBackendURL(baseDir, val)
		case "json":
			b, perr := parseBool(val)
			if perr != nil {
				output.Error("%v", perr)
				return perr
			}
			err = config.SetJSONOutput(baseDir, b)
		}
		if err != nil {
			output.Error("save config: %v", err)
			return err
		}

		output.Success("set %s = %s", key, val)
		return nil
	},
}

var configGetCmd = &cobra.Command{
	Use:   "get <key>",
	Short: "Get a config value",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		key := args[0]

		if !isValidConfigKey(key) {
			output.Error("unknown config key: %s", key)
			fmt.Println("Valid keys:", strings.Join(validConfigKeys, ", "))
			return fmt.Errorf("unknown config key: %s", key)
		}

		baseDir := getBaseDir()

		cfg, err := config.Load(baseDir)
		if err != nil {
			output.Error("load config: %v", err)
			return err
		}

		var val string
		switch key {
		case "currency":
			val = cfg.Currency
			if val == "" {
				val = "INR (default)"
			}
		case "gateway.url":
			val = cfg.GatewayURL
			if val == "" {
				val = config.DefaultGatewayURL + " (default)"
			}
		case "backend.url":
			val = cfg.BackendURL
			if val == "" {
				val = config.DefaultBackendURL + " (default)"
			}
		case "json":
			val = strconv.FormatBool(cfg.JSONOutput)
		}

		fmt.Println(val)
		return nil
	},
}

var configListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all config values",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(getBaseDir())
		if err != nil {
			output.Error("load config: %v", err)
			return err
		}

		// Never dump the auth token to the terminal.
		cfg.AuthToken = ""

		data, err := json.MarshalIndent(cfg, "", "  ")
		if err != nil {
			output.Error("marshal config: %v", err)
			return err
		}

		fmt.Println(string(data))
		return nil
	},
}

func init() {
	configCmd.AddCommand(configSetCmd)
	configCmd.AddCommand(configGetCmd)
	configCmd.AddCommand(configListCmd)
	rootCmd.AddCommand(configCmd)
}
