package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"go.klb.dev/reclip/internal/control"
	"go.klb.dev/reclip/internal/ipc"
	"go.klb.dev/reclip/internal/logging"
)

// bindViper wires a command's flags into a viper instance with the standard
// config file search order and RECLIP_* env var prefix.
//
// Precedence (lowest → highest): defaults → config file → RECLIP_* env vars → flags
func bindViper(cmd *cobra.Command, v *viper.Viper) error {
	configFlag, _ := cmd.Flags().GetString("config")
	if configFlag != "" {
		v.SetConfigFile(configFlag)
	} else {
		v.SetConfigName("reclip")
		v.SetConfigType("toml")
		v.AddConfigPath("/etc/reclip/")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".config", "reclip"))
		}
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return fmt.Errorf("config: %w", err)
		}
	}

	v.SetEnvPrefix("RECLIP")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if err := v.BindPFlags(cmd.Flags()); err != nil {
		return fmt.Errorf("binding flags: %w", err)
	}
	return nil
}

// addLoggingFlags adds the standard logging flags to a command.
func addLoggingFlags(cmd *cobra.Command) {
	cmd.Flags().Bool("no-background", false, "run interactively: tinter logs + debug level")
	cmd.Flags().String("log-format", "auto", "log format: auto|text|json")
	cmd.Flags().String("log-level", "", "log level: debug|info|warn|error (default: info for service, debug for interactive)")
}

// addConfigFlag adds the --config flag to a command.
func addConfigFlag(cmd *cobra.Command) {
	cmd.Flags().String("config", "", "path to config file (overrides auto-discovery)")
}

// addSocketFlag adds the --socket flag to a command.
func addSocketFlag(cmd *cobra.Command) {
	cmd.Flags().String("socket", ipc.SocketPath(), "daemon control socket")
}

// setupLogging reads logging flags from viper and configures slog.
func setupLogging(v *viper.Viper) {
	interactive := v.GetBool("no-background") || logging.IsTTY(os.Stderr)
	logging.Resolve(interactive, v.GetString("log-format"), v.GetString("log-level"))
}

// configDir is $XDG_CONFIG_HOME/reclip or the platform equivalent.
func configDir() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ".reclip"
	}
	return filepath.Join(dir, "reclip")
}

func defaultTemplatesDir() string { return filepath.Join(configDir(), "templates") }
func defaultDataDir() string      { return configDir() }

// dialDaemon connects to a running daemon or explains that none is running.
func dialDaemon(v *viper.Viper) (*control.Client, error) {
	socket := v.GetString("socket")
	if !ipc.IsRunning(socket) {
		return nil, fmt.Errorf("no reclip daemon is listening on %s (start one with \"reclip run\")", socket)
	}
	return control.Dial(socket)
}

func rpcContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), 5*time.Second)
}

func fmtAge(t time.Time) string {
	age := time.Since(t).Round(time.Second)
	if age < time.Minute {
		return fmt.Sprintf("%ds ago", int(age.Seconds()))
	}
	if age < time.Hour {
		return fmt.Sprintf("%dm ago", int(age.Minutes()))
	}
	return t.Format("2006-01-02 15:04")
}
