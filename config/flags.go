package config

import (
	"github.com/spf13/pflag"
)

type CliConfig struct {
	ConfigFile string
	EnvFile    string
	Debug      bool
	Help       bool
	Version    bool
}

// ParseArgs parses command line arguments (without the program name).
func ParseArgs(args []string) (*CliConfig, *pflag.FlagSet, error) {
	cli := &CliConfig{}
	fs := pflag.NewFlagSet("completion-proxy", pflag.ContinueOnError)
	fs.StringVarP(&cli.ConfigFile, "config", "c", "", "Path to the config file")
	fs.StringVar(&cli.EnvFile, "env-file", ".env", "Path to an optional .env file")
	fs.BoolVarP(&cli.Debug, "debug", "d", false, "Enable debug mode")
	fs.BoolVarP(&cli.Version, "version", "v", false, "Print version and exit")
	fs.BoolVarP(&cli.Help, "help", "h", false, "Print usage and exit")
	if err := fs.Parse(args); err != nil {
		return nil, fs, err
	}
	return cli, fs, nil
}
