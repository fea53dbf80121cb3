package config

import (
	"os"

	"github.com/spf13/pflag"
)

const defaultPath = "config.yaml"

// ResolvePath picks the config file from --config, then CONFIG_PATH, then config.yaml.
func ResolvePath(name string, args []string) (string, error) {
	fs := pflag.NewFlagSet(name, pflag.ContinueOnError)
	path := fs.StringP("config", "c", "", "path to the YAML config file")
	if err := fs.Parse(args); err != nil {
		return "", err
	}

	if *path != "" {
		return *path, nil
	}
	if env := os.Getenv("CONFIG_PATH"); env != "" {
		return env, nil
	}
	return defaultPath, nil
}

// Load reads the config of the named binary from the path picked by
// ResolvePath over the process arguments.
func Load(name string) (*Config, error) {
	return load(name, os.Args[1:])
}

func load(name string, args []string) (*Config, error) {
	path, err := ResolvePath(name, args)
	if err != nil {
		return nil, err
	}
	return LoadConfig(path)
}
