package main

import (
	"flag"
	"path/filepath"

	"github.com/pkg/errors"
)

// getConfigPath reads the command line: a single flag naming the
// configuration file.
func getConfigPath() (string, error) {
	configFile := flag.String("config", "config.json", "Configuration file.")

	flag.Parse()

	path, err := filepath.Abs(*configFile)
	if err != nil {
		return "", errors.Wrapf(err,
			"unable to determine absolute path to config file: %s", *configFile)
	}

	return path, nil
}
