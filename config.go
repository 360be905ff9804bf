package main

import (
	"encoding/json"
	"os"

	"github.com/pkg/errors"
)

// Config holds a server's configuration.
type Config struct {
	// Hostname is the server's name. It appears as the source of every
	// server-originated message and doubles as the listen host.
	Hostname string `json:"hostname"`

	Port int `json:"port"`

	// Netname names the network this server claims to be part of.
	Netname string `json:"netname"`

	Info string `json:"info"`

	// MOTD may span multiple lines, separated by \n.
	MOTD string `json:"motd"`

	Opers []Oper `json:"opers"`

	// Server names we accept SERVER registrations from.
	AllowedLinks []string `json:"allowed_links"`
}

// Oper is one operator credential pair.
type Oper struct {
	Name string `json:"name"`
	Pw   string `json:"pw"`
}

// loadConfig reads the configuration file and checks its values are
// present and in an acceptable format.
func loadConfig(file string) (*Config, error) {
	buf, err := os.ReadFile(file)
	if err != nil {
		return nil, errors.Wrap(err, "unable to read config")
	}

	cfg := &Config{}
	if err := json.Unmarshal(buf, cfg); err != nil {
		return nil, errors.Wrap(err, "unable to parse config")
	}

	if err := cfg.check(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// check validates the configuration.
func (c *Config) check() error {
	if len(c.Hostname) == 0 {
		return errors.New("you must specify a hostname")
	}

	if c.Port <= 0 || c.Port > 65535 {
		return errors.Errorf("invalid port: %d", c.Port)
	}

	if len(c.Netname) == 0 {
		return errors.New("you must specify a netname")
	}

	if len(c.Info) == 0 {
		return errors.New("you must specify server info")
	}

	if len(c.MOTD) == 0 {
		return errors.New("you must specify an motd")
	}

	for _, oper := range c.Opers {
		if len(oper.Name) == 0 || len(oper.Pw) == 0 {
			return errors.New("operators must have both a name and a password")
		}
	}

	for _, link := range c.AllowedLinks {
		if len(link) == 0 {
			return errors.New("allowed links must not be blank")
		}
	}

	return nil
}
