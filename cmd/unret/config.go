package main

import (
	"bytes"
	"io"
	"io/ioutil"

	"github.com/eaburns/unret/ir"
	"github.com/eaburns/unret/unret"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// config is the file form of the pass options.
// Flags given on the command line override it.
type config struct {
	ShareJoins bool   `yaml:"share_joins"`
	NamePrefix string `yaml:"name_prefix"`
}

// loadConfig reads a config file.
// An empty path is the zero config.
func loadConfig(path string) (config, error) {
	if path == "" {
		return config{}, nil
	}
	data, err := ioutil.ReadFile(path)
	if err != nil {
		return config{}, errors.Wrap(err, "failed to read config")
	}
	cfg, err := parseConfig(data)
	if err != nil {
		return config{}, errors.Wrapf(err, "%s", path)
	}
	return cfg, nil
}

func parseConfig(data []byte) (config, error) {
	var cfg config
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && err != io.EOF {
		return config{}, err
	}
	return cfg, nil
}

func (cfg config) pass() unret.Config {
	return unret.Config{
		ShareJoins: cfg.ShareJoins,
		Names:      ir.NewNames(cfg.NamePrefix),
	}
}
