// Copyright 2021 Google Inc. All Rights Reserved.
// This file is available under the Apache license.

// Package config reads default settings for the pl0 command from a TOML
// file.
package config

import (
	"flag"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/golang/glog"
	"github.com/pkg/errors"
)

// Config holds the settings a file may supply.  Unset fields leave the
// command line defaults alone.
type Config struct {
	Color           *string `toml:"color"` // always, never or auto
	StackSize       *int    `toml:"stack_size"`
	Prompt          *string `toml:"prompt"`
	Trace           *bool   `toml:"trace"`
	CompileOnly     *bool   `toml:"compile_only"`
	Verbose         *bool   `toml:"verbose"`
	MetricsTextfile *string `toml:"metrics_textfile"`
	JaegerEndpoint  *string `toml:"jaeger_endpoint"`

	Dump  Dump  `toml:"dump"`
	Watch Watch `toml:"watch"`
}

// Dump selects the listings printed while compiling.
type Dump struct {
	Source    *bool `toml:"source"`
	Tokens    *bool `toml:"tokens"`
	Symbols   *bool `toml:"symbols"`
	Code      *bool `toml:"code"`
	ParseTree *bool `toml:"parse_tree"`
}

// Watch configures the -watch mode.
type Watch struct {
	Debounce     *time.Duration `toml:"debounce"`
	PollInterval *time.Duration `toml:"poll_interval"`
}

// Load reads the configuration file at path.  Unknown keys are an error, so
// that a misspelt setting is not silently ignored.
func Load(path string) (*Config, error) {
	c := &Config{}
	md, err := toml.DecodeFile(path, c)
	if err != nil {
		return nil, errors.Wrapf(err, "parse error in %s", path)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, 0, len(undecoded))
		for _, k := range undecoded {
			keys = append(keys, k.String())
		}
		return nil, errors.Errorf("%s: unknown settings %s", path, strings.Join(keys, ", "))
	}
	glog.V(1).Infof("loaded configuration from %s", path)
	return c, nil
}

// Flags returns the settings in c as flag values, keyed by flag name.
func (c *Config) Flags() map[string]string {
	m := make(map[string]string)
	str := func(name string, v *string) {
		if v != nil {
			m[name] = *v
		}
	}
	boolean := func(name string, v *bool) {
		if v != nil {
			m[name] = strconv.FormatBool(*v)
		}
	}
	duration := func(name string, v *time.Duration) {
		if v != nil {
			m[name] = v.String()
		}
	}
	str("color", c.Color)
	if c.StackSize != nil {
		m["stack_size"] = strconv.Itoa(*c.StackSize)
	}
	str("prompt", c.Prompt)
	boolean("trace", c.Trace)
	boolean("compile_only", c.CompileOnly)
	boolean("verbose", c.Verbose)
	str("metrics_textfile", c.MetricsTextfile)
	str("jaeger_endpoint", c.JaegerEndpoint)
	boolean("source", c.Dump.Source)
	boolean("tokens", c.Dump.Tokens)
	boolean("symbols", c.Dump.Symbols)
	boolean("code", c.Dump.Code)
	boolean("parse_tree", c.Dump.ParseTree)
	duration("watch_debounce", c.Watch.Debounce)
	duration("watch_poll_interval", c.Watch.PollInterval)
	return m
}

// Apply sets the flags in fs from c, except those given explicitly on the
// command line.  fs must already be parsed.
func (c *Config) Apply(fs *flag.FlagSet) error {
	explicit := make(map[string]bool)
	fs.Visit(func(f *flag.Flag) { explicit[f.Name] = true })
	values := c.Flags()
	names := make([]string, 0, len(values))
	for name := range values {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if explicit[name] {
			glog.V(1).Infof("flag -%s overrides the configuration file", name)
			continue
		}
		if fs.Lookup(name) == nil {
			return errors.Errorf("configuration sets unknown flag %q", name)
		}
		if err := fs.Set(name, values[name]); err != nil {
			return errors.Wrapf(err, "configuration value for %s", name)
		}
	}
	return nil
}
