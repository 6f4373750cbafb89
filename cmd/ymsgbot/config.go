// Copyright 2026 The Mellium Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

package main

import (
	"fmt"
	"os"
	"strings"

	flags "github.com/jessevdk/go-flags"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

/* #nosec */
const envPass = "YMSG_PASS"

// config is the bot configuration.
// Values are read from an optional INI file and then from the command line,
// which takes precedence.
type config struct {
	ConfigFile string   `short:"C" long:"configfile" description:"Path to an INI configuration file"`
	User       string   `short:"u" long:"user" description:"Yahoo! ID to log in as"`
	Pass       string   `short:"p" long:"pass" description:"Password (defaults to $YMSG_PASS)"`
	Pager      string   `long:"pager" description:"Pager host used for server discovery"`
	Proxy      string   `long:"proxy" description:"Connect through a SOCKS5 proxy (host:port)"`
	ProxyUser  string   `long:"proxyuser" description:"Username for the proxy"`
	ProxyPass  string   `long:"proxypass" default-mask:"-" description:"Password for the proxy"`
	LogFile    string   `long:"logfile" description:"Write logs to a rotating file instead of stderr"`
	LogLevel   string   `long:"loglevel" default:"info" description:"One of trace, debug, info, warn, error"`
	P2P        bool     `long:"p2p" description:"Accept and offer direct connections"`
	P2PPort    int      `long:"p2pport" description:"Port for direct connections"`
	RosterDB   string   `long:"roster-db" description:"Path of a database that keeps the contact list between runs"`
	Invisible  bool     `long:"invisible" description:"Log in without appearing online"`
	Deny       []string `long:"deny" description:"Ignore a Yahoo! ID (may be repeated)"`
}

// loadConfig parses args, reading the configuration file named by
// --configfile first.
// A help request is reported as a *flags.Error with type flags.ErrHelp.
func loadConfig(args []string) (*config, error) {
	preCfg := config{}
	preParser := flags.NewParser(&preCfg, flags.Default&^flags.PrintErrors)
	if _, err := preParser.ParseArgs(args); err != nil {
		return nil, err
	}

	cfg := config{}
	parser := flags.NewParser(&cfg, flags.Default&^flags.PrintErrors)
	if preCfg.ConfigFile != "" {
		err := flags.NewIniParser(parser).ParseFile(preCfg.ConfigFile)
		if err != nil {
			return nil, errors.Wrap(err, "parsing config file")
		}
	}

	// Parse command line options again to ensure they take precedence.
	if _, err := parser.ParseArgs(args); err != nil {
		return nil, err
	}

	if cfg.Pass == "" {
		cfg.Pass = os.Getenv(envPass)
	}
	if cfg.User == "" {
		return nil, errors.New("no user specified, use --user")
	}
	if cfg.Pass == "" {
		return nil, fmt.Errorf("no password specified, use --pass or set $%s", envPass)
	}
	if _, err := zerolog.ParseLevel(strings.ToLower(cfg.LogLevel)); err != nil {
		return nil, errors.Wrapf(err, "invalid log level %q", cfg.LogLevel)
	}
	return &cfg, nil
}
