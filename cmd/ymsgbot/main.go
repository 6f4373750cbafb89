// Copyright 2026 The Mellium Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

// The ymsgbot command logs in to Yahoo! Messenger and replies to messages
// with the same contents.
//
// For more information try running:
//
//	ymsgbot --help
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"github.com/btcsuite/go-socks/socks"
	flags "github.com/jessevdk/go-flags"
	"github.com/jrick/logrotate/rotator"
	"github.com/rs/zerolog"

	"mellium.im/ymsg"
	"mellium.im/ymsg/privacy"
	"mellium.im/ymsg/roster/ldb"
)

const (
	logRotateKB = 10 * 1024
	logMaxRolls = 3
)

func main() {
	cfg, err := loadConfig(os.Args[1:])
	if err != nil {
		var ferr *flags.Error
		if errors.As(err, &ferr) && ferr.Type == flags.ErrHelp {
			fmt.Fprintln(os.Stdout, err)
			return
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()
	if err := run(ctx, cfg); err != nil && !errors.Is(err, context.Canceled) {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config) error {
	var out io.Writer = zerolog.ConsoleWriter{Out: os.Stderr}
	if cfg.LogFile != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.LogFile), 0700); err != nil {
			return err
		}
		r, err := rotator.New(cfg.LogFile, logRotateKB, false, logMaxRolls)
		if err != nil {
			return fmt.Errorf("failed to create file rotator: %w", err)
		}
		defer r.Close()
		out = r
	}
	level, _ := zerolog.ParseLevel(strings.ToLower(cfg.LogLevel))
	logger := zerolog.New(out).Level(level).With().Timestamp().Str("user", cfg.User).Logger()

	deny := &privacy.List{}
	deny.Deny(cfg.Deny...)

	b := newBot(logger)
	opts := []ymsg.Option{
		ymsg.Logger(logger),
		ymsg.UseSink(b),
		ymsg.Privacy(deny),
		ymsg.P2P(cfg.P2P, cfg.P2PPort),
	}
	if cfg.Pager != "" {
		opts = append(opts, ymsg.PagerHost(cfg.Pager))
	}
	if cfg.Proxy != "" {
		opts = append(opts, ymsg.Proxy(&socks.Proxy{
			Addr:     cfg.Proxy,
			Username: cfg.ProxyUser,
			Password: cfg.ProxyPass,
		}))
	}
	if cfg.Invisible {
		opts = append(opts, ymsg.Invisible())
	}
	if cfg.RosterDB != "" {
		store, err := ldb.Open(cfg.RosterDB, logger)
		if err != nil {
			return err
		}
		defer func() {
			if err := store.Close(); err != nil {
				logger.Warn().Err(err).Msg("closing roster database")
			}
		}()
		opts = append(opts, ymsg.Store(store))
	}

	s, err := ymsg.Login(ctx, cfg.User, cfg.Pass, opts...)
	if err != nil {
		return fmt.Errorf("error logging in: %w", err)
	}
	b.attach(s)
	logger.Info().Uint32("session", s.SessionID()).Msg("logged in")

	defer func() {
		if err := s.Close(); err != nil {
			logger.Warn().Err(err).Msg("closing session")
		}
	}()
	return s.Serve(ctx)
}
