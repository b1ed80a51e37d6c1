// Copyright (c) 2024 The phnd developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package phndcfg loads node configuration from CLI flags, environment
// variables, and an INI config file, in the precedence order and
// jessevdk/go-flags style dcrd's own config.go uses.
package phndcfg

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	flags "github.com/jessevdk/go-flags"
)

// Options is the flag/env/ini-addressable configuration surface.
type Options struct {
	NodeHost           string  `long:"nodehost" env:"NODE_HOST" default:"127.0.0.1" description:"address to bind the HTTP transport to"`
	NodePort           int     `long:"nodeport" env:"NODE_PORT" default:"8545" description:"port to bind the HTTP transport to"`
	Peers              string  `long:"peers" env:"PEERS" description:"comma-separated initial peer URLs"`
	Difficulty         int     `long:"difficulty" env:"DIFFICULTY" default:"3" description:"seed difficulty, clamped to [1,10]; parsed but not applied: the chain's difficulty schedule ignores it"`
	StartingReward     float64 `long:"startingreward" env:"STARTING_BLOCK_REWARD" default:"50" description:"initial block reward"`
	HalvingInterval    uint64  `long:"halvinginterval" env:"HALVING_INTERVAL" default:"1800000" description:"block-height delta between halvings"`
	MinTxFee           float64 `long:"mintxfee" env:"MIN_TX_FEE" default:"0.01" description:"floor on user-transaction fee"`
	TotalSupply        float64 `long:"totalsupply" env:"TOTAL_SUPPLY" default:"1000000000" description:"total issuance; 10%% goes to owner in genesis"`
	OwnerFile          string  `long:"ownerfile" env:"OWNER_FILE" default:"owner.json" description:"path to owner keypair+address"`
	LMDBDir            string  `long:"lmdbdir" env:"LMDB_DIR" default:"phnd.db" description:"embedded store file path"`
	LogFile            string  `long:"logfile" default:"phnd.log" description:"log file path"`
	DebugLevel         string  `long:"debuglevel" default:"info" description:"logging level"`
	ConfigFile         string  `short:"C" long:"configfile" description:"path to phnd.conf"`
}

func defaultConfigPath() string {
	return filepath.Join(".", "phnd.conf")
}

func clampDifficulty(d int) int {
	if d < 1 {
		return 1
	}
	if d > 10 {
		return 10
	}
	return d
}

// Load parses Options from the config file (if present), environment,
// and CLI flags, in that precedence order (later sources override
// earlier ones, matching go-flags' own IniParser + flags.Parse
// sequencing).
func Load(args []string) (*Options, error) {
	opts := &Options{}
	parser := flags.NewParser(opts, flags.Default)

	preCfg := &Options{}
	preParser := flags.NewParser(preCfg, flags.IgnoreUnknown)
	if _, err := preParser.ParseArgs(args); err != nil {
		return nil, err
	}

	cfgPath := preCfg.ConfigFile
	if cfgPath == "" {
		cfgPath = defaultConfigPath()
	}
	if _, err := os.Stat(cfgPath); err == nil {
		iniParser := flags.NewIniParser(parser)
		if err := iniParser.ParseFile(cfgPath); err != nil {
			return nil, fmt.Errorf("phndcfg: parse %s: %w", cfgPath, err)
		}
	}

	if _, err := parser.ParseArgs(args); err != nil {
		return nil, err
	}

	opts.Difficulty = clampDifficulty(opts.Difficulty)
	return opts, nil
}

// PeerList splits the comma-separated Peers option.
func (o *Options) PeerList() []string {
	if o.Peers == "" {
		return nil
	}
	var out []string
	start := 0
	for i := 0; i <= len(o.Peers); i++ {
		if i == len(o.Peers) || o.Peers[i] == ',' {
			if i > start {
				out = append(out, o.Peers[start:i])
			}
			start = i + 1
		}
	}
	return out
}

// Addr returns the "host:port" the HTTP transport should bind to.
func (o *Options) Addr() string {
	return o.NodeHost + ":" + strconv.Itoa(o.NodePort)
}
