// Copyright (c) 2015-2021 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package rxconfig defines the process-wide options every other package in
// this module is parameterized by. It does not parse them: flag syntax,
// config-file discovery and the CLI itself are out of scope (spec.md §1),
// so Config only exists to be filled in by a caller and range-checked
// before anything downstream trusts it.
package rxconfig

import (
	"fmt"

	"github.com/rxchain-project/rxchaind/chaincfg"
)

// Config holds every process-wide option spec.md §6.4 names. Struct tags
// follow github.com/jessevdk/go-flags conventions so a CLI layer can parse
// directly into this type without this package importing the flags
// library itself.
type Config struct {
	Network string `long:"network" description:"Network to connect to: mainnet, testnet, or regnet" default:"mainnet"`

	ListenPort    uint16 `long:"listenport" description:"Port to listen for peer connections on"`
	ListenEnabled bool   `long:"listen" description:"Accept inbound peer connections"`

	DataDir string `long:"datadir" description:"Directory to store block index and chain state"`

	IOThreads int `long:"iothreads" description:"Number of worker goroutines for disk and network I/O"`

	MaxOutbound int `long:"maxoutbound" description:"Maximum number of outbound peer connections"`
	MaxInbound  int `long:"maxinbound" description:"Maximum number of inbound peer connections"`

	ConnectInterval     int `long:"connectinterval" description:"Seconds between outbound connection attempts"`
	MaintenanceInterval int `long:"maintenanceinterval" description:"Seconds between peer-set maintenance passes (eviction review, discourage-list decay)"`

	RandomXFastMode    bool `long:"randomxfastmode" description:"Use RandomX's larger, faster dataset instead of the light-mode cache"`
	RandomXVMCacheSize int  `long:"randomxvmcachesize" description:"Number of RandomX VM instances to keep warm across epochs"`

	SuspiciousReorgDepth int32 `long:"suspiciousreorgdepth" description:"Reorg depth past which ActivateBestChain refuses and reports SuspiciousReorg instead of switching"`
}

// Default returns a Config populated with conservative defaults for the
// named network.
func Default(network string) Config {
	return Config{
		Network:              network,
		ListenPort:           defaultPortFor(network),
		ListenEnabled:        true,
		DataDir:              "rxchaind",
		IOThreads:            4,
		MaxOutbound:          8,
		MaxInbound:           125,
		ConnectInterval:      30,
		MaintenanceInterval:  60,
		RandomXFastMode:      false,
		RandomXVMCacheSize:   2,
		SuspiciousReorgDepth: 100,
	}
}

func defaultPortFor(network string) uint16 {
	switch network {
	case "testnet":
		return 19108
	case "regnet":
		return 19208
	default:
		return 9108
	}
}

// Validate range-checks every integer field per spec.md §6.3 ("All
// integer inputs to the core must be range-checked by the caller"). It
// does not touch the filesystem or network; DataDir existence and
// ListenPort availability are the caller's concern.
func (c Config) Validate() error {
	if _, err := c.Params(); err != nil {
		return err
	}
	if c.IOThreads <= 0 {
		return fmt.Errorf("iothreads must be positive, got %d", c.IOThreads)
	}
	if c.MaxOutbound <= 0 {
		return fmt.Errorf("maxoutbound must be positive, got %d", c.MaxOutbound)
	}
	if c.MaxInbound < 0 {
		return fmt.Errorf("maxinbound must not be negative, got %d", c.MaxInbound)
	}
	if c.ConnectInterval <= 0 {
		return fmt.Errorf("connectinterval must be positive, got %d", c.ConnectInterval)
	}
	if c.MaintenanceInterval <= 0 {
		return fmt.Errorf("maintenanceinterval must be positive, got %d", c.MaintenanceInterval)
	}
	if c.RandomXVMCacheSize <= 0 {
		return fmt.Errorf("randomxvmcachesize must be positive, got %d", c.RandomXVMCacheSize)
	}
	if c.SuspiciousReorgDepth <= 0 {
		return fmt.Errorf("suspiciousreorgdepth must be positive, got %d", c.SuspiciousReorgDepth)
	}
	return nil
}

// Params resolves Network to the matching chaincfg.Params, the form every
// consensus package actually consumes.
func (c Config) Params() (*chaincfg.Params, error) {
	switch c.Network {
	case "mainnet":
		return chaincfg.MainNetParams(), nil
	case "testnet":
		return chaincfg.TestNetParams(), nil
	case "regnet":
		return chaincfg.RegNetParams(), nil
	default:
		return nil, fmt.Errorf("unknown network %q", c.Network)
	}
}
