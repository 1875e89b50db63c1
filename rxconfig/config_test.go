// Copyright (c) 2015-2021 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package rxconfig

import "testing"

func TestDefaultValidates(t *testing.T) {
	for _, net := range []string{"mainnet", "testnet", "regnet"} {
		cfg := Default(net)
		if err := cfg.Validate(); err != nil {
			t.Fatalf("Default(%q) failed Validate: %v", net, err)
		}
		if _, err := cfg.Params(); err != nil {
			t.Fatalf("Default(%q).Params(): %v", net, err)
		}
	}
}

func TestValidateRejectsBadNetwork(t *testing.T) {
	cfg := Default("mainnet")
	cfg.Network = "nonesuch"
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected an unknown network to fail validation")
	}
}

func TestValidateRejectsNonPositiveFields(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
	}{
		{"iothreads", func(c *Config) { c.IOThreads = 0 }},
		{"maxoutbound", func(c *Config) { c.MaxOutbound = 0 }},
		{"maxinbound", func(c *Config) { c.MaxInbound = -1 }},
		{"connectinterval", func(c *Config) { c.ConnectInterval = 0 }},
		{"maintenanceinterval", func(c *Config) { c.MaintenanceInterval = 0 }},
		{"randomxvmcachesize", func(c *Config) { c.RandomXVMCacheSize = 0 }},
		{"suspiciousreorgdepth", func(c *Config) { c.SuspiciousReorgDepth = 0 }},
	}
	for _, tt := range tests {
		cfg := Default("mainnet")
		tt.mutate(&cfg)
		if err := cfg.Validate(); err == nil {
			t.Errorf("%s: expected Validate to reject the mutated field", tt.name)
		}
	}
}

func TestDefaultPortsDifferPerNetwork(t *testing.T) {
	main := Default("mainnet").ListenPort
	test := Default("testnet").ListenPort
	reg := Default("regnet").ListenPort
	if main == test || main == reg || test == reg {
		t.Fatalf("expected distinct default ports, got mainnet=%d testnet=%d regnet=%d", main, test, reg)
	}
}
