// Copyright (c) 2015-2021 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package addrmgr

import (
	"net"

	"github.com/rxchain-project/rxchaind/chaincfg"
)

// BootstrapFromDNSSeeds resolves every DNS seed named in params and pushes
// the results into the new table, using the chain's default port (spec.md
// §4.10: "If the address book is empty at startup, resolve each
// configured DNS seed, push results into new, using the chain's default
// port."). Callers are expected to check Manager.IsEmpty first.
func (m *Manager) BootstrapFromDNSSeeds(params *chaincfg.Params) error {
	for _, seed := range params.DNSSeeds {
		ips, err := net.LookupHost(seed.Host)
		if err != nil {
			log.Warnf("DNS seed %s lookup failed: %v", seed.Host, err)
			continue
		}
		for _, ip := range ips {
			addr := net.JoinHostPort(ip, params.DefaultPort)
			if err := m.AddAddress(addr); err != nil {
				return err
			}
		}
		log.Infof("DNS seed %s returned %d addresses", seed.Host, len(ips))
	}
	return nil
}
