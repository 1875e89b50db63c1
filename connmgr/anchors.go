// Copyright (c) 2015-2021 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package connmgr

import (
	"encoding/json"
	"net"
	"os"
	"strconv"
	"strings"

	"github.com/rxchain-project/rxchaind/rxerr"
)

func itoa(b byte) string { return strconv.Itoa(int(b)) }

// maxAnchors is the number of outbound block-relay-only peers saved on
// shutdown and redialed first on startup (spec.md §4.8 "Anchors").
const maxAnchors = 2

// maxAnchorOutboundSlots bounds how many of the configured outbound slots
// anchors are allowed to consume, so a node with very few outbound slots
// doesn't dedicate all of them to anchor reconnection.
const maxAnchorOutboundSlots = 2

type anchorFile struct {
	Addrs []string `json:"addrs"`
}

// LoadAnchors reads the anchor addresses saved by a previous SaveAnchors
// call, deduplicated to at most one per distinct /16 subnet so a restart
// can't be steered into redialing an eclipse attacker's whole range.
func LoadAnchors(path string) ([]string, error) {
	raw, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, rxerr.Wrap(rxerr.ErrIo, err)
	}
	var f anchorFile
	if err := json.Unmarshal(raw, &f); err != nil {
		return nil, rxerr.Wrap(rxerr.ErrSerialization, err)
	}
	return dedupBySubnet16(f.Addrs), nil
}

// SaveAnchors persists addrs to path at mode 0600 via a tmp-file-then-
// rename write, the same idiom chainstore uses for its chain snapshot.
func SaveAnchors(path string, addrs []string) error {
	buf, err := json.Marshal(anchorFile{Addrs: addrs})
	if err != nil {
		return rxerr.Wrap(rxerr.ErrSerialization, err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, buf, 0o600); err != nil {
		return rxerr.Wrap(rxerr.ErrIo, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return rxerr.Wrap(rxerr.ErrIo, err)
	}
	return nil
}

// AnchorOutboundSlots returns how many of maxOutbound slots should be
// reserved for dialing anchors at startup: at most maxAnchorOutboundSlots,
// and never more than the caller actually has anchors for or outbound
// capacity to spend.
func AnchorOutboundSlots(maxOutbound, anchorCount int) int {
	slots := maxAnchorOutboundSlots
	if anchorCount < slots {
		slots = anchorCount
	}
	if maxOutbound < slots {
		slots = maxOutbound
	}
	if slots < 0 {
		slots = 0
	}
	return slots
}

// subnet16 returns the /16 prefix an address's host belongs to, used to
// keep anchors and address-book selection from clustering inside one
// operator's range. Non-IPv4 or unparseable hosts fall back to the whole
// host string, which still dedupes exact repeats.
func subnet16(addr string) string {
	host := addr
	if h, _, err := net.SplitHostPort(addr); err == nil {
		host = h
	}
	ip := net.ParseIP(host)
	if ip == nil {
		return host
	}
	if v4 := ip.To4(); v4 != nil {
		return strings.Join([]string{itoa(v4[0]), itoa(v4[1])}, ".")
	}
	// IPv6: use the first two groups as a coarse equivalent of a /32.
	parts := strings.Split(ip.String(), ":")
	if len(parts) >= 2 {
		return parts[0] + ":" + parts[1]
	}
	return host
}

// dedupBySubnet16 keeps at most one address per distinct /16 (or IPv6
// equivalent) subnet, preserving input order, so a set of anchors or
// address-book picks can't be dominated by one subnet.
func dedupBySubnet16(addrs []string) []string {
	seen := make(map[string]bool, len(addrs))
	out := make([]string, 0, len(addrs))
	for _, addr := range addrs {
		key := subnet16(addr)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, addr)
	}
	return out
}
