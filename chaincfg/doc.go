// Copyright (c) 2014-2016 The btcsuite developers
// Copyright (c) 2015-2021 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

/*
Package chaincfg defines chain configuration parameters for the three
networks supported by this module: mainnet, testnet, and regtest.

Each network is represented by a *Params value returned from one of
MainNetParams, TestNetParams, or RegNetParams. Nothing in this package
mutates global state; callers thread the *Params they want through the
packages that need it (chainstate, validate, randomx) rather than this
package exposing an "active" global, which is what lets a single process
run more than one network's worth of tests side by side.
*/
package chaincfg
