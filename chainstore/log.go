// Copyright (c) 2018 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package chainstore

import "github.com/decred/slog"

var log = slog.Disabled

// UseLogger sets the package-wide logger used by chainstore.
func UseLogger(logger slog.Logger) {
	log = logger
}
