// Copyright (c) 2018 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package chainstate

import "time"

// now is indirected through a package variable so tests can substitute a
// fixed clock when exercising future-time and median-time-past edge cases
// without sleeping or faking the whole header set.
var now = time.Now
