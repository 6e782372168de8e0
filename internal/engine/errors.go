package engine

import "errors"

// ErrNoActiveStrategies is returned by Initialize when no strategy rows
// were loaded (or all of them failed registry lookup). Fatal per §6 exit
// code policy — the caller should exit(1).
var ErrNoActiveStrategies = errors.New("engine: no active strategies")
