package chess

import (
	"fmt"

	"github.com/park285/repertoire/internal/chess/uci"
)

const (
	DefaultDepth   = 20
	DefaultThreads = 1
	DefaultHashMB  = 256
	DefaultMultiPV = 1
	maxMultiPV     = 500
)

type Limits struct {
	Depth          int `json:"depth"`
	MultiPV        int `json:"multipv"`
	Threads        int `json:"threads"`
	HashMB         int `json:"hash_mb"`
	MoveTimeMillis int `json:"movetime_ms,omitempty"`
	Nodes          int `json:"nodes,omitempty"`
}

func DefaultLimits() Limits {
	return Limits{
		Depth:   DefaultDepth,
		MultiPV: DefaultMultiPV,
		Threads: DefaultThreads,
		HashMB:  DefaultHashMB,
	}
}

// WithDefaults fills every unset field from def.
func (l Limits) WithDefaults(def Limits) Limits {
	if l.Depth <= 0 && l.MoveTimeMillis <= 0 && l.Nodes <= 0 {
		l.Depth = def.Depth
		l.MoveTimeMillis = def.MoveTimeMillis
		l.Nodes = def.Nodes
	}
	if l.MultiPV <= 0 {
		l.MultiPV = def.MultiPV
	}
	if l.Threads <= 0 {
		l.Threads = def.Threads
	}
	if l.HashMB <= 0 {
		l.HashMB = def.HashMB
	}
	return l
}

func (l Limits) Validate() error {
	if l.MultiPV > maxMultiPV {
		return fmt.Errorf("multipv %d exceeds %d", l.MultiPV, maxMultiPV)
	}
	if l.Depth < 0 || l.MoveTimeMillis < 0 || l.Nodes < 0 {
		return fmt.Errorf("search limits must not be negative: %+v", l)
	}
	return nil
}

func (l Limits) options() uci.Options {
	return uci.Options{
		Threads: l.Threads,
		HashMB:  l.HashMB,
		MultiPV: l.MultiPV,
	}
}

func (l Limits) search() uci.Limits {
	return uci.Limits{
		Depth:          l.Depth,
		MoveTimeMillis: l.MoveTimeMillis,
		NodeCap:        l.Nodes,
	}
}
