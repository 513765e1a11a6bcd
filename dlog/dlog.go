// Package dlog is a thin, dependency-free logging gate used throughout
// the core. It carries no semantic role in the protocol; it exists so a
// replica or coordinator can be made chatty during development without
// paying for string formatting in the common case.
package dlog

import (
	"log"
	"time"
)

// Enabled gates Printf/Println. Off by default; flip it in tests or in
// cmd/ entrypoints via the -v flag.
var Enabled = false

func Printf(format string, v ...interface{}) {
	if !Enabled {
		return
	}
	log.Printf(format, v...)
}

func Println(v ...interface{}) {
	if !Enabled {
		return
	}
	log.Println(v...)
}

// Event logs unconditionally, timestamped and tagged with the owning
// node, regardless of Enabled. Nothing in the core calls it; the
// panics on invariant violations do not log through it.
func Event(nodeID int32, format string, v ...interface{}) {
	log.Printf("%s node=%d "+format, append([]interface{}{time.Now().Format("2006-01-02T15:04:05.000"), nodeID}, v...)...)
}
