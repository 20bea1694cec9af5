// Package ivmlog wraps the standard library's log package with a level
// gate set through SetLevel (its level names are the ones internal/config
// validates; config does not set the gate itself), matching the teacher's own
// log.Printf call sites (pkg/session, pkg/resource/*) rather than reaching
// for a structured logger the corpus never imports.
package ivmlog

import (
	"log"
	"sync/atomic"

	"github.com/google/uuid"
)

type Level int32

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

func ParseLevel(s string) Level {
	switch s {
	case "debug":
		return LevelDebug
	case "warn":
		return LevelWarn
	case "error":
		return LevelError
	default:
		return LevelInfo
	}
}

var current int32 = int32(LevelInfo)

// SetLevel changes the process-wide log gate.
func SetLevel(l Level) { atomic.StoreInt32(&current, int32(l)) }

func enabled(l Level) bool { return int32(l) >= atomic.LoadInt32(&current) }

func Debugf(format string, args ...interface{}) {
	if enabled(LevelDebug) {
		log.Printf("[debug] "+format, args...)
	}
}

func Infof(format string, args ...interface{}) {
	if enabled(LevelInfo) {
		log.Printf("[info] "+format, args...)
	}
}

func Warnf(format string, args ...interface{}) {
	if enabled(LevelWarn) {
		log.Printf("[warn] "+format, args...)
	}
}

func Errorf(format string, args ...interface{}) {
	if enabled(LevelError) {
		log.Printf("[error] "+format, args...)
	}
}

// NewCascadeID mints a correlation id for one Source.Push call so every
// log line emitted while that push's derived cascade runs to completion
// (spec §5's single-threaded "whole cascade before the next push" rule)
// can be grepped out of interleaved process logs.
func NewCascadeID() string {
	return uuid.NewString()
}
