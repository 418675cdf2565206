// Public domain.

//go:build !linux

package xsbravais

import "runtime"

func availableProcs() int { return runtime.NumCPU() }
