// Package device plays decoded clips on the host's speakers through oto.
//
// oto requires cgo on most platforms. Builds with the nocgo tag get a stub
// whose constructor always fails, so callers fall back to a silent output.
package device
