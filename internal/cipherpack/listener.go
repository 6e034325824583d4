// Package cipherpack is the orchestrator and listener protocol — component
// F — that drives the header, pipeline, and crypto components into the two
// top-level operations, Pack and Unpack, and reports their progress and
// outcome through a caller-supplied Listener.
package cipherpack

import "cipherpack/internal/header"

// Listener receives every callback a Pack or Unpack call makes. All
// methods are invoked sequentially by the calling goroutine; cipherpack
// never dispatches to a single Listener concurrently.
type Listener interface {
	// NotifyError fires at most once, on the first fatal error, strictly
	// before the matching NotifyEnd.
	NotifyError(decryptMode bool, msg string)
	// NotifyHeader fires exactly once, immediately after the header is
	// parsed (decrypt) or assembled (encrypt), before any payload chunk.
	NotifyHeader(decryptMode bool, h *header.PackHeader, verified bool)
	// NotifyProgress fires after each payload chunk.
	NotifyProgress(decryptMode bool, contentSize, bytesProcessed int64)
	// NotifyEnd fires exactly once, as the last callback of the call.
	NotifyEnd(decryptMode bool, h *header.PackHeader, success bool)
	// GetSendContent is consulted once, before streaming begins, to
	// decide whether ContentProcessed will be called at all.
	GetSendContent(decryptMode bool) bool
	// ContentProcessed fires once per emitted chunk when GetSendContent
	// returned true. Returning false aborts the call with ErrListenerAbort.
	ContentProcessed(decryptMode bool, isHeader bool, data []byte, isFinal bool) bool
}

// NopListener discards every callback and always permits streaming to
// continue; callers that only want the returned PackHeader and error use
// this as their Listener.
type NopListener struct{}

func (NopListener) NotifyError(decryptMode bool, msg string)                                {}
func (NopListener) NotifyHeader(decryptMode bool, h *header.PackHeader, verified bool)       {}
func (NopListener) NotifyProgress(decryptMode bool, contentSize, bytesProcessed int64)       {}
func (NopListener) NotifyEnd(decryptMode bool, h *header.PackHeader, success bool)           {}
func (NopListener) GetSendContent(decryptMode bool) bool                                     { return false }
func (NopListener) ContentProcessed(decryptMode bool, isHeader bool, data []byte, isFinal bool) bool {
	return true
}

var _ Listener = NopListener{}
