package registry

import (
	"log/slog"
	"time"

	"cipherpack/internal/cipherpack"
	"cipherpack/internal/header"
)

// Wrap decorates inner with audit logging to store: every callback is
// forwarded to inner completely unchanged, and the call's outcome is
// appended to store the instant NotifyEnd fires. inner's return values
// (e.g. ContentProcessed's abort decision) always win — this decorator
// never influences a Pack or Unpack call, only observes it, mirroring how
// bt.UUIDGenerator/RealClock are plain side inputs rather than control
// flow.
func Wrap(mode string, store *Store, logger *slog.Logger, inner cipherpack.Listener) cipherpack.Listener {
	return wrapWith(mode, store, logger, inner, RealClock{}, UUIDGenerator{})
}

func wrapWith(mode string, store *Store, logger *slog.Logger, inner cipherpack.Listener, clock Clock, idGen IDGenerator) cipherpack.Listener {
	if logger == nil {
		logger = slog.Default()
	}
	return &registryListener{
		inner:       inner,
		store:       store,
		logger:      logger,
		clock:       clock,
		mode:        mode,
		operationID: idGen.New(),
		startedAt:   clock.Now(),
	}
}

type registryListener struct {
	inner  cipherpack.Listener
	store  *Store
	logger *slog.Logger
	clock  Clock

	mode        string
	operationID string
	startedAt   time.Time

	hostFingerprint       []byte
	recipientFingerprints [][]byte
	contentSize           int64
	errMsg                string
}

func (l *registryListener) NotifyError(decryptMode bool, msg string) {
	l.errMsg = msg
	l.inner.NotifyError(decryptMode, msg)
}

func (l *registryListener) NotifyHeader(decryptMode bool, h *header.PackHeader, verified bool) {
	l.hostFingerprint = h.HostKeyFingerprint
	l.recipientFingerprints = h.RecipientFingerprints
	l.contentSize = h.ContentSize
	l.inner.NotifyHeader(decryptMode, h, verified)
}

func (l *registryListener) NotifyProgress(decryptMode bool, contentSize, bytesProcessed int64) {
	l.inner.NotifyProgress(decryptMode, contentSize, bytesProcessed)
}

func (l *registryListener) NotifyEnd(decryptMode bool, h *header.PackHeader, success bool) {
	l.inner.NotifyEnd(decryptMode, h, success)

	if h != nil {
		l.contentSize = h.ContentSize
	}
	entry := RegistryEntry{
		OperationID:           l.operationID,
		Mode:                  l.mode,
		HostFingerprint:       l.hostFingerprint,
		RecipientFingerprints: l.recipientFingerprints,
		Success:               success,
		ErrorKind:             l.errMsg,
		ContentSize:           l.contentSize,
		StartedAt:             l.startedAt,
		FinishedAt:            l.clock.Now(),
	}
	if err := l.store.Append(entry); err != nil {
		l.logger.Error("recording registry entry", "operation_id", l.operationID, "error", err)
	}
}

func (l *registryListener) GetSendContent(decryptMode bool) bool {
	return l.inner.GetSendContent(decryptMode)
}

func (l *registryListener) ContentProcessed(decryptMode bool, isHeader bool, data []byte, isFinal bool) bool {
	return l.inner.ContentProcessed(decryptMode, isHeader, data, isFinal)
}
