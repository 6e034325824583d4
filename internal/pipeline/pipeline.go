// Package pipeline implements the chunked AEAD streaming loop that sits
// between a header and a sink: component E of the cipherpack core. It
// reads a source in fixed-size chunks, seals or opens each chunk under a
// single per-stream AEAD, writes the result to a sink, and commits or
// aborts the sink atomically depending on how the loop ends.
package pipeline

import (
	"errors"
	"fmt"

	"cipherpack/internal/crypto"
	"cipherpack/internal/stream"
)

// DefaultBufferSize is the chunk size used when callers don't specify
// one: large enough to amortize per-chunk AEAD overhead, small enough
// that the pipeline never buffers a whole payload.
const DefaultBufferSize = 32 * 1024

// ErrAborted is returned when a ChunkHook declines to continue.
var ErrAborted = errors.New("pipeline: aborted by chunk hook")

// ChunkHook is invoked once per chunk, after that chunk's processed bytes
// (ciphertext on encrypt, plaintext on decrypt) have been written to the
// sink. Returning cont=false stops the pipeline; the sink is aborted and
// Run returns ErrAborted, letting the caller distinguish a deliberate
// stop from any other failure.
type ChunkHook func(processed []byte, isFinal bool) (cont bool, err error)

// Result reports what a completed or failed run processed.
type Result struct {
	BytesProcessed int64
	ChunkCount     int
}

// Run streams src through aead in chunks of bufSize bytes (DefaultBufferSize
// if bufSize <= 0), writing each chunk's processed bytes to sink, then
// commits the sink on success or aborts it on any failure — the atomic
// destination guarantee: a caller never observes a partially-written sink.
//
// decrypt selects AEAD direction: false calls aead.Seal per chunk, true
// calls aead.Open. Every chunk, not only the final one, carries its own
// authentication tag under the per-chunk-nonce adaptation documented on
// crypto.AEADStream. Run keeps one chunk of lookahead so that "final"
// always lands on the last chunk that actually carries bytes: a
// stream.Source is allowed to report end-of-data on a separate, empty
// read after the true last chunk (src.Read defers EOF rather than folding
// it into the prior read), and treating that empty read as its own final
// chunk would hand the AEAD an un-sealable zero-length unit.
func Run(src stream.Source, sink stream.Sink, aead *crypto.AEADStream, decrypt bool, bufSize int, hook ChunkHook) (Result, error) {
	if bufSize <= 0 {
		bufSize = DefaultBufferSize
	}
	// Seal emits bufSize plaintext bytes plus one tag per chunk; to read
	// back exactly the same chunk boundaries on decrypt, the ciphertext
	// read size must grow by the AEAD's overhead, or a read would split a
	// chunk's tag from its ciphertext (or straddle two chunks) the moment
	// the payload spans more than one chunk.
	readSize := bufSize
	if decrypt {
		readSize = bufSize + aead.Overhead()
	}

	var result Result
	emit := func(chunk []byte, isFinal bool) error {
		var processed []byte
		if decrypt {
			out, err := aead.Open(chunk, isFinal)
			if err != nil {
				return fmt.Errorf("pipeline: decrypting chunk %d: %w", result.ChunkCount, err)
			}
			processed = out
		} else {
			processed = aead.Seal(chunk, isFinal)
		}

		if len(processed) > 0 {
			if _, err := sink.Write(processed); err != nil {
				return fmt.Errorf("pipeline: writing chunk %d to sink: %w", result.ChunkCount, err)
			}
		}

		result.BytesProcessed += int64(len(processed))
		result.ChunkCount++

		if hook != nil {
			cont, err := hook(processed, isFinal)
			if err != nil {
				return fmt.Errorf("pipeline: chunk hook: %w", err)
			}
			if !cont {
				return ErrAborted
			}
		}
		return nil
	}

	runErr := func() error {
		// accum collects bytes across as many src.Read calls as needed
		// until it reaches exactly readSize, giving every chunk but the
		// last a fixed, predictable boundary regardless of how the
		// underlying source happens to split its reads (a FeedSource in
		// particular may deliver far smaller pieces per call than
		// readSize). Without this, encrypt's and decrypt's chunk
		// boundaries could disagree and every Open past the first chunk
		// would fail authentication.
		accum := make([]byte, 0, readSize)
		tmp := make([]byte, readSize)

		var pending []byte
		havePending := false
		processedAny := false

		for {
			room := readSize - len(accum)
			n, eof, err := src.Read(tmp[:room])
			if err != nil {
				return fmt.Errorf("pipeline: reading source: %w", err)
			}
			if n > 0 {
				accum = append(accum, tmp[:n]...)
			}

			if len(accum) == readSize {
				if havePending {
					if err := emit(pending, false); err != nil {
						return err
					}
					processedAny = true
				}
				pending = append(pending[:0:0], accum...)
				havePending = true
				accum = accum[:0]
			}

			if eof {
				if len(accum) > 0 {
					if havePending {
						if err := emit(pending, false); err != nil {
							return err
						}
						processedAny = true
						havePending = false
					}
					if err := emit(accum, true); err != nil {
						return err
					}
				} else if havePending {
					if err := emit(pending, true); err != nil {
						return err
					}
				} else if !processedAny {
					// A source that never produced a byte still yields one
					// empty final chunk, so encrypting a zero-length
					// payload still emits its AEAD tag (§8 scenario S1).
					if err := emit(nil, true); err != nil {
						return err
					}
				}
				return nil
			}
		}
	}()

	if runErr != nil {
		if abortErr := sink.Abort(); abortErr != nil {
			return result, fmt.Errorf("%w (sink abort also failed: %v)", runErr, abortErr)
		}
		return result, runErr
	}

	if err := sink.Commit(); err != nil {
		return result, fmt.Errorf("pipeline: committing sink: %w", err)
	}
	return result, nil
}
