package middleware

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/iho/pensionledger/internal/usecase"
)

const (
	// IdempotencyKeyHeader carries the client's idempotency key.
	IdempotencyKeyHeader = "Idempotency-Key"

	// IdempotencyReplayHeader marks a response served from the store.
	IdempotencyReplayHeader = "X-Idempotency-Replay"

	// processingMarker is stored while the first request with a key is in flight.
	processingMarker = "processing"

	maxIdempotencyKeyLength = 255
)

// IdempotencyMiddleware replays the stored response when a POST or PUT is
// retried with the same Idempotency-Key. Keys are scoped to method and path,
// and a key reused with a different body is rejected.
type IdempotencyMiddleware struct {
	store  usecase.IdempotencyStore
	ttl    time.Duration
	logger zerolog.Logger
}

// NewIdempotencyMiddleware creates a new IdempotencyMiddleware.
func NewIdempotencyMiddleware(store usecase.IdempotencyStore, ttl time.Duration, logger zerolog.Logger) *IdempotencyMiddleware {
	if ttl <= 0 {
		ttl = usecase.IdempotencyKeyTTL
	}

	return &IdempotencyMiddleware{
		store:  store,
		ttl:    ttl,
		logger: logger.With().Str("component", "idempotency").Logger(),
	}
}

// storedReplay is the value kept under a key once its request succeeded.
type storedReplay struct {
	StatusCode  int             `json:"status_code"`
	Body        json.RawMessage `json:"body"`
	Fingerprint string          `json:"fingerprint,omitempty"`
}

// Wrap applies idempotency to mutating requests that carry a key.
func (m *IdempotencyMiddleware) Wrap(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := r.Header.Get(IdempotencyKeyHeader)
		if key == "" || (r.Method != http.MethodPost && r.Method != http.MethodPut) {
			next.ServeHTTP(w, r)
			return
		}
		if len(key) > maxIdempotencyKeyLength {
			writeError(w, http.StatusBadRequest, "Idempotency-Key is too long")
			return
		}

		fingerprint, err := fingerprintBody(r)
		if err != nil {
			writeError(w, http.StatusBadRequest, "failed to read request body")
			return
		}

		log := m.logger.With().Str("idempotency_key", key).Logger()
		scopedKey := r.Method + ":" + r.URL.Path + ":" + key

		exists, cached, err := m.store.CheckAndSet(r.Context(), scopedKey, nil, m.ttl)
		if err != nil {
			log.Error().Err(err).Msg("idempotency check failed")
			writeError(w, http.StatusInternalServerError, "idempotency check failed")
			return
		}
		if exists {
			replay(w, cached, fingerprint)
			return
		}

		capture := &bodyCapture{responseRecorder: newResponseRecorder(w)}
		next.ServeHTTP(capture, r)

		if capture.status < http.StatusOK || capture.status >= http.StatusMultipleChoices {
			// Failed attempts free the key so the client can retry.
			m.release(r, scopedKey, log)
			return
		}

		var body json.RawMessage
		if trimmed := bytes.TrimSpace(capture.body.Bytes()); len(trimmed) > 0 {
			body = trimmed
		}

		payload, err := json.Marshal(storedReplay{
			StatusCode:  capture.status,
			Body:        body,
			Fingerprint: fingerprint,
		})
		if err != nil {
			log.Warn().Err(err).Msg("failed to encode response for replay")
			m.release(r, scopedKey, log)
			return
		}

		if err := m.store.Update(r.Context(), scopedKey, payload, m.ttl); err != nil {
			log.Warn().Err(err).Msg("failed to store idempotent response")
		}
	})
}

func (m *IdempotencyMiddleware) release(r *http.Request, scopedKey string, log zerolog.Logger) {
	if err := m.store.Release(r.Context(), scopedKey); err != nil {
		log.Warn().Err(err).Msg("failed to release idempotency key")
	}
}

// replay answers from a stored value. Values that are not a storedReplay
// are served verbatim as a 200.
func replay(w http.ResponseWriter, cached []byte, fingerprint string) {
	if len(cached) == 0 || string(cached) == processingMarker {
		writeError(w, http.StatusConflict, "a request with this Idempotency-Key is still being processed")
		return
	}

	var stored storedReplay
	if err := json.Unmarshal(cached, &stored); err != nil || stored.StatusCode == 0 {
		stored = storedReplay{StatusCode: http.StatusOK, Body: cached}
	}
	if stored.Fingerprint != "" && stored.Fingerprint != fingerprint {
		writeError(w, http.StatusUnprocessableEntity, "Idempotency-Key was already used with a different request body")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set(IdempotencyReplayHeader, "true")
	w.WriteHeader(stored.StatusCode)
	if len(stored.Body) > 0 && string(stored.Body) != "null" {
		_, _ = w.Write(stored.Body)
	}
}

// fingerprintBody hashes the request body and rewinds it for the handler.
func fingerprintBody(r *http.Request) (string, error) {
	if r.Body == nil || r.Body == http.NoBody {
		return "", nil
	}

	raw, err := io.ReadAll(r.Body)
	if err != nil {
		return "", err
	}
	_ = r.Body.Close()
	r.Body = io.NopCloser(bytes.NewReader(raw))

	sum := sha256.Sum256(bytes.TrimSpace(raw))
	return hex.EncodeToString(sum[:]), nil
}

// bodyCapture keeps a copy of the response body for replay.
type bodyCapture struct {
	*responseRecorder

	body bytes.Buffer
}

func (c *bodyCapture) Write(b []byte) (int, error) {
	c.body.Write(b)
	return c.responseRecorder.Write(b)
}
