package multiprovider

import (
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// session executes instrumented HTTP exchanges against a single endpoint.
// It is a pure observer: it never alters request or response content, and
// holds no mutable per-call state beyond the shared *http.Client.
type session struct {
	http   *http.Client
	sink   MetricsSink
	logger *zap.Logger
	labels ProviderLabels
}

// exchange runs one HTTP request/response cycle. The request-payload and
// response-time observations are emitted no matter how the exchange ends;
// the response-payload observation is emitted once a body has actually been
// received, preferring the advertised Content-Length over the materialized
// size.
func (s *session) exchange(req *http.Request, payload []byte) ([]byte, int, error) {
	s.sink.ObserveRequestPayload(s.labels, len(payload))

	start := time.Now()
	resp, err := s.http.Do(req)
	s.sink.ObserveResponseTime(s.labels, time.Since(start))
	if err != nil {
		return nil, 0, err
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, err
	}

	if resp.ContentLength >= 0 {
		s.sink.ObserveResponsePayload(s.labels, int(resp.ContentLength))
	} else {
		s.sink.ObserveResponsePayload(s.labels, len(raw))
	}
	return raw, resp.StatusCode, nil
}
