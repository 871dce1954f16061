package geocode

import (
	"context"
	"net/http"
	"strings"
	"sync"

	"github.com/jukenmap/jukenmap/internal/model"
)

// newRewriteClient returns an HTTP client that sends every request whose URL
// starts with targetPrefix to the test server instead.
func newRewriteClient(testServerURL, targetPrefix string) *http.Client {
	return &http.Client{
		Transport: &rewriteTransport{
			base:         http.DefaultTransport,
			testServer:   testServerURL,
			targetPrefix: targetPrefix,
		},
	}
}

type rewriteTransport struct {
	base         http.RoundTripper
	testServer   string
	targetPrefix string
}

func (t *rewriteTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	origURL := req.URL.String()
	if !strings.HasPrefix(origURL, t.targetPrefix) {
		return t.base.RoundTrip(req)
	}
	parsed, err := req.URL.Parse(t.testServer + origURL[len(t.targetPrefix):])
	if err != nil {
		return nil, err
	}
	newReq := req.Clone(req.Context())
	newReq.URL = parsed
	newReq.Host = parsed.Host
	return t.base.RoundTrip(newReq)
}

// stubResolver answers from a fixed table and records every query.
type stubResolver struct {
	mu      sync.Mutex
	answers map[string]model.Coordinate
	queries []string
}

func (s *stubResolver) Resolve(_ context.Context, address string) (model.Coordinate, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.queries = append(s.queries, address)
	c, ok := s.answers[address]
	return c, ok
}
