package remoteblob

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// HTTPSession is a Session backed by a single HTTP endpoint, POSTing
// and fetching the XML-RPC envelope as the request/response body. The
// wire format is the compatibility contract (spec.md §4.5); the
// transport itself — how a real XAPI session is obtained and
// authenticated — is out of scope (spec.md §1), so this is deliberately
// a minimal bearer-token POST rather than a full XAPI client.
type HTTPSession struct {
	Client   *http.Client
	Endpoint string
	Token    string
}

// NewHTTPSession returns a Session POSTing to endpoint, authenticated
// with token via the standard Bearer scheme.
func NewHTTPSession(endpoint, token string) *HTTPSession {
	return &HTTPSession{Client: http.DefaultClient, Endpoint: endpoint, Token: token}
}

// FetchBlob issues an empty GET-style fetch request and returns the raw
// XML-RPC response body.
func (h *HTTPSession) FetchBlob(ctx context.Context) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, h.Endpoint, nil)
	if err != nil {
		return "", err
	}
	h.authorize(req)
	resp, err := h.do(req)
	if err != nil {
		return "", err
	}
	return resp, nil
}

// StoreBlob POSTs envelope (already XML-RPC wrapped) as the request
// body.
func (h *HTTPSession) StoreBlob(ctx context.Context, envelope string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.Endpoint, strings.NewReader(envelope))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "text/xml")
	h.authorize(req)
	_, err = h.do(req)
	return err
}

func (h *HTTPSession) authorize(req *http.Request) {
	if h.Token != "" {
		req.Header.Set("Authorization", "Bearer "+h.Token)
	}
}

func (h *HTTPSession) do(req *http.Request) (string, error) {
	client := h.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("remoteblob: unexpected status %s", resp.Status)
	}
	return string(body), nil
}
