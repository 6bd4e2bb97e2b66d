package contactform

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/nazarhussain/portfolio-contact/internal/submission"
)

// ContactPath is where the server accepts submissions.
const ContactPath = "/api/contact"

// Response is the server's answer to one submission.
type Response struct {
	Status  int
	Message string
	Error   string
}

func (r Response) OK() bool {
	return r.Status >= 200 && r.Status < 300
}

// Submitter sends one submission and waits for the answer.
type Submitter interface {
	Submit(ctx context.Context, req submission.Request) (Response, error)
}

// HTTPSubmitter posts JSON to a contact relay.
type HTTPSubmitter struct {
	endpoint string
	client   *http.Client
}

func NewHTTPSubmitter(baseURL string, client *http.Client) *HTTPSubmitter {
	if client == nil {
		client = http.DefaultClient
	}
	return &HTTPSubmitter{
		endpoint: strings.TrimRight(baseURL, "/") + ContactPath,
		client:   client,
	}
}

func (s *HTTPSubmitter) Submit(ctx context.Context, req submission.Request) (Response, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return Response{}, fmt.Errorf("encode submission: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, bytes.NewReader(body))
	if err != nil {
		return Response{}, fmt.Errorf("build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(httpReq)
	if err != nil {
		return Response{}, fmt.Errorf("post %s: %w", s.endpoint, err)
	}
	defer resp.Body.Close()

	var payload struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	// Proxies may answer with HTML; the status alone is enough then.
	_ = json.NewDecoder(io.LimitReader(resp.Body, 64<<10)).Decode(&payload)

	return Response{
		Status:  resp.StatusCode,
		Message: payload.Message,
		Error:   payload.Error,
	}, nil
}
