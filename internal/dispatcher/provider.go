package dispatcher

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/jmehdipour/optica-notifier/internal/config"
)

// SMS is the JSON body posted to HTTP SMS providers.
type SMS struct {
	To        string `json:"to"`
	Text      string `json:"text"`
	SenderID  string `json:"sender_id,omitempty"`
	Reference string `json:"reference,omitempty"`
}

type Provider interface {
	Name() string
	Ready() bool
	Acquire() bool
	Send(ctx context.Context, sms SMS) error
}

// HTTPProvider posts SMS to a gateway endpoint guarded by its own breaker.
type HTTPProvider struct {
	name      string
	url       string
	authToken string
	client    *http.Client
	br        *MicroBreaker
}

func NewHTTPProvider(pc config.ProviderConfig) *HTTPProvider {
	timeoutMs := pc.TimeoutMs
	if timeoutMs <= 0 {
		timeoutMs = 3000
	}

	failThreshold := pc.Breaker.FailThreshold
	if failThreshold <= 0 {
		failThreshold = 3
	}

	openForMs := pc.Breaker.OpenForMs
	if openForMs <= 0 {
		openForMs = 15000
	}

	return &HTTPProvider{
		name:      pc.Name,
		url:       strings.TrimRight(pc.BaseURL, "/") + pc.Path,
		authToken: pc.AuthToken,
		client:    &http.Client{Timeout: time.Duration(timeoutMs) * time.Millisecond},
		br:        NewMicroBreaker(failThreshold, time.Duration(openForMs)*time.Millisecond),
	}
}

func (p *HTTPProvider) Name() string  { return p.name }
func (p *HTTPProvider) Ready() bool   { return p.br.Ready() }
func (p *HTTPProvider) Acquire() bool { return p.br.TryAcquire() }

func (p *HTTPProvider) Send(ctx context.Context, sms SMS) error {
	if err := p.post(ctx, sms); err != nil {
		p.br.OnFailure()
		return err
	}

	p.br.OnSuccess()

	return nil
}

func (p *HTTPProvider) post(ctx context.Context, sms SMS) error {
	b, err := json.Marshal(sms)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.url, bytes.NewReader(b))
	if err != nil {
		return err
	}

	req.Header.Set("Content-Type", "application/json")
	if p.authToken != "" {
		req.Header.Set("Authorization", "Bearer "+p.authToken)
	}

	res, err := p.client.Do(req)
	if err != nil {
		return err
	}

	defer res.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(res.Body, 4<<10))

	if res.StatusCode/100 != 2 {
		return fmt.Errorf("provider=%s status=%d", p.name, res.StatusCode)
	}

	return nil
}
