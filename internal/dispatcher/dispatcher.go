package dispatcher

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/jmehdipour/optica-notifier/internal/config"
)

var (
	ErrNoHealthy   = errors.New("no healthy providers")
	ErrNoAcquire   = errors.New("provider not acquired")
	ErrNoProviders = errors.New("no enabled sms providers")
)

// Dispatcher spreads SMS over healthy providers round-robin, retrying up to
// maxAttempts times on a fresh selection.
type Dispatcher struct {
	providers         []Provider
	roundRobinCounter atomic.Uint64
	maxAttempts       int
}

func NewDispatcher(provs []Provider, maxAttempts int) *Dispatcher {
	if maxAttempts < 1 {
		maxAttempts = 2
	}

	return &Dispatcher{providers: provs, maxAttempts: maxAttempts}
}

// NewFromConfig builds HTTP providers for every enabled entry.
func NewFromConfig(cfg config.SMSConfig) (*Dispatcher, error) {
	var provs []Provider
	for _, pc := range cfg.Providers {
		if !pc.Enabled {
			continue
		}
		if pc.BaseURL == "" {
			return nil, fmt.Errorf("sms provider %q: base_url is required", pc.Name)
		}
		provs = append(provs, NewHTTPProvider(pc))
	}
	if len(provs) == 0 {
		return nil, ErrNoProviders
	}
	return NewDispatcher(provs, cfg.Attempts), nil
}

func (d *Dispatcher) selectProvider() (Provider, error) {
	healthy := make([]Provider, 0, len(d.providers))
	for _, p := range d.providers {
		if p.Ready() {
			healthy = append(healthy, p)
		}
	}

	if len(healthy) == 0 {
		return nil, ErrNoHealthy
	}

	x := d.roundRobinCounter.Add(1)
	idx := int((x - 1) % uint64(len(healthy)))

	return healthy[idx], nil
}

func (d *Dispatcher) tryOnce(ctx context.Context, sms SMS) error {
	p, err := d.selectProvider()
	if err != nil {
		return err
	}

	if !p.Acquire() {
		return ErrNoAcquire
	}

	return p.Send(ctx, sms)
}

// Send returns the last error when every attempt failed.
func (d *Dispatcher) Send(ctx context.Context, sms SMS) error {
	var last error
	for i := 0; i < d.maxAttempts; i++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		err := d.tryOnce(ctx, sms)
		if err == nil {
			return nil
		}
		last = err
	}

	if last == nil {
		last = errors.New("send sms failed")
	}

	return last
}
