// Package notify delivers vendor flag summaries to reviewers. Callers
// decide when to notify; screening runs never do.
package notify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"quickfi/internal/screening/metrics"
)

// ErrNoRecipient is returned by channels that need an address when none is
// given and no default is configured.
var ErrNoRecipient = errors.New("no recipient provided and no default configured")

// Summary is the content of one notification.
type Summary struct {
	VendorID      string    `json:"vendor_id"`
	VendorName    string    `json:"vendor_name"`
	VendorAddress string    `json:"vendor_address"`
	Flags         []string  `json:"flags"`
	GeneratedAt   time.Time `json:"generated_at"`

	// Recipient overrides the channel default where addresses apply.
	Recipient string `json:"-"`
}

type Notifier interface {
	Notify(ctx context.Context, s Summary) error
}

// Channel is a named Notifier inside a Fanout.
type Channel struct {
	Name     string
	Notifier Notifier
}

// Fanout delivers to every channel and joins their errors. A failing
// channel does not stop the others.
type Fanout struct {
	channels []Channel
	metrics  *metrics.Metrics
	logger   *slog.Logger
}

type Option func(*Fanout)

func WithMetrics(m *metrics.Metrics) Option {
	return func(f *Fanout) { f.metrics = m }
}

func WithLogger(l *slog.Logger) Option {
	return func(f *Fanout) { f.logger = l }
}

func NewFanout(channels []Channel, opts ...Option) *Fanout {
	f := &Fanout{channels: channels, logger: slog.Default()}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Channels returns the configured channel names.
func (f *Fanout) Channels() []string {
	names := make([]string, 0, len(f.channels))
	for _, c := range f.channels {
		names = append(names, c.Name)
	}
	return names
}

func (f *Fanout) Notify(ctx context.Context, s Summary) error {
	if len(f.channels) == 0 {
		return errors.New("no notification channels configured")
	}
	var errs []error
	for _, c := range f.channels {
		err := c.Notifier.Notify(ctx, s)
		f.metrics.RecordNotification(c.Name, err == nil)
		if err != nil {
			f.logger.WarnContext(ctx, "notification failed", "channel", c.Name, "vendor_id", s.VendorID, "error", err)
			errs = append(errs, fmt.Errorf("%s: %w", c.Name, err))
			continue
		}
		f.logger.InfoContext(ctx, "notification sent", "channel", c.Name, "vendor_id", s.VendorID, "flags", len(s.Flags))
	}
	return errors.Join(errs...)
}
