// Package service is the entry point for screening operations used by the
// HTTP handler and the CLI.
package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"quickfi/internal/notify"
	"quickfi/internal/screening/models"
	"quickfi/internal/sentinel"
	vmodels "quickfi/internal/vendors/models"
	id "quickfi/pkg/domain"
	dErrors "quickfi/pkg/domain-errors"
)

// Runner executes a screening run.
type Runner interface {
	Run(ctx context.Context, vendorID id.VendorID, accountID *id.AccountID, stages []models.StageID) (*models.RunReport, error)
}

// Store is the read side of the vendor record store.
type Store interface {
	Vendor(ctx context.Context, vendorID id.VendorID) (*vmodels.Vendor, error)
	Account(ctx context.Context, accountID id.AccountID) (*vmodels.Account, error)
	Flags(ctx context.Context, vendorID id.VendorID) (vmodels.FlagSummary, error)
}

// ChannelLister is implemented by notifiers that can name their channels.
type ChannelLister interface {
	Channels() []string
}

type Service struct {
	runner   Runner
	store    Store
	notifier notify.Notifier
	logger   *slog.Logger
	now      func() time.Time
}

type Option func(*Service)

func WithLogger(l *slog.Logger) Option {
	return func(s *Service) { s.logger = l }
}

// WithNotifier enables Notify. Without one Notify returns CodeNotConfigured.
func WithNotifier(n notify.Notifier) Option {
	return func(s *Service) { s.notifier = n }
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func New(runner Runner, store Store, opts ...Option) *Service {
	s := &Service{
		runner: runner,
		store:  store,
		logger: slog.Default(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Screen runs stages for a vendor. A nil accountID is allowed unless the
// identity stage is requested.
func (s *Service) Screen(ctx context.Context, vendorID id.VendorID, accountID *id.AccountID, stages []models.StageID) (*models.RunReport, error) {
	report, err := s.runner.Run(ctx, vendorID, accountID, stages)
	if err != nil {
		return nil, err
	}
	return report, nil
}

func (s *Service) Flags(ctx context.Context, vendorID id.VendorID) (*vmodels.FlagSummary, error) {
	summary, err := s.store.Flags(ctx, vendorID)
	if err != nil {
		return nil, translate(err, "vendor")
	}
	return &summary, nil
}

// DueDiligence pairs an account and vendor for manual review.
func (s *Service) DueDiligence(ctx context.Context, accountID id.AccountID, vendorID id.VendorID) (*vmodels.DueDiligence, error) {
	account, err := s.store.Account(ctx, accountID)
	if err != nil {
		return nil, translate(err, "account")
	}
	vendor, err := s.store.Vendor(ctx, vendorID)
	if err != nil {
		return nil, translate(err, "vendor")
	}
	return &vmodels.DueDiligence{
		AccountName:    account.Name,
		AccountAddress: account.Address.Formatted(),
		VendorName:     vendor.Name,
		VendorAddress:  vendor.Address.Formatted(),
		VendorWebsite:  vendor.Website,
	}, nil
}

// Notify sends the vendor's flag summary. Vendors without flags are not
// notified; the result carries models.NoFlagsMessage instead.
func (s *Service) Notify(ctx context.Context, vendorID id.VendorID, recipient string) (*models.NotificationResult, error) {
	if s.notifier == nil {
		return nil, dErrors.New(dErrors.CodeNotConfigured, "notifications are not configured")
	}
	vendor, err := s.store.Vendor(ctx, vendorID)
	if err != nil {
		return nil, translate(err, "vendor")
	}
	flags := vmodels.NewFlagSummary(vendor.ID, vendor.Flags)
	if flags.Count == 0 {
		s.logger.InfoContext(ctx, "notification skipped", "vendor_id", vendorID.String(), "reason", models.NoFlagsMessage)
		return &models.NotificationResult{Message: models.NoFlagsMessage}, nil
	}

	summary := notify.Summary{
		VendorID:      vendor.ID.String(),
		VendorName:    vendor.Name,
		VendorAddress: vendor.Address.Formatted(),
		Flags:         flags.Flags,
		GeneratedAt:   s.now(),
		Recipient:     recipient,
	}
	if err := s.notifier.Notify(ctx, summary); err != nil {
		if errors.Is(err, notify.ErrNoRecipient) {
			return nil, dErrors.Wrap(err, dErrors.CodeValidation, "recipient is required")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "failed to deliver notification")
	}

	result := &models.NotificationResult{Sent: true, Message: "notification sent", FlagCount: flags.Count}
	if l, ok := s.notifier.(ChannelLister); ok {
		result.Channels = l.Channels()
	}
	return result, nil
}

func translate(err error, what string) error {
	if errors.Is(err, sentinel.ErrNotFound) {
		return dErrors.New(dErrors.CodeNotFound, what+" not found")
	}
	return dErrors.Wrap(err, dErrors.CodeInternal, "failed to load "+what)
}
