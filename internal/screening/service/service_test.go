package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"quickfi/internal/notify"
	"quickfi/internal/screening/models"
	vmodels "quickfi/internal/vendors/models"
	"quickfi/internal/vendors/store"
	id "quickfi/pkg/domain"
	dErrors "quickfi/pkg/domain-errors"
)

type stubRunner struct {
	report *models.RunReport
	err    error
	stages []models.StageID
}

func (r *stubRunner) Run(_ context.Context, vendorID id.VendorID, _ *id.AccountID, stages []models.StageID) (*models.RunReport, error) {
	r.stages = stages
	if r.err != nil {
		return nil, r.err
	}
	r.report.VendorID = vendorID
	return r.report, nil
}

type recordingNotifier struct {
	got []notify.Summary
	err error
}

func (n *recordingNotifier) Notify(_ context.Context, s notify.Summary) error {
	n.got = append(n.got, s)
	return n.err
}

func (n *recordingNotifier) Channels() []string { return []string{"email"} }

type ServiceSuite struct {
	suite.Suite
	ctx      context.Context
	store    *store.InMemoryStore
	runner   *stubRunner
	notifier *recordingNotifier
	svc      *Service
	vendor   *vmodels.Vendor
	account  *vmodels.Account
	now      time.Time
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

func (s *ServiceSuite) SetupTest() {
	s.ctx = context.Background()
	s.now = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	s.store = store.NewInMemoryStore(store.WithClock(func() time.Time { return s.now }))
	s.runner = &stubRunner{report: &models.RunReport{}}
	s.notifier = &recordingNotifier{}

	s.vendor = &vmodels.Vendor{
		ID:      id.VendorID(uuid.New()),
		Name:    "Acme Corp",
		Address: vmodels.Address{Street: "100 Main St", City: "Austin", State: "TX", PostalCode: "78701"},
		Website: "https://acme.example",
		Country: "US",
	}
	s.account = &vmodels.Account{
		ID:      id.AccountID(uuid.New()),
		Name:    "Acme Corp",
		Address: vmodels.Address{Street: "200 Oak Ave", City: "Austin", State: "TX", PostalCode: "78702"},
	}
	s.Require().NoError(s.store.SaveVendor(s.ctx, s.vendor))
	s.Require().NoError(s.store.SaveAccount(s.ctx, s.account))

	s.svc = New(s.runner, s.store,
		WithNotifier(s.notifier),
		WithClock(func() time.Time { return s.now }),
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
	)
}

func (s *ServiceSuite) appendFlag(text string) {
	ok, err := s.store.AppendFlag(s.ctx, s.vendor.ID, vmodels.FlagRecord{Text: text, Stage: "identity"})
	s.Require().NoError(err)
	s.Require().True(ok)
}

func (s *ServiceSuite) TestScreen() {
	s.Run("delegates to runner", func() {
		report, err := s.svc.Screen(s.ctx, s.vendor.ID, &s.account.ID, []models.StageID{models.StageIdentity})
		s.Require().NoError(err)
		s.Equal(s.vendor.ID, report.VendorID)
		s.Equal([]models.StageID{models.StageIdentity}, s.runner.stages)
	})

	s.Run("runner errors pass through", func() {
		s.runner.err = dErrors.New(dErrors.CodeNotFound, "vendor not found")
		_, err := s.svc.Screen(s.ctx, s.vendor.ID, nil, nil)
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})
}

// Invariant: the flag summary count always equals the number of flags.
func (s *ServiceSuite) TestFlags() {
	s.appendFlag("name match")
	s.appendFlag("name match")

	summary, err := s.svc.Flags(s.ctx, s.vendor.ID)
	s.Require().NoError(err)
	s.Equal([]string{"name match", "name match"}, summary.Flags)
	s.Equal(2, summary.Count)

	_, err = s.svc.Flags(s.ctx, id.VendorID(uuid.New()))
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
}

func (s *ServiceSuite) TestDueDiligence() {
	s.Run("formats both parties", func() {
		dd, err := s.svc.DueDiligence(s.ctx, s.account.ID, s.vendor.ID)
		s.Require().NoError(err)
		s.Equal("Acme Corp", dd.AccountName)
		s.Equal("200 Oak Ave, Austin, TX, 78702", dd.AccountAddress)
		s.Equal("100 Main St, Austin, TX, 78701", dd.VendorAddress)
		s.Equal("https://acme.example", dd.VendorWebsite)
	})

	s.Run("missing account", func() {
		_, err := s.svc.DueDiligence(s.ctx, id.AccountID(uuid.New()), s.vendor.ID)
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
		s.Contains(err.Error(), "account")
	})

	s.Run("missing vendor", func() {
		_, err := s.svc.DueDiligence(s.ctx, s.account.ID, id.VendorID(uuid.New()))
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})
}

func (s *ServiceSuite) TestNotifySkipsVendorWithoutFlags() {
	result, err := s.svc.Notify(s.ctx, s.vendor.ID, "")
	s.Require().NoError(err)
	s.False(result.Sent)
	s.Equal(models.NoFlagsMessage, result.Message)
	s.Empty(s.notifier.got)
}

func (s *ServiceSuite) TestNotifySendsSummary() {
	s.appendFlag("name match")
	s.appendFlag("found on sanctions list")

	result, err := s.svc.Notify(s.ctx, s.vendor.ID, "analyst@example.com")
	s.Require().NoError(err)
	s.True(result.Sent)
	s.Equal(2, result.FlagCount)
	s.Equal([]string{"email"}, result.Channels)

	s.Require().Len(s.notifier.got, 1)
	got := s.notifier.got[0]
	s.Equal("Acme Corp", got.VendorName)
	s.Equal("100 Main St, Austin, TX, 78701", got.VendorAddress)
	s.Equal([]string{"name match", "found on sanctions list"}, got.Flags)
	s.Equal("analyst@example.com", got.Recipient)
	s.Equal(s.now, got.GeneratedAt)
}

func (s *ServiceSuite) TestNotifyErrors() {
	s.appendFlag("name match")

	s.Run("missing recipient is a validation error", func() {
		s.notifier.err = errors.Join(errors.New("kafka ok"), notify.ErrNoRecipient)
		_, err := s.svc.Notify(s.ctx, s.vendor.ID, "")
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})

	s.Run("delivery failure is unavailable", func() {
		s.notifier.err = errors.New("smtp down")
		_, err := s.svc.Notify(s.ctx, s.vendor.ID, "")
		s.True(dErrors.HasCode(err, dErrors.CodeUnavailable))
	})

	s.Run("not configured", func() {
		svc := New(s.runner, s.store)
		_, err := svc.Notify(s.ctx, s.vendor.ID, "")
		s.True(dErrors.HasCode(err, dErrors.CodeNotConfigured))
	})

	s.Run("unknown vendor", func() {
		_, err := s.svc.Notify(s.ctx, id.VendorID(uuid.New()), "")
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})
}
