package service

//go:generate mockgen -source=service.go -destination=mocks/mocks.go -package=mocks Store,VerificationReader,Vault,AuditLogger

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"vaultid/internal/audit"
	"vaultid/internal/share/models"
	"vaultid/internal/share/service/mocks"
	vaultmodels "vaultid/internal/vault/models"
	id "vaultid/pkg/domain"
	dErrors "vaultid/pkg/domain-errors"
	"vaultid/pkg/platform/sentinel"
)

// =============================================================================
// Share Service Unit Suite
// =============================================================================
// Collaborators are mocked so each branch of Issue, Redeem and Revoke can be
// driven directly, including races that are awkward to stage with real stores.

type ShareServiceSuite struct {
	suite.Suite
	ctx           context.Context
	ctrl          *gomock.Controller
	store         *mocks.MockStore
	verifications *mocks.MockVerificationReader
	vault         *mocks.MockVault
	auditor       *mocks.MockAuditLogger
	metrics       *Metrics
	service       *Service
	now           time.Time
}

func TestShareServiceSuite(t *testing.T) {
	suite.Run(t, new(ShareServiceSuite))
}

func (s *ShareServiceSuite) SetupTest() {
	s.ctx = context.Background()
	s.ctrl = gomock.NewController(s.T())
	s.store = mocks.NewMockStore(s.ctrl)
	s.verifications = mocks.NewMockVerificationReader(s.ctrl)
	s.vault = mocks.NewMockVault(s.ctrl)
	s.auditor = mocks.NewMockAuditLogger(s.ctrl)
	s.metrics = NewMetrics(prometheus.NewRegistry())
	s.now = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	var err error
	s.service, err = New(s.store, s.verifications, s.vault, s.auditor,
		WithMetrics(s.metrics),
		WithClock(func() time.Time { return s.now }),
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
	)
	s.Require().NoError(err)
}

func (s *ShareServiceSuite) TearDownTest() {
	s.ctrl.Finish()
}

func (s *ShareServiceSuite) verifiedRecord(owner id.IdentityID) *vaultmodels.VerificationRecord {
	rec, err := vaultmodels.NewPendingRecord(owner, vaultmodels.IDTypeNIN, "hash", s.now)
	s.Require().NoError(err)
	s.Require().NoError(rec.MarkVerified(vaultmodels.StorageKey(owner, rec.IDType), "0xroot", "0G Storage Network", s.now))
	rec.LedgerReference = "0xledger"
	return rec
}

func (s *ShareServiceSuite) activeCapability(rec *vaultmodels.VerificationRecord) *models.ShareCapability {
	c, err := models.NewShareCapability(rec.IdentityID, rec.ID, "0123456789abcdef0123456789abcdef", "bank", s.now)
	s.Require().NoError(err)
	return c
}

func (s *ShareServiceSuite) TestNew() {
	s.Run("nil store returns error", func() {
		_, err := New(nil, s.verifications, s.vault, s.auditor)
		s.ErrorContains(err, "share store is required")
	})
	s.Run("nil verification reader returns error", func() {
		_, err := New(s.store, nil, s.vault, s.auditor)
		s.ErrorContains(err, "verification store is required")
	})
	s.Run("nil vault returns error", func() {
		_, err := New(s.store, s.verifications, nil, s.auditor)
		s.ErrorContains(err, "vault is required")
	})
	s.Run("nil auditor returns error", func() {
		_, err := New(s.store, s.verifications, s.vault, nil)
		s.ErrorContains(err, "audit logger is required")
	})
}

func (s *ShareServiceSuite) TestIssue() {
	owner := id.NewIdentityID()

	s.Run("verified record yields active capability and event", func() {
		rec := s.verifiedRecord(owner)
		s.verifications.EXPECT().FindByID(gomock.Any(), rec.ID).Return(rec, nil)
		var created *models.ShareCapability
		s.store.EXPECT().Create(gomock.Any(), gomock.Any()).DoAndReturn(
			func(_ context.Context, c *models.ShareCapability) error {
				created = c
				return nil
			})
		s.auditor.EXPECT().Log(gomock.Any(), audit.EventShareLinkCreated, gomock.Any()).DoAndReturn(
			func(_ context.Context, _ audit.EventType, data map[string]any) (string, error) {
				s.Equal(owner.String(), data[audit.SubjectKey])
				s.Equal(created.Token, data["share_hash"])
				return "ref", nil
			})

		c, err := s.service.Issue(s.ctx, owner, rec.ID, "bank")
		s.Require().NoError(err)
		s.True(c.Active)
		s.Zero(c.AccessCount)
		s.Equal("bank", c.Label)
		s.NoError(models.ValidateToken(c.Token))
	})

	s.Run("record owned by someone else is not found", func() {
		rec := s.verifiedRecord(id.NewIdentityID())
		s.verifications.EXPECT().FindByID(gomock.Any(), rec.ID).Return(rec, nil)

		_, err := s.service.Issue(s.ctx, owner, rec.ID, "")
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})

	s.Run("unverified record is not found", func() {
		rec, err := vaultmodels.NewPendingRecord(owner, vaultmodels.IDTypeBVN, "hash", s.now)
		s.Require().NoError(err)
		s.verifications.EXPECT().FindByID(gomock.Any(), rec.ID).Return(rec, nil)

		_, err = s.service.Issue(s.ctx, owner, rec.ID, "")
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})

	s.Run("missing record is not found", func() {
		vid := id.NewVerificationID()
		s.verifications.EXPECT().FindByID(gomock.Any(), vid).Return(nil, sentinel.ErrNotFound)

		_, err := s.service.Issue(s.ctx, owner, vid, "")
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})

	s.Run("token collision retries with a fresh token", func() {
		rec := s.verifiedRecord(owner)
		s.verifications.EXPECT().FindByID(gomock.Any(), rec.ID).Return(rec, nil)
		var tokens []string
		s.store.EXPECT().Create(gomock.Any(), gomock.Any()).DoAndReturn(
			func(_ context.Context, c *models.ShareCapability) error {
				tokens = append(tokens, c.Token)
				if len(tokens) == 1 {
					return sentinel.ErrConflict
				}
				return nil
			}).Times(2)
		s.auditor.EXPECT().Log(gomock.Any(), audit.EventShareLinkCreated, gomock.Any()).Return("ref", nil)

		_, err := s.service.Issue(s.ctx, owner, rec.ID, "")
		s.Require().NoError(err)
		s.NotEqual(tokens[0], tokens[1])
	})

	s.Run("audit failure does not fail issue", func() {
		rec := s.verifiedRecord(owner)
		s.verifications.EXPECT().FindByID(gomock.Any(), rec.ID).Return(rec, nil)
		s.store.EXPECT().Create(gomock.Any(), gomock.Any()).Return(nil)
		s.auditor.EXPECT().Log(gomock.Any(), gomock.Any(), gomock.Any()).Return("", errors.New("disk full"))

		c, err := s.service.Issue(s.ctx, owner, rec.ID, "")
		s.NoError(err)
		s.NotNil(c)
	})

	s.Run("oversized label is rejected", func() {
		rec := s.verifiedRecord(owner)
		s.verifications.EXPECT().FindByID(gomock.Any(), rec.ID).Return(rec, nil)
		long := make([]byte, 256)
		for i := range long {
			long[i] = 'x'
		}

		_, err := s.service.Issue(s.ctx, owner, rec.ID, string(long))
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})
}

func (s *ShareServiceSuite) TestRedeem() {
	owner := id.NewIdentityID()
	payload := map[string]any{"first_name": "Ada"}

	s.Run("malformed token is a validation error", func() {
		for _, token := range []string{"", "short", "0123456789ABCDEF0123456789ABCDEF", "zz23456789abcdef0123456789abcdef"} {
			view, err := s.service.Redeem(s.ctx, token)
			s.Nil(view)
			s.True(dErrors.HasCode(err, dErrors.CodeValidation), token)
		}
	})

	s.Run("unknown or inactive token returns nil", func() {
		s.store.EXPECT().FindActiveByToken(gomock.Any(), gomock.Any()).Return(nil, sentinel.ErrNotFound)

		view, err := s.service.Redeem(s.ctx, "ffffffffffffffffffffffffffffffff")
		s.NoError(err)
		s.Nil(view)
	})

	s.Run("active token serves view and records access", func() {
		rec := s.verifiedRecord(owner)
		c := s.activeCapability(rec)
		s.store.EXPECT().FindActiveByToken(gomock.Any(), c.Token).Return(c, nil)
		s.verifications.EXPECT().FindByID(gomock.Any(), rec.ID).Return(rec, nil)
		s.vault.EXPECT().RetrieveVerification(gomock.Any(), rec.StorageKey).Return(payload, nil)
		s.store.EXPECT().RecordAccess(gomock.Any(), c.Token, s.now).Return(int64(1), nil)
		s.auditor.EXPECT().Log(gomock.Any(), audit.EventShareLinkAccessed, gomock.Any()).DoAndReturn(
			func(_ context.Context, _ audit.EventType, data map[string]any) (string, error) {
				s.Equal(owner.String(), data[audit.SubjectKey])
				s.Equal(c.Token, data["share_hash"])
				s.Equal(rec.ID.String(), data["verification_id"])
				return "ref", nil
			})

		view, err := s.service.Redeem(s.ctx, c.Token)
		s.Require().NoError(err)
		s.Equal("verified", view.Status)
		s.Equal("nin", view.IDType)
		s.Equal("NIN", view.IDTypeLabel)
		s.Equal(payload, view.Data)
		s.Equal("0xroot", view.Integrity.MerkleRoot)
		s.Equal("0xledger", view.Integrity.LedgerReference)
		s.Equal("0G Storage Network", view.Integrity.StoredOn)
		s.Equal(float64(1), testutil.ToFloat64(s.metrics.Redeemed.WithLabelValues(resultServed)))
	})

	s.Run("revoked between lookup and access returns nil without event", func() {
		rec := s.verifiedRecord(owner)
		c := s.activeCapability(rec)
		s.store.EXPECT().FindActiveByToken(gomock.Any(), c.Token).Return(c, nil)
		s.verifications.EXPECT().FindByID(gomock.Any(), rec.ID).Return(rec, nil)
		s.vault.EXPECT().RetrieveVerification(gomock.Any(), rec.StorageKey).Return(payload, nil)
		s.store.EXPECT().RecordAccess(gomock.Any(), c.Token, gomock.Any()).Return(int64(0), sentinel.ErrNotFound)

		view, err := s.service.Redeem(s.ctx, c.Token)
		s.NoError(err)
		s.Nil(view)
	})

	s.Run("record no longer verified returns nil", func() {
		rec, err := vaultmodels.NewPendingRecord(owner, vaultmodels.IDTypeNIN, "hash", s.now)
		s.Require().NoError(err)
		c := s.activeCapability(rec)
		s.store.EXPECT().FindActiveByToken(gomock.Any(), c.Token).Return(c, nil)
		s.verifications.EXPECT().FindByID(gomock.Any(), rec.ID).Return(rec, nil)

		view, err := s.service.Redeem(s.ctx, c.Token)
		s.NoError(err)
		s.Nil(view)
	})

	s.Run("missing payload returns nil without access", func() {
		rec := s.verifiedRecord(owner)
		c := s.activeCapability(rec)
		s.store.EXPECT().FindActiveByToken(gomock.Any(), c.Token).Return(c, nil)
		s.verifications.EXPECT().FindByID(gomock.Any(), rec.ID).Return(rec, nil)
		s.vault.EXPECT().RetrieveVerification(gomock.Any(), rec.StorageKey).Return(nil, nil)

		view, err := s.service.Redeem(s.ctx, c.Token)
		s.NoError(err)
		s.Nil(view)
	})

	s.Run("corrupted payload surfaces", func() {
		rec := s.verifiedRecord(owner)
		c := s.activeCapability(rec)
		s.store.EXPECT().FindActiveByToken(gomock.Any(), c.Token).Return(c, nil)
		s.verifications.EXPECT().FindByID(gomock.Any(), rec.ID).Return(rec, nil)
		s.vault.EXPECT().RetrieveVerification(gomock.Any(), rec.StorageKey).
			Return(nil, dErrors.New(dErrors.CodeDataCorrupted, "vault payload failed authentication"))

		_, err := s.service.Redeem(s.ctx, c.Token)
		s.True(dErrors.HasCode(err, dErrors.CodeDataCorrupted))
	})
}

func (s *ShareServiceSuite) TestRevoke() {
	owner := id.NewIdentityID()
	rec := s.verifiedRecord(owner)

	s.Run("owner revokes active capability", func() {
		c := s.activeCapability(rec)
		s.store.EXPECT().FindByID(gomock.Any(), c.ID).Return(c, nil)
		s.store.EXPECT().Deactivate(gomock.Any(), c.ID).Return(true, nil)
		s.auditor.EXPECT().Log(gomock.Any(), audit.EventShareLinkDeactivated, gomock.Any()).Return("ref", nil)

		s.NoError(s.service.Revoke(s.ctx, owner, c.ID))
	})

	s.Run("revoking twice is a silent no-op", func() {
		c := s.activeCapability(rec)
		c.Active = false
		s.store.EXPECT().FindByID(gomock.Any(), c.ID).Return(c, nil)
		s.store.EXPECT().Deactivate(gomock.Any(), c.ID).Return(false, nil)

		s.NoError(s.service.Revoke(s.ctx, owner, c.ID))
	})

	s.Run("non-owner is forbidden", func() {
		c := s.activeCapability(rec)
		s.store.EXPECT().FindByID(gomock.Any(), c.ID).Return(c, nil)

		err := s.service.Revoke(s.ctx, id.NewIdentityID(), c.ID)
		s.True(dErrors.HasCode(err, dErrors.CodeForbidden))
	})

	s.Run("unknown capability is not found", func() {
		shareID := id.NewShareID()
		s.store.EXPECT().FindByID(gomock.Any(), shareID).Return(nil, sentinel.ErrNotFound)

		err := s.service.Revoke(s.ctx, owner, shareID)
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})
}

func (s *ShareServiceSuite) TestStats() {
	owner := id.NewIdentityID()
	verified := s.verifiedRecord(owner)
	pending, err := vaultmodels.NewPendingRecord(owner, vaultmodels.IDTypeBVN, "hash", s.now)
	s.Require().NoError(err)

	active := s.activeCapability(verified)
	active.AccessCount = 3
	revoked := s.activeCapability(verified)
	revoked.Active = false
	revoked.AccessCount = 2

	s.verifications.EXPECT().ListByIdentity(gomock.Any(), owner).
		Return([]*vaultmodels.VerificationRecord{verified, pending}, nil)
	s.store.EXPECT().ListByIdentity(gomock.Any(), owner).
		Return([]*models.ShareCapability{active, revoked}, nil)

	stats, err := s.service.Stats(s.ctx, owner)
	s.Require().NoError(err)
	s.Equal(models.Stats{TotalVerified: 1, ActiveShares: 1, TotalAccesses: 5}, stats)
}
