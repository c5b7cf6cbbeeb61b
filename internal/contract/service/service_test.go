package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	promtestutil "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	bookingModels "ranchdesk/internal/booking/models"
	"ranchdesk/internal/contract/artifact"
	"ranchdesk/internal/contract/metrics"
	"ranchdesk/internal/contract/models"
	"ranchdesk/internal/contract/render"
	"ranchdesk/internal/contract/store"
	id "ranchdesk/pkg/domain"
	dErrors "ranchdesk/pkg/domain-errors"
	"ranchdesk/pkg/platform/audit"
	auditmemory "ranchdesk/pkg/platform/audit/store/memory"
	"ranchdesk/pkg/platform/sentinel"
	"ranchdesk/pkg/requestcontext"
)

// switchableAuditStore fails appends while failing is set.
type switchableAuditStore struct {
	*auditmemory.InMemoryStore
	mu      sync.Mutex
	failing bool
}

func (s *switchableAuditStore) setFailing(v bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failing = v
}

func (s *switchableAuditStore) Append(ctx context.Context, e *audit.Entry) error {
	s.mu.Lock()
	failing := s.failing
	s.mu.Unlock()
	if failing {
		return errors.New("audit db unavailable")
	}
	return s.InMemoryStore.Append(ctx, e)
}

// flakyArtifacts injects errors in front of a memory store.
type flakyArtifacts struct {
	*artifact.MemoryStore
	putErr error
	getErr error
}

func (f *flakyArtifacts) Put(ctx context.Context, key string, data []byte, contentType string) error {
	if f.putErr != nil {
		return f.putErr
	}
	return f.MemoryStore.Put(ctx, key, data, contentType)
}

func (f *flakyArtifacts) Get(ctx context.Context, key string) ([]byte, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	return f.MemoryStore.Get(ctx, key)
}

// racingStore lets a rival generation commit between the caller's locked
// read and its insert, and can abort whole transactions transiently.
type racingStore struct {
	*store.InMemoryStore
	mu         sync.Mutex
	rival      *models.Contract
	raced      bool
	txFailures int
}

func (r *racingStore) Create(ctx context.Context, c *models.Contract) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.rival != nil && !r.raced {
		r.raced = true
		return fmt.Errorf("contract for booking %s: %w", c.BookingID, sentinel.ErrConflict)
	}
	return r.InMemoryStore.Create(ctx, c)
}

func (r *racingStore) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	r.mu.Lock()
	if r.txFailures > 0 {
		r.txFailures--
		r.mu.Unlock()
		return fmt.Errorf("commit tx: deadlock detected: %w", sentinel.ErrUnavailable)
	}
	r.mu.Unlock()

	err := r.InMemoryStore.RunInTx(ctx, fn)

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.raced && r.rival != nil {
		// the rival's transaction commits after ours rolled back
		r.InMemoryStore.Overwrite(*r.rival)
		r.rival = nil
	}
	return err
}

type failingRenderer struct{}

func (failingRenderer) Render(bookingModels.Booking) (render.Document, error) {
	return render.Document{}, errors.New("template: missing field")
}

type ServiceSuite struct {
	suite.Suite
	contracts  *store.InMemoryStore
	artifacts  *flakyArtifacts
	auditStore *switchableAuditStore
	auditLog   *audit.Logger
	now        time.Time
	service    *Service
	booking    bookingModels.Booking
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

func (s *ServiceSuite) SetupTest() {
	s.now = time.Date(2026, 6, 1, 9, 0, 0, 0, time.UTC)
	s.contracts = store.NewInMemory()
	s.artifacts = &flakyArtifacts{MemoryStore: artifact.NewMemoryStore()}
	s.auditStore = &switchableAuditStore{InMemoryStore: auditmemory.NewInMemoryStore()}
	s.auditLog = audit.NewLogger(s.auditStore, audit.WithClock(s.clock))
	s.service = s.newService()
	s.booking = bookingModels.Booking{
		ID:        id.NewBookingID(),
		Status:    bookingModels.StatusConfirmed,
		Label:     "Anders wedding party",
		Unit:      "Lodge A",
		StartDate: time.Date(2026, 8, 14, 0, 0, 0, 0, time.UTC),
		EndDate:   time.Date(2026, 8, 17, 0, 0, 0, 0, time.UTC),
		Price:     bookingModels.Money{Minor: 340000, Currency: "USD"},
	}
}

func (s *ServiceSuite) clock() time.Time { return s.now }

func (s *ServiceSuite) newService(opts ...Option) *Service {
	return s.newServiceOn(s.contracts, opts...)
}

func (s *ServiceSuite) newServiceOn(contracts ContractStore, opts ...Option) *Service {
	base := []Option{
		WithClock(s.clock),
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
	}
	return New(contracts, s.artifacts, s.auditLog, append(base, opts...)...)
}

func (s *ServiceSuite) testMetrics() *metrics.Metrics {
	return metrics.NewWithRegisterer(prometheus.NewRegistry())
}

func (s *ServiceSuite) trail(contractID id.ContractID, actions ...audit.Action) []audit.Entry {
	entries, err := s.auditLog.FindForEntityByActions(context.Background(), audit.EntityContract, contractID.String(), actions)
	s.Require().NoError(err)
	return entries
}

func sha(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// sign stores signed bytes and records the signature through the service.
func (s *ServiceSuite) sign(c *models.Contract, body []byte) *models.Contract {
	signedPath := "signed/" + c.ID.String() + ".pdf"
	s.Require().NoError(s.artifacts.Put(context.Background(), signedPath, body, "application/pdf"))
	signed, err := s.service.RecordSignature(context.Background(), c.ID, models.SignedArtifact{
		Path: signedPath, Hash: sha(body), SignedAt: s.now,
	})
	s.Require().NoError(err)
	return signed
}

func (s *ServiceSuite) TestGenerateCreatesContract() {
	c, err := s.service.Generate(context.Background(), s.booking)
	s.Require().NoError(err)

	s.Equal(models.StatusGenerated, c.Status)
	s.Equal(s.booking.ID, c.BookingID)

	body, err := s.artifacts.Get(context.Background(), c.Path)
	s.Require().NoError(err)
	s.Equal(sha(body), c.Hash, "stored hash matches the stored bytes")
	s.Equal("text/plain; charset=utf-8", s.artifacts.ContentType(c.Path))

	entries := s.trail(c.ID)
	s.Require().Len(entries, 1)
	s.Equal(audit.ActionContractGenerated, entries[0].Action)
	s.Equal(map[string]string{
		"hash":        c.Hash,
		"path":        c.Path,
		"booking_id":  s.booking.ID.String(),
		"regenerated": "false",
	}, entries[0].Metadata)
}

func (s *ServiceSuite) TestRegenerateIsIdempotent() {
	ctx := context.Background()
	first, err := s.service.Generate(ctx, s.booking)
	s.Require().NoError(err)

	s.now = s.now.Add(time.Hour)
	second, err := s.service.GenerateWith(ctx, s.booking, first)
	s.Require().NoError(err)

	s.Equal(first.ID, second.ID)
	s.Equal(first.Hash, second.Hash)
	s.Equal(first.Path, second.Path)
	s.Equal(1, s.contracts.Len())

	entries := s.trail(first.ID, audit.ActionContractGenerated)
	s.Require().Len(entries, 2)
	s.Equal("true", entries[1].Metadata["regenerated"])
}

func (s *ServiceSuite) TestRegenerateReflectsBookingChanges() {
	ctx := context.Background()
	first, err := s.service.Generate(ctx, s.booking)
	s.Require().NoError(err)

	s.booking.Unit = "Lodge B"
	second, err := s.service.Generate(ctx, s.booking)
	s.Require().NoError(err)

	s.Equal(first.ID, second.ID)
	s.NotEqual(first.Hash, second.Hash)

	oldBody, err := s.artifacts.Get(ctx, first.Path)
	s.Require().NoError(err)
	s.Equal(first.Hash, sha(oldBody), "earlier artifact is never overwritten")
}

func (s *ServiceSuite) TestSignedContractIsNeverRegenerated() {
	ctx := context.Background()
	c, err := s.service.Generate(ctx, s.booking)
	s.Require().NoError(err)
	signed := s.sign(c, []byte("%PDF signed"))
	objects := s.artifacts.Len()
	trailLen := len(s.trail(c.ID))

	s.booking.Label = "changed after signing"
	got, err := s.service.Generate(ctx, s.booking)
	s.Require().NoError(err)

	s.Equal(signed, got)
	s.Equal(objects, s.artifacts.Len(), "no artifact written")
	s.Len(s.trail(c.ID), trailLen, "no audit entry for a no-op")

	stored, err := s.contracts.FindByID(ctx, c.ID)
	s.Require().NoError(err)
	s.Equal(signed.Hash, stored.Hash)
	s.Equal(signed.SignedHash, stored.SignedHash)
}

func (s *ServiceSuite) TestStaleHintDoesNotOverrideStoredState() {
	ctx := context.Background()
	c, err := s.service.Generate(ctx, s.booking)
	s.Require().NoError(err)
	stale := *c
	s.sign(c, []byte("signed bytes"))

	got, err := s.service.GenerateWith(ctx, s.booking, &stale)
	s.Require().NoError(err)
	s.Equal(models.StatusSigned, got.Status)
}

func (s *ServiceSuite) TestGenerateRejectsMismatchedHint() {
	other := &models.Contract{ID: id.NewContractID(), BookingID: id.NewBookingID()}
	_, err := s.service.GenerateWith(context.Background(), s.booking, other)
	s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))
}

func (s *ServiceSuite) TestArtifactFailureLeavesNoRow() {
	s.artifacts.putErr = errors.New("bucket unreachable")

	c, err := s.service.Generate(context.Background(), s.booking)
	s.Nil(c)
	s.True(dErrors.HasCode(err, dErrors.CodeGenerationFailed))
	s.Equal(0, s.contracts.Len())
	s.Equal(0, s.auditStore.Len())
}

func (s *ServiceSuite) TestLostCreateRaceUpdatesTheWinningRow() {
	rival, err := models.NewContract(id.NewContractID(), s.booking.ID, s.now)
	s.Require().NoError(err)
	_, err = rival.ApplyArtifact("contracts/"+rival.ID.String()+"/rival.txt", "rival", s.now)
	s.Require().NoError(err)

	racing := &racingStore{InMemoryStore: s.contracts, rival: rival}
	m := s.testMetrics()
	svc := s.newServiceOn(racing, WithMetrics(m))

	c, err := svc.Generate(context.Background(), s.booking)
	s.Require().NoError(err)

	s.Equal(rival.ID, c.ID, "the loser adopts the committed row")
	s.Equal(1, s.contracts.Len())
	s.Equal(float64(1), promtestutil.ToFloat64(m.GenerationRetries))

	stored, err := s.contracts.FindByBookingID(context.Background(), s.booking.ID)
	s.Require().NoError(err)
	s.Equal(c.Hash, stored.Hash)
	body, err := s.artifacts.Get(context.Background(), stored.Path)
	s.Require().NoError(err)
	s.Equal(stored.Hash, sha(body))

	entries := s.trail(rival.ID, audit.ActionContractGenerated)
	s.Require().Len(entries, 1)
	s.Equal("true", entries[0].Metadata["regenerated"])
}

func (s *ServiceSuite) TestTransientTxFailureIsRetried() {
	racing := &racingStore{InMemoryStore: s.contracts, txFailures: 1}
	m := s.testMetrics()
	svc := s.newServiceOn(racing, WithMetrics(m))

	c, err := svc.Generate(context.Background(), s.booking)
	s.Require().NoError(err)
	s.Equal(models.StatusGenerated, c.Status)
	s.Equal(1, s.contracts.Len())
	s.Equal(float64(1), promtestutil.ToFloat64(m.GenerationRetries))
}

func (s *ServiceSuite) TestRetriesAreBounded() {
	racing := &racingStore{InMemoryStore: s.contracts, txFailures: 10}
	m := s.testMetrics()
	svc := s.newServiceOn(racing, WithMetrics(m), WithMaxAttempts(3))

	c, err := svc.Generate(context.Background(), s.booking)
	s.Nil(c)
	s.True(dErrors.HasCode(err, dErrors.CodeGenerationFailed))
	s.ErrorIs(err, sentinel.ErrUnavailable)
	s.Equal(0, s.contracts.Len())
	s.Equal(float64(2), promtestutil.ToFloat64(m.GenerationRetries))
	s.Equal(7, racing.txFailures, "exactly three attempts ran")
}

func (s *ServiceSuite) TestRenderFailureIsGenerationFailure() {
	svc := s.newService(WithRenderer(failingRenderer{}))

	c, err := svc.Generate(context.Background(), s.booking)
	s.Nil(c)
	s.True(dErrors.HasCode(err, dErrors.CodeGenerationFailed))
	s.Equal(0, s.artifacts.Len())
	s.Equal(0, s.contracts.Len())
}

func (s *ServiceSuite) TestAuditFailureReturnsContractAndPartialFailure() {
	s.auditStore.setFailing(true)

	c, err := s.service.Generate(context.Background(), s.booking)
	s.Require().NotNil(c)
	s.True(dErrors.HasCode(err, dErrors.CodeAuditIncomplete))

	stored, findErr := s.contracts.FindByBookingID(context.Background(), s.booking.ID)
	s.Require().NoError(findErr)
	s.Equal(c.Hash, stored.Hash, "the contract write is kept")
}

func (s *ServiceSuite) TestValidateUnsigned() {
	c, err := s.service.Generate(context.Background(), s.booking)
	s.Require().NoError(err)

	result, err := s.service.Validate(context.Background(), c)
	s.Require().NoError(err)
	s.Equal(models.ValidationUnsigned, result.Status)
	s.Equal(c.Hash, result.CalculatedHash)
	s.Equal(s.now, result.CheckedAt)

	entries := s.trail(c.ID, audit.ActionContractVerified)
	s.Require().Len(entries, 1)
	s.Equal("UNSIGNED", entries[0].Metadata["status"])
	s.Equal(c.Hash, entries[0].Metadata["calculated_hash"])
}

func (s *ServiceSuite) TestValidateUnsignedRecheckFlagsMismatch() {
	ctx := context.Background()
	c, err := s.service.Generate(ctx, s.booking)
	s.Require().NoError(err)
	s.Require().NoError(s.artifacts.Put(ctx, c.Path, []byte("edited"), "text/plain"))

	svc := s.newService(WithUnsignedRecheck(true))
	result, err := svc.Validate(ctx, c)
	s.Require().NoError(err)
	s.Equal(models.ValidationUnsigned, result.Status)

	entries := s.trail(c.ID, audit.ActionContractVerified)
	s.Require().Len(entries, 1)
	s.Equal("true", entries[0].Metadata["unsigned_mismatch"])
}

func (s *ServiceSuite) TestValidateSignedThenTampered() {
	ctx := requestcontext.WithClientMetadata(context.Background(), "10.0.0.1",
		"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.0 Safari/605.1.15")
	ctx = requestcontext.WithActor(ctx, "admin-1")

	c, err := s.service.Generate(ctx, s.booking)
	s.Require().NoError(err)
	signed := s.sign(c, []byte("%PDF-1.7 signed"))

	result, err := s.service.Validate(ctx, signed)
	s.Require().NoError(err)
	s.Equal(models.ValidationValid, result.Status)
	s.Equal(signed.SignedHash, result.CalculatedHash)

	s.Require().NoError(s.artifacts.Put(ctx, signed.SignedPath, []byte("%PDF-1.7 forged"), "application/pdf"))
	result, err = s.service.Validate(ctx, signed)
	s.Require().NoError(err)
	s.Equal(models.ValidationTampered, result.Status)
	s.Equal(sha([]byte("%PDF-1.7 forged")), result.CalculatedHash)

	entries := s.trail(c.ID, audit.ActionContractVerified)
	s.Require().Len(entries, 2)
	s.Equal("VALID", entries[0].Metadata["status"])
	s.Equal("TAMPERED", entries[1].Metadata["status"])
	s.Equal("admin-1", entries[1].Metadata["actor"])
	s.NotEmpty(entries[1].Metadata["client"])

	stored, err := s.contracts.FindByID(ctx, c.ID)
	s.Require().NoError(err)
	s.Equal(signed, stored, "validation never writes the contract")
}

func (s *ServiceSuite) TestValidateMissingSignedArtifactIsTampered() {
	ctx := context.Background()
	c, err := s.service.Generate(ctx, s.booking)
	s.Require().NoError(err)
	signed := s.sign(c, []byte("signed"))
	s.artifacts.Delete(signed.SignedPath)

	result, err := s.service.Validate(ctx, signed)
	s.Require().NoError(err)
	s.Equal(models.ValidationTampered, result.Status)
	s.Empty(result.CalculatedHash)
}

func (s *ServiceSuite) TestValidateTransientReadErrorIsReturned() {
	ctx := context.Background()
	c, err := s.service.Generate(ctx, s.booking)
	s.Require().NoError(err)
	signed := s.sign(c, []byte("signed"))
	before := len(s.trail(c.ID))

	s.artifacts.getErr = errors.New("connection reset")
	_, err = s.service.Validate(ctx, signed)
	s.Require().Error(err)
	s.Len(s.trail(c.ID), before, "no audit entry for an unfinished check")
}

func (s *ServiceSuite) TestValidateExpiry() {
	ctx := context.Background()
	c, err := s.service.Generate(ctx, s.booking)
	s.Require().NoError(err)
	signed := s.sign(c, []byte("signed"))

	svc := s.newService(WithExpiryPolicy(models.FixedWindow{Window: 24 * time.Hour}))
	result, err := svc.Validate(ctx, signed)
	s.Require().NoError(err)
	s.Equal(models.ValidationValid, result.Status)

	s.now = s.now.Add(48 * time.Hour)
	result, err = svc.Validate(ctx, signed)
	s.Require().NoError(err)
	s.Equal(models.ValidationExpired, result.Status)
}

func (s *ServiceSuite) TestValidateSignedWithoutTimestampIsExpired() {
	ctx := context.Background()
	body := []byte("legacy signed")
	s.Require().NoError(s.artifacts.Put(ctx, "signed/legacy.pdf", body, "application/pdf"))
	c := &models.Contract{
		ID: id.NewContractID(), BookingID: s.booking.ID, Status: models.StatusSigned,
		Path: "contracts/legacy.txt", Hash: sha([]byte("x")),
		SignedPath: "signed/legacy.pdf", SignedHash: sha(body),
	}

	result, err := s.service.Validate(ctx, c)
	s.Require().NoError(err)
	s.Equal(models.ValidationExpired, result.Status)
}

func (s *ServiceSuite) TestValidateAuditFailureStillClassifies() {
	c, err := s.service.Generate(context.Background(), s.booking)
	s.Require().NoError(err)
	s.auditStore.setFailing(true)

	result, err := s.service.Validate(context.Background(), c)
	s.True(dErrors.HasCode(err, dErrors.CodeAuditIncomplete))
	s.Equal(models.ValidationUnsigned, result.Status)
}

func (s *ServiceSuite) TestRecordSignatureIsWriteOnce() {
	ctx := context.Background()
	c, err := s.service.Generate(ctx, s.booking)
	s.Require().NoError(err)
	first := s.sign(c, []byte("first"))

	_, err = s.service.RecordSignature(ctx, c.ID, models.SignedArtifact{
		Path: "signed/second.pdf", Hash: sha([]byte("second")), SignedAt: s.now,
	})
	s.True(dErrors.HasCode(err, dErrors.CodeConflict))

	stored, err := s.contracts.FindByID(ctx, c.ID)
	s.Require().NoError(err)
	s.Equal(first.SignedPath, stored.SignedPath)
	s.Equal(first.SignedHash, stored.SignedHash)
	s.Len(s.trail(c.ID, audit.ActionContractSigned), 1)
}

func (s *ServiceSuite) TestRecordSignatureErrors() {
	ctx := context.Background()

	_, err := s.service.RecordSignature(ctx, id.NewContractID(), models.SignedArtifact{
		Path: "p", Hash: sha([]byte("x")), SignedAt: s.now,
	})
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))

	_, err = s.service.RecordSignature(ctx, id.NewContractID(), models.SignedArtifact{Path: "p", Hash: "XYZ", SignedAt: s.now})
	s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))
}

func (s *ServiceSuite) TestDownloadAndAuditTrail() {
	ctx := context.Background()
	c, err := s.service.Generate(ctx, s.booking)
	s.Require().NoError(err)
	_, err = s.service.Validate(ctx, c)
	s.Require().NoError(err)

	dl, err := s.service.DownloadUnsigned(ctx, c.ID)
	s.Require().NoError(err)
	s.Equal(c.Hash, sha(dl.Body))
	s.Equal("text/plain; charset=utf-8", dl.ContentType)
	s.Equal("contract-"+c.ID.String()+".txt", dl.Filename)

	all, err := s.service.AuditTrail(ctx, c.ID, nil)
	s.Require().NoError(err)
	s.Require().Len(all, 2)
	s.Equal(audit.ActionContractGenerated, all[0].Action)
	s.Equal(audit.ActionContractVerified, all[1].Action)

	verified, err := s.service.AuditTrail(ctx, c.ID, []audit.Action{audit.ActionContractVerified})
	s.Require().NoError(err)
	s.Len(verified, 1)

	_, err = s.service.AuditTrail(ctx, id.NewContractID(), nil)
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
}

func TestConcurrentGenerateConvergesOnOneContract(t *testing.T) {
	contracts := store.NewInMemory()
	artifacts := artifact.NewMemoryStore()
	auditStore := auditmemory.NewInMemoryStore()
	svc := New(contracts, artifacts, audit.NewLogger(auditStore))

	b := bookingModels.Booking{
		ID:        id.NewBookingID(),
		Status:    bookingModels.StatusConfirmed,
		Label:     "Concurrent",
		Unit:      "Cabin 1",
		StartDate: time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC),
		EndDate:   time.Date(2026, 9, 3, 0, 0, 0, 0, time.UTC),
		Price:     bookingModels.Money{Minor: 50000, Currency: "USD"},
	}

	const workers = 12
	results := make([]*models.Contract, workers)
	errs := make([]error, workers)
	var wg sync.WaitGroup
	for i := range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i], errs[i] = svc.Generate(context.Background(), b)
		}()
	}
	wg.Wait()

	for i := range workers {
		require.NoError(t, errs[i])
		assert.Equal(t, results[0].ID, results[i].ID)
		assert.Equal(t, results[0].Hash, results[i].Hash)
	}
	assert.Equal(t, 1, contracts.Len())

	body, err := artifacts.Get(context.Background(), results[0].Path)
	require.NoError(t, err)
	assert.Equal(t, results[0].Hash, sha(body))
	assert.Equal(t, workers, auditStore.Len())
}
