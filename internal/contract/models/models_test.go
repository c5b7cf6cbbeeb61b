package models

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	id "ranchdesk/pkg/domain"
	dErrors "ranchdesk/pkg/domain-errors"
)

func TestTransitionIsTotal(t *testing.T) {
	tests := []struct {
		from    Status
		event   Event
		want    Status
		wantErr bool
	}{
		{StatusQueued, EventArtifactWritten, StatusGenerated, false},
		{StatusGenerated, EventArtifactWritten, StatusGenerated, false},
		{StatusSigned, EventArtifactWritten, StatusSigned, false},
		{StatusGenerated, EventSigned, StatusSigned, false},
		{StatusSigned, EventSigned, StatusSigned, false},
		{StatusQueued, EventSigned, StatusQueued, true},
	}
	for _, tt := range tests {
		t.Run(string(tt.from)+"+"+string(tt.event), func(t *testing.T) {
			got, err := Transition(tt.from, tt.event)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, dErrors.HasCode(err, dErrors.CodeInvariantViolation))
			} else {
				require.NoError(t, err)
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestTransitionRejectsUnknownInputs(t *testing.T) {
	_, err := Transition("ARCHIVED", EventArtifactWritten)
	assert.Error(t, err)
	_, err = Transition(StatusGenerated, "deleted")
	assert.Error(t, err)
}

func newGenerated(t *testing.T) *Contract {
	t.Helper()
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	c, err := NewContract(id.NewContractID(), id.NewBookingID(), now)
	require.NoError(t, err)
	changed, err := c.ApplyArtifact("contracts/x/a.txt", strings.Repeat("a", 64), now)
	require.NoError(t, err)
	require.True(t, changed)
	return c
}

func TestNewContractStartsQueued(t *testing.T) {
	c, err := NewContract(id.NewContractID(), id.NewBookingID(), time.Now())
	require.NoError(t, err)
	assert.Equal(t, StatusQueued, c.Status)

	_, err = NewContract(id.ContractID{}, id.NewBookingID(), time.Now())
	assert.Error(t, err)
}

func TestApplyArtifactOnSignedIsNoop(t *testing.T) {
	c := newGenerated(t)
	require.NoError(t, c.ApplySignature(SignedArtifact{
		Path: "signed/x.pdf", Hash: strings.Repeat("b", 64), SignedAt: time.Now(),
	}, time.Now()))
	before := *c

	changed, err := c.ApplyArtifact("contracts/x/other.txt", strings.Repeat("c", 64), time.Now())
	require.NoError(t, err)
	assert.False(t, changed)
	assert.Equal(t, before, *c)
}

func TestApplySignatureIsWriteOnce(t *testing.T) {
	c := newGenerated(t)
	sig := SignedArtifact{Path: "signed/x.pdf", Hash: strings.Repeat("b", 64), SignedAt: time.Now()}
	require.NoError(t, c.ApplySignature(sig, time.Now()))
	assert.Equal(t, StatusSigned, c.Status)

	err := c.ApplySignature(SignedArtifact{Path: "signed/y.pdf", Hash: strings.Repeat("d", 64), SignedAt: time.Now()}, time.Now())
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeConflict))
	assert.Equal(t, "signed/x.pdf", c.SignedPath)
}

func TestSignedArtifactValidate(t *testing.T) {
	ok := SignedArtifact{Path: "p", Hash: strings.Repeat("0", 64), SignedAt: time.Now()}
	assert.NoError(t, ok.Validate())

	bad := ok
	bad.Hash = strings.Repeat("Z", 64)
	assert.Error(t, bad.Validate())

	bad = ok
	bad.Path = ""
	assert.Error(t, bad.Validate())

	bad = ok
	bad.SignedAt = time.Time{}
	assert.Error(t, bad.Validate())
}

func TestExpiryPolicies(t *testing.T) {
	signed := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	later := signed.Add(48 * time.Hour)

	assert.False(t, NoExpiry{}.Expired(signed, later.Add(100000*time.Hour)))
	assert.False(t, FixedWindow{Window: 72 * time.Hour}.Expired(signed, later))
	assert.True(t, FixedWindow{Window: 24 * time.Hour}.Expired(signed, later))

	assert.IsType(t, NoExpiry{}, PolicyFor(0))
	assert.IsType(t, FixedWindow{}, PolicyFor(time.Hour))
}
