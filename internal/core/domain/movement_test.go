package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMovement_Signed(t *testing.T) {
	tests := []struct {
		kind MovementKind
		want Amount
	}{
		{MovementKindDeposit, 100},
		{MovementKindTipIn, 100},
		{MovementKindTipOut, -100},
		{MovementKindWithdrawal, -100},
	}

	for _, tt := range tests {
		t.Run(string(tt.kind), func(t *testing.T) {
			m := Movement{Kind: tt.kind, Amount: 100}
			assert.Equal(t, tt.want, m.Signed())
		})
	}
}

func TestMovement_NeedsAttention(t *testing.T) {
	assert.True(t, (&Movement{Status: MovementStatusUnknown}).NeedsAttention())
	assert.False(t, (&Movement{Status: MovementStatusPending}).NeedsAttention())
	assert.False(t, (&Movement{Status: MovementStatusCompleted}).NeedsAttention())
	assert.False(t, (&Movement{Status: MovementStatusReversed}).NeedsAttention())
}

func TestBuildIdempotencyKeys(t *testing.T) {
	assert.Equal(t, "tip:alice:msg-1", BuildTipIdempotencyKey("alice", "msg-1"))
	assert.Equal(t, "withdrawal:alice:wd-1", BuildWithdrawalIdempotencyKey("alice", "wd-1"))
}
