package domain_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Zimam07/Sonjog/internal/domain"
)

func TestDirectPairKeyIsOrderIndependent(t *testing.T) {
	assert.Equal(t, "3:7", domain.DirectPairKey(7, 3))
	assert.Equal(t, domain.DirectPairKey(7, 3), domain.DirectPairKey(3, 7))
}

func TestConversationKeyValidate(t *testing.T) {
	tests := []struct {
		name    string
		key     domain.ConversationKey
		wantErr bool
	}{
		{"direct", domain.DirectKey(1, 2), false},
		{"direct with self", domain.DirectKey(1, 1), true},
		{"direct missing peer", domain.ConversationKey{Kind: domain.ConversationDirect, Participants: []int64{1}}, true},
		{"group", domain.GroupKey(5), false},
		{"group without id", domain.GroupKey(0), true},
		{"group with participants", domain.ConversationKey{Kind: domain.ConversationGroup, GroupID: 5, Participants: []int64{1, 2}}, true},
		{"unknown kind", domain.ConversationKey{Kind: "channel"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.key.Validate()
			if tt.wantErr {
				assert.ErrorIs(t, err, domain.ErrInvalidInput)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
