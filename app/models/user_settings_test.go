package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUserSettingsIssueAPIKey(t *testing.T) {
	us := &UserSettings{UserID: 1}

	key, err := us.IssueAPIKey()
	require.NoError(t, err)
	require.NotEmpty(t, key)

	assert.NotEmpty(t, us.APIKeyHash)
	assert.NotEmpty(t, us.APIKeyPrefix)
	assert.NotNil(t, us.APIKeyCreatedAt)
	assert.Nil(t, us.APIKeyLastUsedAt)
	assert.True(t, us.HasActiveAPIKey())
	assert.Equal(t, HashAPIKey(key), us.APIKeyHash)
}

func TestUserSettingsRevokeAPIKey(t *testing.T) {
	us := &UserSettings{UserID: 99}
	_, err := us.IssueAPIKey()
	require.NoError(t, err)

	us.RevokeAPIKey()

	assert.False(t, us.HasActiveAPIKey())
	assert.Equal(t, "", us.APIKeyHash)
	assert.Equal(t, "", us.APIKeyPrefix)
	assert.NotNil(t, us.APIKeyRevokedAt)
}

func TestNormalizePaymentMethod(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{in: "upi", want: PaymentMethodUPI},
		{in: "card", want: PaymentMethodCard},
		{in: "netbanking", want: PaymentMethodNetbanking},
		{in: "wallet", want: PaymentMethodWallet},
		{in: "emi", want: PaymentMethodUnknown},
		{in: "", want: PaymentMethodUnknown},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, NormalizePaymentMethod(tt.in))
	}
}
