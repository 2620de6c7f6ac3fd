package payment

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "gateway-secret"

func signedParams(bookingID, status, txnID string) url.Values {
	params := url.Values{}
	params.Set("booking_id", bookingID)
	params.Set("status", status)
	params.Set("transaction_id", txnID)
	params.Set("amount", "250000")
	params.Set("signature", Sign(params, []byte(testSecret)))
	return params
}

func TestVerifyValidSuccessCallback(t *testing.T) {
	v := NewHMACVerifier(testSecret)

	cb, err := v.Verify(signedParams("42", "success", "TXN-1"))
	require.NoError(t, err)
	assert.True(t, cb.SignatureValid)
	assert.True(t, cb.Success)
	assert.Equal(t, uint64(42), cb.BookingID)
	assert.Equal(t, "TXN-1", cb.TransactionID)
	assert.Equal(t, int64(250000), cb.AmountCents)
}

func TestVerifyFailedPaymentStillVerifies(t *testing.T) {
	v := NewHMACVerifier(testSecret)

	cb, err := v.Verify(signedParams("42", "failed", "TXN-1"))
	require.NoError(t, err)
	assert.True(t, cb.SignatureValid)
	assert.False(t, cb.Success)
}

func TestVerifyTamperedParamsInvalidateSignature(t *testing.T) {
	v := NewHMACVerifier(testSecret)
	params := signedParams("42", "failed", "TXN-1")
	params.Set("status", "success") // flip outcome after signing

	cb, err := v.Verify(params)
	require.NoError(t, err)
	assert.False(t, cb.SignatureValid)
}

func TestVerifyMissingSignatureIsInvalid(t *testing.T) {
	v := NewHMACVerifier(testSecret)
	params := signedParams("42", "success", "TXN-1")
	params.Del("signature")

	cb, err := v.Verify(params)
	require.NoError(t, err)
	assert.False(t, cb.SignatureValid)
}

func TestVerifyUnparsableBookingIDIsAnError(t *testing.T) {
	v := NewHMACVerifier(testSecret)
	params := signedParams("not-a-number", "success", "TXN-1")

	_, err := v.Verify(params)
	assert.Error(t, err)
}
