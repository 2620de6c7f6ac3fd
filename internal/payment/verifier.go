// Package payment parses and verifies gateway return callbacks.  The
// coordinator only ever sees a verified Callback: a callback with a bad
// signature is reported as such and must not change any booking state.
package payment

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"net/url"
	"sort"
	"strconv"
	"strings"
)

// Callback is the verified outcome of a payment attempt as reported by
// the gateway's return redirect.
type Callback struct {
	BookingID      uint64
	Success        bool
	TransactionID  string
	AmountCents    int64
	SignatureValid bool
}

// Verifier turns raw gateway return parameters into a Callback.
type Verifier interface {
	Verify(params url.Values) (Callback, error)
}

// HMACVerifier verifies callbacks signed with HMAC-SHA256 over the
// sorted query parameters, the scheme used by VNPay-style gateways.
type HMACVerifier struct {
	secret []byte
}

// NewHMACVerifier returns a Verifier using the given shared secret.
func NewHMACVerifier(secret string) *HMACVerifier {
	return &HMACVerifier{secret: []byte(secret)}
}

// Verify parses the return parameters and checks the signature.  A bad
// or missing signature yields SignatureValid=false with no error; the
// caller decides whether to log or reject.  Parse failures on required
// fields are errors because the callback cannot be acted on at all.
func (v *HMACVerifier) Verify(params url.Values) (Callback, error) {
	bookingID, err := strconv.ParseUint(params.Get("booking_id"), 10, 64)
	if err != nil {
		return Callback{}, err
	}
	var amount int64
	if raw := params.Get("amount"); raw != "" {
		amount, err = strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return Callback{}, err
		}
	}
	cb := Callback{
		BookingID:     bookingID,
		Success:       params.Get("status") == "success",
		TransactionID: params.Get("transaction_id"),
		AmountCents:   amount,
	}
	cb.SignatureValid = hmac.Equal(
		[]byte(params.Get("signature")),
		[]byte(Sign(params, v.secret)),
	)
	return cb, nil
}

// Sign computes the hex HMAC-SHA256 signature of the parameters,
// excluding the signature field itself, over "k=v" pairs joined with
// "&" in sorted key order.  Exported so tests and local tooling can
// produce valid callbacks.
func Sign(params url.Values, secret []byte) string {
	keys := make([]string, 0, len(params))
	for k := range params {
		if k == "signature" {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)
	pairs := make([]string, 0, len(keys))
	for _, k := range keys {
		pairs = append(pairs, k+"="+params.Get(k))
	}
	mac := hmac.New(sha256.New, secret)
	mac.Write([]byte(strings.Join(pairs, "&")))
	return hex.EncodeToString(mac.Sum(nil))
}
