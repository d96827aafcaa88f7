package store

import (
	"encoding/json"
	"time"

	"github.com/pkg/errors"
)

// otpValidityWindow is how long a patient OTP token remains usable after it
// was issued. A stored record older than this is treated as absent even if
// it is still physically present.
const otpValidityWindow = 14 * time.Minute

// OTPToken is the reduced-privilege credential produced by the patient
// one-time-passcode flow. It expires purely by elapsed time.
type OTPToken struct {
	Token     string    `json:"token"`
	CreatedAt time.Time `json:"createdAt"`
}

// Valid reports whether the record is usable at the given time.
func (t OTPToken) Valid(now time.Time) bool {
	if t.Token == "" {
		return false
	}
	return now.Sub(t.CreatedAt) <= otpValidityWindow
}

// OTPToken returns the stored patient OTP record if it is present, well
// formed and still within its validity window. Expired and malformed
// records are reported as absent.
func (s *Store) OTPToken() (OTPToken, bool) {
	raw, ok := s.backend.Get(PatientOTPTokenKey)
	if !ok {
		return OTPToken{}, false
	}
	var record OTPToken
	if err := json.Unmarshal([]byte(raw), &record); err != nil {
		return OTPToken{}, false
	}
	if !record.Valid(s.nowTime()) {
		return OTPToken{}, false
	}
	return record, true
}

// SetOTPToken stores a patient OTP record.
func (s *Store) SetOTPToken(record OTPToken) error {
	raw, err := json.Marshal(record)
	if err != nil {
		return errors.Wrap(err, "[Store.SetOTPToken] json.Marshal")
	}
	return s.Set(PatientOTPTokenKey, string(raw))
}

// ClearOTPToken removes the patient OTP record.
func (s *Store) ClearOTPToken() error {
	return s.Clear(PatientOTPTokenKey)
}
