package eduAuth

import (
	"strings"
	"time"

	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
)

// otpVerifier checks codes derived from the one shared secret. There is no
// per-principal state: every principal has the same code at a given instant,
// and a code stays valid for its whole window however often it is used.
type otpVerifier struct {
	secret    string
	period    uint
	skew      uint
	digits    otp.Digits
	algorithm otp.Algorithm
}

func newOTPVerifier(cfg OTPConfig) *otpVerifier {
	digits := otp.DigitsSix
	if cfg.Digits == 8 {
		digits = otp.DigitsEight
	}
	period := cfg.Period
	if period == 0 {
		period = 30
	}
	return &otpVerifier{
		secret:    normalizeOTPSecret(cfg.Secret),
		period:    period,
		skew:      cfg.Skew,
		digits:    digits,
		algorithm: otpAlgorithm(cfg.Algorithm),
	}
}

// Verify reports whether code matches at now within the configured skew.
func (v *otpVerifier) Verify(code string, now time.Time) bool {
	if v == nil {
		return false
	}
	return v.VerifyWindow(code, v.skew, now)
}

// VerifyWindow is Verify with an explicit number of tolerated periods on each
// side of now.
func (v *otpVerifier) VerifyWindow(code string, window uint, now time.Time) bool {
	if v == nil {
		return false
	}
	code = strings.TrimSpace(code)
	if len(code) != v.digits.Length() || !isNumericString(code) {
		return false
	}
	ok, err := totp.ValidateCustom(code, v.secret, now, totp.ValidateOpts{
		Period:    v.period,
		Skew:      window,
		Digits:    v.digits,
		Algorithm: v.algorithm,
	})
	return err == nil && ok
}

// Generate returns the code for now. Issuance is an acknowledgement only, so
// this is used by tooling and tests rather than the login flow.
func (v *otpVerifier) Generate(now time.Time) (string, error) {
	if v == nil {
		return "", ErrEngineNotReady
	}
	return totp.GenerateCodeCustom(v.secret, now, totp.ValidateOpts{
		Period:    v.period,
		Digits:    v.digits,
		Algorithm: v.algorithm,
	})
}

func otpAlgorithm(name string) otp.Algorithm {
	switch strings.ToUpper(name) {
	case "SHA256":
		return otp.AlgorithmSHA256
	case "SHA512":
		return otp.AlgorithmSHA512
	default:
		return otp.AlgorithmSHA1
	}
}

func normalizeOTPSecret(secret string) string {
	return strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(secret), " ", ""))
}

func isNumericString(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return s != ""
}
