package account

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha1"
	"crypto/sha256"
	"crypto/sha512"
	"crypto/subtle"
	"encoding/base32"
	"encoding/binary"
	"hash"
	"net/url"
	"strconv"
	"strings"
	"time"

	goerrors "github.com/goliatone/go-errors"
)

const totpSecretBytes = 20

// CodeParams describe how a one time code is derived from a shared secret.
// The zero value is not usable; records created through the ledger always
// carry a full set.
type CodeParams struct {
	Secret    string
	Algorithm string
	Digits    int
	Period    int
	CharSet   string
}

// GenerateSecret returns a random base32 encoded secret without padding
func GenerateSecret() (string, error) {
	raw := make([]byte, totpSecretBytes)
	if _, err := rand.Read(raw); err != nil {
		return "", goerrors.Wrap(err, goerrors.CategoryInternal, "failed to generate verification secret")
	}

	enc := base32.StdEncoding.WithPadding(base32.NoPadding)
	return enc.EncodeToString(raw), nil
}

// GenerateCode derives the code for the time window containing t. The
// truncated HMAC value is rendered in the configured character set; for the
// decimal character set this matches the RFC 6238 derivation exactly.
func GenerateCode(params CodeParams, t time.Time) (string, error) {
	counter := t.Unix() / int64(params.Period)
	return codeForCounter(params, counter)
}

// VerifyCodeAt compares the submitted code against the current window and
// `skew` adjacent windows on each side, in constant time per candidate.
func VerifyCodeAt(params CodeParams, submitted string, now time.Time, skew int) (bool, error) {
	trimmed := strings.TrimSpace(submitted)
	if len(trimmed) != params.Digits {
		return false, nil
	}

	baseCounter := now.Unix() / int64(params.Period)
	for step := -skew; step <= skew; step++ {
		counter := baseCounter + int64(step)
		if counter < 0 {
			continue
		}
		generated, err := codeForCounter(params, counter)
		if err != nil {
			return false, err
		}
		if subtle.ConstantTimeCompare([]byte(generated), []byte(trimmed)) == 1 {
			return true, nil
		}
	}

	return false, nil
}

// ProvisionURI renders the otpauth URI for authenticator apps
func ProvisionURI(params CodeParams, issuer, account string) string {
	label := url.PathEscape(issuer + ":" + account)

	v := url.Values{}
	v.Set("secret", params.Secret)
	v.Set("issuer", issuer)
	v.Set("period", strconv.Itoa(params.Period))
	v.Set("digits", strconv.Itoa(params.Digits))
	v.Set("algorithm", strings.ToUpper(params.Algorithm))

	return "otpauth://totp/" + label + "?" + v.Encode()
}

func codeForCounter(params CodeParams, counter int64) (string, error) {
	if params.Secret == "" {
		return "", goerrors.New("verification secret is empty", goerrors.CategoryInternal)
	}
	if params.Digits <= 0 || params.Period <= 0 || len(params.CharSet) < 2 {
		return "", goerrors.New("invalid verification code parameters", goerrors.CategoryInternal).
			WithMetadata(map[string]any{
				"digits":   params.Digits,
				"period":   params.Period,
				"char_set": params.CharSet,
			})
	}

	enc := base32.StdEncoding.WithPadding(base32.NoPadding)
	secret, err := enc.DecodeString(strings.ToUpper(params.Secret))
	if err != nil {
		return "", goerrors.Wrap(err, goerrors.CategoryInternal, "failed to decode verification secret")
	}

	var msg [8]byte
	binary.BigEndian.PutUint64(msg[:], uint64(counter))

	hf, err := hmacFunc(params.Algorithm)
	if err != nil {
		return "", err
	}
	mac := hmac.New(hf, secret)
	_, _ = mac.Write(msg[:])
	sum := mac.Sum(nil)

	// RFC 4226 dynamic truncation down to a 31 bit value
	offset := sum[len(sum)-1] & 0x0f
	bin := (int(sum[offset])&0x7f)<<24 |
		(int(sum[offset+1])&0xff)<<16 |
		(int(sum[offset+2])&0xff)<<8 |
		(int(sum[offset+3]) & 0xff)

	base := len(params.CharSet)
	out := make([]byte, params.Digits)
	for i := params.Digits - 1; i >= 0; i-- {
		out[i] = params.CharSet[bin%base]
		bin /= base
	}

	return string(out), nil
}

func hmacFunc(algorithm string) (func() hash.Hash, error) {
	switch strings.ToUpper(algorithm) {
	case "", "SHA1":
		return sha1.New, nil
	case "SHA256":
		return sha256.New, nil
	case "SHA512":
		return sha512.New, nil
	default:
		return nil, goerrors.New("unsupported verification code algorithm", goerrors.CategoryInternal).
			WithMetadata(map[string]any{"algorithm": algorithm})
	}
}
