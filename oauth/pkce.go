package oauth

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
)

// ChallengeMethod is a PKCE transformation
// https://datatracker.ietf.org/doc/html/rfc7636#section-4.2
type ChallengeMethod string

const (
	ChallengeS256  ChallengeMethod = "S256"
	ChallengePlain ChallengeMethod = "plain"
)

// ParseChallengeMethod maps the request value, an empty value is plain
func ParseChallengeMethod(v string) (ChallengeMethod, bool) {
	switch ChallengeMethod(v) {
	case "":
		return ChallengePlain, true
	case ChallengeS256:
		return ChallengeS256, true
	case ChallengePlain:
		return ChallengePlain, true
	}
	return "", false
}

// S256Challenge computes base64url(sha256(verifier)) without padding
func S256Challenge(verifier string) string {
	sum := sha256.Sum256([]byte(verifier))
	return base64.RawURLEncoding.EncodeToString(sum[:])
}

// VerifyChallenge checks a code_verifier against the stored challenge
func VerifyChallenge(method ChallengeMethod, challenge, verifier string) bool {
	//https://datatracker.ietf.org/doc/html/rfc7636#section-4.1
	if len(verifier) < 43 || len(verifier) > 128 {
		return false
	}
	var computed string
	switch method {
	case ChallengeS256:
		computed = S256Challenge(verifier)
	case ChallengePlain:
		computed = verifier
	default:
		return false
	}
	return subtle.ConstantTimeCompare([]byte(computed), []byte(challenge)) == 1
}
