package auth

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"callsummary/internal/config"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrNotConfigured = errors.New("auth: voice token credentials not configured")
	ErrInvalidToken  = errors.New("auth: invalid voice token")
)

// TokenManager mints access tokens that let a browser client place and
// receive calls through the TwiML app.
type TokenManager struct {
	accountSID string
	keySID     string
	keySecret  []byte
	appSID     string
	ttl        time.Duration
}

func NewTokenManager(cfg config.TwilioConfig) (*TokenManager, error) {
	if cfg.AccountSID == "" || cfg.APIKeySID == "" || cfg.APIKeySecret == "" || cfg.TwiMLAppSID == "" {
		return nil, ErrNotConfigured
	}
	ttl := cfg.TokenTTL
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &TokenManager{
		accountSID: cfg.AccountSID,
		keySID:     cfg.APIKeySID,
		keySecret:  []byte(cfg.APIKeySecret),
		appSID:     cfg.TwiMLAppSID,
		ttl:        ttl,
	}, nil
}

// GuestIdentity names an anonymous browser client.
func GuestIdentity(now time.Time) string {
	return "guest-" + strconv.FormatInt(now.UnixMilli(), 10)
}

// IssueVoiceToken signs a token for identity with incoming calls allowed and
// outgoing calls routed to the TwiML app.
func (m *TokenManager) IssueVoiceToken(now time.Time, identity string) (string, error) {
	if identity == "" {
		return "", fmt.Errorf("%w: identity required", ErrInvalidToken)
	}

	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        fmt.Sprintf("%s-%d", m.keySID, now.Unix()),
			Issuer:    m.keySID,
			Subject:   m.accountSID,
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.ttl)),
		},
		Grants: Grants{
			Identity: identity,
			Voice: &VoiceGrant{
				Incoming: &IncomingGrant{Allow: true},
				Outgoing: &OutgoingGrant{ApplicationSID: m.appSID},
			},
		},
	}

	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	t.Header["cty"] = ContentType
	return t.SignedString(m.keySecret)
}

// Verify parses a token minted by this manager. It exists for diagnostics and
// tests; Twilio is the real consumer of these tokens.
func (m *TokenManager) Verify(tokenString string, now time.Time) (Claims, error) {
	var claims Claims

	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithIssuer(m.keySID),
		jwt.WithSubject(m.accountSID),
		jwt.WithTimeFunc(func() time.Time { return now }),
		jwt.WithLeeway(30*time.Second),
	)

	tok, err := parser.ParseWithClaims(tokenString, &claims, func(token *jwt.Token) (any, error) {
		return m.keySecret, nil
	})
	if err != nil {
		return Claims{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if cty, _ := tok.Header["cty"].(string); cty != ContentType {
		return Claims{}, fmt.Errorf("%w: content type %q", ErrInvalidToken, cty)
	}
	if claims.Grants.Identity == "" {
		return Claims{}, fmt.Errorf("%w: identity missing", ErrInvalidToken)
	}
	return claims, nil
}
