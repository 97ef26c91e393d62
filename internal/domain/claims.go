package domain

import "time"

// TokenLifetime is how long an issued access token stays valid.
// TODO: make configurable once clients support refresh.
const TokenLifetime = 24 * time.Hour

// TokenType is the scheme reported alongside issued access tokens.
const TokenType = "Bearer"

// Claims is the verified identity carried by a bearer token.
// Times are unix seconds.
type Claims struct {
	Subject   string
	IssuedAt  int64
	ExpiresAt int64
}

// NewClaims builds claims for subject issued at now and expiring after TokenLifetime.
func NewClaims(subject string, now time.Time) Claims {
	return Claims{
		Subject:   subject,
		IssuedAt:  now.Unix(),
		ExpiresAt: now.Add(TokenLifetime).Unix(),
	}
}

func (c Claims) String() string {
	return "user_id: " + c.Subject
}

// AuthPayload is the login request body.
type AuthPayload struct {
	ClientID     string `json:"client_id"`
	ClientSecret string `json:"client_secret"`
}

// AuthBody is the login response data.
type AuthBody struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

// NewAuthBody wraps an access token with the Bearer token type.
func NewAuthBody(token string) AuthBody {
	return AuthBody{AccessToken: token, TokenType: TokenType}
}
