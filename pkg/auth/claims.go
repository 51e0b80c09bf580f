package auth

import "github.com/golang-jwt/jwt/v5"

// AccessTokenPayload carries the member identity minted into a token.
type AccessTokenPayload struct {
	MemberID int64
	Nickname string
	JTI      string
}

// AccessTokenClaims is the JWT claim set used by the API.
type AccessTokenClaims struct {
	MemberID int64  `json:"memberId"`
	Nickname string `json:"nickname"`
	jwt.RegisteredClaims
}
