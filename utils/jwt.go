package utils

import (
	"errors"
	"os"
	"time"

	"builderhub/config"

	"github.com/golang-jwt/jwt"
)

// signingKey resolves the JWT secret: config first, the environment for
// callers running before LoadConfig, then a development fallback.
func signingKey() []byte {
	if s := config.AppConfig.JWTSecret; s != "" {
		return []byte(s)
	}
	if s := os.Getenv("JWT_SECRET"); s != "" {
		return []byte(s)
	}
	return []byte("builderhub-dev")
}

const claimTokenScope = "booking_claim"

// GenerateToken creates a signed JWT token with the given subject (e.g., clientID) and email.
// The token expires after the specified duration.
func GenerateToken(subject, email string, duration time.Duration) (string, error) {
	claims := jwt.MapClaims{
		"sub":   subject,
		"email": email,
		"iat":   time.Now().Unix(),
		"exp":   time.Now().Add(duration).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(signingKey())
}

// ValidateToken parses and validates a token string and returns the token if valid.
func ValidateToken(tokenString string) (*jwt.Token, error) {
	return jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		// Ensure that the token's signing method is HMAC.
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return signingKey(), nil
	})
}

// ExtractIDFromToken extracts the ID (subject) from a valid JWT token string.
// It returns the extracted ID or an error if validation fails.
func ExtractIDFromToken(tokenString string) (string, error) {
	token, err := ValidateToken(tokenString)
	if err != nil {
		return "", err
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return "", errors.New("invalid token")
	}

	sub, ok := claims["sub"].(string)
	if !ok || sub == "" {
		return "", errors.New("token does not contain a valid 'sub' claim")
	}
	return sub, nil
}

// GenerateClaimToken mints the ownership proof handed to an anonymous
// booker. Presenting it while signed in is the only way to attach a client
// identity to the booking later; the bare correlation id is never enough.
func GenerateClaimToken(bookingID, correlationID string, duration time.Duration) (string, error) {
	claims := jwt.MapClaims{
		"sub":   bookingID,
		"cid":   correlationID,
		"scope": claimTokenScope,
		"iat":   time.Now().Unix(),
		"exp":   time.Now().Add(duration).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(signingKey())
}

// ParseClaimToken validates a claim token and returns the booking id and
// correlation id it binds.
func ParseClaimToken(tokenString string) (bookingID, correlationID string, err error) {
	token, err := ValidateToken(tokenString)
	if err != nil {
		return "", "", err
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return "", "", errors.New("invalid claim token")
	}
	if scope, _ := claims["scope"].(string); scope != claimTokenScope {
		return "", "", errors.New("token is not a booking claim token")
	}

	bookingID, _ = claims["sub"].(string)
	correlationID, _ = claims["cid"].(string)
	if bookingID == "" || correlationID == "" {
		return "", "", errors.New("claim token is missing booking binding")
	}
	return bookingID, correlationID, nil
}
