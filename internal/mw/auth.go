package mw

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

// OperatorIDKey is the gin context key holding the authenticated operator id.
const OperatorIDKey = "operator_id"

// PanelClaims identify an operator logged in at a shop-floor panel.
type PanelClaims struct {
	OperatorID int64  `json:"oid"`
	Name       string `json:"name"`
	jwt.RegisteredClaims
}

// IssuePanelToken signs a token for the operator valid for ttl.
func IssuePanelToken(secret string, operatorID int64, name string, ttl time.Duration, now time.Time) (string, error) {
	if secret == "" {
		return "", errors.New("jwt secret is not configured")
	}
	claims := PanelClaims{
		OperatorID: operatorID,
		Name:       name,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(operatorID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}

// ParsePanelToken validates a signed token and returns its claims.
func ParsePanelToken(secret, tokenString string) (*PanelClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &PanelClaims{}, func(token *jwt.Token) (interface{}, error) {
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, err
	}
	claims, ok := token.Claims.(*PanelClaims)
	if !ok || !token.Valid || claims.OperatorID <= 0 {
		return nil, errors.New("invalid token claims")
	}
	return claims, nil
}

// PanelAuth requires a bearer token from /panel/login and stores the operator id.
func PanelAuth(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		var tokenString string
		parts := strings.SplitN(c.GetHeader("Authorization"), " ", 2)
		if len(parts) == 2 && parts[0] == "Bearer" {
			tokenString = parts[1]
		}
		if tokenString == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "authorization is required"})
			return
		}

		claims, err := ParsePanelToken(secret, tokenString)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid or expired token"})
			return
		}
		c.Set(OperatorIDKey, claims.OperatorID)
		c.Next()
	}
}

// OperatorID returns the operator set by PanelAuth.
func OperatorID(c *gin.Context) (int64, bool) {
	v, ok := c.Get(OperatorIDKey)
	if !ok {
		return 0, false
	}
	id, ok := v.(int64)
	return id, ok
}
