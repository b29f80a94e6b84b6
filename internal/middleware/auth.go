package middleware

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

// AuthMiddleware validates the bearer token issued by the identity service and stores
// its subject as the caller's user id. Token issuance is not handled here.
func AuthMiddleware(jwtSecret string) gin.HandlerFunc {
	keyFunc := func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return []byte(jwtSecret), nil
	}

	return func(c *gin.Context) {
		logger := GetLoggerFromCtx(c.Request.Context())

		tokenString, ok := bearerToken(c.GetHeader("Authorization"))
		if !ok {
			logger.Warn("Authorization header missing or malformed")
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authorization header format must be Bearer {token}"})
			return
		}

		claims := &jwt.RegisteredClaims{}
		token, err := jwt.ParseWithClaims(tokenString, claims, keyFunc)
		if err != nil || !token.Valid {
			msg := "Invalid token"
			switch {
			case errors.Is(err, jwt.ErrTokenExpired):
				msg = "Token has expired"
			case errors.Is(err, jwt.ErrTokenNotValidYet):
				msg = "Token not valid yet"
			}
			logger.Warn("Invalid token", slog.Any("error", err))
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": msg})
			return
		}

		userID := claims.Subject
		if userID == "" {
			logger.Error("User ID (subject) missing from valid token")
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid token claims"})
			return
		}

		enriched := logger.With(slog.String("user_id", userID))
		ctx := WithLogger(WithUserID(c.Request.Context(), userID), enriched)
		c.Request = c.Request.WithContext(ctx)
		c.Set(string(userIDKey), userID)

		c.Next()
	}
}

func bearerToken(header string) (string, bool) {
	parts := strings.Fields(header)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return "", false
	}
	return parts[1], true
}
