package auth

import (
	"context"
	"net/http"
	"strings"

	"github.com/dgrijalva/jwt-go"
)

// JWTMiddleware rejects requests without a valid bearer token and stores the
// caller's user id under "user_id" in the request context.
func JWTMiddleware(jwtSecret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID, ok := userIDFromHeader(r, jwtSecret)
			if !ok {
				http.Error(w, "Invalid or missing token", http.StatusUnauthorized)
				return
			}

			ctx := context.WithValue(r.Context(), "user_id", userID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// OptionalJWTMiddleware lets anonymous callers through. When a valid token is
// present its user id is put in the context; otherwise the handler sees no
// user and treats the request as a trial.
func OptionalJWTMiddleware(jwtSecret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if userID, ok := userIDFromHeader(r, jwtSecret); ok {
				r = r.WithContext(context.WithValue(r.Context(), "user_id", userID))
			}
			next.ServeHTTP(w, r)
		})
	}
}

func userIDFromHeader(r *http.Request, jwtSecret string) (uint, bool) {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return 0, false
	}

	bearerToken := strings.Split(authHeader, " ")
	if len(bearerToken) != 2 || bearerToken[0] != "Bearer" {
		return 0, false
	}

	token, err := jwt.ParseWithClaims(bearerToken[1], &jwt.MapClaims{}, func(token *jwt.Token) (interface{}, error) {
		return []byte(jwtSecret), nil
	})
	if err != nil {
		return 0, false
	}

	claims, ok := token.Claims.(*jwt.MapClaims)
	if !ok || !token.Valid {
		return 0, false
	}

	userID, ok := (*claims)["user_id"].(float64)
	if !ok {
		return 0, false
	}

	return uint(userID), true
}
