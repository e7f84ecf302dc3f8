package network

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v4"

	"github.com/tesora-labs/tesora/utils"
)

type contextKey string

const senderKey contextKey = "sender"

// authMiddleware verifies the bearer token and binds the caller address
// for the handlers. Mutating requests act on behalf of whoever the token
// names, never on an address supplied in the body.
func (h *Handler) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		if !strings.HasPrefix(header, "Bearer ") {
			utils.SendErrorResponse(w, "Missing bearer token", http.StatusUnauthorized)
			return
		}

		sender, err := h.parseSender(strings.TrimPrefix(header, "Bearer "))
		if err != nil {
			utils.SendErrorResponse(w, "Invalid token: "+err.Error(), http.StatusUnauthorized)
			return
		}

		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), senderKey, sender)))
	})
}

func (h *Handler) parseSender(raw string) (string, error) {
	token, err := jwt.Parse(raw, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return h.jwtSecret, nil
	})
	if err != nil {
		return "", err
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return "", fmt.Errorf("invalid token claims")
	}
	sender, ok := claims["sender"].(string)
	if !ok || sender == "" {
		return "", fmt.Errorf("invalid sender in token")
	}
	return sender, nil
}

func senderFrom(r *http.Request) string {
	sender, _ := r.Context().Value(senderKey).(string)
	return sender
}
