package mock

import (
	"crypto/rsa"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const TokenPath = "/services/oauth2/token"

func (s *Service) tokenHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Invalid form data", http.StatusBadRequest)
		return
	}
	s.tokenRequests.Add(1)
	if r.FormValue("grant_type") != "client_credentials" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "unsupported_grant_type"})
		return
	}
	if r.FormValue("client_id") != s.ClientID || r.FormValue("client_secret") != s.ClientSecret {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid_client", "error_description": "invalid client credentials"})
		return
	}
	accessToken, err := s.createJWT(s.ClientID, s.ExpiresIn)
	if err != nil {
		http.Error(w, "Server error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"access_token": accessToken,
		"token_type":   "Bearer",
		"instance_url": s.URL,
		"expires_in":   int(s.ExpiresIn.Seconds()),
	})
}

func (s *Service) createJWT(clientID string, expiry time.Duration) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"iss": s.URL,
		"sub": clientID,
		"exp": now.Add(expiry).Unix(),
		"iat": now.Unix(),
		"jti": fmt.Sprintf("%d", s.tokenRequests.Load()),
	}
	return jwt.NewWithClaims(jwt.SigningMethodRS256, claims).SignedString(s.PrivateKey)
}

// authorized validates the bearer token signature and expiry.
func (s *Service) authorized(r *http.Request) bool {
	value, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
	if !ok || value == "" {
		return false
	}
	publicKey := s.PrivateKey.Public().(*rsa.PublicKey)
	token, err := jwt.Parse(value, func(token *jwt.Token) (interface{}, error) {
		return publicKey, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodRS256.Alg()}))
	return err == nil && token.Valid
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
