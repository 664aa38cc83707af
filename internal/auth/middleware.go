package auth

import (
	"net/http"
	"strings"
	"time"

	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jwt"

	"github.com/noah-isme/backend-supplier/internal/common"
)

// TokenValidator verifies access tokens issued by Service.
type TokenValidator struct {
	Secret    []byte
	Issuer    string
	ClockSkew time.Duration
}

// Validate parses the token and returns the supplier ID from the
// subject claim.
func (v TokenValidator) Validate(raw string) (string, error) {
	opts := []jwt.ParseOption{
		jwt.WithKey(jwa.HS256, v.Secret),
		jwt.WithValidate(true),
		jwt.WithIssuer(v.Issuer),
	}
	if v.ClockSkew > 0 {
		opts = append(opts, jwt.WithAcceptableSkew(v.ClockSkew))
	}
	tok, err := jwt.Parse([]byte(raw), opts...)
	if err != nil {
		return "", err
	}
	return tok.Subject(), nil
}

// RequireAuth rejects requests without a valid bearer token and puts
// the supplier ID on the request context.
func RequireAuth(v TokenValidator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := bearerToken(r)
			if raw == "" {
				common.JSONError(w, http.StatusUnauthorized, "UNAUTHORIZED", "missing bearer token", nil)
				return
			}
			supplierID, err := v.Validate(raw)
			if err != nil || supplierID == "" {
				common.JSONError(w, http.StatusUnauthorized, "UNAUTHORIZED", "invalid or expired token", nil)
				return
			}
			next.ServeHTTP(w, r.WithContext(common.WithSupplier(r.Context(), supplierID)))
		})
	}
}

func bearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if len(h) > 7 && strings.EqualFold(h[:7], "Bearer ") {
		return strings.TrimSpace(h[7:])
	}
	return ""
}
