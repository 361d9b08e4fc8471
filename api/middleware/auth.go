package middleware

import (
	"net/http"
	"strings"

	"github.com/angelmondragon/pricelist-backend/api/responses"
	pkgAuth "github.com/angelmondragon/pricelist-backend/pkg/auth"
	"github.com/angelmondragon/pricelist-backend/pkg/config"
	pkgerrors "github.com/angelmondragon/pricelist-backend/pkg/errors"
	"github.com/angelmondragon/pricelist-backend/pkg/logger"
)

const bearerPrefix = "bearer "

// Auth requires a reviewer access token and puts the reviewer on the
// request context. Both "Bearer <token>" and a bare token are accepted.
func Auth(cfg config.JWTConfig, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := bearerToken(r.Header.Get("Authorization"))
			if token == "" {
				unauthorized(w, r, logg, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials"))
				return
			}

			claims, err := pkgAuth.ParseAccessToken(cfg, token)
			if err != nil {
				unauthorized(w, r, logg, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid token"))
				return
			}

			userID := claims.UserID.String()
			ctx := WithActor(r.Context(), userID, claims.Username)
			if logg != nil {
				ctx = logg.WithActor(ctx, userID, claims.Username)
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func bearerToken(header string) string {
	raw := strings.TrimSpace(header)
	if len(raw) >= len(bearerPrefix) && strings.EqualFold(raw[:len(bearerPrefix)], bearerPrefix) {
		raw = raw[len(bearerPrefix):]
	}
	return strings.TrimSpace(raw)
}

func unauthorized(w http.ResponseWriter, r *http.Request, logg *logger.Logger, err error) {
	w.Header().Set("WWW-Authenticate", `Bearer realm="pricelist"`)
	responses.WriteError(r.Context(), logg, w, err)
}
