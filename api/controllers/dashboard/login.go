package dashboard

import (
	"crypto/subtle"
	"net/http"
	"time"

	"github.com/FxndiBoyyzZ/mapaprofeticodoamor/api/responses"
	"github.com/FxndiBoyyzZ/mapaprofeticodoamor/api/validators"
	"github.com/FxndiBoyyzZ/mapaprofeticodoamor/pkg/auth"
	"github.com/FxndiBoyyzZ/mapaprofeticodoamor/pkg/config"
	pkgerrors "github.com/FxndiBoyyzZ/mapaprofeticodoamor/pkg/errors"
	"github.com/FxndiBoyyzZ/mapaprofeticodoamor/pkg/logger"
)

type loginRequest struct {
	Password string `json:"password" validate:"required"`
}

type loginResponse struct {
	Token     string `json:"token"`
	ExpiresAt string `json:"expires_at"`
}

// Login exchanges the dashboard password for a bearer token.
func Login(cfg config.DashboardConfig, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		var body loginRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		if cfg.Password == "" {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeDependency, "dashboard login is not configured"))
			return
		}
		if subtle.ConstantTimeCompare([]byte(body.Password), []byte(cfg.Password)) != 1 {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid password"))
			return
		}

		now := time.Now()
		token, err := auth.MintDashboardToken(cfg, now)
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "mint dashboard token"))
			return
		}
		responses.WriteSuccess(w, loginResponse{
			Token:     token,
			ExpiresAt: now.Add(cfg.TokenTTL).UTC().Format(time.RFC3339),
		})
	}
}
