package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"gangway/internal/accounts"
	"gangway/pkg/auth"
	"gangway/pkg/logging"
	"gangway/pkg/models"
)

const stateCookieName = "oauth_state"

// PatreonLogin starts the OAuth flow by redirecting to the provider's consent
// page with a fresh state nonce.
func PatreonLogin(c *gin.Context) {
	state := uuid.New().String()
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(stateCookieName, state, 600, "/", "", false, true)
	c.Redirect(http.StatusFound, provider.AuthCodeURL(state))
}

// PatreonCallback completes the OAuth flow: exchange the code, fetch the
// identity and pledge, and only then mint a session. A pledge below the
// threshold never gets a session in the first place.
func PatreonCallback(c *gin.Context) {
	ctx := c.Request.Context()

	if errParam := c.Query("error"); errParam != "" {
		countLogin("denied")
		c.JSON(http.StatusUnauthorized, models.ErrorResponse{
			Error:  "Patreon authorization was denied.",
			Reason: "oauth_denied",
		})
		return
	}

	state, err := c.Cookie(stateCookieName)
	if err != nil || state == "" || state != c.Query("state") {
		countLogin("state_mismatch")
		c.JSON(http.StatusUnauthorized, models.ErrorResponse{
			Error:  "OAuth state mismatch. Please try logging in again.",
			Reason: "oauth_state_mismatch",
		})
		return
	}
	c.SetCookie(stateCookieName, "", -1, "/", "", false, true)

	code := c.Query("code")
	if code == "" {
		countLogin("denied")
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "Missing authorization code."})
		return
	}

	token, err := provider.ExchangeCode(ctx, code)
	if err != nil {
		countLogin("exchange_failed")
		logger.WithFields(logging.Fields{"error": err.Error()}).Error("OAuth code exchange failed")
		c.JSON(http.StatusServiceUnavailable, models.ErrorResponse{
			Error:  "Unable to complete login. Please try again.",
			Reason: "verification_error",
		})
		return
	}

	identity, err := provider.FetchIdentity(ctx, token.AccessToken)
	if err != nil {
		countLogin("identity_failed")
		logger.WithFields(logging.Fields{"error": err.Error()}).Error("Identity fetch failed")
		c.JSON(http.StatusServiceUnavailable, models.ErrorResponse{
			Error:  "Unable to complete login. Please try again.",
			Reason: "verification_error",
		})
		return
	}

	cents, err := verifier.EntitledCents(ctx, token.AccessToken)
	if err != nil {
		countLogin("verification_failed")
		logger.WithFields(logging.Fields{
			"patreon_id": identity.PatreonID,
			"error":      err.Error(),
		}).Error("Pledge verification failed during login")
		c.JSON(http.StatusServiceUnavailable, models.ErrorResponse{
			Error:  "Unable to verify membership. Please try again.",
			Reason: "verification_error",
		})
		return
	}

	account, err := repo.UpsertFromOAuth(ctx, accounts.UpsertParams{
		PatreonID:   identity.PatreonID,
		Name:        identity.FullName,
		Email:       identity.Email,
		AccessToken: token.AccessToken,
		PledgeCents: cents,
	})
	if err != nil {
		countLogin("error")
		logger.WithFields(logging.Fields{
			"patreon_id": identity.PatreonID,
			"error":      err.Error(),
		}).Error("Account upsert failed during login")
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{Error: "Login failed."})
		return
	}

	if account.IsBanned() {
		countLogin("banned")
		logger.WithFields(logging.Fields{"account_id": account.ID}).Warn("Banned account attempted login")
		c.JSON(http.StatusForbidden, models.ErrorResponse{
			Error:  "This account has been banned.",
			Reason: "banned",
		})
		return
	}

	if cents < models.PaidThresholdCents {
		countLogin("unpaid")
		c.JSON(http.StatusPaymentRequired, models.ErrorResponse{
			Error:  "An active paid membership is required.",
			Reason: "membership_required",
		})
		return
	}

	// The pledge was just verified on this very code path; seed the cache so
	// the first gated request does not repeat the round trip.
	verifier.Seed(ctx, account.ID, true)

	tenantID := ""
	if account.TenantID != nil {
		tenantID = *account.TenantID
	}
	role := "member"
	if account.IsAdmin {
		role = "admin"
	}

	jwtToken, err := auth.GenerateJWT(account.ID, tenantID, account.Email, role, sessionTTL, jwtSecret)
	if err != nil {
		countLogin("error")
		logger.WithFields(logging.Fields{"account_id": account.ID, "error": err.Error()}).Error("Token generation failed")
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{Error: "Login failed."})
		return
	}
	auth.SetSessionCookie(c, jwtToken, sessionTTL)

	if _, err := registry.Admit(ctx, account.ID, account.TenantID, c.ClientIP(), c.Request.UserAgent(), nil); err != nil {
		// The admission gate records the session on the next request anyway
		logger.WithFields(logging.Fields{"account_id": account.ID, "error": err.Error()}).Warn("Session registration failed at login")
	}

	countLogin("success")
	logger.WithFields(logging.Fields{
		"account_id":   account.ID,
		"pledge_cents": cents,
	}).Info("Account logged in")

	c.JSON(http.StatusOK, gin.H{
		"account": account,
		"token":   jwtToken,
	})
}

// Logout ends the current device session. Other devices stay logged in.
func Logout(c *gin.Context) {
	claims, ok := auth.CurrentClaims(c)
	if ok {
		if err := registry.Deactivate(c.Request.Context(), claims.UserID, c.ClientIP(), c.Request.UserAgent()); err != nil {
			logger.WithFields(logging.Fields{"account_id": claims.UserID, "error": err.Error()}).Warn("Session deactivation failed at logout")
		}
	}
	auth.ClearSessionCookie(c)
	c.JSON(http.StatusOK, gin.H{"message": "Logged out."})
}

// MembershipStatus answers the client-side membership poll. A lapsed pledge
// terminates the caller's sessions on the spot, mirroring the admission gate.
func MembershipStatus(c *gin.Context) {
	claims, ok := auth.CurrentClaims(c)
	if !ok {
		c.JSON(http.StatusOK, models.MembershipStatusResponse{Valid: false})
		return
	}

	ctx := c.Request.Context()
	account, err := repo.ByID(ctx, claims.UserID)
	if err != nil {
		c.JSON(http.StatusOK, models.MembershipStatusResponse{Valid: false})
		return
	}

	if !verifier.IsPaid(ctx, account) {
		if metrics != nil && metrics.ForcedLogouts != nil {
			metrics.ForcedLogouts.Inc()
		}
		if err := registry.DeactivateAll(ctx, account.ID); err != nil {
			logger.WithFields(logging.Fields{"account_id": account.ID, "error": err.Error()}).Error("Session teardown failed")
		}
		if err := repo.StampLoggedOut(ctx, account.ID); err != nil {
			logger.WithFields(logging.Fields{"account_id": account.ID, "error": err.Error()}).Error("Logout stamp failed")
		}
		auth.ClearSessionCookie(c)
		c.JSON(http.StatusOK, models.MembershipStatusResponse{Valid: false, PledgeCents: account.PledgeCents})
		return
	}

	c.JSON(http.StatusOK, models.MembershipStatusResponse{Valid: true, PledgeCents: account.PledgeCents})
}
