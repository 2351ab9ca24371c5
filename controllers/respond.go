// Package controllers holds what the per-area handler packages share.
package controllers

import (
	"errors"
	"log"
	"net/http"

	"github.com/MrPsycho237/digimarketstore/gateway"
	"github.com/MrPsycho237/digimarketstore/models"
	"github.com/MrPsycho237/digimarketstore/session"
	"github.com/MrPsycho237/digimarketstore/store"
	"github.com/gin-gonic/gin"
)

var badRequest = []error{
	gateway.ErrInvalidEmail,
	gateway.ErrWeakPassword,
	gateway.ErrPasswordTooLong,
	models.ErrInvalidRole,
	models.ErrProductTitleRequired,
	models.ErrProductPriceInvalid,
	models.ErrProductRatingInvalid,
	models.ErrProductReviewsInvalid,
	models.ErrQuantityInvalid,
	models.ErrInvalidOrderStatus,
}

var unauthorized = []error{
	store.ErrNotSignedIn,
	session.ErrNotSignedIn,
	gateway.ErrInvalidCredentials,
	gateway.ErrSessionExpired,
	gateway.ErrNoSession,
	gateway.ErrInvalidToken,
}

// ErrorStatus maps a domain error to an HTTP status and a message that is safe to
// show. Unknown errors map to 500 with fallback.
func ErrorStatus(err error, fallback string) (int, string) {
	for _, target := range badRequest {
		if errors.Is(err, target) {
			return http.StatusBadRequest, target.Error()
		}
	}
	for _, target := range unauthorized {
		if errors.Is(err, target) {
			return http.StatusUnauthorized, target.Error()
		}
	}
	switch {
	case errors.Is(err, store.ErrForbidden):
		return http.StatusForbidden, store.ErrForbidden.Error()
	case errors.Is(err, store.ErrCheckoutInProgress):
		return http.StatusConflict, store.ErrCheckoutInProgress.Error()
	case errors.Is(err, gateway.ErrEmailTaken):
		return http.StatusConflict, gateway.ErrEmailTaken.Error()
	case errors.Is(err, gateway.ErrNotFound):
		return http.StatusNotFound, gateway.ErrNotFound.Error()
	case gateway.IsAuthError(err):
		return http.StatusUnauthorized, err.Error()
	}
	return http.StatusInternalServerError, fallback
}

// RespondError logs err and writes it as {"error": ...}.
func RespondError(c *gin.Context, err error, fallback string) {
	status, message := ErrorStatus(err, fallback)
	if status >= http.StatusInternalServerError {
		log.Printf("❌ %s: %v", fallback, err)
	}
	c.JSON(status, gin.H{"error": message})
}
