package controllers

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/MrPsycho237/digimarketstore/gateway"
	"github.com/MrPsycho237/digimarketstore/models"
	"github.com/MrPsycho237/digimarketstore/store"
	"github.com/stretchr/testify/assert"
)

func TestErrorStatus(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{models.ErrProductTitleRequired, http.StatusBadRequest},
		{&gateway.AuthError{Op: "sign_up", Err: gateway.ErrWeakPassword}, http.StatusBadRequest},
		{&gateway.AuthError{Op: "sign_in", Err: gateway.ErrInvalidCredentials}, http.StatusUnauthorized},
		{&gateway.AuthError{Op: "sign_in", Err: errors.New("boom")}, http.StatusUnauthorized},
		{store.ErrNotSignedIn, http.StatusUnauthorized},
		{store.ErrForbidden, http.StatusForbidden},
		{store.ErrCheckoutInProgress, http.StatusConflict},
		{&gateway.AuthError{Op: "sign_up", Err: gateway.ErrEmailTaken}, http.StatusConflict},
		{&gateway.ReadError{Collection: "products", Op: "get", Err: gateway.ErrNotFound}, http.StatusNotFound},
		{fmt.Errorf("wrapped: %w", errors.New("db down")), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		status, _ := ErrorStatus(tc.err, "fallback")
		assert.Equal(t, tc.want, status, tc.err.Error())
	}

	_, msg := ErrorStatus(errors.New("secret detail"), "Something failed")
	assert.Equal(t, "Something failed", msg)
}
