package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/tbourn/go-review-backend/internal/services"
)

func TestStatusFor(t *testing.T) {
	cases := []struct {
		err    error
		status int
		code   string
	}{
		{services.ErrDuplicateReview, http.StatusConflict, ErrCodeDuplicateReview},
		{fmt.Errorf("%w: approved -> pending", services.ErrInvalidTransition), http.StatusConflict, ErrCodeInvalidTransition},
		{services.ErrForbidden, http.StatusForbidden, ErrCodeForbidden},
		{services.ErrQuotaExceeded, http.StatusTooManyRequests, ErrCodeQuotaExceeded},
		{services.ErrInvalidRating, http.StatusUnprocessableEntity, ErrCodeValidation},
		{services.ErrReviewNotFound, http.StatusNotFound, ErrCodeReviewNotFound},
		{errors.New("disk on fire"), http.StatusInternalServerError, ErrCodeInternal},
	}
	for _, tc := range cases {
		status, code, msg := statusFor(tc.err)
		if status != tc.status || code != tc.code {
			t.Fatalf("statusFor(%v) = %d %s; want %d %s", tc.err, status, code, tc.status, tc.code)
		}
		if status == http.StatusInternalServerError && msg != "internal error" {
			t.Fatalf("internal message leaked: %q", msg)
		}
	}
}

func TestStatusFor_MessageIsSentinelText(t *testing.T) {
	_, _, msg := statusFor(fmt.Errorf("%w: approved -> pending", services.ErrInvalidTransition))
	if msg != services.ErrInvalidTransition.Error() {
		t.Fatalf("msg=%q", msg)
	}
}
