package apperr

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"gorm.io/gorm"
)

func TestFrom_Classifies(t *testing.T) {
	testCases := []struct {
		name string
		err  error
		want Kind
	}{
		{"record not found", fmt.Errorf("load vendor: %w", gorm.ErrRecordNotFound), NotFound},
		{"deadline", context.DeadlineExceeded, Network},
		{"plain", errors.New("boom"), Unknown},
		{"already classified", fmt.Errorf("outer: %w", Validationf("bad %s", "input")), Validation},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if got := KindOf(tc.err); got != tc.want {
				t.Errorf("KindOf = %s, want %s", got, tc.want)
			}
		})
	}
	if From(nil) != nil {
		t.Error("From(nil) should be nil")
	}
}

func TestError_UnwrapAndMessage(t *testing.T) {
	cause := errors.New("connection reset")
	err := Wrap(cause, Database, "insert purchase order")
	if !errors.Is(err, cause) {
		t.Error("Wrap must keep the cause reachable")
	}
	if err.Error() != "insert purchase order: "+UserMessage(Database)+": connection reset" {
		t.Errorf("unexpected message %q", err.Error())
	}

	v := Validationf("product_id %q is not a uuid", "x")
	if v.UserMessage != `product_id "x" is not a uuid` {
		t.Errorf("Validationf should expose its message, got %q", v.UserMessage)
	}
}

func TestHTTPStatus(t *testing.T) {
	testCases := map[Kind]int{
		Validation:     http.StatusBadRequest,
		Authentication: http.StatusUnauthorized,
		Authorization:  http.StatusForbidden,
		NotFound:       http.StatusNotFound,
		RateLimited:    http.StatusTooManyRequests,
		Database:       http.StatusInternalServerError,
		Unknown:        http.StatusInternalServerError,
	}
	for kind, want := range testCases {
		if got := HTTPStatus(kind); got != want {
			t.Errorf("HTTPStatus(%s) = %d, want %d", kind, got, want)
		}
	}
}

func TestMessagesCoverEveryKind(t *testing.T) {
	kinds := []Kind{Network, Authentication, Authorization, Validation, NotFound, ServerError, Database,
		Payment, Cart, Order, Product, Profile, Email, FileUpload, Unknown, RateLimited, Conflict}
	for _, k := range kinds {
		if _, ok := messages[k]; !ok {
			t.Errorf("missing message for %s", k)
		}
		if _, ok := titles[k]; !ok {
			t.Errorf("missing title for %s", k)
		}
	}
}
