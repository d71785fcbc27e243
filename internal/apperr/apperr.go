// Package apperr is the flat error taxonomy used to pick user-facing
// messages and HTTP statuses. Kinds carry no retry semantics.
package apperr

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"gorm.io/gorm"
)

// Kind classifies an error for presentation.
type Kind string

const (
	Network        Kind = "network"
	Authentication Kind = "authentication"
	Authorization  Kind = "authorization"
	Validation     Kind = "validation"
	NotFound       Kind = "not_found"
	ServerError    Kind = "server_error"
	Database       Kind = "database"
	Payment        Kind = "payment"
	Cart           Kind = "cart"
	Order          Kind = "order"
	Product        Kind = "product"
	Profile        Kind = "profile"
	Email          Kind = "email"
	FileUpload     Kind = "file_upload"
	Unknown        Kind = "unknown"
	RateLimited    Kind = "rate_limited"
	Conflict       Kind = "conflict"
)

// Error is a classified failure. Message is for logs; UserMessage is safe
// to return to clients.
type Error struct {
	Kind        Kind
	Message     string
	UserMessage string
	Details     any
	Context     string
	Err         error
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" {
		msg = e.UserMessage
	}
	if e.Context != "" {
		msg = e.Context + ": " + msg
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// New builds an Error with the default user message for kind.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message, UserMessage: UserMessage(kind)}
}

// Wrap classifies err under kind, keeping it for errors.Is/As.
func Wrap(err error, kind Kind, context string) *Error {
	return &Error{Kind: kind, Message: UserMessage(kind), UserMessage: UserMessage(kind), Context: context, Err: err}
}

// WithUserMessage replaces the client-facing message.
func (e *Error) WithUserMessage(msg string) *Error {
	e.UserMessage = msg
	return e
}

// WithDetails attaches structured details returned alongside the message.
func (e *Error) WithDetails(details any) *Error {
	e.Details = details
	return e
}

// Validationf is a validation error whose message is shown to the client.
func Validationf(format string, args ...any) *Error {
	msg := fmt.Sprintf(format, args...)
	return &Error{Kind: Validation, Message: msg, UserMessage: msg}
}

// NotFoundf is a not_found error whose message is shown to the client.
func NotFoundf(format string, args ...any) *Error {
	msg := fmt.Sprintf(format, args...)
	return &Error{Kind: NotFound, Message: msg, UserMessage: msg}
}

// From returns err as an *Error, classifying plain errors on the way.
func From(err error) *Error {
	if err == nil {
		return nil
	}
	var ae *Error
	if errors.As(err, &ae) {
		return ae
	}
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return Wrap(err, NotFound, "")
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return Wrap(err, Network, "")
	default:
		return Wrap(err, Unknown, "")
	}
}

// KindOf reports the kind of err, Unknown for unclassified errors.
func KindOf(err error) Kind {
	if ae := From(err); ae != nil {
		return ae.Kind
	}
	return Unknown
}

// HTTPStatus maps a kind to the response status.
func HTTPStatus(kind Kind) int {
	switch kind {
	case Validation, Cart, Order, Product, Profile, FileUpload:
		return http.StatusBadRequest
	case Authentication:
		return http.StatusUnauthorized
	case Authorization:
		return http.StatusForbidden
	case NotFound:
		return http.StatusNotFound
	case Payment:
		return http.StatusPaymentRequired
	case RateLimited:
		return http.StatusTooManyRequests
	case Conflict:
		return http.StatusConflict
	case Network:
		return http.StatusGatewayTimeout
	case Database, Email, ServerError, Unknown:
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}
