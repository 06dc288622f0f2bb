package errutil

import (
	"context"
	"errors"
	"net/http"
)

// ToHTTP normalises a domain error into an HTTP status code and a JSON body so
// handlers can safely return it to the transport layer.
func ToHTTP(err error) (int, interface{}) {
	if err == nil {
		return http.StatusOK, nil
	}

	if errors.Is(err, context.Canceled) {
		be := BaseError{Code: StatusClientClosedRequest, Message: err.Error()}
		return be.Code.HTTPStatus(), be.JSON()
	}

	if errors.Is(err, context.DeadlineExceeded) {
		be := BaseError{Code: StatusTimeout, Message: err.Error()}
		return be.Code.HTTPStatus(), be.JSON()
	}

	var base BaseError
	if errors.As(err, &base) {
		return base.Code.HTTPStatus(), base.JSON()
	}

	var coder interface{ Status() CoreStatus }
	if errors.As(err, &coder) {
		be := BaseError{Code: coder.Status(), Message: err.Error()}
		return be.Code.HTTPStatus(), be.JSON()
	}

	be := BaseError{Code: StatusInternal, Message: err.Error()}
	return be.Code.HTTPStatus(), be.JSON()
}
