package errors

import (
	stdErrors "errors"
	"fmt"
)

type Code string

const (
	CodeValidation             Code = "VALIDATION_ERROR"
	CodeInsufficientStock      Code = "INSUFFICIENT_STOCK"
	CodeTemporarilyUnavailable Code = "TEMPORARILY_UNAVAILABLE"
	CodeReservationExpired     Code = "RESERVATION_EXPIRED"
	CodeCheckoutAborted        Code = "CHECKOUT_ABORTED"
	CodeNotFound               Code = "NOT_FOUND"
	CodeInternal               Code = "INTERNAL_ERROR"
	CodeDependency             Code = "DEPENDENCY_ERROR"
)

type Metadata struct {
	// Business marks expected rejections from the reservation backend.
	// Business failures never trigger a downgrade to local-fallback mode.
	Business       bool
	Retryable      bool
	PublicMessage  string
	DetailsAllowed bool
}

var metadataByCode = map[Code]Metadata{
	CodeValidation: {
		Business:       false,
		Retryable:      false,
		PublicMessage:  "validation failed",
		DetailsAllowed: true,
	},
	CodeInsufficientStock: {
		Business:       true,
		Retryable:      false,
		PublicMessage:  "not enough stock available",
		DetailsAllowed: true,
	},
	CodeTemporarilyUnavailable: {
		Business:       true,
		Retryable:      true,
		PublicMessage:  "item is temporarily held by other shoppers, try again shortly",
		DetailsAllowed: true,
	},
	CodeReservationExpired: {
		Business:       true,
		Retryable:      false,
		PublicMessage:  "reservation expired",
		DetailsAllowed: true,
	},
	CodeCheckoutAborted: {
		Business:       true,
		Retryable:      false,
		PublicMessage:  "checkout can no longer proceed",
		DetailsAllowed: true,
	},
	CodeNotFound: {
		Business:       false,
		Retryable:      false,
		PublicMessage:  "resource not found",
		DetailsAllowed: false,
	},
	CodeInternal: {
		Business:       false,
		Retryable:      true,
		PublicMessage:  "internal error",
		DetailsAllowed: false,
	},
	CodeDependency: {
		Business:       false,
		Retryable:      true,
		PublicMessage:  "reservation backend unavailable",
		DetailsAllowed: true,
	},
}

func MetadataFor(code Code) Metadata {
	if meta, ok := metadataByCode[code]; ok {
		return meta
	}
	return metadataByCode[CodeInternal]
}

// IsBusiness reports whether err carries an expected business rejection code.
// Transport and infrastructure failures return false.
func IsBusiness(err error) bool {
	typed := As(err)
	if typed == nil {
		return false
	}
	return MetadataFor(typed.Code()).Business
}

// StockDetails carries requested vs available counts for stock rejections.
type StockDetails struct {
	Requested  int  `json:"requested"`
	Available  *int `json:"available,omitempty"`
	TotalStock *int `json:"totalStock,omitempty"`
}

type Error struct {
	code    Code
	message string
	details any
	cause   error
}

func New(code Code, message string) *Error {
	return &Error{code: code, message: message}
}

func Wrap(code Code, err error, message string) *Error {
	if err == nil {
		return New(code, message)
	}
	return &Error{code: code, message: message, cause: err}
}

func (e *Error) Code() Code {
	if e == nil {
		return CodeInternal
	}
	return e.code
}

func (e *Error) Message() string {
	if e == nil {
		return ""
	}
	return e.message
}

func (e *Error) Details() any {
	if e == nil {
		return nil
	}
	return e.details
}

func (e *Error) WithDetails(details any) *Error {
	if e == nil {
		return nil
	}
	e.details = details
	return e
}

// StockDetails returns the attached stock counts, if any.
func (e *Error) StockDetails() *StockDetails {
	if e == nil {
		return nil
	}
	if details, ok := e.details.(StockDetails); ok {
		return &details
	}
	if details, ok := e.details.(*StockDetails); ok {
		return details
	}
	return nil
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("%s: %s", e.code, e.message)
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.cause
}

func As(err error) *Error {
	if err == nil {
		return nil
	}
	var typed *Error
	if stdErrors.As(err, &typed) {
		return typed
	}
	return nil
}
