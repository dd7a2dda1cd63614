package cerr

import (
	"net/http"

	"github.com/kazz187/deadlinebot/pkg/clog"
)

type Code int

const (
	OK               = Code(0)
	Canceled         = Code(1)
	Unknown          = Code(2)
	InvalidArgument  = Code(3)
	DeadlineExceeded = Code(4)
	NotFound         = Code(5)
	AlreadyExists    = Code(6)
	Unauthenticated  = Code(7)
	Internal         = Code(8)
	Unavailable      = Code(9)

	// Domain codes for the notification pipeline.
	AuthUnavailable   = Code(20)
	SourceUnavailable = Code(21)
	DeliveryFailed    = Code(22)
	UpdateFailed      = Code(23)
)

func (c Code) String() string {
	switch c {
	case OK:
		return "ok"
	case Canceled:
		return "canceled"
	case Unknown:
		return "unknown"
	case InvalidArgument:
		return "invalid_argument"
	case DeadlineExceeded:
		return "deadline_exceeded"
	case NotFound:
		return "not_found"
	case AlreadyExists:
		return "already_exists"
	case Unauthenticated:
		return "unauthenticated"
	case Internal:
		return "internal"
	case Unavailable:
		return "unavailable"
	case AuthUnavailable:
		return "auth_unavailable"
	case SourceUnavailable:
		return "source_unavailable"
	case DeliveryFailed:
		return "delivery_failed"
	case UpdateFailed:
		return "update_failed"
	default:
		return "unknown"
	}
}

func (c Code) HTTPCode() int {
	switch c {
	case OK:
		return http.StatusOK
	case Canceled:
		return 499
	case Unknown:
		return http.StatusInternalServerError
	case InvalidArgument:
		return http.StatusBadRequest
	case DeadlineExceeded:
		return http.StatusGatewayTimeout
	case NotFound:
		return http.StatusNotFound
	case AlreadyExists:
		return http.StatusConflict
	case Unauthenticated:
		return http.StatusUnauthorized
	case Internal:
		return http.StatusInternalServerError
	case Unavailable, AuthUnavailable, SourceUnavailable:
		return http.StatusServiceUnavailable
	case DeliveryFailed, UpdateFailed:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// Level returns the log level a failure with this code warrants.
// Degraded-mode codes are warnings; they are expected operational states.
func (c Code) Level() clog.Level {
	switch c {
	case OK, Canceled, InvalidArgument, NotFound, AlreadyExists, Unauthenticated:
		return clog.LevelInfo
	case AuthUnavailable, SourceUnavailable, DeliveryFailed, UpdateFailed:
		return clog.LevelWarn
	default:
		return clog.LevelError
	}
}
