package service

import (
	"errors"
	"log/slog"

	"connectrpc.com/connect"

	"github.com/mmynk/paymenext/internal/models"
)

// toConnectError maps domain errors onto Connect codes.
func toConnectError(err error) error {
	if err == nil {
		return nil
	}
	var connectErr *connect.Error
	if errors.As(err, &connectErr) {
		return err
	}

	switch {
	case errors.Is(err, models.ErrValidation):
		return connect.NewError(connect.CodeInvalidArgument, err)
	case errors.Is(err, models.ErrNotFound):
		return connect.NewError(connect.CodeNotFound, err)
	case errors.Is(err, models.ErrNotifier):
		return connect.NewError(connect.CodeUnavailable, err)
	case errors.Is(err, models.ErrConsistency):
		slog.Error("Consistency violation", "error", err)
		return connect.NewError(connect.CodeInternal, errors.New("internal error"))
	default:
		return connect.NewError(connect.CodeInternal, err)
	}
}
