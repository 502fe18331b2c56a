package cli

import (
	"context"
	"errors"

	"github.com/magabrotheeeer/mirzo-ai/internal/app"
	"github.com/magabrotheeeer/mirzo-ai/internal/http/client"
	"github.com/magabrotheeeer/mirzo-ai/internal/http/response"
	"github.com/magabrotheeeer/mirzo-ai/internal/lib/attachment"
	"github.com/magabrotheeeer/mirzo-ai/internal/output"
	"github.com/magabrotheeeer/mirzo-ai/internal/services/auth"
	"github.com/magabrotheeeer/mirzo-ai/internal/services/subscription"
)

// toCLIError переводит ошибку сервиса в сообщение для пользователя.
// Текст ошибок бэкенда показывается как есть.
func toCLIError(err error) *output.CLIError {
	var cliErr *output.CLIError
	if errors.As(err, &cliErr) {
		return cliErr
	}

	var formErr *response.FormError
	if errors.As(err, &formErr) {
		return &output.CLIError{Summary: "invalid input", Detail: formErr.Messages, ExitCode: output.ExitUsageError, Err: err}
	}

	switch {
	case errors.Is(err, context.Canceled):
		return &output.CLIError{Summary: "interrupted", ExitCode: output.ExitGeneral, Err: err}
	case errors.Is(err, auth.ErrNoSession), client.IsUnauthorized(err):
		return &output.CLIError{
			Summary:    "not logged in",
			Suggestion: "sign in with `mirzo login`",
			ExitCode:   output.ExitUnauthorized,
			Err:        err,
		}
	case errors.Is(err, app.ErrLocked):
		return &output.CLIError{
			Summary:    "this section requires an active subscription",
			Suggestion: "see `mirzo subscription info` and upload a receipt with `mirzo subscription upload`",
			ExitCode:   output.ExitLocked,
			Err:        err,
		}
	case errors.Is(err, subscription.ErrReceiptRequired):
		return &output.CLIError{Summary: "receipt file is required", ExitCode: output.ExitUsageError, Err: err}
	case errors.Is(err, attachment.ErrTooLarge), errors.Is(err, attachment.ErrNotImage):
		return &output.CLIError{Summary: err.Error(), ExitCode: output.ExitUsageError, Err: err}
	}

	var apiErr *response.APIError
	if errors.As(err, &apiErr) {
		return &output.CLIError{Summary: apiErr.Error(), ExitCode: output.ExitGeneral, Err: err}
	}
	return &output.CLIError{Summary: err.Error(), ExitCode: output.ExitGeneral, Err: err}
}
