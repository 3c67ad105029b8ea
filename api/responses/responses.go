package responses

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog/log"

	pkgerrors "github.com/angelmondragon/floorops-backend/pkg/errors"
	"github.com/angelmondragon/floorops-backend/pkg/logger"
	"github.com/angelmondragon/floorops-backend/pkg/types"
)

func WriteSuccess(w http.ResponseWriter, data any) {
	WriteSuccessWithWarnings(w, http.StatusOK, data, nil)
}

func WriteSuccessStatus(w http.ResponseWriter, status int, data any) {
	WriteSuccessWithWarnings(w, status, data, nil)
}

func WriteSuccessWithWarnings(w http.ResponseWriter, status int, data any, warnings []types.Warning) {
	writeJSON(w, status, types.SuccessEnvelope{Data: data, Warnings: warnings})
}

// WarningFrom renders a coded error for the warnings list of a success body.
// Untyped errors are not warnings.
func WarningFrom(err error) (types.Warning, bool) {
	typed := pkgerrors.As(err)
	if typed == nil {
		return types.Warning{}, false
	}
	public := render(typed)
	return types.Warning{Code: public.Code, Message: public.Message, Details: public.Details}, true
}

// WriteError maps err onto its code's status and logs it. Alertable failures
// log at error with a stack; everything else is a warn-level rejection.
func WriteError(ctx context.Context, logg *logger.Logger, w http.ResponseWriter, err error) {
	typed := pkgerrors.As(err)
	if typed == nil {
		typed = pkgerrors.Wrap(pkgerrors.CodeInternal, err, "unexpected error")
	}
	meta := pkgerrors.MetadataFor(typed.Code())

	if logg != nil {
		dump := pkgerrors.Dump(typed)
		fields := dump.Fields()
		fields["status"] = meta.HTTPStatus
		ctx = logg.WithFields(ctx, fields)
		if dump.Alertable {
			logg.Error(ctx, "request.error", typed)
		} else {
			logg.Warn(ctx, "request.rejected")
		}
	}

	writeJSON(w, meta.HTTPStatus, types.ErrorEnvelope{Error: render(typed)})
}

// render hides the message of alertable codes behind the public one.
func render(typed *pkgerrors.Error) types.APIError {
	meta := pkgerrors.MetadataFor(typed.Code())
	out := types.APIError{
		Code:      string(typed.Code()),
		Message:   meta.PublicMessage,
		Retryable: meta.Retryable,
	}
	if msg := typed.Message(); msg != "" && !meta.Alertable {
		out.Message = msg
	}
	if meta.DetailsAllowed {
		out.Details = typed.Details()
	}
	return out
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Error().Err(err).Int("status", status).Msg("response.encode_failed")
	}
}
