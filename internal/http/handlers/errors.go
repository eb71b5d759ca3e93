package handlers

import (
	"errors"
	"net/http"

	"pdfgate/internal/domain"
)

// Action tells the UI which affordance to show next to an error.
type Action string

const (
	ActionNone          Action = "none"
	ActionUpgrade       Action = "upgrade"
	ActionWrongFileType Action = "wrong_file_type"
	ActionRetry         Action = "retry"
)

type errorMapping struct {
	Status  int
	Code    string
	Message string
	Action  Action
}

var conversionErrors = map[domain.ErrorKind]errorMapping{
	domain.KindVectorRequired: {
		Status:  http.StatusUnprocessableEntity,
		Code:    "vector_required",
		Message: "This tool needs a vector PDF. Scanned or image-only documents cannot be converted.",
		Action:  ActionWrongFileType,
	},
	domain.KindUnsupportedBinFormat: {
		Status:  http.StatusUnsupportedMediaType,
		Code:    "unsupported_bin_format",
		Message: "The uploaded .bin file is not a supported CAD binary format.",
		Action:  ActionWrongFileType,
	},
	domain.KindPlanRequired: {
		Status:  http.StatusForbidden,
		Code:    "plan_required",
		Message: "This tool requires a Pro or Enterprise plan.",
		Action:  ActionUpgrade,
	},
	domain.KindEnterpriseRequired: {
		Status:  http.StatusForbidden,
		Code:    "enterprise_required",
		Message: "This tool is available on the Enterprise plan only.",
		Action:  ActionUpgrade,
	},
	domain.KindNoCredits: {
		Status:  http.StatusPaymentRequired,
		Code:    "no_credits",
		Message: "You have used all free conversions. Upgrade to continue.",
		Action:  ActionUpgrade,
	},
	domain.KindAccessDenied: {
		Status:  http.StatusForbidden,
		Code:    "access_denied",
		Message: "Access denied.",
		Action:  ActionNone,
	},
	domain.KindExecutionFailed: {
		Status:  http.StatusBadGateway,
		Code:    "execution_failed",
		Message: "The conversion failed. Please try again.",
		Action:  ActionRetry,
	},
}

func errorMappingFor(kind domain.ErrorKind) errorMapping {
	if m, ok := conversionErrors[kind]; ok {
		return m
	}
	return errorMapping{Status: http.StatusInternalServerError, Code: "internal", Message: "internal error", Action: ActionRetry}
}

// conversionError writes the envelope for an Execute failure.
func (a *App) conversionError(w http.ResponseWriter, err error) {
	kind, ok := domain.KindOf(err)
	if !ok {
		a.Logger.Error().Err(err).Msg("conversion: unclassified error")
		a.error(w, http.StatusInternalServerError, "internal", "internal error")
		return
	}
	m := errorMappingFor(kind)
	a.json(w, m.Status, map[string]any{
		"error": map[string]string{
			"code":    m.Code,
			"kind":    string(kind),
			"message": m.Message,
			"action":  string(m.Action),
		},
	})
}

func isTooLarge(err error) bool {
	var maxErr *http.MaxBytesError
	return errors.As(err, &maxErr)
}
