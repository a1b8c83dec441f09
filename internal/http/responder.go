package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/example/repairops/internal/application"
)

var (
	errBadRequestBody      = errors.New("Ongeldig verzoekformaat.")
	errInvalidScope        = errors.New("Ongeldige scope, gebruik single of all.")
	errMissingSessionToken = errors.New("Geef een geldige sessietoken op.")
	errInvalidTimeWindow   = errors.New("Ongeldige tijdsperiode.")
)

type responder struct {
	logger *slog.Logger
}

func newResponder(logger *slog.Logger) responder {
	if logger == nil {
		logger = slog.Default()
	}
	return responder{logger: logger}
}

func (r responder) writeJSON(ctx context.Context, w http.ResponseWriter, status int, payload any) {
	if w == nil {
		return
	}

	if status == http.StatusNoContent || payload == nil {
		w.WriteHeader(status)
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		r.loggerFor(ctx).ErrorContext(ctx, "failed to encode response", "error", err)
	}
}

func (r responder) writeError(ctx context.Context, w http.ResponseWriter, status int, err error) {
	message := localizedStatusMessage(status)
	if err != nil {
		if msg := strings.TrimSpace(err.Error()); msg != "" {
			message = msg
		}
		r.loggerFor(ctx).ErrorContext(ctx, "request failed", "status", status, "error", err)
	}

	r.writeJSON(ctx, w, status, errorResponse{Message: message})
}

func (r responder) handleServiceError(ctx context.Context, w http.ResponseWriter, err error) {
	if err == nil {
		r.writeError(ctx, w, http.StatusInternalServerError, errors.New("unknown error"))
		return
	}

	switch {
	case errors.Is(err, application.ErrUnauthorized):
		r.writeJSON(ctx, w, http.StatusForbidden, errorResponse{
			ErrorCode: "AUTH_FORBIDDEN",
			Message:   "U heeft geen rechten voor deze actie.",
		})
	case errors.Is(err, application.ErrInvalidCredentials):
		r.writeJSON(ctx, w, http.StatusUnauthorized, errorResponse{Message: "Onjuiste inloggegevens."})
	case errors.Is(err, application.ErrNotFound):
		r.writeJSON(ctx, w, http.StatusNotFound, errorResponse{Message: "De opgevraagde gegevens zijn niet gevonden."})
	case errors.Is(err, application.ErrAlreadyExists):
		r.writeJSON(ctx, w, http.StatusConflict, errorResponse{Message: "Deze gegevens bestaan al."})
	default:
		var vErr *application.ValidationError
		if errors.As(err, &vErr) {
			r.writeJSON(ctx, w, http.StatusUnprocessableEntity, errorResponse{
				Message: "De invoer bevat fouten.",
				Errors:  localizeValidationErrors(vErr),
			})
			return
		}

		r.loggerFor(ctx).ErrorContext(ctx, "request failed", "error", err)
		r.writeJSON(ctx, w, http.StatusInternalServerError, errorResponse{Message: "Er is een interne fout opgetreden."})
	}
}

func (r responder) loggerFor(ctx context.Context) *slog.Logger {
	return handlerLogger(ctx, r.logger, "", "")
}

func localizedStatusMessage(status int) string {
	switch status {
	case http.StatusBadRequest:
		return "Het verzoek is niet correct."
	case http.StatusUnauthorized:
		return "Inloggen is vereist."
	case http.StatusForbidden:
		return "U heeft geen rechten voor deze actie."
	case http.StatusNotFound:
		return "De opgevraagde gegevens zijn niet gevonden."
	case http.StatusConflict:
		return "Het verzoek botst met de huidige staat van de gegevens."
	case http.StatusUnprocessableEntity:
		return "De invoer bevat fouten."
	case http.StatusRequestEntityTooLarge:
		return "Het bestand is te groot."
	case http.StatusTooManyRequests:
		return "Te veel verzoeken, probeer het later opnieuw."
	default:
		return "Er is een interne fout opgetreden."
	}
}

func localizeValidationErrors(vErr *application.ValidationError) map[string]string {
	if vErr == nil || len(vErr.FieldErrors) == 0 {
		return nil
	}

	translated := make(map[string]string, len(vErr.FieldErrors))
	for field, msg := range vErr.FieldErrors {
		translated[field] = translateValidationMessage(msg)
	}
	return translated
}

func translateValidationMessage(message string) string {
	switch message {
	case "title is required":
		return "Titel is verplicht."
	case "start is required":
		return "Begindatum is verplicht."
	case "end is required":
		return "Einddatum is verplicht."
	case "end must be after start":
		return "De eindtijd moet na de begintijd liggen."
	case "start must not be in the past":
		return "De begintijd mag niet in het verleden liggen."
	case "type must be one of meeting, internal, task, blocked":
		return "Ongeldig afspraaktype."
	case "recurrence rule is not valid":
		return "De herhalingsregel is ongeldig."
	case "recurrence rule cannot be expanded":
		return "De herhalingsregel kan niet worden toegepast."
	case "priority must be one of low, normal, high, urgent":
		return "Ongeldige prioriteit."
	case "status transition is not allowed":
		return "Deze statuswijziging is niet toegestaan."
	case "status can only move forward":
		return "De status kan alleen vooruit."
	case "unknown status":
		return "Onbekende status."
	case "status must be open or done":
		return "Status moet open of done zijn."
	case "status must be one of open, in_progress, resolved, closed":
		return "Ongeldige status."
	case "supplier reference is required":
		return "Leveranciersreferentie is verplicht."
	case "description is required":
		return "Omschrijving is verplicht."
	case "quantity must be positive":
		return "Aantal moet positief zijn."
	case "unit price must not be negative":
		return "Stukprijs mag niet negatief zijn."
	case "each part needs a name and a positive quantity":
		return "Elk onderdeel heeft een naam en een positief aantal nodig."
	case "valid email is required":
		return "Een geldig e-mailadres is verplicht."
	case "display name is required":
		return "Weergavenaam is verplicht."
	case "role must be admin or technician":
		return "Rol moet admin of technician zijn."
	case "password must be at least 8 characters":
		return "Wachtwoord moet minimaal 8 tekens bevatten."
	case "unknown entity kind":
		return "Onbekend entiteitstype."
	case "entity id is required":
		return "Entiteit-ID is verplicht."
	case "note body is required":
		return "Notitietekst is verplicht."
	case "at least one file is required":
		return "Minimaal één bestand is verplicht."
	case "file exceeds the upload size limit":
		return "Het bestand overschrijdt de uploadlimiet."
	default:
		if strings.HasPrefix(message, "at most ") {
			return "Te veel bestanden in één upload."
		}
		return message
	}
}

type errorResponse struct {
	ErrorCode string            `json:"error_code,omitempty"`
	Message   string            `json:"message"`
	Errors    map[string]string `json:"errors,omitempty"`
}
