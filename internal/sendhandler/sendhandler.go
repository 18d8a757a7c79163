// Package sendhandler exposes mail submission over HTTP.
package sendhandler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/OliverSchlueter/goutils/problems"
	"github.com/fancyinnovations/mailout/internal/email"
	"github.com/fancyinnovations/mailout/internal/mailer"
)

type Handler struct {
	cfg mailer.Configuration
}

func New(cfg mailer.Configuration) *Handler {
	return &Handler{
		cfg: cfg,
	}
}

func (h *Handler) Register(prefix string, mux *http.ServeMux) {
	mux.HandleFunc(prefix+"/send", h.handleSend)
	mux.HandleFunc(prefix+"/send/batch", h.handleSendBatch)
}

func (h *Handler) handleSend(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		h.send(w, r)
	default:
		problems.MethodNotAllowed(r.Method, []string{http.MethodPost}).WriteToHTTP(w)
	}
}

func (h *Handler) send(w http.ResponseWriter, r *http.Request) {
	var opts email.Options
	if err := json.NewDecoder(r.Body).Decode(&opts); err != nil {
		problems.CouldNotDecodeBody().WriteToHTTP(w)
		return
	}

	response, err := mailer.Send(h.cfg, opts)
	if err != nil {
		if isValidationError(err) {
			problems.ValidationError("email", err.Error()).WriteToHTTP(w)
			return
		}
		problems.InternalServerError("Failed to send email: " + err.Error()).WriteToHTTP(w)
		return
	}

	data, err := json.Marshal(SendRes{Response: response})
	if err != nil {
		problems.InternalServerError("Error marshalling response").WriteToHTTP(w)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

func (h *Handler) handleSendBatch(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		h.sendBatch(w, r)
	default:
		problems.MethodNotAllowed(r.Method, []string{http.MethodPost}).WriteToHTTP(w)
	}
}

func (h *Handler) sendBatch(w http.ResponseWriter, r *http.Request) {
	var req []BatchItemReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		problems.CouldNotDecodeBody().WriteToHTTP(w)
		return
	}

	items := make([]mailer.Item, len(req))
	for i, item := range req {
		cfg := h.cfg
		if item.Connection != nil {
			cfg = item.Connection.Configuration()
		}
		items[i] = mailer.Item{Config: cfg, Email: item.Email}
	}

	outcomes := mailer.ProcessBatch(items)

	res := make([]BatchItemRes, len(outcomes))
	for i, o := range outcomes {
		res[i] = BatchItemRes{Success: o.Success, Response: o.Response}
		if o.Err != nil {
			res[i].Error = o.Err.Error()
		}
	}

	data, err := json.Marshal(res)
	if err != nil {
		problems.InternalServerError("Error marshalling outcomes").WriteToHTTP(w)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

// isValidationError reports whether the failure is a bad request rather
// than a delivery problem.
func isValidationError(err error) bool {
	var ia *email.InvalidAddressesError
	return errors.Is(err, email.ErrNoContent) ||
		errors.Is(err, email.ErrNoRecipients) ||
		errors.As(err, &ia)
}
