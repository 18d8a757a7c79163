package sendhandler

import (
	"github.com/fancyinnovations/mailout/internal/email"
	"github.com/fancyinnovations/mailout/internal/queue"
)

type SendRes struct {
	Response string `json:"response"`
}

// BatchItemReq is one batch entry. Connection overrides the service relay
// for that item; when nil the item goes through the configured relay.
type BatchItemReq struct {
	Connection *queue.ConnectionOptions `json:"connection,omitempty"`
	Email      email.Options            `json:"email"`
}

type BatchItemRes struct {
	Success  bool   `json:"success"`
	Response string `json:"response,omitempty"`
	Error    string `json:"error,omitempty"`
}
