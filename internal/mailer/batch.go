package mailer

import (
	"log/slog"

	"github.com/OliverSchlueter/goutils/sloki"
	"github.com/fancyinnovations/mailout/internal/email"
)

// Item pairs connection options with one email, the unit handed over by a
// host queue.
type Item struct {
	Config Configuration
	Email  email.Options
}

// Outcome is the result for one batch item. It is fully populated either
// way: Response on success, Err on failure.
type Outcome struct {
	Success  bool
	Response string
	Err      error
}

// ProcessBatch sends every item over its own connection and returns one
// outcome per item, in input order. A failing item never aborts the rest.
// Retry and redelivery of failed items belong to the host queue feeding
// the batch; nothing is retried here. The loop is sequential; callers
// wanting parallel delivery run multiple batches under their own
// concurrency ceiling.
func ProcessBatch(items []Item) []Outcome {
	outcomes := make([]Outcome, len(items))
	for i, item := range items {
		response, err := Send(item.Config, item.Email)
		if err != nil {
			slog.Warn("Batch item failed", slog.Int("item", i), sloki.WrapError(err))
			outcomes[i] = Outcome{Err: err}
			continue
		}
		outcomes[i] = Outcome{Success: true, Response: response}
	}
	return outcomes
}
