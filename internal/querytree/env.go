package querytree

import (
	"log/slog"
	"time"

	"github.com/roach88/fetchq/internal/metadata"
	"github.com/roach88/fetchq/internal/reactive"
)

// DefaultDebounce is the quiet period before a remote validator looks up
// metadata for an edited value.
const DefaultDebounce = 250 * time.Millisecond

// Env is what factories and validators are built with. It is passed
// explicitly; nothing in this package looks services up globally.
type Env struct {
	Loop     *reactive.Loop
	Provider metadata.Provider
	Logger   *slog.Logger
	Debounce time.Duration
}
