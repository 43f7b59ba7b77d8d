// Package supervisor restarts the background services when they fail.
package supervisor

import (
	"log/slog"
	"os"
	"time"

	"github.com/thejerf/suture/v4"
	"github.com/thejerf/sutureslog"
)

const shutdownTimeout = 10 * time.Second

// New returns the root supervisor for the given services. Supervisor events
// go to a JSON slog handler on stderr since sutureslog speaks slog only.
func New(services ...suture.Service) *suture.Supervisor {
	handler := &sutureslog.Handler{Logger: slog.New(slog.NewJSONHandler(os.Stderr, nil))}

	sup := suture.New("shelfwatch", suture.Spec{
		EventHook: handler.MustHook(),
		Timeout:   shutdownTimeout,
	})
	for _, svc := range services {
		sup.Add(svc)
	}
	return sup
}
