package observe

import (
	"github.com/apex/log"
)

// Logger returns an Observer writing every event to logger.
//
// Lifecycle events are logged at debug level, conflicts as warnings,
// and releases whose teardown failed as errors.
func Logger(logger log.Interface) Observer {
	return func(event Event) {
		entry := logger.WithFields(log.Fields{
			"group":  event.Group,
			"handle": event.Handle,
			"shares": event.Shares,
		})

		switch {
		case event.Kind == Conflict:
			entry.WithError(event.Err).Warn(event.Kind.String())
		case event.Err != nil:
			entry.WithError(event.Err).Error(event.Kind.String())
		default:
			entry.Debug(event.Kind.String())
		}
	}
}
