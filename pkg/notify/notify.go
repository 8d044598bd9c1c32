// Package notify relays pipeline progress events to whichever front end is
// attached: a console line for the CLI, or a per-run fanout hub feeding the
// server-push stream. Transports are decoupled from the pipeline so workers
// never block on a slow consumer.
package notify

import "github.com/aditya-xq/PicToWebP/pkg/convert"

// Notifier is the sink for progress events.
type Notifier = convert.ProgressSink

// Multi fans one event out to several notifiers in order.
type Multi []Notifier

// Notify implements Notifier.
func (m Multi) Notify(e convert.ProgressEvent) {
	for _, n := range m {
		if n != nil {
			n.Notify(e)
		}
	}
}

// Discard is a Notifier that drops every event.
var Discard = convert.ProgressFunc(func(convert.ProgressEvent) {})
