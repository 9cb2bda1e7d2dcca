package pipeline

import "context"

// EventType discriminates batch progress events.
type EventType string

const (
	EventStarted       EventType = "started"        // emitted before each attempt
	EventItemCompleted EventType = "item_completed" // one item finished with a transcript
	EventItemFailed    EventType = "item_failed"    // one item finished without one
	EventFinished      EventType = "finished"       // the whole batch is done
)

// Counters aggregates batch results. Folded into every event after the
// first so consumers can render progress without keeping state.
type Counters struct {
	Caption int `json:"extracted"`
	AI      int `json:"extracted_ai"`
	Failed  int `json:"failed"`
	Total   int `json:"total"`
}

// Event is one step of batch progress. Started is a heartbeat, not a
// completion signal; completion shows up in the counters of later events.
type Event struct {
	Type     EventType
	Index    int    // 1-based position within the batch, Started only
	Label    string // video id being attempted, Started only
	Method   string // ItemCompleted only
	Reason   string // ItemFailed only
	Counters Counters
}

// Stream processes items strictly sequentially and delivers progress on the
// returned channel. Items already completed are skipped up front and do not
// consume a slot. The channel is closed after the Finished event; an
// unread channel blocks the run, so consumer pace is the backpressure.
func (r *Runner) Stream(ctx context.Context, items []WorkItem) <-chan Event {
	ch := make(chan Event)
	go func() {
		defer close(ch)

		pending := make([]WorkItem, 0, len(items))
		for _, item := range items {
			status, err := r.store.Status(ctx, item.VideoID)
			if err == nil && status == StatusCompleted {
				continue
			}
			pending = append(pending, item)
		}

		c := Counters{Total: len(pending)}
		for i, item := range pending {
			if !send(ctx, ch, Event{
				Type:     EventStarted,
				Index:    i + 1,
				Label:    item.VideoID,
				Counters: c,
			}) {
				return
			}

			outcome, err := r.Process(ctx, item)
			var ev Event
			switch {
			case err != nil:
				c.Failed++
				ev = Event{Type: EventItemFailed, Reason: TruncateError(err), Counters: c}
			case outcome == nil:
				c.Failed++
				ev = Event{Type: EventItemFailed, Reason: msgNoTranscript, Counters: c}
			default:
				if outcome.Method == MethodCaption {
					c.Caption++
				} else {
					c.AI++
				}
				ev = Event{Type: EventItemCompleted, Method: outcome.Method, Counters: c}
			}
			if !send(ctx, ch, ev) {
				return
			}
			if ctx.Err() != nil {
				return
			}
		}

		send(ctx, ch, Event{Type: EventFinished, Counters: c})
	}()
	return ch
}

func send(ctx context.Context, ch chan<- Event, ev Event) bool {
	select {
	case ch <- ev:
		return true
	case <-ctx.Done():
		return false
	}
}
