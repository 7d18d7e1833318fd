package stream

import "time"

// TimeLayout renders a timestamp as YYYY-MM-DD HH:MM:SS on a 24-hour clock.
const TimeLayout = "2006-01-02 15:04:05"

// Event is a single timestamp pushed to a connected client. One is created
// per tick and serialized immediately.
type Event struct {
	Timestamp time.Time
}

// Frame returns the wire encoding of e.
func (e Event) Frame() []byte {
	return Format(e.Timestamp)
}

// Format returns the frame "data: <timestamp>\n\n" for t. The timestamp is
// rendered in t's own location; no timezone conversion happens here.
func Format(t time.Time) []byte {
	b := make([]byte, 0, len("data: ")+len(TimeLayout)+2)
	b = append(b, "data: "...)
	b = t.AppendFormat(b, TimeLayout)
	return append(b, '\n', '\n')
}
