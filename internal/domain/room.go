package domain

// RoomName is the opaque key grouping participants into one signaling scope.
type RoomName string

// TranscriptEntry is one flushed piece of recognized speech.
// TS is the flush wall-clock time in unix seconds. Entries are appended in
// flush order, which is monotonic per room.
type TranscriptEntry struct {
	TS   int64  `json:"ts"`
	Text string `json:"text"`
}
