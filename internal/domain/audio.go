package domain

// AudioFragment is one inbound chunk of raw audio, consumed exactly once by
// the room's buffer worker. TS is the capture time in unix milliseconds as
// reported by the client; Seq breaks ties between fragments with equal TS.
type AudioFragment struct {
	TS   int64
	Seq  int64
	Data []byte
}
