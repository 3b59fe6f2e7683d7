package bridge

// Envelope exchanged with the carrier media socket. The carrier speaks JSON
// text frames with an "event" discriminator; audio rides base64 in "media"
// frames on both directions.
const (
	eventConnected = "connected"
	eventStart     = "start"
	eventMedia     = "media"
	eventStop      = "stop"
	eventMark      = "mark"
)

type inboundFrame struct {
	Event     string        `json:"event"`
	StreamSid string        `json:"streamSid,omitempty"`
	Start     *startFrame   `json:"start,omitempty"`
	Media     *mediaPayload `json:"media,omitempty"`
}

type startFrame struct {
	StreamSid string   `json:"streamSid"`
	CallSid   string   `json:"callSid"`
	Tracks    []string `json:"tracks,omitempty"`
}

type mediaPayload struct {
	Track   string `json:"track,omitempty"`
	Payload string `json:"payload"`
}

type outboundFrame struct {
	Event     string        `json:"event"`
	StreamSid string        `json:"streamSid"`
	Media     *mediaPayload `json:"media,omitempty"`
}
