package telephony

import (
	"bytes"
	"encoding/xml"
)

// TwiML documents for the voice flows. Built by hand on encoding/xml; the
// provider SDK stays confined to signature validation and live call updates.

const (
	// VoiceName selects the carrier TTS voice for every spoken prompt.
	VoiceName = "Polly.Joanna"

	holdMusicURL = "http://com.twilio.sounds.music.s3.amazonaws.com/MARKOVICHAMP-B8-V2.mp3"

	connectPrompt  = "Please wait while I connect you."
	transferPrompt = "Let me connect you with one of our team members. One moment please."

	voicemailGreeting = "You've reached Gordon Ulen CPA. Our office is currently unavailable. Please leave your name, phone number, and a brief message after the beep. You can also visit our client portal to upload documents or check your return status. We'll return your call within one business day."
	voicemailTimeout  = "We did not receive a message. Goodbye."

	// FarewellMessage closes a call the agent resolved without a summary.
	FarewellMessage = "Thank you for calling Gordon Ulen CPA. Have a great day!"

	// RecordingFarewell closes a call after a voicemail was captured.
	RecordingFarewell = "Thank you for your message. Goodbye."

	// DefaultWhisper is spoken to staff when no transfer context was given.
	DefaultWhisper = "Incoming call transfer from AI assistant."
)

type twimlResponse struct {
	XMLName xml.Name `xml:"Response"`
	Verbs   []any    `xml:",any"`
}

type twimlSay struct {
	XMLName xml.Name `xml:"Say"`
	Voice   string   `xml:"voice,attr"`
	Text    string   `xml:",chardata"`
}

type twimlPlay struct {
	XMLName xml.Name `xml:"Play"`
	Loop    int      `xml:"loop,attr"`
	URL     string   `xml:",chardata"`
}

type twimlConnect struct {
	XMLName xml.Name    `xml:"Connect"`
	Stream  twimlStream `xml:"Stream"`
}

type twimlStream struct {
	URL  string `xml:"url,attr"`
	Name string `xml:"name,attr,omitempty"`
}

type twimlDial struct {
	XMLName  xml.Name    `xml:"Dial"`
	CallerID string      `xml:"callerId,attr,omitempty"`
	Timeout  int         `xml:"timeout,attr"`
	Action   string      `xml:"action,attr"`
	Number   twimlNumber `xml:"Number"`
}

type twimlNumber struct {
	URL                 string `xml:"url,attr,omitempty"`
	StatusCallback      string `xml:"statusCallback,attr,omitempty"`
	StatusCallbackEvent string `xml:"statusCallbackEvent,attr,omitempty"`
	Number              string `xml:",chardata"`
}

type twimlRecord struct {
	XMLName            xml.Name `xml:"Record"`
	MaxLength          int      `xml:"maxLength,attr"`
	Action             string   `xml:"action,attr"`
	Transcribe         bool     `xml:"transcribe,attr"`
	TranscribeCallback string   `xml:"transcribeCallback,attr"`
	PlayBeep           bool     `xml:"playBeep,attr"`
}

type twimlHangup struct {
	XMLName xml.Name `xml:"Hangup"`
}

func say(text string) twimlSay {
	return twimlSay{Voice: VoiceName, Text: text}
}

func render(verbs ...any) (string, error) {
	r := twimlResponse{Verbs: verbs}
	var buf bytes.Buffer
	buf.WriteString(xml.Header)
	enc := xml.NewEncoder(&buf)
	enc.Indent("", "  ")
	if err := enc.Encode(r); err != nil {
		return "", err
	}
	if err := enc.Flush(); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// StreamConnectTwiML greets the caller and opens the bidirectional media
// stream to the bridge.
func StreamConnectTwiML(streamURL string) (string, error) {
	return render(
		say(connectPrompt),
		twimlConnect{Stream: twimlStream{URL: streamURL, Name: "agent-stream"}},
	)
}

// TransferTwiML dials a staff number with hold music and a whisper prompt.
// The dial action reports the outcome so a failed transfer can fall back to
// voicemail.
func TransferTwiML(staffNumber, callerID, whisperURL, actionURL, answeredCallbackURL string) (string, error) {
	return render(
		say(transferPrompt),
		twimlPlay{Loop: 0, URL: holdMusicURL},
		twimlDial{
			CallerID: callerID,
			Timeout:  30,
			Action:   actionURL,
			Number: twimlNumber{
				URL:                 whisperURL,
				StatusCallback:      answeredCallbackURL,
				StatusCallbackEvent: "answered",
				Number:              staffNumber,
			},
		},
	)
}

// VoicemailTwiML plays the office greeting and records up to two minutes,
// with carrier-side transcription reported to transcribeCallbackURL.
func VoicemailTwiML(recordingActionURL, transcribeCallbackURL string) (string, error) {
	return render(
		say(voicemailGreeting),
		twimlRecord{
			MaxLength:          120,
			Action:             recordingActionURL,
			Transcribe:         true,
			TranscribeCallback: transcribeCallbackURL,
			PlayBeep:           true,
		},
		say(voicemailTimeout),
	)
}

// HangupTwiML optionally speaks a farewell and ends the call.
func HangupTwiML(message string) (string, error) {
	if message == "" {
		return render(twimlHangup{})
	}
	return render(say(message), twimlHangup{})
}

// WhisperTwiML speaks transfer context to the answering staff member.
func WhisperTwiML(text string) (string, error) {
	return render(say(text))
}

// EmptyTwiML is a bare response; the carrier resumes the current call flow.
func EmptyTwiML() (string, error) {
	return render()
}
