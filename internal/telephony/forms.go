package telephony

import (
	"net/http"
	"strconv"
	"strings"
)

// Webhook form parsing. The carrier posts application/x-www-form-urlencoded;
// only the fields the flows consume are captured. Business decisions are not
// made here.

type VoiceForm struct {
	CallSid    string
	From       string
	To         string
	Direction  string
	CallStatus string
}

type StatusForm struct {
	CallSid      string
	CallStatus   string
	CallDuration int
	RecordingURL string
}

type RecordingForm struct {
	CallSid           string
	RecordingURL      string
	RecordingDuration int
}

type TranscriptionForm struct {
	CallSid             string
	TranscriptionText   string
	TranscriptionStatus string
}

type DialStatusForm struct {
	CallSid        string
	DialCallStatus string
}

func ParseVoiceForm(r *http.Request) (VoiceForm, error) {
	if err := r.ParseForm(); err != nil {
		return VoiceForm{}, err
	}
	return VoiceForm{
		CallSid:    r.PostFormValue("CallSid"),
		From:       normalizePhone(r.PostFormValue("From")),
		To:         normalizePhone(r.PostFormValue("To")),
		Direction:  r.PostFormValue("Direction"),
		CallStatus: r.PostFormValue("CallStatus"),
	}, nil
}

func ParseStatusForm(r *http.Request) (StatusForm, error) {
	if err := r.ParseForm(); err != nil {
		return StatusForm{}, err
	}
	duration, _ := strconv.Atoi(r.PostFormValue("CallDuration"))
	return StatusForm{
		CallSid:      r.PostFormValue("CallSid"),
		CallStatus:   r.PostFormValue("CallStatus"),
		CallDuration: duration,
		RecordingURL: r.PostFormValue("RecordingUrl"),
	}, nil
}

func ParseRecordingForm(r *http.Request) (RecordingForm, error) {
	if err := r.ParseForm(); err != nil {
		return RecordingForm{}, err
	}
	duration, _ := strconv.Atoi(r.PostFormValue("RecordingDuration"))
	return RecordingForm{
		CallSid:           r.PostFormValue("CallSid"),
		RecordingURL:      r.PostFormValue("RecordingUrl"),
		RecordingDuration: duration,
	}, nil
}

func ParseTranscriptionForm(r *http.Request) (TranscriptionForm, error) {
	if err := r.ParseForm(); err != nil {
		return TranscriptionForm{}, err
	}
	return TranscriptionForm{
		CallSid:             r.PostFormValue("CallSid"),
		TranscriptionText:   r.PostFormValue("TranscriptionText"),
		TranscriptionStatus: r.PostFormValue("TranscriptionStatus"),
	}, nil
}

func ParseDialStatusForm(r *http.Request) (DialStatusForm, error) {
	if err := r.ParseForm(); err != nil {
		return DialStatusForm{}, err
	}
	return DialStatusForm{
		CallSid:        r.PostFormValue("CallSid"),
		DialCallStatus: r.PostFormValue("DialCallStatus"),
	}, nil
}

func normalizePhone(s string) string {
	// The carrier sometimes sends "anonymous" or empty; keep as-is.
	return strings.TrimSpace(s)
}
