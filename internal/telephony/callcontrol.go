package telephony

import (
	"context"
	"fmt"

	twilio "github.com/twilio/twilio-go"
	openapi "github.com/twilio/twilio-go/rest/api/v2010"
)

// CallControl redirects a live call to new TwiML mid-flight.
type CallControl interface {
	Redirect(ctx context.Context, callID, twiml string) error
}

// TwilioCallControl drives live calls through the provider REST API.
type TwilioCallControl struct {
	api *twilio.RestClient
}

func NewTwilioCallControl(accountSID, authToken string) *TwilioCallControl {
	return &TwilioCallControl{
		api: twilio.NewRestClientWithParams(twilio.ClientParams{
			Username: accountSID,
			Password: authToken,
		}),
	}
}

func (t *TwilioCallControl) Redirect(ctx context.Context, callID, twiml string) error {
	params := &openapi.UpdateCallParams{}
	params.SetTwiml(twiml)
	if _, err := t.api.Api.UpdateCall(callID, params); err != nil {
		return fmt.Errorf("telephony: update call %s: %w", callID, err)
	}
	return nil
}
