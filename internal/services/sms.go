package services

import (
	"fmt"
	"log"
	"os"

	"github.com/twilio/twilio-go"
	openapi "github.com/twilio/twilio-go/rest/api/v2010"
)

// SMSService sends notification texts through Twilio. It is optional:
// when credentials are absent the backend runs without outbound SMS.
type SMSService struct {
	client     *twilio.RestClient
	fromNumber string
}

func NewSMSService() (*SMSService, error) {
	accountSid := os.Getenv("TWILIO_ACCOUNT_SID")
	authToken := os.Getenv("TWILIO_AUTH_TOKEN")
	fromNumber := os.Getenv("TWILIO_PHONE_NUMBER")

	if accountSid == "" || authToken == "" || fromNumber == "" {
		return nil, fmt.Errorf("missing Twilio credentials in environment variables")
	}

	client := twilio.NewRestClientWithParams(twilio.ClientParams{
		Username: accountSid,
		Password: authToken,
	})

	return &SMSService{
		client:     client,
		fromNumber: fromNumber,
	}, nil
}

// SendSMS sends a plain text message to the given number. The number
// must already carry a country prefix.
func (s *SMSService) SendSMS(to, body string) error {
	params := &openapi.CreateMessageParams{}
	params.SetTo(to)
	params.SetFrom(s.fromNumber)
	params.SetBody(body)

	resp, err := s.client.Api.CreateMessage(params)
	if err != nil {
		return fmt.Errorf("failed to send SMS to %s: %w", to, err)
	}

	if resp.Sid != nil {
		log.Printf("📤 SMS sent to %s (SID: %s)", to, *resp.Sid)
	}
	return nil
}

// SendWelcome notifies a newly registered patient. Failures are logged
// and swallowed so registration never fails on a messaging outage.
func (s *SMSService) SendWelcome(phone, name string) {
	if s == nil || s.client == nil {
		return
	}
	body := fmt.Sprintf("Welcome to Afya Health Records, %s. Your profile has been created. Dial *714*33# for patient services.", name)
	go func() {
		if err := s.SendSMS(internationalize(phone), body); err != nil {
			log.Printf("Welcome SMS failed for %s: %v", phone, err)
		}
	}()
}

// internationalize converts a canonical local number (0XXXXXXXXX) to
// the +233 form Twilio expects.
func internationalize(phone string) string {
	if len(phone) == 10 && phone[0] == '0' {
		return "+233" + phone[1:]
	}
	return phone
}
