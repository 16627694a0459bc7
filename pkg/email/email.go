// pkg/email/email.go
package email

import (
	"bytes"
	"encoding/json"
	"fmt"
	"html/template"
	"io"
	"log"
	"net/http"
	"time"
)

type EmailService struct {
	apiKey    string
	from      string
	templates *template.Template
}

type EmailData struct {
	From    string `json:"from"`
	To      string `json:"to"`
	Subject string `json:"subject"`
	Html    string `json:"html"`
}

// Template data structures
type WelcomeEmailData struct {
	Name string
}

type SubscriptionEmailData struct {
	Name      string
	PlanName  string
	Price     float64
	RenewsAt  string
	HasPeriod bool
}

type SubscriptionCancelledData struct {
	Name      string
	PlanName  string
	ActiveTil string
	HasPeriod bool
}

type PaymentFailedData struct {
	Name     string
	PlanName string
}

type SubscriptionExpiryWarningData struct {
	Name       string
	PlanName   string
	DaysLeft   int
	ExpiryDate time.Time
}

func NewEmailService(apiKey string) (*EmailService, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("resend API key is required")
	}

	templates, err := loadTemplates()
	if err != nil {
		return nil, fmt.Errorf("error loading email templates: %v", err)
	}

	return &EmailService{
		apiKey:    apiKey,
		from:      "SocialPulse <noreply@socialpulse.app>",
		templates: templates,
	}, nil
}

func (s *EmailService) sendTemplateEmail(to, subject, templateName string, data interface{}) error {
	var body bytes.Buffer
	if err := s.templates.ExecuteTemplate(&body, templateName, data); err != nil {
		return fmt.Errorf("template execution error: %v", err)
	}

	emailData := EmailData{
		From:    s.from,
		To:      to,
		Subject: subject,
		Html:    body.String(),
	}

	jsonData, err := json.Marshal(emailData)
	if err != nil {
		return fmt.Errorf("error marshaling email data: %v", err)
	}

	req, err := http.NewRequest("POST", "https://api.resend.com/emails", bytes.NewBuffer(jsonData))
	if err != nil {
		return fmt.Errorf("error creating request: %v", err)
	}

	req.Header.Set("Authorization", "Bearer "+s.apiKey)
	req.Header.Set("Content-Type", "application/json")

	client := &http.Client{}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("error sending email: %v", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("error reading response body: %v", err)
	}

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		log.Printf("Resend API error: Status: %d, Body: %s", resp.StatusCode, string(respBody))
		return fmt.Errorf("resend API error: %s", string(respBody))
	}

	return nil
}

// Email sending methods
func (s *EmailService) SendWelcomeEmail(email, name string) error {
	data := WelcomeEmailData{
		Name: name,
	}
	return s.sendTemplateEmail(email, "Welcome to SocialPulse! 🎉", "welcome.html", data)
}

func (s *EmailService) SendSubscriptionStartedEmail(email, name, planName string, price float64, periodEnd *time.Time) error {
	data := SubscriptionEmailData{
		Name:     name,
		PlanName: planName,
		Price:    price,
	}
	if periodEnd != nil {
		data.HasPeriod = true
		data.RenewsAt = periodEnd.Format("January 2, 2006")
	}
	return s.sendTemplateEmail(email, fmt.Sprintf("Welcome to SocialPulse %s! 🎉", planName), "subscription_started.html", data)
}

func (s *EmailService) SendSubscriptionCancelledEmail(email, name, planName string, periodEnd *time.Time) error {
	data := SubscriptionCancelledData{
		Name:     name,
		PlanName: planName,
	}
	if periodEnd != nil {
		data.HasPeriod = true
		data.ActiveTil = periodEnd.Format("January 2, 2006")
	}
	return s.sendTemplateEmail(email, "Your Subscription Has Been Cancelled", "subscription_cancelled.html", data)
}

func (s *EmailService) SendPaymentFailedEmail(email, name, planName string) error {
	data := PaymentFailedData{
		Name:     name,
		PlanName: planName,
	}
	return s.sendTemplateEmail(email, "Payment Failed for Your Subscription ⚠️", "payment_failed.html", data)
}

func (s *EmailService) SendSubscriptionExpiryWarning(email, name, planName string, expiryDate time.Time, daysLeft int) error {
	data := SubscriptionExpiryWarningData{
		Name:       name,
		PlanName:   planName,
		DaysLeft:   daysLeft,
		ExpiryDate: expiryDate,
	}
	return s.sendTemplateEmail(
		email,
		fmt.Sprintf("Your Subscription Expires in %d Days ⚠️", daysLeft),
		"subscription_expiry_warning.html",
		data,
	)
}
