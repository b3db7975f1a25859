package email

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	"html/template"
	"sync"
	"time"

	"github.com/resendlabs/resend-go"
	"go.uber.org/zap"
)

//go:embed templates/*.html
var templateFS embed.FS

type Config struct {
	APIKey      string
	FromAddress string
	FromName    string
	FrontendURL string
}

type EmailService struct {
	client      *resend.Client
	from        string
	fromName    string
	frontendURL string
	templates   *template.Template
	logger      *zap.Logger
	inflight    sync.WaitGroup
}

func NewEmailService(cfg Config, logger *zap.Logger) (*EmailService, error) {
	tmpl, err := template.ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("failed to parse email templates: %w", err)
	}

	return &EmailService{
		client:      resend.NewClient(cfg.APIKey),
		from:        cfg.FromAddress,
		fromName:    cfg.FromName,
		frontendURL: cfg.FrontendURL,
		templates:   tmpl,
		logger:      logger.Named("email"),
	}, nil
}

// Go runs send in the background. Wait blocks until every send started
// this way has returned.
func (s *EmailService) Go(send func()) {
	s.inflight.Add(1)
	go func() {
		defer s.inflight.Done()
		send()
	}()
}

// Wait returns once background sends finish or ctx is done, whichever
// comes first.
func (s *EmailService) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		s.inflight.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

type SessionEmail struct {
	To          string
	FullName    string
	OtherParty  string
	CourseTitle string
	StartTime   time.Time
	EndTime     time.Time
	MeetingURL  string
	Reason      string
}

func (s *EmailService) SendWelcomeEmail(to, fullName string) error {
	return s.send(to, "Welcome to Coaching!", "welcome.html", map[string]interface{}{
		"FullName": fullName,
		"Email":    to,
	})
}

func (s *EmailService) SendVerificationEmail(to, fullName, token string) error {
	return s.send(to, "Verify Your Email", "verify-email.html", map[string]interface{}{
		"FullName":         fullName,
		"Email":            to,
		"VerificationLink": s.frontendURL + "/verify-email?token=" + token,
	})
}

func (s *EmailService) SendPasswordResetEmail(to, token string) error {
	return s.send(to, "Reset Your Password", "reset-password.html", map[string]interface{}{
		"Email":     to,
		"ResetLink": s.frontendURL + "/reset-password?token=" + token,
	})
}

func (s *EmailService) SendCoachApprovedEmail(to, fullName string) error {
	return s.send(to, "Your coach application was approved", "coach-approved.html", map[string]interface{}{
		"FullName":      fullName,
		"DashboardLink": s.frontendURL + "/coach/dashboard",
	})
}

func (s *EmailService) SendCoachRejectedEmail(to, fullName, reason string) error {
	return s.send(to, "Update on your coach application", "coach-rejected.html", map[string]interface{}{
		"FullName": fullName,
		"Reason":   reason,
	})
}

func (s *EmailService) SendSessionBookedEmail(e SessionEmail) error {
	return s.send(e.To, "Session booked: "+e.CourseTitle, "session-booked.html", sessionData(e))
}

func (s *EmailService) SendSessionRescheduledEmail(e SessionEmail) error {
	return s.send(e.To, "Session rescheduled: "+e.CourseTitle, "session-rescheduled.html", sessionData(e))
}

func (s *EmailService) SendSessionCancelledEmail(e SessionEmail) error {
	return s.send(e.To, "Session cancelled: "+e.CourseTitle, "session-cancelled.html", sessionData(e))
}

func (s *EmailService) SendEnrollmentConfirmedEmail(to, fullName, courseTitle string, childCount int, credits, balance string) error {
	return s.send(to, "Enrollment confirmed: "+courseTitle, "enrollment-confirmed.html", map[string]interface{}{
		"FullName":    fullName,
		"CourseTitle": courseTitle,
		"ChildCount":  childCount,
		"Credits":     credits,
		"Balance":     balance,
	})
}

func (s *EmailService) SendCreditPurchaseEmail(to, fullName, packageName, credits, bonus, balance string) error {
	return s.send(to, "Your credits have arrived", "credit-purchase.html", map[string]interface{}{
		"FullName":    fullName,
		"PackageName": packageName,
		"Credits":     credits,
		"Bonus":       bonus,
		"Balance":     balance,
	})
}

func sessionData(e SessionEmail) map[string]interface{} {
	return map[string]interface{}{
		"FullName":    e.FullName,
		"OtherParty":  e.OtherParty,
		"CourseTitle": e.CourseTitle,
		"StartTime":   e.StartTime.UTC().Format("Mon, 02 Jan 2006 15:04"),
		"EndTime":     e.EndTime.UTC().Format("15:04"),
		"MeetingURL":  e.MeetingURL,
		"Reason":      e.Reason,
	}
}

func (s *EmailService) send(to, subject, templateName string, data map[string]interface{}) error {
	data["Subject"] = subject
	data["Year"] = time.Now().Year()

	html, err := s.render(templateName, data)
	if err != nil {
		s.logger.Error("failed to render template", zap.String("template", templateName), zap.Error(err))
		return err
	}

	params := &resend.SendEmailRequest{
		From:    s.fromName + " <" + s.from + ">",
		To:      []string{to},
		Subject: subject,
		Html:    html,
	}

	resp, err := s.client.Emails.Send(params)
	if err != nil {
		s.logger.Warn("failed to send email", zap.String("to", to), zap.String("template", templateName), zap.Error(err))
		return err
	}

	s.logger.Info("email sent", zap.String("to", to), zap.String("template", templateName), zap.String("id", resp.Id))
	return nil
}

func (s *EmailService) render(templateName string, data interface{}) (string, error) {
	var body bytes.Buffer
	if err := s.templates.ExecuteTemplate(&body, templateName, data); err != nil {
		return "", err
	}
	return body.String(), nil
}
