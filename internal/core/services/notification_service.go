package services

import (
	"context"
	"fmt"
	"time"

	"aadhaar-seva/internal/config"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog/log"
	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
)

// deliveryTimeout bounds one background delivery attempt
const deliveryTimeout = 15 * time.Second

// Notifier delivers OTPs and appointment messages to citizens
type Notifier interface {
	SendOTPEmail(ctx context.Context, address, code, purpose string) error
	SendOTPSMS(ctx context.Context, phone, code string) error
	SendAppointmentNotice(ctx context.Context, notice AppointmentNotice) error
}

// AppointmentNotice describes a booking event worth telling the citizen about
type AppointmentNotice struct {
	Event     string // booked | cancelled | rescheduled | status
	BookingID string
	Status    string
	Center    string
	SlotDate  string
	StartTime string
	Email     string
	Phone     string
}

// NotificationService sends email through SendGrid and SMS through an HTTP gateway.
// A channel without credentials is skipped with a log line.
type NotificationService struct {
	mail     *sendgrid.Client
	sms      *resty.Client
	from     *mail.Email
	apiKey   string
	senderID string
	isDev    bool
}

// NewNotificationService creates a new notification service
func NewNotificationService(cfg *config.Config) *NotificationService {
	s := &NotificationService{
		from:     mail.NewEmail(cfg.Notify.MailFromName, cfg.Notify.MailFrom),
		apiKey:   cfg.Notify.SMSAPIKey,
		senderID: cfg.Notify.SMSSenderID,
		isDev:    cfg.IsDev(),
	}

	if cfg.Notify.SendGridAPIKey != "" {
		s.mail = sendgrid.NewSendClient(cfg.Notify.SendGridAPIKey)
	}
	if cfg.Notify.SMSGatewayURL != "" {
		s.sms = resty.New().
			SetBaseURL(cfg.Notify.SMSGatewayURL).
			SetTimeout(10 * time.Second).
			SetRetryCount(2)
	}

	return s
}

// IsEnabled reports which delivery channels are configured
func (s *NotificationService) IsEnabled() (email, sms bool) {
	return s.mail != nil, s.sms != nil
}

// SendOTPEmail emails an OTP
func (s *NotificationService) SendOTPEmail(ctx context.Context, address, code, purpose string) error {
	subject := "Your Aadhaar Seva verification code"
	text := fmt.Sprintf("Your OTP for %s is %s. It is valid for a few minutes. Do not share it with anyone.", purposeLabel(purpose), code)
	html := fmt.Sprintf(`<p>Your OTP for %s is</p><h2>%s</h2><p>Do not share this OTP with anyone.</p>`, purposeLabel(purpose), code)
	return s.sendEmail(ctx, address, subject, text, html)
}

// SendOTPSMS texts an OTP
func (s *NotificationService) SendOTPSMS(ctx context.Context, phone, code string) error {
	return s.sendSMS(ctx, phone, fmt.Sprintf("%s is your Aadhaar Seva OTP. Do not share it with anyone.", code))
}

// SendAppointmentNotice tells the citizen about a booking change on every known channel
func (s *NotificationService) SendAppointmentNotice(ctx context.Context, n AppointmentNotice) error {
	var text string
	switch n.Event {
	case "booked":
		text = fmt.Sprintf("Appointment %s confirmed at %s on %s %s.", n.BookingID, n.Center, n.SlotDate, n.StartTime)
	case "rescheduled":
		text = fmt.Sprintf("Appointment %s moved to %s %s at %s.", n.BookingID, n.SlotDate, n.StartTime, n.Center)
	case "cancelled":
		text = fmt.Sprintf("Appointment %s has been cancelled.", n.BookingID)
	default:
		text = fmt.Sprintf("Appointment %s is now %s.", n.BookingID, n.Status)
	}

	var firstErr error
	if n.Phone != "" {
		if err := s.sendSMS(ctx, n.Phone, text); err != nil {
			firstErr = err
		}
	}
	if n.Email != "" {
		if err := s.sendEmail(ctx, n.Email, "Aadhaar Seva appointment "+n.BookingID, text, "<p>"+text+"</p>"); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (s *NotificationService) sendEmail(ctx context.Context, address, subject, text, html string) error {
	if s.mail == nil {
		log.Warn().Str("to", maskEmail(address)).Msg("⚠️ Email delivery not configured, message dropped")
		if s.isDev {
			log.Debug().Str("to", address).Str("body", text).Msg("dev email")
		}
		return nil
	}

	message := mail.NewSingleEmail(s.from, subject, mail.NewEmail("", address), text, html)
	resp, err := s.mail.SendWithContext(ctx, message)
	if err != nil {
		return fmt.Errorf("sendgrid: %w", err)
	}
	if resp.StatusCode >= 300 {
		return fmt.Errorf("sendgrid: status %d: %s", resp.StatusCode, resp.Body)
	}

	log.Info().Str("to", maskEmail(address)).Msg("📧 Email sent")
	return nil
}

func (s *NotificationService) sendSMS(ctx context.Context, phone, text string) error {
	if s.sms == nil {
		log.Warn().Str("to", maskPhone(phone)).Msg("⚠️ SMS delivery not configured, message dropped")
		if s.isDev {
			log.Debug().Str("to", phone).Str("body", text).Msg("dev sms")
		}
		return nil
	}

	resp, err := s.sms.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"authorization": s.apiKey,
			"sender_id":     s.senderID,
			"numbers":       phone,
			"message":       text,
		}).
		Get("")
	if err != nil {
		return fmt.Errorf("sms gateway: %w", err)
	}
	if resp.IsError() {
		return fmt.Errorf("sms gateway: status %d", resp.StatusCode())
	}

	log.Info().Str("to", maskPhone(phone)).Msg("📱 SMS sent")
	return nil
}

// deliverAsync runs a delivery in the background. The caller's request
// context is not used so the send outlives the HTTP response.
func deliverAsync(what string, send func(ctx context.Context) error) {
	go func() {
		defer func() {
			if r := recover(); r != nil {
				log.Error().Interface("panic", r).Str("delivery", what).Msg("❌ Delivery panicked")
			}
		}()

		ctx, cancel := context.WithTimeout(context.Background(), deliveryTimeout)
		defer cancel()

		if err := send(ctx); err != nil {
			log.Error().Err(err).Str("delivery", what).Msg("❌ Delivery failed")
		}
	}()
}

func purposeLabel(purpose string) string {
	switch purpose {
	case "signup":
		return "registration"
	case "login":
		return "login"
	case "email_verification":
		return "email verification"
	case "mobile_verification":
		return "mobile verification"
	case "password_reset":
		return "password reset"
	default:
		return "verification"
	}
}

// maskPhone keeps the last four digits
func maskPhone(phone string) string {
	if len(phone) <= 4 {
		return "****"
	}
	return "******" + phone[len(phone)-4:]
}

// maskEmail keeps the first character and the domain
func maskEmail(address string) string {
	for i := 0; i < len(address); i++ {
		if address[i] == '@' {
			if i == 0 {
				return "***" + address[i:]
			}
			return address[:1] + "***" + address[i:]
		}
	}
	return "***"
}
