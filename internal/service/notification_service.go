package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/smtp"
	"net/url"
	"strings"
	"text/template"
	"time"

	"github.com/rs/zerolog"

	"github.com/jirateep12z/go-starter-api/internal/apperr"
	"github.com/jirateep12z/go-starter-api/internal/config"
	"github.com/jirateep12z/go-starter-api/internal/ids"
	"github.com/jirateep12z/go-starter-api/internal/models"
	"github.com/jirateep12z/go-starter-api/internal/repository"
)

// Sender delivers a rendered message over one channel.
type Sender interface {
	Channel() models.NotificationChannel
	Send(ctx context.Context, subject string, body string) error
}

// NotificationService manages message templates and fans rendered messages
// out to the configured channel senders. Delivery is best-effort: a failed
// send is logged and reported, never retried here.
type NotificationService struct {
	templates TemplateStore
	senders   map[models.NotificationChannel]Sender
	log       zerolog.Logger
}

func NewNotificationService(templates TemplateStore, senders []Sender, log zerolog.Logger) *NotificationService {
	byChannel := make(map[models.NotificationChannel]Sender, len(senders))
	for _, sender := range senders {
		byChannel[sender.Channel()] = sender
	}
	return &NotificationService{
		templates: templates,
		senders:   byChannel,
		log:       log,
	}
}

type CreateTemplateInput struct {
	Code     string
	Name     string
	Channel  models.NotificationChannel
	Subject  string
	Body     string
	IsActive *bool
}

func (s *NotificationService) CreateTemplate(ctx context.Context, input CreateTemplateInput) (models.NotificationTemplate, error) {
	code := strings.TrimSpace(input.Code)
	if code == "" || input.Body == "" {
		return models.NotificationTemplate{}, apperr.BadRequest("code and body are required")
	}
	if err := validateChannel(input.Channel); err != nil {
		return models.NotificationTemplate{}, err
	}
	if err := validateTemplateSource(input.Subject, input.Body); err != nil {
		return models.NotificationTemplate{}, err
	}

	exists, err := s.templates.ExistsByCode(ctx, code, "")
	if err != nil {
		return models.NotificationTemplate{}, err
	}
	if exists {
		return models.NotificationTemplate{}, apperr.Conflict("a template with this code already exists")
	}

	isActive := true
	if input.IsActive != nil {
		isActive = *input.IsActive
	}

	return s.templates.Create(ctx, models.NotificationTemplate{
		ID:       ids.New(),
		Code:     code,
		Name:     input.Name,
		Channel:  input.Channel,
		Subject:  input.Subject,
		Body:     input.Body,
		IsActive: isActive,
	})
}

func (s *NotificationService) FindAllTemplates(ctx context.Context) ([]models.NotificationTemplate, error) {
	return s.templates.List(ctx)
}

func (s *NotificationService) FindTemplate(ctx context.Context, id string) (models.NotificationTemplate, error) {
	tpl, err := s.templates.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrTemplateNotFound) {
			return models.NotificationTemplate{}, apperr.NotFound("template not found")
		}
		return models.NotificationTemplate{}, err
	}
	return tpl, nil
}

type UpdateTemplateInput struct {
	Code     *string
	Name     *string
	Channel  *models.NotificationChannel
	Subject  *string
	Body     *string
	IsActive *bool
}

func (s *NotificationService) UpdateTemplate(ctx context.Context, id string, input UpdateTemplateInput) (models.NotificationTemplate, error) {
	tpl, err := s.FindTemplate(ctx, id)
	if err != nil {
		return models.NotificationTemplate{}, err
	}

	if input.Code != nil {
		code := strings.TrimSpace(*input.Code)
		exists, err := s.templates.ExistsByCode(ctx, code, tpl.ID)
		if err != nil {
			return models.NotificationTemplate{}, err
		}
		if exists {
			return models.NotificationTemplate{}, apperr.Conflict("a template with this code already exists")
		}
		tpl.Code = code
	}
	if input.Name != nil {
		tpl.Name = *input.Name
	}
	if input.Channel != nil {
		if err := validateChannel(*input.Channel); err != nil {
			return models.NotificationTemplate{}, err
		}
		tpl.Channel = *input.Channel
	}
	if input.Subject != nil {
		tpl.Subject = *input.Subject
	}
	if input.Body != nil {
		tpl.Body = *input.Body
	}
	if err := validateTemplateSource(tpl.Subject, tpl.Body); err != nil {
		return models.NotificationTemplate{}, err
	}
	if input.IsActive != nil {
		tpl.IsActive = *input.IsActive
	}

	return s.templates.Update(ctx, tpl)
}

func (s *NotificationService) DeleteTemplate(ctx context.Context, id string) error {
	if _, err := s.FindTemplate(ctx, id); err != nil {
		return err
	}
	return s.templates.Delete(ctx, id)
}

// SendByCode renders the template identified by code against payload and
// delivers it over the template's channel.
func (s *NotificationService) SendByCode(ctx context.Context, code string, payload map[string]any) error {
	tpl, err := s.templates.GetByCode(ctx, code)
	if err != nil {
		if errors.Is(err, repository.ErrTemplateNotFound) {
			return apperr.NotFound("template not found")
		}
		return err
	}
	if !tpl.IsActive {
		return apperr.BadRequest("template is inactive")
	}

	sender, ok := s.senders[tpl.Channel]
	if !ok {
		return apperr.BadRequest(fmt.Sprintf("channel %s is not configured", tpl.Channel))
	}

	subject, err := renderTemplate("subject", tpl.Subject, payload)
	if err != nil {
		return apperr.BadRequest("template subject failed to render")
	}
	body, err := renderTemplate("body", tpl.Body, payload)
	if err != nil {
		return apperr.BadRequest("template body failed to render")
	}

	if err := sender.Send(ctx, subject, body); err != nil {
		s.log.Error().Err(err).Str("code", code).Str("channel", string(tpl.Channel)).Msg("notification delivery failed")
		return apperr.Internal("notification delivery failed", err)
	}
	return nil
}

func validateChannel(channel models.NotificationChannel) error {
	switch channel {
	case models.ChannelEmail, models.ChannelTelegram, models.ChannelDiscord, models.ChannelLine:
		return nil
	default:
		return apperr.BadRequest("unknown notification channel")
	}
}

func validateTemplateSource(subject string, body string) error {
	if _, err := template.New("subject").Parse(subject); err != nil {
		return apperr.BadRequest("subject is not a valid template")
	}
	if _, err := template.New("body").Parse(body); err != nil {
		return apperr.BadRequest("body is not a valid template")
	}
	return nil
}

func renderTemplate(name string, source string, payload map[string]any) (string, error) {
	tpl, err := template.New(name).Option("missingkey=zero").Parse(source)
	if err != nil {
		return "", err
	}
	var buf bytes.Buffer
	if err := tpl.Execute(&buf, payload); err != nil {
		return "", err
	}
	return buf.String(), nil
}

var notifyHTTPClient = &http.Client{Timeout: 10 * time.Second}

// EmailSender delivers over SMTP with plain auth.
type EmailSender struct {
	cfg config.EmailConfig
}

func NewEmailSender(cfg config.EmailConfig) *EmailSender {
	return &EmailSender{cfg: cfg}
}

func (s *EmailSender) Channel() models.NotificationChannel { return models.ChannelEmail }

func (s *EmailSender) Send(_ context.Context, subject string, body string) error {
	addr := fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)
	auth := smtp.PlainAuth("", s.cfg.Username, s.cfg.Password, s.cfg.Host)

	var msg bytes.Buffer
	fmt.Fprintf(&msg, "From: %s\r\n", s.cfg.From)
	fmt.Fprintf(&msg, "To: %s\r\n", s.cfg.To)
	fmt.Fprintf(&msg, "Subject: %s\r\n", subject)
	msg.WriteString("MIME-Version: 1.0\r\nContent-Type: text/plain; charset=UTF-8\r\n\r\n")
	msg.WriteString(body)

	return smtp.SendMail(addr, auth, s.cfg.From, []string{s.cfg.To}, msg.Bytes())
}

// TelegramSender posts to the bot sendMessage endpoint.
type TelegramSender struct {
	cfg config.TelegramConfig
}

func NewTelegramSender(cfg config.TelegramConfig) *TelegramSender {
	return &TelegramSender{cfg: cfg}
}

func (s *TelegramSender) Channel() models.NotificationChannel { return models.ChannelTelegram }

func (s *TelegramSender) Send(ctx context.Context, subject string, body string) error {
	endpoint := fmt.Sprintf("https://api.telegram.org/bot%s/sendMessage", s.cfg.BotToken)
	text := body
	if subject != "" {
		text = subject + "\n\n" + body
	}

	form := url.Values{}
	form.Set("chat_id", s.cfg.ChatID)
	form.Set("text", text)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return doNotifyRequest(req)
}

// DiscordSender posts to an incoming webhook.
type DiscordSender struct {
	cfg config.DiscordConfig
}

func NewDiscordSender(cfg config.DiscordConfig) *DiscordSender {
	return &DiscordSender{cfg: cfg}
}

func (s *DiscordSender) Channel() models.NotificationChannel { return models.ChannelDiscord }

func (s *DiscordSender) Send(ctx context.Context, subject string, body string) error {
	content := body
	if subject != "" {
		content = "**" + subject + "**\n" + body
	}

	payload, err := json.Marshal(map[string]string{"content": content})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.cfg.WebhookURL, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	return doNotifyRequest(req)
}

// LineSender pushes through the LINE Notify API.
type LineSender struct {
	cfg config.LineConfig
}

func NewLineSender(cfg config.LineConfig) *LineSender {
	return &LineSender{cfg: cfg}
}

func (s *LineSender) Channel() models.NotificationChannel { return models.ChannelLine }

func (s *LineSender) Send(ctx context.Context, subject string, body string) error {
	message := body
	if subject != "" {
		message = subject + "\n" + body
	}

	form := url.Values{}
	form.Set("message", message)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, "https://notify-api.line.me/api/notify", strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Authorization", "Bearer "+s.cfg.AccessToken)
	return doNotifyRequest(req)
}

func doNotifyRequest(req *http.Request) error {
	resp, err := notifyHTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("notification endpoint returned %s", resp.Status)
	}
	return nil
}
