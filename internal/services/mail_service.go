package services

import (
	"fmt"
	"log"
	"net/smtp"
	"strings"
)

// MailService отправляет письма поставщикам и клиентам через SMTP.
// Если SMTP не настроен, письма логируются и считаются отправленными,
// чтобы не блокировать документооборот в разработке.
type MailService struct {
	host     string
	port     int
	username string
	password string
	from     string
}

// NewMailService создает почтовый сервис
func NewMailService(host string, port int, username, password, from string) *MailService {
	return &MailService{
		host:     host,
		port:     port,
		username: username,
		password: password,
		from:     from,
	}
}

// Send отправляет письмо с текстовым телом
func (s *MailService) Send(to, subject, body string) error {
	if s.host == "" {
		log.Printf("⚠️ SMTP не настроен, письмо для %s не отправлено (тема: %s)", to, subject)
		return nil
	}

	msg := strings.Join([]string{
		"From: " + s.from,
		"To: " + to,
		"Subject: " + subject,
		"MIME-Version: 1.0",
		"Content-Type: text/plain; charset=utf-8",
		"",
		body,
	}, "\r\n")

	addr := fmt.Sprintf("%s:%d", s.host, s.port)
	var auth smtp.Auth
	if s.username != "" {
		auth = smtp.PlainAuth("", s.username, s.password, s.host)
	}

	if err := smtp.SendMail(addr, auth, s.from, []string{to}, []byte(msg)); err != nil {
		return fmt.Errorf("не удалось отправить письмо: %w", err)
	}

	log.Printf("✅ Письмо отправлено: %s (тема: %s)", to, subject)
	return nil
}

// SendPOConfirmation отправляет поставщику ссылку для подтверждения заказа
func (s *MailService) SendPOConfirmation(to, poNo, confirmURL string) error {
	subject := fmt.Sprintf("Подтверждение заказа %s", poNo)
	body := fmt.Sprintf(
		"Здравствуйте!\n\nПросим подтвердить заказ %s по ссылке:\n%s\n\nСсылка действительна 24 часа.",
		poNo, confirmURL,
	)
	return s.Send(to, subject, body)
}

// SendContractLink отправляет клиенту ссылку на договор для подтверждения
func (s *MailService) SendContractLink(to, soNo, contractURL string) error {
	subject := fmt.Sprintf("Договор по заказу %s", soNo)
	body := fmt.Sprintf(
		"Здравствуйте!\n\nВаш договор по заказу %s готов. Ознакомиться и подтвердить:\n%s",
		soNo, contractURL,
	)
	return s.Send(to, subject, body)
}
