// internal/settings/settings.go
package settings

import (
	"context"
	"errors"
	"strconv"

	"biblios/internal/store"

	"gorm.io/gorm"
)

// Well-known setting keys.
const (
	KeyLoanDurationDays = "loan_duration_days"
	KeyLibraryName      = "library_name"
	KeyEmailHost        = "email_smtp_host"
	KeyEmailPort        = "email_smtp_port"
	KeyEmailUser        = "email_smtp_user"
	KeyEmailPassword    = "email_smtp_password"
	KeyEmailSenderName  = "email_sender_name"
	KeyEmailEnabled     = "email_enabled"
)

const defaultLoanDurationDays = 30

// EmailConfig is the outbound mail configuration assembled from the
// email_* settings rows.
type EmailConfig struct {
	Host       string
	Port       int
	User       string
	Password   string
	SenderName string
	Enabled    bool
}

// Service reads runtime-tunable values from the settings table.
type Service struct {
	db *gorm.DB
}

func NewService(db *gorm.DB) *Service {
	return &Service{db: db}
}

func (s *Service) get(ctx context.Context, key, fallback string) string {
	var row store.Setting
	err := s.db.WithContext(ctx).First(&row, "key = ?", key).Error
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return fallback
		}
		return fallback
	}
	if row.Value == "" {
		return fallback
	}
	return row.Value
}

// Set upserts one setting.
func (s *Service) Set(ctx context.Context, key, value string) error {
	row := store.Setting{Key: key, Value: value}
	return s.db.WithContext(ctx).Save(&row).Error
}

// LoanDurationDays returns the configured loan duration, defaulting
// to 30 days.
func (s *Service) LoanDurationDays(ctx context.Context) int {
	v := s.get(ctx, KeyLoanDurationDays, "")
	if v == "" {
		return defaultLoanDurationDays
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return defaultLoanDurationDays
	}
	return n
}

// LibraryName is used as the signature in outbound mail.
func (s *Service) LibraryName(ctx context.Context) string {
	return s.get(ctx, KeyLibraryName, "Biblioteka")
}

// Email assembles the outbound mail configuration.
func (s *Service) Email(ctx context.Context) EmailConfig {
	port, err := strconv.Atoi(s.get(ctx, KeyEmailPort, "587"))
	if err != nil {
		port = 587
	}
	return EmailConfig{
		Host:       s.get(ctx, KeyEmailHost, ""),
		Port:       port,
		User:       s.get(ctx, KeyEmailUser, ""),
		Password:   s.get(ctx, KeyEmailPassword, ""),
		SenderName: s.get(ctx, KeyEmailSenderName, "Biblioteka"),
		Enabled:    s.get(ctx, KeyEmailEnabled, "false") == "true",
	}
}
