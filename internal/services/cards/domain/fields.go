package domain

import (
	"fmt"
	"strings"
	"time"
	"unicode"

	apperrors "github.com/louisbranch/cardpress/internal/platform/errors"
)

// IssueDateLayout formats issue dates on cards and payloads.
const IssueDateLayout = "02/01/2006"

// CardFields are the subject values printed on a card.
type CardFields struct {
	Name       string
	Father     string
	Phone      string
	Department string
	BloodGroup string
	StudentID  string
	IssueDate  time.Time
}

// IssuanceRequest is the transient intake state for one card.
type IssuanceRequest struct {
	SubjectID     string
	Name          string
	Father        string
	Phone         string
	Department    string
	InstitutionID string
	PhotoPath     string
	TokenCode     string
}

// Validate checks the request is complete enough to issue.
func (r IssuanceRequest) Validate() error {
	missing := func(field string) error {
		return apperrors.New(apperrors.CodeInvalidArgument, field+" is required")
	}
	switch {
	case strings.TrimSpace(r.SubjectID) == "":
		return missing("subject id")
	case strings.TrimSpace(r.Name) == "":
		return missing("name")
	case strings.TrimSpace(r.Father) == "":
		return missing("father's name")
	case strings.TrimSpace(r.InstitutionID) == "":
		return missing("institution")
	case strings.TrimSpace(r.TokenCode) == "":
		return missing("token code")
	}
	if _, err := NormalizePhone(r.Phone); err != nil {
		return err
	}
	return nil
}

// NormalizePhone accepts digits optionally separated by spaces or dashes and
// optionally prefixed with '+'. It returns the trimmed input.
func NormalizePhone(phone string) (string, error) {
	phone = strings.TrimSpace(phone)
	digits := 0
	for _, r := range phone {
		switch {
		case unicode.IsDigit(r):
			digits++
		case r == '+' || r == '-' || r == ' ':
		default:
			return "", apperrors.New(apperrors.CodeInvalidPhone,
				fmt.Sprintf("phone may only contain digits, spaces, '+' and '-', got %q", r))
		}
	}
	if digits == 0 {
		return "", apperrors.New(apperrors.CodeInvalidPhone, "phone must contain digits")
	}
	return phone, nil
}

// TruncateDepartment shortens department names longer than 30 characters to
// 27 characters plus an ellipsis.
func TruncateDepartment(department string) string {
	const maxLen, keep = 30, 27
	runes := []rune(department)
	if len(runes) <= maxLen {
		return department
	}
	return string(runes[:keep]) + "..."
}
