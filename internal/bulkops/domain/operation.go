// Package domain defines the bulk operation request model. A raw request
// is parsed into one of a closed set of operations; validation is
// all-or-nothing and reports every violation at once.
package domain

import (
	"fmt"
	"strings"

	staffdomain "github.com/imaginearsclub/backstage/internal/staff/domain"
)

const (
	KindSuspend       = "suspend"
	KindActivate      = "activate"
	KindChangeRole    = "change-role"
	KindResetPassword = "reset-password"
	KindSendEmail     = "send-email"
)

const (
	maxEmailSubjectLen = 200
	maxEmailBodyLen    = 10000
)

// RawRequest is the wire shape of a bulk request before validation.
type RawRequest struct {
	Operation      string   `json:"operation"`
	Users          []string `json:"users"`
	DryRun         bool     `json:"dryRun"`
	NewRole        string   `json:"newRole,omitempty"`
	EmailSubject   string   `json:"emailSubject,omitempty"`
	EmailBody      string   `json:"emailBody,omitempty"`
	IdempotencyKey string   `json:"-"`
}

// Operation is a validated bulk operation variant.
type Operation interface {
	Kind() string
	// Describe renders a human-readable preview line for one target.
	Describe(email string) string
}

type SuspendOp struct{}

func (SuspendOp) Kind() string { return KindSuspend }
func (SuspendOp) Describe(email string) string {
	return fmt.Sprintf("Suspend account %s", email)
}

type ActivateOp struct{}

func (ActivateOp) Kind() string { return KindActivate }
func (ActivateOp) Describe(email string) string {
	return fmt.Sprintf("Activate account %s", email)
}

type ChangeRoleOp struct {
	NewRole string
}

func (ChangeRoleOp) Kind() string { return KindChangeRole }
func (op ChangeRoleOp) Describe(email string) string {
	return fmt.Sprintf("Change role of %s to %s", email, op.NewRole)
}

type ResetPasswordOp struct{}

func (ResetPasswordOp) Kind() string { return KindResetPassword }
func (ResetPasswordOp) Describe(email string) string {
	return fmt.Sprintf("Issue password reset for %s", email)
}

type SendEmailOp struct {
	Subject string
	Body    string
}

func (SendEmailOp) Kind() string { return KindSendEmail }
func (op SendEmailOp) Describe(email string) string {
	return fmt.Sprintf("Send %q to %s", op.Subject, email)
}

// Request is a validated bulk request ready for dispatch.
type Request struct {
	Op     Operation
	Users  []string
	DryRun bool
}

// FieldError is one validation violation.
type FieldError struct {
	Field   string `json:"field"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ValidationError carries every violation found in a raw request.
type ValidationError struct {
	Fields []FieldError `json:"fields"`
}

func (e *ValidationError) Error() string {
	if len(e.Fields) == 1 {
		return fmt.Sprintf("validation failed: %s", e.Fields[0].Message)
	}
	return fmt.Sprintf("validation failed: %d violations", len(e.Fields))
}

// Parse validates raw and returns the typed request. All violations are
// collected before returning; a non-nil error is always *ValidationError.
func Parse(raw RawRequest, maxTargets int) (*Request, error) {
	verr := &ValidationError{}

	var op Operation
	switch raw.Operation {
	case KindSuspend:
		op = SuspendOp{}
	case KindActivate:
		op = ActivateOp{}
	case KindChangeRole:
		role := strings.ToUpper(strings.TrimSpace(raw.NewRole))
		if role == "" {
			verr.Fields = append(verr.Fields, FieldError{
				Field:   "newRole",
				Code:    "required",
				Message: "newRole is required for change-role",
			})
		} else if !staffdomain.ValidRole(role) {
			verr.Fields = append(verr.Fields, FieldError{
				Field:   "newRole",
				Code:    "invalid",
				Message: fmt.Sprintf("unknown role %q", raw.NewRole),
			})
		}
		op = ChangeRoleOp{NewRole: role}
	case KindResetPassword:
		op = ResetPasswordOp{}
	case KindSendEmail:
		subject := strings.TrimSpace(raw.EmailSubject)
		if subject == "" {
			verr.Fields = append(verr.Fields, FieldError{
				Field:   "emailSubject",
				Code:    "required",
				Message: "emailSubject must not be empty",
			})
		} else if len(subject) > maxEmailSubjectLen {
			verr.Fields = append(verr.Fields, FieldError{
				Field:   "emailSubject",
				Code:    "too_long",
				Message: fmt.Sprintf("emailSubject must be at most %d characters", maxEmailSubjectLen),
			})
		}
		if strings.TrimSpace(raw.EmailBody) == "" {
			verr.Fields = append(verr.Fields, FieldError{
				Field:   "emailBody",
				Code:    "required",
				Message: "emailBody must not be empty",
			})
		} else if len(raw.EmailBody) > maxEmailBodyLen {
			verr.Fields = append(verr.Fields, FieldError{
				Field:   "emailBody",
				Code:    "too_long",
				Message: fmt.Sprintf("emailBody must be at most %d characters", maxEmailBodyLen),
			})
		}
		op = SendEmailOp{Subject: subject, Body: raw.EmailBody}
	default:
		verr.Fields = append(verr.Fields, FieldError{
			Field:   "operation",
			Code:    "invalid",
			Message: fmt.Sprintf("unknown operation %q", raw.Operation),
		})
	}

	users := make([]string, 0, len(raw.Users))
	seen := make(map[string]struct{}, len(raw.Users))
	for i, rawEmail := range raw.Users {
		email := staffdomain.NormalizeEmail(rawEmail)
		if email == "" || !strings.Contains(email, "@") {
			verr.Fields = append(verr.Fields, FieldError{
				Field:   fmt.Sprintf("users[%d]", i),
				Code:    "invalid_email",
				Message: fmt.Sprintf("%q is not a valid email address", rawEmail),
			})
			continue
		}
		// Duplicates are rejected rather than collapsed so the result
		// counts always line up with the submitted target list.
		if _, dup := seen[email]; dup {
			verr.Fields = append(verr.Fields, FieldError{
				Field:   fmt.Sprintf("users[%d]", i),
				Code:    "duplicate",
				Message: fmt.Sprintf("%s is listed more than once", email),
			})
			continue
		}
		seen[email] = struct{}{}
		users = append(users, email)
	}
	if len(raw.Users) == 0 {
		verr.Fields = append(verr.Fields, FieldError{
			Field:   "users",
			Code:    "required",
			Message: "users must contain at least one email address",
		})
	} else if len(raw.Users) > maxTargets {
		verr.Fields = append(verr.Fields, FieldError{
			Field:   "users",
			Code:    "too_many",
			Message: fmt.Sprintf("users must contain at most %d email addresses", maxTargets),
		})
	}

	if len(verr.Fields) > 0 {
		return nil, verr
	}
	return &Request{Op: op, Users: users, DryRun: raw.DryRun}, nil
}
