// Package xerrors provides the stable code/message/remediation error shape
// used by the persistence policy bounds, and a thin Wrap
// helper in the style of pkg/utils.Wrap for everything else.
package xerrors

import "fmt"

// Wrap adds context to an error message. It returns nil if err is nil.
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// Code is a stable, public error-code string (spec section 6: "Error codes
// (stable)"). Callers may match on Code without parsing Message.
type Code string

// Info is the {code, message, remediation} triple surfaced by the
// persistence policy bounds (C15).
type Info struct {
	Code        Code
	Message     string
	Remediation string
}

func (i Info) Error() string {
	if i.Remediation == "" {
		return fmt.Sprintf("[%s] %s", i.Code, i.Message)
	}
	return fmt.Sprintf("[%s] %s (remediation: %s)", i.Code, i.Message, i.Remediation)
}

// New builds an Info error.
func New(code Code, message, remediation string) *Info {
	return &Info{Code: code, Message: message, Remediation: remediation}
}
