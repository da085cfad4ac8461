package completion

import (
	"fmt"
	"strings"
)

// Attempt is the uniform record of one provider open.
type Attempt struct {
	Provider string
	Model    string
	Err      error
}

func (a Attempt) String() string {
	target := a.Provider
	if a.Model != "" {
		target += "/" + a.Model
	}
	return fmt.Sprintf("%s: %v", target, a.Err)
}

func apiKeyName(provider string) string {
	return strings.ToUpper(provider) + "_API_KEY"
}

func exhaustedDiagnostic(attempts []Attempt) string {
	var b strings.Builder
	b.WriteString("Error: no completion provider could answer this request.")
	for _, a := range attempts {
		b.WriteString("\n- ")
		b.WriteString(a.String())
	}
	if n := len(attempts); n > 0 {
		fmt.Fprintf(&b, "\nLast error: %v", attempts[n-1].Err)
	}
	return b.String()
}

func missingKeyDiagnostic(keyName string, attempts []Attempt) string {
	var b strings.Builder
	fmt.Fprintf(&b, "The local model is unavailable and %s is missing.\n\nAdd %s to the server environment to enable cloud chat.", keyName, keyName)
	for _, a := range attempts {
		b.WriteString("\n- ")
		b.WriteString(a.String())
	}
	return b.String()
}

func midStreamDiagnostic(provider string, err error) string {
	return fmt.Sprintf("\n\nError: the %s stream was interrupted: %v", provider, err)
}
