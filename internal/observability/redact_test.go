package observability

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRedactor_APIKeys(t *testing.T) {
	r := NewRedactor()

	input := "my key is sk-abcdefghijklmnopqrstuvwx please keep it safe"
	out := r.Redact(input)
	assert.NotContains(t, out, "sk-abcdefghijklmnopqrstuvwx")
	assert.Contains(t, out, "[REDACTED_OPENAI_KEY]")
}

func TestRedactor_Email(t *testing.T) {
	r := NewRedactor()

	out := r.Redact("contact alice@example.com for details")
	assert.Equal(t, "contact [REDACTED_EMAIL] for details", out)
}

func TestRedactor_SSN(t *testing.T) {
	r := NewRedactor()

	out := r.Redact("ssn: 123-45-6789")
	assert.Contains(t, out, "[REDACTED_SSN]")
	assert.NotContains(t, out, "123-45-6789")
}

func TestRedactor_Idempotent(t *testing.T) {
	r := NewRedactor()

	input := "email bob@corp.io, card 4111 1111 1111 1111, Bearer abc.def.ghi"
	once := r.Redact(input)
	twice := r.Redact(once)
	assert.Equal(t, once, twice)
}

func TestRedactor_CleanTextUnchanged(t *testing.T) {
	r := NewRedactor()

	input := "summarize the quarterly report in three bullet points"
	assert.Equal(t, input, r.Redact(input))
}

func TestRedactor_RedactMap(t *testing.T) {
	r := NewRedactor()

	in := map[string]any{
		"api_key": "sk-abcdefghijklmnopqrstuvwx",
		"note":    "mail me at carol@example.org",
		"nested": map[string]any{
			"password": "hunter2",
			"plain":    "hello",
		},
	}
	out := r.RedactMap(in)

	assert.Equal(t, "[REDACTED]", out["api_key"])
	assert.Equal(t, "mail me at [REDACTED_EMAIL]", out["note"])
	nested, ok := out["nested"].(map[string]any)
	assert.True(t, ok)
	assert.Equal(t, "[REDACTED]", nested["password"])
	assert.Equal(t, "hello", nested["plain"])
}

func TestRedactor_AddPatternInvalidIgnored(t *testing.T) {
	r := NewRedactor()
	before := len(r.patterns)
	r.AddPattern("([unclosed", "[X]", "broken")
	assert.Equal(t, before, len(r.patterns))
}
