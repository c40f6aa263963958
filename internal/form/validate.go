// Package form holds the sign-in field values and the validation rules applied to them.
package form

import (
	"sort"
	"unicode/utf8"
)

// Field names a sign-in form input.
type Field string

const (
	FieldEmail    Field = "email"
	FieldPassword Field = "password"
)

// Rule is the tag of a violated validation rule.
type Rule string

const (
	RuleRequired  Rule = "required"
	RuleMinLength Rule = "min-length"
	RuleMaxLength Rule = "max-length"
)

// rulePriority orders rules when only one message per field is shown.
var rulePriority = []Rule{RuleRequired, RuleMinLength, RuleMaxLength}

// Credentials are the values typed into the form. They are discarded after each attempt.
type Credentials struct {
	Email    string
	Password string
}

// Value returns the current value of the named field.
func (c Credentials) Value(field Field) string {
	switch field {
	case FieldEmail:
		return c.Email
	case FieldPassword:
		return c.Password
	default:
		return ""
	}
}

// Constraint declares the rules enforced for a single field.
// Zero MinLength or MaxLength disables that rule.
type Constraint struct {
	Field     Field
	Required  bool
	MinLength int
	MaxLength int
}

// DefaultConstraints are the sign-in rules: email needs at least 5 characters (no format
// check), password at least 8, both at most 255.
var DefaultConstraints = []Constraint{
	{Field: FieldEmail, Required: true, MinLength: 5, MaxLength: 255},
	{Field: FieldPassword, Required: true, MinLength: 8, MaxLength: 255},
}

// Validation maps each field to the rules its value violates.
// Fields without violations are absent.
type Validation map[Field][]Rule

// Validate applies DefaultConstraints.
func Validate(creds Credentials) Validation {
	return ValidateWith(DefaultConstraints, creds)
}

// ValidateWith evaluates every constraint independently; one failing field never hides
// violations of another.
func ValidateWith(constraints []Constraint, creds Credentials) Validation {
	result := Validation{}
	for _, c := range constraints {
		if rules := c.check(creds.Value(c.Field)); len(rules) > 0 {
			result[c.Field] = rules
		}
	}
	return result
}

func (c Constraint) check(value string) []Rule {
	var rules []Rule
	if value == "" {
		if c.Required {
			rules = append(rules, RuleRequired)
		}
		// min/max-length only apply to present values
		return rules
	}
	n := utf8.RuneCountInString(value)
	if c.MinLength > 0 && n < c.MinLength {
		rules = append(rules, RuleMinLength)
	}
	if c.MaxLength > 0 && n > c.MaxLength {
		rules = append(rules, RuleMaxLength)
	}
	return rules
}

// Valid reports whether no field has a violation.
func (v Validation) Valid() bool {
	for _, rules := range v {
		if len(rules) > 0 {
			return false
		}
	}
	return true
}

// Has reports whether field violates rule.
func (v Validation) Has(field Field, rule Rule) bool {
	for _, r := range v[field] {
		if r == rule {
			return true
		}
	}
	return false
}

// First returns the highest priority violation for field.
func (v Validation) First(field Field) (Rule, bool) {
	for _, candidate := range rulePriority {
		if v.Has(field, candidate) {
			return candidate, true
		}
	}
	return "", false
}

// Fields lists the fields with at least one violation in a stable order.
func (v Validation) Fields() []Field {
	out := make([]Field, 0, len(v))
	for field, rules := range v {
		if len(rules) > 0 {
			out = append(out, field)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Clone returns an independent copy.
func (v Validation) Clone() Validation {
	if v == nil {
		return nil
	}
	out := make(Validation, len(v))
	for field, rules := range v {
		out[field] = append([]Rule(nil), rules...)
	}
	return out
}

// MessageKey returns the catalog key of the message shown for a violation,
// e.g. "signin.email.required".
func MessageKey(field Field, rule Rule) string {
	return "signin." + string(field) + "." + string(rule)
}
