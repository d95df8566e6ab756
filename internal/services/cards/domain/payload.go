package domain

import "strings"

// Payload is the verification content encoded in a card's QR code.
type Payload struct {
	Fields      CardFields
	Institution string
	TokenCode   string
}

// String renders the payload as newline-delimited "Key: value" lines.
func (p Payload) String() string {
	lines := [][2]string{
		{"Name", p.Fields.Name},
		{"Father", p.Fields.Father},
		{"Phone", p.Fields.Phone},
		{"College", p.Institution},
		{"Dept", p.Fields.Department},
		{"Blood Group", p.Fields.BloodGroup},
		{"Student ID", p.Fields.StudentID},
		{"Token", p.TokenCode},
		{"Issue Date", p.Fields.IssueDate.Format(IssueDateLayout)},
	}
	var b strings.Builder
	for i, line := range lines {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(line[0])
		b.WriteString(": ")
		b.WriteString(line[1])
	}
	return b.String()
}

// ParsePayload reads a payload string back into key/value pairs. Lines
// without a separator are ignored.
func ParsePayload(text string) map[string]string {
	out := make(map[string]string)
	for _, line := range strings.Split(text, "\n") {
		key, value, ok := strings.Cut(line, ": ")
		if !ok {
			continue
		}
		out[key] = value
	}
	return out
}
