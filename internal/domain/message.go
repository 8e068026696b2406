package domain

import "time"

// Destination is the canonical chat-network address of a contact,
// e.g. "62851234567890@c.us".
type Destination string

func (d Destination) String() string { return string(d) }

// SendRequest is the validated body of POST /send-message.
type SendRequest struct {
	Number  string `json:"number"`
	Message string `json:"message"`
}

// Receipt is what the provider hands back for an accepted message.
type Receipt struct {
	ID        string    `json:"id"`
	To        string    `json:"to"`
	Timestamp time.Time `json:"timestamp"`
}

// Validate reports every empty field as "Invalid value".
func (r SendRequest) Validate() error {
	fields := map[string]string{}
	if r.Number == "" {
		fields["number"] = "Invalid value"
	}
	if r.Message == "" {
		fields["message"] = "Invalid value"
	}
	if len(fields) > 0 {
		return &ValidationError{Fields: fields}
	}
	return nil
}
