// internal/models/people.go
package models

// Contact is a concrete mailbox reachable through event links: a teacher
// or a staff member.
type Contact struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone,omitempty"`
}

// Registration links a parent to an event. Placeholder registrations are
// seats held without real parent details and never receive mail.
type Registration struct {
	ID          string `json:"id"`
	EventID     string `json:"eventId"`
	ParentName  string `json:"parentName"`
	ParentEmail string `json:"parentEmail"`
	OptOut      bool   `json:"optOut,omitempty"`
	Placeholder bool   `json:"placeholder,omitempty"`
}

// SchoolClass links purchase records to an event indirectly.
type SchoolClass struct {
	ID      string `json:"id"`
	EventID string `json:"eventId"`
	Name    string `json:"name"`
}

// Recipient is one resolved mailbox for a template/event pair.
type Recipient struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Type  string `json:"type"` // audience that produced this recipient
}
