package resource

// Kind separates emergency lines from general support lines.
type Kind string

const (
	KindCrisis  Kind = "crisis"
	KindSupport Kind = "support"
)

// CrisisResource is a static emergency-contact record.
type CrisisResource struct {
	ID           string   `json:"id"`
	Name         string   `json:"name"`
	Contact      string   `json:"contact"`
	Availability string   `json:"availability"`
	Description  string   `json:"description"`
	Methods      []string `json:"methods,omitempty"`
	Kind         Kind     `json:"kind"`
}

// PrimaryHotlineID identifies the entry every crisis reply must carry.
const PrimaryHotlineID = "988-lifeline"

// Seed returns the fixed contact table shown to students.
func Seed() []CrisisResource {
	return []CrisisResource{
		{
			ID:           PrimaryHotlineID,
			Name:         "988 Suicide & Crisis Lifeline",
			Contact:      "988",
			Availability: "24/7",
			Description:  "Free and confidential emotional support 24/7",
			Methods:      []string{"Phone", "Chat", "Text"},
			Kind:         KindCrisis,
		},
		{
			ID:           "crisis-text-line",
			Name:         "Crisis Text Line",
			Contact:      "Text HOME to 741741",
			Availability: "24/7",
			Description:  "Crisis counseling via text message",
			Methods:      []string{"Text"},
			Kind:         KindCrisis,
		},
		{
			ID:           "nami-helpline",
			Name:         "National Alliance on Mental Illness",
			Contact:      "1-800-950-6264",
			Availability: "Mon-Fri 10am-10pm ET",
			Description:  "Information, referrals, and support for mental health",
			Methods:      []string{"Phone"},
			Kind:         KindSupport,
		},
		{
			ID:           "samhsa-helpline",
			Name:         "SAMHSA National Helpline",
			Contact:      "1-800-662-4357",
			Availability: "24/7",
			Description:  "Treatment referral and information service",
			Methods:      []string{"Phone"},
			Kind:         KindSupport,
		},
	}
}
