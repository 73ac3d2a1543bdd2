// Package domain contains core domain types for the assistant studio.
package domain

// Language is the language an assistant answers in.
type Language string

const (
	LanguageSpanish    Language = "Spanish"
	LanguageEnglish    Language = "English"
	LanguagePortuguese Language = "Portuguese"
)

// Tone is the conversational register of an assistant.
type Tone string

const (
	ToneFormal       Tone = "Formal"
	ToneCasual       Tone = "Casual"
	ToneProfessional Tone = "Professional"
	ToneFriendly     Tone = "Friendly"
)

// ResponseLength is the percentage mix of short, medium and long answers.
// The three values must add up to exactly 100.
type ResponseLength struct {
	Short  int `json:"short" validate:"min=0,max=100"`
	Medium int `json:"medium" validate:"min=0,max=100"`
	Long   int `json:"long" validate:"min=0,max=100"`
}

// Total returns the sum of the three percentages.
func (r ResponseLength) Total() int {
	return r.Short + r.Medium + r.Long
}

// Assistant is a configured conversational-agent profile.
type Assistant struct {
	ID             string         `json:"id"`
	Name           string         `json:"name"`
	Language       Language       `json:"language"`
	Tone           Tone           `json:"tone"`
	ResponseLength ResponseLength `json:"responseLength"`
	AudioEnabled   bool           `json:"audioEnabled"`
	Rules          string         `json:"rules"`
}

// Form returns the editable fields of the assistant as a form payload.
func (a Assistant) Form() AssistantForm {
	return AssistantForm{
		Name:           a.Name,
		Language:       a.Language,
		Tone:           a.Tone,
		ResponseLength: a.ResponseLength,
		AudioEnabled:   a.AudioEnabled,
	}
}

// WithRules returns a copy of the assistant carrying the given rules text.
func (a Assistant) WithRules(rules string) Assistant {
	a.Rules = rules
	return a
}

// AssistantForm is the payload of the creation and edit flow.
type AssistantForm struct {
	Name           string         `json:"name" validate:"required,min=3"`
	Language       Language       `json:"language" validate:"required,oneof=Spanish English Portuguese"`
	Tone           Tone           `json:"tone" validate:"required,oneof=Formal Casual Professional Friendly"`
	ResponseLength ResponseLength `json:"responseLength"`
	AudioEnabled   bool           `json:"audioEnabled"`
}

// DefaultForm returns the values a blank creation form starts with.
func DefaultForm() AssistantForm {
	return AssistantForm{
		Language:       LanguageSpanish,
		Tone:           ToneProfessional,
		ResponseLength: ResponseLength{Short: 33, Medium: 34, Long: 33},
	}
}

// Patch converts a complete form into a patch with every field set.
func (f AssistantForm) Patch() AssistantPatch {
	return AssistantPatch{
		Name:           &f.Name,
		Language:       &f.Language,
		Tone:           &f.Tone,
		ResponseLength: &f.ResponseLength,
		AudioEnabled:   &f.AudioEnabled,
	}
}

// AssistantPatch carries a partial set of assistant fields.
// Nil fields are absent and left untouched by ApplyTo. Rules are not part of
// a patch; they change only through save-rules.
type AssistantPatch struct {
	ID             string          `json:"id,omitempty"`
	Name           *string         `json:"name,omitempty"`
	Language       *Language       `json:"language,omitempty"`
	Tone           *Tone           `json:"tone,omitempty"`
	ResponseLength *ResponseLength `json:"responseLength,omitempty"`
	AudioEnabled   *bool           `json:"audioEnabled,omitempty"`
}

// ApplyTo merges the set fields of the patch over a. The id of a is kept.
func (p AssistantPatch) ApplyTo(a Assistant) Assistant {
	if p.Name != nil {
		a.Name = *p.Name
	}
	if p.Language != nil {
		a.Language = *p.Language
	}
	if p.Tone != nil {
		a.Tone = *p.Tone
	}
	if p.ResponseLength != nil {
		a.ResponseLength = *p.ResponseLength
	}
	if p.AudioEnabled != nil {
		a.AudioEnabled = *p.AudioEnabled
	}
	return a
}

// SeedAssistants returns the records the application starts with.
func SeedAssistants() []Assistant {
	return []Assistant{
		{
			ID:             "1",
			Name:           "Sales Assistant",
			Language:       LanguageSpanish,
			Tone:           ToneProfessional,
			ResponseLength: ResponseLength{Short: 30, Medium: 50, Long: 20},
			AudioEnabled:   true,
			Rules:          "You are an assistant specialized in sales. Always be cordial and focus on identifying the customer's needs before offering products.",
		},
		{
			ID:             "2",
			Name:           "Technical Support",
			Language:       LanguageEnglish,
			Tone:           ToneFriendly,
			ResponseLength: ResponseLength{Short: 20, Medium: 30, Long: 50},
			AudioEnabled:   false,
			Rules:          "You help solve technical problems clearly and step by step. Always confirm the user has understood before continuing.",
		},
	}
}
