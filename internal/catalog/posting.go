package catalog

import (
	"encoding/json"
	"fmt"
	"strings"
)

const descriptionLimit = 200

// Posting is a single internship entry of the catalog.
type Posting struct {
	ID                string `json:"id,omitempty" mapstructure:"id"`
	Title             string `json:"title" mapstructure:"title"`
	Org               string `json:"org" mapstructure:"org"`
	RequiredEducation string `json:"required_education" mapstructure:"required_education"`
	Skills            string `json:"skills" mapstructure:"skills"`
	Location          string `json:"location" mapstructure:"location"`
	Sector            Sector `json:"sector,omitzero" mapstructure:"sector"`
	Description       string `json:"description,omitempty" mapstructure:"description"`
	// Embedding is attached only to postings handed to the ranker.
	Embedding []float32 `json:"embedding,omitempty" mapstructure:"-"`
}

// Sector holds the industry sectors of a posting. The catalog may carry it
// either as a plain string or as a list of strings; the form is kept so the
// posting marshals back the way it was read.
type Sector struct {
	Values []string
	form   sectorForm
}

type sectorForm int

const (
	sectorAbsent sectorForm = iota
	sectorList
	sectorText
)

// NewSector returns a sector in list form.
func NewSector(values ...string) Sector {
	return Sector{Values: values, form: sectorList}
}

// SectorText returns a sector that was given as a plain string.
func SectorText(v string) Sector {
	s := Sector{form: sectorText}
	if v != "" {
		s.Values = []string{v}
	}
	return s
}

func (s Sector) String() string {
	return strings.Join(s.Values, ", ")
}

// IsZero reports an absent sector.
func (s Sector) IsZero() bool {
	return s.form == sectorAbsent && len(s.Values) == 0
}

func (s Sector) MarshalJSON() ([]byte, error) {
	if s.form == sectorText {
		return json.Marshal(s.String())
	}
	if s.Values == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(s.Values)
}

func (s *Sector) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*s = Sector{}
		return nil
	}

	var single string
	if err := json.Unmarshal(data, &single); err == nil {
		*s = SectorText(single)
		return nil
	}

	var list []string
	if err := json.Unmarshal(data, &list); err != nil {
		return fmt.Errorf("sector must be a string or a list of strings: %w", err)
	}
	*s = NewSector(list...)
	return nil
}

// Identity returns the stable key of a posting. The explicit id wins; postings
// without one are keyed by their lowercased title and organization.
func Identity(p Posting) string {
	if p.ID != "" {
		return p.ID
	}
	return strings.ToLower(strings.ReplaceAll(p.Title+"_"+p.Org, " ", "_"))
}

// EmbeddingText renders the posting into the text sent to the embedding provider.
func EmbeddingText(p Posting) string {
	text := fmt.Sprintf(
		"Position: %s Company: %s Education Required: %s Required Skills: %s Industry Sector: %s Work Location: %s Description: %s",
		p.Title,
		p.Org,
		p.RequiredEducation,
		p.Skills,
		p.Sector.String(),
		p.Location,
		truncate(p.Description, descriptionLimit),
	)
	return strings.TrimSpace(text)
}

// WithoutEmbedding returns a copy of the posting with the vector dropped.
func (p Posting) WithoutEmbedding() Posting {
	p.Embedding = nil
	return p
}

func truncate(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit])
}
