package catalog

import (
	"sort"
	"strings"
)

const (
	sampleLocations = 10
	sampleSkills    = 15
)

// Stats summarizes the catalog for reporting.
type Stats struct {
	TotalInternships      int      `json:"total_internships"`
	UniqueLocations       int      `json:"unique_locations"`
	UniqueSkills          int      `json:"unique_skills"`
	UniqueEducationLevels int      `json:"unique_education_levels"`
	UniqueOrganizations   int      `json:"unique_organizations"`
	SampleLocations       []string `json:"sample_locations"`
	SampleSkills          []string `json:"sample_skills"`
	SampleEducationLevels []string `json:"sample_education_levels"`
}

// Summarize collects unique values across the catalog. Samples are sorted so
// the report is stable between runs.
func Summarize(postings []Posting) *Stats {
	locations := make(map[string]struct{})
	skills := make(map[string]struct{})
	education := make(map[string]struct{})
	orgs := make(map[string]struct{})

	for _, p := range postings {
		if p.Location != "" {
			locations[p.Location] = struct{}{}
		}
		for _, skill := range strings.Split(p.Skills, ",") {
			if skill = strings.TrimSpace(skill); skill != "" {
				skills[skill] = struct{}{}
			}
		}
		if p.RequiredEducation != "" {
			education[p.RequiredEducation] = struct{}{}
		}
		if p.Org != "" {
			orgs[p.Org] = struct{}{}
		}
	}

	return &Stats{
		TotalInternships:      len(postings),
		UniqueLocations:       len(locations),
		UniqueSkills:          len(skills),
		UniqueEducationLevels: len(education),
		UniqueOrganizations:   len(orgs),
		SampleLocations:       sample(locations, sampleLocations),
		SampleSkills:          sample(skills, sampleSkills),
		SampleEducationLevels: sample(education, 0),
	}
}

// sample returns up to limit sorted keys; limit <= 0 means all of them.
func sample(set map[string]struct{}, limit int) []string {
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	if limit > 0 && len(keys) > limit {
		keys = keys[:limit]
	}
	return keys
}
