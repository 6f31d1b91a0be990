package generators

import (
	"encoding/json"
	"fmt"
	"os"
)

// ResumeData is the candidate's structured resume, loaded from a JSON file
// the user maintains by hand. Templatized generation renders directly from
// it; free-form generation passes it to the model as source material.
type ResumeData struct {
	PersonalInformation PersonalInformation `json:"personal_information"`
	Skills              []string            `json:"skills"`
	Experience          []Experience        `json:"experience"`
	Education           []Education         `json:"education"`
	Certifications      []string            `json:"certifications_and_courses"`
	Projects            []Project           `json:"projects"`
}

// PersonalInformation is the canonical contact block. Values here override
// anything the model might infer from other sources.
type PersonalInformation struct {
	Name    string  `json:"name"`
	Phone   string  `json:"phone"`
	Email   string  `json:"email"`
	Website string  `json:"website"`
	GitHub  string  `json:"github"`
	Address Address `json:"address"`
}

type Address struct {
	Street string `json:"street"`
	City   string `json:"city"`
	State  string `json:"state"`
	Zip    string `json:"zip"`
}

type Experience struct {
	Company    string   `json:"company"`
	Title      string   `json:"title"`
	StartDate  string   `json:"start_date"`
	EndDate    string   `json:"end_date"`
	Highlights []string `json:"highlights"`
}

type Education struct {
	Institution string `json:"institution"`
	Degree      string `json:"degree"`
	Year        string `json:"year"`
}

type Project struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	URL         string `json:"url"`
}

// LoadResumeData reads and decodes the resume JSON file.
func LoadResumeData(path string) (*ResumeData, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read resume data: %w", err)
	}
	var data ResumeData
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, fmt.Errorf("failed to decode resume data %s: %w", path, err)
	}
	return &data, nil
}
