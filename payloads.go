package devconnect

import (
	"encoding/json"
	"slices"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
	"github.com/goliatone/go-errors"
)

const dateLayout = "2006-01-02"

// MaxPasswordBytes is the longest password bcrypt will hash
const MaxPasswordBytes = 72

// RegisterPayload is the registration request body
type RegisterPayload struct {
	Name     string `json:"name" form:"name"`
	Email    string `json:"email" form:"email"`
	Password string `json:"password" form:"password"`
}

// Validate will run validation rules
func (r RegisterPayload) Validate() error {
	return validationError(func() error {
		return validation.ValidateStruct(&r,
			validation.Field(&r.Name,
				validation.Required.Error("Name is required"),
			),
			validation.Field(&r.Email,
				validation.Required.Error("Please enter a valid email"),
				is.Email.Error("Please enter a valid email"),
			),
			validation.Field(&r.Password,
				validation.Required.Error("Password must be at least six character long"),
				validation.RuneLength(6, 0).Error("Password must be at least six character long"),
				validation.Length(0, MaxPasswordBytes).Error("Password must not exceed 72 bytes"),
			),
		)
	}, "name", "email", "password")
}

func (r RegisterPayload) Message() RegisterUserMessage {
	return RegisterUserMessage{
		Name:     strings.TrimSpace(r.Name),
		Email:    r.Email,
		Password: r.Password,
	}
}

// LoginPayload is the login request body
type LoginPayload struct {
	Email    string `json:"email" form:"email"`
	Password string `json:"password" form:"password"`
}

// Validate will run validation rules
func (r LoginPayload) Validate() error {
	return validationError(func() error {
		return validation.ValidateStruct(&r,
			validation.Field(&r.Email,
				validation.Required.Error("Please enter a valid email"),
				is.Email.Error("Please enter a valid email"),
			),
			validation.Field(&r.Password,
				validation.Required.Error("Password is required"),
			),
		)
	}, "email", "password")
}

// SkillList decodes either a comma separated string or a JSON array
type SkillList []string

func (s *SkillList) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err == nil {
		*s = ParseSkills(raw)
		return nil
	}

	var list []string
	if err := json.Unmarshal(data, &list); err != nil {
		return err
	}
	*s = ParseSkills(strings.Join(list, ","))
	return nil
}

// ProfilePayload is the create or update profile request body
type ProfilePayload struct {
	Company        string    `json:"company"`
	Website        string    `json:"website"`
	Location       string    `json:"location"`
	Bio            string    `json:"bio"`
	Status         string    `json:"status"`
	GithubUsername string    `json:"githubusername"`
	Skills         SkillList `json:"skills"`
	YouTube        string    `json:"youtube"`
	Twitter        string    `json:"twitter"`
	Facebook       string    `json:"facebook"`
	LinkedIn       string    `json:"linkedin"`
	Instagram      string    `json:"instagram"`
}

// Validate will run validation rules
func (r ProfilePayload) Validate() error {
	return validationError(func() error {
		return validation.ValidateStruct(&r,
			validation.Field(&r.Status,
				validation.Required.Error("Status is required"),
			),
			validation.Field(&r.Skills,
				validation.Required.Error("Skills is required"),
			),
		)
	}, "status", "skills")
}

func (r ProfilePayload) Fields() ProfileFields {
	return ProfileFields{
		Company:        strings.TrimSpace(r.Company),
		Website:        strings.TrimSpace(r.Website),
		Location:       strings.TrimSpace(r.Location),
		Bio:            r.Bio,
		Status:         strings.TrimSpace(r.Status),
		GithubUsername: strings.TrimSpace(r.GithubUsername),
		Skills:         slices.Clone([]string(r.Skills)),
		Social: SocialLinks{
			YouTube:   strings.TrimSpace(r.YouTube),
			Twitter:   strings.TrimSpace(r.Twitter),
			Facebook:  strings.TrimSpace(r.Facebook),
			LinkedIn:  strings.TrimSpace(r.LinkedIn),
			Instagram: strings.TrimSpace(r.Instagram),
		},
	}
}

// ExperiencePayload is the add experience request body
type ExperiencePayload struct {
	Title       string `json:"title"`
	Company     string `json:"company"`
	Location    string `json:"location"`
	From        string `json:"from"`
	To          string `json:"to"`
	Current     bool   `json:"current"`
	Description string `json:"description"`
}

// Validate will run validation rules
func (r ExperiencePayload) Validate() error {
	return validationError(func() error {
		return validation.ValidateStruct(&r,
			validation.Field(&r.Title,
				validation.Required.Error("Title is required"),
			),
			validation.Field(&r.Company,
				validation.Required.Error("Company is required"),
			),
			validation.Field(&r.From,
				validation.Required.Error("From date is required"),
				dateRule("From date is required"),
			),
			validation.Field(&r.To,
				dateRule("To date is invalid"),
			),
		)
	}, "title", "company", "from", "to")
}

// Experience converts a validated payload
func (r ExperiencePayload) Experience() Experience {
	from, _ := parseDate(r.From)
	return Experience{
		Title:       strings.TrimSpace(r.Title),
		Company:     strings.TrimSpace(r.Company),
		Location:    strings.TrimSpace(r.Location),
		From:        from,
		To:          optionalDate(r.To),
		Current:     r.Current,
		Description: r.Description,
	}
}

// EducationPayload is the add education request body
type EducationPayload struct {
	School       string `json:"school"`
	Degree       string `json:"degree"`
	FieldOfStudy string `json:"fieldofstudy"`
	From         string `json:"from"`
	To           string `json:"to"`
	Current      bool   `json:"current"`
	Description  string `json:"description"`
}

// Validate will run validation rules
func (r EducationPayload) Validate() error {
	return validationError(func() error {
		return validation.ValidateStruct(&r,
			validation.Field(&r.School,
				validation.Required.Error("School is required"),
			),
			validation.Field(&r.Degree,
				validation.Required.Error("Degree is required"),
			),
			validation.Field(&r.FieldOfStudy,
				validation.Required.Error("Field of Study is required"),
			),
			validation.Field(&r.From,
				validation.Required.Error("From date is required"),
				dateRule("From date is required"),
			),
			validation.Field(&r.To,
				dateRule("To date is invalid"),
			),
		)
	}, "school", "degree", "fieldofstudy", "from", "to")
}

// Education converts a validated payload
func (r EducationPayload) Education() Education {
	from, _ := parseDate(r.From)
	return Education{
		School:       strings.TrimSpace(r.School),
		Degree:       strings.TrimSpace(r.Degree),
		FieldOfStudy: strings.TrimSpace(r.FieldOfStudy),
		From:         from,
		To:           optionalDate(r.To),
		Current:      r.Current,
		Description:  r.Description,
	}
}

// TextPayload is the body of new posts and comments
type TextPayload struct {
	Text string `json:"text" form:"text"`
}

// Validate will run validation rules
func (r TextPayload) Validate() error {
	return validationError(func() error {
		return validation.ValidateStruct(&r,
			validation.Field(&r.Text,
				validation.Required.Error("Text is required"),
			),
		)
	}, "text")
}

func dateRule(msg string) validation.Rule {
	return validation.By(func(value any) error {
		s, _ := value.(string)
		if strings.TrimSpace(s) == "" {
			return nil
		}
		if _, err := parseDate(s); err != nil {
			return validation.NewError("validation_date", msg)
		}
		return nil
	})
}

func parseDate(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if t, err := time.Parse(dateLayout, raw); err == nil {
		return t.UTC(), nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, err
	}
	return t.UTC(), nil
}

func optionalDate(raw string) *time.Time {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	t, err := parseDate(raw)
	if err != nil {
		return nil
	}
	return &t
}

// validationError runs fn through go-errors and orders the field errors
// as listed in fields
func validationError(fn func() error, fields ...string) error {
	richErr := errors.ValidateWithOzzo(fn, "Invalid request payload")
	if richErr == nil {
		return nil
	}

	rank := func(name string) int {
		if i := slices.Index(fields, name); i >= 0 {
			return i
		}
		return len(fields)
	}

	slices.SortStableFunc(richErr.ValidationErrors, func(a, b errors.FieldError) int {
		return rank(a.Field) - rank(b.Field)
	})

	return richErr.
		WithTextCode(TextCodeValidation).
		WithCode(errors.CodeBadRequest)
}
