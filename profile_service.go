package devconnect

import (
	"context"
	"slices"
	"strings"

	"github.com/goliatone/go-errors"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// ProfileFields is a partial profile update. Empty values leave the
// stored value untouched.
type ProfileFields struct {
	Company        string
	Website        string
	Location       string
	Bio            string
	Status         string
	GithubUsername string
	Skills         []string
	Social         SocialLinks
}

func (f ProfileFields) applyTo(p *Profile) {
	if f.Company != "" {
		p.Company = f.Company
	}
	if f.Website != "" {
		p.Website = f.Website
	}
	if f.Location != "" {
		p.Location = f.Location
	}
	if f.Bio != "" {
		p.Bio = f.Bio
	}
	if f.Status != "" {
		p.Status = f.Status
	}
	if f.GithubUsername != "" {
		p.GithubUsername = f.GithubUsername
	}
	if len(f.Skills) > 0 {
		p.Skills = slices.Clone(f.Skills)
	}
	p.Social = p.Social.Merge(f.Social)
}

// ParseSkills splits a comma separated list, trimming entries and dropping empties
func ParseSkills(raw string) []string {
	skills := make([]string, 0)
	for _, s := range strings.Split(raw, ",") {
		if s = strings.TrimSpace(s); s != "" {
			skills = append(skills, s)
		}
	}
	return skills
}

type UpsertProfileRequest struct {
	UserID uuid.UUID
	Fields ProfileFields
}

type AddExperienceRequest struct {
	UserID     uuid.UUID
	Experience Experience
}

type AddEducationRequest struct {
	UserID    uuid.UUID
	Education Education
}

// RemoveEntryRequest targets one experience or education entry by id
type RemoveEntryRequest struct {
	UserID  uuid.UUID
	EntryID string
}

// ProfileService implements the profile operations
type ProfileService struct {
	repo     RepositoryManager
	activity ActivitySink
	logger   Logger
	newID    func() uuid.UUID
}

func NewProfileService(repo RepositoryManager) *ProfileService {
	return &ProfileService{
		repo:     repo,
		activity: noopActivitySink{},
		logger:   defLogger{},
		newID:    uuid.New,
	}
}

func (s *ProfileService) WithLogger(l Logger) *ProfileService {
	if l != nil {
		s.logger = l
	}
	return s
}

func (s *ProfileService) WithActivitySink(sink ActivitySink) *ProfileService {
	s.activity = normalizeActivitySink(sink)
	return s
}

// Current returns the caller's profile
func (s *ProfileService) Current(ctx context.Context, userID uuid.UUID) (*Profile, error) {
	profile, err := s.repo.Profiles().GetByUser(ctx, userID)
	if err != nil {
		if isNotFound(err) {
			return nil, ErrNoProfile
		}
		return nil, errors.Wrap(err, errors.CategoryInternal, "failed to load profile")
	}
	return profile, nil
}

// ByUser returns the profile owned by userID. Malformed ids are reported as not found.
func (s *ProfileService) ByUser(ctx context.Context, userID string) (*Profile, error) {
	id, err := uuid.Parse(strings.TrimSpace(userID))
	if err != nil {
		return nil, ErrProfileNotFound
	}

	profile, err := s.repo.Profiles().GetByUser(ctx, id)
	if err != nil {
		if isNotFound(err) {
			return nil, ErrProfileNotFound
		}
		return nil, errors.Wrap(err, errors.CategoryInternal, "failed to load profile")
	}
	return profile, nil
}

func (s *ProfileService) List(ctx context.Context) ([]*Profile, error) {
	profiles, err := s.repo.Profiles().List(ctx)
	if err != nil {
		return nil, errors.Wrap(err, errors.CategoryInternal, "failed to list profiles")
	}
	return profiles, nil
}

// Upsert merges the fields into the caller's profile, creating it when missing
func (s *ProfileService) Upsert(ctx context.Context, req UpsertProfileRequest) (*Profile, error) {
	var out *Profile

	err := s.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		profiles := s.repo.Profiles()

		existing, err := profiles.GetByUserTx(ctx, tx, req.UserID)
		switch {
		case err == nil:
			req.Fields.applyTo(existing)
			out, err = profiles.UpdateTx(ctx, tx, existing)
			return err
		case !isNotFound(err):
			return err
		}

		record := &Profile{
			ID:     s.newID(),
			UserID: req.UserID,
		}
		req.Fields.applyTo(record)

		out, err = profiles.CreateTx(ctx, tx, record)
		if err != nil && isUniqueViolation(err) {
			// lost a create race, merge into the winner
			existing, err = profiles.GetByUserTx(ctx, tx, req.UserID)
			if err != nil {
				return err
			}
			req.Fields.applyTo(existing)
			out, err = profiles.UpdateTx(ctx, tx, existing)
		}
		return err
	})

	if err != nil {
		return nil, txError(err, "failed to save profile")
	}
	return out, nil
}

func (s *ProfileService) AddExperience(ctx context.Context, req AddExperienceRequest) (*Profile, error) {
	return s.mutate(ctx, req.UserID, "experience", func(p *Profile) error {
		entry := req.Experience
		entry.ID = s.newID()
		p.Experience = slices.Insert(p.Experience, 0, entry)
		return nil
	})
}

func (s *ProfileService) RemoveExperience(ctx context.Context, req RemoveEntryRequest) (*Profile, error) {
	id, err := uuid.Parse(strings.TrimSpace(req.EntryID))
	if err != nil {
		return nil, ErrExperienceNotFound
	}

	return s.mutate(ctx, req.UserID, "experience", func(p *Profile) error {
		idx := slices.IndexFunc(p.Experience, func(e Experience) bool { return e.ID == id })
		if idx < 0 {
			return ErrExperienceNotFound
		}
		p.Experience = slices.Delete(p.Experience, idx, idx+1)
		return nil
	})
}

func (s *ProfileService) AddEducation(ctx context.Context, req AddEducationRequest) (*Profile, error) {
	return s.mutate(ctx, req.UserID, "education", func(p *Profile) error {
		entry := req.Education
		entry.ID = s.newID()
		p.Education = slices.Insert(p.Education, 0, entry)
		return nil
	})
}

func (s *ProfileService) RemoveEducation(ctx context.Context, req RemoveEntryRequest) (*Profile, error) {
	id, err := uuid.Parse(strings.TrimSpace(req.EntryID))
	if err != nil {
		return nil, ErrEducationNotFound
	}

	return s.mutate(ctx, req.UserID, "education", func(p *Profile) error {
		idx := slices.IndexFunc(p.Education, func(e Education) bool { return e.ID == id })
		if idx < 0 {
			return ErrEducationNotFound
		}
		p.Education = slices.Delete(p.Education, idx, idx+1)
		return nil
	})
}

// mutate loads the caller's profile, applies fn and writes column back in one transaction
func (s *ProfileService) mutate(ctx context.Context, userID uuid.UUID, column string, fn func(*Profile) error) (*Profile, error) {
	var out *Profile

	err := s.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		profile, err := s.repo.Profiles().GetByUserTx(ctx, tx, userID)
		if err != nil {
			if isNotFound(err) {
				return ErrNoProfile
			}
			return err
		}

		if err := fn(profile); err != nil {
			return err
		}

		out, err = s.repo.Profiles().UpdateTx(ctx, tx, profile, column)
		return err
	})

	if err != nil {
		return nil, txError(err, "failed to update profile")
	}
	return out, nil
}

// DeleteAccount removes the caller's posts, profile and user in one transaction.
// Likes and comments left on other members' posts are kept.
func (s *ProfileService) DeleteAccount(ctx context.Context, userID uuid.UUID) error {
	var removedPosts int64

	err := s.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		n, err := s.repo.Posts().DeleteByUserTx(ctx, tx, userID)
		if err != nil {
			return err
		}
		removedPosts = n

		if err := s.repo.Profiles().DeleteByUserTx(ctx, tx, userID); err != nil {
			return err
		}

		if err := s.repo.Users().RemoveAccountTx(ctx, tx, userID); err != nil && !isNotFound(err) {
			return err
		}
		return nil
	})

	if err != nil {
		return txError(err, "failed to delete account")
	}

	emitActivity(ctx, s.activity, s.logger, ActivityEvent{
		EventType: ActivityEventAccountDeleted,
		UserID:    userID.String(),
		Metadata:  map[string]any{"posts_removed": removedPosts},
	})

	return nil
}
