package devconnect_test

import (
	"context"
	"testing"
	"time"

	devconnect "github.com/goliatone/go-devconnect"
	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProfileService_Upsert(t *testing.T) {
	s := newStack(t)
	ctx := context.Background()
	user, _ := s.registerUser(t, "Ada", "ada@example.com")

	_, err := s.profiles.Current(ctx, user.ID)
	assert.ErrorIs(t, err, devconnect.ErrNoProfile)

	created, err := s.profiles.Upsert(ctx, devconnect.UpsertProfileRequest{
		UserID: user.ID,
		Fields: devconnect.ProfileFields{
			Status:  "Developer",
			Company: "Acme",
			Skills:  []string{"go", "sql"},
			Social:  devconnect.SocialLinks{Twitter: "https://twitter.com/ada"},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, user.ID, created.UserID)

	updated, err := s.profiles.Upsert(ctx, devconnect.UpsertProfileRequest{
		UserID: user.ID,
		Fields: devconnect.ProfileFields{
			Status: "Senior Developer",
			Skills: []string{"go"},
			Social: devconnect.SocialLinks{YouTube: "https://youtube.com/ada"},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, created.ID, updated.ID)

	current, err := s.profiles.Current(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, "Senior Developer", current.Status)
	assert.Equal(t, "Acme", current.Company, "fields absent from the update are kept")
	assert.Equal(t, []string{"go"}, current.Skills)
	assert.Equal(t, "https://twitter.com/ada", current.Social.Twitter)
	assert.Equal(t, "https://youtube.com/ada", current.Social.YouTube)
	require.NotNil(t, current.User)
	assert.Equal(t, "Ada", current.User.Name)
	assert.Equal(t, user.Avatar, current.User.Avatar)

	all, err := s.profiles.List(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestProfilesRepository_CreateTx_DuplicateUser(t *testing.T) {
	s := newStack(t)
	ctx := context.Background()
	user, _ := s.registerUser(t, "Ada", "ada@example.com")

	profiles := s.repo.Profiles()
	_, err := profiles.CreateTx(ctx, s.db, &devconnect.Profile{UserID: user.ID, Status: "Developer"})
	require.NoError(t, err)

	_, err = profiles.CreateTx(ctx, s.db, &devconnect.Profile{UserID: user.ID, Status: "Manager"})
	require.Error(t, err)
	assert.True(t, repository.IsDuplicatedKey(err), "got %v", err)
}

func TestProfileService_ByUser(t *testing.T) {
	s := newStack(t)
	ctx := context.Background()
	user, _ := s.registerUser(t, "Ada", "ada@example.com")

	_, err := s.profiles.Upsert(ctx, devconnect.UpsertProfileRequest{
		UserID: user.ID,
		Fields: devconnect.ProfileFields{Status: "Developer", Skills: []string{"go"}},
	})
	require.NoError(t, err)

	got, err := s.profiles.ByUser(ctx, user.ID.String())
	require.NoError(t, err)
	assert.Equal(t, "Developer", got.Status)

	_, err = s.profiles.ByUser(ctx, uuid.NewString())
	assert.ErrorIs(t, err, devconnect.ErrProfileNotFound)

	_, err = s.profiles.ByUser(ctx, "not-an-id")
	assert.ErrorIs(t, err, devconnect.ErrProfileNotFound)
}

func TestProfileService_Experience(t *testing.T) {
	s := newStack(t)
	ctx := context.Background()
	user, _ := s.registerUser(t, "Ada", "ada@example.com")

	_, err := s.profiles.AddExperience(ctx, devconnect.AddExperienceRequest{
		UserID:     user.ID,
		Experience: devconnect.Experience{Title: "Engineer", Company: "Acme"},
	})
	assert.ErrorIs(t, err, devconnect.ErrNoProfile)

	_, err = s.profiles.Upsert(ctx, devconnect.UpsertProfileRequest{
		UserID: user.ID,
		Fields: devconnect.ProfileFields{Status: "Developer", Skills: []string{"go"}},
	})
	require.NoError(t, err)

	from := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	_, err = s.profiles.AddExperience(ctx, devconnect.AddExperienceRequest{
		UserID:     user.ID,
		Experience: devconnect.Experience{Title: "Junior", Company: "Acme", From: from},
	})
	require.NoError(t, err)

	profile, err := s.profiles.AddExperience(ctx, devconnect.AddExperienceRequest{
		UserID:     user.ID,
		Experience: devconnect.Experience{Title: "Senior", Company: "Acme", From: from.AddDate(2, 0, 0)},
	})
	require.NoError(t, err)
	require.Len(t, profile.Experience, 2)
	assert.Equal(t, "Senior", profile.Experience[0].Title, "newest entry first")
	assert.NotEqual(t, uuid.Nil, profile.Experience[0].ID)

	_, err = s.profiles.RemoveExperience(ctx, devconnect.RemoveEntryRequest{
		UserID:  user.ID,
		EntryID: uuid.NewString(),
	})
	assert.ErrorIs(t, err, devconnect.ErrExperienceNotFound)

	_, err = s.profiles.RemoveExperience(ctx, devconnect.RemoveEntryRequest{
		UserID:  user.ID,
		EntryID: "junk",
	})
	assert.ErrorIs(t, err, devconnect.ErrExperienceNotFound)

	profile, err = s.profiles.RemoveExperience(ctx, devconnect.RemoveEntryRequest{
		UserID:  user.ID,
		EntryID: profile.Experience[1].ID.String(),
	})
	require.NoError(t, err)
	require.Len(t, profile.Experience, 1)
	assert.Equal(t, "Senior", profile.Experience[0].Title)

	stored, err := s.profiles.Current(ctx, user.ID)
	require.NoError(t, err)
	require.Len(t, stored.Experience, 1)
	assert.True(t, stored.Experience[0].From.Equal(from.AddDate(2, 0, 0)))
}

func TestProfileService_Education(t *testing.T) {
	s := newStack(t)
	ctx := context.Background()
	user, _ := s.registerUser(t, "Ada", "ada@example.com")

	_, err := s.profiles.Upsert(ctx, devconnect.UpsertProfileRequest{
		UserID: user.ID,
		Fields: devconnect.ProfileFields{Status: "Developer", Skills: []string{"go"}},
	})
	require.NoError(t, err)

	profile, err := s.profiles.AddEducation(ctx, devconnect.AddEducationRequest{
		UserID:    user.ID,
		Education: devconnect.Education{School: "MIT", Degree: "BSc", FieldOfStudy: "CS"},
	})
	require.NoError(t, err)
	require.Len(t, profile.Education, 1)

	_, err = s.profiles.RemoveEducation(ctx, devconnect.RemoveEntryRequest{
		UserID:  user.ID,
		EntryID: uuid.NewString(),
	})
	assert.ErrorIs(t, err, devconnect.ErrEducationNotFound)

	profile, err = s.profiles.RemoveEducation(ctx, devconnect.RemoveEntryRequest{
		UserID:  user.ID,
		EntryID: profile.Education[0].ID.String(),
	})
	require.NoError(t, err)
	assert.Empty(t, profile.Education)
}

func TestProfileService_DeleteAccount(t *testing.T) {
	s := newStack(t)
	ctx := context.Background()
	ada, _ := s.registerUser(t, "Ada", "ada@example.com")
	bob, _ := s.registerUser(t, "Bob", "bob@example.com")

	_, err := s.profiles.Upsert(ctx, devconnect.UpsertProfileRequest{
		UserID: ada.ID,
		Fields: devconnect.ProfileFields{Status: "Developer", Skills: []string{"go"}},
	})
	require.NoError(t, err)

	adaPost, err := s.posts.Create(ctx, devconnect.CreatePostRequest{Author: ada, Text: "mine"})
	require.NoError(t, err)
	bobPost, err := s.posts.Create(ctx, devconnect.CreatePostRequest{Author: bob, Text: "theirs"})
	require.NoError(t, err)

	_, err = s.posts.AddComment(ctx, devconnect.AddCommentRequest{Author: ada, PostID: bobPost.ID.String(), Text: "hi"})
	require.NoError(t, err)

	require.NoError(t, s.profiles.DeleteAccount(ctx, ada.ID))

	_, err = s.profiles.Current(ctx, ada.ID)
	assert.ErrorIs(t, err, devconnect.ErrNoProfile)

	_, err = s.posts.Get(ctx, adaPost.ID.String())
	assert.ErrorIs(t, err, devconnect.ErrPostNotFound)

	remaining, err := s.posts.Get(ctx, bobPost.ID.String())
	require.NoError(t, err)
	assert.Len(t, remaining.Comments, 1, "comments on other posts are kept")

	_, err = s.repo.Users().FindByEmail(ctx, "ada@example.com")
	assert.Error(t, err)

	assert.Contains(t, s.sink.types(), devconnect.ActivityEventAccountDeleted)
}

func TestProfileService_DeleteAccount_WithoutProfile(t *testing.T) {
	s := newStack(t)
	ctx := context.Background()
	ada, _ := s.registerUser(t, "Ada", "ada@example.com")

	require.NoError(t, s.profiles.DeleteAccount(ctx, ada.ID))

	_, err := s.repo.Users().FindByEmail(ctx, "ada@example.com")
	assert.Error(t, err)
}
