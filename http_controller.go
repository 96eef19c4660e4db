package devconnect

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/goliatone/go-print"
	"github.com/goliatone/go-router"
)

// RepoLookup fetches a GitHub user's public repositories
type RepoLookup interface {
	Repos(ctx context.Context, username string) (json.RawMessage, error)
}

// validator is satisfied by every request payload
type validator interface {
	Validate() error
}

type Controller struct {
	Debug     bool
	Logger    Logger
	Repo      RepositoryManager
	Auther    *Auther
	Register  *RegisterUserHandler
	Profiles  *ProfileService
	Posts     *PostService
	Github    RepoLookup
	Gate      router.MiddlewareFunc
	// UseHashid derives new user ids from the email
	UseHashid bool
}

type ControllerOption func(*Controller) *Controller

func WithControllerLogger(l Logger) ControllerOption {
	return func(c *Controller) *Controller {
		if l != nil {
			c.Logger = l
		}
		return c
	}
}

func WithControllerDebug(debug bool) ControllerOption {
	return func(c *Controller) *Controller {
		c.Debug = debug
		return c
	}
}

func WithRepository(repo RepositoryManager) ControllerOption {
	return func(c *Controller) *Controller {
		c.Repo = repo
		return c
	}
}

func WithAuther(a *Auther) ControllerOption {
	return func(c *Controller) *Controller {
		c.Auther = a
		return c
	}
}

func WithRegisterHandler(h *RegisterUserHandler) ControllerOption {
	return func(c *Controller) *Controller {
		c.Register = h
		return c
	}
}

func WithProfileService(s *ProfileService) ControllerOption {
	return func(c *Controller) *Controller {
		c.Profiles = s
		return c
	}
}

func WithPostService(s *PostService) ControllerOption {
	return func(c *Controller) *Controller {
		c.Posts = s
		return c
	}
}

func WithRepoLookup(g RepoLookup) ControllerOption {
	return func(c *Controller) *Controller {
		c.Github = g
		return c
	}
}

func WithHashidUserIDs(enabled bool) ControllerOption {
	return func(c *Controller) *Controller {
		c.UseHashid = enabled
		return c
	}
}

func WithGate(gate router.MiddlewareFunc) ControllerOption {
	return func(c *Controller) *Controller {
		c.Gate = gate
		return c
	}
}

func NewController(opts ...ControllerOption) *Controller {
	c := &Controller{
		Logger: defLogger{},
	}

	for _, opt := range opts {
		c = opt(c)
	}

	if c.Repo == nil {
		panic("Missing RepositoryManager in controller...")
	}

	if c.Auther == nil {
		panic("Missing Auther in controller...")
	}

	if c.Register == nil {
		c.Register = NewRegisterUserHandler(c.Repo, c.Auther).WithLogger(c.Logger)
	}

	if c.Profiles == nil {
		c.Profiles = NewProfileService(c.Repo).WithLogger(c.Logger)
	}

	if c.Posts == nil {
		c.Posts = NewPostService(c.Repo).WithLogger(c.Logger)
	}

	if c.Gate == nil {
		panic("Missing auth gate in controller...")
	}

	return c
}

// RegisterRoutes mounts the API on app
func RegisterRoutes[T any](app router.Router[T], opts ...ControllerOption) *Controller {
	c := NewController(opts...)
	gate := c.Gate

	app.Get("/", c.Health)

	api := app.Group("/api")

	api.Post("/users", c.RegisterUser)

	api.Get("/auth", c.Me, gate)
	api.Post("/auth", c.Login)

	profile := api.Group("/profile")
	profile.Get("/me", c.ProfileMe, gate)
	profile.Post("/", c.ProfileUpsert, gate)
	profile.Get("/", c.ProfileList)
	profile.Get("/user/:user_id", c.ProfileByUser)
	profile.Delete("/", c.AccountDelete, gate)
	profile.Put("/experience", c.ExperienceAdd, gate)
	profile.Delete("/experience/:exp_id", c.ExperienceRemove, gate)
	profile.Put("/education", c.EducationAdd, gate)
	profile.Delete("/education/:edu_id", c.EducationRemove, gate)
	profile.Get("/github/:username", c.GithubRepos)

	posts := api.Group("/posts")
	posts.Post("/", c.PostCreate, gate)
	posts.Get("/", c.PostList, gate)
	posts.Get("/:id", c.PostGet, gate)
	posts.Delete("/:id", c.PostDelete, gate)
	posts.Put("/like/:id", c.PostLike, gate)
	posts.Put("/unlike/:id", c.PostUnlike, gate)
	posts.Post("/comment/:id", c.CommentAdd, gate)
	posts.Delete("/comment/:id/:comment_id", c.CommentRemove, gate)

	return c
}

func (a *Controller) Health(ctx router.Context) error {
	return ctx.SendString("API is running")
}

// TokenResponse is returned by register and login
type TokenResponse struct {
	Token string `json:"token"`
}

func (a *Controller) RegisterUser(ctx router.Context) error {
	payload := new(RegisterPayload)
	if err := a.bind(ctx, payload); err != nil {
		return err
	}

	var res *RegisterUserResponse
	msg := payload.Message()
	msg.UseHashid = a.UseHashid
	msg.OnResponse = func(r *RegisterUserResponse) {
		res = r
	}

	if err := a.Register.Execute(ctx.Context(), msg); err != nil {
		return err
	}

	if res == nil {
		return fmt.Errorf("register user: no response")
	}

	return ctx.JSON(router.StatusOK, TokenResponse{Token: res.Token})
}

func (a *Controller) Login(ctx router.Context) error {
	payload := new(LoginPayload)
	if err := a.bind(ctx, payload); err != nil {
		return err
	}

	token, err := a.Auther.Login(ctx.Context(), payload.Email, payload.Password)
	if err != nil {
		return err
	}

	return ctx.JSON(router.StatusOK, TokenResponse{Token: token})
}

func (a *Controller) Me(ctx router.Context) error {
	user, err := CurrentUser(ctx)
	if err != nil {
		return err
	}
	return ctx.JSON(router.StatusOK, user)
}

func (a *Controller) ProfileMe(ctx router.Context) error {
	user, err := CurrentUser(ctx)
	if err != nil {
		return err
	}

	profile, err := a.Profiles.Current(ctx.Context(), user.ID)
	if err != nil {
		return err
	}
	return ctx.JSON(router.StatusOK, profile)
}

func (a *Controller) ProfileUpsert(ctx router.Context) error {
	user, err := CurrentUser(ctx)
	if err != nil {
		return err
	}

	payload := new(ProfilePayload)
	if err := a.bind(ctx, payload); err != nil {
		return err
	}

	profile, err := a.Profiles.Upsert(ctx.Context(), UpsertProfileRequest{
		UserID: user.ID,
		Fields: payload.Fields(),
	})
	if err != nil {
		return err
	}
	return ctx.JSON(router.StatusOK, profile)
}

func (a *Controller) ProfileList(ctx router.Context) error {
	profiles, err := a.Profiles.List(ctx.Context())
	if err != nil {
		return err
	}
	return ctx.JSON(router.StatusOK, profiles)
}

func (a *Controller) ProfileByUser(ctx router.Context) error {
	profile, err := a.Profiles.ByUser(ctx.Context(), ctx.Param("user_id"))
	if err != nil {
		return err
	}
	return ctx.JSON(router.StatusOK, profile)
}

func (a *Controller) AccountDelete(ctx router.Context) error {
	user, err := CurrentUser(ctx)
	if err != nil {
		return err
	}

	if err := a.Profiles.DeleteAccount(ctx.Context(), user.ID); err != nil {
		return err
	}
	return ctx.JSON(router.StatusOK, map[string]string{"msg": "User deleted successfully"})
}

func (a *Controller) ExperienceAdd(ctx router.Context) error {
	user, err := CurrentUser(ctx)
	if err != nil {
		return err
	}

	payload := new(ExperiencePayload)
	if err := a.bind(ctx, payload); err != nil {
		return err
	}

	profile, err := a.Profiles.AddExperience(ctx.Context(), AddExperienceRequest{
		UserID:     user.ID,
		Experience: payload.Experience(),
	})
	if err != nil {
		return err
	}
	return ctx.JSON(router.StatusOK, profile)
}

func (a *Controller) ExperienceRemove(ctx router.Context) error {
	user, err := CurrentUser(ctx)
	if err != nil {
		return err
	}

	profile, err := a.Profiles.RemoveExperience(ctx.Context(), RemoveEntryRequest{
		UserID:  user.ID,
		EntryID: ctx.Param("exp_id"),
	})
	if err != nil {
		return err
	}
	return ctx.JSON(router.StatusOK, profile)
}

func (a *Controller) EducationAdd(ctx router.Context) error {
	user, err := CurrentUser(ctx)
	if err != nil {
		return err
	}

	payload := new(EducationPayload)
	if err := a.bind(ctx, payload); err != nil {
		return err
	}

	profile, err := a.Profiles.AddEducation(ctx.Context(), AddEducationRequest{
		UserID:    user.ID,
		Education: payload.Education(),
	})
	if err != nil {
		return err
	}
	return ctx.JSON(router.StatusOK, profile)
}

func (a *Controller) EducationRemove(ctx router.Context) error {
	user, err := CurrentUser(ctx)
	if err != nil {
		return err
	}

	profile, err := a.Profiles.RemoveEducation(ctx.Context(), RemoveEntryRequest{
		UserID:  user.ID,
		EntryID: ctx.Param("edu_id"),
	})
	if err != nil {
		return err
	}
	return ctx.JSON(router.StatusOK, profile)
}

func (a *Controller) GithubRepos(ctx router.Context) error {
	if a.Github == nil {
		return ErrNoGithubProfile
	}

	repos, err := a.Github.Repos(ctx.Context(), ctx.Param("username"))
	if err != nil {
		return err
	}

	ctx.SetHeader("Content-Type", "application/json")
	return ctx.Status(router.StatusOK).Send(repos)
}

func (a *Controller) PostCreate(ctx router.Context) error {
	user, err := CurrentUser(ctx)
	if err != nil {
		return err
	}

	payload := new(TextPayload)
	if err := a.bind(ctx, payload); err != nil {
		return err
	}

	post, err := a.Posts.Create(ctx.Context(), CreatePostRequest{
		Author: user,
		Text:   payload.Text,
	})
	if err != nil {
		return err
	}
	return ctx.JSON(router.StatusOK, post)
}

func (a *Controller) PostList(ctx router.Context) error {
	posts, err := a.Posts.List(ctx.Context())
	if err != nil {
		return err
	}
	return ctx.JSON(router.StatusOK, posts)
}

func (a *Controller) PostGet(ctx router.Context) error {
	post, err := a.Posts.Get(ctx.Context(), ctx.Param("id"))
	if err != nil {
		return err
	}
	return ctx.JSON(router.StatusOK, post)
}

func (a *Controller) PostDelete(ctx router.Context) error {
	user, err := CurrentUser(ctx)
	if err != nil {
		return err
	}

	err = a.Posts.Delete(ctx.Context(), DeletePostRequest{
		UserID: user.ID,
		PostID: ctx.Param("id"),
	})
	if err != nil {
		return err
	}
	return ctx.JSON(router.StatusOK, map[string]string{"msg": "Post removed"})
}

func (a *Controller) PostLike(ctx router.Context) error {
	user, err := CurrentUser(ctx)
	if err != nil {
		return err
	}

	likes, err := a.Posts.Like(ctx.Context(), LikeRequest{
		UserID: user.ID,
		PostID: ctx.Param("id"),
	})
	if err != nil {
		return err
	}
	return ctx.JSON(router.StatusOK, likes)
}

func (a *Controller) PostUnlike(ctx router.Context) error {
	user, err := CurrentUser(ctx)
	if err != nil {
		return err
	}

	likes, err := a.Posts.Unlike(ctx.Context(), LikeRequest{
		UserID: user.ID,
		PostID: ctx.Param("id"),
	})
	if err != nil {
		return err
	}
	return ctx.JSON(router.StatusOK, likes)
}

func (a *Controller) CommentAdd(ctx router.Context) error {
	user, err := CurrentUser(ctx)
	if err != nil {
		return err
	}

	payload := new(TextPayload)
	if err := a.bind(ctx, payload); err != nil {
		return err
	}

	comments, err := a.Posts.AddComment(ctx.Context(), AddCommentRequest{
		Author: user,
		PostID: ctx.Param("id"),
		Text:   payload.Text,
	})
	if err != nil {
		return err
	}
	return ctx.JSON(router.StatusOK, comments)
}

func (a *Controller) CommentRemove(ctx router.Context) error {
	user, err := CurrentUser(ctx)
	if err != nil {
		return err
	}

	comments, err := a.Posts.RemoveComment(ctx.Context(), RemoveCommentRequest{
		UserID:    user.ID,
		PostID:    ctx.Param("id"),
		CommentID: ctx.Param("comment_id"),
	})
	if err != nil {
		return err
	}
	return ctx.JSON(router.StatusOK, comments)
}

// bind decodes the body into payload and validates it
func (a *Controller) bind(ctx router.Context, payload validator) error {
	if len(ctx.Body()) > 0 {
		if err := ctx.Bind(payload); err != nil {
			a.Logger.Debug("body parse failed", "path", ctx.Path(), "error", err)
			return ErrInvalidBody
		}
	}

	if a.Debug {
		switch payload.(type) {
		case *RegisterPayload, *LoginPayload:
			// credentials are never dumped
		default:
			a.Logger.Debug("request payload", "path", ctx.Path(), "payload", print.MaybePrettyJSON(payload))
		}
	}

	return payload.Validate()
}
