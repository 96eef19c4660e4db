package devconnect

import (
	"context"
	"slices"
	"strings"

	"github.com/goliatone/go-errors"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

type CreatePostRequest struct {
	Author *User
	Text   string
}

type DeletePostRequest struct {
	UserID uuid.UUID
	PostID string
}

type LikeRequest struct {
	UserID uuid.UUID
	PostID string
}

type AddCommentRequest struct {
	Author *User
	PostID string
	Text   string
}

type RemoveCommentRequest struct {
	UserID    uuid.UUID
	PostID    string
	CommentID string
}

// PostService implements the post, like and comment operations
type PostService struct {
	repo   RepositoryManager
	logger Logger
	now    Clock
	newID  func() uuid.UUID
}

func NewPostService(repo RepositoryManager) *PostService {
	return &PostService{
		repo:   repo,
		logger: defLogger{},
		now:    defaultClock,
		newID:  uuid.New,
	}
}

func (s *PostService) WithLogger(l Logger) *PostService {
	if l != nil {
		s.logger = l
	}
	return s
}

func (s *PostService) WithClock(now Clock) *PostService {
	if now != nil {
		s.now = now
	}
	return s
}

// Create stores a post with the author's current name and avatar
func (s *PostService) Create(ctx context.Context, req CreatePostRequest) (*Post, error) {
	if req.Author == nil {
		return nil, ErrUnauthorized
	}

	record := &Post{
		ID:        s.newID(),
		UserID:    req.Author.ID,
		Text:      req.Text,
		Name:      req.Author.Name,
		Avatar:    req.Author.Avatar,
		CreatedAt: s.now(),
	}

	var out *Post
	err := s.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		var err error
		out, err = s.repo.Posts().CreateTx(ctx, tx, record)
		return err
	})
	if err != nil {
		return nil, txError(err, "failed to create post")
	}
	return out, nil
}

// List returns every post, newest first
func (s *PostService) List(ctx context.Context) ([]*Post, error) {
	posts, err := s.repo.Posts().List(ctx)
	if err != nil {
		return nil, errors.Wrap(err, errors.CategoryInternal, "failed to list posts")
	}
	return posts, nil
}

// Get returns one post. Malformed ids are reported as not found.
func (s *PostService) Get(ctx context.Context, postID string) (*Post, error) {
	id, err := parsePostID(postID)
	if err != nil {
		return nil, err
	}

	post, err := s.repo.Posts().GetByID(ctx, id)
	if err != nil {
		if isNotFound(err) {
			return nil, ErrPostNotFound
		}
		return nil, errors.Wrap(err, errors.CategoryInternal, "failed to load post")
	}
	return post, nil
}

// Delete removes a post owned by the caller
func (s *PostService) Delete(ctx context.Context, req DeletePostRequest) error {
	id, err := parsePostID(req.PostID)
	if err != nil {
		return err
	}

	err = s.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		post, err := s.loadTx(ctx, tx, id)
		if err != nil {
			return err
		}

		if post.UserID != req.UserID {
			return ErrNotOwner
		}

		if err := s.repo.Posts().DeleteTx(ctx, tx, id); err != nil {
			if isNotFound(err) {
				return ErrPostNotFound
			}
			return err
		}
		return nil
	})

	return txError(err, "failed to delete post")
}

// Like prepends the caller to the like list
func (s *PostService) Like(ctx context.Context, req LikeRequest) ([]Like, error) {
	post, err := s.mutate(ctx, req.PostID, "likes", func(p *Post) error {
		if p.LikedBy(req.UserID) {
			return ErrPostAlreadyLiked
		}
		p.Likes = slices.Insert(p.Likes, 0, Like{ID: s.newID(), User: req.UserID})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return post.Likes, nil
}

// Unlike removes the caller from the like list
func (s *PostService) Unlike(ctx context.Context, req LikeRequest) ([]Like, error) {
	post, err := s.mutate(ctx, req.PostID, "likes", func(p *Post) error {
		if !p.LikedBy(req.UserID) {
			return ErrPostNotLiked
		}
		p.Likes = slices.DeleteFunc(p.Likes, func(l Like) bool {
			return l.User == req.UserID
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return post.Likes, nil
}

// AddComment prepends a comment carrying the author's current name and avatar
func (s *PostService) AddComment(ctx context.Context, req AddCommentRequest) ([]Comment, error) {
	if req.Author == nil {
		return nil, ErrUnauthorized
	}

	post, err := s.mutate(ctx, req.PostID, "comments", func(p *Post) error {
		p.Comments = slices.Insert(p.Comments, 0, Comment{
			ID:     s.newID(),
			User:   req.Author.ID,
			Text:   req.Text,
			Name:   req.Author.Name,
			Avatar: req.Author.Avatar,
			Date:   s.now(),
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return post.Comments, nil
}

// RemoveComment deletes the targeted comment after checking the caller wrote it
func (s *PostService) RemoveComment(ctx context.Context, req RemoveCommentRequest) ([]Comment, error) {
	commentID, err := uuid.Parse(strings.TrimSpace(req.CommentID))
	if err != nil {
		if _, perr := parsePostID(req.PostID); perr != nil {
			return nil, perr
		}
		return nil, ErrCommentNotFound
	}

	post, err := s.mutate(ctx, req.PostID, "comments", func(p *Post) error {
		comment := p.FindComment(commentID)
		if comment == nil {
			return ErrCommentNotFound
		}
		if comment.User != req.UserID {
			return ErrNotOwner
		}
		p.Comments = slices.DeleteFunc(p.Comments, func(c Comment) bool {
			return c.ID == commentID
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return post.Comments, nil
}

func (s *PostService) loadTx(ctx context.Context, tx bun.IDB, id uuid.UUID) (*Post, error) {
	post, err := s.repo.Posts().GetByIDTx(ctx, tx, id)
	if err != nil {
		if isNotFound(err) {
			return nil, ErrPostNotFound
		}
		return nil, err
	}
	return post, nil
}

// mutate loads the post, applies fn and writes column back in one transaction
func (s *PostService) mutate(ctx context.Context, postID string, column string, fn func(*Post) error) (*Post, error) {
	id, err := parsePostID(postID)
	if err != nil {
		return nil, err
	}

	var out *Post
	err = s.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		post, err := s.loadTx(ctx, tx, id)
		if err != nil {
			return err
		}

		if err := fn(post); err != nil {
			return err
		}

		if err := s.repo.Posts().UpdateTx(ctx, tx, post, column); err != nil {
			return err
		}
		out = post
		return nil
	})

	if err != nil {
		return nil, txError(err, "failed to update post")
	}
	return out, nil
}

func parsePostID(raw string) (uuid.UUID, error) {
	id, err := uuid.Parse(strings.TrimSpace(raw))
	if err != nil {
		return uuid.Nil, ErrPostNotFound
	}
	return id, nil
}
