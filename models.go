package devconnect

import (
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// User is the member account model
type User struct {
	bun.BaseModel `bun:"table:users,alias:usr"`
	ID            uuid.UUID `bun:"id,pk,type:uuid" json:"_id"`
	Name          string    `bun:"name,notnull" json:"name"`
	Email         string    `bun:"email,notnull,unique" json:"email"`
	PasswordHash  string    `bun:"password_hash,notnull" json:"-"`
	Avatar        string    `bun:"avatar" json:"avatar"`
	CreatedAt     time.Time `bun:"created_at,notnull" json:"date"`
}

// ProfileOwner is the public slice of a User embedded in profiles
type ProfileOwner struct {
	bun.BaseModel `bun:"table:users,alias:owner"`
	ID            uuid.UUID `bun:"id,pk,type:uuid" json:"_id"`
	Name          string    `bun:"name" json:"name"`
	Avatar        string    `bun:"avatar" json:"avatar"`
}

// SocialLinks holds the optional social network URLs of a profile
type SocialLinks struct {
	YouTube   string `json:"youtube,omitempty"`
	Twitter   string `json:"twitter,omitempty"`
	Facebook  string `json:"facebook,omitempty"`
	LinkedIn  string `json:"linkedin,omitempty"`
	Instagram string `json:"instagram,omitempty"`
}

// Merge copies every non empty link from other
func (s SocialLinks) Merge(other SocialLinks) SocialLinks {
	if other.YouTube != "" {
		s.YouTube = other.YouTube
	}
	if other.Twitter != "" {
		s.Twitter = other.Twitter
	}
	if other.Facebook != "" {
		s.Facebook = other.Facebook
	}
	if other.LinkedIn != "" {
		s.LinkedIn = other.LinkedIn
	}
	if other.Instagram != "" {
		s.Instagram = other.Instagram
	}
	return s
}

type Experience struct {
	ID          uuid.UUID  `json:"_id"`
	Title       string     `json:"title"`
	Company     string     `json:"company"`
	Location    string     `json:"location,omitempty"`
	From        time.Time  `json:"from"`
	To          *time.Time `json:"to,omitempty"`
	Current     bool       `json:"current"`
	Description string     `json:"description,omitempty"`
}

type Education struct {
	ID           uuid.UUID  `json:"_id"`
	School       string     `json:"school"`
	Degree       string     `json:"degree"`
	FieldOfStudy string     `json:"fieldofstudy"`
	From         time.Time  `json:"from"`
	To           *time.Time `json:"to,omitempty"`
	Current      bool       `json:"current"`
	Description  string     `json:"description,omitempty"`
}

// Profile is the developer profile, at most one per user.
// Experience and education are stored inline, most recent first.
type Profile struct {
	bun.BaseModel  `bun:"table:profiles,alias:prf"`
	ID             uuid.UUID     `bun:"id,pk,type:uuid" json:"_id"`
	UserID         uuid.UUID     `bun:"user_id,notnull,unique,type:uuid" json:"-"`
	User           *ProfileOwner `bun:"rel:belongs-to,join:user_id=id" json:"user"`
	Company        string        `bun:"company" json:"company,omitempty"`
	Website        string        `bun:"website" json:"website,omitempty"`
	Location       string        `bun:"location" json:"location,omitempty"`
	Bio            string        `bun:"bio" json:"bio,omitempty"`
	Status         string        `bun:"status,notnull" json:"status"`
	GithubUsername string        `bun:"githubusername" json:"githubusername,omitempty"`
	Skills         []string      `bun:"skills" json:"skills"`
	Social         SocialLinks   `bun:"social" json:"social"`
	Experience     []Experience  `bun:"experience" json:"experience"`
	Education      []Education   `bun:"education" json:"education"`
	CreatedAt      time.Time     `bun:"created_at,notnull" json:"date"`
	UpdatedAt      time.Time     `bun:"updated_at,notnull" json:"-"`
}

func (p *Profile) normalize() {
	if p.Skills == nil {
		p.Skills = []string{}
	}
	if p.Experience == nil {
		p.Experience = []Experience{}
	}
	if p.Education == nil {
		p.Education = []Education{}
	}
}

// Like records a single user's like on a post
type Like struct {
	ID   uuid.UUID `json:"_id"`
	User uuid.UUID `json:"user"`
}

// Comment carries the author name and avatar as of when it was written
type Comment struct {
	ID     uuid.UUID `json:"_id"`
	User   uuid.UUID `json:"user"`
	Text   string    `json:"text"`
	Name   string    `json:"name"`
	Avatar string    `json:"avatar"`
	Date   time.Time `json:"date"`
}

// Post is a member post. Name and avatar are frozen at creation.
type Post struct {
	bun.BaseModel `bun:"table:posts,alias:post"`
	ID            uuid.UUID `bun:"id,pk,type:uuid" json:"_id"`
	UserID        uuid.UUID `bun:"user_id,notnull,type:uuid" json:"user"`
	Text          string    `bun:"text,notnull" json:"text"`
	Name          string    `bun:"name" json:"name"`
	Avatar        string    `bun:"avatar" json:"avatar"`
	Likes         []Like    `bun:"likes" json:"likes"`
	Comments      []Comment `bun:"comments" json:"comments"`
	CreatedAt     time.Time `bun:"created_at,notnull" json:"date"`
}

func (p *Post) normalize() {
	if p.Likes == nil {
		p.Likes = []Like{}
	}
	if p.Comments == nil {
		p.Comments = []Comment{}
	}
}

// LikedBy reports whether userID already liked the post
func (p *Post) LikedBy(userID uuid.UUID) bool {
	return slices.ContainsFunc(p.Likes, func(l Like) bool {
		return l.User == userID
	})
}

// FindComment returns the comment with the given id, or nil
func (p *Post) FindComment(id uuid.UUID) *Comment {
	idx := slices.IndexFunc(p.Comments, func(c Comment) bool {
		return c.ID == id
	})
	if idx < 0 {
		return nil
	}
	return &p.Comments[idx]
}
