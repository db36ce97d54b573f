package entity

import "time"

// Category groups posts.
type Category struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	Description string     `json:"description,omitempty"`
	Order       int        `json:"order"`
	CreatedAt   time.Time  `json:"createdAt"`
	DeletedAt   *time.Time `json:"deletedAt,omitempty"`
}

// CategoryPatch lists the category fields to overwrite on update.
type CategoryPatch struct {
	Name        *string
	Description *string
	Order       *int
}

// Post is a thread opener inside a category.
type Post struct {
	ID          string     `json:"id"`
	CategoryID  string     `json:"categoryId"`
	AuthorID    string     `json:"authorId"`
	AuthorEmail string     `json:"authorEmail,omitempty"`
	Title       string     `json:"title"`
	Body        string     `json:"body"`
	Hidden      bool       `json:"hidden"`
	Locked      bool       `json:"locked"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
	DeletedAt   *time.Time `json:"deletedAt,omitempty"`
}

// PostPatch lists the post fields to overwrite on update.
type PostPatch struct {
	CategoryID *string
	Title      *string
	Body       *string
	Hidden     *bool
	Locked     *bool
}

// PostFilter narrows ListPosts. Zero values match everything except hidden posts.
type PostFilter struct {
	CategoryID    string
	AuthorID      string
	IncludeHidden bool
}

// Reply answers a post.
type Reply struct {
	ID        string     `json:"id"`
	PostID    string     `json:"postId"`
	AuthorID  string     `json:"authorId"`
	Body      string     `json:"body"`
	CreatedAt time.Time  `json:"createdAt"`
	UpdatedAt time.Time  `json:"updatedAt"`
	DeletedAt *time.Time `json:"deletedAt,omitempty"`
}

// ReplyPatch lists the reply fields to overwrite on update.
type ReplyPatch struct {
	Body *string
}
