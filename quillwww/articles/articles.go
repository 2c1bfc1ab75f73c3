// Copyright (c) 2026 The Quill developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package articles

import (
	"encoding/json"
	"errors"
	"time"
)

var (
	// ErrArticleNotFound indicates that an article was not found in
	// the database.
	ErrArticleNotFound = errors.New("article not found")

	// ErrShutdown is emitted when the database is shutting down.
	ErrShutdown = errors.New("database is shutting down")
)

// Article record. The author fields are stamped from the logged in user at
// publication time and never change afterwards.
type Article struct {
	ID            int64     `json:"id"`
	AuthorID      int64     `json:"authorid"`
	AuthorName    string    `json:"authorname"`    // 1-50 characters
	AuthorEmail   string    `json:"authoremail"`   // Max 100 characters
	Title         string    `json:"title"`         // 1-100 characters
	Content       string    `json:"content"`       // 1-140 characters
	PublishedDate time.Time `json:"publisheddate"` // Time of publication
	Edited        bool      `json:"edited"`        // Article has been edited
}

// Comment record.
type Comment struct {
	ID            int64     `json:"id"`
	ArticleID     int64     `json:"articleid"`
	AuthorID      int64     `json:"authorid"`
	Content       string    `json:"content"`
	PublishedDate time.Time `json:"publisheddate"`
}

// Database describes the interface used for all article and comment
// database commands.
type Database interface {
	// ArticleNew stores a new article and assigns it a unique id.
	ArticleNew(Article) (*Article, error)

	// ArticleGetByID returns the article for the given id. A
	// ErrArticleNotFound error is returned if no article exists for
	// the id.
	ArticleGetByID(int64) (*Article, error)

	// ArticleUpdate overwrites an existing article record.
	ArticleUpdate(Article) error

	// ArticlesGetPage returns a page of articles published within the
	// given inclusive date range, newest first. A zero start or end
	// time means that side of the range is unbounded. Pages are one
	// indexed.
	ArticlesGetPage(start, end time.Time, page, pageSize int) ([]Article, error)

	// ArticlesCount returns the total number of articles.
	ArticlesCount() (int, error)

	// CommentNew stores a new comment and assigns it a unique id.
	CommentNew(Comment) (*Comment, error)

	// CommentsGetByArticle returns all comments for the given article,
	// oldest first.
	CommentsGetByArticle(articleID int64) ([]Comment, error)

	// Close performs cleanup of the backend.
	Close() error
}

// EncodeArticle encodes an Article into a JSON byte slice.
func EncodeArticle(a Article) ([]byte, error) {
	return json.Marshal(a)
}

// DecodeArticle decodes a JSON byte slice into an Article.
func DecodeArticle(payload []byte) (*Article, error) {
	var a Article
	err := json.Unmarshal(payload, &a)
	if err != nil {
		return nil, err
	}

	return &a, nil
}

// EncodeComment encodes a Comment into a JSON byte slice.
func EncodeComment(c Comment) ([]byte, error) {
	return json.Marshal(c)
}

// DecodeComment decodes a JSON byte slice into a Comment.
func DecodeComment(payload []byte) (*Comment, error) {
	var c Comment
	err := json.Unmarshal(payload, &c)
	if err != nil {
		return nil, err
	}

	return &c, nil
}
