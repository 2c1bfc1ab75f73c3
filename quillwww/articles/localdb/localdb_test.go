// Copyright (c) 2026 The Quill developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package localdb

import (
	"fmt"
	"testing"
	"time"

	"github.com/quillhq/quill/quillwww/articles"
)

func newTestDB(t *testing.T) *localdb {
	t.Helper()

	db, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() {
		db.Close()
	})

	return db
}

func newTestArticle(published time.Time) articles.Article {
	return articles.Article{
		AuthorID:      1,
		AuthorName:    "alice",
		AuthorEmail:   "alice@example.com",
		Title:         "a title",
		Content:       "some content",
		PublishedDate: published,
	}
}

func TestArticleNewGet(t *testing.T) {
	db := newTestDB(t)

	now := time.Date(2026, 1, 2, 15, 4, 5, 0, time.UTC)
	created, err := db.ArticleNew(newTestArticle(now))
	if err != nil {
		t.Fatalf("ArticleNew: %v", err)
	}
	if created.ID == 0 {
		t.Fatalf("created article was not assigned an id")
	}

	got, err := db.ArticleGetByID(created.ID)
	if err != nil {
		t.Fatalf("ArticleGetByID: %v", err)
	}
	if got.Title != created.Title || got.AuthorID != created.AuthorID {
		t.Fatalf("got article %+v, want %+v", got, created)
	}
	if !got.PublishedDate.Equal(now) {
		t.Fatalf("published date did not round trip: %v", got.PublishedDate)
	}

	_, err = db.ArticleGetByID(9999)
	if err != articles.ErrArticleNotFound {
		t.Fatalf("got err %v, want %v", err, articles.ErrArticleNotFound)
	}
}

func TestArticleUpdate(t *testing.T) {
	db := newTestDB(t)

	now := time.Date(2026, 1, 2, 15, 4, 5, 0, time.UTC)
	created, err := db.ArticleNew(newTestArticle(now))
	if err != nil {
		t.Fatalf("ArticleNew: %v", err)
	}

	created.Title = "an edited title"
	created.Content = "edited content"
	created.Edited = true
	err = db.ArticleUpdate(*created)
	if err != nil {
		t.Fatalf("ArticleUpdate: %v", err)
	}

	got, err := db.ArticleGetByID(created.ID)
	if err != nil {
		t.Fatalf("ArticleGetByID: %v", err)
	}
	if got.Title != created.Title || !got.Edited {
		t.Fatalf("update did not take: %+v", got)
	}

	// Updating a missing article must fail.
	missing := newTestArticle(now)
	missing.ID = 9999
	err = db.ArticleUpdate(missing)
	if err != articles.ErrArticleNotFound {
		t.Fatalf("got err %v, want %v", err, articles.ErrArticleNotFound)
	}
}

func TestArticlesGetPage(t *testing.T) {
	db := newTestDB(t)

	// Publish articles a minute apart.
	base := time.Date(2026, 1, 2, 15, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		a := newTestArticle(base.Add(time.Duration(i) * time.Minute))
		a.Title = fmt.Sprintf("article %v", i)
		if _, err := db.ArticleNew(a); err != nil {
			t.Fatalf("ArticleNew: %v", err)
		}
	}

	// Unbounded range, newest first.
	page, err := db.ArticlesGetPage(time.Time{}, time.Time{}, 1, 50)
	if err != nil {
		t.Fatalf("ArticlesGetPage: %v", err)
	}
	if len(page) != 5 {
		t.Fatalf("got %v articles, want 5", len(page))
	}
	for i := 1; i < len(page); i++ {
		if page[i].PublishedDate.After(page[i-1].PublishedDate) {
			t.Fatalf("articles are not newest first")
		}
	}

	// Date range is inclusive on both sides.
	page, err = db.ArticlesGetPage(base.Add(time.Minute),
		base.Add(3*time.Minute), 1, 50)
	if err != nil {
		t.Fatalf("ArticlesGetPage: %v", err)
	}
	if len(page) != 3 {
		t.Fatalf("got %v articles in range, want 3", len(page))
	}

	// Pagination.
	page, err = db.ArticlesGetPage(time.Time{}, time.Time{}, 2, 2)
	if err != nil {
		t.Fatalf("ArticlesGetPage: %v", err)
	}
	if len(page) != 2 {
		t.Fatalf("got %v articles on page 2, want 2", len(page))
	}
	if page[0].Title != "article 2" {
		t.Fatalf("got %v, want article 2", page[0].Title)
	}

	// A page past the end is empty, not an error.
	page, err = db.ArticlesGetPage(time.Time{}, time.Time{}, 10, 50)
	if err != nil {
		t.Fatalf("ArticlesGetPage: %v", err)
	}
	if len(page) != 0 {
		t.Fatalf("got %v articles past the end, want 0", len(page))
	}

	count, err := db.ArticlesCount()
	if err != nil {
		t.Fatalf("ArticlesCount: %v", err)
	}
	if count != 5 {
		t.Fatalf("got count %v, want 5", count)
	}
}

func TestComments(t *testing.T) {
	db := newTestDB(t)

	now := time.Date(2026, 1, 2, 15, 4, 5, 0, time.UTC)
	a, err := db.ArticleNew(newTestArticle(now))
	if err != nil {
		t.Fatalf("ArticleNew: %v", err)
	}

	// Comments on a missing article must be rejected.
	_, err = db.CommentNew(articles.Comment{
		ArticleID: 9999,
		AuthorID:  1,
		Content:   "hello",
	})
	if err != articles.ErrArticleNotFound {
		t.Fatalf("got err %v, want %v", err, articles.ErrArticleNotFound)
	}

	for i := 0; i < 3; i++ {
		_, err := db.CommentNew(articles.Comment{
			ArticleID:     a.ID,
			AuthorID:      int64(i),
			Content:       fmt.Sprintf("comment %v", i),
			PublishedDate: now.Add(time.Duration(i) * time.Second),
		})
		if err != nil {
			t.Fatalf("CommentNew: %v", err)
		}
	}

	comments, err := db.CommentsGetByArticle(a.ID)
	if err != nil {
		t.Fatalf("CommentsGetByArticle: %v", err)
	}
	if len(comments) != 3 {
		t.Fatalf("got %v comments, want 3", len(comments))
	}
	for i, c := range comments {
		if c.Content != fmt.Sprintf("comment %v", i) {
			t.Fatalf("comments are not oldest first: %+v", comments)
		}
	}

	// An article with no comments returns an empty list.
	a2, err := db.ArticleNew(newTestArticle(now))
	if err != nil {
		t.Fatalf("ArticleNew: %v", err)
	}
	comments, err = db.CommentsGetByArticle(a2.ID)
	if err != nil {
		t.Fatalf("CommentsGetByArticle: %v", err)
	}
	if len(comments) != 0 {
		t.Fatalf("got %v comments, want 0", len(comments))
	}
}
