// Copyright (c) 2026 The Quill developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package mysql

import (
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/quillhq/quill/quillwww/articles"
)

var (
	articleColumns = []string{
		"id", "author_id", "author_name", "author_email", "title",
		"content", "published_at", "edited",
	}
	commentColumns = []string{
		"id", "article_id", "author_id", "content", "published_at",
	}

	testPublished = time.Date(2026, 1, 2, 15, 4, 5, 0, time.UTC)
)

func newTestDB(t *testing.T) (*mysql, sqlmock.Sqlmock, func()) {
	t.Helper()

	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("error %v while creating stub db conn", err)
	}

	return &mysql{articledb: db}, mock, func() {
		db.Close()
	}
}

func newTestArticle() articles.Article {
	return articles.Article{
		AuthorID:      1,
		AuthorName:    "alice",
		AuthorEmail:   "alice@example.com",
		Title:         "a title",
		Content:       "some content",
		PublishedDate: testPublished,
	}
}

func TestArticleNew(t *testing.T) {
	mdb, mock, close := newTestDB(t)
	defer close()

	a := newTestArticle()

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO articles")).
		WithArgs(a.AuthorID, a.AuthorName, a.AuthorEmail, a.Title,
			a.Content, a.PublishedDate.UTC(), a.Edited).
		WillReturnResult(sqlmock.NewResult(1, 1))

	created, err := mdb.ArticleNew(a)
	if err != nil {
		t.Errorf("ArticleNew unwanted error: %v", err)
	}
	if created.ID != 1 {
		t.Errorf("got article id %v, want 1", created.ID)
	}

	err = mock.ExpectationsWereMet()
	if err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestArticleGetByID(t *testing.T) {
	mdb, mock, close := newTestDB(t)
	defer close()

	a := newTestArticle()
	a.ID = 7

	sqlSelect := regexp.QuoteMeta("SELECT id, author_id, author_name, " +
		"author_email,\n    title, content, published_at, edited FROM " +
		"articles WHERE id = ?")

	rows := sqlmock.NewRows(articleColumns).
		AddRow(a.ID, a.AuthorID, a.AuthorName, a.AuthorEmail, a.Title,
			a.Content, a.PublishedDate, a.Edited)
	mock.ExpectQuery(sqlSelect).
		WithArgs(a.ID).
		WillReturnRows(rows)

	got, err := mdb.ArticleGetByID(a.ID)
	if err != nil {
		t.Errorf("ArticleGetByID unwanted error: %v", err)
	}
	if got.Title != a.Title || got.AuthorID != a.AuthorID {
		t.Errorf("got article %+v, want %+v", got, a)
	}

	// A missing article surfaces as ErrArticleNotFound.
	mock.ExpectQuery(sqlSelect).
		WithArgs(int64(9999)).
		WillReturnError(sql.ErrNoRows)

	_, err = mdb.ArticleGetByID(9999)
	if err != articles.ErrArticleNotFound {
		t.Errorf("got err %v, want %v", err, articles.ErrArticleNotFound)
	}

	err = mock.ExpectationsWereMet()
	if err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestArticleUpdate(t *testing.T) {
	mdb, mock, close := newTestDB(t)
	defer close()

	a := newTestArticle()
	a.ID = 7
	a.Title = "an edited title"
	a.Edited = true

	sqlUpdate := regexp.QuoteMeta("UPDATE articles SET title = ?, " +
		"content = ?, edited = ?\n    WHERE id = ?")

	mock.ExpectExec(sqlUpdate).
		WithArgs(a.Title, a.Content, a.Edited, a.ID).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := mdb.ArticleUpdate(a)
	if err != nil {
		t.Errorf("ArticleUpdate unwanted error: %v", err)
	}

	// No rows affected means the article does not exist.
	mock.ExpectExec(sqlUpdate).
		WithArgs(a.Title, a.Content, a.Edited, int64(9999)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	a.ID = 9999
	err = mdb.ArticleUpdate(a)
	if err != articles.ErrArticleNotFound {
		t.Errorf("got err %v, want %v", err, articles.ErrArticleNotFound)
	}

	err = mock.ExpectationsWereMet()
	if err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestArticlesGetPage(t *testing.T) {
	mdb, mock, close := newTestDB(t)
	defer close()

	a := newTestArticle()
	a.ID = 1

	rows := sqlmock.NewRows(articleColumns).
		AddRow(a.ID, a.AuthorID, a.AuthorName, a.AuthorEmail, a.Title,
			a.Content, a.PublishedDate, a.Edited)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, author_id, author_name,"+
		" author_email,\n    title, content, published_at, edited FROM"+
		" articles")).
		WillReturnRows(rows)

	page, err := mdb.ArticlesGetPage(time.Time{}, time.Time{}, 1, 50)
	if err != nil {
		t.Errorf("ArticlesGetPage unwanted error: %v", err)
	}
	if len(page) != 1 {
		t.Errorf("got %v articles, want 1", len(page))
	}

	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM articles")).
		WillReturnRows(sqlmock.NewRows([]string{"COUNT(*)"}).AddRow(1))

	count, err := mdb.ArticlesCount()
	if err != nil {
		t.Errorf("ArticlesCount unwanted error: %v", err)
	}
	if count != 1 {
		t.Errorf("got count %v, want 1", count)
	}

	err = mock.ExpectationsWereMet()
	if err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestCommentNew(t *testing.T) {
	mdb, mock, close := newTestDB(t)
	defer close()

	c := articles.Comment{
		ArticleID:     7,
		AuthorID:      1,
		Content:       "hello",
		PublishedDate: testPublished,
	}

	sqlSelect := regexp.QuoteMeta("SELECT id FROM articles WHERE id = ?")

	// The article existence check runs before the insert.
	mock.ExpectQuery(sqlSelect).
		WithArgs(c.ArticleID).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(c.ArticleID))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO comments")).
		WithArgs(c.ArticleID, c.AuthorID, c.Content,
			c.PublishedDate.UTC()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	created, err := mdb.CommentNew(c)
	if err != nil {
		t.Errorf("CommentNew unwanted error: %v", err)
	}
	if created.ID != 1 {
		t.Errorf("got comment id %v, want 1", created.ID)
	}

	// A comment on a missing article must be rejected.
	mock.ExpectQuery(sqlSelect).
		WithArgs(int64(9999)).
		WillReturnError(sql.ErrNoRows)

	c.ArticleID = 9999
	_, err = mdb.CommentNew(c)
	if err != articles.ErrArticleNotFound {
		t.Errorf("got err %v, want %v", err, articles.ErrArticleNotFound)
	}

	err = mock.ExpectationsWereMet()
	if err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestCommentsGetByArticle(t *testing.T) {
	mdb, mock, close := newTestDB(t)
	defer close()

	sqlSelect := regexp.QuoteMeta("SELECT id, article_id, author_id, " +
		"content,\n    published_at FROM comments WHERE article_id = ? " +
		"ORDER BY published_at ASC")

	rows := sqlmock.NewRows(commentColumns).
		AddRow(1, 7, 1, "first", testPublished).
		AddRow(2, 7, 2, "second", testPublished.Add(time.Second))
	mock.ExpectQuery(sqlSelect).
		WithArgs(int64(7)).
		WillReturnRows(rows)

	comments, err := mdb.CommentsGetByArticle(7)
	if err != nil {
		t.Errorf("CommentsGetByArticle unwanted error: %v", err)
	}
	if len(comments) != 2 {
		t.Errorf("got %v comments, want 2", len(comments))
	}
	if comments[0].Content != "first" {
		t.Errorf("got %v, want first", comments[0].Content)
	}

	err = mock.ExpectationsWereMet()
	if err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}
