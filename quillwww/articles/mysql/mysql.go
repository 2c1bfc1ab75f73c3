// Copyright (c) 2026 The Quill developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package mysql

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/pkg/errors"
	"github.com/quillhq/quill/quillwww/articles"

	// MySQL driver.
	_ "github.com/go-sql-driver/mysql"
)

const (
	// Database options
	connTimeout     = 1 * time.Minute
	connMaxLifetime = 1 * time.Minute
	maxOpenConns    = 0 // 0 is unlimited
	maxIdleConns    = 100

	// Database table names.
	tableNameArticles = "articles"
	tableNameComments = "comments"
)

// tableArticles defines the articles table.
const tableArticles = `
  id           BIGINT AUTO_INCREMENT PRIMARY KEY,
  author_id    BIGINT NOT NULL,
  author_name  VARCHAR(50) NOT NULL,
  author_email VARCHAR(100) NOT NULL,
  title        VARCHAR(100) NOT NULL,
  content      VARCHAR(140) NOT NULL,
  published_at DATETIME(3) NOT NULL,
  edited       BOOLEAN NOT NULL DEFAULT FALSE,
  INDEX (published_at)
`

// tableComments defines the comments table.
const tableComments = `
  id           BIGINT AUTO_INCREMENT PRIMARY KEY,
  article_id   BIGINT NOT NULL,
  author_id    BIGINT NOT NULL,
  content      TEXT NOT NULL,
  published_at DATETIME(3) NOT NULL,
  FOREIGN KEY (article_id) REFERENCES articles(id)
`

var (
	_ articles.Database = (*mysql)(nil)
)

// mysql implements the articles.Database interface.
type mysql struct {
	articledb *sql.DB
}

func ctxWithTimeout() (context.Context, func()) {
	return context.WithTimeout(context.Background(), connTimeout)
}

// ArticleNew stores a new article and assigns it a unique id.
//
// ArticleNew satisfies the articles.Database interface.
func (m *mysql) ArticleNew(a articles.Article) (*articles.Article, error) {
	log.Tracef("ArticleNew: %v", a.Title)

	ctx, cancel := ctxWithTimeout()
	defer cancel()

	q := fmt.Sprintf(`INSERT INTO %v
    (author_id, author_name, author_email, title, content, published_at,
    edited) VALUES (?, ?, ?, ?, ?, ?, ?)`, tableNameArticles)
	r, err := m.articledb.ExecContext(ctx, q, a.AuthorID, a.AuthorName,
		a.AuthorEmail, a.Title, a.Content, a.PublishedDate.UTC(), a.Edited)
	if err != nil {
		return nil, errors.WithStack(err)
	}

	a.ID, err = r.LastInsertId()
	if err != nil {
		return nil, errors.WithStack(err)
	}

	return &a, nil
}

// ArticleGetByID returns the article for the given id.
//
// ArticleGetByID satisfies the articles.Database interface.
func (m *mysql) ArticleGetByID(id int64) (*articles.Article, error) {
	log.Tracef("ArticleGetByID: %v", id)

	ctx, cancel := ctxWithTimeout()
	defer cancel()

	q := fmt.Sprintf(`SELECT id, author_id, author_name, author_email,
    title, content, published_at, edited FROM %v WHERE id = ?`,
		tableNameArticles)

	var a articles.Article
	err := m.articledb.QueryRowContext(ctx, q, id).Scan(&a.ID, &a.AuthorID,
		&a.AuthorName, &a.AuthorEmail, &a.Title, &a.Content,
		&a.PublishedDate, &a.Edited)
	switch {
	case err == sql.ErrNoRows:
		return nil, articles.ErrArticleNotFound
	case err != nil:
		return nil, errors.WithStack(err)
	}

	return &a, nil
}

// ArticleUpdate overwrites an existing article record.
//
// ArticleUpdate satisfies the articles.Database interface.
func (m *mysql) ArticleUpdate(a articles.Article) error {
	log.Tracef("ArticleUpdate: %v", a.ID)

	ctx, cancel := ctxWithTimeout()
	defer cancel()

	q := fmt.Sprintf(`UPDATE %v SET title = ?, content = ?, edited = ?
    WHERE id = ?`, tableNameArticles)
	r, err := m.articledb.ExecContext(ctx, q, a.Title, a.Content, a.Edited,
		a.ID)
	if err != nil {
		return errors.WithStack(err)
	}
	rowsAffected, err := r.RowsAffected()
	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		return articles.ErrArticleNotFound
	}

	return nil
}

// ArticlesGetPage returns a page of articles published within the given
// inclusive date range, newest first.
//
// ArticlesGetPage satisfies the articles.Database interface.
func (m *mysql) ArticlesGetPage(start, end time.Time, page, pageSize int) ([]articles.Article, error) {
	log.Tracef("ArticlesGetPage: %v", page)

	ctx, cancel := ctxWithTimeout()
	defer cancel()

	if start.IsZero() {
		start = time.Unix(0, 0)
	}
	if end.IsZero() {
		// Effectively unbounded
		end = time.Now().Add(100 * 365 * 24 * time.Hour)
	}
	if page < 1 {
		page = 1
	}

	q := fmt.Sprintf(`SELECT id, author_id, author_name, author_email,
    title, content, published_at, edited FROM %v
    WHERE published_at >= ? AND published_at <= ?
    ORDER BY published_at DESC LIMIT ? OFFSET ?`, tableNameArticles)
	rows, err := m.articledb.QueryContext(ctx, q, start.UTC(), end.UTC(),
		pageSize, (page-1)*pageSize)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	defer rows.Close()

	out := make([]articles.Article, 0, pageSize)
	for rows.Next() {
		var a articles.Article
		err := rows.Scan(&a.ID, &a.AuthorID, &a.AuthorName, &a.AuthorEmail,
			&a.Title, &a.Content, &a.PublishedDate, &a.Edited)
		if err != nil {
			return nil, errors.WithStack(err)
		}
		out = append(out, a)
	}
	err = rows.Err()
	if err != nil {
		return nil, errors.WithStack(err)
	}

	return out, nil
}

// ArticlesCount returns the total number of articles.
//
// ArticlesCount satisfies the articles.Database interface.
func (m *mysql) ArticlesCount() (int, error) {
	log.Tracef("ArticlesCount")

	ctx, cancel := ctxWithTimeout()
	defer cancel()

	q := fmt.Sprintf("SELECT COUNT(*) FROM %v", tableNameArticles)

	var n int
	err := m.articledb.QueryRowContext(ctx, q).Scan(&n)
	if err != nil {
		return 0, errors.WithStack(err)
	}

	return n, nil
}

// CommentNew stores a new comment and assigns it a unique id.
//
// CommentNew satisfies the articles.Database interface.
func (m *mysql) CommentNew(c articles.Comment) (*articles.Comment, error) {
	log.Tracef("CommentNew: %v", c.ArticleID)

	ctx, cancel := ctxWithTimeout()
	defer cancel()

	// Verify the article exists so that a friendly error is returned
	// instead of a foreign key violation.
	var id int64
	q := fmt.Sprintf("SELECT id FROM %v WHERE id = ?", tableNameArticles)
	err := m.articledb.QueryRowContext(ctx, q, c.ArticleID).Scan(&id)
	switch {
	case err == sql.ErrNoRows:
		return nil, articles.ErrArticleNotFound
	case err != nil:
		return nil, errors.WithStack(err)
	}

	q = fmt.Sprintf(`INSERT INTO %v
    (article_id, author_id, content, published_at) VALUES (?, ?, ?, ?)`,
		tableNameComments)
	r, err := m.articledb.ExecContext(ctx, q, c.ArticleID, c.AuthorID,
		c.Content, c.PublishedDate.UTC())
	if err != nil {
		return nil, errors.WithStack(err)
	}

	c.ID, err = r.LastInsertId()
	if err != nil {
		return nil, errors.WithStack(err)
	}

	return &c, nil
}

// CommentsGetByArticle returns all comments for the given article, oldest
// first.
//
// CommentsGetByArticle satisfies the articles.Database interface.
func (m *mysql) CommentsGetByArticle(articleID int64) ([]articles.Comment, error) {
	log.Tracef("CommentsGetByArticle: %v", articleID)

	ctx, cancel := ctxWithTimeout()
	defer cancel()

	q := fmt.Sprintf(`SELECT id, article_id, author_id, content,
    published_at FROM %v WHERE article_id = ? ORDER BY published_at ASC`,
		tableNameComments)
	rows, err := m.articledb.QueryContext(ctx, q, articleID)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	defer rows.Close()

	comments := make([]articles.Comment, 0)
	for rows.Next() {
		var c articles.Comment
		err := rows.Scan(&c.ID, &c.ArticleID, &c.AuthorID, &c.Content,
			&c.PublishedDate)
		if err != nil {
			return nil, errors.WithStack(err)
		}
		comments = append(comments, c)
	}
	err = rows.Err()
	if err != nil {
		return nil, errors.WithStack(err)
	}

	return comments, nil
}

// Close shuts down the database connection.
//
// Close satisfies the articles.Database interface.
func (m *mysql) Close() error {
	return m.articledb.Close()
}

// createTables creates the articles and comments tables if they do not
// exist already.
func (m *mysql) createTables() error {
	ctx, cancel := ctxWithTimeout()
	defer cancel()

	for _, v := range []struct {
		name   string
		schema string
	}{
		{tableNameArticles, tableArticles},
		{tableNameComments, tableComments},
	} {
		q := fmt.Sprintf("CREATE TABLE IF NOT EXISTS %v (%v)",
			v.name, v.schema)
		_, err := m.articledb.ExecContext(ctx, q)
		if err != nil {
			return errors.WithStack(err)
		}

		log.Debugf("Created %v database table", v.name)
	}

	return nil
}

// New connects to the given mysql instance and returns a context that
// implements the articles.Database interface. Tables are created if they do
// not exist yet.
func New(host, username, password, dbname string) (*mysql, error) {
	log.Tracef("New: %v %v %v", host, username, dbname)

	h := fmt.Sprintf("%v:%v@tcp(%v)/%v?parseTime=true", username, password,
		host, dbname)
	db, err := sql.Open("mysql", h)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	db.SetConnMaxLifetime(connMaxLifetime)
	db.SetMaxOpenConns(maxOpenConns)
	db.SetMaxIdleConns(maxIdleConns)

	err = db.Ping()
	if err != nil {
		return nil, errors.WithStack(err)
	}

	m := mysql{
		articledb: db,
	}
	err = m.createTables()
	if err != nil {
		return nil, err
	}

	return &m, nil
}
