// Copyright (c) 2026 The Quill developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package localdb

import (
	"encoding/binary"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/quillhq/quill/quillwww/articles"
	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/util"
)

const (
	// articlePrefix is the prefix for all article record keys. The
	// remainder of the key is the article id.
	articlePrefix = "article:"

	// commentPrefix is the prefix for all comment record keys. The
	// remainder of the key is "<articleid>:<commentid>" so that the
	// comments of an article can be iterated with a prefix scan.
	commentPrefix = "comment:"

	// Auto increment id counter keys.
	lastArticleIDKey = "lastarticleid"
	lastCommentIDKey = "lastcommentid"
)

var (
	_ articles.Database = (*localdb)(nil)
)

// localdb implements the articles.Database interface with a leveldb
// backend. Listing operations load the matching records into memory; this
// backend is intended for small deployments and tests.
type localdb struct {
	sync.Mutex

	shutdown  bool        // Backend is shutdown
	root      string      // Database root
	articledb *leveldb.DB // Database context
}

func articleKey(id int64) []byte {
	return []byte(articlePrefix + strconv.FormatInt(id, 10))
}

func commentKey(articleID, commentID int64) []byte {
	return []byte(commentPrefix + strconv.FormatInt(articleID, 10) + ":" +
		strconv.FormatInt(commentID, 10))
}

// nextID increments and returns the counter stored at the given key. The
// caller must hold the lock.
func (l *localdb) nextID(key string) (int64, error) {
	var id int64
	b, err := l.articledb.Get([]byte(key), nil)
	switch err {
	case nil:
		id = int64(binary.LittleEndian.Uint64(b))
	case leveldb.ErrNotFound:
		id = 0
	default:
		return 0, err
	}
	id++

	b = make([]byte, 8)
	binary.LittleEndian.PutUint64(b, uint64(id))
	err = l.articledb.Put([]byte(key), b, nil)
	if err != nil {
		return 0, err
	}

	return id, nil
}

// ArticleNew stores a new article and assigns it a unique id.
//
// ArticleNew satisfies the articles.Database interface.
func (l *localdb) ArticleNew(a articles.Article) (*articles.Article, error) {
	l.Lock()
	defer l.Unlock()

	if l.shutdown {
		return nil, articles.ErrShutdown
	}

	log.Debugf("ArticleNew: %v", a.Title)

	var err error
	a.ID, err = l.nextID(lastArticleIDKey)
	if err != nil {
		return nil, err
	}

	payload, err := articles.EncodeArticle(a)
	if err != nil {
		return nil, err
	}
	err = l.articledb.Put(articleKey(a.ID), payload, nil)
	if err != nil {
		return nil, err
	}

	return &a, nil
}

// ArticleGetByID returns the article for the given id.
//
// ArticleGetByID satisfies the articles.Database interface.
func (l *localdb) ArticleGetByID(id int64) (*articles.Article, error) {
	l.Lock()
	defer l.Unlock()

	if l.shutdown {
		return nil, articles.ErrShutdown
	}

	payload, err := l.articledb.Get(articleKey(id), nil)
	if err == leveldb.ErrNotFound {
		return nil, articles.ErrArticleNotFound
	} else if err != nil {
		return nil, err
	}

	return articles.DecodeArticle(payload)
}

// ArticleUpdate overwrites an existing article record.
//
// ArticleUpdate satisfies the articles.Database interface.
func (l *localdb) ArticleUpdate(a articles.Article) error {
	l.Lock()
	defer l.Unlock()

	if l.shutdown {
		return articles.ErrShutdown
	}

	exists, err := l.articledb.Has(articleKey(a.ID), nil)
	if err != nil {
		return err
	}
	if !exists {
		return articles.ErrArticleNotFound
	}

	payload, err := articles.EncodeArticle(a)
	if err != nil {
		return err
	}
	return l.articledb.Put(articleKey(a.ID), payload, nil)
}

// allArticles returns all article records. The caller must hold the lock.
func (l *localdb) allArticles() ([]articles.Article, error) {
	var all []articles.Article
	iter := l.articledb.NewIterator(util.BytesPrefix([]byte(articlePrefix)), nil)
	for iter.Next() {
		a, err := articles.DecodeArticle(iter.Value())
		if err != nil {
			iter.Release()
			return nil, err
		}
		all = append(all, *a)
	}
	iter.Release()
	return all, iter.Error()
}

// ArticlesGetPage returns a page of articles published within the given
// inclusive date range, newest first.
//
// ArticlesGetPage satisfies the articles.Database interface.
func (l *localdb) ArticlesGetPage(start, end time.Time, page, pageSize int) ([]articles.Article, error) {
	l.Lock()
	defer l.Unlock()

	if l.shutdown {
		return nil, articles.ErrShutdown
	}

	all, err := l.allArticles()
	if err != nil {
		return nil, err
	}

	filtered := make([]articles.Article, 0, len(all))
	for _, a := range all {
		if !start.IsZero() && a.PublishedDate.Before(start) {
			continue
		}
		if !end.IsZero() && a.PublishedDate.After(end) {
			continue
		}
		filtered = append(filtered, a)
	}
	sort.Slice(filtered, func(i, j int) bool {
		return filtered[i].PublishedDate.After(filtered[j].PublishedDate)
	})

	if page < 1 {
		page = 1
	}
	offset := (page - 1) * pageSize
	if offset >= len(filtered) {
		return []articles.Article{}, nil
	}
	last := offset + pageSize
	if last > len(filtered) {
		last = len(filtered)
	}

	return filtered[offset:last], nil
}

// ArticlesCount returns the total number of articles.
//
// ArticlesCount satisfies the articles.Database interface.
func (l *localdb) ArticlesCount() (int, error) {
	l.Lock()
	defer l.Unlock()

	if l.shutdown {
		return 0, articles.ErrShutdown
	}

	var n int
	iter := l.articledb.NewIterator(util.BytesPrefix([]byte(articlePrefix)), nil)
	for iter.Next() {
		n++
	}
	iter.Release()
	return n, iter.Error()
}

// CommentNew stores a new comment and assigns it a unique id.
//
// CommentNew satisfies the articles.Database interface.
func (l *localdb) CommentNew(c articles.Comment) (*articles.Comment, error) {
	l.Lock()
	defer l.Unlock()

	if l.shutdown {
		return nil, articles.ErrShutdown
	}

	exists, err := l.articledb.Has(articleKey(c.ArticleID), nil)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, articles.ErrArticleNotFound
	}

	c.ID, err = l.nextID(lastCommentIDKey)
	if err != nil {
		return nil, err
	}

	payload, err := articles.EncodeComment(c)
	if err != nil {
		return nil, err
	}
	err = l.articledb.Put(commentKey(c.ArticleID, c.ID), payload, nil)
	if err != nil {
		return nil, err
	}

	return &c, nil
}

// CommentsGetByArticle returns all comments for the given article, oldest
// first.
//
// CommentsGetByArticle satisfies the articles.Database interface.
func (l *localdb) CommentsGetByArticle(articleID int64) ([]articles.Comment, error) {
	l.Lock()
	defer l.Unlock()

	if l.shutdown {
		return nil, articles.ErrShutdown
	}

	prefix := commentPrefix + strconv.FormatInt(articleID, 10) + ":"
	comments := make([]articles.Comment, 0)
	iter := l.articledb.NewIterator(util.BytesPrefix([]byte(prefix)), nil)
	for iter.Next() {
		c, err := articles.DecodeComment(iter.Value())
		if err != nil {
			iter.Release()
			return nil, err
		}
		comments = append(comments, *c)
	}
	iter.Release()
	err := iter.Error()
	if err != nil {
		return nil, err
	}

	sort.Slice(comments, func(i, j int) bool {
		return comments[i].PublishedDate.Before(comments[j].PublishedDate)
	})

	return comments, nil
}

// Close shuts down the database.
//
// Close satisfies the articles.Database interface.
func (l *localdb) Close() error {
	l.Lock()
	defer l.Unlock()

	l.shutdown = true
	return l.articledb.Close()
}

// New creates a new localdb instance rooted at the provided path.
func New(root string) (*localdb, error) {
	log.Tracef("New: %v", root)

	db, err := leveldb.OpenFile(root, nil)
	if err != nil {
		return nil, err
	}

	return &localdb{
		root:      root,
		articledb: db,
	}, nil
}
