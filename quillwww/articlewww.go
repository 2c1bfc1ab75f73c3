// Copyright (c) 2026 The Quill developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"
	v1 "github.com/quillhq/quill/quillwww/api/v1"
	"github.com/quillhq/quill/quillwww/articles"
	"github.com/quillhq/quill/util"
)

// articleRoute returns the route of the details page for the given article.
func articleRoute(articleID int64) string {
	return fmt.Sprintf("%v/articles/%v", v1.QuillWWWAPIRoute, articleID)
}

// convertArticle converts an article record into its API representation.
func convertArticle(a articles.Article) v1.Article {
	return v1.Article{
		ID:            a.ID,
		AuthorName:    a.AuthorName,
		AuthorEmail:   a.AuthorEmail,
		Title:         a.Title,
		Content:       a.Content,
		PublishedDate: a.PublishedDate.Unix(),
		Edited:        a.Edited,
	}
}

// convertComment converts a comment record into its API representation.
func convertComment(c articles.Comment) v1.Comment {
	return v1.Comment{
		ID:            c.ID,
		ArticleID:     c.ArticleID,
		AuthorID:      c.AuthorID,
		Content:       c.Content,
		PublishedDate: c.PublishedDate.Unix(),
	}
}

// validateArticle verifies that an article title and content conform to
// policy.
func validateArticle(title, content string) error {
	if title == "" || len(title) > v1.PolicyMaxArticleTitleLength {
		return v1.UserError{
			ErrorCode: v1.ErrorStatusMalformedTitle,
			ErrorContext: []string{fmt.Sprintf("titles must be between 1 "+
				"and %v characters", v1.PolicyMaxArticleTitleLength)},
		}
	}
	if content == "" || len(content) > v1.PolicyMaxArticleContentLength {
		return v1.UserError{
			ErrorCode: v1.ErrorStatusMalformedContent,
			ErrorContext: []string{fmt.Sprintf("content must be between 1 "+
				"and %v characters", v1.PolicyMaxArticleContentLength)},
		}
	}
	return nil
}

// canEditArticle returns whether the given user may edit the given article
// at time now. Only the original author may edit an article and only within
// the edit window following publication. Time spent logged out still counts
// against the window.
func canEditArticle(userID int64, a *articles.Article, now time.Time) bool {
	if a.AuthorID != userID {
		return false
	}
	deadline := a.PublishedDate.Add(v1.PolicyArticleEditWindowSeconds *
		time.Second)
	return !now.After(deadline)
}

// handleArticles returns a page of articles, newest first. The page and an
// optional publication date range are passed as query params.
func (p *quillwww) handleArticles(w http.ResponseWriter, r *http.Request) {
	log.Tracef("handleArticles")

	var ga v1.GetArticles
	err := util.ParseGetParams(r, &ga)
	if err != nil {
		RespondWithError(w, r, 0, "handleArticles: ParseGetParams",
			v1.UserError{
				ErrorCode: v1.ErrorStatusInvalidInput,
			})
		return
	}
	if ga.Page < 1 {
		ga.Page = 1
	}

	// A zero timestamp leaves that side of the date range unbounded.
	var start, end time.Time
	if ga.Start != 0 {
		start = time.Unix(ga.Start, 0)
	}
	if ga.End != 0 {
		end = time.Unix(ga.End, 0)
	}

	page, err := p.articledb.ArticlesGetPage(start, end, ga.Page,
		v1.ArticleListPageSize)
	if err != nil {
		RespondWithError(w, r, 0, "handleArticles: ArticlesGetPage %v", err)
		return
	}
	count, err := p.articledb.ArticlesCount()
	if err != nil {
		RespondWithError(w, r, 0, "handleArticles: ArticlesCount %v", err)
		return
	}

	reply := v1.GetArticlesReply{
		Articles: make([]v1.Article, 0, len(page)),
		Page:     ga.Page,
		TotalPages: (count + v1.ArticleListPageSize - 1) /
			v1.ArticleListPageSize,
	}
	for _, a := range page {
		reply.Articles = append(reply.Articles, convertArticle(a))
	}

	util.RespondWithJSON(w, http.StatusOK, reply)
}

// handleArticleDetails returns a single article and all of its comments.
func (p *quillwww) handleArticleDetails(w http.ResponseWriter, r *http.Request) {
	log.Tracef("handleArticleDetails")

	pathParams := mux.Vars(r)
	articleID, err := strconv.ParseInt(pathParams["articleid"], 10, 64)
	if err != nil {
		RespondWithError(w, r, 0, "handleArticleDetails: ParseInt",
			v1.UserError{
				ErrorCode: v1.ErrorStatusInvalidInput,
			})
		return
	}

	a, err := p.articledb.ArticleGetByID(articleID)
	if err != nil {
		if err == articles.ErrArticleNotFound {
			RespondWithError(w, r, http.StatusNotFound,
				"handleArticleDetails: ArticleGetByID %v", v1.UserError{
					ErrorCode: v1.ErrorStatusArticleNotFound,
				})
			return
		}
		RespondWithError(w, r, 0,
			"handleArticleDetails: ArticleGetByID %v", err)
		return
	}

	comments, err := p.articledb.CommentsGetByArticle(articleID)
	if err != nil {
		RespondWithError(w, r, 0,
			"handleArticleDetails: CommentsGetByArticle %v", err)
		return
	}

	reply := v1.ArticleDetailsReply{
		Article:  convertArticle(*a),
		Comments: make([]v1.Comment, 0, len(comments)),
	}
	for _, c := range comments {
		reply.Comments = append(reply.Comments, convertComment(c))
	}

	util.RespondWithJSON(w, http.StatusOK, reply)
}

// handleNewArticle publishes a new article authored by the logged in user.
// The author name and email are stamped onto the article at publication
// time.
func (p *quillwww) handleNewArticle(w http.ResponseWriter, r *http.Request) {
	log.Tracef("handleNewArticle")

	var na v1.NewArticle
	decoder := json.NewDecoder(r.Body)
	if err := decoder.Decode(&na); err != nil {
		RespondWithError(w, r, 0, "handleNewArticle: unmarshal",
			v1.UserError{
				ErrorCode: v1.ErrorStatusInvalidInput,
			})
		return
	}

	err := validateArticle(na.Title, na.Content)
	if err != nil {
		RespondWithError(w, r, 0, "handleNewArticle: validateArticle %v",
			err)
		return
	}

	userID, ok := sessionUserID(r)
	if !ok {
		RespondWithError(w, r, http.StatusUnauthorized, "handleNewArticle: "+
			"no session user", v1.UserError{
			ErrorCode: v1.ErrorStatusNotLoggedIn,
		})
		return
	}
	u, err := p.userdb.UserGetByID(userID)
	if err != nil {
		RespondWithError(w, r, 0, "handleNewArticle: UserGetByID %v", err)
		return
	}

	a, err := p.articledb.ArticleNew(articles.Article{
		AuthorID:      u.ID,
		AuthorName:    u.Username,
		AuthorEmail:   u.Email,
		Title:         na.Title,
		Content:       na.Content,
		PublishedDate: time.Now(),
	})
	if err != nil {
		RespondWithError(w, r, 0, "handleNewArticle: ArticleNew %v", err)
		return
	}

	log.Infof("Article published: %v %v", a.ID, a.Title)

	util.RespondWithJSON(w, http.StatusOK, v1.NewArticleReply{
		Article: convertArticle(*a),
	})
}

// handleEditArticle edits an existing article. A user that isn't allowed to
// edit the article is silently redirected to the article details page; the
// refusal deliberately carries no explanation.
func (p *quillwww) handleEditArticle(w http.ResponseWriter, r *http.Request) {
	log.Tracef("handleEditArticle")

	var ea v1.EditArticle
	decoder := json.NewDecoder(r.Body)
	if err := decoder.Decode(&ea); err != nil {
		RespondWithError(w, r, 0, "handleEditArticle: unmarshal",
			v1.UserError{
				ErrorCode: v1.ErrorStatusInvalidInput,
			})
		return
	}

	err := validateArticle(ea.Title, ea.Content)
	if err != nil {
		RespondWithError(w, r, 0, "handleEditArticle: validateArticle %v",
			err)
		return
	}

	a, err := p.articledb.ArticleGetByID(ea.ArticleID)
	if err != nil {
		if err == articles.ErrArticleNotFound {
			RespondWithError(w, r, http.StatusNotFound,
				"handleEditArticle: ArticleGetByID %v", v1.UserError{
					ErrorCode: v1.ErrorStatusArticleNotFound,
				})
			return
		}
		RespondWithError(w, r, 0, "handleEditArticle: ArticleGetByID %v",
			err)
		return
	}

	userID, ok := sessionUserID(r)
	if !ok || !canEditArticle(userID, a, time.Now()) {
		log.Debugf("handleEditArticle: user %v may not edit article %v",
			userID, a.ID)
		http.Redirect(w, r, articleRoute(a.ID), http.StatusSeeOther)
		return
	}

	a.Title = ea.Title
	a.Content = ea.Content
	a.Edited = true
	err = p.articledb.ArticleUpdate(*a)
	if err != nil {
		RespondWithError(w, r, 0, "handleEditArticle: ArticleUpdate %v",
			err)
		return
	}

	log.Infof("Article edited: %v %v", a.ID, a.Title)

	util.RespondWithJSON(w, http.StatusOK, v1.EditArticleReply{
		Article: convertArticle(*a),
	})
}

// handleNewComment adds a comment to an article.
func (p *quillwww) handleNewComment(w http.ResponseWriter, r *http.Request) {
	log.Tracef("handleNewComment")

	var nc v1.NewComment
	decoder := json.NewDecoder(r.Body)
	if err := decoder.Decode(&nc); err != nil {
		RespondWithError(w, r, 0, "handleNewComment: unmarshal",
			v1.UserError{
				ErrorCode: v1.ErrorStatusInvalidInput,
			})
		return
	}

	if strings.TrimSpace(nc.Content) == "" {
		RespondWithError(w, r, 0, "handleNewComment: empty content",
			v1.UserError{
				ErrorCode: v1.ErrorStatusCommentEmpty,
			})
		return
	}

	userID, ok := sessionUserID(r)
	if !ok {
		RespondWithError(w, r, http.StatusUnauthorized, "handleNewComment: "+
			"no session user", v1.UserError{
			ErrorCode: v1.ErrorStatusNotLoggedIn,
		})
		return
	}

	c, err := p.articledb.CommentNew(articles.Comment{
		ArticleID:     nc.ArticleID,
		AuthorID:      userID,
		Content:       nc.Content,
		PublishedDate: time.Now(),
	})
	if err != nil {
		if err == articles.ErrArticleNotFound {
			RespondWithError(w, r, http.StatusNotFound,
				"handleNewComment: CommentNew %v", v1.UserError{
					ErrorCode: v1.ErrorStatusArticleNotFound,
				})
			return
		}
		RespondWithError(w, r, 0, "handleNewComment: CommentNew %v", err)
		return
	}

	util.RespondWithJSON(w, http.StatusOK, v1.NewCommentReply{
		Comment: convertComment(*c),
	})
}
