// Copyright (c) 2026 The Quill developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package main

import (
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/gorilla/csrf"
	"github.com/gorilla/mux"
	"github.com/quillhq/quill/quillwww/articles"
	articleslocaldb "github.com/quillhq/quill/quillwww/articles/localdb"
	articlesmysql "github.com/quillhq/quill/quillwww/articles/mysql"
	"github.com/quillhq/quill/quillwww/sessions"
	sessionslocaldb "github.com/quillhq/quill/quillwww/sessions/localdb"
	sessionsmysql "github.com/quillhq/quill/quillwww/sessions/mysql"
	"github.com/quillhq/quill/quillwww/user"
	userlocaldb "github.com/quillhq/quill/quillwww/user/localdb"
	usermysql "github.com/quillhq/quill/quillwww/user/mysql"
	"github.com/robfig/cron"
)

// sessionSweepSchedule determines how often expired sessions are swept from
// the session database when the sweep is enabled.
const sessionSweepSchedule = "@every 5m"

// openUserDB opens the user database for the configured backend.
func openUserDB(cfg *config) (user.Database, error) {
	switch cfg.DBBackend {
	case dbBackendLevelDB:
		return userlocaldb.New(filepath.Join(cfg.DataDir, "users"))
	case dbBackendMySQL:
		return usermysql.New(cfg.MySQLHost, cfg.MySQLUser, cfg.MySQLPass,
			cfg.MySQLDBName)
	}
	return nil, fmt.Errorf("unknown database backend: %v", cfg.DBBackend)
}

// openArticleDB opens the article database for the configured backend.
func openArticleDB(cfg *config) (articles.Database, error) {
	switch cfg.DBBackend {
	case dbBackendLevelDB:
		return articleslocaldb.New(filepath.Join(cfg.DataDir, "articles"))
	case dbBackendMySQL:
		return articlesmysql.New(cfg.MySQLHost, cfg.MySQLUser,
			cfg.MySQLPass, cfg.MySQLDBName)
	}
	return nil, fmt.Errorf("unknown database backend: %v", cfg.DBBackend)
}

// openSessionDB opens the session database for the configured backend.
func openSessionDB(cfg *config) (sessions.DB, error) {
	switch cfg.DBBackend {
	case dbBackendLevelDB:
		return sessionslocaldb.New(filepath.Join(cfg.DataDir, "sessions"))
	case dbBackendMySQL:
		db, err := sql.Open("mysql",
			fmt.Sprintf("%v:%v@tcp(%v)/%v?parseTime=true", cfg.MySQLUser,
				cfg.MySQLPass, cfg.MySQLHost, cfg.MySQLDBName))
		if err != nil {
			return nil, err
		}
		return sessionsmysql.New(db, nil)
	}
	return nil, fmt.Errorf("unknown database backend: %v", cfg.DBBackend)
}

func _main() error {
	// Load configuration and parse command line. This function also
	// initializes logging and configures it accordingly.
	loadedCfg, _, err := loadConfig()
	if err != nil {
		return fmt.Errorf("could not load configuration file: %v", err)
	}
	defer func() {
		if logRotator != nil {
			logRotator.Close()
		}
	}()

	log.Infof("Version : %v", version())
	log.Infof("Home dir: %v", loadedCfg.HomeDir)
	log.Infof("Database: %v", loadedCfg.DBBackend)
	log.Infof("Auth    : %v", loadedCfg.AuthBackend)

	// Open the databases.
	userdb, err := openUserDB(loadedCfg)
	if err != nil {
		return err
	}
	defer userdb.Close()

	articledb, err := openArticleDB(loadedCfg)
	if err != nil {
		return err
	}
	defer articledb.Close()

	p := &quillwww{
		cfg:       loadedCfg,
		router:    mux.NewRouter(),
		userdb:    userdb,
		articledb: articledb,
	}

	// Set up the authentication strategy. The cookie key doubles as the
	// CSRF key.
	cookieKey, err := loadCookieKey(loadedCfg.CookieKeyFile)
	if err != nil {
		return err
	}
	switch loadedCfg.AuthBackend {
	case authBackendSessions:
		sessiondb, err := openSessionDB(loadedCfg)
		if err != nil {
			return err
		}
		defer sessiondb.Close()

		p.smgr = sessions.New(sessiondb, nil)
		p.auth = &sessionAuth{mgr: p.smgr}
	case authBackendCookies:
		p.auth = newCookieAuth(sessions.DefaultTimeout, cookieKey)
	default:
		return fmt.Errorf("unknown auth backend: %v",
			loadedCfg.AuthBackend)
	}

	p.setQuillWWWRoutes()

	// Expired sessions are normally evicted lazily, on the first use of
	// a token past its timeout. The sweep additionally deletes expired
	// records that are never presented again so that the session db
	// doesn't accumulate them.
	if loadedCfg.SessionSweep && p.smgr != nil {
		c := cron.New()
		err := c.AddFunc(sessionSweepSchedule, func() {
			n, err := p.smgr.SessionsCleanup()
			if err != nil {
				log.Errorf("SessionsCleanup: %v", err)
				return
			}
			if n > 0 {
				log.Infof("Session sweep deleted %v expired sessions", n)
			}
		})
		if err != nil {
			return err
		}
		c.Start()
		defer c.Stop()
	}

	// Bind to a port and pass our router in.
	listenC := make(chan error)
	go func() {
		csrfHandle := csrf.Protect(cookieKey,
			csrf.Path("/"))
		srv := &http.Server{
			Handler:      csrfHandle(recoverMiddleware(p.router)),
			Addr:         loadedCfg.Listen,
			ReadTimeout:  5 * time.Second,
			WriteTimeout: 5 * time.Second,
		}

		log.Infof("Listen: %v", loadedCfg.Listen)
		if loadedCfg.HTTPSCert != "" && loadedCfg.HTTPSKey != "" {
			listenC <- srv.ListenAndServeTLS(loadedCfg.HTTPSCert,
				loadedCfg.HTTPSKey)
			return
		}
		listenC <- srv.ListenAndServe()
	}()

	// Tell user we are ready to go.
	log.Infof("Start of day")

	// Setup OS signals
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	for {
		select {
		case sig := <-sigs:
			log.Infof("Terminating with %v", sig)
			return nil
		case err := <-listenC:
			log.Errorf("%v", err)
			return err
		}
	}
}

func main() {
	err := _main()
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}
}
