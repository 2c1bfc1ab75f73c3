// Copyright (c) 2026 The Quill developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/quillhq/quill/util"

	flags "github.com/jessevdk/go-flags"
)

const (
	defaultConfigFilename = "quillwww.conf"
	defaultDataDirname    = "data"
	defaultLogDirname     = "logs"
	defaultLogFilename    = "quillwww.log"
	defaultLogLevel       = "info"

	defaultListenPort = "4443"

	// Database backend options.
	dbBackendLevelDB = "leveldb"
	dbBackendMySQL   = "mysql"
	defaultDBBackend = dbBackendLevelDB

	defaultMySQLHost   = "localhost:3306"
	defaultMySQLDBName = "quill"

	// Authentication backend options. The "sessions" backend is the
	// hand rolled server side session store; the "cookies" backend
	// delegates session handling to gorilla/sessions encrypted
	// cookies. The two are mutually exclusive strategies behind the
	// same interface.
	authBackendSessions = "sessions"
	authBackendCookies  = "cookies"
	defaultAuthBackend  = authBackendSessions
)

var (
	defaultHomeDir       = appDataDir("quillwww")
	defaultConfigFile    = filepath.Join(defaultHomeDir, defaultConfigFilename)
	defaultDataDir       = filepath.Join(defaultHomeDir, defaultDataDirname)
	defaultLogDir        = filepath.Join(defaultHomeDir, defaultLogDirname)
	defaultCookieKeyFile = filepath.Join(defaultHomeDir, "cookie.key")
)

// config defines the configuration options for quillwww.
//
// See loadConfig for details on the configuration load process.
type config struct {
	ShowVersion   bool   `short:"V" long:"version" description:"Display version information and exit"`
	HomeDir       string `short:"A" long:"appdata" description:"Path to application home directory"`
	ConfigFile    string `short:"C" long:"configfile" description:"Path to configuration file"`
	DataDir       string `short:"b" long:"datadir" description:"Directory to store data"`
	LogDir        string `long:"logdir" description:"Directory to log output"`
	DebugLevel    string `short:"d" long:"debuglevel" description:"Logging level for all subsystems {trace, debug, info, warn, error, critical}"`
	Listen        string `long:"listen" description:"Add an interface/port to listen for connections"`
	HTTPSCert     string `long:"httpscert" description:"File containing the https certificate file"`
	HTTPSKey      string `long:"httpskey" description:"File containing the https certificate key"`
	DBBackend     string `long:"dbbackend" description:"Database backend {leveldb, mysql}"`
	MySQLHost     string `long:"mysqlhost" description:"MySQL ip:port"`
	MySQLUser     string `long:"mysqluser" description:"MySQL user"`
	MySQLPass     string `long:"mysqlpass" description:"MySQL password"`
	MySQLDBName   string `long:"mysqldbname" description:"MySQL database name"`
	AuthBackend   string `long:"authbackend" description:"Authentication backend {sessions, cookies}"`
	CookieKeyFile string `long:"cookiekey" description:"File containing the secret cookie key"`
	SessionSweep  bool   `long:"sessionsweep" description:"Periodically delete expired sessions instead of relying solely on lazy eviction"`

	Version string
}

// homeDirPerm is the directory permission used when creating the
// application home directory.
const homeDirPerm = 0700

// validLogLevel returns whether or not logLevel is a valid debug log level.
func validLogLevel(logLevel string) bool {
	switch logLevel {
	case "trace", "debug", "info", "warn", "error", "critical":
		return true
	}
	return false
}

// parseAndSetDebugLevels attempts to parse the specified debug level and set
// the levels accordingly. An appropriate error is returned if anything is
// invalid.
func parseAndSetDebugLevels(debugLevel string) error {
	// When the specified string doesn't have any delimters, treat it as
	// the log level for all subsystems.
	if !strings.Contains(debugLevel, ",") && !strings.Contains(debugLevel, "=") {
		// Validate debug log level.
		if !validLogLevel(debugLevel) {
			str := "the specified debug level [%v] is invalid"
			return fmt.Errorf(str, debugLevel)
		}

		// Change the logging level for all subsystems.
		setLogLevels(debugLevel)

		return nil
	}

	// Split the specified string into subsystem/level pairs while
	// detecting issues and update the log levels accordingly.
	for _, logLevelPair := range strings.Split(debugLevel, ",") {
		if !strings.Contains(logLevelPair, "=") {
			str := "the specified debug level contains an invalid " +
				"subsystem/level pair [%v]"
			return fmt.Errorf(str, logLevelPair)
		}

		// Extract the specified subsystem and log level.
		fields := strings.Split(logLevelPair, "=")
		subsysID, logLevel := fields[0], fields[1]

		// Validate subsystem.
		if _, exists := subsystemLoggers[subsysID]; !exists {
			str := "the specified subsystem [%v] is invalid -- " +
				"supported subsystems %v"
			return fmt.Errorf(str, subsysID, supportedSubsystems())
		}

		// Validate log level.
		if !validLogLevel(logLevel) {
			str := "the specified debug level [%v] is invalid"
			return fmt.Errorf(str, logLevel)
		}

		setLogLevel(subsysID, logLevel)
	}

	return nil
}

// cleanAndExpandPath expands environment variables and leading ~ in the
// passed path, cleans the result, and returns it.
func cleanAndExpandPath(path string) string {
	// Expand initial ~ to OS specific home directory.
	if strings.HasPrefix(path, "~") {
		homeDir, err := os.UserHomeDir()
		if err == nil {
			path = strings.Replace(path, "~", homeDir, 1)
		}
	}

	// NOTE: The os.ExpandEnv doesn't work with Windows-style %VARIABLE%,
	// but the variables can still be expanded via POSIX-style $VARIABLE.
	return filepath.Clean(os.ExpandEnv(path))
}

// appDataDir returns an operating system specific directory to be used for
// storing application data.
func appDataDir(appName string) string {
	homeDir, err := os.UserConfigDir()
	if err != nil {
		return "."
	}
	return filepath.Join(homeDir, appName)
}

// newConfigParser returns a new command line flags parser.
func newConfigParser(cfg *config, options flags.Options) *flags.Parser {
	return flags.NewParser(cfg, options)
}

// loadConfig initializes and parses the config using a config file and
// command line options.
//
// The configuration proceeds as follows:
//  1. Start with a default config with sane settings
//  2. Pre-parse the command line to check for an alternative config file
//  3. Load configuration file overwriting defaults with any specified options
//  4. Parse CLI options and overwrite/add any specified options
//
// The above results in quillwww functioning properly without any config
// settings while still allowing the user to override settings with config
// files and command line options. Command line options always take
// precedence.
func loadConfig() (*config, []string, error) {
	// Default config.
	cfg := config{
		HomeDir:       defaultHomeDir,
		ConfigFile:    defaultConfigFile,
		DataDir:       defaultDataDir,
		LogDir:        defaultLogDir,
		DebugLevel:    defaultLogLevel,
		DBBackend:     defaultDBBackend,
		MySQLHost:     defaultMySQLHost,
		MySQLDBName:   defaultMySQLDBName,
		AuthBackend:   defaultAuthBackend,
		CookieKeyFile: defaultCookieKeyFile,
		Version:       version(),
	}

	// Pre-parse the command line options to see if an alternative config
	// file or the version flag was specified.
	preCfg := cfg
	preParser := newConfigParser(&preCfg, flags.HelpFlag)
	_, err := preParser.Parse()
	if err != nil {
		if e, ok := err.(*flags.Error); ok && e.Type == flags.ErrHelp {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(0)
		}
		return nil, nil, err
	}

	// Show the version and exit if the version flag was specified.
	appName := filepath.Base(os.Args[0])
	appName = strings.TrimSuffix(appName, filepath.Ext(appName))
	if preCfg.ShowVersion {
		fmt.Printf("%s version %s (Go version %s)\n", appName,
			cfg.Version, goVersion())
		os.Exit(0)
	}

	// Update the home directory if specified. Since the home directory
	// is updated, other variables need to be updated to reflect the new
	// changes.
	if preCfg.HomeDir != defaultHomeDir {
		cfg.HomeDir = cleanAndExpandPath(preCfg.HomeDir)
		cfg.ConfigFile = filepath.Join(cfg.HomeDir, defaultConfigFilename)
		cfg.DataDir = filepath.Join(cfg.HomeDir, defaultDataDirname)
		cfg.LogDir = filepath.Join(cfg.HomeDir, defaultLogDirname)
		cfg.CookieKeyFile = filepath.Join(cfg.HomeDir, "cookie.key")
	}
	if preCfg.ConfigFile != defaultConfigFile {
		cfg.ConfigFile = cleanAndExpandPath(preCfg.ConfigFile)
	}

	// Load additional config from file.
	parser := newConfigParser(&cfg, flags.Default)
	err = flags.NewIniParser(parser).ParseFile(cfg.ConfigFile)
	if err != nil {
		if _, ok := err.(*os.PathError); !ok {
			return nil, nil, err
		}
		// Missing config file is not an error; defaults are used.
	}

	// Parse command line options again to ensure they take precedence.
	remainingArgs, err := parser.Parse()
	if err != nil {
		return nil, nil, err
	}

	// Create the home directory if it doesn't already exist.
	err = os.MkdirAll(cfg.HomeDir, homeDirPerm)
	if err != nil {
		return nil, nil, fmt.Errorf("create home directory: %v", err)
	}

	cfg.DataDir = cleanAndExpandPath(cfg.DataDir)
	cfg.LogDir = cleanAndExpandPath(cfg.LogDir)
	cfg.CookieKeyFile = cleanAndExpandPath(cfg.CookieKeyFile)

	// Initialize log rotation. After the log rotation has been
	// initialized, the logger variables may be used.
	initLogRotator(filepath.Join(cfg.LogDir, defaultLogFilename))

	// Parse, validate, and set debug log level(s).
	err = parseAndSetDebugLevels(cfg.DebugLevel)
	if err != nil {
		return nil, nil, fmt.Errorf("loadConfig: %v", err)
	}

	// Validate the listen address.
	if cfg.Listen == "" {
		cfg.Listen = "127.0.0.1"
	}
	cfg.Listen = util.NormalizeAddress(cfg.Listen, defaultListenPort)

	// Validate database choice.
	switch cfg.DBBackend {
	case dbBackendLevelDB:
		// Leveldb implementation does not require any database settings.
	case dbBackendMySQL:
		if cfg.MySQLUser == "" {
			return nil, nil, fmt.Errorf("mysqluser must be set " +
				"when using the mysql database backend")
		}
	default:
		return nil, nil, fmt.Errorf("invalid dbbackend '%v'; must be "+
			"either '%v' or '%v'", cfg.DBBackend, dbBackendLevelDB,
			dbBackendMySQL)
	}

	// Validate authentication backend choice.
	switch cfg.AuthBackend {
	case authBackendSessions, authBackendCookies:
	default:
		return nil, nil, fmt.Errorf("invalid authbackend '%v'; must be "+
			"either '%v' or '%v'", cfg.AuthBackend, authBackendSessions,
			authBackendCookies)
	}

	// TLS settings must come in pairs.
	if (cfg.HTTPSCert == "") != (cfg.HTTPSKey == "") {
		return nil, nil, fmt.Errorf("httpscert and httpskey must " +
			"both be set to serve https")
	}
	if cfg.HTTPSCert != "" {
		cfg.HTTPSCert = cleanAndExpandPath(cfg.HTTPSCert)
		cfg.HTTPSKey = cleanAndExpandPath(cfg.HTTPSKey)
	}

	return &cfg, remainingArgs, nil
}
