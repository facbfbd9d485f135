// Package engine is the process-wide owner of the dictionary, connection
// matrix, user history, user dictionary, and settings, and the factory for
// input sessions.
//
// Every resource is optional: a missing or unreadable file degrades that one
// capability (no matrix → unigram fallback, no dictionary file → empty
// dictionary) and the engine keeps running.
package engine

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"lexime/internal/config"
	"lexime/internal/dict"
	"lexime/internal/history"
	"lexime/internal/logging"
	"lexime/internal/romaji"
	"lexime/internal/session"
	"lexime/internal/snippets"
)

// compactInterval is how often the background job checks whether the history
// WAL has outgrown its threshold.
const compactInterval = 30 * time.Second

// Paths locate the on-disk resources. Empty fields disable the resource.
type Paths struct {
	Dictionary     string // LXDX system dictionary
	Connection     string // LXCX connection matrix
	History        string // LXUD checkpoint (+ sibling .wal)
	UserDictionary string // LXUW user dictionary
	Snippets       string // SQLite snippet store
	Settings       string // settings.toml
	Romaji         string // romaji.toml
}

// DefaultPaths resolves the platform-standard resource locations.
func DefaultPaths() Paths {
	data := config.PlatformDataDir()
	return Paths{
		Dictionary:     filepath.Join(data, "system.lxdx"),
		Connection:     filepath.Join(data, "connection.lxcx"),
		History:        filepath.Join(data, "user_history.lxud"),
		UserDictionary: filepath.Join(data, "user_dictionary.lxuw"),
		Snippets:       filepath.Join(data, "snippets.db"),
		Settings:       config.SettingsPath(),
		Romaji:         config.RomajiPath(),
	}
}

// Engine owns the shared stores and hands out sessions.
type Engine struct {
	log      *slog.Logger
	paths    Paths
	settings *config.Settings
	romaji   *romaji.Trie

	system   *dict.TrieDictionary
	conn     *dict.ConnectionMatrix
	userDict *dict.UserDictionary
	composed dict.Dictionary
	hist     *history.UserHistory
	snips    *snippets.Store

	watcher *fsnotify.Watcher

	stopOnce sync.Once
	stopCh   chan struct{}
	wg       sync.WaitGroup
}

// New loads every resource and starts the background jobs. Initialization
// failures on individual resources are logged and degrade functionality
// rather than failing the engine, so the returned error is always nil.
func New(paths Paths) (*Engine, error) {
	log := logging.New("engine")
	e := &Engine{
		log:    log,
		paths:  paths,
		stopCh: make(chan struct{}),
	}

	// Settings: bad TOML falls back to embedded defaults.
	settings, err := config.LoadFile(paths.Settings)
	if err != nil {
		log.Warn("settings unusable, falling back to defaults", "path", paths.Settings, "error", err)
		settings = config.Default()
	}
	e.settings = settings

	// Romaji table: a user file entirely replaces the embedded defaults.
	e.romaji = loadRomaji(log, paths.Romaji)

	// System dictionary.
	if paths.Dictionary != "" {
		system, err := dict.LoadTrieDictionary(paths.Dictionary)
		if err != nil {
			if !errors.Is(err, os.ErrNotExist) {
				log.Error("system dictionary unusable", "path", paths.Dictionary, "error", err)
			}
			system = dict.NewTrieDictionary(nil)
		} else {
			readings, entries := system.Stats()
			log.Info("system dictionary loaded", "readings", readings, "entries", entries)
		}
		e.system = system
	} else {
		e.system = dict.NewTrieDictionary(nil)
	}

	// Connection matrix: absence means the unigram fallback.
	if paths.Connection != "" {
		conn, err := dict.LoadConnectionMatrix(paths.Connection)
		if err != nil {
			if !errors.Is(err, os.ErrNotExist) {
				log.Warn("connection matrix unusable, using unigram fallback", "path", paths.Connection, "error", err)
			}
		} else {
			log.Info("connection matrix loaded", "ids", conn.Rows())
			e.conn = conn
		}
	}

	// User dictionary.
	userDict, err := dict.LoadUserDictionary(paths.UserDictionary)
	if err != nil {
		log.Warn("user dictionary unusable, starting empty", "path", paths.UserDictionary, "error", err)
		userDict = dict.NewUserDictionary()
	}
	e.userDict = userDict
	e.composed = dict.NewCompositeDictionary(e.system, e.userDict)

	// User history: checkpoint + WAL replay.
	if paths.History != "" {
		hist, err := history.Open(paths.History, settings.History)
		if err != nil {
			log.Warn("user history unusable, learning disabled", "path", paths.History, "error", err)
		} else {
			uni, bi := hist.Counts()
			log.Info("user history loaded", "unigrams", uni, "bigrams", bi)
			e.hist = hist
		}
	}

	// Snippet store.
	if paths.Snippets != "" {
		snips, err := snippets.Open(paths.Snippets)
		if err != nil {
			log.Warn("snippet store unusable", "path", paths.Snippets, "error", err)
		} else {
			e.snips = snips
		}
	}

	e.startCompactor()
	e.startUserDictWatcher()

	return e, nil
}

// loadRomaji builds the transducer trie from the user file or the defaults.
func loadRomaji(log *slog.Logger, path string) *romaji.Trie {
	if path != "" {
		if data, err := os.ReadFile(path); err == nil {
			trie, err := romaji.Load(string(data))
			if err == nil {
				log.Info("romaji table loaded", "path", path, "entries", trie.Len())
				return trie
			}
			log.Warn("romaji table invalid, using defaults", "path", path, "error", err)
		}
	}
	return romaji.MustDefault()
}

// CreateSession returns a new input session over the shared resources.
func (e *Engine) CreateSession() *session.Session {
	return session.New(session.Resources{
		Dict:     e.composed,
		Conn:     e.conn,
		History:  e.hist,
		Romaji:   e.romaji,
		Settings: e.settings,
		Snippets: e.snips,
		Log:      logging.New("session"),
	})
}

// Settings returns the loaded settings.
func (e *Engine) Settings() *config.Settings { return e.settings }

// History returns the learning store, nil when disabled.
func (e *Engine) History() *history.UserHistory { return e.hist }

// UserDictionary returns the writable user dictionary layer.
func (e *Engine) UserDictionary() *dict.UserDictionary { return e.userDict }

// Snippets returns the snippet store, nil when disabled.
func (e *Engine) Snippets() *snippets.Store { return e.snips }

// SaveHistory writes the history checkpoint and truncates the WAL.
func (e *Engine) SaveHistory() error {
	if e.hist == nil {
		return nil
	}
	return e.hist.Save(e.paths.History)
}

// SaveUserDictionary persists the user dictionary to its LXUW file.
func (e *Engine) SaveUserDictionary() error {
	if e.paths.UserDictionary == "" {
		return nil
	}
	return e.userDict.Save(e.paths.UserDictionary)
}

// startCompactor runs the background job that rewrites the history
// checkpoint when the WAL outgrows its threshold.
func (e *Engine) startCompactor() {
	if e.hist == nil {
		return
	}
	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		ticker := time.NewTicker(compactInterval)
		defer ticker.Stop()
		for {
			select {
			case <-e.stopCh:
				return
			case <-ticker.C:
				if e.hist.NeedsCompact() {
					if err := e.SaveHistory(); err != nil {
						e.log.Warn("history compaction failed", "error", err)
					} else {
						e.log.Debug("history compacted")
					}
				}
			}
		}
	}()
}

// startUserDictWatcher reloads the user dictionary when an external tool
// rewrites its file. Settings and romaji tables deliberately do not reload;
// those changes require a restart.
func (e *Engine) startUserDictWatcher() {
	if e.paths.UserDictionary == "" {
		return
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		e.log.Warn("user dictionary watcher unavailable", "error", err)
		return
	}
	dir := filepath.Dir(e.paths.UserDictionary)
	if err := watcher.Add(dir); err != nil {
		e.log.Warn("user dictionary watcher unavailable", "dir", dir, "error", err)
		watcher.Close()
		return
	}
	e.watcher = watcher

	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		for {
			select {
			case <-e.stopCh:
				return
			case ev, ok := <-watcher.Events:
				if !ok {
					return
				}
				if ev.Name != e.paths.UserDictionary {
					continue
				}
				if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Rename) {
					continue
				}
				reloaded, err := dict.LoadUserDictionary(e.paths.UserDictionary)
				if err != nil {
					e.log.Warn("user dictionary reload failed", "error", err)
					continue
				}
				e.userDict.Replace(reloaded)
				e.log.Info("user dictionary reloaded", "words", e.userDict.Len())
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				e.log.Warn("user dictionary watcher error", "error", err)
			}
		}
	}()
}

// Close flushes the history, stops background jobs, and releases handles.
func (e *Engine) Close() error {
	var firstErr error
	e.stopOnce.Do(func() {
		close(e.stopCh)
		if e.watcher != nil {
			e.watcher.Close()
		}
		e.wg.Wait()

		if e.hist != nil {
			if err := e.SaveHistory(); err != nil {
				firstErr = fmt.Errorf("engine: save history: %w", err)
			}
			if err := e.hist.Close(); err != nil && firstErr == nil {
				firstErr = err
			}
		}
		if e.snips != nil {
			if err := e.snips.Close(); err != nil && firstErr == nil {
				firstErr = err
			}
		}
	})
	return firstErr
}
