// Command leximectl manages lexime's user-facing data stores: the user
// dictionary, the learning history, snippets, and settings validation.
//
// Usage:
//
//	leximectl userdict add <reading> <surface>
//	leximectl userdict remove <reading> <surface>
//	leximectl userdict list
//	leximectl userdict export            (YAML to stdout)
//	leximectl history stats
//	leximectl history compact
//	leximectl snippets add <keyword> <expansion>
//	leximectl snippets list
//	leximectl snippets remove <keyword>
//	leximectl settings check [path]
package main

import (
	"flag"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"lexime/internal/config"
	"lexime/internal/dict"
	"lexime/internal/engine"
	"lexime/internal/history"
	"lexime/internal/snippets"
)

func main() {
	dataDir := flag.String("data-dir", "", "override the data directory")
	flag.Parse()

	paths := engine.DefaultPaths()
	if *dataDir != "" {
		paths = engine.Paths{
			Dictionary:     *dataDir + "/system.lxdx",
			Connection:     *dataDir + "/connection.lxcx",
			History:        *dataDir + "/user_history.lxud",
			UserDictionary: *dataDir + "/user_dictionary.lxuw",
			Snippets:       *dataDir + "/snippets.db",
			Settings:       *dataDir + "/settings.toml",
			Romaji:         *dataDir + "/romaji.toml",
		}
	}

	args := flag.Args()
	if len(args) < 1 {
		usage()
	}

	var err error
	switch args[0] {
	case "userdict":
		err = runUserDict(paths, args[1:])
	case "history":
		err = runHistory(paths, args[1:])
	case "snippets":
		err = runSnippets(paths, args[1:])
	case "settings":
		err = runSettings(paths, args[1:])
	default:
		usage()
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, "leximectl:", err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, `usage: leximectl [-data-dir DIR] <command> ...

commands:
  userdict add <reading> <surface>
  userdict remove <reading> <surface>
  userdict list
  userdict export
  history stats
  history compact
  snippets add <keyword> <expansion>
  snippets list
  snippets remove <keyword>
  settings check [path]`)
	os.Exit(2)
}

func runUserDict(paths engine.Paths, args []string) error {
	if len(args) < 1 {
		usage()
	}
	ud, err := dict.LoadUserDictionary(paths.UserDictionary)
	if err != nil {
		return err
	}

	switch args[0] {
	case "add":
		if len(args) != 3 {
			usage()
		}
		if !ud.Register(args[1], args[2]) {
			fmt.Println("already registered")
			return nil
		}
		return ud.Save(paths.UserDictionary)

	case "remove":
		if len(args) != 3 {
			usage()
		}
		if !ud.Unregister(args[1], args[2]) {
			return fmt.Errorf("not found: %s %s", args[1], args[2])
		}
		return ud.Save(paths.UserDictionary)

	case "list":
		for _, pair := range ud.List() {
			fmt.Printf("%s\t%s\n", pair[0], pair[1])
		}
		return nil

	case "export":
		type word struct {
			Reading string `yaml:"reading"`
			Surface string `yaml:"surface"`
		}
		words := make([]word, 0, ud.Len())
		for _, pair := range ud.List() {
			words = append(words, word{Reading: pair[0], Surface: pair[1]})
		}
		out, err := yaml.Marshal(words)
		if err != nil {
			return err
		}
		os.Stdout.Write(out)
		return nil
	}
	usage()
	return nil
}

func runHistory(paths engine.Paths, args []string) error {
	if len(args) < 1 {
		usage()
	}
	settings, err := config.LoadFile(paths.Settings)
	if err != nil {
		settings = config.Default()
	}
	h, err := history.Open(paths.History, settings.History)
	if err != nil {
		return err
	}
	defer h.Close()

	switch args[0] {
	case "stats":
		uni, bi := h.Counts()
		stats := map[string]int{"unigrams": uni, "bigrams": bi}
		out, err := yaml.Marshal(stats)
		if err != nil {
			return err
		}
		os.Stdout.Write(out)
		return nil

	case "compact":
		return h.Save(paths.History)
	}
	usage()
	return nil
}

func runSnippets(paths engine.Paths, args []string) error {
	if len(args) < 1 {
		usage()
	}
	store, err := snippets.Open(paths.Snippets)
	if err != nil {
		return err
	}
	defer store.Close()

	switch args[0] {
	case "add":
		if len(args) != 3 {
			usage()
		}
		return store.Put(args[1], args[2])

	case "remove":
		if len(args) != 2 {
			usage()
		}
		return store.Delete(args[1])

	case "list":
		all, err := store.List()
		if err != nil {
			return err
		}
		for _, sn := range all {
			fmt.Printf("%s\t%s\n", sn.Keyword, sn.Expansion)
		}
		return nil
	}
	usage()
	return nil
}

func runSettings(paths engine.Paths, args []string) error {
	path := paths.Settings
	if len(args) >= 2 && args[0] == "check" {
		path = args[1]
	} else if len(args) != 1 || args[0] != "check" {
		usage()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if _, err := config.Parse(string(data)); err != nil {
		return err
	}
	fmt.Println("ok")
	return nil
}
