// Command leximeconv is an interactive conversion driver: it feeds each line
// of romaji through a session and prints the candidate list, which is the
// quickest way to exercise the full engine without an IME host.
package main

import (
	"bufio"
	"flag"
	"fmt"
	"os"

	"lexime/internal/engine"
	"lexime/internal/session"
)

func main() {
	dataDir := flag.String("data-dir", "", "override the data directory")
	predictive := flag.Bool("predictive", false, "use predictive candidate generation")
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

	eng, err := engine.New(paths)
	if err != nil {
		fmt.Fprintln(os.Stderr, "leximeconv:", err)
		os.Exit(1)
	}
	defer eng.Close()

	scanner := bufio.NewScanner(os.Stdin)
	fmt.Println("type romaji, enter to convert (empty line quits)")
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			break
		}
		line := scanner.Text()
		if line == "" {
			break
		}

		s := eng.CreateSession()
		if *predictive {
			s.SetConversionMode(session.ModePredictive)
		}
		for _, r := range line {
			s.HandleKey(0, string(r), false, false)
		}

		var resp session.KeyResponse
		if s.IsComposing() {
			resp = s.HandleKey(session.KeySpace, " ", false, false)
		}
		printCandidates(resp)

		commit := s.Commit()
		fmt.Printf("commit: %s\n", commit.CommittedText())
		s.Close()
	}
}

func printCandidates(resp session.KeyResponse) {
	for _, ev := range resp.Events {
		if ev.Kind != session.EventShowCandidates {
			continue
		}
		for i, sf := range ev.Surfaces {
			marker := "  "
			if i == ev.Selected {
				marker = "→ "
			}
			fmt.Printf("%s%2d %s\n", marker, i+1, sf)
		}
	}
}
