package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/mbalug7/go-ad9854/pkg/common"
	"github.com/mbalug7/go-ad9854/pkg/config"
	"github.com/mbalug7/go-ad9854/pkg/console"
	"github.com/peterh/liner"
)

var words = []string{"regs", "fields", "get", "set", "read", "write", "cmd", "sync", "wait", "data", "help", "quit"}

func main() {
	cfgPath := flag.String("config", "", "path to the YAML wiring config")
	history := flag.String("history", filepath.Join(os.TempDir(), ".ad9854_history"), "console history file")
	flag.Parse()

	log.SetPrefix("ad9854: ")
	log.SetFlags(0)

	cfg := config.Default()
	if *cfgPath != "" {
		var err error
		cfg, err = config.Load(*cfgPath)
		if err != nil {
			log.Fatal(err)
		}
	}

	// request the lines, open the bus and leave the chip deselected
	board, err := common.OpenBoard(cfg)
	if err != nil {
		log.Fatal(err)
	}
	defer func() {
		err := board.Close()
		if err != nil {
			log.Printf("failed to close communication with the device: %s", err)
		}
	}()

	// load the shadow registers with what is on the chip
	err = board.Device.Sync()
	if err != nil {
		log.Printf("failed to read registers: %s", err)
	}

	run(console.New(board.Device), *history)
}

func run(con *console.Console, history string) {
	line := liner.NewLiner()
	defer line.Close()
	line.SetCtrlCAborts(true)
	line.SetCompleter(func(l string) []string {
		var out []string
		for _, w := range words {
			if strings.HasPrefix(w, strings.ToLower(l)) {
				out = append(out, w)
			}
		}
		return out
	})

	if f, err := os.Open(history); err == nil {
		_, _ = line.ReadHistory(f)
		_ = f.Close()
	}
	defer func() {
		f, err := os.Create(history)
		if err != nil {
			log.Printf("failed to save history: %s", err)
			return
		}
		defer f.Close()
		_, _ = line.WriteHistory(f)
	}()

	for {
		text, err := line.Prompt("ad9854> ")
		if err != nil {
			if errors.Is(err, liner.ErrPromptAborted) || errors.Is(err, io.EOF) {
				return
			}
			log.Printf("failed to read command: %s", err)
			return
		}
		text = strings.TrimSpace(text)
		if text == "" {
			continue
		}
		line.AppendHistory(text)
		if text == "quit" || text == "exit" {
			return
		}
		out, err := con.Exec(text)
		if err != nil {
			fmt.Fprintf(os.Stderr, "error: %s\n", err)
			continue
		}
		if out != "" {
			fmt.Println(out)
		}
	}
}
