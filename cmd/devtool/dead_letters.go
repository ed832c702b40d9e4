package main

import (
	"cmp"
	"fmt"
	"os"
	"time"

	"github.com/osse101/WorldEvents_Go/internal/event"
)

const defaultDeadLetterPath = "logs/notifications_dead_letter.jsonl"

type DeadLettersCommand struct{}

func (c *DeadLettersCommand) Name() string {
	return "dead-letters"
}

func (c *DeadLettersCommand) Description() string {
	return "Summarize undelivered notifications by type [path]"
}

func (c *DeadLettersCommand) Run(args []string) error {
	path := cmp.Or(os.Getenv("EVENT_DEAD_LETTER_PATH"), defaultDeadLetterPath)
	if len(args) > 0 {
		path = args[0]
	}

	PrintHeader(fmt.Sprintf("Dead letters in %s", path))
	f, err := os.Open(path)
	if os.IsNotExist(err) {
		PrintSuccess("No dead-letter log")
		return nil
	}
	if err != nil {
		return err
	}
	defer f.Close()

	entries, err := event.ReadDeadLetters(f)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		PrintSuccess("Dead-letter log is empty")
		return nil
	}

	for _, c := range event.SummarizeDeadLetters(entries) {
		PrintWarning("%-28s %5d  last %s", c.Type, c.Count, c.Latest.Format(time.RFC3339))
	}
	PrintInfo("%d notification(s) total", len(entries))
	return nil
}
