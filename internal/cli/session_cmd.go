// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// session_cmd.go - Saved conversation management.
//
// Command: session [subcommand]
// Aliases: sessions, history
//
// Subcommands:
//   list (default)      List saved conversations
//   show <id>           Print a conversation transcript
//   search <query>      Search titles and message content
//   resume <id>         Reopen in the TUI (routed in main)
//   export <id>         Export a conversation (--format md|json)
//   delete <id>         Delete a conversation (--confirm)
//   delete-all          Delete everything (--confirm)
package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/jeranaias/travelmind-tui/internal/history"
)

// HandleSession handles the "session" command.
func HandleSession(args Args) error {
	store, err := history.NewStore()
	if err != nil {
		return err
	}

	switch args.Subcommand {
	case "", "list", "ls", "l":
		return sessionList(store, args.JSON)
	case "show":
		return sessionShow(store, args.SessionID)
	case "search":
		return sessionSearch(store, args.SessionID, args.JSON)
	case "export":
		return sessionExport(store, args.SessionID, args.Format)
	case "delete", "rm":
		return sessionDelete(store, args.SessionID, args.Confirm)
	case "delete-all", "clear":
		return sessionDeleteAll(store, args.Confirm)
	default:
		return fmt.Errorf("unknown session subcommand: %s", args.Subcommand)
	}
}

func sessionList(store *history.Store, asJSON bool) error {
	if asJSON {
		return json.NewEncoder(os.Stdout).Encode(store.ListMeta())
	}
	fmt.Print(history.FormatSessionList(store.ListMeta()))
	return nil
}

func sessionShow(store *history.Store, id string) error {
	if id == "" {
		return fmt.Errorf("usage: travelmind session show <id>")
	}
	sess, err := store.Get(id)
	if err != nil {
		return err
	}
	fmt.Print(sess.ExportMarkdown())
	return nil
}

func sessionSearch(store *history.Store, query string, asJSON bool) error {
	if query == "" {
		return fmt.Errorf("usage: travelmind session search <query>")
	}
	matches := store.Search(query)
	if asJSON {
		return json.NewEncoder(os.Stdout).Encode(matches)
	}
	if len(matches) == 0 {
		fmt.Println("No matching conversations.")
		return nil
	}
	fmt.Print(history.FormatSessionList(matches))
	return nil
}

func sessionExport(store *history.Store, id, format string) error {
	if id == "" {
		return fmt.Errorf("usage: travelmind session export <id> [--format md|json]")
	}
	sess, err := store.Get(id)
	if err != nil {
		return err
	}

	switch format {
	case "", "md", "markdown":
		fmt.Print(sess.ExportMarkdown())
		return nil
	case "json":
		out, err := sess.ExportJSON()
		if err != nil {
			return err
		}
		fmt.Println(string(out))
		return nil
	default:
		return fmt.Errorf("unknown export format: %s (want md or json)", format)
	}
}

func sessionDelete(store *history.Store, id string, confirm bool) error {
	if id == "" {
		return fmt.Errorf("usage: travelmind session delete <id> --confirm")
	}
	if !confirm {
		return fmt.Errorf("deleting a conversation requires --confirm")
	}
	if err := store.Delete(id); err != nil {
		return err
	}
	fmt.Printf("Deleted %s\n", id)
	return nil
}

func sessionDeleteAll(store *history.Store, confirm bool) error {
	if !confirm {
		return fmt.Errorf("deleting all conversations requires --confirm")
	}
	n := len(store.ListMeta())
	if err := store.Clear(); err != nil {
		return err
	}
	fmt.Printf("Deleted %d conversation(s)\n", n)
	return nil
}
