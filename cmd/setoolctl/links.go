package main

import (
	"fmt"
	"strconv"

	"github.com/pkg/browser"
	"github.com/pterm/pterm"
	"github.com/samber/lo"
	"github.com/spf13/cobra"

	httphandler "github.com/ericfisherdev/setoolkit/internal/adapter/driving/http"
)

// openURL is swapped in tests.
var openURL = browser.OpenURL

func newLinksCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "links",
		Short: "Manage quick-access links",
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List links in display order",
		Args:  cobra.NoArgs,
		RunE:  runLinksList,
	}

	add := &cobra.Command{
		Use:   "add <title> <url>",
		Short: "Add a link",
		Args:  cobra.ExactArgs(2),
		RunE:  runLinksAdd,
	}
	add.Flags().String("description", "", "Markdown description")
	add.Flags().Int("position", 0, "Display position (default: after the last link)")

	remove := &cobra.Command{
		Use:   "remove <id>",
		Short: "Remove a link",
		Args:  cobra.ExactArgs(1),
		RunE:  runLinksRemove,
	}

	open := &cobra.Command{
		Use:   "open <id>",
		Short: "Open a link in the default browser",
		Args:  cobra.ExactArgs(1),
		RunE:  runLinksOpen,
	}

	cmd.AddCommand(list, add, remove, open)
	return cmd
}

func runLinksList(cmd *cobra.Command, _ []string) error {
	links, err := getClient(cmd).Links(cmd.Context())
	if err != nil {
		return err
	}
	if len(links) == 0 {
		pterm.Info.Println("No links configured")
		return nil
	}

	rows := pterm.TableData{{"ID", "Position", "Title", "URL"}}
	for _, l := range links {
		rows = append(rows, []string{
			strconv.FormatInt(l.ID, 10),
			strconv.Itoa(l.Position),
			l.Title,
			l.URL,
		})
	}

	printTable(rows)
	return nil
}

func runLinksAdd(cmd *cobra.Command, args []string) error {
	description, _ := cmd.Flags().GetString("description")
	position, _ := cmd.Flags().GetInt("position")

	link, err := getClient(cmd).AddLink(cmd.Context(), httphandler.AddLinkRequest{
		Title:       args[0],
		URL:         args[1],
		Description: description,
		Position:    position,
	})
	if err != nil {
		return err
	}

	pterm.Success.Printf("Link %d added at position %d\n", link.ID, link.Position)
	return nil
}

func runLinksRemove(cmd *cobra.Command, args []string) error {
	id, err := parseLinkID(args[0])
	if err != nil {
		return err
	}

	if err := getClient(cmd).RemoveLink(cmd.Context(), id); err != nil {
		return err
	}

	pterm.Success.Printf("Link %d removed\n", id)
	return nil
}

func runLinksOpen(cmd *cobra.Command, args []string) error {
	id, err := parseLinkID(args[0])
	if err != nil {
		return err
	}

	links, err := getClient(cmd).Links(cmd.Context())
	if err != nil {
		return err
	}
	link, ok := lo.Find(links, func(l httphandler.LinkResponse) bool { return l.ID == id })
	if !ok {
		return fmt.Errorf("link %d not found", id)
	}

	return openURL(link.URL)
}

func parseLinkID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid link id %q", s)
	}
	return id, nil
}
