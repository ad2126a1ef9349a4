package main

import (
	"fmt"
	"strings"

	"github.com/pterm/pterm"
	"github.com/samber/lo"
	"github.com/spf13/cobra"
)

func newPluginsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "plugins",
		Short: "Manage plugins",
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List plugins and their state",
		Args:  cobra.NoArgs,
		RunE:  runPluginsList,
	}
	list.Flags().String("context", "", "Only plugins declaring this context (background, content, options)")

	enable := &cobra.Command{
		Use:   "enable <id>",
		Short: "Enable a plugin",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPluginsSetEnabled(cmd, args[0], true)
		},
	}

	disable := &cobra.Command{
		Use:   "disable <id>",
		Short: "Disable a plugin",
		Long:  "Disable a plugin. Core plugins cannot be disabled and stay enabled.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPluginsSetEnabled(cmd, args[0], false)
		},
	}

	cmd.AddCommand(list, enable, disable)
	return cmd
}

func runPluginsList(cmd *cobra.Command, _ []string) error {
	execCtx, _ := cmd.Flags().GetString("context")

	plugins, err := getClient(cmd).Plugins(cmd.Context(), execCtx)
	if err != nil {
		return err
	}
	if len(plugins) == 0 {
		pterm.Info.Println("No plugins found")
		return nil
	}

	rows := pterm.TableData{{"ID", "Name", "Version", "Enabled", "Core", "Contexts"}}
	for _, p := range plugins {
		rows = append(rows, []string{
			p.ID,
			p.Name,
			p.Version,
			fmt.Sprintf("%t", p.Enabled),
			lo.Ternary(p.Core, "core", ""),
			strings.Join(p.Contexts, ","),
		})
	}

	printTable(rows)
	return nil
}

func runPluginsSetEnabled(cmd *cobra.Command, id string, enabled bool) error {
	plugin, err := getClient(cmd).SetPluginEnabled(cmd.Context(), id, enabled)
	if err != nil {
		return err
	}

	if plugin.Enabled != enabled {
		pterm.Warning.Printf("Plugin %s is core and stays enabled\n", plugin.ID)
		return nil
	}
	pterm.Success.Printf("Plugin %s %s\n", plugin.ID, lo.Ternary(enabled, "enabled", "disabled"))
	return nil
}
