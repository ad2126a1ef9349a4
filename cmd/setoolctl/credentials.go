package main

import (
	"fmt"

	"github.com/pterm/pterm"
	"github.com/samber/lo"
	"github.com/spf13/cobra"
)

func newValidateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate credentials and discover their region",
		Long:  "Probe each region in order with the given key pair, or with the stored pair when no keys are passed",
		Args:  cobra.NoArgs,
		RunE:  runValidate,
	}
	cmd.Flags().String("api-key", "", "API key to validate")
	cmd.Flags().String("app-key", "", "Application key to validate")
	cmd.MarkFlagsRequiredTogether("api-key", "app-key")
	return cmd
}

func runValidate(cmd *cobra.Command, _ []string) error {
	apiKey, _ := cmd.Flags().GetString("api-key")
	appKey, _ := cmd.Flags().GetString("app-key")

	pterm.Info.Println("Probing regions...")
	result, err := getClient(cmd).Validate(cmd.Context(), apiKey, appKey)
	if err != nil {
		return err
	}

	if !result.IsValid {
		pterm.Warning.Printf("Credentials rejected by all regions (%d attempts)\n", result.Attempts)
		return nil
	}
	pterm.Success.Printf("Credentials valid in %s (%d attempts)\n", result.Region, result.Attempts)
	return nil
}

func newRegionsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "regions",
		Short: "List vendor regions in probe order",
		Args:  cobra.NoArgs,
		RunE:  runRegions,
	}
}

func runRegions(cmd *cobra.Command, _ []string) error {
	regions, err := getClient(cmd).Regions(cmd.Context())
	if err != nil {
		return err
	}

	rows := pterm.TableData{{"#", "ID", "Name", "Site", "API URL", "Active"}}
	for i, r := range regions {
		rows = append(rows, []string{
			fmt.Sprintf("%d", i+1),
			r.ID,
			r.Name,
			r.Site,
			r.APIURL,
			lo.Ternary(r.Active, "yes", ""),
		})
	}

	printTable(rows)
	return nil
}
