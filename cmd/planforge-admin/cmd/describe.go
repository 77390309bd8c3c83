package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var describeCmd = &cobra.Command{
	Use:   "describe",
	Short: "Show detailed information about a resource",
}

var describeUserCmd = &cobra.Command{
	Use:   "user ID",
	Short: "Show details of an account (admin only)",
	Args:  cobra.ExactArgs(1),
	RunE:  runDescribeUser,
}

var describeProjectCmd = &cobra.Command{
	Use:   "project ID",
	Short: "Show details of a project",
	Args:  cobra.ExactArgs(1),
	RunE:  runDescribeProject,
}

func init() {
	describeCmd.AddCommand(describeUserCmd)
	describeCmd.AddCommand(describeProjectCmd)
}

func runDescribeUser(cmd *cobra.Command, args []string) error {
	client := mustClient()
	data, err := client.Get("/api/v1/admin/users/" + args[0])
	if err != nil {
		return err
	}

	var resp UserResponse
	if err := unmarshal(data, &resp); err != nil {
		return err
	}

	switch flagOutput {
	case outputJSON:
		printJSON(resp)
	case outputYAML:
		printYAML(resp)
	default:
		fmt.Printf("ID:          %s\n", resp.ID)
		fmt.Printf("Email:       %s\n", resp.Email)
		fmt.Printf("Name:        %s %s\n", resp.FirstName, resp.LastName)
		fmt.Printf("Role:        %s\n", resp.Role)
		fmt.Printf("Status:      %s\n", resp.Status)
		fmt.Printf("Onboarding:  %s\n", onboardingStr(resp.Onboarding))
		if resp.Onboarding != nil && resp.Onboarding.CompletedAt != nil {
			fmt.Printf("Completed:   %s\n", shortTime(*resp.Onboarding.CompletedAt))
		}
		fmt.Printf("Last Login:  %s\n", ptrStr(resp.LastLoginAt))
		fmt.Printf("Created At:  %s\n", resp.CreatedAt)
		fmt.Printf("Updated At:  %s\n", resp.UpdatedAt)
	}
	return nil
}

func runDescribeProject(cmd *cobra.Command, args []string) error {
	client := mustClient()
	data, err := client.Get("/api/v1/projects/" + args[0])
	if err != nil {
		return err
	}

	var resp ProjectResponse
	if err := unmarshal(data, &resp); err != nil {
		return err
	}

	switch flagOutput {
	case outputJSON:
		printJSON(resp)
	case outputYAML:
		printYAML(resp)
	default:
		fmt.Printf("ID:           %s\n", resp.ID)
		fmt.Printf("Owner:        %s\n", resp.OwnerID)
		fmt.Printf("Name:         %s\n", resp.Name)
		fmt.Printf("Description:  %s\n", resp.Description)
		fmt.Printf("Status:       %s\n", resp.Status)
		fmt.Printf("Plan Model:   %s\n", resp.PlanModel)
		fmt.Printf("Plan At:      %s\n", ptrStr(resp.PlanAt))
		fmt.Printf("Created At:   %s\n", resp.CreatedAt)
		fmt.Printf("Updated At:   %s\n", resp.UpdatedAt)
	}
	return nil
}
