package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var updateCmd = &cobra.Command{
	Use:   "update",
	Short: "Update resources",
}

var updateUserRoleCmd = &cobra.Command{
	Use:   "user-role ID ROLE",
	Short: "Assign a different role to an account (admin only)",
	Long:  `Assigns a different role to an account. Valid roles: user, pro, team, team_admin, admin.`,
	Args:  cobra.ExactArgs(2),
	RunE:  runUpdateUserRole,
}

var updateUserStatusCmd = &cobra.Command{
	Use:   "user-status ID STATUS",
	Short: "Change an account's status (admin only)",
	Long:  `Changes an account's status. Valid statuses: active, inactive, suspended.`,
	Args:  cobra.ExactArgs(2),
	RunE:  runUpdateUserStatus,
}

func init() {
	updateCmd.AddCommand(updateUserRoleCmd)
	updateCmd.AddCommand(updateUserStatusCmd)
}

func runUpdateUserRole(cmd *cobra.Command, args []string) error {
	client := mustClient()

	data, err := client.Put("/api/v1/admin/users/"+args[0]+"/role", map[string]string{
		"role": args[1],
	})
	if err != nil {
		return err
	}

	var resp UserResponse
	if err := unmarshal(data, &resp); err != nil {
		return err
	}

	fmt.Printf("User %s role set to %s.\n", resp.Email, resp.Role)
	return nil
}

func runUpdateUserStatus(cmd *cobra.Command, args []string) error {
	client := mustClient()

	data, err := client.Put("/api/v1/admin/users/"+args[0]+"/status", map[string]string{
		"status": args[1],
	})
	if err != nil {
		return err
	}

	var resp UserResponse
	if err := unmarshal(data, &resp); err != nil {
		return err
	}

	fmt.Printf("User %s status set to %s.\n", resp.Email, resp.Status)
	return nil
}
