package cmd

import (
	"net/url"
	"strconv"

	"github.com/spf13/cobra"
)

var getCmd = &cobra.Command{
	Use:   "get",
	Short: "List resources",
}

var getUsersCmd = &cobra.Command{
	Use:     "users",
	Aliases: []string{"user"},
	Short:   "List accounts (admin only)",
	RunE:    runGetUsers,
}

var getProjectsCmd = &cobra.Command{
	Use:     "projects",
	Aliases: []string{"project"},
	Short:   "List your projects",
	RunE:    runGetProjects,
}

func init() {
	// users flags
	getUsersCmd.Flags().String("email", "", "Filter by email substring")
	getUsersCmd.Flags().String("role", "", "Filter by role (user, pro, team, team_admin, admin)")
	getUsersCmd.Flags().String("status", "", "Filter by status (active, inactive, suspended)")
	getUsersCmd.Flags().Bool("incomplete", false, "Only accounts with incomplete onboarding")
	getUsersCmd.Flags().Int("page", 1, "Page number")
	getUsersCmd.Flags().Int("per-page", 20, "Items per page")

	// projects flags
	getProjectsCmd.Flags().Int("page", 1, "Page number")
	getProjectsCmd.Flags().Int("per-page", 20, "Items per page")

	getCmd.AddCommand(getUsersCmd)
	getCmd.AddCommand(getProjectsCmd)
}

func runGetUsers(cmd *cobra.Command, args []string) error {
	client := mustClient()

	params := url.Values{}
	if v, _ := cmd.Flags().GetString("email"); v != "" {
		params.Set("email", v)
	}
	if v, _ := cmd.Flags().GetString("role"); v != "" {
		params.Set("role", v)
	}
	if v, _ := cmd.Flags().GetString("status"); v != "" {
		params.Set("status", v)
	}
	if v, _ := cmd.Flags().GetBool("incomplete"); v {
		params.Set("incomplete", "true")
	}
	if v, _ := cmd.Flags().GetInt("page"); v > 0 {
		params.Set("page", strconv.Itoa(v))
	}
	if v, _ := cmd.Flags().GetInt("per-page"); v > 0 {
		params.Set("per_page", strconv.Itoa(v))
	}

	path := "/api/v1/admin/users"
	if q := params.Encode(); q != "" {
		path += "?" + q
	}

	data, err := client.Get(path)
	if err != nil {
		return err
	}

	var resp UserListResponse
	if err := unmarshal(data, &resp); err != nil {
		return err
	}

	switch flagOutput {
	case outputJSON:
		printJSON(resp)
	case outputYAML:
		printYAML(resp)
	case outputWide:
		t := newTable("ID", "EMAIL", "NAME", "ROLE", "STATUS", "ONBOARDING", "LAST LOGIN", "CREATED")
		for _, u := range resp.Data {
			t.AddRow(u.ID, u.Email, u.FirstName+" "+u.LastName, u.Role, u.Status,
				onboardingStr(u.Onboarding), ptrStr(u.LastLoginAt), shortTime(u.CreatedAt))
		}
		t.Flush()
		printPagination(resp.Total, resp.Page, resp.PerPage, resp.TotalPages)
	default:
		t := newTable("ID", "EMAIL", "ROLE", "STATUS", "ONBOARDING")
		for _, u := range resp.Data {
			t.AddRow(truncate(u.ID, 12), u.Email, u.Role, u.Status, onboardingStr(u.Onboarding))
		}
		t.Flush()
		printPagination(resp.Total, resp.Page, resp.PerPage, resp.TotalPages)
	}
	return nil
}

func runGetProjects(cmd *cobra.Command, args []string) error {
	client := mustClient()

	params := url.Values{}
	if v, _ := cmd.Flags().GetInt("page"); v > 0 {
		params.Set("page", strconv.Itoa(v))
	}
	if v, _ := cmd.Flags().GetInt("per-page"); v > 0 {
		params.Set("per_page", strconv.Itoa(v))
	}

	path := "/api/v1/projects"
	if q := params.Encode(); q != "" {
		path += "?" + q
	}

	data, err := client.Get(path)
	if err != nil {
		return err
	}

	var resp ProjectListResponse
	if err := unmarshal(data, &resp); err != nil {
		return err
	}

	switch flagOutput {
	case outputJSON:
		printJSON(resp)
	case outputYAML:
		printYAML(resp)
	case outputWide:
		t := newTable("ID", "NAME", "STATUS", "PLAN MODEL", "PLAN AT", "CREATED")
		for _, p := range resp.Data {
			t.AddRow(p.ID, p.Name, p.Status, p.PlanModel, ptrStr(p.PlanAt), shortTime(p.CreatedAt))
		}
		t.Flush()
		printPagination(resp.Total, resp.Page, resp.PerPage, resp.TotalPages)
	default:
		t := newTable("ID", "NAME", "STATUS", "PLAN")
		for _, p := range resp.Data {
			plan := "-"
			if p.PlanModel != "" {
				plan = "yes"
			}
			t.AddRow(truncate(p.ID, 12), truncate(p.Name, 40), p.Status, plan)
		}
		t.Flush()
		printPagination(resp.Total, resp.Page, resp.PerPage, resp.TotalPages)
	}
	return nil
}
