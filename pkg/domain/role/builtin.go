package role

import "github.com/planforge/api/pkg/domain/permission"

// Builtin returns the registry of built-in roles.
//
// The chain is user → pro → team → team_admin; admin is a separate root with
// wildcard permissions and unlimited usage. A fresh registry is built on
// every call so callers can never mutate a shared table.
func Builtin() Registry {
	return Registry{
		User: {
			Name:        User,
			Description: "Standard user with basic permissions",
			Permissions: []permission.Permission{
				"user:read:self",
				"user:update:self",
				"preferences:read:self",
				"preferences:update:self",
				"settings:read:self",
				"settings:update:self",
				"project:create",
				"project:read:own",
				"project:update:own",
				"project:delete:own",
				"plan:create:own",
				"plan:read:own",
				"plan:update:own",
				"plan:delete:own",
				"conversation:create:own",
				"conversation:read:own",
				"conversation:update:own",
			},
			Limits: Limits{
				MaxProjects:                5,
				MaxCollaboratorsPerProject: 1,
				MaxStorageGB:               1,
			},
		},
		Pro: {
			Name:         Pro,
			Description:  "Pro user with enhanced capabilities",
			InheritsFrom: User,
			Permissions: []permission.Permission{
				"api:access",
				"integration:github",
				"integration:jira",
				"integration:trello",
				"feature:advancedPlanning",
				"feature:codeGeneration",
			},
			Limits: Limits{
				MaxProjects:                20,
				MaxCollaboratorsPerProject: 5,
				MaxStorageGB:               10,
			},
		},
		Team: {
			Name:         Team,
			Description:  "Team user with collaboration capabilities",
			InheritsFrom: Pro,
			Permissions: []permission.Permission{
				"user:list:team",
				"project:share",
				"project:read:shared",
				"project:update:shared",
				"plan:read:shared",
				"plan:update:shared",
				"conversation:read:shared",
			},
			Limits: Limits{
				MaxProjects:                50,
				MaxCollaboratorsPerProject: 10,
				MaxStorageGB:               50,
			},
		},
		TeamAdmin: {
			Name:         TeamAdmin,
			Description:  "Team administrator with management capabilities",
			InheritsFrom: Team,
			Permissions: []permission.Permission{
				"team:manage",
				"user:invite",
				"user:disable:team",
				"user:read:team",
				"billing:view",
				"billing:update",
			},
			Limits: Limits{
				MaxProjects:                100,
				MaxCollaboratorsPerProject: 20,
				MaxStorageGB:               100,
			},
		},
		Admin: {
			Name:        Admin,
			Description: "System administrator with full access",
			Permissions: []permission.Permission{
				"admin:full",
				"user:*",
				"project:*",
				"plan:*",
				"conversation:*",
				"settings:*",
				"preferences:*",
				"billing:*",
				"team:*",
				"integration:*",
				"feature:*",
				"api:*",
				"logs:*",
				"system:*",
			},
			Limits: Limits{
				MaxProjects:                Unlimited,
				MaxCollaboratorsPerProject: Unlimited,
				MaxStorageGB:               Unlimited,
			},
		},
	}
}
