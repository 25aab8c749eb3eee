package rbac

// Simple default policy. Expand as needed.
var RolePermissions = map[string][]string{
	"student": {
		"course:view",
		"attempt:start",
		"attempt:submit",
		"result:view-own",
	},
	"teacher": {
		"course:view",
		"course:create",
		"course:update",
		"course:delete",
		"question:*",
		"result:view-all",
	},
	"admin": {
		"*", // everything
	},
}
