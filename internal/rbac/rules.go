package rbac

const (
	RoleStudent = "student"
	RoleAdmin   = "admin"
)

// Permissions checked by the API.
const (
	PermPaperView     = "paper:view"
	PermPaperEdit     = "paper:edit"
	PermResultSubmit  = "result:submit"
	PermResultViewOwn = "result:view-own"
	PermResultViewAll = "result:view-all"
	PermRankView      = "rank:view"
	PermRankViewAll   = "rank:view-all"
	PermRankExport    = "rank:export"
)

// RolePermissions is the default policy.
var RolePermissions = map[string][]string{
	RoleStudent: {
		PermPaperView,
		PermResultSubmit,
		PermResultViewOwn,
		PermRankView,
	},
	RoleAdmin: {
		"*", // everything
	},
}
