package models

// Permission names checked by the API
const (
	PermUploadBrand             = "UPLOAD_BRAND"
	PermUploadPolish            = "UPLOAD_POLISH"
	PermUploadDupe              = "UPLOAD_DUPE"
	PermManageRoles             = "MANAGE_ROLES"
	PermManageBrandSubmissions  = "MANAGE_BRAND_SUBMISSIONS"
	PermManagePolishSubmissions = "MANAGE_POLISH_SUBMISSIONS"
	PermManageSubmissions       = "MANAGE_SUBMISSIONS"
)

// Default role names seeded with the schema
const (
	RoleNameUser      = "User"
	RoleNameModerator = "Moderator"
	RoleNameAdmin     = "Admin"
)

// ManagePermission returns the permission a reviewer needs to moderate
// submissions of the given kind.
func ManagePermission(kind SubmissionKind) string {
	switch kind {
	case SubmissionKindBrand:
		return PermManageBrandSubmissions
	case SubmissionKindPolish:
		return PermManagePolishSubmissions
	default:
		return PermManageSubmissions
	}
}

// UploadPermission returns the permission required to submit the given kind
func UploadPermission(kind SubmissionKind) string {
	switch kind {
	case SubmissionKindBrand:
		return PermUploadBrand
	case SubmissionKindPolish:
		return PermUploadPolish
	default:
		return PermUploadDupe
	}
}

// AllPermissions lists every permission seeded with the schema
var AllPermissions = []string{
	PermUploadBrand,
	PermUploadPolish,
	PermUploadDupe,
	PermManageRoles,
	PermManageBrandSubmissions,
	PermManagePolishSubmissions,
	PermManageSubmissions,
}

// DefaultRolePermissions maps each seeded role to the permissions it grants
var DefaultRolePermissions = map[string][]string{
	RoleNameUser: {
		PermUploadBrand,
		PermUploadPolish,
		PermUploadDupe,
	},
	RoleNameModerator: {
		PermUploadBrand,
		PermUploadPolish,
		PermUploadDupe,
		PermManageBrandSubmissions,
		PermManagePolishSubmissions,
		PermManageSubmissions,
	},
	RoleNameAdmin: AllPermissions,
}

// DefaultRoles lists the roles seeded with the schema, in seeding order
var DefaultRoles = []Role{
	{Name: RoleNameUser, Description: "Registered member who can propose catalog entries"},
	{Name: RoleNameModerator, Description: "Reviews brand, polish and dupe submissions"},
	{Name: RoleNameAdmin, Description: "Full access including role management"},
}
