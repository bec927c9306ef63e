package api

// Message catalog. One specific message per precondition-failure kind;
// infrastructure failures surface a generic message without internal detail.
const (
	MsgRoleAdded    = "Role added successfully."
	MsgRoleUpdated  = "Role updated successfully."
	MsgRoleDeleted  = "Role deleted successfully."
	MsgRoleList     = "Roles loaded successfully."
	MsgRoleAssigned = "Role assigned to users successfully."
	MsgRoleExists   = "Role name already exists."
	MsgRoleNotFound = "Role not found."

	MsgMappingAdded    = "Role permission mapping added successfully."
	MsgMappingUpdated  = "Role permission mapping updated successfully."
	MsgMappingDeleted  = "Role permission mapping deleted successfully."
	MsgMappingList     = "Role permission mappings loaded successfully."
	MsgMappingDetail   = "Role permission mapping loaded successfully."
	MsgMappingExists   = "Role permission mapping already exists."
	MsgMappingNotFound = "Role permission mapping not found."

	MsgBumperAdded    = "Bumper added successfully."
	MsgBumperUpdated  = "Bumper updated successfully."
	MsgBumperDeleted  = "Bumper deleted successfully."
	MsgBumperList     = "Bumpers loaded successfully."
	MsgBumperExists   = "Bumper name already exists."
	MsgBumperNotFound = "Bumper not found."

	MsgUserRegistered  = "User registration successful."
	MsgUserAdded       = "User added successfully."
	MsgUserUpdated     = "User updated successfully."
	MsgUserDeleted     = "User deleted successfully."
	MsgUserList        = "Users loaded successfully."
	MsgUserLoggedIn    = "User logged in successfully."
	MsgUserExists      = "User already exists."
	MsgUserNotFound    = "User not found."
	MsgUserInactive    = "User account is inactive."
	MsgEmailVerified   = "Email verified successfully."
	MsgEmailUnverified = "Email address is not verified."
	MsgStatusUpdated   = "User status updated successfully."
	MsgPasswordUpdated = "Password updated successfully."
	MsgPasswordWrong   = "Password does not match."
	MsgResetMailSent   = "Password reset mail sent successfully."

	MsgTreeFetched = "Advertiser dependency data loaded successfully."

	MsgServerError = "Internal server error."
)
