// pkg/privilege/privilege.go - administrative privilege checks shared by the tools.

package privilege

import (
	"golang.org/x/sys/windows"
)

// IsAdmin verifies whether the current process token is a member of the
// local Administrators group. Running as SYSTEM also satisfies this check.
func IsAdmin() (bool, error) {
	var adminSid *windows.SID
	err := windows.AllocateAndInitializeSid(
		&windows.SECURITY_NT_AUTHORITY,
		2,
		windows.SECURITY_BUILTIN_DOMAIN_RID,
		windows.DOMAIN_ALIAS_RID_ADMINS,
		0, 0, 0, 0, 0, 0,
		&adminSid)
	if err != nil {
		return false, err
	}
	defer windows.FreeSid(adminSid)
	token := windows.Token(0)
	return token.IsMember(adminSid)
}
