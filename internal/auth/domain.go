package auth

// UserRecord is the slice of a stored user the auth core reads.
type UserRecord struct {
	ID           int64
	Login        string
	PasswordHash string
	RoleID       int
}

// PrincipalView is the JSON shape of a resolved principal.
type PrincipalView struct {
	Kind   string `json:"kind"`
	UserID *int64 `json:"user_id,omitempty"`
	Role   string `json:"role"`
}
