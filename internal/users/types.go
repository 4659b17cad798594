package users

// CreateUserRequest represents the data needed to register a new user.
type CreateUserRequest struct {
	Username    string `json:"username"`
	Email       string `json:"email"`
	DisplayName string `json:"display_name"`
	InviteCode  string `json:"invite_code"`
}

// UpdateUserRequest represents the fields a user may change after signup.
type UpdateUserRequest struct {
	Username    string `json:"username"`
	Email       string `json:"email"`
	DisplayName string `json:"display_name"`
}
