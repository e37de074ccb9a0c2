package model

// User is the account returned by the auth endpoints.
type User struct {
	ID             int64      `json:"id"`
	Username       string     `json:"username"`
	Email          string     `json:"email"`
	InfluencerName string     `json:"influencer_name"`
	IsActive       bool       `json:"is_active"`
	PlanType       string     `json:"plan_type"`
	CreatedAt      *Timestamp `json:"created_at,omitempty"`
	UpdatedAt      *Timestamp `json:"updated_at,omitempty"`
}

// Credentials is the login request body.
type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Remember bool   `json:"remember"`
}

// Registration is the sign-up request body.
type Registration struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// ProfileUpdate carries the editable profile fields. Empty fields are
// left untouched by the server.
type ProfileUpdate struct {
	Username          string `json:"username,omitempty"`
	Email             string `json:"email,omitempty"`
	InfluencerName    string `json:"influencer_name,omitempty"`
	InfluencerAddress string `json:"influencer_address,omitempty"`
}

// PasswordChange is the change-password request body.
type PasswordChange struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
	ConfirmPassword string `json:"confirm_password"`
}
