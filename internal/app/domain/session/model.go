package session

// User is the signed-in operator's profile.
type User struct {
	AdminID          int64  `json:"adminId" yaml:"adminId"`
	Name             string `json:"name" yaml:"name"`
	Email            string `json:"email" yaml:"email"`
	Role             string `json:"role" yaml:"role"`
	AvatarURL        string `json:"avatarUrl,omitempty" yaml:"avatarUrl"`
	Phone            string `json:"phone,omitempty" yaml:"phone"`
	Bio              string `json:"bio,omitempty" yaml:"bio"`
	TwoFactorEnabled bool   `json:"twoFactorEnabled" yaml:"twoFactorEnabled"`
}
