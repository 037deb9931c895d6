package models

import "github.com/golang-jwt/jwt/v5"

// UserRole represents the society roles recognised by the approval chains.
type UserRole string

const (
	RoleSocietyAdmin    UserRole = "SOCIETY_ADMIN"
	RoleTreasurer       UserRole = "TREASURER"
	RoleJointTreasurer  UserRole = "JOINT_TREASURER"
	RoleCommitteeMember UserRole = "COMMITTEE_MEMBER"
	RoleStaff           UserRole = "STAFF"
)

// JWTClaims is the identity context supplied by the external auth
// collaborator. Role values are trusted verbatim.
type JWTClaims struct {
	UserID    string   `json:"user_id"`
	SocietyID string   `json:"society_id"`
	Role      UserRole `json:"role"`
	jwt.RegisteredClaims
}

// Pagination contains pagination metadata returned in list responses.
type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalCount int `json:"total_count"`
}
