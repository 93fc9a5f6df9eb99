package model

// Permission is the access level attached to a credential and its sessions
type Permission string

const (
	PermissionAdmin Permission = "admin"
	PermissionView  Permission = "view"
)

// Credential is a login account loaded from the credentials file
type Credential struct {
	Username   string
	Password   string
	Permission Permission
}
