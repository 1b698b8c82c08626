package services

import "github.com/dmitrijs2005/flashboard/internal/server/models"

// UserRef identifies a user: ByID, ByEmail or an already loaded Resolved
// record. LoadRawUser is the only place that turns one into a user.
type UserRef interface {
	isUserRef()
}

type ByID int64

type ByEmail string

type Resolved struct {
	User *models.User
}

func (ByID) isUserRef()     {}
func (ByEmail) isUserRef()  {}
func (Resolved) isUserRef() {}

// RoleRef identifies a role by name or by id.
type RoleRef interface {
	isRoleRef()
}

type RoleByName string

type RoleByID int64

func (RoleByName) isRoleRef() {}
func (RoleByID) isRoleRef()   {}
