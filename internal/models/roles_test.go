package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRoleFromString(t *testing.T) {
	role, ok := RoleFromString("admin")
	assert.True(t, ok)
	assert.Equal(t, RoleAdmin, role)

	role, ok = RoleFromString("citizen")
	assert.True(t, ok)
	assert.Equal(t, RoleCitizen, role)

	_, ok = RoleFromString("moderator")
	assert.False(t, ok)

	_, ok = RoleFromString("")
	assert.False(t, ok)
}

func TestRoleIsAdmin(t *testing.T) {
	assert.True(t, RoleAdmin.IsAdmin())
	assert.False(t, RoleCitizen.IsAdmin())
}
