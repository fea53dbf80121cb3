package repository

import (
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
)

func TestNewRepositories(t *testing.T) {
	pool := &pgxpool.Pool{}
	assert.NotNil(t, NewFlightRepository(pool))
	assert.NotNil(t, NewTicketRepository(pool))
	assert.NotNil(t, NewPrivilegeRepository(pool))
}

func TestAccountRefString(t *testing.T) {
	assert.Equal(t, "Test Max", AccountRef{ID: 3, Username: "Test Max"}.String())
	assert.Equal(t, "#3", AccountRef{ID: 3}.String())
}
