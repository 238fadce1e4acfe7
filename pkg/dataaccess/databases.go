package dataaccess

import (
	"github.com/stewardbot/steward/pkg/dataaccess/store"
)

// Guilds is the store file holding guild configuration, keyed by guild ID.
var Guilds *store.File

// Tickets is the store file holding the ticket registry, keyed by thread ID.
var Tickets *store.File
