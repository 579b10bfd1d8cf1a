package cache

import "github.com/google/uuid"

// Key identifies one cached read. Keys mirror the server-derived resources:
// the accounts list and single accounts with their pockets.
type Key string

func AccountsKey() Key {
	return Key("accounts")
}

func AccountKey(id uuid.UUID) Key {
	return Key("account/" + id.String())
}
