package domain

// User is the signed-in shopper or administrator record kept in the
// session store. Field names match the record the storefront has always
// persisted.
type User struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	IsAdmin  bool   `json:"isAdmin"`
}
