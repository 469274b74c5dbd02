package models

// Identity is the read-only view of a signed-in user that the identity
// provider hands out. Nothing here is persisted by bugless itself.
type Identity struct {
	UID          string `json:"uid"`
	Email        string `json:"email"`
	DisplayName  string `json:"displayName"`
	CreationTime string `json:"creationTime"`
	Provider     string `json:"provider"`
}
