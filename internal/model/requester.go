package model

// Requester is the acting principal for a permission check.
//
// A nil *Requester is an anonymous visitor. Callers pass it explicitly to
// every policy, service and feed call.
type Requester struct {
	ID       string `json:"id"`
	Username string `json:"username"`
}

// IsOwner reports whether r is the owner identified by userID.
func (r *Requester) IsOwner(userID string) bool {
	return r != nil && r.ID == userID
}
