package forum

import "github.com/emilythestrangee/forum-core/backend/internal/apperr"

// Authorize allows a mutation only when the caller is the resource's author.
// There is no role-based override.
func Authorize(resourceAuthorID, callerID string) error {
	if callerID == "" || resourceAuthorID != callerID {
		return apperr.Forbidden("caller is not the author of this resource")
	}
	return nil
}
