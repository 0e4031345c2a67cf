package response

import (
	"log/slog"
	"net/http"

	"github.com/citygallery/citygallery/pkg/apperror"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// Viewer returns the authenticated user ID from the context, if any.
// The second return is false for anonymous requests.
func Viewer(c *gin.Context) (uuid.UUID, bool) {
	userIDStr, exists := c.Get("user_id")
	if !exists {
		return uuid.Nil, false
	}

	userID, err := uuid.Parse(userIDStr.(string))
	if err != nil {
		return uuid.Nil, false
	}

	return userID, true
}

// RequireViewer returns the authenticated user ID or an unauthorized error.
func RequireViewer(c *gin.Context) (uuid.UUID, error) {
	userID, ok := Viewer(c)
	if !ok {
		return uuid.Nil, apperror.ErrUnauthorized
	}
	return userID, nil
}

// Error writes the standardized error envelope {"msg": ...}.
func Error(c *gin.Context, err error) {
	code := apperror.MapErrorToStatus(err)

	// Never leak internal error detail to the client.
	if code == http.StatusInternalServerError {
		slog.Error("internal error", "path", c.FullPath(), "error", err)
		c.JSON(code, gin.H{"msg": "internal server error"})
		return
	}

	c.JSON(code, gin.H{"msg": err.Error()})
}
