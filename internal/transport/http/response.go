package httptransport

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
)

// ErrorResponse is the body of every non-2xx answer.
type ErrorResponse struct {
	Detail string `json:"detail"`
}

// RespondError writes a JSON error body with the given status.
func RespondError(c *gin.Context, httpStatus int, detail string) {
	c.JSON(httpStatus, ErrorResponse{Detail: detail})
}

// RespondWAV streams a finished WAV as a file download.
func RespondWAV(c *gin.Context, audio []byte, filename string) {
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%s", filename))
	c.Data(http.StatusOK, "audio/wav", audio)
}
