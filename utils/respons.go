package utils

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

type JSONResponse struct {
	Status  bool        `json:"status"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

type PaginatedData struct {
	Items      interface{} `json:"data"`
	Pagination Pagination  `json:"pagination"`
}

func RespondJSON(c *gin.Context, code int, message string, data interface{}) {
	c.JSON(code, JSONResponse{
		Status:  code >= 200 && code < 300,
		Message: message,
		Data:    data,
	})
}

func RespondError(c *gin.Context, code int, err error) {
	c.JSON(code, JSONResponse{
		Status:  false,
		Message: err.Error(),
		Data:    nil,
	})
}

func RespondPage(c *gin.Context, message string, items interface{}, page Page, total int64) {
	RespondJSON(c, http.StatusOK, message, PaginatedData{
		Items:      items,
		Pagination: NewPagination(page, total),
	})
}

// RespondBindingError reports a request body that failed to bind or validate.
func RespondBindingError(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, JSONResponse{
		Status:  false,
		Message: FormatBindingError(err),
	})
}
