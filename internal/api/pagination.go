package api

import (
	"strconv"

	"github.com/gin-gonic/gin"
)

// Page holds the resolved pagination window for a list request.
type Page struct {
	Number int
	Limit  int
}

func (p Page) Offset() int {
	return (p.Number - 1) * p.Limit
}

// pageFromQuery reads page-number pagination from the query string. The
// default page size is configurable and a `limit` parameter overrides it
// per request.
func pageFromQuery(c *gin.Context, defaultSize int) Page {
	page := Page{Number: 1, Limit: defaultSize}

	if v := c.Query("page"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			page.Number = n
		}
	}
	if v := c.Query("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			page.Limit = n
		}
	}
	return page
}

// paginated is the list response envelope.
func paginated(count int64, results interface{}) gin.H {
	return gin.H{
		"count":   count,
		"results": results,
	}
}
