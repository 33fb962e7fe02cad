package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/mavericks-edu/mavericks-backend/internal/response"
)

// parsePagination reads page/per_page query params and returns (page, perPage, offset).
func parsePagination(c *gin.Context) (int, int, int) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	perPage, _ := strconv.Atoi(c.DefaultQuery("per_page", "10"))
	if page < 1 {
		page = 1
	}
	if perPage < 1 || perPage > 100 {
		perPage = 10
	}
	return page, perPage, (page - 1) * perPage
}

// parseIntQuery reads an integer query param, falling back to def.
func parseIntQuery(c *gin.Context, key string, def int) int {
	v, err := strconv.Atoi(c.Query(key))
	if err != nil || v < 1 {
		return def
	}
	return v
}

func buildPagination(page, perPage, total int) *response.Pagination {
	return &response.Pagination{
		Page:       page,
		PerPage:    perPage,
		TotalItems: total,
		TotalPages: (total + perPage - 1) / perPage,
	}
}
