package apihelpers

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson"
)

const (
	defaultPageSize = 20
	maxPageSize     = 200
)

type PaginatedQuery struct {
	Page   int64
	Limit  int64
	Filter bson.M
}

// ParsePaginatedQueryFromCtx reads page/limit plus the optional status
// filter from the query string. Filter fields are allow-listed, the raw
// query is never forwarded to the database.
func ParsePaginatedQueryFromCtx(c *gin.Context) (*PaginatedQuery, error) {
	page, err := strconv.ParseInt(c.DefaultQuery("page", "1"), 10, 64)
	if err != nil {
		return nil, err
	}
	if page < 1 {
		page = 1
	}

	limit, err := strconv.ParseInt(c.DefaultQuery("limit", strconv.Itoa(defaultPageSize)), 10, 64)
	if err != nil {
		return nil, err
	}
	if limit < 1 {
		limit = defaultPageSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}

	filter := bson.M{}
	if status := c.Query("status"); status != "" {
		filter["status"] = status
	}

	return &PaginatedQuery{
		Page:   page,
		Limit:  limit,
		Filter: filter,
	}, nil
}
