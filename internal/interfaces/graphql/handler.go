package graphql

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/graphql-go/graphql"
	"go.uber.org/zap"

	"github.com/mediavault/backend/internal/infrastructure/logger"
)

// request is a standard GraphQL POST body.
type request struct {
	Query         string                 `json:"query"`
	OperationName string                 `json:"operationName"`
	Variables     map[string]interface{} `json:"variables"`
}

// Handler serves GraphQL over POST, accepting both application/json bodies
// and multipart uploads (see ParseMultipartRequest).
func Handler(schema graphql.Schema) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req request

		if isMultipart(c.Request) {
			parsed, err := ParseMultipartRequest(c.Request)
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{
					"errors": []gin.H{{"message": err.Error()}},
				})
				return
			}
			req = *parsed
		} else if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"errors": []gin.H{{"message": "Invalid GraphQL request body"}},
			})
			return
		}

		result := graphql.Do(graphql.Params{
			Schema:         schema,
			RequestString:  req.Query,
			OperationName:  req.OperationName,
			VariableValues: req.Variables,
			Context:        c.Request.Context(),
		})

		if len(result.Errors) > 0 {
			log := logger.GetGinLogger(c)
			for _, gqlErr := range result.Errors {
				log.Warn("GraphQL error",
					zap.String("message", gqlErr.Message),
					zap.Any("extensions", gqlErr.Extensions))
			}
		}

		// GraphQL responses are 200 even when they carry errors; transport
		// level failures were handled above.
		c.JSON(http.StatusOK, result)
	}
}
