package graphql

import (
	"github.com/graphql-go/graphql"
	"github.com/graphql-go/graphql/language/ast"

	appmedia "github.com/mediavault/backend/internal/application/media"
)

// uploadScalar carries a multipart file through GraphQL variables. Values are
// injected by the multipart middleware as *media.UploadedFile; uploads cannot
// be written inline in a query document.
var uploadScalar = graphql.NewScalar(graphql.ScalarConfig{
	Name:        "Upload",
	Description: "A file uploaded via the GraphQL multipart request protocol.",
	Serialize: func(value interface{}) interface{} {
		return nil
	},
	ParseValue: func(value interface{}) interface{} {
		if f, ok := value.(*appmedia.UploadedFile); ok {
			return f
		}
		return nil
	},
	ParseLiteral: func(valueAST ast.Value) interface{} {
		return nil
	},
})

// uploadFromArgs extracts the Upload argument injected by the multipart
// middleware.
func uploadFromArgs(args map[string]interface{}, name string) (*appmedia.UploadedFile, bool) {
	f, ok := args[name].(*appmedia.UploadedFile)
	return f, ok && f != nil
}
