package graphql

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/graphql-go/graphql"

	appidentity "github.com/mediavault/backend/internal/application/identity"
	appmedia "github.com/mediavault/backend/internal/application/media"
	domainidentity "github.com/mediavault/backend/internal/domain/identity"
	"github.com/mediavault/backend/internal/domain/media"
	"github.com/mediavault/backend/internal/domain/shared"
	"github.com/mediavault/backend/internal/infrastructure/storage"
)

// Resolvers bundles the application services the schema delegates to.
type Resolvers struct {
	Auth   *appidentity.AuthService
	Users  *appidentity.UserService
	Upload *appmedia.UploadService
	Assets *appmedia.AssetService
	Store  storage.FileStore
}

// NewSchema builds the executable GraphQL schema.
func NewSchema(r *Resolvers) (graphql.Schema, error) {
	userType := r.userType()
	assetType := r.assetType()
	paginatorType := paginatorInfoType()

	assetPageType := graphql.NewObject(graphql.ObjectConfig{
		Name: "ImageAssetPage",
		Fields: graphql.Fields{
			"data": &graphql.Field{
				Type: graphql.NewNonNull(graphql.NewList(graphql.NewNonNull(assetType))),
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return p.Source.(*appmedia.AssetPage).Assets, nil
				},
			},
			"paginatorInfo": &graphql.Field{
				Type: graphql.NewNonNull(paginatorType),
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return p.Source, nil
				},
			},
		},
	})

	tokenPayloadType := graphql.NewObject(graphql.ObjectConfig{
		Name: "AccessTokenPayload",
		Fields: graphql.Fields{
			"accessToken": &graphql.Field{
				Type: graphql.NewNonNull(graphql.String),
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return p.Source.(*appidentity.TokenResult).Token.AccessToken, nil
				},
			},
			"tokenType": &graphql.Field{
				Type: graphql.NewNonNull(graphql.String),
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return p.Source.(*appidentity.TokenResult).Token.TokenType, nil
				},
			},
			"expiresIn": &graphql.Field{
				Type: graphql.NewNonNull(graphql.Int),
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return p.Source.(*appidentity.TokenResult).Token.ExpiresIn, nil
				},
			},
			"user": &graphql.Field{
				Type: graphql.NewNonNull(userType),
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return p.Source.(*appidentity.TokenResult).User, nil
				},
			},
		},
	})

	changePasswordPayloadType := graphql.NewObject(graphql.ObjectConfig{
		Name: "ChangePasswordPayload",
		Fields: graphql.Fields{
			"user": &graphql.Field{
				Type: graphql.NewNonNull(userType),
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return p.Source, nil
				},
			},
		},
	})

	query := graphql.NewObject(graphql.ObjectConfig{
		Name: "Query",
		Fields: graphql.Fields{
			"me": &graphql.Field{
				Type: userType,
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					user, err := requireUser(p)
					if err != nil {
						return nil, err
					}
					return user, nil
				},
			},
			"imageAsset": &graphql.Field{
				Type: assetType,
				Args: graphql.FieldConfigArgument{
					"id": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.ID)},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					user, err := requireUser(p)
					if err != nil {
						return nil, err
					}
					id, err := uuidArg(p.Args, "id")
					if err != nil {
						return nil, err
					}
					return r.Assets.Get(p.Context, user.ID, id)
				},
			},
			"imageAssets": &graphql.Field{
				Type: graphql.NewNonNull(assetPageType),
				Args: graphql.FieldConfigArgument{
					"page": &graphql.ArgumentConfig{Type: graphql.Int, DefaultValue: 1},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					user, err := requireUser(p)
					if err != nil {
						return nil, err
					}
					page, _ := p.Args["page"].(int)
					return r.Assets.List(p.Context, user.ID, page)
				},
			},
		},
	})

	mutation := graphql.NewObject(graphql.ObjectConfig{
		Name: "Mutation",
		Fields: graphql.Fields{
			"registerUser": &graphql.Field{
				Type: graphql.NewNonNull(tokenPayloadType),
				Args: graphql.FieldConfigArgument{
					"name":     &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
					"email":    &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
					"password": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return r.Auth.Register(p.Context, appidentity.RegisterInput{
						Name:     stringArg(p.Args, "name"),
						Email:    stringArg(p.Args, "email"),
						Password: stringArg(p.Args, "password"),
					})
				},
			},
			"issueToken": &graphql.Field{
				Type: graphql.NewNonNull(tokenPayloadType),
				Args: graphql.FieldConfigArgument{
					"email":    &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
					"password": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return r.Auth.IssueToken(p.Context, appidentity.IssueTokenInput{
						Email:    stringArg(p.Args, "email"),
						Password: stringArg(p.Args, "password"),
					})
				},
			},
			"refreshToken": &graphql.Field{
				Type: graphql.NewNonNull(tokenPayloadType),
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					token := RawTokenFrom(p.Context)
					if token == "" {
						return nil, shared.ErrUnauthenticated
					}
					return r.Auth.Refresh(p.Context, token)
				},
			},
			"changePassword": &graphql.Field{
				Type: graphql.NewNonNull(changePasswordPayloadType),
				Args: graphql.FieldConfigArgument{
					"currentPassword": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
					"newPassword":     &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					user, err := requireUser(p)
					if err != nil {
						return nil, err
					}
					principal := PrincipalFrom(p.Context)
					err = r.Auth.ChangePassword(p.Context, user, principal.Claims, appidentity.ChangePasswordInput{
						CurrentPassword: stringArg(p.Args, "currentPassword"),
						NewPassword:     stringArg(p.Args, "newPassword"),
					})
					if err != nil {
						return nil, err
					}
					return user, nil
				},
			},
			"updateProfile": &graphql.Field{
				Type: graphql.NewNonNull(userType),
				Args: graphql.FieldConfigArgument{
					"name":  &graphql.ArgumentConfig{Type: graphql.String},
					"email": &graphql.ArgumentConfig{Type: graphql.String},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					user, err := requireUser(p)
					if err != nil {
						return nil, err
					}
					return r.Users.UpdateProfile(p.Context, user, appidentity.UpdateProfileInput{
						Name:  optionalStringArg(p.Args, "name"),
						Email: optionalStringArg(p.Args, "email"),
					})
				},
			},
			"setAvatar": &graphql.Field{
				Type: graphql.NewNonNull(userType),
				Args: graphql.FieldConfigArgument{
					"file": &graphql.ArgumentConfig{Type: graphql.NewNonNull(uploadScalar)},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					user, err := requireUser(p)
					if err != nil {
						return nil, err
					}
					file, ok := uploadFromArgs(p.Args, "file")
					if !ok {
						return nil, shared.NewDomainError("INVALID_UPLOAD", "No file was uploaded")
					}
					return r.Users.SetAvatar(p.Context, user, *file)
				},
			},
			"uploadImageAsset": &graphql.Field{
				Type: graphql.NewNonNull(assetType),
				Args: graphql.FieldConfigArgument{
					"file": &graphql.ArgumentConfig{Type: graphql.NewNonNull(uploadScalar)},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					user, err := requireUser(p)
					if err != nil {
						return nil, err
					}
					file, ok := uploadFromArgs(p.Args, "file")
					if !ok {
						return nil, shared.NewDomainError("INVALID_UPLOAD", "No file was uploaded")
					}
					return r.Upload.Upload(p.Context, appmedia.UploadImageInput{
						UserID: user.ID,
						File:   *file,
					})
				},
			},
			"setImageAssetDetails": &graphql.Field{
				Type: graphql.NewNonNull(assetType),
				Args: graphql.FieldConfigArgument{
					"id":          &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.ID)},
					"name":        &graphql.ArgumentConfig{Type: graphql.String},
					"description": &graphql.ArgumentConfig{Type: graphql.String},
					"altText":     &graphql.ArgumentConfig{Type: graphql.String},
					"tags":        &graphql.ArgumentConfig{Type: graphql.NewList(graphql.NewNonNull(graphql.String))},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					user, err := requireUser(p)
					if err != nil {
						return nil, err
					}
					id, err := uuidArg(p.Args, "id")
					if err != nil {
						return nil, err
					}
					return r.Assets.SetDetails(p.Context, appmedia.SetDetailsInput{
						AssetID:     id,
						UserID:      user.ID,
						Name:        optionalStringArg(p.Args, "name"),
						Description: optionalStringArg(p.Args, "description"),
						AltText:     optionalStringArg(p.Args, "altText"),
						Tags:        stringListArg(p.Args, "tags"),
					})
				},
			},
			"deleteImageAsset": &graphql.Field{
				Type: graphql.NewNonNull(graphql.Boolean),
				Args: graphql.FieldConfigArgument{
					"id": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.ID)},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					user, err := requireUser(p)
					if err != nil {
						return nil, err
					}
					id, err := uuidArg(p.Args, "id")
					if err != nil {
						return nil, err
					}
					if err := r.Assets.Delete(p.Context, user.ID, id); err != nil {
						return nil, err
					}
					return true, nil
				},
			},
		},
	})

	return graphql.NewSchema(graphql.SchemaConfig{
		Query:    query,
		Mutation: mutation,
	})
}

func (r *Resolvers) userType() *graphql.Object {
	return graphql.NewObject(graphql.ObjectConfig{
		Name: "User",
		Fields: graphql.Fields{
			"id": &graphql.Field{
				Type: graphql.NewNonNull(graphql.ID),
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return p.Source.(*domainidentity.User).ID.String(), nil
				},
			},
			"name": &graphql.Field{
				Type: graphql.NewNonNull(graphql.String),
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return p.Source.(*domainidentity.User).Name, nil
				},
			},
			"email": &graphql.Field{
				Type: graphql.NewNonNull(graphql.String),
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return p.Source.(*domainidentity.User).Email, nil
				},
			},
			"avatarUrl": &graphql.Field{
				Type: graphql.String,
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					user := p.Source.(*domainidentity.User)
					if user.AvatarPath == "" {
						return nil, nil
					}
					return r.Store.URL(user.AvatarPath), nil
				},
			},
			"createdAt": &graphql.Field{
				Type: graphql.NewNonNull(graphql.String),
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return p.Source.(*domainidentity.User).CreatedAt.Format(time.RFC3339), nil
				},
			},
			"updatedAt": &graphql.Field{
				Type: graphql.NewNonNull(graphql.String),
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return p.Source.(*domainidentity.User).UpdatedAt.Format(time.RFC3339), nil
				},
			},
		},
	})
}

func (r *Resolvers) assetType() *graphql.Object {
	return graphql.NewObject(graphql.ObjectConfig{
		Name: "ImageAsset",
		Fields: graphql.Fields{
			"id": &graphql.Field{
				Type: graphql.NewNonNull(graphql.ID),
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return p.Source.(*media.ImageAsset).ID.String(), nil
				},
			},
			"name": &graphql.Field{
				Type: graphql.NewNonNull(graphql.String),
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return p.Source.(*media.ImageAsset).Name, nil
				},
			},
			"fileName": &graphql.Field{
				Type: graphql.NewNonNull(graphql.String),
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return p.Source.(*media.ImageAsset).FileName, nil
				},
			},
			"url": &graphql.Field{
				Type: graphql.NewNonNull(graphql.String),
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return r.Store.URL(p.Source.(*media.ImageAsset).FilePath), nil
				},
			},
			"thumbnailUrl": &graphql.Field{
				Type: graphql.String,
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					asset := p.Source.(*media.ImageAsset)
					if asset.ThumbnailPath == "" {
						return nil, nil
					}
					return r.Store.URL(asset.ThumbnailPath), nil
				},
			},
			"fileSize": &graphql.Field{
				Type: graphql.NewNonNull(graphql.Int),
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return int(p.Source.(*media.ImageAsset).FileSize), nil
				},
			},
			"fileSizeHuman": &graphql.Field{
				Type: graphql.NewNonNull(graphql.String),
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return humanSize(p.Source.(*media.ImageAsset).FileSize), nil
				},
			},
			"mimeType": &graphql.Field{
				Type: graphql.NewNonNull(graphql.String),
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return p.Source.(*media.ImageAsset).MimeType, nil
				},
			},
			"width": &graphql.Field{
				Type: graphql.Int,
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return p.Source.(*media.ImageAsset).Width, nil
				},
			},
			"height": &graphql.Field{
				Type: graphql.Int,
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return p.Source.(*media.ImageAsset).Height, nil
				},
			},
			"tags": &graphql.Field{
				Type: graphql.NewNonNull(graphql.NewList(graphql.NewNonNull(graphql.String))),
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return p.Source.(*media.ImageAsset).NormalizedTags(), nil
				},
			},
			"description": &graphql.Field{
				Type: graphql.String,
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return p.Source.(*media.ImageAsset).Description, nil
				},
			},
			"altText": &graphql.Field{
				Type: graphql.String,
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return p.Source.(*media.ImageAsset).AltText, nil
				},
			},
			"createdAt": &graphql.Field{
				Type: graphql.NewNonNull(graphql.String),
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return p.Source.(*media.ImageAsset).CreatedAt.Format(time.RFC3339), nil
				},
			},
			"updatedAt": &graphql.Field{
				Type: graphql.NewNonNull(graphql.String),
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return p.Source.(*media.ImageAsset).UpdatedAt.Format(time.RFC3339), nil
				},
			},
		},
	})
}

func paginatorInfoType() *graphql.Object {
	return graphql.NewObject(graphql.ObjectConfig{
		Name: "PaginatorInfo",
		Fields: graphql.Fields{
			"count": &graphql.Field{
				Type: graphql.NewNonNull(graphql.Int),
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return len(p.Source.(*appmedia.AssetPage).Assets), nil
				},
			},
			"currentPage": &graphql.Field{
				Type: graphql.NewNonNull(graphql.Int),
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return p.Source.(*appmedia.AssetPage).CurrentPage, nil
				},
			},
			"lastPage": &graphql.Field{
				Type: graphql.NewNonNull(graphql.Int),
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return p.Source.(*appmedia.AssetPage).LastPage(), nil
				},
			},
			"perPage": &graphql.Field{
				Type: graphql.NewNonNull(graphql.Int),
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return p.Source.(*appmedia.AssetPage).PerPage, nil
				},
			},
			"total": &graphql.Field{
				Type: graphql.NewNonNull(graphql.Int),
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return int(p.Source.(*appmedia.AssetPage).Total), nil
				},
			},
			"hasMorePages": &graphql.Field{
				Type: graphql.NewNonNull(graphql.Boolean),
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return p.Source.(*appmedia.AssetPage).HasMorePages(), nil
				},
			},
		},
	})
}

// requireUser returns the authenticated user or an UNAUTHENTICATED error.
func requireUser(p graphql.ResolveParams) (*domainidentity.User, error) {
	principal := PrincipalFrom(p.Context)
	if principal == nil || principal.User == nil {
		return nil, shared.ErrUnauthenticated
	}
	return principal.User, nil
}

func stringArg(args map[string]interface{}, name string) string {
	s, _ := args[name].(string)
	return s
}

func optionalStringArg(args map[string]interface{}, name string) *string {
	if v, ok := args[name].(string); ok {
		return &v
	}
	return nil
}

func stringListArg(args map[string]interface{}, name string) []string {
	raw, ok := args[name].([]interface{})
	if !ok {
		return nil
	}
	out := make([]string, 0, len(raw))
	for _, v := range raw {
		if s, ok := v.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

func uuidArg(args map[string]interface{}, name string) (uuid.UUID, error) {
	s, _ := args[name].(string)
	id, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, shared.NewDomainError("INVALID_INPUT", fmt.Sprintf("%q is not a valid ID", s))
	}
	return id, nil
}

// humanSize renders a byte count the way the UI shows it, with one decimal
// for KB and above.
func humanSize(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(n)/float64(div), "KMGT"[exp])
}
