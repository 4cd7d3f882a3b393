package vaultclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/hasura/go-graphql-client"
)

// User is the API's user representation.
type User struct {
	ID        string  `graphql:"id" json:"id"`
	Name      string  `graphql:"name" json:"name"`
	Email     string  `graphql:"email" json:"email"`
	AvatarURL *string `graphql:"avatarUrl" json:"avatarUrl"`
}

// ImageAsset is the API's asset representation.
type ImageAsset struct {
	ID           string   `graphql:"id" json:"id"`
	Name         string   `graphql:"name" json:"name"`
	FileName     string   `graphql:"fileName" json:"fileName"`
	URL          string   `graphql:"url" json:"url"`
	ThumbnailURL *string  `graphql:"thumbnailUrl" json:"thumbnailUrl"`
	FileSize     int      `graphql:"fileSize" json:"fileSize"`
	MimeType     string   `graphql:"mimeType" json:"mimeType"`
	Width        *int     `graphql:"width" json:"width"`
	Height       *int     `graphql:"height" json:"height"`
	Tags         []string `graphql:"tags" json:"tags"`
	Description  *string  `graphql:"description" json:"description"`
	AltText      *string  `graphql:"altText" json:"altText"`
}

// AssetPage is one page of a user's assets.
type AssetPage struct {
	Data          []ImageAsset `graphql:"data" json:"data"`
	PaginatorInfo struct {
		Count        int  `graphql:"count" json:"count"`
		CurrentPage  int  `graphql:"currentPage" json:"currentPage"`
		LastPage     int  `graphql:"lastPage" json:"lastPage"`
		PerPage      int  `graphql:"perPage" json:"perPage"`
		Total        int  `graphql:"total" json:"total"`
		HasMorePages bool `graphql:"hasMorePages" json:"hasMorePages"`
	} `graphql:"paginatorInfo" json:"paginatorInfo"`
}

type tokenPayload struct {
	AccessToken string `graphql:"accessToken" json:"accessToken"`
	TokenType   string `graphql:"tokenType" json:"tokenType"`
	ExpiresIn   int    `graphql:"expiresIn" json:"expiresIn"`
	User        User   `graphql:"user" json:"user"`
}

// Client talks to a MediaVault server. It injects the session's bearer token
// into every call and logs the session out when the server rejects it.
type Client struct {
	endpoint string
	gql      *graphql.Client
	http     *http.Client
	session  *Session
	now      func() time.Time
}

// ClientOption customizes a Client.
type ClientOption func(*Client)

// WithHTTPClient overrides the underlying HTTP client. Its transport is
// still wrapped to inject the bearer token.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) { c.http = hc }
}

// WithClientClock overrides the time source used to compute token expiry.
func WithClientClock(now func() time.Time) ClientOption {
	return func(c *Client) { c.now = now }
}

// New creates a client for the given GraphQL endpoint. Session state is
// persisted through store; pass NewMemoryTokenStore() for throwaway
// sessions. Call c.Session().Start() to resume a persisted session.
func New(endpoint string, store TokenStore, opts ...ClientOption) *Client {
	c := &Client{
		endpoint: endpoint,
		http:     &http.Client{Timeout: 30 * time.Second},
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}

	c.session = NewSession(c.refreshToken, store)

	base := c.http.Transport
	if base == nil {
		base = http.DefaultTransport
	}
	authed := *c.http
	authed.Transport = &authTransport{base: base, session: c.session}
	c.http = &authed

	c.gql = graphql.NewClient(endpoint, c.http)
	return c
}

// Session exposes the token lifecycle manager.
func (c *Client) Session() *Session {
	return c.session
}

// Login exchanges credentials for a token and starts the session.
func (c *Client) Login(ctx context.Context, email, password string) (*User, error) {
	var m struct {
		IssueToken tokenPayload `graphql:"issueToken(email: $email, password: $password)"`
	}
	vars := map[string]interface{}{
		"email":    graphql.String(email),
		"password": graphql.String(password),
	}
	if err := c.gql.Mutate(ctx, &m, vars); err != nil {
		return nil, err
	}
	if err := c.adoptToken(m.IssueToken); err != nil {
		return nil, err
	}
	return &m.IssueToken.User, nil
}

// Register creates an account and starts the session.
func (c *Client) Register(ctx context.Context, name, email, password string) (*User, error) {
	var m struct {
		RegisterUser tokenPayload `graphql:"registerUser(name: $name, email: $email, password: $password)"`
	}
	vars := map[string]interface{}{
		"name":     graphql.String(name),
		"email":    graphql.String(email),
		"password": graphql.String(password),
	}
	if err := c.gql.Mutate(ctx, &m, vars); err != nil {
		return nil, err
	}
	if err := c.adoptToken(m.RegisterUser); err != nil {
		return nil, err
	}
	return &m.RegisterUser.User, nil
}

// Logout clears the session.
func (c *Client) Logout() {
	c.session.Logout()
}

// Me returns the authenticated user's profile.
func (c *Client) Me(ctx context.Context) (*User, error) {
	var q struct {
		Me User `graphql:"me"`
	}
	if err := c.do(ctx, func() error { return c.gql.Query(ctx, &q, nil) }); err != nil {
		return nil, err
	}
	return &q.Me, nil
}

// ChangePassword rotates the password. Other sessions are invalidated
// server-side; the token this session presented remains valid until its
// scheduled refresh.
func (c *Client) ChangePassword(ctx context.Context, current, newPassword string) error {
	var m struct {
		ChangePassword struct {
			User User `graphql:"user"`
		} `graphql:"changePassword(currentPassword: $current, newPassword: $new)"`
	}
	vars := map[string]interface{}{
		"current": graphql.String(current),
		"new":     graphql.String(newPassword),
	}
	return c.do(ctx, func() error { return c.gql.Mutate(ctx, &m, vars) })
}

// Assets returns one page of the caller's assets.
func (c *Client) Assets(ctx context.Context, page int) (*AssetPage, error) {
	var q struct {
		ImageAssets AssetPage `graphql:"imageAssets(page: $page)"`
	}
	vars := map[string]interface{}{
		"page": graphql.Int(page),
	}
	if err := c.do(ctx, func() error { return c.gql.Query(ctx, &q, vars) }); err != nil {
		return nil, err
	}
	return &q.ImageAssets, nil
}

// Asset returns a single asset by ID.
func (c *Client) Asset(ctx context.Context, id string) (*ImageAsset, error) {
	var q struct {
		ImageAsset ImageAsset `graphql:"imageAsset(id: $id)"`
	}
	vars := map[string]interface{}{
		"id": graphql.ID(id),
	}
	if err := c.do(ctx, func() error { return c.gql.Query(ctx, &q, vars) }); err != nil {
		return nil, err
	}
	return &q.ImageAsset, nil
}

// AssetDetails is a partial metadata update; nil fields are left unchanged.
type AssetDetails struct {
	Name        *string
	Description *string
	AltText     *string
	Tags        []string
}

// SetAssetDetails patches an asset's metadata. Tags are normalized
// server-side; use NormalizeTags for a client-side preview.
func (c *Client) SetAssetDetails(ctx context.Context, id string, details AssetDetails) (*ImageAsset, error) {
	var m struct {
		SetImageAssetDetails ImageAsset `graphql:"setImageAssetDetails(id: $id, name: $name, description: $description, altText: $altText, tags: $tags)"`
	}
	vars := map[string]interface{}{
		"id":          graphql.ID(id),
		"name":        optionalString(details.Name),
		"description": optionalString(details.Description),
		"altText":     optionalString(details.AltText),
		"tags":        tagsVariable(details.Tags),
	}
	if err := c.do(ctx, func() error { return c.gql.Mutate(ctx, &m, vars) }); err != nil {
		return nil, err
	}
	return &m.SetImageAssetDetails, nil
}

// DeleteAsset removes an asset and its stored files.
func (c *Client) DeleteAsset(ctx context.Context, id string) error {
	var m struct {
		DeleteImageAsset bool `graphql:"deleteImageAsset(id: $id)"`
	}
	vars := map[string]interface{}{
		"id": graphql.ID(id),
	}
	return c.do(ctx, func() error { return c.gql.Mutate(ctx, &m, vars) })
}

// UploadImage uploads an image via the GraphQL multipart request protocol.
func (c *Client) UploadImage(ctx context.Context, fileName string, content io.Reader) (*ImageAsset, error) {
	const query = `mutation ($file: Upload!) {
  uploadImageAsset(file: $file) {
    id name fileName url thumbnailUrl fileSize mimeType width height tags description altText
  }
}`
	var resp struct {
		UploadImageAsset ImageAsset `json:"uploadImageAsset"`
	}
	if err := c.multipart(ctx, query, fileName, content, &resp); err != nil {
		return nil, err
	}
	return &resp.UploadImageAsset, nil
}

// SetAvatar uploads a profile picture.
func (c *Client) SetAvatar(ctx context.Context, fileName string, content io.Reader) (*User, error) {
	const query = `mutation ($file: Upload!) {
  setAvatar(file: $file) { id name email avatarUrl }
}`
	var resp struct {
		SetAvatar User `json:"setAvatar"`
	}
	if err := c.multipart(ctx, query, fileName, content, &resp); err != nil {
		return nil, err
	}
	return &resp.SetAvatar, nil
}

// refreshToken is the Session's RefreshFunc. The possibly expired token is
// presented explicitly: the server accepts it within the refresh grace
// window.
func (c *Client) refreshToken(ctx context.Context, currentToken string) (*AccessToken, error) {
	body, err := json.Marshal(map[string]interface{}{
		"query": `mutation { refreshToken { accessToken tokenType expiresIn } }`,
	})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+currentToken)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var decoded struct {
		Data struct {
			RefreshToken tokenPayload `json:"refreshToken"`
		} `json:"data"`
		Errors []struct {
			Message string `json:"message"`
		} `json:"errors"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("decoding refresh response: %w", err)
	}
	if len(decoded.Errors) > 0 {
		return nil, fmt.Errorf("refresh rejected: %s", decoded.Errors[0].Message)
	}
	return c.buildToken(decoded.Data.RefreshToken), nil
}

func (c *Client) adoptToken(payload tokenPayload) error {
	return c.session.SetToken(c.buildToken(payload))
}

func (c *Client) buildToken(payload tokenPayload) *AccessToken {
	expiresAt, err := DecodeExpiry(payload.AccessToken)
	if err != nil {
		expiresAt = c.now().Add(time.Duration(payload.ExpiresIn) * time.Second)
	}
	return &AccessToken{
		Token:     payload.AccessToken,
		TokenType: payload.TokenType,
		ExpiresAt: expiresAt,
	}
}

// do runs an API call and logs out when the server no longer accepts the
// session.
func (c *Client) do(ctx context.Context, call func() error) error {
	err := call()
	if err != nil {
		c.session.HandleUnauthenticated(err)
	}
	return err
}

// multipart posts a query with one file variable per the GraphQL multipart
// request protocol.
func (c *Client) multipart(ctx context.Context, query, fileName string, content io.Reader, out interface{}) error {
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	operations, err := json.Marshal(map[string]interface{}{
		"query":     query,
		"variables": map[string]interface{}{"file": nil},
	})
	if err != nil {
		return err
	}
	if err := writer.WriteField("operations", string(operations)); err != nil {
		return err
	}
	if err := writer.WriteField("map", `{"0":["variables.file"]}`); err != nil {
		return err
	}
	part, err := writer.CreateFormFile("0", fileName)
	if err != nil {
		return err
	}
	if _, err := io.Copy(part, content); err != nil {
		return err
	}
	if err := writer.Close(); err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, &body)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	var decoded struct {
		Data   json.RawMessage `json:"data"`
		Errors graphql.Errors  `json:"errors"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return fmt.Errorf("decoding upload response: %w", err)
	}
	if len(decoded.Errors) > 0 {
		c.session.HandleUnauthenticated(decoded.Errors)
		return decoded.Errors
	}
	if err := json.Unmarshal(decoded.Data, out); err != nil {
		return fmt.Errorf("decoding upload payload: %w", err)
	}
	return nil
}

func optionalString(s *string) *graphql.String {
	if s == nil {
		return nil
	}
	v := graphql.String(*s)
	return &v
}

func tagsVariable(tags []string) []graphql.String {
	if tags == nil {
		return nil
	}
	out := make([]graphql.String, len(tags))
	for i, t := range tags {
		out[i] = graphql.String(t)
	}
	return out
}

// authTransport injects the session's bearer token and forces logout on
// HTTP 401 responses.
type authTransport struct {
	base    http.RoundTripper
	session *Session
}

func (t *authTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if req.Header.Get("Authorization") == "" {
		if token := t.session.Token(); token != "" {
			req = req.Clone(req.Context())
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}

	resp, err := t.base.RoundTrip(req)
	if err == nil && resp.StatusCode == http.StatusUnauthorized {
		t.session.Logout()
	}
	return resp, err
}
