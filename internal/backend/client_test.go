package backend

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/jarcoal/httpmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"boatcatalog/internal/domain/catalog"
	"boatcatalog/internal/media"
)

const testBaseURL = "https://backend.example.com"

func setupClient(t *testing.T, cfg Config) *Client {
	t.Helper()
	hc := &http.Client{}
	httpmock.ActivateNonDefault(hc)
	t.Cleanup(httpmock.DeactivateAndReset)

	if cfg.BaseURL == "" {
		cfg.BaseURL = testBaseURL
	}
	return New(cfg, WithHTTPClient(hc))
}

func signedToken(t *testing.T, exp time.Time) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "admin",
		"exp": exp.Unix(),
	}).SignedString([]byte("backend-secret"))
	require.NoError(t, err)
	return token
}

func registerLogin(t *testing.T, body string) {
	t.Helper()
	httpmock.RegisterResponder(http.MethodPost, testBaseURL+"/api/auth/login",
		func(req *http.Request) (*http.Response, error) {
			var creds map[string]string
			if err := json.NewDecoder(req.Body).Decode(&creds); err != nil {
				return httpmock.NewStringResponse(http.StatusBadRequest, ""), nil
			}
			if creds["email"] != "admin@example.com" || creds["password"] != "secret" {
				return httpmock.NewStringResponse(http.StatusUnauthorized, `{"error":"bad credentials"}`), nil
			}
			return httpmock.NewStringResponse(http.StatusOK, body), nil
		})
}

func credentials() Config {
	return Config{Email: "admin@example.com", Password: "secret"}
}

func TestListModels_BareAndEnvelope(t *testing.T) {
	bodies := map[string]string{
		"bare":     `[{"id":1,"name":"TL850","imageFile":"850TL - 1.jpg"}]`,
		"envelope": `{"data":[{"id":1,"name":"TL850","imageFile":"850TL - 1.jpg"}]}`,
	}

	for name, body := range bodies {
		t.Run(name, func(t *testing.T) {
			c := setupClient(t, Config{})
			httpmock.RegisterResponder(http.MethodGet, testBaseURL+"/api/models",
				httpmock.NewStringResponder(http.StatusOK, body))

			models, err := c.ListModels(context.Background())

			require.NoError(t, err)
			require.Len(t, models, 1)
			assert.Equal(t, catalog.EntityID("1"), models[0].ID)
			assert.Equal(t, media.Ref("850TL - 1.jpg"), models[0].ImageFile)
		})
	}
}

func TestGetModel_NotFound(t *testing.T) {
	c := setupClient(t, Config{})
	httpmock.RegisterResponder(http.MethodGet, testBaseURL+"/api/models/99",
		httpmock.NewStringResponder(http.StatusNotFound, `{"error":"not found"}`))

	_, err := c.GetModel(context.Background(), "99")

	require.Error(t, err)
	assert.True(t, IsNotFound(err))

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.MethodGet, apiErr.Method)
	assert.Contains(t, apiErr.Body, "not found")
}

func TestGet_CachedUntilWrite(t *testing.T) {
	c := setupClient(t, credentials())
	registerLogin(t, `{"token":"opaque"}`)
	httpmock.RegisterResponder(http.MethodGet, testBaseURL+"/api/categories",
		httpmock.NewStringResponder(http.StatusOK, `[{"id":"7","name":"TopLine","mainGroup":"boats"}]`))
	httpmock.RegisterResponder(http.MethodPut, testBaseURL+"/api/categories/7",
		httpmock.NewStringResponder(http.StatusOK, `{"id":"7","name":"TopLine"}`))

	ctx := context.Background()
	_, err := c.ListCategories(ctx)
	require.NoError(t, err)
	_, err = c.ListCategories(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, httpmock.GetCallCountInfo()["GET "+testBaseURL+"/api/categories"])

	_, err = c.UpdateCategory(ctx, "7", catalog.Category{ID: "7", Name: "TopLine"})
	require.NoError(t, err)

	_, err = c.ListCategories(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, httpmock.GetCallCountInfo()["GET "+testBaseURL+"/api/categories"])
}

func TestGet_CacheDisabled(t *testing.T) {
	c := setupClient(t, Config{CacheTTL: -1})
	httpmock.RegisterResponder(http.MethodGet, testBaseURL+"/api/events",
		httpmock.NewStringResponder(http.StatusOK, `[{"title":"Boat show"}]`))

	ctx := context.Background()
	for i := 0; i < 3; i++ {
		events, err := c.ListEvents(ctx)
		require.NoError(t, err)
		require.Len(t, events, 1)
		assert.JSONEq(t, `{"title":"Boat show"}`, string(events[0]))
	}
	assert.Equal(t, 3, httpmock.GetTotalCallCount())
}

func TestLogin_TokenShapes(t *testing.T) {
	cases := map[string]string{
		"token":        `{"token":"t1"}`,
		"accessToken":  `{"accessToken":"t1"}`,
		"data.token":   `{"data":{"token":"t1"}}`,
		"data.access":  `{"data":{"accessToken":"t1"}}`,
		"first filled": `{"token":"","accessToken":"t1"}`,
	}

	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			c := setupClient(t, credentials())
			registerLogin(t, body)

			token, err := c.Login(context.Background())

			require.NoError(t, err)
			assert.Equal(t, "t1", token)
		})
	}
}

func TestLogin_NoToken(t *testing.T) {
	c := setupClient(t, credentials())
	registerLogin(t, `{"user":{"id":1}}`)

	_, err := c.Login(context.Background())

	assert.ErrorIs(t, err, ErrNoToken)
}

func TestLogin_MissingCredentials(t *testing.T) {
	c := setupClient(t, Config{})

	_, err := c.Login(context.Background())

	assert.ErrorIs(t, err, ErrNoCredentials)
	assert.Zero(t, httpmock.GetTotalCallCount())
}

func TestLogin_ReusesTokenUntilExpiry(t *testing.T) {
	c := setupClient(t, credentials())
	registerLogin(t, `{"token":"`+signedToken(t, time.Now().Add(time.Hour))+`"}`)

	ctx := context.Background()
	first, err := c.Login(ctx)
	require.NoError(t, err)
	second, err := c.Login(ctx)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, 1, httpmock.GetTotalCallCount())
}

func TestLogin_RefreshesNearExpiry(t *testing.T) {
	c := setupClient(t, credentials())
	registerLogin(t, `{"token":"`+signedToken(t, time.Now().Add(10*time.Second))+`"}`)

	ctx := context.Background()
	_, err := c.Login(ctx)
	require.NoError(t, err)
	_, err = c.Login(ctx)
	require.NoError(t, err)

	assert.Equal(t, 2, httpmock.GetTotalCallCount())
}

func TestTokenExpiry(t *testing.T) {
	now := time.Now()
	exp := now.Add(time.Hour).Truncate(time.Second)

	assert.WithinDuration(t, exp.Add(-tokenLeeway), tokenExpiry(signedToken(t, exp), now), time.Second)
	assert.WithinDuration(t, now.Add(opaqueTokenTTL), tokenExpiry("opaque", now), time.Second)
}

func TestUpdateModel_SendsBearerAndPayload(t *testing.T) {
	c := setupClient(t, credentials())
	registerLogin(t, `{"token":"t1"}`)

	var gotAuth string
	var gotBody map[string]any
	httpmock.RegisterResponder(http.MethodPut, testBaseURL+"/api/models/5",
		func(req *http.Request) (*http.Response, error) {
			gotAuth = req.Header.Get("Authorization")
			_ = json.NewDecoder(req.Body).Decode(&gotBody)
			return httpmock.NewStringResponse(http.StatusOK, `{"data":{"id":5,"name":"TL850","imageFile":"foo.jpg"}}`), nil
		})

	out, err := c.UpdateModel(context.Background(), "5", catalog.Model{ID: "5", Name: "TL850", ImageFile: "foo.jpg"})

	require.NoError(t, err)
	assert.Equal(t, "Bearer t1", gotAuth)
	assert.Equal(t, "foo.jpg", gotBody["imageFile"])
	assert.Equal(t, []any{}, gotBody["galleryFiles"])
	assert.Equal(t, media.Ref("foo.jpg"), out.ImageFile)
}

func TestWrite_UnauthorizedDropsToken(t *testing.T) {
	c := setupClient(t, credentials())
	registerLogin(t, `{"token":"t1"}`)
	httpmock.RegisterResponder(http.MethodPut, testBaseURL+"/api/models/5",
		httpmock.NewStringResponder(http.StatusUnauthorized, `{"error":"expired"}`))

	ctx := context.Background()
	_, err := c.UpdateModel(ctx, "5", catalog.Model{Name: "TL850"})
	require.Error(t, err)
	assert.Equal(t, http.StatusUnauthorized, StatusOf(err))

	_, err = c.UpdateModel(ctx, "5", catalog.Model{Name: "TL850"})
	require.Error(t, err)
	assert.Equal(t, 2, httpmock.GetCallCountInfo()["POST "+testBaseURL+"/api/auth/login"])
}

func TestUpload_ReturnsRef(t *testing.T) {
	cases := map[string]struct {
		body string
		want string
	}{
		"url":             {`{"url":"https://res.cloudinary.com/demo/a.jpg"}`, "https://res.cloudinary.com/demo/a.jpg"},
		"data url":        {`{"data":{"url":"https://res.cloudinary.com/demo/a.jpg"}}`, "https://res.cloudinary.com/demo/a.jpg"},
		"legacy filename": {`{"filename":"/uploads/a.jpg"}`, "a.jpg"},
	}

	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			c := setupClient(t, credentials())
			registerLogin(t, `{"token":"t1"}`)

			var gotName, gotContent string
			httpmock.RegisterResponder(http.MethodPost, testBaseURL+"/api/upload",
				func(req *http.Request) (*http.Response, error) {
					file, header, err := req.FormFile("file")
					if err != nil {
						return httpmock.NewStringResponse(http.StatusBadRequest, err.Error()), nil
					}
					defer file.Close()
					data, _ := io.ReadAll(file)
					gotName = header.Filename
					gotContent = string(data)
					return httpmock.NewStringResponse(http.StatusOK, tc.body), nil
				})

			ref, err := c.Upload(context.Background(), "a.jpg", "image/jpeg", strings.NewReader("jpeg-bytes"))

			require.NoError(t, err)
			assert.Equal(t, tc.want, ref)
			assert.Equal(t, "a.jpg", gotName)
			assert.Equal(t, "jpeg-bytes", gotContent)
		})
	}
}

func TestUpload_NoRef(t *testing.T) {
	c := setupClient(t, credentials())
	registerLogin(t, `{"token":"t1"}`)
	httpmock.RegisterResponder(http.MethodPost, testBaseURL+"/api/upload",
		httpmock.NewStringResponder(http.StatusOK, `{"ok":true}`))

	_, err := c.Upload(context.Background(), "a.jpg", "", strings.NewReader("x"))

	assert.ErrorIs(t, err, media.ErrNoUploadRef)
}

func TestSubmitContact(t *testing.T) {
	c := setupClient(t, Config{})
	var got ContactForm
	httpmock.RegisterResponder(http.MethodPost, testBaseURL+"/api/contact",
		func(req *http.Request) (*http.Response, error) {
			_ = json.NewDecoder(req.Body).Decode(&got)
			return httpmock.NewStringResponse(http.StatusCreated, `{"success":true}`), nil
		})

	form := ContactForm{Name: "Ann", Email: "ann@example.com", Message: "Price for TL850?"}
	require.NoError(t, c.SubmitContact(context.Background(), form))
	assert.Equal(t, form, got)
}
