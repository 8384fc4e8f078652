package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tendant/simple-cms/pkg/simplecms"
	"github.com/tendant/simple-cms/pkg/simplecms/repo/memory"
)

// setupPostsHandlerTest creates a PostsHandler with in-memory stores and a
// registered "article" type. The returned repository doubles as the taxonomy
// and capability store.
func setupPostsHandlerTest(t *testing.T) (*PostsHandler, simplecms.Service, *memory.Repository) {
	repo := memory.New()

	service, err := simplecms.New(
		simplecms.WithRepository(repo),
		simplecms.WithTaxonomyRepository(repo),
		simplecms.WithCapabilityStore(repo),
	)
	require.NoError(t, err)

	_, err = service.RegisterType(context.Background(), simplecms.BaseType{TypeKey: "article"})
	require.NoError(t, err)

	handler := NewPostsHandler(service, nil)
	return handler, service, repo
}

// setupGuardedPostsTest is like setupPostsHandlerTest but wires a Guard so the
// token and capability middleware run.
func setupGuardedPostsTest(t *testing.T) (*PostsHandler, simplecms.Service, *Guard) {
	repo := memory.New()

	service, err := simplecms.New(
		simplecms.WithRepository(repo),
		simplecms.WithTaxonomyRepository(repo),
		simplecms.WithCapabilityStore(repo),
	)
	require.NoError(t, err)

	_, err = service.RegisterType(context.Background(), simplecms.BaseType{TypeKey: "article"})
	require.NoError(t, err)

	guard := NewGuard([]byte("test-secret"), service, repo)
	handler := NewPostsHandler(service, guard)
	return handler, service, guard
}

// mintToken issues a signed token carrying the given role claim.
func mintToken(t *testing.T, guard *Guard, role simplecms.Role) string {
	_, token, err := guard.TokenAuth().Encode(map[string]interface{}{"role": string(role)})
	require.NoError(t, err)
	return token
}

func itoa(id int64) string {
	return strconv.FormatInt(id, 10)
}

func createArticle(t *testing.T, service simplecms.Service, req simplecms.CreatePostRequest) int64 {
	mgr, err := service.Type("article")
	require.NoError(t, err)

	id, err := mgr.Create(context.Background(), req)
	require.NoError(t, err)
	return id
}

func TestPostsHandler_ListTypes(t *testing.T) {
	handler, _, _ := setupPostsHandlerTest(t)
	router := handler.Routes()

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Types []string `json:"types"`
	}
	err := json.Unmarshal(w.Body.Bytes(), &resp)
	require.NoError(t, err)

	assert.Equal(t, []string{"article"}, resp.Types)
}

func TestPostsHandler_CreatePost_Success(t *testing.T) {
	handler, _, _ := setupPostsHandlerTest(t)
	router := handler.Routes()

	reqBody := CreatePostRequest{
		Title:  "Launch Day",
		Body:   "We shipped.",
		Status: "draft",
	}

	body, err := json.Marshal(reqBody)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/article/posts", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusCreated, w.Code)

	var resp PostResponse
	err = json.Unmarshal(w.Body.Bytes(), &resp)
	require.NoError(t, err)

	assert.NotZero(t, resp.ID)
	assert.Equal(t, "article", resp.Type)
	assert.Equal(t, "Launch Day", resp.Title)
	assert.Equal(t, "launch-day", resp.Slug)
	assert.Equal(t, "draft", resp.Status)
}

func TestPostsHandler_CreatePost_InvalidJSON(t *testing.T) {
	handler, _, _ := setupPostsHandlerTest(t)
	router := handler.Routes()

	req := httptest.NewRequest(http.MethodPost, "/article/posts", bytes.NewReader([]byte(`{"title":`)))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestPostsHandler_CreatePost_MissingTitle(t *testing.T) {
	handler, _, _ := setupPostsHandlerTest(t)
	router := handler.Routes()

	body, err := json.Marshal(CreatePostRequest{Body: "no title"})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/article/posts", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "post title is required")
}

func TestPostsHandler_CreatePost_UnknownType(t *testing.T) {
	handler, _, _ := setupPostsHandlerTest(t)
	router := handler.Routes()

	body, err := json.Marshal(CreatePostRequest{Title: "Orphan"})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/widget/posts", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), "not registered")
}

func TestPostsHandler_GetPost_Success(t *testing.T) {
	handler, service, _ := setupPostsHandlerTest(t)
	router := handler.Routes()

	postID := createArticle(t, service, simplecms.CreatePostRequest{
		Title: "Release Notes",
		Body:  "Bug fixes.",
	})

	req := httptest.NewRequest(http.MethodGet, "/article/posts/"+itoa(postID), nil)
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var resp PostResponse
	err := json.Unmarshal(w.Body.Bytes(), &resp)
	require.NoError(t, err)

	assert.Equal(t, postID, resp.ID)
	assert.Equal(t, "Release Notes", resp.Title)
	assert.Equal(t, "Bug fixes.", resp.Body)
	assert.Equal(t, "published", resp.Status)
}

func TestPostsHandler_GetPost_NotFound(t *testing.T) {
	handler, _, _ := setupPostsHandlerTest(t)
	router := handler.Routes()

	req := httptest.NewRequest(http.MethodGet, "/article/posts/99999", nil)
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestPostsHandler_GetPost_InvalidID(t *testing.T) {
	handler, _, _ := setupPostsHandlerTest(t)
	router := handler.Routes()

	for _, raw := range []string{"abc", "0", "-3"} {
		req := httptest.NewRequest(http.MethodGet, "/article/posts/"+raw, nil)
		w := httptest.NewRecorder()

		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, w.Body.String(), "Invalid post ID")
	}
}

func TestPostsHandler_UpdatePost_Success(t *testing.T) {
	handler, service, _ := setupPostsHandlerTest(t)
	router := handler.Routes()

	postID := createArticle(t, service, simplecms.CreatePostRequest{
		Title: "First Draft",
		Body:  "Rough notes.",
	})

	newBody := "Polished copy."
	reqBody := UpdatePostRequest{Body: &newBody}

	body, err := json.Marshal(reqBody)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPut, "/article/posts/"+itoa(postID), bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var resp PostResponse
	err = json.Unmarshal(w.Body.Bytes(), &resp)
	require.NoError(t, err)

	assert.Equal(t, "Polished copy.", resp.Body)
	assert.Equal(t, "First Draft", resp.Title)
}

func TestPostsHandler_UpdatePost_NotFound(t *testing.T) {
	handler, _, _ := setupPostsHandlerTest(t)
	router := handler.Routes()

	title := "New Title"
	body, err := json.Marshal(UpdatePostRequest{Title: &title})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPut, "/article/posts/99999", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestPostsHandler_DeletePost_Trash(t *testing.T) {
	handler, service, _ := setupPostsHandlerTest(t)
	router := handler.Routes()

	postID := createArticle(t, service, simplecms.CreatePostRequest{Title: "Obsolete"})

	req := httptest.NewRequest(http.MethodDelete, "/article/posts/"+itoa(postID), nil)
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)

	// The post remains readable in the trash
	mgr, err := service.Type("article")
	require.NoError(t, err)

	trashed, err := mgr.Get(context.Background(), postID)
	require.NoError(t, err)
	assert.Equal(t, simplecms.PostStatusTrashed, trashed.Status)
}

func TestPostsHandler_DeletePost_DoubleTrash(t *testing.T) {
	handler, service, _ := setupPostsHandlerTest(t)
	router := handler.Routes()

	postID := createArticle(t, service, simplecms.CreatePostRequest{Title: "Twice Deleted"})

	req := httptest.NewRequest(http.MethodDelete, "/article/posts/"+itoa(postID), nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusNoContent, w.Code)

	req = httptest.NewRequest(http.MethodDelete, "/article/posts/"+itoa(postID), nil)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestPostsHandler_DeletePost_SkipTrash(t *testing.T) {
	handler, service, _ := setupPostsHandlerTest(t)
	router := handler.Routes()

	postID := createArticle(t, service, simplecms.CreatePostRequest{Title: "Gone For Good"})

	req := httptest.NewRequest(http.MethodDelete, "/article/posts/"+itoa(postID)+"?skip_trash=true", nil)
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)

	req = httptest.NewRequest(http.MethodGet, "/article/posts/"+itoa(postID), nil)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestPostsHandler_ListPosts(t *testing.T) {
	handler, service, _ := setupPostsHandlerTest(t)
	router := handler.Routes()

	createArticle(t, service, simplecms.CreatePostRequest{Title: "Public Post"})
	createArticle(t, service, simplecms.CreatePostRequest{Title: "Working Draft", Status: simplecms.PostStatusDraft})
	binnedID := createArticle(t, service, simplecms.CreatePostRequest{Title: "Binned Post"})

	mgr, err := service.Type("article")
	require.NoError(t, err)
	require.NoError(t, mgr.Delete(context.Background(), binnedID, false))

	req := httptest.NewRequest(http.MethodGet, "/article/posts", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var posts []PostResponse
	err = json.Unmarshal(w.Body.Bytes(), &posts)
	require.NoError(t, err)

	// Trashed posts are excluded and the newest post comes first
	require.Len(t, posts, 2)
	assert.Equal(t, "Working Draft", posts[0].Title)
	assert.Equal(t, "Public Post", posts[1].Title)

	req = httptest.NewRequest(http.MethodGet, "/article/posts?status=draft", nil)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	posts = nil
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &posts))
	require.Len(t, posts, 1)
	assert.Equal(t, "Working Draft", posts[0].Title)

	req = httptest.NewRequest(http.MethodGet, "/article/posts?include_trashed=true", nil)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	posts = nil
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &posts))
	assert.Len(t, posts, 3)

	req = httptest.NewRequest(http.MethodGet, "/article/posts?q=working", nil)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	posts = nil
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &posts))
	require.Len(t, posts, 1)
	assert.Equal(t, "Working Draft", posts[0].Title)

	req = httptest.NewRequest(http.MethodGet, "/article/posts?limit=1&offset=1", nil)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	posts = nil
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &posts))
	require.Len(t, posts, 1)
	assert.Equal(t, "Public Post", posts[0].Title)
}

func TestPostsHandler_ListPosts_InvalidStatus(t *testing.T) {
	handler, _, _ := setupPostsHandlerTest(t)
	router := handler.Routes()

	req := httptest.NewRequest(http.MethodGet, "/article/posts?status=bogus", nil)
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "invalid post status")
}

func TestPostsHandler_ListPosts_EmptyIsAnArray(t *testing.T) {
	handler, _, _ := setupPostsHandlerTest(t)
	router := handler.Routes()

	req := httptest.NewRequest(http.MethodGet, "/article/posts", nil)
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, "[]", w.Body.String())
}

func TestPostsHandler_ExistsPost(t *testing.T) {
	handler, service, _ := setupPostsHandlerTest(t)
	router := handler.Routes()

	postID := createArticle(t, service, simplecms.CreatePostRequest{Title: "Unique Launch Post"})

	req := httptest.NewRequest(http.MethodGet, "/article/posts/exists?title="+url.QueryEscape("Unique Launch Post"), nil)
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		ID int64 `json:"id"`
	}
	err := json.Unmarshal(w.Body.Bytes(), &resp)
	require.NoError(t, err)
	assert.Equal(t, postID, resp.ID)
}

func TestPostsHandler_ExistsPost_MissingTitle(t *testing.T) {
	handler, _, _ := setupPostsHandlerTest(t)
	router := handler.Routes()

	req := httptest.NewRequest(http.MethodGet, "/article/posts/exists", nil)
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "Missing required 'title' parameter")
}

func TestPostsHandler_ExistsPost_NotFound(t *testing.T) {
	handler, _, _ := setupPostsHandlerTest(t)
	router := handler.Routes()

	req := httptest.NewRequest(http.MethodGet, "/article/posts/exists?title=Nope", nil)
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestPostsHandler_Terms(t *testing.T) {
	handler, service, repo := setupPostsHandlerTest(t)
	router := handler.Routes()

	postID := createArticle(t, service, simplecms.CreatePostRequest{Title: "Tagged Post"})

	ctx := context.Background()
	newsID, err := repo.CreateTerm(ctx, &simplecms.Term{Taxonomy: "topic", Name: "News", Slug: "news"})
	require.NoError(t, err)
	techID, err := repo.CreateTerm(ctx, &simplecms.Term{Taxonomy: "topic", Name: "Tech", Slug: "tech"})
	require.NoError(t, err)

	body, err := json.Marshal(TermsRequest{TermIDs: []int64{newsID, techID}})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPut, "/article/posts/"+itoa(postID)+"/terms/topic", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)

	req = httptest.NewRequest(http.MethodGet, "/article/posts/"+itoa(postID)+"/terms/topic", nil)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		PostID   int64   `json:"post_id"`
		Taxonomy string  `json:"taxonomy"`
		TermIDs  []int64 `json:"term_ids"`
	}
	err = json.Unmarshal(w.Body.Bytes(), &resp)
	require.NoError(t, err)

	assert.Equal(t, postID, resp.PostID)
	assert.Equal(t, "topic", resp.Taxonomy)
	assert.Equal(t, []int64{newsID, techID}, resp.TermIDs)

	// Detach one term and list again
	body, err = json.Marshal(TermsRequest{TermIDs: []int64{newsID}})
	require.NoError(t, err)

	req = httptest.NewRequest(http.MethodDelete, "/article/posts/"+itoa(postID)+"/terms/topic", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)

	req = httptest.NewRequest(http.MethodGet, "/article/posts/"+itoa(postID)+"/terms/topic", nil)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	err = json.Unmarshal(w.Body.Bytes(), &resp)
	require.NoError(t, err)
	assert.Equal(t, []int64{techID}, resp.TermIDs)
}

func TestPostsHandler_Terms_MissingTermIDs(t *testing.T) {
	handler, service, _ := setupPostsHandlerTest(t)
	router := handler.Routes()

	postID := createArticle(t, service, simplecms.CreatePostRequest{Title: "Untagged"})

	body, err := json.Marshal(TermsRequest{})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPut, "/article/posts/"+itoa(postID)+"/terms/topic", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "Missing required 'term_ids' field")
}

func TestPostsHandler_Terms_UnknownTerm(t *testing.T) {
	handler, service, _ := setupPostsHandlerTest(t)
	router := handler.Routes()

	postID := createArticle(t, service, simplecms.CreatePostRequest{Title: "Bad Tag"})

	body, err := json.Marshal(TermsRequest{TermIDs: []int64{404}})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPut, "/article/posts/"+itoa(postID)+"/terms/topic", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestPostsHandler_GetCapabilities(t *testing.T) {
	handler, _, _ := setupPostsHandlerTest(t)
	router := handler.Routes()

	req := httptest.NewRequest(http.MethodGet, "/article/capabilities", nil)
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var grants map[string]map[string]bool
	err := json.Unmarshal(w.Body.Bytes(), &grants)
	require.NoError(t, err)

	assert.True(t, grants["administrator"]["edit_article"])
	assert.True(t, grants["editor"]["publish_articles"])
	assert.False(t, grants["subscriber"]["edit_articles"])
}

func TestPostsHandler_ApplyCapabilities(t *testing.T) {
	handler, _, repo := setupPostsHandlerTest(t)
	router := handler.Routes()

	req := httptest.NewRequest(http.MethodPost, "/article/capabilities", nil)
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "applied")

	allowed, err := repo.Allowed(context.Background(), "editor", "edit_article")
	require.NoError(t, err)
	assert.True(t, allowed)
}

func TestPostsHandler_Auth_MissingToken(t *testing.T) {
	handler, _, _ := setupGuardedPostsTest(t)
	router := handler.Routes()

	body, err := json.Marshal(CreatePostRequest{Title: "No Token"})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/article/posts", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)

	// A malformed token is also rejected before any handler runs
	req = httptest.NewRequest(http.MethodGet, "/article/posts", nil)
	req.Header.Set("Authorization", "Bearer not-a-token")
	w = httptest.NewRecorder()

	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestPostsHandler_Auth_SubscriberCannotCreate(t *testing.T) {
	handler, _, guard := setupGuardedPostsTest(t)
	router := handler.Routes()

	token := mintToken(t, guard, simplecms.RoleSubscriber)

	body, err := json.Marshal(CreatePostRequest{Title: "Forbidden"})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/article/posts", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Contains(t, w.Body.String(), "insufficient capabilities")
}

func TestPostsHandler_Auth_EditorCanPublish(t *testing.T) {
	handler, _, guard := setupGuardedPostsTest(t)
	router := handler.Routes()

	token := mintToken(t, guard, simplecms.RoleEditor)

	body, err := json.Marshal(CreatePostRequest{Title: "Editorial", Status: "published"})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/article/posts", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusCreated, w.Code)
}

func TestPostsHandler_Auth_ContributorCannotPublish(t *testing.T) {
	handler, _, guard := setupGuardedPostsTest(t)
	router := handler.Routes()

	token := mintToken(t, guard, simplecms.RoleContributor)

	body, err := json.Marshal(CreatePostRequest{Title: "Pitch", Status: "published"})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/article/posts", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Contains(t, w.Body.String(), "insufficient capabilities to publish")

	// Drafting is still allowed
	body, err = json.Marshal(CreatePostRequest{Title: "Pitch", Status: "draft"})
	require.NoError(t, err)

	req = httptest.NewRequest(http.MethodPost, "/article/posts", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)
	w = httptest.NewRecorder()

	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusCreated, w.Code)
}

func TestPostsHandler_Auth_PrivateReadRequiresCapability(t *testing.T) {
	handler, service, guard := setupGuardedPostsTest(t)
	router := handler.Routes()

	postID := createArticle(t, service, simplecms.CreatePostRequest{
		Title:  "Internal Memo",
		Status: simplecms.PostStatusPrivate,
	})

	subscriberToken := mintToken(t, guard, simplecms.RoleSubscriber)

	req := httptest.NewRequest(http.MethodGet, "/article/posts/"+itoa(postID), nil)
	req.Header.Set("Authorization", "Bearer "+subscriberToken)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusForbidden, w.Code)

	editorToken := mintToken(t, guard, simplecms.RoleEditor)

	req = httptest.NewRequest(http.MethodGet, "/article/posts/"+itoa(postID), nil)
	req.Header.Set("Authorization", "Bearer "+editorToken)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestPostsHandler_Auth_PrivateListingRequiresCapability(t *testing.T) {
	handler, _, guard := setupGuardedPostsTest(t)
	router := handler.Routes()

	subscriberToken := mintToken(t, guard, simplecms.RoleSubscriber)

	req := httptest.NewRequest(http.MethodGet, "/article/posts?status=private", nil)
	req.Header.Set("Authorization", "Bearer "+subscriberToken)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusForbidden, w.Code)

	editorToken := mintToken(t, guard, simplecms.RoleEditor)

	req = httptest.NewRequest(http.MethodGet, "/article/posts?status=private", nil)
	req.Header.Set("Authorization", "Bearer "+editorToken)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestPostsHandler_Auth_ApplyCapabilitiesRequiresAdmin(t *testing.T) {
	handler, _, guard := setupGuardedPostsTest(t)
	router := handler.Routes()

	editorToken := mintToken(t, guard, simplecms.RoleEditor)

	req := httptest.NewRequest(http.MethodPost, "/article/capabilities", nil)
	req.Header.Set("Authorization", "Bearer "+editorToken)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Contains(t, w.Body.String(), "administrator role required")

	adminToken := mintToken(t, guard, simplecms.RoleAdministrator)

	req = httptest.NewRequest(http.MethodPost, "/article/capabilities", nil)
	req.Header.Set("Authorization", "Bearer "+adminToken)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestPostsHandler_Auth_MissingRoleClaim(t *testing.T) {
	handler, _, guard := setupGuardedPostsTest(t)
	router := handler.Routes()

	_, token, err := guard.TokenAuth().Encode(map[string]interface{}{})
	require.NoError(t, err)

	body, err := json.Marshal(CreatePostRequest{Title: "Anonymous"})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/article/posts", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Contains(t, w.Body.String(), "missing role claim")
}
