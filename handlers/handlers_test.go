package handlers

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"io"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/kevinaaaquil/lexireader/enrich"
	"github.com/kevinaaaquil/lexireader/library"
	"github.com/kevinaaaquil/lexireader/middleware"
	"github.com/kevinaaaquil/lexireader/models"
	"github.com/kevinaaaquil/lexireader/service"
	"github.com/kevinaaaquil/lexireader/session"
	"github.com/kevinaaaquil/lexireader/settings"
	"github.com/kevinaaaquil/lexireader/store"
	"github.com/kevinaaaquil/lexireader/study"
	"github.com/kevinaaaquil/lexireader/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const secret = "test-secret"

type memUsers struct {
	mu    sync.Mutex
	users []models.User
}

func (m *memUsers) UserByEmail(_ context.Context, email string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Email == email {
			return &u, nil
		}
	}
	return nil, nil
}

func (m *memUsers) CreateUser(_ context.Context, u *models.User) (primitive.ObjectID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u.ID = primitive.NewObjectID()
	m.users = append(m.users, *u)
	return u.ID, nil
}

type memCovers struct {
	mu      sync.Mutex
	objects map[string][]byte
	types   map[string]string
}

func newMemCovers() *memCovers {
	return &memCovers{objects: map[string][]byte{}, types: map[string]string{}}
}

func (m *memCovers) Put(_ context.Context, bookID string, data []byte, contentType string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := "covers/" + bookID
	m.objects[key] = data
	m.types[key] = contentType
	return key, nil
}

func (m *memCovers) Get(_ context.Context, key string) (io.ReadCloser, string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.objects[key]
	if !ok {
		return nil, "", errors.New("no such key")
	}
	return io.NopCloser(bytes.NewReader(data)), m.types[key], nil
}

func (m *memCovers) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.objects, key)
	return nil
}

func (m *memCovers) len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.objects)
}

type linkingCovers struct{ *memCovers }

func (linkingCovers) PresignedURL(_ context.Context, key string, _ time.Duration) (string, error) {
	return "https://bucket.example.com/" + key + "?sig=1", nil
}

type stubMetadata struct{ title string }

func (s stubMetadata) ByISBN(context.Context, string) (*service.BookMetadata, error) {
	return &service.BookMetadata{Title: s.title}, nil
}

type stubArticles struct{}

func (stubArticles) Fetch(_ context.Context, rawURL string) (*service.Article, error) {
	if strings.Contains(rawURL, "broken") {
		return nil, errors.New("status 404")
	}
	return &service.Article{Title: "Harbour Life", Text: "The boats came back at noon.", SiteName: "Coast News"}, nil
}

type stubEnricher struct{}

func (stubEnricher) StudyCardData(context.Context, string, string) (models.StudyCard, error) {
	return models.StudyCard{Explanation: "explained", IPA: "/x/"}, nil
}

func (stubEnricher) GenerateExpressions(_ context.Context, text string) ([]models.ExpressionCandidate, error) {
	return []models.ExpressionCandidate{{Expression: "break the ice"}}, nil
}

func (stubEnricher) IPA(context.Context, string) (string, error) { return "/ˈtɛst/", nil }

type stubVoices struct{}

func (stubVoices) ListVoices(context.Context, string) ([]models.Voice, error) {
	return []models.Voice{{VoiceID: "v1", Name: "Rachel"}}, nil
}

type env struct {
	handler http.Handler
	authed  http.Handler
	repo    *store.MemoryBooks
	covers  *memCovers
	users   *memUsers
	lib     *library.Library
	study   *study.Reconciler
}

func newEnv(t *testing.T, books ...models.Book) *env {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	kv := store.NewMemoryKV()
	repo := store.NewMemoryBooks(books...)
	lib, err := library.Load(ctx, repo, library.NewMigrator(kv, repo))
	require.NoError(t, err)

	prefs, err := settings.Load(ctx, kv, nil, stubVoices{}, nil)
	require.NoError(t, err)

	pool := enrich.NewPool(1, 8, nil)
	pool.Start(ctx)
	rec, err := study.New(ctx, study.Deps{KV: kv, Enricher: stubEnricher{}, Speech: prefs, Jobs: pool})
	require.NoError(t, err)
	go func() { _ = rec.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		pool.Close()
		rec.Close()
	})

	covers := newMemCovers()
	users := &memUsers{}
	booksHandler := &BooksHandler{Library: lib, Covers: covers}
	rt := &Router{
		Auth:      &AuthHandler{Users: users, JWTSecret: secret, DefaultEmail: "reader@example.com", DefaultPass: "pw"},
		Books:     booksHandler,
		Import:    &ImportHandler{Books: booksHandler, Metadata: stubMetadata{title: "Catalogue Title"}, Articles: stubArticles{}, MaxBytes: 1 << 20},
		Session:   &SessionHandler{Tracker: session.NewTracker(lib, nil)},
		Study:     &StudyHandler{Study: rec, Library: lib},
		Settings:  &SettingsHandler{Settings: prefs},
		JWTSecret: secret,
	}
	h := rt.Handler()

	token, err := middleware.NewToken(secret, primitive.NewObjectID().Hex(), "reader@example.com", time.Now())
	require.NoError(t, err)
	authed := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		r.Header.Set("Authorization", "Bearer "+token)
		h.ServeHTTP(w, r)
	})
	return &env{handler: h, authed: authed, repo: repo, covers: covers, users: users, lib: lib, study: rec}
}

func TestLogin(t *testing.T) {
	e := newEnv(t)

	rec := testutil.SendRequest(t, e.handler, http.MethodPost, "/api/auth/login", LoginRequest{Email: "reader@example.com", Password: "pw"})
	require.Equal(t, http.StatusOK, rec.Code)
	resp := testutil.ParseResponse[LoginResponse](t, rec)
	assert.NotEmpty(t, resp.Token)
	require.Len(t, e.users.users, 1)
	assert.NotEqual(t, "pw", e.users.users[0].Password)

	rec = testutil.SendRequest(t, e.handler, http.MethodPost, "/api/auth/login", LoginRequest{Email: "reader@example.com", Password: "pw"})
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = testutil.SendRequest(t, e.handler, http.MethodPost, "/api/auth/login", LoginRequest{Email: "reader@example.com", Password: "nope"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = testutil.SendRequest(t, e.handler, http.MethodGet, "/api/books", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestBooksCRUDWithCover(t *testing.T) {
	e := newEnv(t)
	cover := "data:image/png;base64," + base64.StdEncoding.EncodeToString([]byte("PNG"))

	rec := testutil.SendRequest(t, e.authed, http.MethodPost, "/api/books", models.Book{Title: " Dubliners ", Content: "Text", CoverImage: cover})
	require.Equal(t, http.StatusCreated, rec.Code)
	book := testutil.ParseResponse[models.Book](t, rec)
	assert.Equal(t, "Dubliners", book.Title)
	assert.Equal(t, models.CategoryBook, book.Category)
	assert.Equal(t, "/api/books/"+book.ID+"/cover", book.CoverImage)
	assert.Equal(t, 1, e.covers.len())

	rec = testutil.SendRequest(t, e.handler, http.MethodGet, "/api/books/"+book.ID+"/cover", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "image/png", rec.Header().Get("Content-Type"))
	assert.Equal(t, "PNG", rec.Body.String())

	rec = testutil.SendRequest(t, e.authed, http.MethodPut, "/api/books/"+book.ID+"/progress", progressRequest{Page: 12})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = testutil.SendRequest(t, e.authed, http.MethodGet, "/api/books", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	list := testutil.ParseResponse[[]bookSummary](t, rec)
	require.Len(t, list, 1)
	assert.Equal(t, 12, list[0].LastReadPage)

	rec = testutil.SendRequest(t, e.authed, http.MethodPut, "/api/books/"+book.ID, models.Book{Title: "Dubliners", Category: "poem"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = testutil.SendRequest(t, e.authed, http.MethodDelete, "/api/books/"+book.ID, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Zero(t, e.covers.len())

	rec = testutil.SendRequest(t, e.authed, http.MethodGet, "/api/books/"+book.ID, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCoverRedirectsToSignedLink(t *testing.T) {
	e := newEnv(t)
	books := &BooksHandler{Library: e.lib, Covers: linkingCovers{e.covers}}
	saved, err := e.lib.Save(context.Background(), models.Book{ID: "b9", Title: "Linked", CoverS3Key: "covers/b9"})
	require.NoError(t, err)

	rt := &Router{Books: books, JWTSecret: secret}
	rec := testutil.SendRequest(t, rt.Handler(), http.MethodGet, "/api/books/"+saved.ID+"/cover", nil)
	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "https://bucket.example.com/covers/b9?sig=1", rec.Header().Get("Location"))
}

func TestPersistFailureIsReported(t *testing.T) {
	e := newEnv(t, models.Book{ID: "b1", Title: "A", Category: models.CategoryBook})
	e.repo.WriteErr = errors.New("mongo down")

	rec := testutil.SendRequest(t, e.authed, http.MethodPut, "/api/books/b1/progress", progressRequest{Page: 3})
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "changes may not have been saved")

	book, _ := e.lib.Book("b1")
	assert.Equal(t, 3, book.LastReadPage)
}

func TestImportText(t *testing.T) {
	e := newEnv(t)
	rec := testutil.SendFile(t, e.authed, http.MethodPost, "/api/books/import", testutil.TestFile{
		Name:      "dialogue-01.txt",
		FieldName: "file",
		Content:   strings.NewReader("  A: Hi!\nB: Hello.  "),
		Fields:    map[string]string{"category": "dialogue", "totalLessons": "2"},
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	book := testutil.ParseResponse[models.Book](t, rec)
	assert.Equal(t, "dialogue-01", book.Title)
	assert.Equal(t, models.CategoryDialogue, book.Category)
	assert.Equal(t, "A: Hi!\nB: Hello.", book.Content)
	assert.Equal(t, 2, book.TotalLessons)
	assert.Equal(t, 1, book.CurrentLesson)

	rec = testutil.SendFile(t, e.authed, http.MethodPost, "/api/books/import", testutil.TestFile{
		Name: "scan.pdf", FieldName: "file", Content: strings.NewReader("%PDF"),
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestImportEPUB(t *testing.T) {
	e := newEnv(t)

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for name, body := range map[string]string{
		"META-INF/container.xml": `<container><rootfiles><rootfile full-path="content.opf"/></rootfiles></container>`,
		"content.opf": `<package><metadata><title>Embedded</title><identifier scheme="ISBN">9780156012195</identifier><meta name="cover" content="img"/></metadata>
<manifest><item id="c1" href="c1.xhtml" media-type="application/xhtml+xml"/><item id="img" href="cover.jpg" media-type="image/jpeg"/></manifest>
<spine><itemref idref="c1"/></spine></package>`,
		"c1.xhtml":  `<html><body><p>Chapter text.</p></body></html>`,
		"cover.jpg": "JPEG",
	} {
		w, err := zw.Create(name)
		require.NoError(t, err)
		_, err = w.Write([]byte(body))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())

	rec := testutil.SendFile(t, e.authed, http.MethodPost, "/api/books/import", testutil.TestFile{
		Name: "prince.epub", FieldName: "file", Content: &buf,
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	book := testutil.ParseResponse[models.Book](t, rec)
	assert.Equal(t, "Catalogue Title", book.Title)
	assert.Equal(t, "Chapter text.", book.Content)
	assert.Equal(t, "/api/books/"+book.ID+"/cover", book.CoverImage)
}

func TestImportURL(t *testing.T) {
	e := newEnv(t)
	rec := testutil.SendRequest(t, e.authed, http.MethodPost, "/api/books/import-url", importURLRequest{URL: "https://news.example.com/harbour"})
	require.Equal(t, http.StatusCreated, rec.Code)
	book := testutil.ParseResponse[models.Book](t, rec)
	assert.Equal(t, models.CategoryStory, book.Category)
	assert.Equal(t, "Harbour Life", book.Title)

	rec = testutil.SendRequest(t, e.authed, http.MethodPost, "/api/books/import-url", importURLRequest{URL: "https://broken.example.com"})
	assert.Equal(t, http.StatusBadGateway, rec.Code)
}

func TestSessionFlow(t *testing.T) {
	e := newEnv(t, models.Book{ID: "b1", Title: "A", Category: models.CategoryBook, Content: "x"})

	rec := testutil.SendRequest(t, e.authed, http.MethodPost, "/api/session/select", selectRequest{BookID: "b1"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, session.LessonPending, testutil.ParseResponse[session.Snapshot](t, rec).State)

	rec = testutil.SendRequest(t, e.authed, http.MethodPost, "/api/session/configure", configureRequest{BookID: "b1", TotalLessons: 0})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec = testutil.SendRequest(t, e.authed, http.MethodPost, "/api/session/configure", configureRequest{BookID: "b1", TotalLessons: 2})
	require.Equal(t, http.StatusOK, rec.Code)
	snap := testutil.ParseResponse[session.Snapshot](t, rec)
	assert.Equal(t, session.InLesson, snap.State)
	assert.Equal(t, 1, snap.CurrentLesson)

	rec = testutil.SendRequest(t, e.authed, http.MethodPost, "/api/session/timer", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, testutil.ParseResponse[session.Snapshot](t, rec).TimerRunning)

	rec = testutil.SendRequest(t, e.authed, http.MethodPost, "/api/session/advance", selectRequest{BookID: "b1"})
	require.Equal(t, http.StatusOK, rec.Code)
	snap = testutil.ParseResponse[session.Snapshot](t, rec)
	assert.Equal(t, 2, snap.CurrentLesson)
	assert.False(t, snap.TimerRunning)

	rec = testutil.SendRequest(t, e.authed, http.MethodPost, "/api/session/close", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, session.Idle, testutil.ParseResponse[session.Snapshot](t, rec).State)

	rec = testutil.SendRequest(t, e.authed, http.MethodPost, "/api/session/select", selectRequest{BookID: "nope"})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestStudyEndpoints(t *testing.T) {
	e := newEnv(t, models.Book{ID: "b1", Title: "A", Category: models.CategoryBook, Content: "They tried to break the ice.", TotalLessons: 1, CurrentLesson: 1})
	c := study.Candidate{BookID: "b1", OriginalText: "break the ice", Context: "They tried to break the ice."}

	rec := testutil.SendRequest(t, e.authed, http.MethodPost, "/api/study-items", c)
	require.Equal(t, http.StatusAccepted, rec.Code)
	item := testutil.ParseResponse[models.StudyItem](t, rec)
	assert.Empty(t, item.Explanation)

	rec = testutil.SendRequest(t, e.authed, http.MethodPost, "/api/study-items", c)
	assert.Equal(t, http.StatusConflict, rec.Code)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.True(t, testutil.WaitFor(t, ctx, 5*time.Millisecond, func() bool {
		return e.study.StudyItems("b1")[0].Explanation == "explained"
	}))

	rec = testutil.SendRequest(t, e.authed, http.MethodGet, "/api/study-items?bookId=b1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, testutil.ParseResponse[[]models.StudyItem](t, rec), 1)

	rec = testutil.SendRequest(t, e.authed, http.MethodGet, "/api/pronunciation/ipa?bookId=b1&term=break+the+ice", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "/x/", testutil.ParseResponse[ipaResponse](t, rec).IPA)

	rec = testutil.SendRequest(t, e.authed, http.MethodGet, "/api/pronunciation/audio?bookId=b1&term=break+the+ice", nil)
	assert.Equal(t, http.StatusPreconditionFailed, rec.Code)

	rec = testutil.SendRequest(t, e.authed, http.MethodPost, "/api/expressions/generate", generateRequest{BookID: "b1"})
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Len(t, testutil.ParseResponse[[]models.ExpressionItem](t, rec), 1)

	rec = testutil.SendRequest(t, e.authed, http.MethodPost, "/api/expressions/generate", generateRequest{BookID: "b1", LessonText: "Nothing idiomatic."})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec = testutil.SendRequest(t, e.authed, http.MethodGet, "/api/expressions?bookId=b1&lesson=1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, testutil.ParseResponse[[]models.ExpressionItem](t, rec), 1)

	rec = testutil.SendRequest(t, e.authed, http.MethodDelete, "/api/study-items/"+item.ID, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	rec = testutil.SendRequest(t, e.authed, http.MethodDelete, "/api/study-items/"+item.ID, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSettingsEndpoints(t *testing.T) {
	e := newEnv(t)

	rec := testutil.SendRequest(t, e.authed, http.MethodPut, "/api/settings/speech", map[string]string{"apiKey": "sk_1", "voiceId": "missing"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotContains(t, rec.Body.String(), "sk_1")
	view := testutil.ParseResponse[speechView](t, rec)
	assert.True(t, view.Configured)
	assert.Equal(t, "v1", view.VoiceID)

	rec = testutil.SendRequest(t, e.authed, http.MethodGet, "/api/settings/speech/voices", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, testutil.ParseResponse[[]models.Voice](t, rec), 1)

	app := models.DefaultAppSettings()
	app.AppTheme = "light"
	rec = testutil.SendRequest(t, e.authed, http.MethodPut, "/api/settings/app", app)
	require.Equal(t, http.StatusOK, rec.Code)
	rec = testutil.SendRequest(t, e.authed, http.MethodGet, "/api/settings/app", nil)
	assert.Equal(t, "light", testutil.ParseResponse[models.AppSettings](t, rec).AppTheme)

	rec = testutil.SendRequest(t, e.authed, http.MethodPut, "/api/ideas", ideasBody{Ideas: []string{"podcast", " "}})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{"podcast"}, testutil.ParseResponse[ideasBody](t, rec).Ideas)
}
