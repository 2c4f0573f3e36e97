package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/kevinaaaquil/lexireader/middleware"
)

type Router struct {
	Auth     *AuthHandler
	Books    *BooksHandler
	Import   *ImportHandler
	Session  *SessionHandler
	Study    *StudyHandler
	Settings *SettingsHandler

	JWTSecret   string
	CORSOrigins []string
}

func (rt *Router) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.CORS(rt.CORSOrigins))
	r.Use(chimw.Logger)
	r.Use(chimw.Recoverer)
	r.Use(chimw.RealIP)

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"message": "welcome to lexireader."})
	})
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api", func(r chi.Router) {
		r.Post("/auth/login", rt.Auth.Login)
		r.Get("/books/{id}/cover", rt.Books.Cover)

		// Protected routes
		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth(rt.JWTSecret))

			r.Get("/books", rt.Books.List)
			r.Post("/books", rt.Books.Create)
			r.Post("/books/import", rt.Import.Import)
			r.Post("/books/import-url", rt.Import.ImportURL)
			r.Get("/books/{id}", rt.Books.Get)
			r.Put("/books/{id}", rt.Books.Replace)
			r.Delete("/books/{id}", rt.Books.Delete)
			r.Put("/books/{id}/progress", rt.Books.Progress)

			r.Get("/session", rt.Session.Get)
			r.Post("/session/select", rt.Session.Select)
			r.Post("/session/configure", rt.Session.Configure)
			r.Post("/session/timer", rt.Session.ToggleTimer)
			r.Post("/session/advance", rt.Session.Advance)
			r.Post("/session/close", rt.Session.Close)

			r.Get("/study-items", rt.Study.ListItems)
			r.Post("/study-items", rt.Study.AddItem)
			r.Put("/study-items/{id}", rt.Study.UpdateItem)
			r.Delete("/study-items/{id}", rt.Study.DeleteItem)
			r.Get("/pronunciation/ipa", rt.Study.IPA)
			r.Get("/pronunciation/audio", rt.Study.Audio)

			r.Get("/expressions", rt.Study.ListExpressions)
			r.Post("/expressions/generate", rt.Study.GenerateExpressions)
			r.Put("/expressions/{id}", rt.Study.UpdateExpression)
			r.Delete("/expressions/{id}", rt.Study.DeleteExpression)

			r.Get("/settings/app", rt.Settings.GetApp)
			r.Put("/settings/app", rt.Settings.SaveApp)
			r.Get("/settings/speech", rt.Settings.GetSpeech)
			r.Put("/settings/speech", rt.Settings.SaveSpeech)
			r.Get("/settings/speech/voices", rt.Settings.Voices)
			r.Get("/ideas", rt.Settings.GetIdeas)
			r.Put("/ideas", rt.Settings.SaveIdeas)
		})
	})
	return r
}
