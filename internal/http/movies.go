package httpserver

import (
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"github.com/Clark-Hu/movies-catalog/internal/domain"
	"github.com/Clark-Hu/movies-catalog/internal/repository"
	"github.com/Clark-Hu/movies-catalog/internal/validation"
)

type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

type validationErrorResponse struct {
	Errors []validation.FieldError `json:"errors"`
}

type pagination struct {
	Page      int    `json:"page"`
	Limit     int    `json:"limit"`
	Year      string `json:"year,omitempty"`
	Genre     string `json:"genre,omitempty"`
	SortOrder string `json:"sort_order,omitempty"`
	HasMore   bool   `json:"hasMore"`
}

type movieListResponse struct {
	Data       []domain.MovieListItem `json:"data"`
	Pagination pagination             `json:"pagination"`
}

type movieDetailResponse struct {
	Data *domain.MovieDetail `json:"data"`
}

func (s *Server) handleListMovies(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	if errs := validation.Validate(validation.ListMoviesRule{Page: optionalQuery(query, "page")}); errs != nil {
		s.respondValidation(w, errs)
		return
	}

	page := parsePage(query.Get("page"))
	movies, err := s.repo.Movies.ListAll(r.Context(), page)
	if err != nil {
		s.respondInternal(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusOK, movieListResponse{
		Data:       movies,
		Pagination: newPagination(page, movies),
	})
}

func (s *Server) handleMoviesByYear(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	year := pathParam(r, "year")
	rule := validation.MoviesByYearRule{
		Year: year,
		Page: optionalQuery(query, "page"),
		Sort: optionalQuery(query, "sort"),
	}
	if errs := validation.Validate(rule); errs != nil {
		s.respondValidation(w, errs)
		return
	}

	page := parsePage(query.Get("page"))
	order := repository.ParseSortOrder(query.Get("sort"))
	movies, err := s.repo.Movies.ByYear(r.Context(), year, page, order)
	if err != nil {
		s.respondInternal(w, r, err)
		return
	}

	meta := newPagination(page, movies)
	meta.Year = year
	meta.SortOrder = string(order)
	s.respondJSON(w, http.StatusOK, movieListResponse{Data: movies, Pagination: meta})
}

func (s *Server) handleMoviesByGenre(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	genre := pathParam(r, "genre")
	if errs := validation.Validate(validation.MoviesByGenreRule{Genre: genre, Page: optionalQuery(query, "page")}); errs != nil {
		s.respondValidation(w, errs)
		return
	}

	page := parsePage(query.Get("page"))
	movies, err := s.repo.Movies.ByGenre(r.Context(), genre, page)
	if err != nil {
		s.respondInternal(w, r, err)
		return
	}

	meta := newPagination(page, movies)
	meta.Genre = genre
	s.respondJSON(w, http.StatusOK, movieListResponse{Data: movies, Pagination: meta})
}

func (s *Server) handleGetMovie(w http.ResponseWriter, r *http.Request) {
	id := pathParam(r, "id")
	if errs := validation.Validate(validation.MovieByIDRule{ID: id}); errs != nil {
		s.respondValidation(w, errs)
		return
	}

	movie, err := s.repo.Movies.GetByID(r.Context(), id)
	if err != nil {
		s.respondInternal(w, r, err)
		return
	}
	if movie == nil {
		s.respondJSON(w, http.StatusNotFound, errorResponse{Error: "Movie not found"})
		return
	}
	s.respondJSON(w, http.StatusOK, movieDetailResponse{Data: movie})
}

func newPagination(page int, movies []domain.MovieListItem) pagination {
	return pagination{
		Page:    page,
		Limit:   repository.PageSize,
		HasMore: len(movies) == repository.PageSize,
	}
}

// pathParam returns a decoded route parameter. chi matches on RawPath when the
// request carries one, so escaped segments such as %2F arrive still encoded.
func pathParam(r *http.Request, key string) string {
	v := chi.URLParam(r, key)
	if r.URL.RawPath == "" {
		return v
	}
	if decoded, err := url.PathUnescape(v); err == nil {
		return decoded
	}
	return v
}

// optionalQuery distinguishes an absent parameter (nil) from an empty one.
func optionalQuery(query url.Values, key string) *string {
	if !query.Has(key) {
		return nil
	}
	v := query.Get(key)
	return &v
}

// parsePage coerces the page parameter, falling back to 1 for absent,
// non-numeric, or non-positive input.
func parsePage(raw string) int {
	page, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || page < 1 {
		return 1
	}
	return page
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if payload != nil {
		if err := json.NewEncoder(w).Encode(payload); err != nil {
			s.logger.Error().Err(err).Msg("failed to encode response")
		}
	}
}

func (s *Server) respondValidation(w http.ResponseWriter, errs []validation.FieldError) {
	s.respondJSON(w, http.StatusBadRequest, validationErrorResponse{Errors: errs})
}

// respondInternal logs err and writes the generic 500 body. The error text is
// only exposed in development.
func (s *Server) respondInternal(w http.ResponseWriter, r *http.Request, err error) {
	zerolog.Ctx(r.Context()).Error().Err(err).Str("path", r.URL.Path).Msg("request failed")

	resp := errorResponse{Error: "Internal server error", Message: "Something went wrong"}
	if s.cfg.Development() {
		resp.Message = err.Error()
	}
	s.respondJSON(w, http.StatusInternalServerError, resp)
}
