package library

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"booklibrary/internal/book"
	"booklibrary/internal/catalogview"
	"booklibrary/internal/history"
	"booklibrary/internal/httpx"
	"booklibrary/internal/platform/openlibrary"
)

// ISBNLookup prefills a record from an external catalog.
type ISBNLookup interface {
	LookupISBN(ctx context.Context, isbn string) (openlibrary.Details, error)
}

// Viewer serves the cached catalog listing.
type Viewer interface {
	Snapshot(ctx context.Context) (catalogview.Snapshot, error)
}

// unknownAuthor fills imports whose edition lists no author.
const unknownAuthor = "Unknown"

type HTTPHandler struct {
	service *Service
	lookup  ISBNLookup
	view    Viewer
}

// NewHTTPHandler builds the REST handler. lookup and view may be nil; their
// routes then answer 503.
func NewHTTPHandler(service *Service, lookup ISBNLookup, view Viewer) *HTTPHandler {
	return &HTTPHandler{service: service, lookup: lookup, view: view}
}

// Register mounts the routes on mux. Mutating routes are wrapped with guard
// when it is non-nil.
func (h *HTTPHandler) Register(mux *http.ServeMux, guard func(http.Handler) http.Handler) {
	protect := func(fn http.HandlerFunc) http.Handler {
		if guard == nil {
			return fn
		}
		return guard(fn)
	}

	mux.HandleFunc("GET /books", h.List)
	mux.HandleFunc("GET /books/{id}", h.Get)
	mux.Handle("POST /books", protect(h.Create))
	mux.Handle("POST /books/import", protect(h.Import))
	mux.Handle("PUT /books/{id}", protect(h.Replace))
	mux.Handle("DELETE /books/{id}", protect(h.Delete))

	mux.HandleFunc("GET /history", h.History)
	mux.Handle("POST /history/undo", protect(h.Undo))
	mux.Handle("POST /history/redo", protect(h.Redo))
	mux.Handle("DELETE /history", protect(h.ClearHistory))

	mux.HandleFunc("GET /view", h.View)
}

type bookRequest struct {
	Title        string `json:"title" validate:"required,max=500"`
	Author       string `json:"author" validate:"required,max=300"`
	ISBN         string `json:"isbn" validate:"omitempty,isbn"`
	Genre        string `json:"genre" validate:"max=100"`
	Rating       int    `json:"rating" validate:"gte=0,lte=5"`
	ReadingState string `json:"reading_state"`
	CoverPath    string `json:"cover_path" validate:"max=1000"`
}

// decodeBook reads and validates a request body into a snapshot with id.
func decodeBook(r *http.Request, id int64) (book.Book, error) {
	var req bookRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		return book.Book{}, err
	}
	if details := httpx.ValidateStruct(req); details != nil {
		return book.Book{}, validationError(details)
	}
	return req.toBook(id)
}

func (req bookRequest) toBook(id int64) (book.Book, error) {
	state := book.StateToRead
	if strings.TrimSpace(req.ReadingState) != "" {
		var err error
		if state, err = book.ParseReadingState(req.ReadingState); err != nil {
			return book.Book{}, err
		}
	}
	return book.New(book.Fields{
		ID:           id,
		Title:        strings.TrimSpace(req.Title),
		Author:       strings.TrimSpace(req.Author),
		ISBN:         strings.TrimSpace(req.ISBN),
		Genre:        strings.TrimSpace(req.Genre),
		Rating:       req.Rating,
		ReadingState: string(state),
		CoverPath:    req.CoverPath,
	})
}

type importRequest struct {
	ISBN         string `json:"isbn"`
	ReadingState string `json:"reading_state"`
	Rating       int    `json:"rating"`
}

type recordResponse struct {
	Kind     string     `json:"kind"`
	Book     book.Book  `json:"book"`
	Previous *book.Book `json:"previous,omitempty"`
}

func toRecordResponse(rec history.Record) recordResponse {
	resp := recordResponse{Kind: rec.Kind().String(), Book: rec.Book()}
	if prev, ok := rec.Previous(); ok {
		resp.Previous = &prev
	}
	return resp
}

// List handles GET /books
func (h *HTTPHandler) List(w http.ResponseWriter, r *http.Request) {
	q, err := parseQuery(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	books, err := h.service.List(r.Context(), q)
	if err != nil {
		writeError(w, r, err)
		return
	}
	httpx.JSONSuccess(w, r, books, map[string]any{"count": len(books)})
}

func parseQuery(r *http.Request) (book.Query, error) {
	query := r.URL.Query()
	q := book.Query{
		Title:  query.Get("title"),
		Author: query.Get("author"),
		ISBN:   query.Get("isbn"),
		Genre:  query.Get("genre"),
	}

	if v := query.Get("rating"); v != "" {
		rating, err := strconv.Atoi(v)
		if err != nil || rating < book.MinRating || rating > book.MaxRating {
			return book.Query{}, fieldError{field: "rating", msg: "must be an integer between 0 and 5"}
		}
		q.Rating = &rating
	}
	if v := query.Get("reading_state"); v != "" {
		state, err := book.ParseReadingState(v)
		if err != nil {
			return book.Query{}, fieldError{field: "reading_state", msg: "must be one of read, reading, to-read"}
		}
		q.ReadingState = state
	}
	sort, err := book.ParseSortCriterion(query.Get("sort"))
	if err != nil {
		return book.Query{}, fieldError{field: "sort", msg: "unknown sort criterion"}
	}
	q.Sort = sort
	return q, nil
}

// Get handles GET /books/{id}
func (h *HTTPHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	b, err := h.service.Get(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	httpx.JSONSuccess(w, r, b, nil)
}

// Create handles POST /books
func (h *HTTPHandler) Create(w http.ResponseWriter, r *http.Request) {
	b, err := decodeBook(r, 0)
	if err != nil {
		writeError(w, r, err)
		return
	}
	saved, err := h.service.Add(r.Context(), b)
	if err != nil {
		writeError(w, r, err)
		return
	}
	httpx.JSONSuccessCreated(w, r, saved)
}

// Import handles POST /books/import
func (h *HTTPHandler) Import(w http.ResponseWriter, r *http.Request) {
	if h.lookup == nil {
		httpx.JSONError(w, r, http.StatusServiceUnavailable, "LOOKUP_DISABLED", "ISBN lookup is disabled", nil)
		return
	}
	var req importRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if openlibrary.NormalizeISBN(req.ISBN) == "" {
		writeError(w, r, fieldError{field: "isbn", msg: "is required"})
		return
	}

	d, err := h.lookup.LookupISBN(r.Context(), req.ISBN)
	if err != nil {
		if errors.Is(err, openlibrary.ErrNotFound) {
			httpx.JSONError(w, r, http.StatusNotFound, "NOT_FOUND", "ISBN not found on Open Library", nil)
			return
		}
		httpx.JSONError(w, r, http.StatusBadGateway, "LOOKUP_FAILED", "ISBN lookup failed", nil)
		return
	}
	if d.Author == "" {
		d.Author = unknownAuthor
	}

	b, err := bookRequest{
		Title:        d.Title,
		Author:       d.Author,
		ISBN:         d.ISBN,
		Genre:        d.Genre,
		Rating:       req.Rating,
		ReadingState: req.ReadingState,
		CoverPath:    d.CoverPath,
	}.toBook(0)
	if err != nil {
		writeError(w, r, err)
		return
	}
	saved, err := h.service.Add(r.Context(), b)
	if err != nil {
		writeError(w, r, err)
		return
	}
	httpx.JSONSuccessCreated(w, r, saved)
}

// Replace handles PUT /books/{id}
func (h *HTTPHandler) Replace(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	next, err := decodeBook(r, id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if _, err := h.service.UpdateByID(r.Context(), next); err != nil {
		writeError(w, r, err)
		return
	}
	httpx.JSONSuccess(w, r, next, nil)
}

// Delete handles DELETE /books/{id}
func (h *HTTPHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if _, err := h.service.RemoveByID(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}
	httpx.JSONSuccessNoContent(w)
}

// History handles GET /history
func (h *HTTPHandler) History(w http.ResponseWriter, r *http.Request) {
	httpx.JSONSuccess(w, r, h.service.HistoryState(), nil)
}

// Undo handles POST /history/undo
func (h *HTTPHandler) Undo(w http.ResponseWriter, r *http.Request) {
	h.replay(w, r, h.service.Undo)
}

// Redo handles POST /history/redo
func (h *HTTPHandler) Redo(w http.ResponseWriter, r *http.Request) {
	h.replay(w, r, h.service.Redo)
}

func (h *HTTPHandler) replay(w http.ResponseWriter, r *http.Request, step func(context.Context) (history.Record, error)) {
	rec, err := step(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	state := h.service.HistoryState()
	httpx.JSONSuccess(w, r, toRecordResponse(rec), map[string]any{
		"can_undo": state.CanUndo,
		"can_redo": state.CanRedo,
	})
}

// ClearHistory handles DELETE /history
func (h *HTTPHandler) ClearHistory(w http.ResponseWriter, r *http.Request) {
	h.service.ClearHistory(r.Context())
	httpx.JSONSuccessNoContent(w)
}

// View handles GET /view
func (h *HTTPHandler) View(w http.ResponseWriter, r *http.Request) {
	if h.view == nil {
		httpx.JSONError(w, r, http.StatusServiceUnavailable, "VIEW_DISABLED", "Catalog view is not configured", nil)
		return
	}
	snap, err := h.view.Snapshot(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	httpx.JSONSuccess(w, r, snap, nil)
}

func pathID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, fieldError{field: "id", msg: "must be a positive integer"}
	}
	return id, nil
}

type fieldError struct {
	field string
	msg   string
}

func (e fieldError) Error() string { return e.field + " " + e.msg }

func (e fieldError) Unwrap() error { return book.ErrInvalidArgument }

type validationError []httpx.ErrorDetail

func (e validationError) Error() string { return "invalid request body" }

func (e validationError) Unwrap() error { return book.ErrInvalidArgument }

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	var fe fieldError
	var ve validationError
	var maxErr *http.MaxBytesError
	switch {
	case errors.As(err, &ve):
		httpx.JSONError(w, r, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request", ve)
	case errors.As(err, &fe):
		httpx.JSONError(w, r, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request", []httpx.ErrorDetail{
			{Field: fe.field, Message: fe.msg},
		})
	case errors.As(err, &maxErr):
		httpx.JSONError(w, r, http.StatusRequestEntityTooLarge, "PAYLOAD_TOO_LARGE", "Request body too large", nil)
	case errors.Is(err, httpx.ErrBadJSON):
		httpx.JSONError(w, r, http.StatusBadRequest, "BAD_REQUEST", "Malformed JSON body", nil)
	case errors.Is(err, book.ErrInvalidArgument):
		httpx.JSONError(w, r, http.StatusBadRequest, "VALIDATION_ERROR", err.Error(), nil)
	case errors.Is(err, book.ErrNotFound):
		httpx.JSONError(w, r, http.StatusNotFound, "NOT_FOUND", "Book not found", nil)
	case errors.Is(err, history.ErrEmptyHistory):
		httpx.JSONError(w, r, http.StatusConflict, "EMPTY_HISTORY", "Nothing to undo or redo", nil)
	default:
		httpx.JSONError(w, r, http.StatusInternalServerError, "INTERNAL_ERROR", "Internal server error", nil)
	}
}
