package bookreview

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// Manager coordinates the API client, the entity cache, and the session. It
// is the only component that mutates the cache: fetches populate it,
// confirmed writes reconcile it, and failures leave it untouched. The front
// end issues one call per user action and awaits it before the next; the
// Manager provides no internal serialization beyond that.
type Manager struct {
	api     *APIClient
	cache   *Cache
	session *Session

	// focusGen identifies the book the caller is currently looking at.
	// Book-scoped fetches capture it at issue time and discard their result
	// when it changed before the response landed; there is no way to cancel
	// the request itself.
	focusGen  uint64
	focusBook int64

	lastMut Mutation
}

// MutationState is the lifecycle of one mutation.
type MutationState int

const (
	MutIdle MutationState = iota
	MutInFlight
	MutCommitted
	MutFailed
)

func (s MutationState) String() string {
	switch s {
	case MutIdle:
		return "idle"
	case MutInFlight:
		return "in flight"
	case MutCommitted:
		return "committed"
	case MutFailed:
		return "failed"
	}
	return "unknown"
}

// Mutation records the most recent mutation and where it got to, for the
// front end's progress and error display.
type Mutation struct {
	Op    string
	State MutationState
}

// NewManager wires a Manager from configuration: API client with the fixed
// timeout, empty cache, and the session restored from disk if present.
func NewManager(cfg *Config) (*Manager, error) {
	session := NewSession(cfg.SessionFile)
	if err := session.Load(); err != nil {
		return nil, err
	}
	api := NewAPIClient(cfg.ServerURL, time.Duration(cfg.TimeoutSeconds)*time.Second)
	api.SetToken(session.Token)
	return &Manager{api: api, cache: NewCache(), session: session}, nil
}

// newManagerWith is the test seam: no disk, no config file.
func newManagerWith(api *APIClient, session *Session) *Manager {
	return &Manager{api: api, cache: NewCache(), session: session}
}

// Cache exposes the entity cache for projections.
func (m *Manager) Cache() *Cache { return m.cache }

// Session exposes the session context.
func (m *Manager) Session() *Session { return m.session }

// LastMutation reports the most recent mutation and its state.
func (m *Manager) LastMutation() Mutation { return m.lastMut }

// FocusBook declares which book the caller is now looking at. Any
// book-scoped fetch still in flight for a different focus will be discarded
// when it returns.
func (m *Manager) FocusBook(id int64) {
	if m.focusBook != id {
		m.focusBook = id
		m.focusGen++
	}
}

// ---------------------------------------------------------------------------
// Mutation lifecycle
// ---------------------------------------------------------------------------

func (m *Manager) begin(op string) {
	m.lastMut = Mutation{Op: op, State: MutInFlight}
}

func (m *Manager) finish(err error) error {
	if err != nil {
		m.lastMut.State = MutFailed
	} else {
		m.lastMut.State = MutCommitted
	}
	return err
}

// ---------------------------------------------------------------------------
// Authentication
// ---------------------------------------------------------------------------

// SignUp registers a new account. It does not log the user in; the service
// expects a separate login call.
func (m *Manager) SignUp(ctx context.Context, username, password string) error {
	if strings.TrimSpace(username) == "" || password == "" {
		return newValidationFailure("username and password are required")
	}
	m.begin("signup")
	err := m.api.Do(ctx, http.MethodPost, "/signup", credentials{Username: username, Password: password}, nil)
	return m.finish(err)
}

// LogIn exchanges credentials for a session token, resolves the profile so
// ownership checks work, and persists the session.
func (m *Manager) LogIn(ctx context.Context, username, password string) (*User, error) {
	if strings.TrimSpace(username) == "" || password == "" {
		return nil, newValidationFailure("username and password are required")
	}
	m.begin("login")
	var reply loginReply
	if err := m.api.Do(ctx, http.MethodPost, "/login", credentials{Username: username, Password: password}, &reply); err != nil {
		return nil, m.finish(err)
	}
	m.session.Token = reply.Token
	m.api.SetToken(reply.Token)

	user, err := m.RefreshProfile(ctx)
	if err != nil {
		return nil, m.finish(err)
	}
	if err := m.session.Save(); err != nil {
		return nil, m.finish(err)
	}
	return user, m.finish(nil)
}

// LogOut forgets the local session. Cached entities go with it; they were
// only ever valid for this identity's view of the service.
func (m *Manager) LogOut() error {
	m.api.SetToken("")
	m.cache.Clear()
	return m.session.Clear()
}

// ---------------------------------------------------------------------------
// Fetches
// ---------------------------------------------------------------------------

// RefreshProfile fetches the current user and resolves identity for both
// the cache and the session.
func (m *Manager) RefreshProfile(ctx context.Context) (*User, error) {
	if !m.session.LoggedIn() {
		return nil, ErrNotLoggedIn
	}
	var u User
	if err := m.api.Get(ctx, "/profile", &u); err != nil {
		return nil, err
	}
	m.cache.SetUser(u)
	m.session.User = &u
	return &u, nil
}

// RefreshBooks fetches the full book list into the cache. The service
// answers 404 for an empty catalog; that is "no books", not an error.
func (m *Manager) RefreshBooks(ctx context.Context) ([]Book, error) {
	var books []Book
	if err := m.api.Get(ctx, "/books", &books); err != nil {
		if emptyList(err) {
			return nil, nil
		}
		return nil, err
	}
	m.cache.PutBooks(books)
	return books, nil
}

// RefreshBook fetches one book's full details. The result is discarded when
// the caller has focused a different book since the request was issued.
func (m *Manager) RefreshBook(ctx context.Context, id int64) (*Book, error) {
	gen := m.focusGen
	var b Book
	if err := m.api.Get(ctx, fmt.Sprintf("/books/%d", id), &b); err != nil {
		return nil, err
	}
	if gen != m.focusGen {
		return nil, ErrStaleResponse
	}
	b.ID = id // detail payload repeats the id; trust the path either way
	m.cache.PutBook(b)
	return m.cache.Book(id), nil
}

// RefreshBookReviews fetches one book's reviews and reconciles that book's
// region of the cache, evicting reviews the server no longer reports. A 404
// means the book has no reviews yet. Late responses for a previously
// focused book are discarded.
func (m *Manager) RefreshBookReviews(ctx context.Context, bookID int64) ([]Review, error) {
	gen := m.focusGen
	var reviews []Review
	if err := m.api.Get(ctx, fmt.Sprintf("/books/%d/reviews", bookID), &reviews); err != nil {
		if !emptyList(err) {
			return nil, err
		}
		reviews = nil
	}
	if gen != m.focusGen {
		return nil, ErrStaleResponse
	}
	for i := range reviews {
		reviews[i].BookID = bookID
	}
	m.cache.ReplaceBookReviews(bookID, reviews)
	return ReviewsForBook(m.cache, bookID, 0), nil
}

// RefreshMyBooks fetches the books the current user added.
func (m *Manager) RefreshMyBooks(ctx context.Context) ([]Book, error) {
	if !m.session.LoggedIn() {
		return nil, ErrNotLoggedIn
	}
	var books []Book
	if err := m.api.Get(ctx, "/profile/books", &books); err != nil {
		if emptyList(err) {
			return nil, nil
		}
		return nil, err
	}
	// The profile listing omits creator_id; these are ours by definition.
	for i := range books {
		if books[i].CreatorID == 0 {
			books[i].CreatorID = m.session.UserID()
		}
	}
	m.cache.PutBooks(books)
	return books, nil
}

// RefreshMyReviews fetches the reviews the current user wrote. The profile
// listing omits user_id, so it is stamped from the session before the merge
// (the merge rule would otherwise have nothing to preserve on first sight).
func (m *Manager) RefreshMyReviews(ctx context.Context) ([]Review, error) {
	if !m.session.LoggedIn() {
		return nil, ErrNotLoggedIn
	}
	var reviews []Review
	if err := m.api.Get(ctx, "/profile/reviews", &reviews); err != nil {
		if emptyList(err) {
			return nil, nil
		}
		return nil, err
	}
	for i := range reviews {
		if reviews[i].UserID == 0 {
			reviews[i].UserID = m.session.UserID()
		}
	}
	m.cache.PutReviews(reviews)
	return ReviewsBy(m.cache, m.session.UserID()), nil
}

// emptyList reports whether err is the service's 404 for an empty listing.
func emptyList(err error) bool {
	var f *Failure
	return errors.As(err, &f) && f.Kind == FailServer && f.Status == http.StatusNotFound
}

// ---------------------------------------------------------------------------
// Book mutations
// ---------------------------------------------------------------------------

// CreateBook validates locally, posts the book, and on success caches it
// under the id the service assigned, with the current user as creator.
func (m *Manager) CreateBook(ctx context.Context, title, author, published, description string) (*Book, error) {
	if !m.session.LoggedIn() {
		return nil, ErrNotLoggedIn
	}
	if strings.TrimSpace(title) == "" || strings.TrimSpace(author) == "" || strings.TrimSpace(published) == "" {
		return nil, newValidationFailure("title, author and publication date are required")
	}
	m.begin("create book")
	body := bookWrite{
		CreatorID:   m.session.UserID(),
		Title:       title,
		Author:      author,
		Published:   published,
		Description: description,
	}
	var reply mutationReply
	if err := m.api.Do(ctx, http.MethodPost, "/books", body, &reply); err != nil {
		return nil, m.finish(err)
	}
	book := Book{
		ID:          reply.BookID,
		CreatorID:   m.session.UserID(),
		Title:       title,
		Author:      author,
		Published:   published,
		Description: description,
	}
	m.cache.PutBook(book)
	return m.cache.Book(book.ID), m.finish(nil)
}

// UpdateBook sends a partial edit of an owned book. The service validates
// updates against the full create schema, so the patch is layered over the
// cached snapshot and sent whole; on success that confirmed snapshot
// replaces the cached one. On failure the cache keeps the pre-update
// snapshot.
func (m *Manager) UpdateBook(ctx context.Context, id int64, patch BookPatch) (*Book, error) {
	if !m.session.LoggedIn() {
		return nil, ErrNotLoggedIn
	}
	prior := m.cache.Book(id)
	if !IsBookOwnedBy(prior, m.session.UserID()) {
		return nil, newPermissionFailure("book %d is not yours to edit", id)
	}
	body := bookWrite{
		CreatorID:   prior.CreatorID,
		Title:       stringOr(patch.Title, prior.Title),
		Author:      stringOr(patch.Author, prior.Author),
		Published:   stringOr(patch.Published, prior.Published),
		Description: stringOr(patch.Description, prior.Description),
	}
	if strings.TrimSpace(body.Title) == "" || strings.TrimSpace(body.Author) == "" || strings.TrimSpace(body.Published) == "" {
		return nil, newValidationFailure("title, author and publication date cannot be empty")
	}
	m.begin("update book")
	if err := m.api.Do(ctx, http.MethodPut, fmt.Sprintf("/profile/books/%d", id), body, nil); err != nil {
		return nil, m.finish(err)
	}
	// The full field set was confirmed, so store it exactly: a merge would
	// read an emptied description as absent and keep the old text.
	updated := *prior
	updated.Title = body.Title
	updated.Author = body.Author
	updated.Published = body.Published
	updated.Description = body.Description
	m.cache.SetBook(updated)
	return m.cache.Book(id), m.finish(nil)
}

// DeleteBook removes an owned book and mirrors the server's cascade by
// evicting every cached review of that book, so no projection can dangle.
func (m *Manager) DeleteBook(ctx context.Context, id int64) error {
	if !m.session.LoggedIn() {
		return ErrNotLoggedIn
	}
	if !IsBookOwnedBy(m.cache.Book(id), m.session.UserID()) {
		return newPermissionFailure("book %d is not yours to delete", id)
	}
	m.begin("delete book")
	if err := m.api.Do(ctx, http.MethodDelete, fmt.Sprintf("/profile/books/%d", id), nil, nil); err != nil {
		return m.finish(err)
	}
	m.cache.RemoveBook(id)
	for _, r := range m.cache.Reviews() {
		if r.BookID == id {
			m.cache.RemoveReview(r.ID)
		}
	}
	return m.finish(nil)
}

// ---------------------------------------------------------------------------
// Review mutations
// ---------------------------------------------------------------------------

// CreateReview posts a review after the local guards: rating in [1,5],
// non-empty content, and no existing review by this user for the book (one
// review per user per book; rejecting here spares the round trip).
func (m *Manager) CreateReview(ctx context.Context, bookID int64, content string, rating int) (*Review, error) {
	if !m.session.LoggedIn() {
		return nil, ErrNotLoggedIn
	}
	if strings.TrimSpace(content) == "" {
		return nil, newValidationFailure("review content is required")
	}
	if rating < 1 || rating > 5 {
		return nil, newValidationFailure("rating must be between 1 and 5, got %d", rating)
	}
	if existing := MyReviewForBook(m.cache, bookID, m.session.UserID()); existing != nil {
		return nil, newValidationFailure("you have already reviewed this book (review %d)", existing.ID)
	}
	m.begin("create review")
	var reply mutationReply
	path := fmt.Sprintf("/books/%d/reviews", bookID)
	if err := m.api.Do(ctx, http.MethodPost, path, reviewWrite{Content: content, Rating: rating}, &reply); err != nil {
		return nil, m.finish(err)
	}
	now := time.Now().UTC()
	review := Review{
		ID:      reply.ReviewID,
		UserID:  m.session.UserID(),
		BookID:  bookID,
		Date:    now.Format("2006-01-02"),
		Time:    now.Format("15:04:05"),
		Content: content,
		Rating:  rating,
	}
	m.cache.PutReview(review)
	// The service assigns the review's date and time. Re-fetch the listing
	// so the cache holds the server's stamps instead of the local clock;
	// the provisional snapshot stands if this fetch fails.
	var listed []Review
	if err := m.api.Get(ctx, path, &listed); err == nil {
		for i := range listed {
			listed[i].BookID = bookID
		}
		m.cache.ReplaceBookReviews(bookID, listed)
	}
	return m.cache.Review(review.ID), m.finish(nil)
}

// UpdateReview edits an owned review. Only confirmed fields reach the
// cache, and the identifiers always survive the merge.
func (m *Manager) UpdateReview(ctx context.Context, id int64, patch ReviewPatch) (*Review, error) {
	if !m.session.LoggedIn() {
		return nil, ErrNotLoggedIn
	}
	prior := m.cache.Review(id)
	if !IsReviewOwnedBy(prior, m.session.UserID()) {
		return nil, newPermissionFailure("review %d is not yours to edit", id)
	}
	body := reviewWrite{
		Content: stringOr(patch.Content, prior.Content),
		Rating:  intOr(patch.Rating, prior.Rating),
	}
	if strings.TrimSpace(body.Content) == "" {
		return nil, newValidationFailure("review content cannot be empty")
	}
	if body.Rating < 1 || body.Rating > 5 {
		return nil, newValidationFailure("rating must be between 1 and 5, got %d", body.Rating)
	}
	m.begin("update review")
	if err := m.api.Do(ctx, http.MethodPut, fmt.Sprintf("/reviews/%d", id), body, nil); err != nil {
		return nil, m.finish(err)
	}
	m.cache.PutReview(Review{ID: id, Content: body.Content, Rating: body.Rating})
	return m.cache.Review(id), m.finish(nil)
}

// DeleteReview removes an owned review from the service and the cache.
func (m *Manager) DeleteReview(ctx context.Context, id int64) error {
	if !m.session.LoggedIn() {
		return ErrNotLoggedIn
	}
	if !IsReviewOwnedBy(m.cache.Review(id), m.session.UserID()) {
		return newPermissionFailure("review %d is not yours to delete", id)
	}
	m.begin("delete review")
	if err := m.api.Do(ctx, http.MethodDelete, fmt.Sprintf("/reviews/%d", id), nil, nil); err != nil {
		return m.finish(err)
	}
	m.cache.RemoveReview(id)
	return m.finish(nil)
}

// ---------------------------------------------------------------------------
// Profile mutations
// ---------------------------------------------------------------------------

// UpdateProfile changes the account's username and password. The service
// requires both on this endpoint.
func (m *Manager) UpdateProfile(ctx context.Context, username, password string) (*User, error) {
	if !m.session.LoggedIn() {
		return nil, ErrNotLoggedIn
	}
	if strings.TrimSpace(username) == "" || password == "" {
		return nil, newValidationFailure("username and password are required")
	}
	m.begin("update profile")
	if err := m.api.Do(ctx, http.MethodPut, "/profile", credentials{Username: username, Password: password}, nil); err != nil {
		return nil, m.finish(err)
	}
	u := User{ID: m.session.UserID(), Username: username}
	m.cache.SetUser(u)
	m.session.User = &u
	if err := m.session.Save(); err != nil {
		return nil, m.finish(err)
	}
	return &u, m.finish(nil)
}

// DeleteAccount deletes the user server-side (which cascades to their books
// and reviews there), then drops everything local: the whole cache and the
// session. The caller is unauthenticated afterwards.
func (m *Manager) DeleteAccount(ctx context.Context) error {
	if !m.session.LoggedIn() {
		return ErrNotLoggedIn
	}
	m.begin("delete account")
	if err := m.api.Do(ctx, http.MethodDelete, "/profile", nil, nil); err != nil {
		return m.finish(err)
	}
	m.cache.Clear()
	m.api.SetToken("")
	if err := m.session.Clear(); err != nil {
		return m.finish(err)
	}
	return m.finish(nil)
}

// ---------------------------------------------------------------------------
// Small helpers
// ---------------------------------------------------------------------------

func stringOr(p *string, fallback string) string {
	if p != nil {
		return *p
	}
	return fallback
}

func intOr(p *int, fallback int) int {
	if p != nil {
		return *p
	}
	return fallback
}
