package bookreview

// Cache is the in-memory store of last-known server entities keyed by id.
// It lives for one session and is mutated only by the Manager and its
// fetches; projections read it freely. All access is expected from the
// single goroutine driving the front end, so there is no locking.
type Cache struct {
	books   map[int64]Book
	reviews map[int64]Review
	user    *User
}

// NewCache returns an empty cache.
func NewCache() *Cache {
	return &Cache{
		books:   make(map[int64]Book),
		reviews: make(map[int64]Review),
	}
}

// ---------------------------------------------------------------------------
// Lookups
// ---------------------------------------------------------------------------

// Book returns a copy of the cached book, or nil when absent.
func (c *Cache) Book(id int64) *Book {
	b, ok := c.books[id]
	if !ok {
		return nil
	}
	return &b
}

// Review returns a copy of the cached review, or nil when absent.
func (c *Cache) Review(id int64) *Review {
	r, ok := c.reviews[id]
	if !ok {
		return nil
	}
	return &r
}

// User returns the cached profile, or nil when identity is unresolved.
func (c *Cache) User() *User {
	if c.user == nil {
		return nil
	}
	u := *c.user
	return &u
}

// Books returns copies of every cached book, in no particular order.
func (c *Cache) Books() []Book {
	out := make([]Book, 0, len(c.books))
	for _, b := range c.books {
		out = append(out, b)
	}
	return out
}

// Reviews returns copies of every cached review, in no particular order.
func (c *Cache) Reviews() []Review {
	out := make([]Review, 0, len(c.reviews))
	for _, r := range c.reviews {
		out = append(out, r)
	}
	return out
}

// ---------------------------------------------------------------------------
// Writes
// ---------------------------------------------------------------------------

// PutBook inserts or replaces a book by id, merging with any prior snapshot:
// zero-valued fields in the incoming book mean "not reported" and keep their
// previous value, so a partial response can never clobber the creator or an
// already-known description.
func (c *Cache) PutBook(b Book) {
	if old, ok := c.books[b.ID]; ok {
		b = mergeBook(old, b)
	}
	c.books[b.ID] = b
}

// PutBooks applies PutBook to each entry; used after a full list fetch.
func (c *Cache) PutBooks(bs []Book) {
	for _, b := range bs {
		c.PutBook(b)
	}
}

// PutReview inserts or replaces a review by id with the same merge rule.
func (c *Cache) PutReview(r Review) {
	if old, ok := c.reviews[r.ID]; ok {
		r = mergeReview(old, r)
	}
	c.reviews[r.ID] = r
}

// PutReviews applies PutReview to each entry.
func (c *Cache) PutReviews(rs []Review) {
	for _, r := range rs {
		c.PutReview(r)
	}
}

// ReplaceBookReviews reconciles one book's review region with a freshly
// fetched list: listed reviews are merged in, and cached reviews for that
// book that the server no longer reports are evicted. Reviews of other
// books are untouched.
func (c *Cache) ReplaceBookReviews(bookID int64, rs []Review) {
	listed := make(map[int64]bool, len(rs))
	for _, r := range rs {
		listed[r.ID] = true
	}
	for id, r := range c.reviews {
		if r.BookID == bookID && !listed[id] {
			delete(c.reviews, id)
		}
	}
	c.PutReviews(rs)
}

// SetBook stores the exact snapshot, bypassing the merge. For confirmed
// full-body writes, where an empty field means empty rather than absent.
func (c *Cache) SetBook(b Book) { c.books[b.ID] = b }

// SetUser records the resolved profile.
func (c *Cache) SetUser(u User) { c.user = &u }

// RemoveBook evicts a book. Removing an absent id is a no-op.
func (c *Cache) RemoveBook(id int64) { delete(c.books, id) }

// RemoveReview evicts a review. Removing an absent id is a no-op.
func (c *Cache) RemoveReview(id int64) { delete(c.reviews, id) }

// Clear drops everything, including the resolved profile. Used when the
// account is deleted and the session ends.
func (c *Cache) Clear() {
	c.books = make(map[int64]Book)
	c.reviews = make(map[int64]Review)
	c.user = nil
}

// ---------------------------------------------------------------------------
// Merge rules
// ---------------------------------------------------------------------------

// mergeBook layers an incoming snapshot over the prior one. Identifier
// fields always survive if the incoming snapshot omits them.
func mergeBook(old, in Book) Book {
	out := old
	if in.CreatorID != 0 {
		out.CreatorID = in.CreatorID
	}
	if in.Title != "" {
		out.Title = in.Title
	}
	if in.Author != "" {
		out.Author = in.Author
	}
	if in.Published != "" {
		out.Published = in.Published
	}
	if in.Description != "" {
		out.Description = in.Description
	}
	if in.AverageRating != nil {
		out.AverageRating = in.AverageRating
	}
	return out
}

func mergeReview(old, in Review) Review {
	out := old
	if in.UserID != 0 {
		out.UserID = in.UserID
	}
	if in.BookID != 0 {
		out.BookID = in.BookID
	}
	if in.Date != "" {
		out.Date = in.Date
	}
	if in.Time != "" {
		out.Time = in.Time
	}
	if in.Content != "" {
		out.Content = in.Content
	}
	if in.Rating != 0 {
		out.Rating = in.Rating
	}
	if in.User != nil {
		out.User = in.User
	}
	if in.Book != nil {
		out.Book = in.Book
	}
	return out
}
