package bookreview

import "sort"

// View projections: pure, read-only derivations over the cache and the
// session's resolved user id. They are recomputed on every call and never
// stored, so a list view and the pinned "my review" slot can never drift
// apart. An unresolved user id (0) makes every ownership answer false and
// every "my ..." projection empty instead of failing.

// ReviewsForBook returns the cached reviews for one book, newest first by
// (date, time). When excludeUserID is non-zero that user's review is left
// out, so the caller can pin it separately without showing it twice.
func ReviewsForBook(c *Cache, bookID, excludeUserID int64) []Review {
	var out []Review
	for _, r := range c.Reviews() {
		if r.BookID != bookID {
			continue
		}
		if excludeUserID != 0 && r.UserID == excludeUserID {
			continue
		}
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.Date != b.Date {
			return a.Date > b.Date
		}
		if a.Time != b.Time {
			return a.Time > b.Time
		}
		return a.ID > b.ID
	})
	return out
}

// MyReviewForBook returns the user's own review of the book, or nil. At most
// one exists per (book, user); if the cache ever held more, the earliest id
// wins deterministically.
func MyReviewForBook(c *Cache, bookID, userID int64) *Review {
	if userID == 0 {
		return nil
	}
	var found *Review
	for _, r := range c.Reviews() {
		if r.BookID != bookID || r.UserID != userID {
			continue
		}
		if found == nil || r.ID < found.ID {
			r := r
			found = &r
		}
	}
	return found
}

// IsBookOwnedBy reports whether the user added the book. Nil book or
// unresolved user is simply "no".
func IsBookOwnedBy(b *Book, userID int64) bool {
	return b != nil && userID != 0 && b.CreatorID == userID
}

// IsReviewOwnedBy reports whether the user wrote the review.
func IsReviewOwnedBy(r *Review, userID int64) bool {
	return r != nil && userID != 0 && r.UserID == userID
}

// BooksOwnedBy returns the books the user added, ordered by id.
func BooksOwnedBy(c *Cache, userID int64) []Book {
	var out []Book
	if userID == 0 {
		return out
	}
	for _, b := range c.Books() {
		if b.CreatorID == userID {
			out = append(out, b)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// ReviewsBy returns the reviews the user wrote, ordered by id.
func ReviewsBy(c *Cache, userID int64) []Review {
	var out []Review
	if userID == 0 {
		return out
	}
	for _, r := range c.Reviews() {
		if r.UserID == userID {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// AllBooks returns every cached book ordered by id, for the browse list.
func AllBooks(c *Cache) []Book {
	out := c.Books()
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
