package bookreview

import "testing"

func seededCache() *Cache {
	c := NewCache()
	c.PutBooks([]Book{
		{ID: 1, Title: "A", Author: "aa", CreatorID: 9},
		{ID: 2, Title: "B", Author: "bb", CreatorID: 7},
		{ID: 3, Title: "C", Author: "cc", CreatorID: 9},
	})
	c.PutReviews([]Review{
		{ID: 1, BookID: 1, UserID: 7, Date: "2025-03-01", Time: "10:00:00", Content: "early", Rating: 3},
		{ID: 2, BookID: 1, UserID: 9, Date: "2025-03-02", Time: "09:00:00", Content: "mine", Rating: 5},
		{ID: 3, BookID: 1, UserID: 8, Date: "2025-03-02", Time: "11:30:00", Content: "late", Rating: 4},
		{ID: 4, BookID: 2, UserID: 9, Date: "2025-01-15", Time: "08:00:00", Content: "other book", Rating: 2},
	})
	return c
}

func TestReviewsForBookOrderedNewestFirst(t *testing.T) {
	c := seededCache()
	rs := ReviewsForBook(c, 1, 0)
	if len(rs) != 3 {
		t.Fatalf("want 3 reviews for book 1, got %d", len(rs))
	}
	want := []int64{3, 2, 1}
	for i, id := range want {
		if rs[i].ID != id {
			t.Fatalf("order = %v at %d, want review %d", rs[i].ID, i, id)
		}
	}
}

func TestMyReviewNeverAppearsTwice(t *testing.T) {
	c := seededCache()

	mine := MyReviewForBook(c, 1, 9)
	if mine == nil || mine.ID != 2 {
		t.Fatalf("my review = %+v, want id 2", mine)
	}

	rest := ReviewsForBook(c, 1, 9)
	for _, r := range rest {
		if r.ID == mine.ID || r.UserID == 9 {
			t.Fatalf("excluded review leaked into the list: %+v", r)
		}
	}
	if len(rest) != 2 {
		t.Fatalf("want 2 remaining reviews, got %d", len(rest))
	}
}

func TestUnresolvedIdentityAnswersSafely(t *testing.T) {
	c := seededCache()

	if MyReviewForBook(c, 1, 0) != nil {
		t.Fatalf("unresolved user must have no review")
	}
	if IsBookOwnedBy(c.Book(1), 0) {
		t.Fatalf("unresolved user owns nothing")
	}
	if IsBookOwnedBy(nil, 9) {
		t.Fatalf("nil book is never owned")
	}
	if IsReviewOwnedBy(nil, 9) {
		t.Fatalf("nil review is never owned")
	}
	if got := BooksOwnedBy(c, 0); len(got) != 0 {
		t.Fatalf("unresolved user has no books, got %d", len(got))
	}
	if got := ReviewsBy(c, 0); len(got) != 0 {
		t.Fatalf("unresolved user has no reviews, got %d", len(got))
	}
}

func TestOwnedListsStableOrder(t *testing.T) {
	c := seededCache()

	books := BooksOwnedBy(c, 9)
	if len(books) != 2 || books[0].ID != 1 || books[1].ID != 3 {
		t.Fatalf("books owned by 9 = %+v", books)
	}

	reviews := ReviewsBy(c, 9)
	if len(reviews) != 2 || reviews[0].ID != 2 || reviews[1].ID != 4 {
		t.Fatalf("reviews by 9 = %+v", reviews)
	}
}

func TestProjectionsRecomputeAfterCacheChange(t *testing.T) {
	c := seededCache()

	c.RemoveReview(2)
	if MyReviewForBook(c, 1, 9) != nil {
		t.Fatalf("projection served a deleted review")
	}
	if len(ReviewsForBook(c, 1, 0)) != 2 {
		t.Fatalf("deleted review still listed")
	}
}
