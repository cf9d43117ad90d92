package bookreview

// User identifies the authenticated account as the service reports it.
type User struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
}

// Book is the last-known snapshot of a book. Field names on the wire follow
// the service schema, which capitalizes the date/description/rating columns.
// AverageRating is derived server-side and read-only here; nil means the
// service has not reported it (no ratings yet, or a compressed list row).
type Book struct {
	ID            int64    `json:"id"`
	CreatorID     int64    `json:"creator_id,omitempty"`
	Title         string   `json:"title"`
	Author        string   `json:"author"`
	Published     string   `json:"Date_published"`
	Description   string   `json:"Description,omitempty"`
	AverageRating *float64 `json:"Average_rating,omitempty"`
}

// Review is the last-known snapshot of a review. Date and Time are the
// service's separate date ("2006-01-02") and time ("15:04:05") columns.
// The nested User/Book are present only on some endpoints.
type Review struct {
	ID      int64  `json:"id"`
	UserID  int64  `json:"user_id,omitempty"`
	BookID  int64  `json:"book_id"`
	Date    string `json:"date"`
	Time    string `json:"time"`
	Content string `json:"content"`
	Rating  int    `json:"rating"`
	User    *User  `json:"user,omitempty"`
	Book    *Book  `json:"book,omitempty"`
}

// BookPatch carries the fields of a partial book update. A nil field is left
// as it was. Identifiers are never part of a patch.
type BookPatch struct {
	Title       *string
	Author      *string
	Published   *string
	Description *string
}

// ReviewPatch carries the fields of a partial review update.
type ReviewPatch struct {
	Content *string
	Rating  *int
}

// bookWrite is the request body for creating or updating a book. The update
// endpoint validates against the same schema as create, so the full field
// set (including creator_id) is always sent.
type bookWrite struct {
	CreatorID   int64  `json:"creator_id"`
	Title       string `json:"title"`
	Author      string `json:"author"`
	Published   string `json:"Date_published"`
	Description string `json:"Description"`
}

// reviewWrite is the request body for creating or updating a review.
type reviewWrite struct {
	Content string `json:"content"`
	Rating  int    `json:"rating"`
}

// credentials is the request body for signup, login and profile update.
type credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// mutationReply is the acknowledgement shape the service returns from
// mutations: a message plus the new id on creates.
type mutationReply struct {
	Message  string `json:"message"`
	BookID   int64  `json:"book_id,omitempty"`
	ReviewID int64  `json:"review_id,omitempty"`
}

// loginReply carries the session token issued by the login endpoint.
type loginReply struct {
	Token string `json:"token"`
}
