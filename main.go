package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"syscall"
	"time"

	"bookreview-cli/bookreview"

	"github.com/spf13/cobra"
	"golang.org/x/term"
)

var mgr *bookreview.Manager

// readPassword securely reads a password with masking.
func readPassword(prompt string) (string, error) {
	fmt.Print(prompt)
	bytePassword, err := term.ReadPassword(int(syscall.Stdin))
	if err != nil {
		return "", err
	}
	fmt.Println() // newline after masked input
	return strings.TrimSpace(string(bytePassword)), nil
}

// confirm asks a yes/no question on stdin and defaults to no.
func confirm(prompt string) bool {
	fmt.Printf("%s [y/N]: ", prompt)
	sc := bufio.NewScanner(os.Stdin)
	if !sc.Scan() {
		return false
	}
	answer := strings.ToLower(strings.TrimSpace(sc.Text()))
	return answer == "y" || answer == "yes"
}

func parseID(arg string) (int64, error) {
	id, err := strconv.ParseInt(arg, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%q is not a valid id", arg)
	}
	return id, nil
}

func main() {
	root := &cobra.Command{
		Use:           "bookreview",
		Short:         "Command-line client for the book review service",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := bookreview.LoadConfig()
			if err != nil {
				return err
			}
			mgr, err = bookreview.NewManager(cfg)
			return err
		},
	}

	root.AddCommand(signupCmd(), loginCmd(), logoutCmd(), whoamiCmd())
	root.AddCommand(booksCmd())
	root.AddCommand(reviewCmd())
	root.AddCommand(profileCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// ---------------------------------------------------------------------------
// Auth commands
// ---------------------------------------------------------------------------

func signupCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "signup <username>",
		Short: "Create a new account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			password, err := readPassword("Choose a password: ")
			if err != nil {
				return err
			}
			if err := mgr.SignUp(context.Background(), args[0], password); err != nil {
				return err
			}
			fmt.Println("Account created. Log in with: bookreview login", args[0])
			return nil
		},
	}
}

func loginCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "login <username>",
		Short: "Log in and store the session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			password, err := readPassword("Password: ")
			if err != nil {
				return err
			}
			user, err := mgr.LogIn(context.Background(), args[0], password)
			if err != nil {
				return err
			}
			fmt.Printf("Logged in as %s (id %d).\n", user.Username, user.ID)
			return nil
		},
	}
}

func logoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the stored session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := mgr.LogOut(); err != nil {
				return err
			}
			fmt.Println("Logged out.")
			return nil
		},
	}
}

func whoamiCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the current session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			session := mgr.Session()
			if !session.LoggedIn() {
				fmt.Println("Not logged in.")
				return nil
			}
			subject, err := session.Subject()
			if err != nil {
				return err
			}
			fmt.Printf("Logged in as %s", subject)
			if exp, err := session.ExpiresAt(); err == nil && !exp.IsZero() {
				fmt.Printf(" (session expires %s)", exp.Local().Format("2006-01-02 15:04"))
			}
			fmt.Println()
			if session.TokenExpired() {
				fmt.Println("The session has expired; log in again.")
			}
			return nil
		},
	}
}

// ---------------------------------------------------------------------------
// Book commands
// ---------------------------------------------------------------------------

func booksCmd() *cobra.Command {
	books := &cobra.Command{
		Use:   "books",
		Short: "Browse and manage books",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runListBooks()
		},
	}

	books.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List all books",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runListBooks()
		},
	})

	books.AddCommand(&cobra.Command{
		Use:   "show <id>",
		Short: "Show a book and its reviews",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return runShowBook(id)
		},
	})

	add := &cobra.Command{
		Use:   "add <title>",
		Short: "Add a book to the catalog",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			author, _ := cmd.Flags().GetString("author")
			published, _ := cmd.Flags().GetString("published")
			description, _ := cmd.Flags().GetString("description")
			if _, err := mgr.RefreshProfile(context.Background()); err != nil {
				return err
			}
			book, err := mgr.CreateBook(context.Background(), args[0], author, published, description)
			if err != nil {
				return err
			}
			fmt.Printf("Book added with id %d.\n", book.ID)
			return nil
		},
	}
	add.Flags().String("author", "", "book author (required)")
	add.Flags().String("published", "", "publication date, YYYY-MM-DD (required)")
	add.Flags().String("description", "", "book description")

	edit := &cobra.Command{
		Use:   "edit <id>",
		Short: "Edit a book you added",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			if err := ensureBookCached(id); err != nil {
				return err
			}
			var patch bookreview.BookPatch
			if cmd.Flags().Changed("title") {
				v, _ := cmd.Flags().GetString("title")
				patch.Title = &v
			}
			if cmd.Flags().Changed("author") {
				v, _ := cmd.Flags().GetString("author")
				patch.Author = &v
			}
			if cmd.Flags().Changed("published") {
				v, _ := cmd.Flags().GetString("published")
				patch.Published = &v
			}
			if cmd.Flags().Changed("description") {
				v, _ := cmd.Flags().GetString("description")
				patch.Description = &v
			}
			book, err := mgr.UpdateBook(context.Background(), id, patch)
			if err != nil {
				return err
			}
			fmt.Printf("Updated %q.\n", book.Title)
			return nil
		},
	}
	edit.Flags().String("title", "", "new title")
	edit.Flags().String("author", "", "new author")
	edit.Flags().String("published", "", "new publication date")
	edit.Flags().String("description", "", "new description")

	del := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a book you added (and its reviews)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			if err := ensureBookCached(id); err != nil {
				return err
			}
			yes, _ := cmd.Flags().GetBool("yes")
			if !yes && !confirm("Are you sure you want to delete this book?") {
				return nil
			}
			if err := mgr.DeleteBook(context.Background(), id); err != nil {
				return err
			}
			fmt.Println("Book deleted.")
			return nil
		},
	}
	del.Flags().Bool("yes", false, "skip the confirmation prompt")

	books.AddCommand(add, edit, del)
	return books
}

func runListBooks() error {
	ctx := context.Background()
	if _, err := mgr.RefreshBooks(ctx); err != nil {
		return err
	}
	books := bookreview.AllBooks(mgr.Cache())
	if len(books) == 0 {
		fmt.Println("No books yet. Add one with: bookreview books add")
		return nil
	}
	fmt.Printf("%-5s %-35s %-25s %-12s %s\n", "ID", "TITLE", "AUTHOR", "PUBLISHED", "RATING")
	for _, b := range books {
		fmt.Println(prettyBookRow(b))
	}
	return nil
}

func runShowBook(id int64) error {
	ctx := context.Background()
	mgr.FocusBook(id)

	if mgr.Session().LoggedIn() {
		if _, err := mgr.RefreshProfile(ctx); err != nil {
			return err
		}
	}
	book, err := mgr.RefreshBook(ctx, id)
	if err != nil {
		return err
	}
	if _, err := mgr.RefreshBookReviews(ctx, id); err != nil {
		return err
	}

	uid := mgr.Session().UserID()
	fmt.Printf("%s\nby %s\nPublished: %s\n", book.Title, book.Author, book.Published)
	if book.Description != "" {
		fmt.Println(book.Description)
	}
	if book.AverageRating != nil {
		fmt.Printf("Average rating: %.1f/5\n", *book.AverageRating)
	} else {
		fmt.Println("No ratings yet")
	}
	if bookreview.IsBookOwnedBy(book, uid) {
		fmt.Println("(you added this book; 'books edit' and 'books delete' apply)")
	}

	mine := bookreview.MyReviewForBook(mgr.Cache(), id, uid)
	others := bookreview.ReviewsForBook(mgr.Cache(), id, uid)
	if mine == nil && len(others) == 0 {
		fmt.Println("\nNo reviews yet.")
	} else {
		fmt.Println("\nReviews:")
		if mine != nil {
			fmt.Println(prettyReview(*mine, "you"))
		}
		for _, r := range others {
			name := ""
			if r.User != nil {
				name = r.User.Username
			}
			fmt.Println(prettyReview(r, name))
		}
	}
	if mine == nil && uid != 0 {
		fmt.Println("\nPost your own with: bookreview review add", id)
	}
	return nil
}

// ensureBookCached fetches a book's snapshot so ownership can be checked
// before a mutation is dispatched. The detail endpoint omits creator_id,
// so the owned-books listing is fetched too; it stamps the creator on the
// books that are ours, and the merge keeps that stamp when the detail
// snapshot arrives without one.
func ensureBookCached(id int64) error {
	if mgr.Session().LoggedIn() {
		if _, err := mgr.RefreshProfile(context.Background()); err != nil {
			return err
		}
		if _, err := mgr.RefreshMyBooks(context.Background()); err != nil {
			return err
		}
	}
	if mgr.Cache().Book(id) != nil {
		return nil
	}
	mgr.FocusBook(id)
	_, err := mgr.RefreshBook(context.Background(), id)
	return err
}

// ---------------------------------------------------------------------------
// Review commands
// ---------------------------------------------------------------------------

func reviewCmd() *cobra.Command {
	review := &cobra.Command{
		Use:   "review",
		Short: "Post and manage reviews",
	}

	add := &cobra.Command{
		Use:   "add <bookID>",
		Short: "Review a book (one review per book)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			bookID, err := parseID(args[0])
			if err != nil {
				return err
			}
			ctx := context.Background()
			if mgr.Session().LoggedIn() {
				if _, err := mgr.RefreshProfile(ctx); err != nil {
					return err
				}
			}
			// Load existing reviews so the duplicate guard can answer.
			mgr.FocusBook(bookID)
			if _, err := mgr.RefreshBookReviews(ctx, bookID); err != nil {
				return err
			}
			content, _ := cmd.Flags().GetString("content")
			rating, _ := cmd.Flags().GetInt("rating")
			r, err := mgr.CreateReview(ctx, bookID, content, rating)
			if err != nil {
				return err
			}
			fmt.Printf("Review posted (id %d).\n", r.ID)
			return nil
		},
	}
	add.Flags().String("content", "", "review text (required)")
	add.Flags().Int("rating", 0, "star rating 1-5 (required)")

	edit := &cobra.Command{
		Use:   "edit <id>",
		Short: "Edit one of your reviews",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			ctx := context.Background()
			if _, err := mgr.RefreshProfile(ctx); err != nil {
				return err
			}
			if _, err := mgr.RefreshMyReviews(ctx); err != nil {
				return err
			}
			var patch bookreview.ReviewPatch
			if cmd.Flags().Changed("content") {
				v, _ := cmd.Flags().GetString("content")
				patch.Content = &v
			}
			if cmd.Flags().Changed("rating") {
				v, _ := cmd.Flags().GetInt("rating")
				patch.Rating = &v
			}
			if _, err := mgr.UpdateReview(ctx, id, patch); err != nil {
				return err
			}
			fmt.Println("Review updated.")
			return nil
		},
	}
	edit.Flags().String("content", "", "new review text")
	edit.Flags().Int("rating", 0, "new star rating 1-5")

	del := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete one of your reviews",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			ctx := context.Background()
			if _, err := mgr.RefreshProfile(ctx); err != nil {
				return err
			}
			if _, err := mgr.RefreshMyReviews(ctx); err != nil {
				return err
			}
			yes, _ := cmd.Flags().GetBool("yes")
			if !yes && !confirm("Are you sure you want to delete this review?") {
				return nil
			}
			if err := mgr.DeleteReview(ctx, id); err != nil {
				return err
			}
			fmt.Println("Review deleted.")
			return nil
		},
	}
	del.Flags().Bool("yes", false, "skip the confirmation prompt")

	review.AddCommand(add, edit, del)
	return review
}

// ---------------------------------------------------------------------------
// Profile commands
// ---------------------------------------------------------------------------

func profileCmd() *cobra.Command {
	profile := &cobra.Command{
		Use:   "profile",
		Short: "Show your profile, books and reviews",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			onlyBooks, _ := cmd.Flags().GetBool("books")
			onlyReviews, _ := cmd.Flags().GetBool("reviews")
			return runShowProfile(!onlyReviews || onlyBooks, !onlyBooks || onlyReviews)
		},
	}
	profile.Flags().Bool("books", false, "show only the books you added")
	profile.Flags().Bool("reviews", false, "show only your reviews")

	edit := &cobra.Command{
		Use:   "edit <username>",
		Short: "Change your username and password",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			password, err := readPassword("New password: ")
			if err != nil {
				return err
			}
			user, err := mgr.UpdateProfile(context.Background(), args[0], password)
			if err != nil {
				return err
			}
			fmt.Printf("Profile updated; you are now %s.\n", user.Username)
			return nil
		},
	}

	del := &cobra.Command{
		Use:   "delete",
		Short: "Delete your account and everything you posted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			yes, _ := cmd.Flags().GetBool("yes")
			if !yes && !confirm("Delete your account, your books and your reviews?") {
				return nil
			}
			if err := mgr.DeleteAccount(context.Background()); err != nil {
				return err
			}
			fmt.Println("Account deleted. Goodbye.")
			return nil
		},
	}
	del.Flags().Bool("yes", false, "skip the confirmation prompt")

	profile.AddCommand(edit, del)
	return profile
}

func runShowProfile(showBooks, showReviews bool) error {
	ctx := context.Background()
	user, err := mgr.RefreshProfile(ctx)
	if err != nil {
		if errors.Is(err, bookreview.ErrNotLoggedIn) {
			return fmt.Errorf("not logged in; run: bookreview login <username>")
		}
		return err
	}
	fmt.Printf("Profile: %s (id %d)\n", user.Username, user.ID)

	if showBooks {
		if _, err := mgr.RefreshMyBooks(ctx); err != nil {
			return err
		}
		books := bookreview.BooksOwnedBy(mgr.Cache(), user.ID)
		fmt.Printf("\nBooks added (%d):\n", len(books))
		for _, b := range books {
			fmt.Println(prettyBookRow(b))
		}
	}
	if showReviews {
		if _, err := mgr.RefreshMyReviews(ctx); err != nil {
			return err
		}
		reviews := bookreview.ReviewsBy(mgr.Cache(), user.ID)
		fmt.Printf("\nReviews written (%d):\n", len(reviews))
		for _, r := range reviews {
			title := ""
			if r.Book != nil {
				title = fmt.Sprintf("%s by %s", r.Book.Title, r.Book.Author)
			}
			fmt.Println(prettyReview(r, title))
		}
	}
	return nil
}

// ---------------------------------------------------------------------------
// Rendering
// ---------------------------------------------------------------------------

func prettyBookRow(b bookreview.Book) string {
	rating := "-"
	if b.AverageRating != nil {
		rating = fmt.Sprintf("%.1f", *b.AverageRating)
	}
	return fmt.Sprintf("%-5d %-35s %-25s %-12s %s", b.ID, b.Title, b.Author, b.Published, rating)
}

func prettyReview(r bookreview.Review, byline string) string {
	header := fmt.Sprintf("  #%d", r.ID)
	if byline != "" {
		header += " by " + byline
	}
	return fmt.Sprintf("%s\n    %d/5 on %s\n    %s", header, r.Rating, prettyTimestamp(r), r.Content)
}

// prettyTimestamp renders the service's UTC date/time pair in local time,
// falling back to the raw strings when they do not parse.
func prettyTimestamp(r bookreview.Review) string {
	ts, err := time.Parse("2006-01-02 15:04:05", r.Date+" "+r.Time)
	if err != nil {
		return strings.TrimSpace(r.Date + " " + r.Time)
	}
	return ts.Local().Format("2006-01-02 3:04 PM")
}
