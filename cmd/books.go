package cmd

import (
	"encoding/json"
	"fmt"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/zsprackett/timestream/internal/db"
)

var (
	bookTitle   string
	bookYear    int
	bookAuthor  db.Author
	listCountry string

	booksCmd = &cobra.Command{
		Use:   "books",
		Short: "Manage the book catalog",
	}

	booksAddCmd = &cobra.Command{
		Use:   "add",
		Short: "Add a book",
		RunE: withStore(func(cmd *cobra.Command, args []string, store *db.DB) error {
			if bookTitle == "" {
				return fmt.Errorf("--title is required")
			}
			b, err := store.AddBook(bookTitle, bookYear, bookAuthor)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "book added: %s (%d)\n", b.Title, b.ID)
			return nil
		}),
	}

	booksListCmd = &cobra.Command{
		Use:   "list",
		Short: "List books, optionally filtered by author country",
		RunE: withStore(func(cmd *cobra.Command, args []string, store *db.DB) error {
			empty, err := store.IsEmpty()
			if err != nil {
				return err
			}
			if empty {
				fmt.Fprintln(cmd.OutOrStdout(), "catalog is empty")
				return nil
			}

			var books []*db.Book
			if listCountry != "" {
				books, err = store.SearchBooksByAuthorCountry(listCountry)
			} else {
				books, err = store.LoadBooks()
			}
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tTITLE\tYEAR\tAUTHOR\tCOUNTRY")
			for _, b := range books {
				fmt.Fprintf(tw, "%d\t%s\t%d\t%s\t%s\n", b.ID, b.Title, b.PublishedYear, b.Author.Name, b.Author.Country)
			}
			return tw.Flush()
		}),
	}

	booksGetCmd = &cobra.Command{
		Use:   "get <id>",
		Short: "Print one book as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: withStore(func(cmd *cobra.Command, args []string, store *db.DB) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid id %q", args[0])
			}
			b, err := store.GetBook(id)
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(b)
		}),
	}

	booksResetCmd = &cobra.Command{
		Use:   "reset",
		Short: "Drop and recreate the catalog",
		RunE: withStore(func(cmd *cobra.Command, args []string, store *db.DB) error {
			if err := store.Reset(); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "catalog reset")
			return nil
		}),
	}
)

func init() {
	rootCmd.AddCommand(booksCmd)
	booksCmd.AddCommand(booksAddCmd, booksListCmd, booksGetCmd, booksResetCmd)

	booksAddCmd.Flags().StringVar(&bookTitle, "title", "", "book title")
	booksAddCmd.Flags().IntVar(&bookYear, "year", 0, "year of publication")
	booksAddCmd.Flags().StringVar(&bookAuthor.Name, "author", "", "author name")
	booksAddCmd.Flags().StringVar(&bookAuthor.Email, "email", "", "author email")
	booksAddCmd.Flags().StringVar(&bookAuthor.Country, "country", "", "author country")

	booksListCmd.Flags().StringVar(&listCountry, "country", "", "only books whose author is from this country")
}

// withStore opens the configured catalog around fn.
func withStore(fn func(*cobra.Command, []string, *db.DB) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		store, err := openDB(cfg.DBPath)
		if err != nil {
			return err
		}
		defer store.Close()
		return fn(cmd, args, store)
	}
}
