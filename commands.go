package main

import (
	"context"
	"database/sql"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"library-backend/internal/library/audit"
	"library-backend/internal/library/inventory"
	"library-backend/internal/library/members"
	"library-backend/internal/platform/auth"
	"library-backend/internal/platform/db"
)

// open loads the config, connects and migrates. Shared by the one-shot commands.
func open(ctx context.Context, configPath string) (*db.Config, *sql.DB, error) {
	cfg, err := db.LoadConfig(configPath)
	if err != nil {
		return nil, nil, err
	}
	setupLogger(cfg.Mode)
	conn, err := db.Connect(cfg.DB)
	if err != nil {
		return nil, nil, err
	}
	if err := db.Migrate(ctx, conn, cfg.DB.Driver); err != nil {
		conn.Close()
		return nil, nil, err
	}
	return cfg, conn, nil
}

func newMigrateCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create the tables if they do not exist",
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, conn, err := open(cmd.Context(), *configPath)
			if err != nil {
				return err
			}
			defer conn.Close()
			fmt.Fprintln(cmd.OutOrStdout(), "migration complete")
			return nil
		},
	}
}

// ===== import-books =====

var importHeader = []string{"isbn", "title", "author", "publisher", "genre", "pages", "price", "copies"}

func newImportBooksCmd(configPath *string) *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "import-books",
		Short: "Add stock from a CSV file (isbn,title,author,publisher,genre,pages,price,copies)",
		RunE: func(cmd *cobra.Command, _ []string) error {
			f, err := os.Open(file)
			if err != nil {
				return err
			}
			defer f.Close()

			_, conn, err := open(cmd.Context(), *configPath)
			if err != nil {
				return err
			}
			defer conn.Close()

			ok, failed, err := importBooks(cmd.Context(), inventory.NewService(conn), f, cmd.OutOrStdout())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "\nImport complete: %d ok, %d errors\n", ok, failed)
			if failed > 0 {
				return fmt.Errorf("%d rows failed", failed)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&file, "file", "", "CSV file to import")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

type stockAdder interface {
	AddStock(ctx context.Context, role auth.Role, req inventory.AddStockRequest) (*inventory.AddStockResponse, error)
}

// importBooks は1行ずつ addStock に通す。行単位の失敗は数えて続行する。
func importBooks(ctx context.Context, svc stockAdder, r io.Reader, out io.Writer) (ok, failed int, err error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = len(importHeader)
	cr.TrimLeadingSpace = true

	head, err := cr.Read()
	if err != nil {
		return 0, 0, fmt.Errorf("read header: %w", err)
	}
	for i, col := range importHeader {
		if strings.ToLower(strings.TrimSpace(head[i])) != col {
			return 0, 0, fmt.Errorf("unexpected header %q, want %s", strings.Join(head, ","), strings.Join(importHeader, ","))
		}
	}

	line := 1
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			fmt.Fprintf(out, "line %d: ERROR - %v\n", line, err)
			failed++
			continue
		}
		req, err := parseStockRow(rec)
		if err != nil {
			fmt.Fprintf(out, "line %d: ERROR - %v\n", line, err)
			failed++
			continue
		}
		res, err := svc.AddStock(ctx, auth.RoleAdmin, req)
		if err != nil {
			fmt.Fprintf(out, "line %d: ERROR - %v\n", line, err)
			failed++
			continue
		}
		verb := "added"
		if res.Merged {
			verb = "merged"
		}
		fmt.Fprintf(out, "line %d: %s %q (ID: %d, copies: %d)\n", line, verb, res.Book.Title, res.Book.BookID, res.Book.TotalCopies)
		ok++
	}
	return ok, failed, nil
}

func parseStockRow(rec []string) (inventory.AddStockRequest, error) {
	for i := range rec {
		rec[i] = strings.TrimSpace(rec[i])
	}
	req := inventory.AddStockRequest{
		ISBN: rec[0], Title: rec[1], Author: rec[2], Publisher: rec[3], Genre: rec[4],
	}
	var err error
	if rec[5] != "" {
		if req.Pages, err = strconv.Atoi(rec[5]); err != nil {
			return req, fmt.Errorf("invalid pages %q", rec[5])
		}
	}
	if rec[6] != "" {
		if req.Price, err = strconv.ParseFloat(rec[6], 64); err != nil {
			return req, fmt.Errorf("invalid price %q", rec[6])
		}
	}
	if req.Delta, err = strconv.Atoi(rec[7]); err != nil {
		return req, fmt.Errorf("invalid copies %q", rec[7])
	}
	return req, nil
}

// ===== create-admin =====

func newCreateAdminCmd(configPath *string) *cobra.Command {
	var req members.RegisterRequest
	cmd := &cobra.Command{
		Use:   "create-admin",
		Short: "Create an admin member (password is prompted)",
		RunE: func(cmd *cobra.Command, _ []string) error {
			pw, err := readPassword(cmd.OutOrStdout(), "Password: ")
			if err != nil {
				return fmt.Errorf("failed to read password: %w", err)
			}
			confirm, err := readPassword(cmd.OutOrStdout(), "Confirm password: ")
			if err != nil {
				return fmt.Errorf("failed to read password: %w", err)
			}
			if pw != confirm {
				return errors.New("passwords do not match")
			}
			req.Password = pw

			_, conn, err := open(cmd.Context(), *configPath)
			if err != nil {
				return err
			}
			defer conn.Close()

			m, err := members.NewService(conn).CreateAdmin(cmd.Context(), req)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created admin %s (ID: %d)\n", m.Email, m.MemberID)
			return nil
		},
	}
	cmd.Flags().StringVar(&req.FirstName, "first-name", "", "first name")
	cmd.Flags().StringVar(&req.LastName, "last-name", "", "last name")
	cmd.Flags().StringVar(&req.Email, "email", "", "login email")
	for _, f := range []string{"first-name", "last-name", "email"} {
		_ = cmd.MarkFlagRequired(f)
	}
	return cmd
}

// readPassword はエコーなしで読む
func readPassword(out io.Writer, prompt string) (string, error) {
	fmt.Fprint(out, prompt)
	b, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(out)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(b)), nil
}

// ===== audit =====

func newAuditCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "audit",
		Short: "Check copy counts against active loans once",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, conn, err := open(cmd.Context(), *configPath)
			if err != nil {
				return err
			}
			defer conn.Close()

			rep, err := audit.New(conn, cfg.DB.Driver, slog.Default()).Run(cmd.Context())
			if err != nil {
				return err
			}
			for _, f := range rep.Findings {
				fmt.Fprintf(cmd.OutOrStdout(), "book %d %q: %s (total=%d available=%d on_loan=%d)\n",
					f.BookID, f.Title, f.Problem, f.Total, f.Available, f.OnLoan)
			}
			if !rep.OK() {
				return fmt.Errorf("%d of %d books drifted", len(rep.Findings), rep.Books)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d books consistent\n", rep.Books)
			return nil
		},
	}
}
